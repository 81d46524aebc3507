package rolestore

// Package rolestore fetches the role registry document from object storage.
// Storage-level failures (non-2xx, missing object, denied access) are soft and reported as
// ports.ErrRolesUnavailable so callers can retry later. A document that cannot be parsed is a
// hard error.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/target/rolegate/internal/domain/auth"
	apperrors "github.com/target/rolegate/internal/errors"
	"github.com/target/rolegate/internal/observability/metrics"
	"github.com/target/rolegate/internal/observability/statsd"
	"github.com/target/rolegate/internal/ports"
)

// DefaultSelector picks the top-level "roles" array.
const DefaultSelector = "roles"

// Backend names used for logging and metric tags.
const (
	BackendBlob = "blob"
	BackendS3   = "s3"
)

// ValidateSelector reports whether expr is a valid JMESPath expression.
func ValidateSelector(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return apperrors.Validationf("invalid roles selector %q: %v", expr, err)
	}
	return nil
}

// ParseDocument extracts the ordered role list selected by selector from a JSON document.
func ParseDocument(data []byte, selector string) ([]domainauth.Role, error) {
	if strings.TrimSpace(selector) == "" {
		selector = DefaultSelector
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Malformed(err, "decode role document")
	}

	selected, err := jmespath.Search(selector, doc)
	if err != nil {
		return nil, apperrors.Malformed(err, "evaluate roles selector")
	}
	list, ok := selected.([]any)
	if !ok {
		return nil, apperrors.Malformed(nil, fmt.Sprintf("role document has no array at %q", selector))
	}

	raw, err := json.Marshal(list)
	if err != nil {
		return nil, apperrors.Malformed(err, "re-encode roles")
	}
	roles := make([]domainauth.Role, 0, len(list))
	if err := json.Unmarshal(raw, &roles); err != nil {
		return nil, apperrors.Malformed(err, "decode roles")
	}
	return roles, nil
}

// recorder wraps the logging and metrics every source emits per fetch.
type recorder struct {
	backend string
	metrics statsd.Sink
	logger  *slog.Logger
}

func newRecorder(backend string, sink statsd.Sink, logger *slog.Logger) recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return recorder{backend: backend, metrics: sink, logger: logger.With("backend", backend)}
}

func (r recorder) success(start time.Time, roles []domainauth.Role) {
	metrics.EmitRoleFetch(r.metrics, metrics.RoleFetchMetric{
		Backend: r.backend, Result: metrics.ResultSuccess, Roles: len(roles), Duration: time.Since(start),
	})
}

// unavailable logs a soft failure and returns ports.ErrRolesUnavailable.
func (r recorder) unavailable(start time.Time, reason string, attrs ...any) error {
	r.logger.Warn("No roles found", append([]any{"reason", reason}, attrs...)...)
	metrics.EmitRoleFetch(r.metrics, metrics.RoleFetchMetric{
		Backend: r.backend, Result: metrics.ResultEmpty, Duration: time.Since(start),
	})
	return ports.ErrRolesUnavailable
}

func (r recorder) failure(start time.Time, err error) error {
	metrics.EmitRoleFetch(r.metrics, metrics.RoleFetchMetric{
		Backend: r.backend, Result: metrics.ResultError, Duration: time.Since(start), Err: err,
	})
	return err
}

var errNoToken = errors.New("app token is required")
