package metrics

import (
	"time"

	obserrors "github.com/target/rolegate/internal/observability/errors"
	"github.com/target/rolegate/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultCached  = "cached"
	ResultDenied  = "denied"
	ResultEmpty   = "empty"
	ResultError   = "error"
)

// Grant names used for the grant tag.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
	GrantClientCredentials = "client_credentials"
)

// TokenGrantMetric captures one token acquisition against the provider.
type TokenGrantMetric struct {
	Grant    string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitTokenGrant emits token.grant and token.grant.duration.
func EmitTokenGrant(sink statsd.Sink, in TokenGrantMetric) {
	if sink == nil {
		return
	}
	tags := withErrorClass(map[string]string{
		"grant":  in.Grant,
		"result": in.Result,
	}, in.Result, in.Err)

	sink.Count("token.grant", 1, tags)
	if in.Duration > 0 {
		sink.Timing("token.grant.duration", in.Duration, CloneTags(tags))
	}
}

// RoleFetchMetric captures one role document fetch.
type RoleFetchMetric struct {
	Backend  string
	Result   string
	Roles    int
	Duration time.Duration
	Err      error
}

// EmitRoleFetch emits roles.fetch, roles.fetch.duration and roles.count.
func EmitRoleFetch(sink statsd.Sink, in RoleFetchMetric) {
	if sink == nil {
		return
	}
	tags := withErrorClass(map[string]string{
		"backend": in.Backend,
		"result":  in.Result,
	}, in.Result, in.Err)

	sink.Count("roles.fetch", 1, tags)
	if in.Duration > 0 {
		sink.Timing("roles.fetch.duration", in.Duration, CloneTags(tags))
	}
	if in.Result == ResultSuccess {
		sink.Count("roles.count", int64(in.Roles), CloneTags(tags))
	}
}

// EmitSessionTransition counts state machine transitions of the session controller.
func EmitSessionTransition(sink statsd.Sink, from, to string) {
	if sink == nil {
		return
	}
	sink.Count("session.transition", 1, map[string]string{"from": from, "to": to})
}

func withErrorClass(tags map[string]string, result string, err error) map[string]string {
	if err != nil && result == ResultError {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	return tags
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
