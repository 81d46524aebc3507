package rolestore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/target/rolegate/internal/domain/auth"
	"github.com/target/rolegate/internal/observability/statsd"
	"github.com/target/rolegate/internal/ports"
)

// BlobAPIVersion is the storage REST version sent with every request.
const BlobAPIVersion = "2017-11-09"

const maxDocumentBytes = 1 << 20

// BlobConfig locates the role document in Azure Blob Storage.
type BlobConfig struct {
	AccountName string
	Container   string
	Path        string
	// Endpoint overrides https://{AccountName}.blob.core.windows.net.
	Endpoint   string
	Selector   string
	HTTPClient *http.Client
	Metrics    statsd.Sink
	Logger     *slog.Logger
}

// BlobSource reads the role document with the caller's bearer token.
type BlobSource struct {
	url        string
	selector   string
	httpClient *http.Client
	rec        recorder
}

var _ ports.RoleFetcher = (*BlobSource)(nil)

// NewBlobSource validates cfg and builds the document URL.
func NewBlobSource(cfg BlobConfig) (*BlobSource, error) {
	endpoint := strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		if cfg.AccountName == "" {
			return nil, fmt.Errorf("storage account name is required")
		}
		endpoint = "https://" + cfg.AccountName + ".blob.core.windows.net"
	}
	if cfg.Container == "" {
		return nil, fmt.Errorf("container name is required")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("roles file path is required")
	}
	if err := ValidateSelector(cfg.Selector); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &BlobSource{
		url:        endpoint + "/" + url.PathEscape(cfg.Container) + "/" + strings.TrimPrefix(cfg.Path, "/"),
		selector:   cfg.Selector,
		httpClient: httpClient,
		rec:        newRecorder(BackendBlob, cfg.Metrics, cfg.Logger),
	}, nil
}

// URL returns the document location.
func (b *BlobSource) URL() string { return b.url }

// FetchRoles downloads and parses the role document.
func (b *BlobSource) FetchRoles(ctx context.Context, appToken string) ([]domainauth.Role, error) {
	if appToken == "" {
		return nil, errNoToken
	}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return nil, b.rec.failure(start, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+appToken)
	req.Header.Set("x-ms-version", BlobAPIVersion)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, b.rec.failure(start, fmt.Errorf("fetch role document: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDocumentBytes))
		return nil, b.rec.unavailable(start, "unexpected status", "status", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, b.rec.failure(start, fmt.Errorf("read role document: %w", err))
	}
	roles, err := ParseDocument(data, b.selector)
	if err != nil {
		return nil, b.rec.failure(start, err)
	}
	b.rec.success(start, roles)
	return roles, nil
}
