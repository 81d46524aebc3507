package graph

// Package graph reads the signed-in user's profile and group memberships from Microsoft Graph.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/target/rolegate/internal/errors"
	"github.com/target/rolegate/internal/ports"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// maxPages bounds how many @odata.nextLink hops a membership listing may take.
const maxPages = 50

const maxBodyBytes = 4 << 20

// Config holds configuration for the Graph client.
type Config struct {
	BaseURL    string       // Optional, defaults to DefaultBaseURL
	HTTPClient *http.Client // Optional, defaults to a client with a 30s timeout
	Logger     *slog.Logger
}

// Client implements ports.DirectoryClient.
type Client struct {
	baseURL string
	base    *http.Client
	logger  *slog.Logger
}

var _ ports.DirectoryClient = (*Client)(nil)

// NewClient creates a Graph client.
func NewClient(cfg Config) *Client {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: base, base: httpClient, logger: logger}
}

type profile struct {
	DisplayName *string `json:"displayName"`
}

type directoryObject struct {
	ODataType   string `json:"@odata.type"`
	DisplayName string `json:"displayName"`
}

type memberOfPage struct {
	Value    *[]directoryObject `json:"value"`
	NextLink string             `json:"@odata.nextLink"`
}

// FetchProfileAndGroups returns the user's display name and the display names of every
// directory object the user is a direct member of. Any failure is returned to the caller.
func (c *Client) FetchProfileAndGroups(ctx context.Context, userToken string) (string, []string, error) {
	if userToken == "" {
		return "", nil, errors.New("user token is required")
	}
	hc := c.authorized(userToken)

	var me profile
	if err := c.getJSON(ctx, hc, c.baseURL+"/me", &me); err != nil {
		return "", nil, fmt.Errorf("fetch profile: %w", err)
	}
	if me.DisplayName == nil {
		return "", nil, apperrors.Malformed(nil, "fetch profile: response has no displayName")
	}

	groups, err := c.memberOf(ctx, hc)
	if err != nil {
		return "", nil, fmt.Errorf("fetch group memberships: %w", err)
	}

	c.logger.DebugContext(ctx, "fetched directory profile", "groups", len(groups))
	return *me.DisplayName, groups, nil
}

func (c *Client) memberOf(ctx context.Context, hc *http.Client) ([]string, error) {
	groups := []string{}
	next := c.baseURL + "/me/memberOf"
	for page := 0; next != ""; page++ {
		if page == maxPages {
			return nil, fmt.Errorf("membership listing exceeded %d pages", maxPages)
		}
		var body memberOfPage
		if err := c.getJSON(ctx, hc, next, &body); err != nil {
			return nil, err
		}
		if body.Value == nil {
			return nil, apperrors.Malformed(nil, "response has no value array")
		}
		for _, obj := range *body.Value {
			if obj.DisplayName != "" {
				groups = append(groups, obj.DisplayName)
			}
		}
		next = body.NextLink
	}
	return groups, nil
}

func (c *Client) authorized(token string) *http.Client {
	base := c.base.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout: c.base.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base,
		},
	}
}

func (c *Client) getJSON(ctx context.Context, hc *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.Upstreamf(resp.StatusCode, "GET %s: status %d", req.URL.Path, resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Malformed(err, "decode response")
	}
	return nil
}
