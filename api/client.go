package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"stock-lookup/credentials"
	"stock-lookup/models"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrStatus is wrapped into every error caused by a non-2xx response.
var ErrStatus = errors.New("unexpected status")

const (
	PricePath    = "/api/price"
	AnalysisPath = "/api/ai"

	RequestIDHeader = "X-Request-Id"
	APIKeyHeader    = "X-API-Key"
)

// Client talks to the price/AI backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	creds      credentials.Provider
	credKey    string
	logger     *slog.Logger
}

type ClientOption func(*Client)

// WithTimeout bounds each request. Zero means no timeout. It applies to a
// copy of the HTTP client, whichever order the options come in.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithCredentials sends the credential named key as X-API-Key when present.
func WithCredentials(p credentials.Provider, key string) ClientOption {
	return func(c *Client) {
		c.creds = p
		c.credKey = key
	}
}

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient returns a client for baseURL. Trailing slashes are dropped so
// endpoint paths never produce a double slash.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

func (c *Client) apiKey() string {
	if c.creds == nil || c.credKey == "" {
		return ""
	}
	key, _ := c.creds.Lookup(c.credKey)
	return key
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type priceResponse struct {
	Close *float64 `json:"close"`
}

// Price returns the latest close for sec.
func (c *Client) Price(ctx context.Context, sec models.Security) (float64, error) {
	var body priceResponse
	if err := c.get(ctx, PricePath, sec, &body); err != nil {
		return 0, err
	}
	if body.Close == nil {
		return 0, fmt.Errorf("price response for %s has no close", sec.Key())
	}
	return *body.Close, nil
}

// Analysis returns the forecast and summary for sec.
func (c *Client) Analysis(ctx context.Context, sec models.Security) (models.Analysis, error) {
	var body models.Analysis
	if err := c.get(ctx, AnalysisPath, sec, &body); err != nil {
		return models.Analysis{}, err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, sec models.Security, out interface{}) error {
	params := url.Values{}
	params.Set("symbol", sec.Symbol)
	params.Set("market", string(sec.Market))
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if key := c.apiKey(); key != "" {
		req.Header.Set(APIKeyHeader, key)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed",
			"path", path, "key", sec.Key().String(), "request_id", requestID, "error", err)
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend response",
		"path", path,
		"key", sec.Key().String(),
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s: %w: %s", path, ErrStatus, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
