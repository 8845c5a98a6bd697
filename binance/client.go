package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.binance.com"
	serverTimePath = "/api/v3/time"

	// Outbound calls are bounded tightly so a stalled exchange cannot hold a
	// scrape open.
	defaultHTTPTimeout = 2 * time.Second

	apiKeyHeader = "X-MBX-APIKEY"
	signatureKey = "signature"
	timestampKey = "timestamp"
)

// Client issues signed requests against the Binance REST API.
type Client struct {
	baseURL    string
	apiKey     string
	secret     string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// ClientOption customises the client.
type ClientOption func(*Client)

// WithBaseURL overrides the API host (primarily for testing).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger *zap.SugaredLogger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a Binance client for the given credentials.
func NewClient(apiKey, secret string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("binance: api key is required")
	}
	if secret == "" {
		return nil, fmt.Errorf("binance: api secret is required")
	}
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return c, nil
}

// ServerTime fetches the exchange's authoritative clock in milliseconds since
// epoch. There is no local-clock fallback: a drifted timestamp would fail
// signature validation on every subsequent call anyway.
func (c *Client) ServerTime(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+serverTimePath, nil)
	if err != nil {
		return 0, fmt.Errorf("binance: build server time request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("binance: fetch server time: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("binance: read server time response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	var out struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("binance: decode server time: %w", err)
	}
	return out.ServerTime, nil
}

// Call executes a signed request and returns the raw response body. The
// parameter set is the server timestamp followed by extra in its own order,
// with the signature appended last. GET requests carry all parameters in the
// query string; POST requests default to the query string as well, switching
// to a form-encoded body when inBody is set.
func (c *Client) Call(ctx context.Context, method, path string, extra *Params, inBody bool) ([]byte, error) {
	ts, err := c.ServerTime(ctx)
	if err != nil {
		return nil, err
	}
	params := NewParams()
	params.Set(timestampKey, strconv.FormatInt(ts, 10))
	for _, k := range extra.Keys() {
		params.Set(k, extra.Get(k))
	}
	params.Set(signatureKey, Sign(c.secret, params))
	encoded := params.Encode()

	var req *http.Request
	switch method {
	case http.MethodGet:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+encoded, nil)
	case http.MethodPost:
		if inBody {
			req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(encoded))
			if err == nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
		} else {
			req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path+"?"+encoded, nil)
		}
	default:
		return nil, fmt.Errorf("binance: unsupported http method %q", method)
	}
	if err != nil {
		return nil, fmt.Errorf("binance: build %s %s request: %w", method, path, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("binance: read %s response: %w", path, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	c.debugf("binance %s %s: %s", method, path, string(body))
	return body, nil
}

func (c *Client) debugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
