package duo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
)

var (
	// ErrRateLimited matches any *APIError carrying HTTP 429.
	ErrRateLimited = errors.New("duo: rate limited (HTTP 429)")
	// ErrPreflight rejects a configuration whose API host does not answer the ping.
	ErrPreflight = errors.New("duo: pre-flight check failed")
)

// LogClient is the Admin API surface the fetcher depends on.
type LogClient interface {
	AuthenticationLog(ctx context.Context, mintime int64) ([]model.RawRecord, error)
	TelephonyLog(ctx context.Context, mintime int64) ([]model.RawRecord, error)
	AdministratorLog(ctx context.Context, mintime int64) ([]model.RawRecord, error)
	InfoSummary(ctx context.Context) (model.RawRecord, error)
	Host() string
}

// APIError is a non-2xx response or a body whose stat is not OK.
type APIError struct {
	StatusCode int
	Code       int    // Duo error code, e.g. 42901
	Message    string // first 512 bytes of the message or body
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("duo: HTTP %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("duo: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithTimeout is applied to a copy of the HTTP client after all options ran,
// whatever their order. A client passed to WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithScheme overrides https; only local test servers should need it.
func WithScheme(s string) Option { return func(c *Client) { c.scheme = s } }

// Client talks to the Admin API over HTTPS.
type Client struct {
	host    string
	scheme  string
	auth    Authorizer
	http    *http.Client
	timeout time.Duration
}

func NewClient(host string, auth Authorizer, opts ...Option) *Client {
	c := &Client{
		host:   host,
		scheme: "https",
		auth:   auth,
		http:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// NewClientFromConfig builds a signed client from operator options.
func NewClientFromConfig(cfg Config, opts ...Option) *Client {
	base := []Option{WithTimeout(cfg.Timeout)}
	return NewClient(cfg.APIHost, HMACSigner{IKey: cfg.IKey, SKey: cfg.SKey}, append(base, opts...)...)
}

func (c *Client) Host() string { return c.host }

func (c *Client) AuthenticationLog(ctx context.Context, mintime int64) ([]model.RawRecord, error) {
	return c.logs(ctx, "/admin/v1/logs/authentication", mintime)
}

func (c *Client) TelephonyLog(ctx context.Context, mintime int64) ([]model.RawRecord, error) {
	return c.logs(ctx, "/admin/v1/logs/telephony", mintime)
}

func (c *Client) AdministratorLog(ctx context.Context, mintime int64) ([]model.RawRecord, error) {
	return c.logs(ctx, "/admin/v1/logs/administrator", mintime)
}

func (c *Client) InfoSummary(ctx context.Context) (model.RawRecord, error) {
	var out model.RawRecord
	if err := c.call(ctx, "/admin/v1/info/summary", nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping hits the unauthenticated ping endpoint. Any failure is wrapped in
// ErrPreflight.
func (c *Client) Ping(ctx context.Context) error {
	var out json.RawMessage
	if err := c.call(ctx, "/auth/v2/ping", nil, false, &out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPreflight, c.host, err)
	}
	return nil
}

func (c *Client) logs(ctx context.Context, path string, mintime int64) ([]model.RawRecord, error) {
	params := url.Values{"mintime": {strconv.FormatInt(mintime, 10)}}
	var out []model.RawRecord
	if err := c.call(ctx, path, params, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type envelope struct {
	Stat     string          `json:"stat"`
	Code     int             `json:"code"`
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response"`
}

func (c *Client) call(ctx context.Context, path string, params url.Values, signed bool, dest any) error {
	u := url.URL{Scheme: c.scheme, Host: c.host, Path: path, RawQuery: canonParams(params)}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	if signed && c.auth != nil {
		if err := c.auth.Authorize(req, params); err != nil {
			return fmt.Errorf("duo: authorize: %w", err)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}

	var env envelope
	decErr := json.Unmarshal(body, &env)
	if resp.StatusCode != http.StatusOK || decErr != nil || env.Stat != "OK" {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: env.Code, Message: env.Message}
		if apiErr.Message == "" {
			apiErr.Message = truncate(string(body), 512)
		}
		if decErr != nil && resp.StatusCode == http.StatusOK {
			apiErr.Message = "malformed response: " + decErr.Error()
		}
		return apiErr
	}

	if len(env.Response) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(env.Response))
	dec.UseNumber()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("duo: decode %s: %w", path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
