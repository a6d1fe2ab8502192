// Package vk implements the VK API client the engine components fan out
// over: link resolution, profile fetching and the raw friends, wall,
// comment, subscription and group lookups.
package vk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitriikuleshov/vkscope/account"
	"github.com/dmitriikuleshov/vkscope/auth"
	"github.com/dmitriikuleshov/vkscope/httpcache"
)

const (
	defaultBaseURL = "https://api.vk.com/method"
	apiVersion     = "5.131"

	// pageSize is the VK hard cap on wall posts and comments per call.
	pageSize = 100
)

// APIError is an error the VK API returned inside a 200 response.
type APIError struct {
	Method  string
	Message string
	Code    int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vk %s: API error %d: %s", e.Method, e.Code, e.Message)
}

// Unwrap maps well-known VK error codes onto the engine sentinels so
// callers can use errors.Is without knowing code numbers.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case 6, 9, 29: // too many requests / flood / rate limit
		return account.ErrRateLimited
	case 7, 15, 18, 30, 203: // permission denied, hidden, deleted, private
		return account.ErrRestrictedAccess
	case 113, 100: // invalid user id / bad parameter
		return account.ErrProfileNotFound
	default:
		return nil
	}
}

// Client talks to the VK API. A Client is safe for concurrent use and
// holds no per-request state.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	baseURL    string
	token      string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cookies    map[string]string
	cache      httpcache.Cacher
	logger     *slog.Logger
	baseURL    string
	token      string
	timeout    time.Duration
	browserJar bool
}

// WithToken sets the VK API access token explicitly.
func WithToken(token string) Option {
	return func(c *config) { c.token = token }
}

// WithCookies sets explicit vk.com cookie values attached alongside the token.
func WithCookies(cookies map[string]string) Option {
	return func(c *config) { c.cookies = cookies }
}

// WithBrowserCookies enables reading vk.com cookies from browser stores.
func WithBrowserCookies() Option {
	return func(c *config) { c.browserJar = true }
}

// WithHTTPCache sets the HTTP cache for API responses. The engine leaves
// this unset for profile work (profiles are built fresh per request); it
// exists for bulk tooling.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *config) { c.baseURL = baseURL }
}

// WithTimeout bounds each API call. Defaults to 5 seconds; a timed-out
// call surfaces as an ordinary error and aggregation treats it as a
// scope skip.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New creates a VK client. The access token comes from WithToken or,
// failing that, from the auth source chain (VK_TOKEN env var).
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), baseURL: defaultBaseURL, timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.token == "" {
		cfg.token = auth.Token(auth.EnvVK)
	}
	if cfg.token == "" {
		return nil, fmt.Errorf("vk: no access token: set %s or use WithToken", auth.EnvVK)
	}

	cookies := cfg.cookies
	if len(cookies) == 0 && cfg.browserJar {
		found, err := auth.ChainSources(ctx, "vkontakte",
			auth.EnvSource{}, auth.NewBrowserSource(cfg.logger))
		if err != nil {
			cfg.logger.Debug("cookie lookup failed", "error", err)
		}
		cookies = found
	}

	httpClient := &http.Client{Timeout: cfg.timeout}
	if len(cookies) > 0 {
		jar, err := auth.NewCookieJar("vk.com", cookies)
		if err != nil {
			return nil, fmt.Errorf("vk: build cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	return &Client{
		httpClient: httpClient,
		cache:      cfg.cache,
		logger:     cfg.logger,
		baseURL:    cfg.baseURL,
		token:      cfg.token,
	}, nil
}

// call performs one API method call and decodes the "response" payload
// into out. API-level failures surface as *APIError.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", c.token)
	params.Set("v", apiVersion)

	reqURL := c.baseURL + "/" + method + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("vk %s: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := httpcache.FetchURL(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return fmt.Errorf("vk %s: %w", method, err)
	}

	var envelope struct {
		Response json.RawMessage `json:"response"`
		Error    *struct {
			Code    int    `json:"error_code"`
			Message string `json:"error_msg"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("vk %s: decode envelope: %w", method, err)
	}
	if envelope.Error != nil {
		return &APIError{Method: method, Code: envelope.Error.Code, Message: envelope.Error.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Response, out); err != nil {
		return fmt.Errorf("vk %s: decode response: %w", method, err)
	}
	return nil
}

// Post is one wall post as the aggregator consumes it.
type Post struct {
	Text     string
	ID       int64
	Owner    account.ID
	Date     int64
	Comments int
}

// Comment is one wall comment.
type Comment struct {
	Text string
	ID   int64
	From account.ID
	Date int64
}

// Permalink returns the canonical link to a wall post.
func (p Post) Permalink() string {
	return fmt.Sprintf("https://vk.com/wall%d_%d", p.Owner, p.ID)
}
