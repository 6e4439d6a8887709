package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/oracle/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
)

// TokenStore holds the bearer token. Implementations must be safe for concurrent use.
type TokenStore interface {
	Token() string
	SetToken(token string) error
	ClearToken() error
}

// Options configures a [Client]. Zero values select defaults.
type Options struct {
	BaseURL       string
	HTTPClient    *http.Client
	Tokens        TokenStore
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	RateLimit     float64 // requests per second, 0 disables
	Logger        *log.Logger
}

// OptionsFromConfig maps the [api] config section onto [Options].
func OptionsFromConfig(cfg shared.APIConfig, tokens TokenStore, logger *log.Logger) Options {
	return Options{
		BaseURL:       BaseURLFromConfig(cfg),
		Tokens:        tokens,
		Timeout:       cfg.Timeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
		RateLimit:     cfg.RateLimit,
		Logger:        logger,
	}
}

// Client performs requests against the coaching API.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokens        TokenStore
	timeout       time.Duration
	retryAttempts int
	retryDelay    time.Duration
	limiter       *rate.Limiter
	logger        *log.Logger
}

// NewClient creates a [Client].
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		httpClient:    opts.HTTPClient,
		tokens:        opts.Tokens,
		timeout:       opts.Timeout,
		retryAttempts: opts.RetryAttempts,
		retryDelay:    opts.RetryDelay,
		logger:        opts.Logger,
	}

	if c.baseURL == "" {
		c.baseURL = LocalBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.tokens == nil {
		c.tokens = &memoryTokens{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.retryAttempts < 1 {
		c.retryAttempts = DefaultRetryAttempts
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	c.logger = shared.WithLogger(c.logger, "component", "api")
	return c
}

// BaseURL returns the resolved base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Tokens returns the token store the client reads from.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// Response represents a raw API response with status and body.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Decode unmarshals the JSON body into dest.
func (r *Response) Decode(dest any) error {
	if !r.IsJSON {
		return fmt.Errorf("%w: response is not JSON", shared.ErrAPIRequest)
	}
	if err := json.Unmarshal(r.Body, dest); err != nil {
		return fmt.Errorf("%w: decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// Request sends method to path with body encoded as JSON, retrying per the request contract.
//
// body may be nil, a []byte holding raw JSON, or any value [json.Marshal] accepts.
func (c *Client) Request(ctx context.Context, method, path string, body any, header http.Header) (*Response, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.attempt(ctx, method, path, payload, header)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.IsClientError() {
			return nil, err
		}

		if attempt == c.retryAttempts {
			break
		}

		delay := time.Duration(attempt) * c.retryDelay
		c.logger.Warn("request failed, retrying", "method", method, "path", path, "attempt", attempt, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, header http.Header) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	for k, values := range header {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	c.logger.Debug("request", "method", method, "path", path)
	return c.do(attemptCtx, req)
}

// do sends req and converts the reply into a [Response] or [*Error].
func (c *Client) do(ctx context.Context, req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %s %s", shared.ErrTimeout, req.Method, req.URL.Path)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") && len(body) > 0 {
		var jsonData any
		if err := json.Unmarshal(body, &jsonData); err == nil {
			apiResp.IsJSON = true
			apiResp.JSONData = jsonData
		} else if resp.StatusCode < 300 {
			return nil, fmt.Errorf("%w: invalid JSON body: %v", shared.ErrAPIRequest, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError(apiResp)
	}
	return apiResp, nil
}

func (c *Client) authorize(req *http.Request) {
	if token := c.tokens.Token(); token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}
}

// Get performs a GET with params encoded as the query string.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (*Response, error) {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.Request(ctx, http.MethodGet, path, nil, nil)
}

// Post performs a POST. A nil body is sent as an empty object.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, orEmpty(body), nil)
}

// Put performs a PUT. A nil body is sent as an empty object.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPut, path, orEmpty(body), nil)
}

// Patch performs a PATCH. A nil body is sent as an empty object.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPatch, path, orEmpty(body), nil)
}

// Delete performs a DELETE.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, nil)
}

// getJSON performs a GET and decodes the body into dest.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest any) error {
	resp, err := c.Get(ctx, path, params)
	if err != nil {
		return err
	}
	return resp.Decode(dest)
}

// sendJSON performs method with body and decodes the reply into dest when dest is not nil.
func (c *Client) sendJSON(ctx context.Context, method, path string, body, dest any) error {
	resp, err := c.Request(ctx, method, path, orEmpty(body), nil)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	return resp.Decode(dest)
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request body: %v", shared.ErrInvalidInput, err)
	}
	return data, nil
}

func orEmpty(body any) any {
	if body == nil {
		return struct{}{}
	}
	return body
}

type memoryTokens struct {
	mu    sync.Mutex
	token string
}

func (m *memoryTokens) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *memoryTokens) SetToken(t string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = t
	return nil
}

func (m *memoryTokens) ClearToken() error {
	return m.SetToken("")
}
