package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/oracle/internal/shared"
	tu "github.com/desertthunder/oracle/internal/testing"
)

func newTestClient(t *testing.T, h http.Handler, tokens TokenStore) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	return NewClient(Options{
		BaseURL:    server.URL,
		Tokens:     tokens,
		Timeout:    time.Second,
		RetryDelay: time.Millisecond,
		Logger:     shared.DiscardLogger(),
	})
}

func TestResolveBaseURL(t *testing.T) {
	tc := []struct {
		name string
		host string
		want string
	}{
		{name: "localhost", host: "localhost", want: "http://localhost:8000/api"},
		{name: "loopback", host: "127.0.0.1", want: "http://localhost:8000/api"},
		{name: "ngrok tunnel", host: "abc123.ngrok-free.app", want: "https://abc123.ngrok-free.app/api"},
		{name: "production", host: "oracle-boxing.app", want: "https://oracle-boxing.app/api"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveBaseURL(tt.host, "https://oracle-boxing.app/api/"); got != tt.want {
				t.Errorf("ResolveBaseURL(%q) = %q, want %q", tt.host, got, tt.want)
			}
		})
	}

	t.Run("Explicit Base URL Wins", func(t *testing.T) {
		cfg := shared.DefaultConfig().API
		cfg.BaseURL = "http://10.0.0.2:9000/api/"
		if got := BaseURLFromConfig(cfg); got != "http://10.0.0.2:9000/api" {
			t.Errorf("BaseURLFromConfig() = %q", got)
		}
	})
}

func TestClient(t *testing.T) {
	t.Run("New With Defaults", func(t *testing.T) {
		c := NewClient(Options{})
		if c.BaseURL() != LocalBaseURL {
			t.Errorf("expected default base URL, got %s", c.BaseURL())
		}
		if c.retryAttempts != DefaultRetryAttempts || c.timeout != DefaultTimeout || c.retryDelay != DefaultRetryDelay {
			t.Errorf("unexpected defaults: attempts=%d timeout=%v delay=%v", c.retryAttempts, c.timeout, c.retryDelay)
		}
		if c.httpClient != http.DefaultClient {
			t.Error("expected http.DefaultClient to be used")
		}
	})

	t.Run("JSON Response", func(t *testing.T) {
		h := tu.NewScriptedHandler(tu.Reply{Status: 200, Body: map[string]string{"status": "ok"}})
		c := newTestClient(t, h, nil)

		resp, err := c.Get(context.Background(), "/health", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !resp.IsJSON || resp.JSONData == nil {
			t.Error("expected response to be JSON")
		}

		req := h.Requests()[0]
		if req.ContentType != "application/json" {
			t.Errorf("expected JSON content type, got %q", req.ContentType)
		}
		if req.Authorization != "" {
			t.Errorf("expected no authorization without a token, got %q", req.Authorization)
		}
	})

	t.Run("Text Response", func(t *testing.T) {
		h := tu.NewScriptedHandler(tu.Reply{Status: 200, Body: "pong"})
		c := newTestClient(t, h, nil)

		resp, err := c.Get(context.Background(), "/ping", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.IsJSON || resp.Text() != "pong" {
			t.Errorf("expected text body pong, got %q (json=%v)", resp.Text(), resp.IsJSON)
		}
		if err := resp.Decode(&map[string]any{}); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("decoding text should fail, got %v", err)
		}
	})

	t.Run("Query Params", func(t *testing.T) {
		h := tu.NewScriptedHandler()
		c := newTestClient(t, h, nil)

		c.Get(context.Background(), "/chat/history", url.Values{"limit": {"50"}})
		if q := h.Requests()[0].Query; q != "limit=50" {
			t.Errorf("expected limit=50, got %q", q)
		}
	})

	t.Run("Post Sends Empty Object For Nil Body", func(t *testing.T) {
		h := tu.NewScriptedHandler()
		c := newTestClient(t, h, nil)

		c.Post(context.Background(), "/auth/logout", nil)
		if body := string(h.Requests()[0].Body); body != "{}" {
			t.Errorf("expected {} body, got %q", body)
		}
	})

	t.Run("Raw JSON Body", func(t *testing.T) {
		h := tu.NewScriptedHandler()
		c := newTestClient(t, h, nil)

		c.Post(context.Background(), "/progress", []byte(`{"metric":"jab","value":3}`))
		if body := string(h.Requests()[0].Body); body != `{"metric":"jab","value":3}` {
			t.Errorf("raw body should be sent unchanged, got %q", body)
		}
	})

	t.Run("Token Injection Follows Token Changes", func(t *testing.T) {
		h := tu.NewScriptedHandler()
		tokens := tu.NewMemoryTokens("first")
		c := newTestClient(t, h, tokens)

		c.Get(context.Background(), "/auth/verify", nil)
		tokens.SetToken("second")
		c.Get(context.Background(), "/auth/verify", nil)
		tokens.ClearToken()
		c.Get(context.Background(), "/auth/verify", nil)

		reqs := h.Requests()
		if reqs[0].Authorization != "Bearer first" {
			t.Errorf("expected Bearer first, got %q", reqs[0].Authorization)
		}
		if reqs[1].Authorization != "Bearer second" {
			t.Errorf("expected Bearer second, got %q", reqs[1].Authorization)
		}
		if reqs[2].Authorization != "" {
			t.Errorf("expected no authorization after clear, got %q", reqs[2].Authorization)
		}
	})

	t.Run("Caller Headers Override Defaults", func(t *testing.T) {
		h := tu.NewScriptedHandler()
		c := newTestClient(t, h, tu.NewMemoryTokens("tok"))

		header := http.Header{}
		header.Set("Content-Type", "application/merge-patch+json")
		header.Set("Authorization", "Bearer other")
		header.Set("X-Request-Id", "r1")
		c.Request(context.Background(), http.MethodPut, "/user/profile", map[string]string{"name": "Ali"}, header)

		got := h.Requests()[0].Header
		if v := got.Values("Content-Type"); len(v) != 1 || v[0] != "application/merge-patch+json" {
			t.Errorf("Content-Type = %v", v)
		}
		if v := got.Values("Authorization"); len(v) != 1 || v[0] != "Bearer other" {
			t.Errorf("Authorization = %v", v)
		}
		if got.Get("X-Request-Id") != "r1" {
			t.Errorf("X-Request-Id = %q", got.Get("X-Request-Id"))
		}
	})

	t.Run("Retry Ceiling On Server Errors", func(t *testing.T) {
		h := tu.NewScriptedHandler(tu.Reply{Status: 500, Body: map[string]string{"message": "boom"}})
		c := newTestClient(t, h, nil)

		_, err := c.Get(context.Background(), "/user/profile", nil)
		if h.Count() != 3 {
			t.Errorf("expected exactly 3 attempts, got %d", h.Count())
		}

		var apiErr *Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *Error, got %T: %v", err, err)
		}
		if apiErr.StatusCode != 500 || apiErr.Message != "boom" {
			t.Errorf("unexpected error %+v", apiErr)
		}
		if !apiErr.Temporary() {
			t.Error("500 should be temporary")
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Error("expected errors.Is ErrAPIRequest")
		}
	})

	t.Run("Recovers After Transient Failure", func(t *testing.T) {
		h := tu.NewScriptedHandler(
			tu.Reply{Status: 503},
			tu.Reply{Status: 200, Body: map[string]string{"status": "ok"}},
		)
		c := newTestClient(t, h, nil)

		if _, err := c.Get(context.Background(), "/health", nil); err != nil {
			t.Fatalf("expected recovery, got %v", err)
		}
		if h.Count() != 2 {
			t.Errorf("expected 2 attempts, got %d", h.Count())
		}
	})

	t.Run("No Retry On Client Errors", func(t *testing.T) {
		tc := []int{400, 401, 404, 422}
		for _, status := range tc {
			h := tu.NewScriptedHandler(tu.Reply{Status: status, Body: map[string]string{}})
			c := newTestClient(t, h, nil)

			_, err := c.Get(context.Background(), "/missing", nil)
			if h.Count() != 1 {
				t.Errorf("status %d: expected 1 attempt, got %d", status, h.Count())
			}
			if StatusCode(err) != status {
				t.Errorf("status %d: got status %d", status, StatusCode(err))
			}
			if !strings.Contains(err.Error(), "HTTP") {
				t.Errorf("status %d: expected default HTTP message, got %q", status, err.Error())
			}
		}
	})

	t.Run("Unauthorized Matches ErrNotAuthenticated", func(t *testing.T) {
		h := tu.NewScriptedHandler(tu.Reply{Status: 401, Body: map[string]string{"message": "expired"}})
		c := newTestClient(t, h, nil)

		_, err := c.Get(context.Background(), "/auth/verify", nil)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Per Attempt Timeout Is Retried", func(t *testing.T) {
		h := tu.NewScriptedHandler(
			tu.Reply{Status: 200, Delay: 200 * time.Millisecond},
			tu.Reply{Status: 200, Body: map[string]string{"status": "ok"}},
		)
		server := httptest.NewServer(h)
		defer server.Close()

		c := NewClient(Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond, RetryDelay: time.Millisecond, Logger: shared.DiscardLogger()})
		if _, err := c.Get(context.Background(), "/health", nil); err != nil {
			t.Fatalf("expected second attempt to succeed, got %v", err)
		}
		if h.Count() != 2 {
			t.Errorf("expected 2 attempts, got %d", h.Count())
		}
	})

	t.Run("Caller Cancellation Stops Retries", func(t *testing.T) {
		h := tu.NewScriptedHandler(tu.Reply{Status: 500})
		server := httptest.NewServer(h)
		defer server.Close()

		c := NewClient(Options{BaseURL: server.URL, RetryDelay: time.Hour, Logger: shared.DiscardLogger()})
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := c.Get(ctx, "/health", nil)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context deadline, got %v", err)
		}
		if time.Since(start) > 5*time.Second {
			t.Error("cancellation should interrupt the retry delay")
		}
		if h.Count() != 1 {
			t.Errorf("expected one attempt before cancellation, got %d", h.Count())
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		httpClient := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		c := NewClient(Options{BaseURL: "http://oracle.test/api", HTTPClient: httpClient, RetryDelay: time.Millisecond, Logger: shared.DiscardLogger()})

		if _, err := c.Get(context.Background(), "/health", nil); err == nil || !strings.Contains(err.Error(), "connection refused") {
			t.Errorf("expected transport error, got %v", err)
		}
	})

	t.Run("Body Read Failure", func(t *testing.T) {
		resp := &http.Response{StatusCode: 200, Body: &tu.FCloser{}, Header: http.Header{}}
		httpClient := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
		c := NewClient(Options{BaseURL: "http://oracle.test/api", HTTPClient: httpClient, RetryAttempts: 1, Logger: shared.DiscardLogger()})

		if _, err := c.Get(context.Background(), "/health", nil); err == nil || !strings.Contains(err.Error(), "failed to read response") {
			t.Errorf("expected read error, got %v", err)
		}
	})

	t.Run("Rate Limit", func(t *testing.T) {
		h := tu.NewScriptedHandler()
		server := httptest.NewServer(h)
		defer server.Close()

		c := NewClient(Options{BaseURL: server.URL, RateLimit: 20, Logger: shared.DiscardLogger()})
		start := time.Now()
		for range 3 {
			if _, err := c.Get(context.Background(), "/health", nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
			t.Errorf("expected limiter to space requests, took %v", elapsed)
		}
	})
}

func TestAuthWrappers(t *testing.T) {
	authBody := map[string]any{"token": "tok-1", "user": map[string]string{"id": "u1", "name": "Ali", "email": "ali@oracle.test"}}

	t.Run("Login Persists Token", func(t *testing.T) {
		h := tu.NewScriptedHandler(tu.Reply{Status: 200, Body: authBody})
		tokens := tu.NewMemoryTokens("")
		c := newTestClient(t, h, tokens)

		res := c.Login(context.Background(), credentials())
		if !res.Success || res.User == nil || res.User.ID != "u1" || res.Token != "tok-1" {
			t.Fatalf("unexpected result %+v", res)
		}
		if tokens.Token() != "tok-1" {
			t.Errorf("expected token to be persisted, got %q", tokens.Token())
		}

		var sent map[string]any
		json.Unmarshal(h.Requests()[0].Body, &sent)
		if sent["email"] != "ali@oracle.test" {
			t.Errorf("expected credentials in body, got %v", sent)
		}
	})

	t.Run("Login Failure Messages", func(t *testing.T) {
		h := tu.NewScriptedHandler(tu.Reply{Status: 401, Body: map[string]string{"message": "Invalid credentials"}})
		c := newTestClient(t, h, nil)

		res := c.Login(context.Background(), credentials())
		if res.Success || res.Message != "Invalid credentials" {
			t.Errorf("expected server message, got %+v", res)
		}

		httpClient := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("dial failed"))}
		offline := NewClient(Options{BaseURL: "http://oracle.test/api", HTTPClient: httpClient, RetryAttempts: 1, Logger: shared.DiscardLogger()})
		tc := []struct {
			name string
			call func() AuthResult
			want string
		}{
			{name: "Login", call: func() AuthResult { return offline.Login(context.Background(), credentials()) }, want: "Login failed"},
			{name: "Register", call: func() AuthResult { return offline.Register(context.Background(), registration()) }, want: "Registration failed"},
			{name: "Demo", call: func() AuthResult { return offline.DemoLogin(context.Background()) }, want: "Demo login failed"},
		}
		for _, c := range tc {
			t.Run(c.name, func(t *testing.T) {
				if res := c.call(); res.Success || res.Message != c.want {
					t.Errorf("expected %q, got %+v", c.want, res)
				}
			})
		}
	})

	t.Run("Logout Always Clears Token", func(t *testing.T) {
		h := tu.NewScriptedHandler(tu.Reply{Status: 500})
		tokens := tu.NewMemoryTokens("tok")
		c := newTestClient(t, h, tokens)

		if res := c.Logout(context.Background()); !res.Success {
			t.Error("logout should always succeed")
		}
		if tokens.Token() != "" {
			t.Error("token should be cleared")
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		h := tu.NewScriptedHandler(tu.Reply{Status: 200, Body: map[string]string{"token": "fresh"}})
		tokens := tu.NewMemoryTokens("stale")
		c := newTestClient(t, h, tokens)

		if res := c.RefreshToken(context.Background()); !res.Success || res.Token != "fresh" {
			t.Errorf("unexpected refresh result %+v", res)
		}
		if tokens.Token() != "fresh" {
			t.Errorf("expected refreshed token, got %q", tokens.Token())
		}
	})

	t.Run("Refresh Without Token", func(t *testing.T) {
		h := tu.NewScriptedHandler(tu.Reply{Status: 200, Body: map[string]string{}})
		tokens := tu.NewMemoryTokens("kept")
		c := newTestClient(t, h, tokens)

		if res := c.RefreshToken(context.Background()); res.Success {
			t.Error("refresh without a token should not succeed")
		}
		if tokens.Token() != "kept" {
			t.Error("token should be kept when the server returns none")
		}
	})

	t.Run("Refresh Failure Clears Token", func(t *testing.T) {
		h := tu.NewScriptedHandler(tu.Reply{Status: 401, Body: map[string]string{"message": "expired"}})
		tokens := tu.NewMemoryTokens("stale")
		c := newTestClient(t, h, tokens)

		if res := c.RefreshToken(context.Background()); res.Success || res.Message != "expired" {
			t.Errorf("unexpected refresh result %+v", res)
		}
		if tokens.Cleared != 1 {
			t.Error("expected token to be cleared")
		}
	})

	t.Run("Verify", func(t *testing.T) {
		h := tu.NewScriptedHandler(tu.Reply{Status: 200, Body: authBody})
		c := newTestClient(t, h, tu.NewMemoryTokens("tok-1"))

		res := c.VerifyToken(context.Background())
		if !res.Success || res.User == nil || res.User.Name != "Ali" {
			t.Errorf("unexpected verify result %+v", res)
		}
		if req := h.Requests()[0]; req.Method != http.MethodGet || req.Path != "/auth/verify" {
			t.Errorf("unexpected request %s %s", req.Method, req.Path)
		}
	})
}
