package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/oracle/internal/api"
	"github.com/desertthunder/oracle/internal/auth"
	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/shared"
	tu "github.com/desertthunder/oracle/internal/testing"
)

type session struct {
	server  *httptest.Server
	expired atomic.Bool
	manager *auth.Manager
	router  *Router
	shell   *recordingShell
}

func newSession(t *testing.T) *session {
	t.Helper()
	s := &session{shell: &recordingShell{}}
	user := &models.User{ID: "u1", Name: "Ali", Email: "a@b.com"}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds models.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		w.Header().Set("Content-Type", "application/json")
		if creds.Email != "a@b.com" || creds.Password != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Invalid credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(models.AuthPayload{User: user, Token: "tok-1"})
	})
	mux.HandleFunc("GET /auth/verify", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if s.expired.Load() || r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Token expired"})
			return
		}
		_ = json.NewEncoder(w).Encode(models.AuthPayload{User: user})
	})
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)

	tokens := tu.NewMemoryTokens("")
	client := api.NewClient(api.Options{
		BaseURL:       s.server.URL,
		Tokens:        tokens,
		RetryAttempts: 1,
		Logger:        shared.DiscardLogger(),
	})
	s.manager = auth.NewManager(auth.Options{
		Backend:       client,
		Tokens:        tokens,
		CheckInterval: 20 * time.Millisecond,
		Logger:        shared.DiscardLogger(),
	})

	views := map[Name]View{}
	for _, n := range []Name{Login, Register, Dashboard, Chat, Tasks} {
		views[n] = &stubView{}
	}
	r, err := New(Options{
		Routes: DefaultRoutes(views),
		Auth:   s.manager,
		Shell:  s.shell,
		Logger: shared.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.router = r
	s.manager.SetRedirector(r)
	return s
}

func (s *session) current() Name {
	route, _ := s.router.CurrentRoute()
	return route.Name
}

func TestScenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("Signed Out Dashboard Goes To Login", func(t *testing.T) {
		s := newSession(t)
		if s.manager.Init(ctx) {
			t.Fatal("expected no session without a token")
		}
		if err := s.router.Navigate(ctx, Dashboard); err != nil {
			t.Fatalf("Navigate() error = %v", err)
		}
		if s.current() != Login {
			t.Errorf("current = %s, want login", s.current())
		}
	})

	t.Run("Login Then Dashboard", func(t *testing.T) {
		s := newSession(t)
		var changes []bool
		unsubscribe := s.manager.OnAuthChange(func(authenticated bool, _ *models.User) {
			changes = append(changes, authenticated)
		})
		defer unsubscribe()

		result := s.manager.Login(ctx, models.Credentials{Email: "a@b.com", Password: "secret1"})
		if !result.Success {
			t.Fatalf("Login() = %+v", result)
		}
		if len(changes) != 1 || !changes[0] {
			t.Errorf("auth changes = %v, want [true]", changes)
		}

		if err := s.router.Navigate(ctx, Dashboard); err != nil {
			t.Fatalf("Navigate() error = %v", err)
		}
		if s.current() != Dashboard {
			t.Errorf("current = %s, want dashboard", s.current())
		}
	})

	t.Run("Expired Token During Periodic Check", func(t *testing.T) {
		s := newSession(t)
		if result := s.manager.Login(ctx, models.Credentials{Email: "a@b.com", Password: "secret1"}); !result.Success {
			t.Fatalf("Login() = %+v", result)
		}
		_ = s.router.Navigate(ctx, Dashboard)

		s.expired.Store(true)
		s.manager.StartSessionCheck(ctx)
		defer s.manager.StopSessionCheck()

		tu.Eventually(t, 2*time.Second, func() bool { return !s.manager.IsUserAuthenticated() })
		tu.Eventually(t, 2*time.Second, func() bool { return s.current() == Login })

		if err := s.router.Navigate(ctx, Tasks); err != nil {
			t.Fatalf("Navigate() error = %v", err)
		}
		if s.current() != Login {
			t.Errorf("current = %s, want login", s.current())
		}
		_, toasts := s.shell.snapshot()
		found := false
		for _, toast := range toasts {
			if toast == "warning: Session expired. Please sign in again." {
				found = true
			}
		}
		if !found {
			t.Errorf("toasts = %v, want the expiry notice", toasts)
		}
	})
}
