package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/oracle/internal/api"
	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/shared"
	"github.com/desertthunder/oracle/internal/storage"
	tu "github.com/desertthunder/oracle/internal/testing"
)

type fakeBackend struct {
	mu          sync.Mutex
	verify      api.AuthResult
	login       api.AuthResult
	verifyCalls int
	logoutCalls int
	profileErr  error
	resetErr    error
}

func (f *fakeBackend) VerifyToken(context.Context) api.AuthResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	return f.verify
}

func (f *fakeBackend) setVerify(r api.AuthResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verify = r
}

func (f *fakeBackend) verifications() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls
}

func (f *fakeBackend) Login(context.Context, models.Credentials) api.AuthResult { return f.login }
func (f *fakeBackend) Register(context.Context, models.Registration) api.AuthResult { return f.login }
func (f *fakeBackend) DemoLogin(context.Context) api.AuthResult { return f.login }
func (f *fakeBackend) RefreshToken(context.Context) api.AuthResult { return f.login }
func (f *fakeBackend) RequestPasswordReset(context.Context, string) error { return f.resetErr }
func (f *fakeBackend) ResetPassword(context.Context, string, string) error { return f.resetErr }
func (f *fakeBackend) Logout(context.Context) api.AuthResult {
	f.logoutCalls++
	return api.AuthResult{Success: true}
}

func (f *fakeBackend) UpdateProfile(_ context.Context, u models.ProfileUpdate) (*models.User, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return &models.User{Name: u.Name}, nil
}

// stallingBackend holds VerifyToken open until the request context ends.
type stallingBackend struct {
	fakeBackend
	started chan struct{}
	once    sync.Once
}

func (s *stallingBackend) VerifyToken(ctx context.Context) api.AuthResult {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return api.AuthResult{Message: ctx.Err().Error()}
}

type redirect struct {
	login   bool
	reason  Reason
	landing bool
}

type fakeRedirector struct {
	mu    sync.Mutex
	calls []redirect
}

func (r *fakeRedirector) ToLogin(_ context.Context, reason Reason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, redirect{login: true, reason: reason})
}

func (r *fakeRedirector) ToLanding(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, redirect{landing: true})
}

func (r *fakeRedirector) snapshot() []redirect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]redirect(nil), r.calls...)
}

var ali = &models.User{ID: "u1", Name: "Ali", Email: "ali@oracle.test"}

func newManager(t *testing.T, backend *fakeBackend, durable storage.Scope) (*Manager, *fakeRedirector) {
	t.Helper()
	if durable == nil {
		durable = storage.NewSessionScope()
	}
	m := NewManager(Options{
		Backend:       backend,
		Durable:       durable,
		CheckInterval: 10 * time.Millisecond,
		Logger:        shared.DiscardLogger(),
	})
	r := &fakeRedirector{}
	m.SetRedirector(r)
	return m, r
}

func TestManagerInit(t *testing.T) {
	t.Run("No Token", func(t *testing.T) {
		backend := &fakeBackend{}
		m, _ := newManager(t, backend, nil)

		if m.Init(context.Background()) {
			t.Error("expected unauthenticated without a token")
		}
		if backend.verifications() != 0 {
			t.Error("should not verify without a token")
		}
	})

	t.Run("Valid Token", func(t *testing.T) {
		durable := storage.NewSessionScope()
		durable.Set(storage.KeyAuthToken, "tok")
		backend := &fakeBackend{verify: api.AuthResult{Success: true, User: ali}}
		m, _ := newManager(t, backend, durable)

		if !m.Init(context.Background()) {
			t.Fatal("expected authenticated")
		}
		if !m.IsUserAuthenticated() || m.CurrentUser().ID != "u1" {
			t.Errorf("unexpected session user %+v", m.CurrentUser())
		}

		var stored models.User
		if found, _ := durable.Get(storage.KeyCurrentUser, &stored); !found || stored.Name != "Ali" {
			t.Errorf("expected user snapshot to be persisted, got %+v", stored)
		}
	})

	t.Run("Rejected Token Clears Storage", func(t *testing.T) {
		durable := storage.NewSessionScope()
		durable.Set(storage.KeyAuthToken, "tok")
		durable.Set(storage.KeyCurrentUser, ali)
		backend := &fakeBackend{verify: api.AuthResult{Message: "expired"}}
		m, _ := newManager(t, backend, durable)

		if m.Init(context.Background()) {
			t.Fatal("expected unauthenticated")
		}

		var token string
		if found, _ := durable.Get(storage.KeyAuthToken, &token); found {
			t.Error("token should be removed")
		}
		if found, _ := durable.Get(storage.KeyCurrentUser, &models.User{}); found {
			t.Error("user snapshot should be removed")
		}
	})

	t.Run("Verified Without User Falls Back To Snapshot", func(t *testing.T) {
		durable := storage.NewSessionScope()
		durable.Set(storage.KeyAuthToken, "tok")
		durable.Set(storage.KeyCurrentUser, ali)
		m, _ := newManager(t, &fakeBackend{verify: api.AuthResult{Success: true}}, durable)

		if !m.Init(context.Background()) || m.CurrentUser().Name != "Ali" {
			t.Error("expected stored user to be used")
		}
	})
}

func TestManagerObservers(t *testing.T) {
	t.Run("Registration Order And Unsubscribe", func(t *testing.T) {
		m, _ := newManager(t, &fakeBackend{}, nil)

		var order []string
		m.OnAuthChange(func(bool, *models.User) { order = append(order, "first") })
		unsub := m.OnAuthChange(func(bool, *models.User) { order = append(order, "second") })
		m.OnAuthChange(func(bool, *models.User) { order = append(order, "third") })

		m.SetSession(ali, "tok")
		if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
			t.Fatalf("unexpected order %v", order)
		}

		unsub()
		unsub()
		order = nil
		m.ClearSession()
		if len(order) != 2 || order[0] != "first" || order[1] != "third" {
			t.Errorf("unexpected order after unsubscribe %v", order)
		}
	})

	t.Run("Panicking Observer Is Isolated", func(t *testing.T) {
		logger, buf := tu.BufferLogger()
		m := NewManager(Options{Backend: &fakeBackend{}, Logger: logger})

		called := false
		m.OnAuthChange(func(bool, *models.User) { panic("boom") })
		m.OnAuthChange(func(authenticated bool, user *models.User) {
			called = authenticated && user == ali
		})

		m.SetSession(ali, "tok")
		if !called {
			t.Error("later observers must still run")
		}
		if !strings.Contains(buf.String(), "auth observer panicked") {
			t.Errorf("expected panic to be logged, got %q", buf.String())
		}
	})

	t.Run("Observer May Read State", func(t *testing.T) {
		m, _ := newManager(t, &fakeBackend{}, nil)

		var seen bool
		m.OnAuthChange(func(bool, *models.User) { seen = m.IsUserAuthenticated() })
		m.SetSession(ali, "tok")
		if !seen {
			t.Error("observer should see the committed session")
		}
	})
}

func TestManagerSessionCheck(t *testing.T) {
	t.Run("Expired Session Redirects", func(t *testing.T) {
		durable := storage.NewSessionScope()
		backend := &fakeBackend{verify: api.AuthResult{Success: true, User: ali}}
		m, r := newManager(t, backend, durable)
		m.SetSession(ali, "tok")

		backend.setVerify(api.AuthResult{Message: "expired"})
		m.StartSessionCheck(context.Background())
		defer m.StopSessionCheck()

		tu.Eventually(t, 2*time.Second, func() bool { return len(r.snapshot()) > 0 })
		m.StopSessionCheck()

		calls := r.snapshot()
		if !calls[0].login || calls[0].reason != ReasonExpired {
			t.Errorf("expected expired redirect, got %+v", calls[0])
		}
		if m.IsUserAuthenticated() {
			t.Error("session should be cleared")
		}
		if len(calls) != 1 {
			t.Errorf("signed out sessions must not be re-checked, got %d redirects", len(calls))
		}
	})

	t.Run("Skips While Signed Out", func(t *testing.T) {
		backend := &fakeBackend{}
		m, _ := newManager(t, backend, nil)

		m.StartSessionCheck(context.Background())
		time.Sleep(50 * time.Millisecond)
		m.StopSessionCheck()

		if backend.verifications() != 0 {
			t.Errorf("expected no verification while signed out, got %d", backend.verifications())
		}
	})

	t.Run("Stopping Mid Check Keeps Session", func(t *testing.T) {
		durable := storage.NewSessionScope()
		backend := &stallingBackend{started: make(chan struct{})}
		m := NewManager(Options{
			Backend:       backend,
			Durable:       durable,
			CheckInterval: 10 * time.Millisecond,
			Logger:        shared.DiscardLogger(),
		})
		r := &fakeRedirector{}
		m.SetRedirector(r)
		m.SetSession(ali, "tok1")

		m.StartSessionCheck(context.Background())
		select {
		case <-backend.started:
		case <-time.After(2 * time.Second):
			t.Fatal("session check never ran")
		}
		m.StopSessionCheck()

		if !m.IsUserAuthenticated() {
			t.Error("an interrupted check must not sign the user out")
		}
		var token string
		if found, _ := durable.Get(storage.KeyAuthToken, &token); !found || token != "tok1" {
			t.Errorf("stored token = %q, found %v", token, found)
		}
		if len(r.snapshot()) != 0 {
			t.Errorf("expected no redirects, got %+v", r.snapshot())
		}
	})

	t.Run("Cancelled Check Leaves Storage", func(t *testing.T) {
		durable := storage.NewSessionScope()
		durable.Set(storage.KeyAuthToken, "tok")
		durable.Set(storage.KeyCurrentUser, ali)
		m, _ := newManager(t, &fakeBackend{verify: api.AuthResult{Message: "context canceled"}}, durable)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if m.CheckAuthStatus(ctx) {
			t.Error("a cancelled check cannot report authenticated")
		}

		var token string
		if found, _ := durable.Get(storage.KeyAuthToken, &token); !found || token != "tok" {
			t.Errorf("stored token = %q, found %v", token, found)
		}
		if found, _ := durable.Get(storage.KeyCurrentUser, &models.User{}); !found {
			t.Error("stored user should be kept")
		}
	})

	t.Run("Restart And Stop Are Safe", func(t *testing.T) {
		m, _ := newManager(t, &fakeBackend{}, nil)
		m.StopSessionCheck()
		m.StartSessionCheck(context.Background())
		m.StartSessionCheck(context.Background())
		m.StopSessionCheck()
		m.StopSessionCheck()
	})
}

func TestManagerStorageChanges(t *testing.T) {
	openStore := func(t *testing.T, dir string) *storage.Store {
		t.Helper()
		s, err := storage.Open(shared.StorageConfig{Path: filepath.Join(dir, "oracle.db")}, shared.DiscardLogger())
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	}

	t.Run("Token Removed Elsewhere", func(t *testing.T) {
		dir := t.TempDir()
		mine, theirs := openStore(t, dir), openStore(t, dir)

		backend := &fakeBackend{verify: api.AuthResult{Success: true, User: ali}}
		m, r := newManager(t, backend, mine)
		m.SetSession(ali, "tok")
		mine.Changes()
		verifies := backend.verifications()

		theirs.Remove(storage.KeyAuthToken)
		events, _ := mine.Changes()
		for _, e := range events {
			m.HandleStorageChange(context.Background(), e)
		}

		if m.IsUserAuthenticated() {
			t.Error("expected session to be cleared")
		}
		if backend.verifications() != verifies {
			t.Error("removal must not trigger verification")
		}
		calls := r.snapshot()
		if len(calls) != 1 || calls[0].reason != ReasonSignedOutElsewhere {
			t.Errorf("expected signed out elsewhere redirect, got %+v", calls)
		}
	})

	t.Run("Token Changed Elsewhere", func(t *testing.T) {
		dir := t.TempDir()
		mine, theirs := openStore(t, dir), openStore(t, dir)

		backend := &fakeBackend{verify: api.AuthResult{Success: true, User: ali}}
		m, r := newManager(t, backend, mine)

		theirs.Set(storage.KeyAuthToken, "from-other-window")
		events, _ := mine.Changes()
		if len(events) != 1 {
			t.Fatalf("expected one event, got %+v", events)
		}
		m.HandleStorageChange(context.Background(), events[0])

		if backend.verifications() != 1 {
			t.Errorf("expected re-verification, got %d", backend.verifications())
		}
		if !m.IsUserAuthenticated() {
			t.Error("expected session to be restored")
		}
		if calls := r.snapshot(); len(calls) != 1 || !calls[0].landing {
			t.Errorf("expected landing redirect, got %+v", calls)
		}
	})

	t.Run("Other Keys Are Ignored", func(t *testing.T) {
		backend := &fakeBackend{}
		m, r := newManager(t, backend, nil)
		m.HandleStorageChange(context.Background(), storage.ChangeEvent{Key: storage.KeyTasks})

		if backend.verifications() != 0 || len(r.snapshot()) != 0 {
			t.Error("unrelated keys must be ignored")
		}
	})

	t.Run("Reconcile Stops When Channel Closes", func(t *testing.T) {
		m, _ := newManager(t, &fakeBackend{}, nil)
		events := make(chan storage.ChangeEvent)
		done := make(chan struct{})
		go func() {
			m.Reconcile(context.Background(), events)
			close(done)
		}()
		close(events)

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Reconcile did not return")
		}
	})
}

func TestManagerInteractive(t *testing.T) {
	t.Run("Login Stores Remember Me", func(t *testing.T) {
		durable := storage.NewSessionScope()
		m, _ := newManager(t, &fakeBackend{login: api.AuthResult{Success: true, User: ali, Token: "tok"}}, durable)

		res := m.Login(context.Background(), models.Credentials{Email: "ali@oracle.test", Password: "x", Remember: true})
		if !res.Success {
			t.Fatalf("unexpected failure %+v", res)
		}

		var remember bool
		if found, _ := durable.Get(storage.KeyRememberMe, &remember); !found || !remember {
			t.Error("expected remember_me to be stored")
		}
		if !m.IsUserAuthenticated() {
			t.Error("expected authenticated")
		}
	})

	t.Run("Login Failure", func(t *testing.T) {
		m, _ := newManager(t, &fakeBackend{login: api.AuthResult{}}, nil)

		if res := m.Login(context.Background(), models.Credentials{Email: "a@b.co", Password: "x"}); res.Success || res.Message != "Login failed" {
			t.Errorf("unexpected result %+v", res)
		}
		if res := m.Login(context.Background(), models.Credentials{}); res.Success {
			t.Error("missing credentials must fail")
		}
	})

	t.Run("Reply Without User Is Verified", func(t *testing.T) {
		backend := &fakeBackend{
			login:  api.AuthResult{Success: true, Token: "tok"},
			verify: api.AuthResult{Success: true, User: ali},
		}
		m, _ := newManager(t, backend, nil)

		if res := m.Login(context.Background(), models.Credentials{Email: "ali@oracle.test", Password: "x"}); !res.Success {
			t.Fatalf("unexpected failure %+v", res)
		}
		if !m.IsUserAuthenticated() || m.CurrentUser().ID != ali.ID {
			t.Errorf("expected the verified user, got %+v", m.CurrentUser())
		}
	})

	t.Run("Reply Without User Fails", func(t *testing.T) {
		durable := storage.NewSessionScope()
		backend := &fakeBackend{login: api.AuthResult{Success: true, Token: "tok"}, verify: api.AuthResult{Success: true}}
		m, _ := newManager(t, backend, durable)

		var states []bool
		m.OnAuthChange(func(authenticated bool, _ *models.User) { states = append(states, authenticated) })

		if res := m.Register(context.Background(), models.Registration{Name: "Ali", Email: "ali@oracle.test", Password: "Str0ng!pass"}); res.Success {
			t.Fatalf("expected failure, got %+v", res)
		}
		if m.IsUserAuthenticated() {
			t.Error("no user means no session")
		}
		if found, _ := durable.Get(storage.KeyCurrentUser, &models.User{}); found {
			t.Error("current_user must not be persisted")
		}
		for _, authenticated := range states {
			if authenticated {
				t.Error("observers must not see an authenticated state")
			}
		}
	})

	t.Run("Demo Session Flag", func(t *testing.T) {
		m, _ := newManager(t, &fakeBackend{login: api.AuthResult{Success: true, User: ali, Token: "demo"}}, nil)

		var demoDuringNotify bool
		m.OnAuthChange(func(bool, *models.User) { demoDuringNotify = m.IsDemoSession() })

		if res := m.DemoLogin(context.Background()); !res.Success {
			t.Fatalf("unexpected failure %+v", res)
		}
		if !m.IsDemoSession() || !demoDuringNotify {
			t.Error("expected demo session flag")
		}

		m.ClearSession()
		if m.IsDemoSession() {
			t.Error("clearing the session must drop the demo flag")
		}
	})

	t.Run("Logout", func(t *testing.T) {
		backend := &fakeBackend{}
		m, r := newManager(t, backend, nil)
		m.SetSession(ali, "tok")

		m.Logout(context.Background())
		if backend.logoutCalls != 1 || m.IsUserAuthenticated() {
			t.Error("expected server logout and cleared session")
		}
		if calls := r.snapshot(); len(calls) != 1 || calls[0].reason != ReasonSignedOut {
			t.Errorf("expected signed out redirect, got %+v", calls)
		}
	})

	t.Run("RefreshToken Failure Clears Session", func(t *testing.T) {
		m, _ := newManager(t, &fakeBackend{}, nil)
		m.SetSession(ali, "tok")

		if m.RefreshToken(context.Background()) {
			t.Error("expected refresh failure")
		}
		if m.IsUserAuthenticated() {
			t.Error("expected session to be cleared")
		}
	})

	t.Run("UpdateProfile Merges User", func(t *testing.T) {
		m, _ := newManager(t, &fakeBackend{}, nil)
		m.SetSession(ali, "tok")

		if res := m.UpdateProfile(context.Background(), models.ProfileUpdate{Name: "Muhammad"}); !res.Success {
			t.Fatalf("unexpected failure %+v", res)
		}
		user := m.CurrentUser()
		if user.Name != "Muhammad" || user.Email != "ali@oracle.test" {
			t.Errorf("expected merged user, got %+v", user)
		}
	})

	t.Run("UpdateProfile Failure", func(t *testing.T) {
		m, _ := newManager(t, &fakeBackend{profileErr: &api.Error{Message: "Email taken", StatusCode: 409}}, nil)
		if res := m.UpdateProfile(context.Background(), models.ProfileUpdate{}); res.Success || res.Message != "Email taken" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("Password Reset", func(t *testing.T) {
		m, _ := newManager(t, &fakeBackend{}, nil)
		if res := m.RequestPasswordReset(context.Background(), "ali@oracle.test"); !res.Success || res.Message != "Reset link sent to your email" {
			t.Errorf("unexpected result %+v", res)
		}
		if res := m.RequestPasswordReset(context.Background(), "not-an-email"); res.Success {
			t.Error("invalid email must be rejected")
		}
		if res := m.ResetPassword(context.Background(), "t", "Jab&Cross1"); res.Message != "Password reset successfully" {
			t.Errorf("unexpected result %+v", res)
		}

		failing, _ := newManager(t, &fakeBackend{resetErr: errors.New("offline")}, nil)
		if res := failing.ResetPassword(context.Background(), "t", "p"); res.Success || res.Message != "Password reset failed" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("Guards", func(t *testing.T) {
		m, r := newManager(t, &fakeBackend{}, nil)

		ran := false
		if err := m.RequireAuth(context.Background(), func() { ran = true }); !errors.Is(err, shared.ErrAuthRequired) || ran {
			t.Errorf("expected ErrAuthRequired, got %v", err)
		}
		if !m.RequireGuest(context.Background(), func() { ran = true }) || !ran {
			t.Error("guest callback should run while signed out")
		}

		m.SetSession(ali, "tok")
		ran = false
		if err := m.RequireAuth(context.Background(), func() { ran = true }); err != nil || !ran {
			t.Error("auth callback should run while signed in")
		}
		if m.RequireGuest(context.Background(), func() {}) {
			t.Error("guest guard should refuse while signed in")
		}

		calls := r.snapshot()
		if len(calls) != 2 || calls[0].reason != ReasonAuthRequired || !calls[1].landing {
			t.Errorf("unexpected redirects %+v", calls)
		}
	})
}
