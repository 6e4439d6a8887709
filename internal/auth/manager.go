package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/oracle/internal/api"
	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/shared"
	"github.com/desertthunder/oracle/internal/storage"
)

// DefaultCheckInterval is how often the session is re-verified.
const DefaultCheckInterval = 5 * time.Minute

// Backend is the subset of the API the manager calls. [*api.Client] implements it.
type Backend interface {
	VerifyToken(ctx context.Context) api.AuthResult
	Login(ctx context.Context, credentials models.Credentials) api.AuthResult
	Register(ctx context.Context, registration models.Registration) api.AuthResult
	DemoLogin(ctx context.Context) api.AuthResult
	Logout(ctx context.Context) api.AuthResult
	RefreshToken(ctx context.Context) api.AuthResult
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

// Reason explains why a session ended or was refused.
type Reason int

const (
	ReasonExpired Reason = iota + 1
	ReasonSignedOutElsewhere
	ReasonSignedOut
	ReasonAuthRequired
)

// Message is the notice shown to the user.
func (r Reason) Message() string {
	switch r {
	case ReasonExpired:
		return "Session expired. Please sign in again."
	case ReasonSignedOutElsewhere:
		return "You were signed out in another window."
	case ReasonSignedOut:
		return "You have been signed out"
	case ReasonAuthRequired:
		return "Please sign in to continue"
	default:
		return ""
	}
}

func (r Reason) String() string {
	switch r {
	case ReasonExpired:
		return "expired"
	case ReasonSignedOutElsewhere:
		return "signed_out_elsewhere"
	case ReasonSignedOut:
		return "signed_out"
	case ReasonAuthRequired:
		return "auth_required"
	default:
		return "unknown"
	}
}

// Redirector moves the user after session changes.
type Redirector interface {
	ToLogin(ctx context.Context, reason Reason)
	ToLanding(ctx context.Context)
}

// Observer is called with the authentication state after every session change.
type Observer func(authenticated bool, user *models.User)

// Result is the outcome of an interactive operation.
type Result struct {
	Success bool
	Message string
}

// Options configures a [Manager].
type Options struct {
	Backend       Backend
	Tokens        api.TokenStore
	Durable       storage.Scope
	Session       storage.Scope
	CheckInterval time.Duration
	Logger        *log.Logger
}

type observerEntry struct {
	id int
	fn Observer
}

// Manager owns the session.
type Manager struct {
	backend  Backend
	tokens   api.TokenStore
	durable  storage.Scope
	session  storage.Scope
	interval time.Duration
	logger   *log.Logger

	mu            sync.RWMutex
	user          *models.User
	authenticated bool
	redirector    Redirector

	obsMu     sync.Mutex
	observers []observerEntry
	nextID    int

	checkMu     sync.Mutex
	checkCancel context.CancelFunc
	checkDone   chan struct{}
}

// NewManager creates a [Manager]. The session starts signed out; call [Manager.Init] to restore it.
func NewManager(opts Options) *Manager {
	m := &Manager{
		backend:  opts.Backend,
		tokens:   opts.Tokens,
		durable:  opts.Durable,
		session:  opts.Session,
		interval: opts.CheckInterval,
		logger:   opts.Logger,
	}
	if m.interval <= 0 {
		m.interval = DefaultCheckInterval
	}
	if m.logger == nil {
		m.logger = log.Default()
	}
	if m.session == nil {
		m.session = storage.NewSessionScope()
	}
	if m.durable == nil {
		m.durable = storage.NewSessionScope()
	}
	if m.tokens == nil {
		m.tokens = storage.NewTokenStore(m.durable)
	}
	m.logger = shared.WithLogger(m.logger, "component", "auth")
	return m
}

// SetRedirector installs the collaborator that handles lost sessions.
func (m *Manager) SetRedirector(r Redirector) {
	m.mu.Lock()
	m.redirector = r
	m.mu.Unlock()
}

// Init restores the persisted session and reports whether it is authenticated.
func (m *Manager) Init(ctx context.Context) bool {
	return m.CheckAuthStatus(ctx)
}

// CheckAuthStatus verifies the persisted token with the backend and sets or clears the session.
//
// A check interrupted by ctx reports false and leaves the session and storage as they were.
func (m *Manager) CheckAuthStatus(ctx context.Context) bool {
	token := m.tokens.Token()
	if token == "" {
		m.ClearSession()
		return false
	}

	result := m.backend.VerifyToken(ctx)
	if ctx.Err() != nil {
		m.logger.Debug("token verification cancelled", "error", ctx.Err())
		return false
	}
	if !result.Success {
		m.logger.Warn("token verification failed", "message", result.Message)
		m.ClearSession()
		return false
	}

	user := result.User
	if user == nil {
		user = m.storedUser()
	}
	if user == nil {
		m.logger.Warn("token verified without a user")
		m.ClearSession()
		return false
	}

	m.SetSession(user, token)
	return true
}

// SetSession stores user and token and notifies observers. An empty token leaves the stored token unchanged.
func (m *Manager) SetSession(user *models.User, token string) {
	m.mu.Lock()
	m.user = user
	m.authenticated = true
	m.mu.Unlock()

	if err := m.durable.Set(storage.KeyCurrentUser, user); err != nil {
		m.logger.Error("failed to persist user", "error", err)
	}
	if token != "" {
		if err := m.tokens.SetToken(token); err != nil {
			m.logger.Error("failed to persist token", "error", err)
		}
	}

	m.notify(true, user)
}

// ClearSession erases the user, the token and the demo flag and notifies observers.
func (m *Manager) ClearSession() {
	m.mu.Lock()
	m.user = nil
	m.authenticated = false
	m.mu.Unlock()

	if err := m.durable.Remove(storage.KeyCurrentUser); err != nil {
		m.logger.Error("failed to remove user", "error", err)
	}
	if err := m.tokens.ClearToken(); err != nil {
		m.logger.Error("failed to clear token", "error", err)
	}
	if err := m.session.Remove(storage.KeyDemoSession); err != nil {
		m.logger.Error("failed to clear demo flag", "error", err)
	}

	m.notify(false, nil)
}

// CurrentUser returns the signed-in user, falling back to the persisted snapshot.
func (m *Manager) CurrentUser() *models.User {
	m.mu.RLock()
	user := m.user
	m.mu.RUnlock()
	if user != nil {
		return user
	}
	return m.storedUser()
}

// IsUserAuthenticated reports whether a verified user is signed in.
func (m *Manager) IsUserAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticated && m.user != nil
}

// IsDemoSession reports whether the session came from [Manager.DemoLogin].
func (m *Manager) IsDemoSession() bool {
	var demo bool
	found, err := m.session.Get(storage.KeyDemoSession, &demo)
	return err == nil && found && demo
}

// OnAuthChange registers cb and returns a function that removes it.
func (m *Manager) OnAuthChange(cb Observer) (unsubscribe func()) {
	m.obsMu.Lock()
	m.nextID++
	id := m.nextID
	m.observers = append(m.observers, observerEntry{id: id, fn: cb})
	m.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.obsMu.Lock()
			defer m.obsMu.Unlock()
			for i, o := range m.observers {
				if o.id == id {
					m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// notify calls observers in registration order outside every lock.
func (m *Manager) notify(authenticated bool, user *models.User) {
	m.obsMu.Lock()
	observers := append([]observerEntry(nil), m.observers...)
	m.obsMu.Unlock()

	for _, o := range observers {
		m.callObserver(o.fn, authenticated, user)
	}
}

func (m *Manager) callObserver(fn Observer, authenticated bool, user *models.User) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("auth observer panicked", "panic", r)
		}
	}()
	fn(authenticated, user)
}

func (m *Manager) storedUser() *models.User {
	var user models.User
	found, err := m.durable.Get(storage.KeyCurrentUser, &user)
	if err != nil {
		m.logger.Warn("failed to read stored user", "error", err)
		return nil
	}
	if !found {
		return nil
	}
	return &user
}

func (m *Manager) redirectToLogin(ctx context.Context, reason Reason) {
	m.mu.RLock()
	r := m.redirector
	m.mu.RUnlock()
	if r != nil {
		r.ToLogin(ctx, reason)
	}
}

func (m *Manager) redirectToLanding(ctx context.Context) {
	m.mu.RLock()
	r := m.redirector
	m.mu.RUnlock()
	if r != nil {
		r.ToLanding(ctx)
	}
}

// StartSessionCheck re-verifies the session every check interval until [Manager.StopSessionCheck] or ctx cancellation.
// Calling it again restarts the loop.
func (m *Manager) StartSessionCheck(ctx context.Context) {
	m.StopSessionCheck()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.checkMu.Lock()
	m.checkCancel = cancel
	m.checkDone = done
	m.checkMu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sessionTick(ctx)
			}
		}
	}()
}

// StopSessionCheck stops the periodic check and waits for it to exit.
func (m *Manager) StopSessionCheck() {
	m.checkMu.Lock()
	cancel, done := m.checkCancel, m.checkDone
	m.checkCancel, m.checkDone = nil, nil
	m.checkMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (m *Manager) sessionTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("session check panicked", "panic", r)
		}
	}()

	if !m.IsUserAuthenticated() {
		return
	}
	if !m.CheckAuthStatus(ctx) && ctx.Err() == nil {
		m.logger.Info("session expired")
		m.redirectToLogin(ctx, ReasonExpired)
	}
}

// HandleStorageChange reacts to another process changing the stored token.
//
// A removed token signs this process out without asking the backend. A changed token is verified.
func (m *Manager) HandleStorageChange(ctx context.Context, e storage.ChangeEvent) {
	if e.Key != storage.KeyAuthToken {
		return
	}

	if r, ok := m.tokens.(interface{ Reload() }); ok {
		r.Reload()
	}

	if e.Removed() {
		m.logger.Info("signed out in another process")
		m.ClearSession()
		m.redirectToLogin(ctx, ReasonSignedOutElsewhere)
		return
	}

	wasAuthenticated := m.IsUserAuthenticated()
	if m.CheckAuthStatus(ctx) && !wasAuthenticated {
		m.logger.Info("signed in from another process")
		m.redirectToLanding(ctx)
	}
}

// Reconcile consumes events until ctx is cancelled or events is closed.
func (m *Manager) Reconcile(ctx context.Context, events <-chan storage.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			m.HandleStorageChange(ctx, e)
		}
	}
}

// Login signs in with credentials.
func (m *Manager) Login(ctx context.Context, credentials models.Credentials) Result {
	if err := credentials.Validate(); err != nil {
		return Result{Message: err.Error()}
	}

	result := m.backend.Login(ctx, credentials)
	if !result.Success {
		return Result{Message: orDefault(result.Message, "Login failed")}
	}

	if r := m.signIn(ctx, result, "Login failed"); !r.Success {
		return r
	}
	if credentials.Remember {
		if err := m.durable.Set(storage.KeyRememberMe, true); err != nil {
			m.logger.Warn("failed to store remember me", "error", err)
		}
	}
	return Result{Success: true}
}

// Register creates an account and signs in.
func (m *Manager) Register(ctx context.Context, registration models.Registration) Result {
	if err := registration.Validate(); err != nil {
		return Result{Message: err.Error()}
	}

	result := m.backend.Register(ctx, registration)
	if !result.Success {
		return Result{Message: orDefault(result.Message, "Registration failed")}
	}

	return m.signIn(ctx, result, "Registration failed")
}

// DemoLogin starts a demo session and marks it in session storage.
func (m *Manager) DemoLogin(ctx context.Context) Result {
	result := m.backend.DemoLogin(ctx)
	if !result.Success {
		return Result{Message: orDefault(result.Message, "Demo login failed")}
	}

	if err := m.session.Set(storage.KeyDemoSession, true); err != nil {
		m.logger.Warn("failed to mark demo session", "error", err)
	}
	return m.signIn(ctx, result, "Demo login failed")
}

// signIn starts a session from a successful auth reply. A reply without a user is resolved by verifying its
// token, and the sign in fails when that yields no user either.
func (m *Manager) signIn(ctx context.Context, result api.AuthResult, fallback string) Result {
	user := result.User
	if user == nil {
		verified := m.backend.VerifyToken(ctx)
		if !verified.Success || verified.User == nil {
			m.logger.Warn("sign in returned no user", "message", verified.Message)
			m.ClearSession()
			return Result{Message: fallback}
		}
		user = verified.User
	}

	m.SetSession(user, result.Token)
	return Result{Success: true}
}

// Logout tells the server, clears the session and sends the user to login.
func (m *Manager) Logout(ctx context.Context) {
	m.backend.Logout(ctx)
	m.ClearSession()
	m.redirectToLogin(ctx, ReasonSignedOut)
}

// RefreshToken renews the token. The session is cleared when renewal fails.
func (m *Manager) RefreshToken(ctx context.Context) bool {
	if m.backend.RefreshToken(ctx).Success {
		return true
	}
	m.ClearSession()
	return false
}

// UpdateProfile saves profile changes and merges the returned user into the session.
func (m *Manager) UpdateProfile(ctx context.Context, update models.ProfileUpdate) Result {
	updated, err := m.backend.UpdateProfile(ctx, update)
	if err != nil {
		return Result{Message: apiMessage(err, "Profile update failed")}
	}

	user := m.CurrentUser()
	merged := models.User{}
	if user != nil {
		merged = *user
	}
	if updated != nil {
		if updated.ID != "" {
			merged.ID = updated.ID
		}
		if updated.Name != "" {
			merged.Name = updated.Name
		}
		if updated.Email != "" {
			merged.Email = updated.Email
		}
	}

	m.SetSession(&merged, "")
	return Result{Success: true}
}

// RequestPasswordReset asks the server to email a reset link.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) Result {
	if !shared.ValidateEmail(email) {
		return Result{Message: "Please enter a valid email address"}
	}
	if err := m.backend.RequestPasswordReset(ctx, email); err != nil {
		return Result{Message: apiMessage(err, "Reset request failed")}
	}
	return Result{Success: true, Message: "Reset link sent to your email"}
}

// ResetPassword sets a new password with a reset token.
func (m *Manager) ResetPassword(ctx context.Context, token, password string) Result {
	if err := m.backend.ResetPassword(ctx, token, password); err != nil {
		return Result{Message: apiMessage(err, "Password reset failed")}
	}
	return Result{Success: true, Message: "Password reset successfully"}
}

// RequireAuth runs fn when signed in. Otherwise the user is sent to login and [shared.ErrAuthRequired] is returned.
func (m *Manager) RequireAuth(ctx context.Context, fn func()) error {
	if !m.IsUserAuthenticated() {
		m.redirectToLogin(ctx, ReasonAuthRequired)
		return shared.ErrAuthRequired
	}
	fn()
	return nil
}

// RequireGuest runs fn when signed out. Otherwise the user is sent to the landing route.
func (m *Manager) RequireGuest(ctx context.Context, fn func()) bool {
	if m.IsUserAuthenticated() {
		m.redirectToLanding(ctx)
		return false
	}
	fn()
	return true
}

func apiMessage(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
