package ui

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/oracle/internal/auth"
	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/router"
	"github.com/desertthunder/oracle/internal/shared"
)

const (
	loginEmail = iota
	loginPassword
)

// LoginScreen is the sign in form.
type LoginScreen struct {
	deps *Deps

	mu       sync.Mutex
	form     form
	remember bool
	pending  bool
	err      string
	keys     struct{ submit, remember, demo, register key.Binding }
}

// NewLoginScreen creates the sign in form.
func NewLoginScreen(deps *Deps) *LoginScreen {
	s := &LoginScreen{deps: deps, form: newForm(deps.StaticCursor, "Email", "Password")}
	s.form.masked(loginPassword)
	s.keys.submit = binding("enter", "sign in")
	s.keys.remember = binding("ctrl+r", "remember me")
	s.keys.demo = binding("ctrl+d", "try demo")
	s.keys.register = binding("ctrl+g", "create account")
	return s
}

// Reset clears the password and any error. The email is kept.
func (s *LoginScreen) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.reset(loginEmail)
	s.pending = false
	s.err = ""
}

func (s *LoginScreen) Render(context.Context) error { return nil }

func (s *LoginScreen) Help() []key.Binding {
	return []key.Binding{s.keys.submit, s.keys.remember, s.keys.demo, s.keys.register}
}

func (s *LoginScreen) Update(msg tea.Msg) tea.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg := msg.(type) {
	case authResultMsg:
		if msg.screen != router.Login {
			return nil
		}
		s.pending = false
		if !msg.result.Success {
			s.err = msg.result.Message
		}
		return nil

	case tea.KeyMsg:
		if s.pending {
			return nil
		}
		switch {
		case key.Matches(msg, s.keys.submit):
			return s.submit()
		case key.Matches(msg, s.keys.remember):
			s.remember = !s.remember
			return nil
		case key.Matches(msg, s.keys.demo):
			return s.demo()
		case key.Matches(msg, s.keys.register):
			return navigate(s.deps.context(), s.deps.Nav, router.Register)
		}
		s.err = ""
		return s.form.update(msg)
	}
	return nil
}

// submit must be called with s.mu held.
func (s *LoginScreen) submit() tea.Cmd {
	creds := models.Credentials{Email: s.form.value(loginEmail), Password: s.form.raw(loginPassword), Remember: s.remember}
	switch {
	case creds.Email == "" || creds.Password == "":
		s.err = "Please fill in all fields"
		return nil
	case !shared.ValidateEmail(creds.Email):
		s.err = "Please enter a valid email address"
		return nil
	}

	s.pending = true
	s.err = ""
	deps := s.deps
	return func() tea.Msg {
		ctx := deps.context()
		result := deps.Session.Login(ctx, creds)
		finishAuth(ctx, deps, result, "Login successful")
		return authResultMsg{screen: router.Login, result: result}
	}
}

func (s *LoginScreen) demo() tea.Cmd {
	s.pending = true
	s.err = ""
	deps := s.deps
	return func() tea.Msg {
		ctx := deps.context()
		result := deps.Session.DemoLogin(ctx)
		finishAuth(ctx, deps, result, "Welcome to the demo")
		return authResultMsg{screen: router.Login, result: result}
	}
}

// finishAuth toasts the outcome of a sign in and moves to the dashboard on success.
func finishAuth(ctx context.Context, deps *Deps, result auth.Result, success string) {
	if !result.Success {
		deps.toast(result.Message, router.ToastError)
		return
	}
	deps.toast(success, router.ToastSuccess)
	if err := deps.Nav.Navigate(ctx, router.Dashboard); err != nil {
		deps.logger().Warn("navigation after sign in failed", "error", err)
	}
}

func (s *LoginScreen) View(_, _ int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := styles.title.Render("Sign In") + "\n" +
		styles.help.Render("Welcome back, fighter. Sign in to continue your training.") + "\n\n" +
		s.form.view()

	check := "[ ]"
	if s.remember {
		check = "[x]"
	}
	out += check + " Remember me\n"

	switch {
	case s.pending:
		out += "\n" + styles.accent.Render("Signing in…")
	case s.err != "":
		out += "\n" + styles.err.Render(s.err)
	}
	return out
}
