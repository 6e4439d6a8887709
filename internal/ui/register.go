package ui

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/oracle/internal/auth"
	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/router"
	"github.com/desertthunder/oracle/internal/shared"
)

const (
	registerName = iota
	registerEmail
	registerPassword
	registerConfirm
)

// RegisterScreen is the account creation form with a live password strength meter.
type RegisterScreen struct {
	deps *Deps

	mu      sync.Mutex
	form    form
	pending bool
	err     string
	keys    struct{ submit, login key.Binding }
}

// NewRegisterScreen creates the account creation form.
func NewRegisterScreen(deps *Deps) *RegisterScreen {
	s := &RegisterScreen{deps: deps, form: newForm(deps.StaticCursor, "Full name", "Email", "Password", "Confirm password")}
	s.form.masked(registerPassword)
	s.form.masked(registerConfirm)
	s.keys.submit = binding("enter", "create account")
	s.keys.login = binding("ctrl+g", "sign in instead")
	return s
}

func (s *RegisterScreen) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.reset()
	s.pending = false
	s.err = ""
}

func (s *RegisterScreen) Render(context.Context) error { return nil }

func (s *RegisterScreen) Help() []key.Binding {
	return []key.Binding{s.keys.submit, s.keys.login}
}

func (s *RegisterScreen) Update(msg tea.Msg) tea.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg := msg.(type) {
	case authResultMsg:
		if msg.screen != router.Register {
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
		case key.Matches(msg, s.keys.login):
			return navigate(s.deps.context(), s.deps.Nav, router.Login)
		}
		s.err = ""
		return s.form.update(msg)
	}
	return nil
}

// validate returns the first problem with the form, or "".
func (s *RegisterScreen) validate() string {
	switch {
	case s.form.value(registerName) == "" || s.form.value(registerEmail) == "" || s.form.raw(registerPassword) == "":
		return "Please fill in all fields"
	case !shared.ValidateEmail(s.form.value(registerEmail)):
		return "Please enter a valid email address"
	case auth.CheckPasswordStrength(s.form.raw(registerPassword)).Level == auth.StrengthWeak:
		return "Please choose a stronger password"
	case s.form.raw(registerPassword) != s.form.raw(registerConfirm):
		return "Passwords do not match"
	}
	return ""
}

// submit must be called with s.mu held.
func (s *RegisterScreen) submit() tea.Cmd {
	if problem := s.validate(); problem != "" {
		s.err = problem
		return nil
	}

	reg := models.Registration{
		Name:     s.form.value(registerName),
		Email:    s.form.value(registerEmail),
		Password: s.form.raw(registerPassword),
	}
	s.pending = true
	s.err = ""
	deps := s.deps
	return func() tea.Msg {
		ctx := deps.context()
		result := deps.Session.Register(ctx, reg)
		finishAuth(ctx, deps, result, "Account created successfully")
		return authResultMsg{screen: router.Register, result: result}
	}
}

func (s *RegisterScreen) View(_, _ int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := styles.title.Render("Create Account") + "\n" +
		styles.help.Render("Start training with your AI coach.") + "\n\n" +
		s.form.view()

	if pw := s.form.raw(registerPassword); pw != "" {
		strength := auth.CheckPasswordStrength(pw)
		bar := strings.Repeat("■", strength.Score) + strings.Repeat("□", 5-strength.Score)
		out += "Strength: " + styles.strength(strength.Color).Render(bar+" "+strength.Level) + "\n"
		for _, tip := range strength.Feedback {
			out += styles.help.Render("  • "+tip) + "\n"
		}
	}

	switch {
	case s.pending:
		out += "\n" + styles.accent.Render("Creating your account…")
	case s.err != "":
		out += "\n" + styles.err.Render(s.err)
	}
	return out
}
