package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/oracle/internal/formatter"
	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/router"
)

// recentLimit is the number of sessions listed on the dashboard.
const recentLimit = 5

// DashboardScreen shows the signed-in user's totals and latest sessions.
type DashboardScreen struct {
	deps *Deps

	mu      sync.Mutex
	user    *models.User
	stats   models.UserStats
	recent  []models.TrainingSession
	notice  string
	pending bool
	keys    struct{ refresh, chat, tasks key.Binding }
}

var _ router.Refresher = (*DashboardScreen)(nil)

// NewDashboardScreen creates the dashboard.
func NewDashboardScreen(deps *Deps) *DashboardScreen {
	s := &DashboardScreen{deps: deps}
	s.keys.refresh = binding("r", "refresh")
	s.keys.chat = binding("c", "ask a coach")
	s.keys.tasks = binding("t", "tasks")
	return s
}

// Render loads the stats and recent sessions. API failures leave zeroed figures and a notice.
func (s *DashboardScreen) Render(ctx context.Context) error {
	user := s.deps.Session.CurrentUser()

	var (
		stats  models.UserStats
		recent []models.TrainingSession
		notice string
	)
	if user != nil && user.ID != "" {
		if got, err := s.deps.API.UserStats(ctx, user.ID); err != nil {
			s.deps.logger().Warn("failed to load stats", "error", err)
			notice = "Training stats are unavailable right now."
		} else if got != nil {
			stats = *got
		}
		if got, err := s.deps.API.RecentSessions(ctx, user.ID, recentLimit); err != nil {
			s.deps.logger().Warn("failed to load recent sessions", "error", err)
			notice = "Training stats are unavailable right now."
		} else {
			recent = got
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user, s.stats, s.recent, s.notice = user, stats, recent, notice
	return nil
}

func (s *DashboardScreen) Refresh(ctx context.Context) error {
	return s.Render(ctx)
}

func (s *DashboardScreen) Help() []key.Binding {
	return []key.Binding{s.keys.refresh, s.keys.chat, s.keys.tasks}
}

func (s *DashboardScreen) Update(msg tea.Msg) tea.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg := msg.(type) {
	case refreshedMsg:
		if msg.screen == router.Dashboard {
			s.pending = false
		}
	case tea.KeyMsg:
		ctx := s.deps.context()
		switch {
		case key.Matches(msg, s.keys.refresh):
			if s.pending {
				return nil
			}
			s.pending = true
			return func() tea.Msg {
				return refreshedMsg{screen: router.Dashboard, err: s.Refresh(ctx)}
			}
		case key.Matches(msg, s.keys.chat):
			return navigate(ctx, s.deps.Nav, router.Chat)
		case key.Matches(msg, s.keys.tasks):
			return navigate(ctx, s.deps.Nav, router.Tasks)
		}
	}
	return nil
}

func (s *DashboardScreen) View(width, _ int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("Welcome back, %s!", s.user.DisplayName("Fighter"))) + "\n")
	if s.deps.Session.IsDemoSession() {
		b.WriteString(styles.warn.Render("Demo session: progress is not saved to an account.") + "\n")
	}
	b.WriteString("\n")

	cards := []string{
		card("Sessions", fmt.Sprint(s.stats.TotalSessions)),
		card("Training Time", formatter.FormatDuration(s.stats.TrainingTime)),
		card("Techniques", fmt.Sprint(s.stats.TechniquesLearned)),
		card("Streak", fmt.Sprintf("%d days", s.stats.CurrentStreak)),
	}
	if width > 0 && width < 60 {
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, cards...))
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	b.WriteString("\n\n")

	if s.notice != "" {
		b.WriteString(styles.warn.Render(s.notice) + "\n\n")
	}

	b.WriteString(styles.accent.Bold(true).Render("Recent Sessions") + "\n")
	if len(s.recent) == 0 {
		b.WriteString(styles.help.Render("No training sessions yet. Start your first session!") + "\n")
	}
	now := s.deps.now()
	for _, session := range s.recent {
		line := fmt.Sprintf("• %s · %s · %s",
			formatter.FormatTrainingType(session.Type),
			formatter.FormatDuration(session.Duration),
			formatter.FormatDate(session.StartedAt, now))
		if session.Score > 0 {
			skill := formatter.SkillLevel(session.Score)
			line += fmt.Sprintf(" · %.1f (%s)", session.Score, skill.Level)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func card(label, value string) string {
	return styles.card.Render(styles.help.Render(label) + "\n" + styles.ok.Render(value))
}
