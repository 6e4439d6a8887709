package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/oracle/internal/auth"
	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/router"
	"github.com/desertthunder/oracle/internal/tasks"
)

// shellChangedMsg is sent after the router touched the [Shell].
type shellChangedMsg struct{}

// toastExpiredMsg asks the model to prune toasts.
type toastExpiredMsg struct{}

// navigatedMsg reports the end of a navigation started by the TUI.
type navigatedMsg struct {
	name router.Name
	err  error
}

// authResultMsg reports a login, register or demo attempt.
type authResultMsg struct {
	screen router.Name
	result auth.Result
}

// refreshedMsg is sent after a screen reloaded its data.
type refreshedMsg struct {
	screen router.Name
	err    error
}

// chatReplyMsg carries the coach's answer.
type chatReplyMsg struct {
	reply *models.ChatReply
	err   error
}

// syncProgressMsg is one update from a task push or pull.
type syncProgressMsg tasks.ProgressUpdate

// syncCompleteMsg ends a task push.
type syncCompleteMsg struct {
	result *tasks.SyncResult
	err    error
}

// pullCompleteMsg ends a task pull.
type pullCompleteMsg struct {
	changed int
	err     error
}

// navigate returns a command that moves to name.
func navigate(ctx context.Context, nav Navigator, name router.Name) tea.Cmd {
	return func() tea.Msg {
		return navigatedMsg{name: name, err: nav.Navigate(ctx, name)}
	}
}

func goBack(ctx context.Context, nav Navigator) tea.Cmd {
	return func() tea.Msg {
		return navigatedMsg{err: nav.GoBack(ctx)}
	}
}
