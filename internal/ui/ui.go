package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/oracle/internal/router"
	"github.com/desertthunder/oracle/internal/shared"
)

// Model is the root bubbletea model. It hosts the routed screens inside the [Shell] frame.
type Model struct {
	ctx     context.Context
	deps    *Deps
	nav     Navigator
	shell   *Shell
	screens map[router.Name]Screen
	width   int
	height  int
	help    help.Model
	keys    keyMap
	enter   key.Binding
}

// NewModel creates the TUI model. deps.Nav and deps.Toaster default to nav and shell.
func NewModel(ctx context.Context, deps *Deps, nav Navigator, shell *Shell, screens map[router.Name]Screen) *Model {
	if deps.Nav == nil {
		deps.Nav = nav
	}
	if deps.Toaster == nil {
		deps.Toaster = shell
	}
	return &Model{
		ctx:     ctx,
		deps:    deps,
		nav:     nav,
		shell:   shell,
		screens: screens,
		help:    help.New(),
		keys:    newKeyMap(),
		enter:   binding("enter", "back to dashboard"),
	}
}

// Run starts the TUI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// Init waits for shell changes and resolves the starting route.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForShell(), m.start())
}

func (m *Model) start() tea.Cmd {
	return func() tea.Msg {
		return navigatedMsg{err: m.nav.Start(m.ctx)}
	}
}

func (m *Model) waitForShell() tea.Cmd {
	changes := m.shell.Changes()
	return func() tea.Msg {
		select {
		case <-changes:
			return shellChangedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, m.broadcast(msg)

	case shellChangedMsg:
		frame := m.shell.Frame()
		cmds := []tea.Cmd{m.waitForShell(), tea.SetWindowTitle(frame.Title)}
		if len(frame.Toasts) > 0 {
			cmds = append(cmds, tea.Tick(ToastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{} }))
		}
		return m, tea.Batch(cmds...)

	case toastExpiredMsg:
		m.shell.Prune()
		return m, nil

	case navigatedMsg:
		if msg.err != nil && !errors.Is(msg.err, shared.ErrNavigationInProgress) {
			m.deps.logger().Debug("navigation did not complete", "route", msg.name, "error", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, m.broadcast(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.quit) {
		return tea.Quit
	}

	route, ok := m.nav.CurrentRoute()
	if !ok {
		return nil
	}
	screen := m.screens[route.Name]
	if c, ok := screen.(keyCapturer); ok && c.Captures(msg) {
		return screen.Update(msg)
	}

	authed := m.deps.Session != nil && m.deps.Session.IsUserAuthenticated()
	switch {
	case key.Matches(msg, m.keys.back):
		return goBack(m.ctx, m.nav)
	case authed && key.Matches(msg, m.keys.next):
		return m.cycle(route.Name, 1)
	case authed && key.Matches(msg, m.keys.prev):
		return m.cycle(route.Name, -1)
	case authed && key.Matches(msg, m.keys.logout):
		session := m.deps.Session
		return func() tea.Msg {
			session.Logout(m.ctx)
			return navigatedMsg{name: router.Login}
		}
	case route.Placeholder && key.Matches(msg, m.enter):
		return navigate(m.ctx, m.nav, router.Dashboard)
	}

	if screen == nil {
		return nil
	}
	return screen.Update(msg)
}

// cycle moves delta steps through the signed-in routes, wrapping around.
func (m *Model) cycle(from router.Name, delta int) tea.Cmd {
	routes := m.nav.AuthenticatedRoutes()
	if len(routes) == 0 {
		return nil
	}
	at := 0
	for i, r := range routes {
		if r.Name == from {
			at = i
			break
		}
	}
	next := routes[((at+delta)%len(routes)+len(routes))%len(routes)]
	return navigate(m.ctx, m.nav, next.Name)
}

// broadcast hands msg to every screen. Screens ignore what is not theirs.
func (m *Model) broadcast(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.screens))
	for _, name := range router.Names() {
		if s, ok := m.screens[name]; ok {
			cmds = append(cmds, s.Update(msg))
		}
	}
	return tea.Batch(cmds...)
}

// View renders the frame around the current screen.
func (m *Model) View() string {
	frame := m.shell.Frame()

	var b strings.Builder
	b.WriteString(m.header(frame))
	b.WriteString("\n\n")

	var helpKeys []key.Binding
	if frame.Visible {
		if frame.Route.Placeholder {
			b.WriteString(m.placeholder(frame.Route))
			helpKeys = append(helpKeys, m.enter)
		} else if screen, ok := m.screens[frame.Route.Name]; ok {
			b.WriteString(screen.View(m.width, m.height))
			helpKeys = append(helpKeys, screen.Help()...)
		}
	}

	if frame.Loading {
		b.WriteString("\n" + styles.accent.Render("Loading…"))
	}
	for _, t := range frame.Toasts {
		b.WriteString("\n" + styles.toast(t.Kind).Render(toastIcon(t.Kind)+" "+t.Message))
	}

	if m.deps.Session != nil && m.deps.Session.IsUserAuthenticated() {
		helpKeys = append(helpKeys, m.keys.next, m.keys.logout)
	}
	helpKeys = append(helpKeys, m.keys.ShortHelp()...)
	b.WriteString("\n\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) header(frame Frame) string {
	title := styles.accent.Bold(true).Render("🥊 " + router.AppTitle)
	if m.deps.Session == nil || !m.deps.Session.IsUserAuthenticated() {
		return title
	}

	tabs := make([]string, 0, len(m.nav.AuthenticatedRoutes()))
	for _, r := range m.nav.AuthenticatedRoutes() {
		label := router.FormatName(r.Name.String())
		if r.Name == frame.Highlight {
			tabs = append(tabs, styles.active.Render(label))
		} else {
			tabs = append(tabs, styles.help.Render(label))
		}
	}
	user := m.deps.Session.CurrentUser().DisplayName("User")
	return title + "  " + styles.help.Render(user) + "\n" + strings.Join(tabs, " ")
}

func (m *Model) placeholder(route router.Route) string {
	p, ok := route.View.(router.PlaceholderView)
	if !ok {
		p = router.PlaceholderView{Route: route.Name}
	}
	return styles.card.Render(styles.title.Render(p.Heading()) + "\n" + p.Message() + "\n\n" + styles.accent.Render("⏎ "+p.Action()))
}

func toastIcon(kind router.ToastKind) string {
	switch kind {
	case router.ToastSuccess:
		return "✓"
	case router.ToastError:
		return "✗"
	case router.ToastWarning:
		return "!"
	default:
		return "i"
	}
}
