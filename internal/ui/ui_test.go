package ui

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/oracle/internal/api"
	"github.com/desertthunder/oracle/internal/auth"
	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/router"
	"github.com/desertthunder/oracle/internal/server"
	"github.com/desertthunder/oracle/internal/shared"
	"github.com/desertthunder/oracle/internal/storage"
	"github.com/desertthunder/oracle/internal/tasks"
	th "github.com/desertthunder/oracle/internal/testing"
)

var uiNow = time.Date(2025, 7, 28, 9, 0, 0, 0, time.UTC)

type harness struct {
	srv     *httptest.Server
	client  *api.Client
	manager *auth.Manager
	router  *router.Router
	shell   *Shell
	board   *tasks.Board
	screens map[router.Name]Screen
	model   *Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	dev := server.NewDevAPI(server.DevOptions{
		Logger:     shared.DiscardLogger(),
		BcryptCost: bcrypt.MinCost,
		Now:        func() time.Time { return uiNow },
	})
	srv := httptest.NewServer(server.NewDevRouter(dev, shared.DiscardLogger()))
	t.Cleanup(srv.Close)

	durable := storage.NewSessionScope()
	tokens := storage.NewTokenStore(durable)
	client := api.NewClient(api.Options{
		BaseURL:       srv.URL,
		Tokens:        tokens,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
		Logger:        shared.DiscardLogger(),
	})
	manager := auth.NewManager(auth.Options{
		Backend: client,
		Tokens:  tokens,
		Durable: durable,
		Logger:  shared.DiscardLogger(),
	})

	shell := NewShell(func() time.Time { return uiNow })
	board := tasks.NewBoard(storage.NewSessionScope(), shared.DiscardLogger(), tasks.WithClock(func() time.Time { return uiNow }))
	deps := &Deps{
		Ctx:     ctx,
		Session: manager,
		API:     client,
		Board:   board,
		Syncer:  tasks.NewSyncer(client, shared.DiscardLogger()),
		Toaster: shell,
		Logger:  shared.DiscardLogger(),
		Now:     func() time.Time { return uiNow },

		StaticCursor: true,
	}
	screens := NewScreens(deps)

	r, err := router.New(router.Options{
		Routes:   router.DefaultRoutes(Views(screens)),
		Auth:     manager,
		Shell:    shell,
		Location: router.NewMemoryLocation("/"),
		Logger:   shared.DiscardLogger(),
		Now:      func() time.Time { return uiNow },
	})
	if err != nil {
		t.Fatalf("router.New() error = %v", err)
	}
	manager.SetRedirector(r)

	h := &harness{srv: srv, client: client, manager: manager, router: r, shell: shell, board: board, screens: screens}
	h.model = NewModel(ctx, deps, r, shell, screens)
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return h
}

var namedKeys = map[string]tea.KeyType{
	"enter":  tea.KeyEnter,
	"esc":    tea.KeyEsc,
	"tab":    tea.KeyTab,
	"space":  tea.KeySpace,
	"right":  tea.KeyRight,
	"ctrl+d": tea.KeyCtrlD,
	"ctrl+e": tea.KeyCtrlE,
	"ctrl+g": tea.KeyCtrlG,
	"ctrl+n": tea.KeyCtrlN,
	"ctrl+o": tea.KeyCtrlO,
	"ctrl+t": tea.KeyCtrlT,
}

func keyMsg(k string) tea.KeyMsg {
	if t, ok := namedKeys[k]; ok {
		return tea.KeyMsg{Type: t}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// run executes cmd and feeds every message it produces back into the model.
func (h *harness) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			h.run(c)
		}
		return
	}
	if msg == nil {
		return
	}
	_, next := h.model.Update(msg)
	h.run(next)
}

func (h *harness) press(keys ...string) {
	for _, k := range keys {
		_, cmd := h.model.Update(keyMsg(k))
		h.run(cmd)
	}
}

func (h *harness) typeText(text string) {
	for _, r := range text {
		_, cmd := h.model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		h.run(cmd)
	}
}

func (h *harness) current(t *testing.T) router.Name {
	t.Helper()
	route, ok := h.router.CurrentRoute()
	if !ok {
		t.Fatal("no current route")
	}
	return route.Name
}

func (h *harness) hasToast(message string) bool {
	for _, toast := range h.shell.Frame().Toasts {
		if toast.Message == message {
			return true
		}
	}
	return false
}

func (h *harness) demo(t *testing.T) {
	t.Helper()
	h.press("ctrl+d")
	if got := h.current(t); got != router.Dashboard {
		t.Fatalf("route after demo = %s, want dashboard", got)
	}
}

func TestInputs(t *testing.T) {
	t.Run("Static Cursor Schedules No Timers", func(t *testing.T) {
		f := newForm(true, "Email")
		in, cmd := f.inputs[0].Update(keyMsg("a"))
		if cmd != nil {
			t.Error("typing into a static field should return no command")
		}
		if in.Value() != "a" {
			t.Errorf("Value() = %q", in.Value())
		}
	})

	t.Run("Blinking Cursor Schedules Timers", func(t *testing.T) {
		f := newForm(false, "Email")
		if _, cmd := f.inputs[0].Update(keyMsg("a")); cmd == nil {
			t.Error("a blinking field should schedule its next blink")
		}
	})

	t.Run("Typing Does Not Wait On Timers", func(t *testing.T) {
		h := newHarness(t)
		start := time.Now()
		h.typeText("ali@oracle.test")
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("typing took %v", elapsed)
		}
	})
}

func TestShell(t *testing.T) {
	t.Run("Toasts Expire", func(t *testing.T) {
		now := uiNow
		s := NewShell(func() time.Time { return now })
		s.Toast("one", router.ToastInfo)

		if got := len(s.Frame().Toasts); got != 1 {
			t.Fatalf("toasts = %d, want 1", got)
		}
		now = now.Add(ToastTTL)
		if len(s.Frame().Toasts) != 0 {
			t.Error("expired toast is still shown")
		}
		if !s.Prune() {
			t.Error("Prune() should report the dropped toast")
		}
		if s.Prune() {
			t.Error("second Prune() should have nothing to drop")
		}
	})

	t.Run("Keeps Newest Toasts", func(t *testing.T) {
		s := NewShell(func() time.Time { return uiNow })
		for _, m := range []string{"a", "b", "c", "d"} {
			s.Toast(m, router.ToastInfo)
		}
		toasts := s.Frame().Toasts
		if len(toasts) != maxToasts || toasts[0].Message != "b" {
			t.Errorf("toasts = %+v", toasts)
		}
	})

	t.Run("Hide Only Current Route", func(t *testing.T) {
		s := NewShell(nil)
		s.Show(router.Route{Name: router.Dashboard})
		s.Hide(router.Route{Name: router.Chat})
		if !s.Frame().Visible {
			t.Error("hiding another route should keep the current one visible")
		}
		s.Hide(router.Route{Name: router.Dashboard})
		if s.Frame().Visible {
			t.Error("current route should be hidden")
		}
	})

	t.Run("Loading Nests", func(t *testing.T) {
		s := NewShell(nil)
		s.SetLoading(true)
		s.SetLoading(true)
		s.SetLoading(false)
		if !s.Frame().Loading {
			t.Error("loading should stay on while a call is open")
		}
		s.SetLoading(false)
		s.SetLoading(false)
		if s.Frame().Loading {
			t.Error("loading should be off")
		}
	})

	t.Run("Changes Coalesce", func(t *testing.T) {
		s := NewShell(nil)
		s.SetTitle("x")
		s.Highlight(router.Chat)
		select {
		case <-s.Changes():
		default:
			t.Fatal("expected a change notification")
		}
		select {
		case <-s.Changes():
			t.Error("notifications should coalesce")
		default:
		}
		if s.Frame().Highlight != router.Chat || s.Frame().Title != "x" {
			t.Errorf("frame = %+v", s.Frame())
		}
	})
}

func TestLoginFlow(t *testing.T) {
	t.Run("Starts Signed Out", func(t *testing.T) {
		h := newHarness(t)
		if got := h.current(t); got != router.Login {
			t.Fatalf("start route = %s, want login", got)
		}
		if view := h.model.View(); !strings.Contains(view, "Sign In") {
			t.Errorf("view should show the sign in form:\n%s", view)
		}
	})

	t.Run("Empty Fields", func(t *testing.T) {
		h := newHarness(t)
		h.press("enter")
		if view := h.model.View(); !strings.Contains(view, "Please fill in all fields") {
			t.Errorf("missing validation error:\n%s", view)
		}
	})

	t.Run("Invalid Email", func(t *testing.T) {
		h := newHarness(t)
		h.typeText("rocky")
		h.press("tab")
		h.typeText("Adrian#1976")
		h.press("enter")
		if view := h.model.View(); !strings.Contains(view, "Please enter a valid email address") {
			t.Errorf("missing validation error:\n%s", view)
		}
	})

	t.Run("Wrong Password", func(t *testing.T) {
		h := newHarness(t)
		h.typeText("nobody@example.com")
		h.press("tab")
		h.typeText("Wrong#Pass1")
		h.press("enter")

		if got := h.current(t); got != router.Login {
			t.Errorf("route = %s, want login", got)
		}
		if !h.hasToast("Invalid email or password") {
			t.Errorf("toasts = %+v", h.shell.Frame().Toasts)
		}
		if view := h.model.View(); !strings.Contains(view, "Invalid email or password") {
			t.Errorf("error not shown:\n%s", view)
		}
	})

	t.Run("Success", func(t *testing.T) {
		h := newHarness(t)
		seed := api.NewClient(api.Options{BaseURL: h.srv.URL, Logger: shared.DiscardLogger()})
		if r := seed.Register(context.Background(), models.Registration{Name: "Rocky", Email: "rocky@example.com", Password: "Adrian#1976"}); !r.Success {
			t.Fatalf("Register() failed: %s", r.Message)
		}

		h.typeText("rocky@example.com")
		h.press("tab")
		h.typeText("Adrian#1976")
		h.press("enter")

		if got := h.current(t); got != router.Dashboard {
			t.Fatalf("route = %s, want dashboard", got)
		}
		if !h.hasToast("Login successful") {
			t.Errorf("toasts = %+v", h.shell.Frame().Toasts)
		}
		view := h.model.View()
		for _, want := range []string{"Welcome back, Rocky!", "No training sessions yet. Start your first session!", "Dashboard"} {
			if !strings.Contains(view, want) {
				t.Errorf("dashboard missing %q:\n%s", want, view)
			}
		}
	})

	t.Run("Register", func(t *testing.T) {
		h := newHarness(t)
		h.press("ctrl+g")
		if got := h.current(t); got != router.Register {
			t.Fatalf("route = %s, want register", got)
		}

		h.typeText("Rocky")
		h.press("tab")
		h.typeText("rocky@example.com")
		h.press("tab")
		h.typeText("abc")
		h.press("tab")
		h.typeText("abc")
		h.press("enter")
		if view := h.model.View(); !strings.Contains(view, "Please choose a stronger password") {
			t.Fatalf("weak password accepted:\n%s", view)
		}
	})

	t.Run("Logout", func(t *testing.T) {
		h := newHarness(t)
		h.demo(t)
		if !h.hasToast("Welcome to the demo") {
			t.Errorf("toasts = %+v", h.shell.Frame().Toasts)
		}

		h.press("ctrl+o")
		th.Eventually(t, 2*time.Second, func() bool {
			route, ok := h.router.CurrentRoute()
			return ok && route.Name == router.Login
		})
		if h.manager.IsUserAuthenticated() {
			t.Error("session should be cleared")
		}
	})
}

func TestNavigation(t *testing.T) {
	t.Run("Cycle Routes", func(t *testing.T) {
		h := newHarness(t)
		h.demo(t)
		h.press("ctrl+n")
		if got := h.current(t); got != router.Chat {
			t.Errorf("route = %s, want chat", got)
		}
		h.press("esc")
		if got := h.current(t); got != router.Dashboard {
			t.Errorf("route after back = %s, want dashboard", got)
		}
	})

	t.Run("Placeholder", func(t *testing.T) {
		h := newHarness(t)
		h.demo(t)
		if err := h.router.Navigate(context.Background(), router.Progress); err != nil {
			t.Fatalf("Navigate() error = %v", err)
		}
		view := h.model.View()
		for _, want := range []string{"Coming Soon", "The Progress feature is under development.", "Back to Dashboard"} {
			if !strings.Contains(view, want) {
				t.Errorf("placeholder missing %q:\n%s", want, view)
			}
		}
		h.press("enter")
		if got := h.current(t); got != router.Dashboard {
			t.Errorf("route = %s, want dashboard", got)
		}
	})
}

func TestChatScreen(t *testing.T) {
	h := newHarness(t)
	h.demo(t)
	h.press("c")
	if got := h.current(t); got != router.Chat {
		t.Fatalf("route = %s, want chat", got)
	}
	chat := h.screens[router.Chat].(*ChatScreen)

	t.Run("Greets", func(t *testing.T) {
		msgs := chat.Messages()
		if len(msgs) != 1 || !strings.Contains(msgs[0].Content, "I'm "+models.DefaultCoach) {
			t.Errorf("messages = %+v", msgs)
		}
	})

	t.Run("Send", func(t *testing.T) {
		h.typeText("How do I throw a better jab?")
		h.press("enter")

		msgs := chat.Messages()
		if len(msgs) != 3 {
			t.Fatalf("expected greeting, question and reply, got %d", len(msgs))
		}
		if msgs[1].Sender != models.SenderUser || msgs[2].Sender != models.SenderAI {
			t.Errorf("senders = %s, %s", msgs[1].Sender, msgs[2].Sender)
		}
		if !strings.Contains(msgs[2].Content, "stance") {
			t.Errorf("reply = %q", msgs[2].Content)
		}
		if view := h.model.View(); strings.Contains(view, "**") {
			t.Errorf("markdown should be rendered:\n%s", view)
		}
	})

	t.Run("Switch Coach", func(t *testing.T) {
		h.press("ctrl+t")
		next := models.DefaultCoaches[1]
		if chat.Coach() != next {
			t.Errorf("coach = %q, want %q", chat.Coach(), next)
		}
		if !h.hasToast("Switched to " + next) {
			t.Errorf("toasts = %+v", h.shell.Frame().Toasts)
		}
		msgs := chat.Messages()
		if last := msgs[len(msgs)-1]; last.Coach != next {
			t.Errorf("last message from %q, want greeting from %q", last.Coach, next)
		}
	})
}

func TestTasksScreen(t *testing.T) {
	h := newHarness(t)
	h.demo(t)
	h.press("t")
	if got := h.current(t); got != router.Tasks {
		t.Fatalf("route = %s, want tasks", got)
	}
	screen := h.screens[router.Tasks].(*TasksScreen)

	t.Run("Shows Samples", func(t *testing.T) {
		view := h.model.View()
		for _, want := range []string{"Total 3", "Master the Basic Jab"} {
			if !strings.Contains(view, want) {
				t.Errorf("view missing %q:\n%s", want, view)
			}
		}
	})

	t.Run("Cycle Status", func(t *testing.T) {
		h.press("s")
		if !h.hasToast("Task marked as completed") {
			t.Errorf("toasts = %+v", h.shell.Frame().Toasts)
		}
		task, _ := h.board.Task("task_1")
		if task.Status != models.StatusCompleted {
			t.Errorf("status = %s", task.Status)
		}
	})

	t.Run("Kanban", func(t *testing.T) {
		h.press("v")
		if screen.Mode() != TaskKanbanMode {
			t.Fatal("expected kanban mode")
		}
		view := h.model.View()
		for _, want := range []string{"Pending (2)", "Completed (1)", "Blocked (0)"} {
			if !strings.Contains(view, want) {
				t.Errorf("kanban missing %q:\n%s", want, view)
			}
		}
		h.press("v")
	})

	t.Run("Create", func(t *testing.T) {
		h.press("n")
		h.press("esc")
		if got := h.current(t); got != router.Tasks {
			t.Fatalf("esc should close the form, route = %s", got)
		}

		h.press("n")
		h.typeText("Heavy bag rounds")
		h.press("right", "ctrl+e")
		h.press("enter")

		if !h.hasToast("Task created successfully") {
			t.Errorf("toasts = %+v", h.shell.Frame().Toasts)
		}
		list := h.board.Tasks()
		if len(list) != 4 || list[0].Title != "Heavy bag rounds" {
			t.Fatalf("tasks = %+v", list)
		}
		if list[0].Priority != models.PriorityLow || list[0].Category != models.CategoryConditioning {
			t.Errorf("priority %s category %s", list[0].Priority, list[0].Category)
		}
	})

	t.Run("Create Requires Title", func(t *testing.T) {
		h.press("n", "enter")
		if len(h.board.Tasks()) != 4 {
			t.Error("a task without a title should not be saved")
		}
		h.press("esc")
	})

	t.Run("Bulk Delete", func(t *testing.T) {
		h.press("a", "d")
		if !h.hasToast(tasks.DeletedMessage(4)) {
			t.Errorf("toasts = %+v", h.shell.Frame().Toasts)
		}
		if len(h.board.Tasks()) != 0 {
			t.Errorf("tasks left = %d", len(h.board.Tasks()))
		}
		h.press("l")
		if len(h.board.Tasks()) != 3 || !h.hasToast("Sample tasks loaded successfully") {
			t.Error("samples should be reloaded")
		}
	})

	t.Run("Push", func(t *testing.T) {
		h.press("p")
		if !h.hasToast("3 tasks synced") {
			t.Fatalf("toasts = %+v", h.shell.Frame().Toasts)
		}
		remote, err := h.client.Tasks(context.Background(), nil)
		if err != nil {
			t.Fatalf("Tasks() error = %v", err)
		}
		if len(remote) != 3 {
			t.Errorf("remote tasks = %d, want 3", len(remote))
		}
	})
}
