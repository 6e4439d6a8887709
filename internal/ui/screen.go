package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/oracle/internal/auth"
	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/router"
	"github.com/desertthunder/oracle/internal/tasks"
)

// Screen is a routed view the TUI can draw.
//
// Render is called by the router from a command goroutine while Update and View run on the bubbletea loop,
// so implementations guard their state.
type Screen interface {
	router.View
	Update(msg tea.Msg) tea.Cmd
	View(width, height int) string
	Help() []key.Binding
}

// keyCapturer is implemented by screens that want keys the model would otherwise handle, i.e. esc in a form.
type keyCapturer interface {
	Captures(msg tea.KeyMsg) bool
}

// Navigator is the part of [router.Router] the TUI drives.
type Navigator interface {
	Start(ctx context.Context) error
	Navigate(ctx context.Context, name router.Name) error
	GoBack(ctx context.Context) error
	CurrentRoute() (router.Route, bool)
	AuthenticatedRoutes() []router.Route
}

// Session is the part of [auth.Manager] the screens use.
type Session interface {
	Login(ctx context.Context, credentials models.Credentials) auth.Result
	Register(ctx context.Context, registration models.Registration) auth.Result
	DemoLogin(ctx context.Context) auth.Result
	Logout(ctx context.Context)
	CurrentUser() *models.User
	IsUserAuthenticated() bool
	IsDemoSession() bool
}

// CoachAPI is the part of [api.Client] the screens use.
type CoachAPI interface {
	UserStats(ctx context.Context, userID string) (*models.UserStats, error)
	RecentSessions(ctx context.Context, userID string, limit int) ([]models.TrainingSession, error)
	SendMessage(ctx context.Context, message, sessionID, coach string) (*models.ChatReply, error)
	ChatHistory(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error)
}

// Toaster shows toasts. [*Shell] implements it.
type Toaster interface {
	Toast(message string, kind router.ToastKind)
}

// Deps are shared by every screen. Nav may be set after the screens are built, since the router needs them first.
type Deps struct {
	Ctx     context.Context
	Session Session
	API     CoachAPI
	Board   *tasks.Board
	Syncer  *tasks.Syncer
	Nav     Navigator
	Toaster Toaster
	Logger  *log.Logger
	Now     func() time.Time

	StaticCursor bool
}

func (d *Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func (d *Deps) context() context.Context {
	if d.Ctx == nil {
		return context.Background()
	}
	return d.Ctx
}

func (d *Deps) logger() *log.Logger {
	if d.Logger == nil {
		return log.Default()
	}
	return d.Logger
}

func (d *Deps) toast(message string, kind router.ToastKind) {
	if d.Toaster != nil {
		d.Toaster.Toast(message, kind)
	}
}

// NewScreens builds every implemented screen. Routes without one are placeholders.
func NewScreens(deps *Deps) map[router.Name]Screen {
	return map[router.Name]Screen{
		router.Login:     NewLoginScreen(deps),
		router.Register:  NewRegisterScreen(deps),
		router.Dashboard: NewDashboardScreen(deps),
		router.Chat:      NewChatScreen(deps),
		router.Tasks:     NewTasksScreen(deps),
	}
}

// Views adapts screens to the router's route table.
func Views(screens map[router.Name]Screen) map[router.Name]router.View {
	views := make(map[router.Name]router.View, len(screens))
	for name, s := range screens {
		views[name] = s
	}
	return views
}

// form is a column of text inputs with one focused at a time.
type form struct {
	labels []string
	inputs []textinput.Model
	focus  int
}

// newInput creates a text field. A static cursor never schedules blink timers.
func newInput(static bool) textinput.Model {
	in := textinput.New()
	if static {
		in.Cursor.SetMode(cursor.CursorStatic)
	}
	return in
}

func newForm(static bool, labels ...string) form {
	f := form{labels: labels, inputs: make([]textinput.Model, len(labels))}
	for i, label := range labels {
		in := newInput(static)
		in.Prompt = ""
		in.Placeholder = label
		in.CharLimit = 128
		f.inputs[i] = in
	}
	f.inputs[0].Focus()
	return f
}

func (f *form) masked(i int) {
	f.inputs[i].EchoMode = textinput.EchoPassword
	f.inputs[i].EchoCharacter = '•'
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

func (f *form) raw(i int) string {
	return f.inputs[i].Value()
}

func (f *form) setFocus(i int) {
	n := len(f.inputs)
	f.focus = ((i % n) + n) % n
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

// reset clears every input except those at the indexes in keep and focuses the first field.
func (f *form) reset(keep ...int) {
	for i := range f.inputs {
		cleared := true
		for _, k := range keep {
			if k == i {
				cleared = false
			}
		}
		if cleared {
			f.inputs[i].SetValue("")
		}
	}
	f.setFocus(0)
}

// update moves focus on tab, shift+tab, up and down and feeds other keys to the focused input.
func (f *form) update(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "tab", "down":
			f.setFocus(f.focus + 1)
			return nil
		case "shift+tab", "up":
			f.setFocus(f.focus - 1)
			return nil
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *form) view() string {
	var b strings.Builder
	for i := range f.inputs {
		label := styles.help.Render(f.labels[i])
		if i == f.focus {
			label = styles.accent.Render("› " + f.labels[i])
		}
		b.WriteString(label + "\n  " + f.inputs[i].View() + "\n\n")
	}
	return b.String()
}
