package router

import (
	"context"
	"strings"
)

// AppTitle is appended to every window title.
const AppTitle = "Oracle Boxing AI"

// Name identifies a route.
type Name int

const (
	Login Name = iota + 1
	Register
	Dashboard
	Chat
	Tasks
	Progress
	Techniques
	VideoAnalysis
	Profile
	Settings
)

var routeNames = map[Name]string{
	Login:         "login",
	Register:      "register",
	Dashboard:     "dashboard",
	Chat:          "chat",
	Tasks:         "tasks",
	Progress:      "progress",
	Techniques:    "techniques",
	VideoAnalysis: "video-analysis",
	Profile:       "profile",
	Settings:      "settings",
}

// Names lists every route name in declaration order.
func Names() []Name {
	return []Name{Login, Register, Dashboard, Chat, Tasks, Progress, Techniques, VideoAnalysis, Profile, Settings}
}

func (n Name) String() string {
	if s, ok := routeNames[n]; ok {
		return s
	}
	return "unknown"
}

// Path is the location path of the route, e.g. "/video-analysis".
func (n Name) Path() string {
	return "/" + n.String()
}

// Parse maps a route key such as "video-analysis" to its [Name].
func Parse(raw string) (Name, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for n, s := range routeNames {
		if s == raw {
			return n, true
		}
	}
	return 0, false
}

// FormatName turns a route key into a display name: "video-analysis" becomes "Video Analysis".
func FormatName(raw string) string {
	words := strings.Split(raw, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// View is a renderable screen.
type View interface {
	Render(ctx context.Context) error
}

// Resetter is implemented by views that clear transient state before each render.
type Resetter interface {
	Reset()
}

// Refresher is implemented by views that can reload their data without a navigation.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Route is one entry of the route table.
type Route struct {
	Name         Name
	View         View
	RequiresAuth bool
	// GuestOnly routes send signed-in users to the landing route.
	GuestOnly   bool
	Title       string
	Placeholder bool
}

// Title builds a window title for a screen heading.
func Title(heading string) string {
	return heading + " - " + AppTitle
}

// DefaultRoutes builds the standard route table. Routes without a view in views become placeholders.
func DefaultRoutes(views map[Name]View) []Route {
	titles := map[Name]string{
		Login:     "Sign In",
		Register:  "Create Account",
		Chat:      "Training",
		Dashboard: "Dashboard",
		Tasks:     "Tasks",
	}

	routes := make([]Route, 0, len(routeNames))
	for _, n := range Names() {
		heading, ok := titles[n]
		if !ok {
			heading = FormatName(n.String())
		}
		view := views[n]
		routes = append(routes, Route{
			Name:         n,
			View:         view,
			RequiresAuth: n != Login && n != Register,
			GuestOnly:    n == Register,
			Title:        Title(heading),
			Placeholder:  view == nil,
		})
	}
	return routes
}

// PlaceholderView is shown for routes that have no screen yet.
type PlaceholderView struct {
	Route Name
}

func (p PlaceholderView) Render(context.Context) error { return nil }

func (p PlaceholderView) Heading() string { return "Coming Soon" }

func (p PlaceholderView) Message() string {
	return "The " + FormatName(p.Route.String()) + " feature is under development."
}

func (p PlaceholderView) Action() string { return "Back to Dashboard" }
