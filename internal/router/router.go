package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/oracle/internal/auth"
	"github.com/desertthunder/oracle/internal/shared"
)

const maxRedirects = 4

var _ auth.Redirector = (*Router)(nil)

// ToastKind is the severity of a toast.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastWarning ToastKind = "warning"
	ToastInfo    ToastKind = "info"
)

// Shell is the chrome around the views: window title, visibility, header highlight, toasts and the loading indicator.
//
// Calls must not block.
type Shell interface {
	SetTitle(title string)
	Show(route Route)
	Hide(route Route)
	Highlight(name Name)
	Toast(message string, kind ToastKind)
	SetLoading(loading bool)
}

// AuthChecker reports whether a user is signed in. [*auth.Manager] implements it.
type AuthChecker interface {
	IsUserAuthenticated() bool
}

// RenderError is returned when a view fails to render. The current route is left unchanged.
type RenderError struct {
	Route Name
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Route, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Is(target error) bool { return target == shared.ErrRenderFailed }

// Options configures a [Router].
type Options struct {
	Routes       []Route
	Auth         AuthChecker
	Shell        Shell
	Location     Location
	HistoryLimit int
	// Default is used for "/" and by [Router.GoBack] with no history. Defaults to [Login].
	Default Name
	// Landing receives unknown routes and signed-in guests. Defaults to [Dashboard].
	Landing Name
	Logger  *log.Logger
	Now     func() time.Time
}

// Router owns the current route.
type Router struct {
	routes   map[Name]Route
	order    []Name
	auth     AuthChecker
	shell    Shell
	location Location
	logger   *log.Logger
	now      func() time.Time

	navigating atomic.Bool

	mu           sync.RWMutex
	current      *Route
	history      *History
	defaultRoute Name
	landing      Name
}

// New validates the route table and creates a [Router].
func New(opts Options) (*Router, error) {
	r := &Router{
		routes:       make(map[Name]Route, len(opts.Routes)),
		auth:         opts.Auth,
		shell:        opts.Shell,
		location:     opts.Location,
		logger:       opts.Logger,
		now:          opts.Now,
		history:      NewHistory(opts.HistoryLimit),
		defaultRoute: opts.Default,
		landing:      opts.Landing,
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	r.logger = shared.WithLogger(r.logger, "component", "router")
	if r.now == nil {
		r.now = time.Now
	}
	if r.shell == nil {
		r.shell = nopShell{}
	}
	if r.location == nil {
		r.location = NewMemoryLocation("/")
	}
	if r.defaultRoute == 0 {
		r.defaultRoute = Login
	}
	if r.landing == 0 {
		r.landing = Dashboard
	}

	for _, route := range opts.Routes {
		if _, ok := routeNames[route.Name]; !ok {
			return nil, fmt.Errorf("%w: unknown route name %d", shared.ErrInvalidRouteTable, route.Name)
		}
		if _, dup := r.routes[route.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate route %s", shared.ErrInvalidRouteTable, route.Name)
		}
		if route.View == nil {
			if !route.Placeholder {
				return nil, fmt.Errorf("%w: route %s has no view", shared.ErrInvalidRouteTable, route.Name)
			}
			route.View = PlaceholderView{Route: route.Name}
		}
		if route.Title == "" {
			route.Title = Title(FormatName(route.Name.String()))
		}
		r.routes[route.Name] = route
		r.order = append(r.order, route.Name)
	}

	for _, n := range []Name{Login, r.defaultRoute, r.landing} {
		if _, ok := r.routes[n]; !ok {
			return nil, fmt.Errorf("%w: missing route %s", shared.ErrInvalidRouteTable, n)
		}
	}
	return r, nil
}

type navigation struct {
	push bool
	back bool
}

// Navigate goes to name, pushing a location entry.
func (r *Router) Navigate(ctx context.Context, name Name) error {
	return r.navigate(ctx, name, navigation{push: true})
}

// NavigateTo goes to the route with key raw. Unknown keys land on the landing route.
func (r *Router) NavigateTo(ctx context.Context, raw string) error {
	name, ok := Parse(raw)
	if !ok {
		r.logger.Warn("route not found", "route", raw, "err", shared.ErrRouteNotFound)
		name = r.Landing()
	}
	return r.navigate(ctx, name, navigation{push: true})
}

// GoBack returns to the route before the current one, or the default route when there is none.
func (r *Router) GoBack(ctx context.Context) error {
	r.mu.RLock()
	prev, ok := r.history.Previous()
	def := r.defaultRoute
	r.mu.RUnlock()

	if !ok {
		return r.navigate(ctx, def, navigation{push: true})
	}
	return r.navigate(ctx, prev.Name, navigation{push: true, back: true})
}

// Replace navigates to name and overwrites the current location entry instead of pushing one.
func (r *Router) Replace(ctx context.Context, name Name) error {
	if err := r.navigate(ctx, name, navigation{}); err != nil {
		return err
	}
	if current, ok := r.CurrentRoute(); ok {
		r.location.Replace(current.Name.Path())
	}
	return nil
}

// Start navigates to the route named by the location path, then its hash, then the default route.
func (r *Router) Start(ctx context.Context) error {
	name, ok := RouteFromPath(r.location.Path(), r.DefaultRoute())
	if !ok {
		name, ok = RouteFromHash(r.location.Hash())
	}
	if !ok {
		name = r.DefaultRoute()
	}
	return r.navigate(ctx, name, navigation{})
}

// Listen applies location events until ctx is done or events is closed.
func (r *Router) Listen(ctx context.Context, events <-chan LocationEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.handleLocation(ctx, ev)
		}
	}
}

func (r *Router) handleLocation(ctx context.Context, ev LocationEvent) {
	var (
		name Name
		ok   bool
	)
	switch ev.Kind {
	case PopState:
		name, ok = RouteFromPath(ev.Path, r.DefaultRoute())
		if !ok {
			r.logger.Warn("route not found", "path", ev.Path, "err", shared.ErrRouteNotFound)
			name, ok = r.Landing(), true
		}
	case HashChange:
		name, ok = RouteFromHash(ev.Hash)
		if current, has := r.CurrentRoute(); ok && has && current.Name == name {
			return
		}
	}
	if !ok {
		return
	}
	if err := r.navigate(ctx, name, navigation{}); err != nil {
		r.logger.Debug("location navigation failed", "event", ev.Kind, "route", name, "err", err)
	}
}

// resolve applies the guards and returns the route that will actually be rendered.
func (r *Router) resolve(name Name) (Route, error) {
	landing := r.Landing()
	for range maxRedirects {
		route, ok := r.routes[name]
		if !ok {
			if name == landing {
				return Route{}, fmt.Errorf("%w: %s", shared.ErrRouteNotFound, name)
			}
			r.logger.Warn("route not found", "route", name, "err", shared.ErrRouteNotFound)
			name = landing
			continue
		}

		authenticated := r.auth != nil && r.auth.IsUserAuthenticated()
		switch {
		case route.RequiresAuth && !authenticated:
			r.logger.Debug("auth required", "route", name)
			name = Login
		case route.GuestOnly && authenticated:
			r.logger.Debug("guest route while signed in", "route", name)
			name = landing
		default:
			return route, nil
		}
	}
	return Route{}, fmt.Errorf("%w: too many redirects from %s", shared.ErrRouteNotFound, name)
}

func (r *Router) navigate(ctx context.Context, name Name, nav navigation) error {
	route, err := r.resolve(name)
	if err != nil {
		r.logger.Error("navigation failed", "route", name, "err", err)
		return err
	}

	if !r.navigating.CompareAndSwap(false, true) {
		r.logger.Warn("Navigation already in progress", "route", route.Name)
		return shared.ErrNavigationInProgress
	}
	defer r.navigating.Store(false)

	r.shell.SetLoading(true)
	defer r.shell.SetLoading(false)

	if err := r.render(ctx, route); err != nil {
		r.logger.Error("navigation failed", "route", route.Name, "err", err)
		r.shell.Toast("Navigation failed", ToastError)
		return err
	}

	r.commit(route, nav)
	r.logger.Debug("navigated", "route", route.Name)
	return nil
}

func (r *Router) render(ctx context.Context, route Route) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &RenderError{Route: route.Name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	if resetter, ok := route.View.(Resetter); ok {
		resetter.Reset()
	}
	if err := route.View.Render(ctx); err != nil {
		var renderErr *RenderError
		if errors.As(err, &renderErr) {
			return err
		}
		return &RenderError{Route: route.Name, Err: err}
	}
	return nil
}

func (r *Router) commit(route Route, nav navigation) {
	r.mu.Lock()
	prev := r.current
	r.current = &route
	if nav.back {
		r.history.Pop()
		r.history.Pop()
	}
	r.history.Push(Entry{Name: route.Name, At: r.now()})
	r.mu.Unlock()

	r.shell.SetTitle(route.Title)
	if prev != nil && prev.Name != route.Name {
		r.shell.Hide(*prev)
	}
	r.shell.Show(route)

	if nav.push && r.location.Path() != route.Name.Path() {
		r.location.Push(route.Name.Path())
	}
	r.shell.Highlight(route.Name)
}

// Navigating reports whether a navigation is in flight.
func (r *Router) Navigating() bool { return r.navigating.Load() }

// CurrentRoute is the committed route, if any.
func (r *Router) CurrentRoute() (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return Route{}, false
	}
	return *r.current, true
}

// PreviousRoute is the route visited before the current one.
func (r *Router) PreviousRoute() (Name, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.history.Previous()
	return e.Name, ok
}

// History copies the visited routes oldest first.
func (r *Router) History() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.history.Entries()
}

func (r *Router) HasRoute(name Name) bool {
	_, ok := r.routes[name]
	return ok
}

// Lookup finds a route by key.
func (r *Router) Lookup(raw string) (Route, bool) {
	name, ok := Parse(raw)
	if !ok {
		return Route{}, false
	}
	return r.Route(name)
}

func (r *Router) Route(name Name) (Route, bool) {
	route, ok := r.routes[name]
	return route, ok
}

// Routes lists the table in registration order.
func (r *Router) Routes() []Route {
	return r.filter(func(Route) bool { return true })
}

func (r *Router) AuthenticatedRoutes() []Route {
	return r.filter(func(route Route) bool { return route.RequiresAuth })
}

func (r *Router) GuestRoutes() []Route {
	return r.filter(func(route Route) bool { return !route.RequiresAuth })
}

func (r *Router) filter(keep func(Route) bool) []Route {
	var out []Route
	for _, n := range r.order {
		if route := r.routes[n]; keep(route) {
			out = append(out, route)
		}
	}
	return out
}

// SetDefaultRoute changes the default route. Names outside the table are ignored.
func (r *Router) SetDefaultRoute(name Name) bool {
	if !r.HasRoute(name) {
		return false
	}
	r.mu.Lock()
	r.defaultRoute = name
	r.mu.Unlock()
	return true
}

func (r *Router) DefaultRoute() Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultRoute
}

func (r *Router) Landing() Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.landing
}

// ToLogin sends the user to the sign-in screen with a notice. It waits for an in-flight navigation to finish.
func (r *Router) ToLogin(ctx context.Context, reason auth.Reason) {
	if msg := reason.Message(); msg != "" {
		kind := ToastInfo
		if reason == auth.ReasonExpired || reason == auth.ReasonSignedOutElsewhere {
			kind = ToastWarning
		}
		r.shell.Toast(msg, kind)
	}
	r.navigateWhenIdle(ctx, Login)
}

// ToLanding sends a signed-in user to the landing route.
func (r *Router) ToLanding(ctx context.Context) {
	r.navigateWhenIdle(ctx, r.Landing())
}

const (
	idlePoll    = 10 * time.Millisecond
	idleTimeout = 2 * time.Second
)

func (r *Router) navigateWhenIdle(ctx context.Context, name Name) {
	deadline := time.NewTimer(idleTimeout)
	defer deadline.Stop()
	for {
		err := r.Navigate(ctx, name)
		if !errors.Is(err, shared.ErrNavigationInProgress) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			r.logger.Warn("gave up waiting for navigation", "route", name)
			return
		case <-time.After(idlePoll):
		}
	}
}

type nopShell struct{}

func (nopShell) SetTitle(string)         {}
func (nopShell) Show(Route)              {}
func (nopShell) Hide(Route)              {}
func (nopShell) Highlight(Name)          {}
func (nopShell) Toast(string, ToastKind) {}
func (nopShell) SetLoading(bool)         {}
