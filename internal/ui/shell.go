package ui

import (
	"sync"
	"time"

	"github.com/desertthunder/oracle/internal/router"
)

// ToastTTL is how long a toast stays on screen.
const ToastTTL = 3 * time.Second

// maxToasts is the number of toasts shown at once. Older ones are dropped first.
const maxToasts = 3

// Toast is a transient notice.
type Toast struct {
	Message string
	Kind    router.ToastKind
	Expires time.Time
}

// Frame is a snapshot of the shell state.
type Frame struct {
	Title     string
	Route     router.Route
	Visible   bool
	Highlight router.Name
	Toasts    []Toast
	Loading   bool
}

// Shell implements [router.Shell] for the terminal.
//
// The router calls it from command goroutines; the bubbletea loop reads [Shell.Frame] and waits on
// [Shell.Changes]. No method blocks.
type Shell struct {
	mu        sync.Mutex
	title     string
	route     router.Route
	visible   bool
	highlight router.Name
	toasts    []Toast
	loading   int

	changes chan struct{}
	now     func() time.Time
}

var _ router.Shell = (*Shell)(nil)

// NewShell creates a [Shell]. A nil now means time.Now.
func NewShell(now func() time.Time) *Shell {
	if now == nil {
		now = time.Now
	}
	return &Shell{
		title:   router.AppTitle,
		changes: make(chan struct{}, 1),
		now:     now,
	}
}

// Changes receives a value after any state change. Changes coalesce.
func (s *Shell) Changes() <-chan struct{} {
	return s.changes
}

func (s *Shell) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *Shell) update(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.notify()
}

func (s *Shell) SetTitle(title string) {
	s.update(func() { s.title = title })
}

func (s *Shell) Show(route router.Route) {
	s.update(func() {
		s.route = route
		s.visible = true
	})
}

// Hide hides route when it is the one on screen.
func (s *Shell) Hide(route router.Route) {
	s.update(func() {
		if s.route.Name == route.Name {
			s.visible = false
		}
	})
}

func (s *Shell) Highlight(name router.Name) {
	s.update(func() { s.highlight = name })
}

func (s *Shell) Toast(message string, kind router.ToastKind) {
	s.update(func() {
		s.toasts = append(s.toasts, Toast{Message: message, Kind: kind, Expires: s.now().Add(ToastTTL)})
		if len(s.toasts) > maxToasts {
			s.toasts = s.toasts[len(s.toasts)-maxToasts:]
		}
	})
}

// SetLoading counts nested loading calls; the indicator shows while any are open.
func (s *Shell) SetLoading(loading bool) {
	s.update(func() {
		if loading {
			s.loading++
		} else if s.loading > 0 {
			s.loading--
		}
	})
}

// Prune drops expired toasts and reports whether any were dropped.
func (s *Shell) Prune() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	kept := s.toasts[:0]
	for _, t := range s.toasts {
		if now.Before(t.Expires) {
			kept = append(kept, t)
		}
	}
	dropped := len(kept) != len(s.toasts)
	s.toasts = kept
	return dropped
}

// Frame returns the current state without expired toasts.
func (s *Shell) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	f := Frame{
		Title:     s.title,
		Route:     s.route,
		Visible:   s.visible,
		Highlight: s.highlight,
		Loading:   s.loading > 0,
	}
	for _, t := range s.toasts {
		if now.Before(t.Expires) {
			f.Toasts = append(f.Toasts, t)
		}
	}
	return f
}
