package router

import (
	"strings"
	"sync"
)

// EventKind says what changed on a [Location].
type EventKind int

const (
	// PopState is a back or forward move.
	PopState EventKind = iota + 1
	// HashChange is a fragment change.
	HashChange
)

func (k EventKind) String() string {
	switch k {
	case PopState:
		return "popstate"
	case HashChange:
		return "hashchange"
	default:
		return "unknown"
	}
}

// LocationEvent is an externally triggered location change.
type LocationEvent struct {
	Kind EventKind
	Path string
	Hash string
}

// Location is the history the router mirrors navigations into.
type Location interface {
	Path() string
	Hash() string
	Push(path string)
	Replace(path string)
}

const locationEventBuffer = 16

// MemoryLocation is an in-process back/forward stack.
type MemoryLocation struct {
	mu      sync.Mutex
	entries []string
	index   int
	hash    string
	events  chan LocationEvent
}

// NewMemoryLocation creates a location positioned at initial ("/" when empty).
func NewMemoryLocation(initial string) *MemoryLocation {
	if initial == "" {
		initial = "/"
	}
	path, hash, _ := strings.Cut(initial, "#")
	if path == "" {
		path = "/"
	}
	return &MemoryLocation{
		entries: []string{path},
		hash:    hash,
		events:  make(chan LocationEvent, locationEventBuffer),
	}
}

// Events delivers back, forward and hash changes. Events are dropped when nobody reads them.
func (l *MemoryLocation) Events() <-chan LocationEvent { return l.events }

func (l *MemoryLocation) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[l.index]
}

func (l *MemoryLocation) Hash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hash
}

// Push adds path after the current entry and discards the forward stack.
func (l *MemoryLocation) Push(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries[:l.index+1], path)
	l.index = len(l.entries) - 1
	l.hash = ""
}

// Replace overwrites the current entry.
func (l *MemoryLocation) Replace(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.index] = path
	l.hash = ""
}

// Back moves one entry back and emits [PopState]. It reports false at the start of history.
func (l *MemoryLocation) Back() bool {
	return l.move(-1)
}

// Forward moves one entry forward and emits [PopState].
func (l *MemoryLocation) Forward() bool {
	return l.move(1)
}

// SetHash changes the fragment and emits [HashChange].
func (l *MemoryLocation) SetHash(hash string) {
	l.mu.Lock()
	l.hash = strings.TrimPrefix(hash, "#")
	ev := LocationEvent{Kind: HashChange, Path: l.entries[l.index], Hash: l.hash}
	l.mu.Unlock()
	l.emit(ev)
}

// Stack copies the entries and the current index.
func (l *MemoryLocation) Stack() ([]string, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...), l.index
}

func (l *MemoryLocation) move(delta int) bool {
	l.mu.Lock()
	next := l.index + delta
	if next < 0 || next >= len(l.entries) {
		l.mu.Unlock()
		return false
	}
	l.index = next
	l.hash = ""
	ev := LocationEvent{Kind: PopState, Path: l.entries[next]}
	l.mu.Unlock()
	l.emit(ev)
	return true
}

func (l *MemoryLocation) emit(ev LocationEvent) {
	select {
	case l.events <- ev:
	default:
	}
}

// RouteFromPath derives a route key from a location path. "/" maps to def.
func RouteFromPath(path string, def Name) (Name, bool) {
	if path == "" || path == "/" {
		return def, true
	}
	if !strings.HasPrefix(path, "/") {
		return 0, false
	}
	key := strings.TrimSuffix(strings.TrimPrefix(path, "/"), "/")
	if strings.Contains(key, "/") {
		return 0, false
	}
	return Parse(key)
}

// RouteFromHash derives a route key from a fragment such as "#tasks".
func RouteFromHash(hash string) (Name, bool) {
	hash = strings.TrimPrefix(strings.TrimPrefix(hash, "#"), "/")
	if hash == "" {
		return 0, false
	}
	return Parse(hash)
}
