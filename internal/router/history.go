package router

import "time"

// DefaultHistoryLimit is the capacity of a [History] built with a non-positive limit.
const DefaultHistoryLimit = 50

// Entry is one visited route.
type Entry struct {
	Name Name
	At   time.Time
}

// History is a fixed-capacity ring of visited routes. The oldest entry is dropped when full.
//
// It is not safe for concurrent use; the [Router] guards it.
type History struct {
	buf  []Entry
	head int
	size int
}

// NewHistory creates a ring holding at most limit entries.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{buf: make([]Entry, limit)}
}

func (h *History) Cap() int { return len(h.buf) }

func (h *History) Len() int { return h.size }

// Push appends e, evicting the oldest entry when the ring is full.
func (h *History) Push(e Entry) {
	if h.size < len(h.buf) {
		h.buf[(h.head+h.size)%len(h.buf)] = e
		h.size++
		return
	}
	h.buf[h.head] = e
	h.head = (h.head + 1) % len(h.buf)
}

// Pop removes and returns the newest entry.
func (h *History) Pop() (Entry, bool) {
	if h.size == 0 {
		return Entry{}, false
	}
	e := h.at(h.size - 1)
	h.size--
	return e, true
}

// Last is the newest entry.
func (h *History) Last() (Entry, bool) {
	if h.size == 0 {
		return Entry{}, false
	}
	return h.at(h.size - 1), true
}

// Previous is the entry before the newest one.
func (h *History) Previous() (Entry, bool) {
	if h.size < 2 {
		return Entry{}, false
	}
	return h.at(h.size - 2), true
}

// Entries copies the ring oldest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, h.size)
	for i := range out {
		out[i] = h.at(i)
	}
	return out
}

func (h *History) at(i int) Entry {
	return h.buf[(h.head+i)%len(h.buf)]
}
