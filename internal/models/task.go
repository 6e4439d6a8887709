package models

import (
	"fmt"
	"strings"
	"time"
)

// DueDateLayout is the calendar date format of [Task.DueDate].
const DueDateLayout = "2006-01-02"

// TaskStatus is the lifecycle state of a [Task].
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
)

// TaskStatuses lists statuses in cycling order.
var TaskStatuses = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted, StatusBlocked}

// Next returns the status that follows s in the cycle. Unknown statuses start the cycle over.
func (s TaskStatus) Next() TaskStatus {
	for i, status := range TaskStatuses {
		if status == s {
			return TaskStatuses[(i+1)%len(TaskStatuses)]
		}
	}
	return TaskStatuses[0]
}

// Label returns the status in human form, i.e. "in progress".
func (s TaskStatus) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	for _, status := range TaskStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// TaskPriority ranks a [Task].
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

// Weight orders priorities, higher first. Unknown priorities weigh zero.
func (p TaskPriority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	return p.Weight() > 0
}

// Task categories.
const (
	CategoryTechnique    = "technique"
	CategoryConditioning = "conditioning"
	CategorySparring     = "sparring"
	CategoryMental       = "mental"
	CategoryRecovery     = "recovery"
)

// TaskCategories lists the known categories.
var TaskCategories = []string{CategoryTechnique, CategoryConditioning, CategorySparring, CategoryMental, CategoryRecovery}

// Subtask is a checklist item of a [Task].
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Task is a training goal on the local task board.
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	DueDate     string       `json:"dueDate,omitempty"`
	Created     time.Time    `json:"created"`
	Updated     time.Time    `json:"updated,omitzero"`
	Subtasks    []Subtask    `json:"subtasks,omitempty"`
	Notes       string       `json:"notes,omitempty"`
}

// Due parses [Task.DueDate]. ok is false when the task has no valid due date.
func (t Task) Due() (due time.Time, ok bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	due, err := time.Parse(DueDateLayout, t.DueDate)
	if err != nil {
		return time.Time{}, false
	}
	return due, true
}

// Overdue reports whether the task is past due at now and not completed.
func (t Task) Overdue(now time.Time) bool {
	due, ok := t.Due()
	return ok && due.Before(now) && t.Status != StatusCompleted
}

// SubtaskProgress returns completed and total subtask counts.
func (t Task) SubtaskProgress() (done, total int) {
	for _, s := range t.Subtasks {
		if s.Completed {
			done++
		}
	}
	return done, len(t.Subtasks)
}

// Validate checks required fields and enumerations.
func (t Task) Validate() error {
	switch {
	case strings.TrimSpace(t.Title) == "":
		return fmt.Errorf("task title is required")
	case t.Category == "":
		return fmt.Errorf("task category is required")
	case !t.Priority.Valid():
		return fmt.Errorf("unknown task priority %q", t.Priority)
	case !t.Status.Valid():
		return fmt.Errorf("unknown task status %q", t.Status)
	}
	if t.DueDate != "" {
		if _, ok := t.Due(); !ok {
			return fmt.Errorf("due date %q must be formatted as YYYY-MM-DD", t.DueDate)
		}
	}
	return nil
}
