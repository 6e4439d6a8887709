package tasks

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/shared"
	"github.com/desertthunder/oracle/internal/storage"
)

// SortKey orders [Board.Visible].
type SortKey string

const (
	SortPriority SortKey = "priority"
	SortDueDate  SortKey = "dueDate"
	SortCreated  SortKey = "created"
	SortCategory SortKey = "category"
)

// SortKeys lists the supported orders.
var SortKeys = []SortKey{SortPriority, SortDueDate, SortCreated, SortCategory}

// ParseSortKey accepts a [SortKey] name, case-insensitively, also as "due_date" or "due-date".
func ParseSortKey(raw string) (SortKey, error) {
	norm := strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(raw)))
	for _, k := range SortKeys {
		if strings.ToLower(string(k)) == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown sort %q", shared.ErrInvalidArgument, raw)
}

// Filter narrows the visible tasks. Zero fields match everything.
type Filter struct {
	Status   models.TaskStatus
	Priority models.TaskPriority
	Category string
}

func (f Filter) matches(t models.Task) bool {
	return (f.Status == "" || t.Status == f.Status) &&
		(f.Priority == "" || t.Priority == f.Priority) &&
		(f.Category == "" || t.Category == f.Category)
}

// Stats summarizes the board. Pending counts pending and in-progress tasks.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Overdue   int `json:"overdue"`
}

// Column is one status lane of the kanban view.
type Column struct {
	Status models.TaskStatus
	Tasks  []models.Task
}

// BoardOption configures a [Board].
type BoardOption func(*Board)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) BoardOption {
	return func(b *Board) { b.now = now }
}

// WithIDs replaces the task and subtask id generator.
func WithIDs(next func() string) BoardOption {
	return func(b *Board) { b.newID = next }
}

// Board is the task list of the signed-in user. It is safe for concurrent use.
type Board struct {
	scope  storage.Scope
	logger *log.Logger
	now    func() time.Time
	newID  func() string

	mu       sync.Mutex
	tasks    []models.Task
	selected map[string]struct{}
	filter   Filter
	sort     SortKey
}

// NewBoard creates an empty board backed by scope. Call [Board.Load] to read it.
func NewBoard(scope storage.Scope, logger *log.Logger, opts ...BoardOption) *Board {
	if logger == nil {
		logger = log.Default()
	}
	b := &Board{
		scope:    scope,
		logger:   shared.WithLogger(logger, "component", "tasks"),
		now:      time.Now,
		newID:    shared.GenerateID,
		selected: map[string]struct{}{},
		sort:     SortPriority,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Load reads the stored tasks, falling back to [SampleTasks] when none were saved.
func (b *Board) Load() error {
	var stored []models.Task
	found, err := b.scope.Get(storage.KeyTasks, &stored)
	if err != nil {
		return fmt.Errorf("%w: failed to load tasks: %v", shared.ErrStorage, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !found {
		b.tasks = SampleTasks(b.now())
	} else {
		b.tasks = stored
	}
	b.selected = map[string]struct{}{}
	b.logger.Debug("tasks loaded", "count", len(b.tasks), "samples", !found)
	return nil
}

// LoadSamples replaces the board with [SampleTasks] and saves it.
func (b *Board) LoadSamples() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = SampleTasks(b.now())
	b.selected = map[string]struct{}{}
	return b.persist()
}

// Tasks copies every task in board order.
func (b *Board) Tasks() []models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return clone(b.tasks)
}

// Task finds a task by id.
func (b *Board) Task(id string) (models.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(id); i >= 0 {
		return cloneTask(b.tasks[i]), true
	}
	return models.Task{}, false
}

func (b *Board) SetFilter(f Filter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter = f
}

func (b *Board) Filter() Filter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filter
}

func (b *Board) SetSort(k SortKey) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sort = k
}

func (b *Board) Sort() SortKey {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sort
}

// Visible returns the filtered tasks in the current sort order.
func (b *Board) Visible() []models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible()
}

func (b *Board) visible() []models.Task {
	var out []models.Task
	for _, t := range b.tasks {
		if b.filter.matches(t) {
			out = append(out, cloneTask(t))
		}
	}
	SortTasks(out, b.sort)
	return out
}

// SortTasks orders tasks in place by k. Ties keep their relative order.
func SortTasks(tasks []models.Task, k SortKey) {
	slices.SortStableFunc(tasks, func(a, c models.Task) int {
		switch k {
		case SortPriority:
			return c.Priority.Weight() - a.Priority.Weight()
		case SortDueDate:
			ad, aok := a.Due()
			cd, cok := c.Due()
			switch {
			case !aok && !cok:
				return 0
			case !aok:
				return 1
			case !cok:
				return -1
			}
			return ad.Compare(cd)
		case SortCreated:
			return c.Created.Compare(a.Created)
		case SortCategory:
			return strings.Compare(a.Category, c.Category)
		default:
			return 0
		}
	})
}

// Kanban groups the visible tasks by status in cycling order.
func (b *Board) Kanban() []Column {
	visible := b.Visible()
	cols := make([]Column, 0, len(models.TaskStatuses))
	for _, status := range models.TaskStatuses {
		col := Column{Status: status}
		for _, t := range visible {
			if t.Status == status {
				col.Tasks = append(col.Tasks, t)
			}
		}
		cols = append(cols, col)
	}
	return cols
}

// Save creates or updates a task. A task without an id is new and goes to the top of the board.
//
// Blank subtasks are dropped, missing ids are generated and the status defaults to pending.
func (b *Board) Save(task models.Task) (saved models.Task, created bool, err error) {
	task.Title = strings.TrimSpace(task.Title)
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	task.Subtasks = b.cleanSubtasks(task.Subtasks)
	if err := task.Validate(); err != nil {
		return models.Task{}, false, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	task.Updated = now

	if task.ID != "" {
		i := b.index(task.ID)
		if i < 0 {
			return models.Task{}, false, fmt.Errorf("%w: %s", shared.ErrTaskNotFound, task.ID)
		}
		task.Created = b.tasks[i].Created
		b.tasks[i] = task
	} else {
		task.ID = "task_" + b.newID()
		task.Created = now
		b.tasks = append([]models.Task{task}, b.tasks...)
		created = true
	}

	if err := b.persist(); err != nil {
		return models.Task{}, false, err
	}
	return cloneTask(task), created, nil
}

func (b *Board) cleanSubtasks(subtasks []models.Subtask) []models.Subtask {
	var out []models.Subtask
	for _, s := range subtasks {
		s.Title = strings.TrimSpace(s.Title)
		if s.Title == "" {
			continue
		}
		if s.ID == "" {
			s.ID = "sub_" + b.newID()
		}
		out = append(out, s)
	}
	return out
}

// Delete removes a task.
func (b *Board) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, id)
	}
	b.tasks = slices.Delete(b.tasks, i, i+1)
	delete(b.selected, id)
	return b.persist()
}

// CycleStatus advances a task to its next status.
func (b *Board) CycleStatus(id string) (models.TaskStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.index(id)
	if i < 0 {
		return "", fmt.Errorf("%w: %s", shared.ErrTaskNotFound, id)
	}
	b.tasks[i].Status = b.tasks[i].Status.Next()
	b.tasks[i].Updated = b.now()
	return b.tasks[i].Status, b.persist()
}

// ToggleSubtask flips the completion of one subtask.
func (b *Board) ToggleSubtask(taskID, subtaskID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.index(taskID)
	if i < 0 {
		return false, fmt.Errorf("%w: %s", shared.ErrTaskNotFound, taskID)
	}
	for j := range b.tasks[i].Subtasks {
		sub := &b.tasks[i].Subtasks[j]
		if sub.ID == subtaskID {
			sub.Completed = !sub.Completed
			b.tasks[i].Updated = b.now()
			return sub.Completed, b.persist()
		}
	}
	return false, fmt.Errorf("%w: subtask %s", shared.ErrTaskNotFound, subtaskID)
}

// Select adds or removes a task from the selection. Unknown ids are ignored.
func (b *Board) Select(id string, selected bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !selected {
		delete(b.selected, id)
		return
	}
	if b.index(id) >= 0 {
		b.selected[id] = struct{}{}
	}
}

// SelectAll selects every visible task, or clears the selection.
func (b *Board) SelectAll(selected bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !selected {
		b.selected = map[string]struct{}{}
		return
	}
	for _, t := range b.visible() {
		b.selected[t.ID] = struct{}{}
	}
}

func (b *Board) ClearSelection() { b.SelectAll(false) }

// IsSelected reports whether id is selected.
func (b *Board) IsSelected(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.selected[id]
	return ok
}

// Selected lists the selected ids in board order.
func (b *Board) Selected() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []string
	for _, t := range b.tasks {
		if _, ok := b.selected[t.ID]; ok {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// BulkStatus sets status on every selected task and clears the selection.
func (b *Board) BulkStatus(status models.TaskStatus) (int, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, status)
	}
	return b.bulkUpdate(func(t *models.Task) { t.Status = status })
}

// BulkPriority sets priority on every selected task and clears the selection.
func (b *Board) BulkPriority(priority models.TaskPriority) (int, error) {
	if !priority.Valid() {
		return 0, fmt.Errorf("%w: unknown priority %q", shared.ErrInvalidArgument, priority)
	}
	return b.bulkUpdate(func(t *models.Task) { t.Priority = priority })
}

func (b *Board) bulkUpdate(apply func(*models.Task)) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	count := 0
	for i := range b.tasks {
		if _, ok := b.selected[b.tasks[i].ID]; ok {
			apply(&b.tasks[i])
			b.tasks[i].Updated = now
			count++
		}
	}
	b.selected = map[string]struct{}{}
	return count, b.persist()
}

// BulkDelete removes every selected task and clears the selection.
func (b *Board) BulkDelete() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	before := len(b.tasks)
	b.tasks = slices.DeleteFunc(b.tasks, func(t models.Task) bool {
		_, ok := b.selected[t.ID]
		return ok
	})
	b.selected = map[string]struct{}{}
	return before - len(b.tasks), b.persist()
}

// Merge folds remote tasks into the board. A remote task replaces a local one with the same id
// when it was updated later; unknown remote tasks are appended.
func (b *Board) Merge(remote []models.Task) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	changed := 0
	for _, r := range remote {
		if r.ID == "" {
			continue
		}
		i := b.index(r.ID)
		switch {
		case i < 0:
			b.tasks = append(b.tasks, r)
			changed++
		case lastChange(r).After(lastChange(b.tasks[i])):
			b.tasks[i] = r
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	return changed, b.persist()
}

func lastChange(t models.Task) time.Time {
	if t.Updated.IsZero() {
		return t.Created
	}
	return t.Updated
}

// Stats counts tasks at the board clock's current time.
func (b *Board) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ComputeStats(b.tasks, b.now())
}

// ComputeStats counts tasks at now.
func ComputeStats(tasks []models.Task, now time.Time) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case models.StatusCompleted:
			s.Completed++
		case models.StatusPending, models.StatusInProgress:
			s.Pending++
		}
		if t.Overdue(now) {
			s.Overdue++
		}
	}
	return s
}

// StatusMessage is the notice shown after a task changes status.
func StatusMessage(status models.TaskStatus) string {
	return "Task marked as " + status.Label()
}

// UpdatedMessage is the notice shown after a bulk update.
func UpdatedMessage(n int) string { return fmt.Sprintf("%d tasks updated", n) }

// DeletedMessage is the notice shown after a bulk delete.
func DeletedMessage(n int) string { return fmt.Sprintf("%d tasks deleted", n) }

func (b *Board) index(id string) int {
	return slices.IndexFunc(b.tasks, func(t models.Task) bool { return t.ID == id })
}

func (b *Board) persist() error {
	if err := b.scope.Set(storage.KeyTasks, b.tasks); err != nil {
		b.logger.Error("failed to save tasks", "error", err)
		return fmt.Errorf("%w: failed to save tasks: %v", shared.ErrStorage, err)
	}
	return nil
}

func clone(tasks []models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		out[i] = cloneTask(t)
	}
	return out
}

func cloneTask(t models.Task) models.Task {
	t.Subtasks = slices.Clone(t.Subtasks)
	return t
}
