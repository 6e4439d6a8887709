package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/router"
	"github.com/desertthunder/oracle/internal/shared"
	"github.com/desertthunder/oracle/internal/tasks"
)

// TaskViewMode is how the tasks screen lays out the board.
type TaskViewMode int

const (
	TaskListMode TaskViewMode = iota
	TaskKanbanMode
)

const (
	taskTitle = iota
	taskDue
	taskDescription
)

var taskPriorities = []models.TaskPriority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow}

type taskKeys struct {
	toggle, all, clear, cycle, complete, remove, filter, sort, mode, add, edit, samples, push, pull key.Binding
	save, cancel, priority, category                                                             key.Binding
}

// TasksScreen is the training task board.
type TasksScreen struct {
	deps *Deps

	mu   sync.Mutex
	list list.Model
	mode TaskViewMode
	keys taskKeys

	editing  bool
	editID   string
	form     form
	priority int
	category int

	syncing  bool
	last     tasks.ProgressUpdate
	progress <-chan tasks.ProgressUpdate
	done     <-chan syncCompleteMsg
}

// NewTasksScreen creates the task board screen.
func NewTasksScreen(deps *Deps) *TasksScreen {
	l := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	l.Title = "Training Tasks"
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	l.KeyMap.ShowFullHelp.SetEnabled(false)
	l.KeyMap.CloseFullHelp.SetEnabled(false)

	s := &TasksScreen{deps: deps, list: l, form: newForm(deps.StaticCursor, "Title", "Due date (YYYY-MM-DD)", "Description"), priority: 1}
	s.keys = taskKeys{
		toggle:   binding(" ", "select"),
		all:      binding("a", "select all"),
		clear:    binding("c", "clear selection"),
		cycle:    binding("s", "cycle status"),
		complete: binding("S", "complete selected"),
		remove:   binding("d", "delete"),
		filter:   binding("f", "filter status"),
		sort:     binding("o", "sort"),
		mode:     binding("v", "list/kanban"),
		add:      binding("n", "new"),
		edit:     binding("e", "edit"),
		samples:  binding("l", "load samples"),
		push:     binding("p", "push"),
		pull:     binding("u", "pull"),
		save:     binding("enter", "save"),
		cancel:   binding("esc", "cancel"),
		priority: key.NewBinding(key.WithKeys("left", "right"), key.WithHelp("←/→", "priority")),
		category: binding("ctrl+e", "category"),
	}
	s.keys.toggle.SetHelp("space", "select")
	return s
}

// Render loads the board. A storage failure is reported with a toast and an empty board.
func (s *TasksScreen) Render(context.Context) error {
	if err := s.deps.Board.Load(); err != nil {
		s.deps.logger().Error("failed to load tasks", "error", err)
		s.deps.toast("Failed to load tasks", router.ToastError)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh()
	return nil
}

// Mode returns the layout in use.
func (s *TasksScreen) Mode() TaskViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Captures keeps esc inside the task form.
func (s *TasksScreen) Captures(msg tea.KeyMsg) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing && key.Matches(msg, s.keys.cancel)
}

func (s *TasksScreen) Help() []key.Binding {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing {
		return []key.Binding{s.keys.save, s.keys.cancel, s.keys.priority, s.keys.category}
	}
	return []key.Binding{s.keys.add, s.keys.edit, s.keys.cycle, s.keys.toggle, s.keys.remove, s.keys.filter, s.keys.sort, s.keys.mode, s.keys.push}
}

// refresh rebuilds the list items from the board. Must be called with s.mu held.
func (s *TasksScreen) refresh() {
	now := s.deps.now()
	visible := s.deps.Board.Visible()
	items := make([]list.Item, len(visible))
	for i, t := range visible {
		items[i] = taskItem{task: t, selected: s.deps.Board.IsSelected(t.ID), now: now}
	}
	cursor := s.list.Index()
	s.list.SetItems(items)
	if cursor >= len(items) {
		cursor = len(items) - 1
	}
	if cursor >= 0 {
		s.list.Select(cursor)
	}
}

func (s *TasksScreen) current() (models.Task, bool) {
	item, ok := s.list.SelectedItem().(taskItem)
	if !ok {
		return models.Task{}, false
	}
	return item.task, true
}

func (s *TasksScreen) Update(msg tea.Msg) tea.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.list.SetSize(max(msg.Width-4, 20), max(msg.Height-10, 5))
		return nil

	case syncProgressMsg:
		s.last = tasks.ProgressUpdate(msg)
		return waitForSync(s.progress, s.done)

	case syncCompleteMsg:
		s.syncing = false
		s.progress, s.done = nil, nil
		switch {
		case msg.err != nil:
			s.deps.toast("Sync failed: "+syncError(msg.err), router.ToastError)
		case msg.result.Failed > 0:
			s.deps.toast(fmt.Sprintf("%d tasks synced, %d failed", msg.result.Pushed, msg.result.Failed), router.ToastWarning)
		default:
			s.deps.toast(fmt.Sprintf("%d tasks synced", msg.result.Pushed), router.ToastSuccess)
		}
		return nil

	case pullCompleteMsg:
		s.syncing = false
		if msg.err != nil {
			s.deps.toast("Sync failed: "+syncError(msg.err), router.ToastError)
			return nil
		}
		s.refresh()
		s.deps.toast(fmt.Sprintf("%d tasks updated from server", msg.changed), router.ToastSuccess)
		return nil

	case tea.KeyMsg:
		if s.editing {
			return s.updateForm(msg)
		}
		return s.updateBoard(msg)
	}
	return nil
}

func (s *TasksScreen) updateBoard(msg tea.KeyMsg) tea.Cmd {
	board := s.deps.Board
	task, hasTask := s.current()

	switch {
	case key.Matches(msg, s.keys.toggle):
		if hasTask {
			board.Select(task.ID, !board.IsSelected(task.ID))
		}
	case key.Matches(msg, s.keys.all):
		board.SelectAll(true)
	case key.Matches(msg, s.keys.clear):
		board.ClearSelection()
	case key.Matches(msg, s.keys.cycle):
		if !hasTask {
			return nil
		}
		status, err := board.CycleStatus(task.ID)
		if !s.report(err) {
			s.deps.toast(tasks.StatusMessage(status), router.ToastSuccess)
		}
	case key.Matches(msg, s.keys.complete):
		n, err := board.BulkStatus(models.StatusCompleted)
		if !s.report(err) && n > 0 {
			s.deps.toast(tasks.UpdatedMessage(n), router.ToastSuccess)
		}
	case key.Matches(msg, s.keys.remove):
		if len(board.Selected()) > 0 {
			n, err := board.BulkDelete()
			if !s.report(err) {
				s.deps.toast(tasks.DeletedMessage(n), router.ToastSuccess)
			}
		} else if hasTask {
			if !s.report(board.Delete(task.ID)) {
				s.deps.toast("Task deleted successfully", router.ToastSuccess)
			}
		}
	case key.Matches(msg, s.keys.filter):
		f := board.Filter()
		f.Status = nextStatusFilter(f.Status)
		board.SetFilter(f)
	case key.Matches(msg, s.keys.sort):
		board.SetSort(nextSortKey(board.Sort()))
	case key.Matches(msg, s.keys.mode):
		if s.mode == TaskListMode {
			s.mode = TaskKanbanMode
		} else {
			s.mode = TaskListMode
		}
	case key.Matches(msg, s.keys.add):
		s.openForm(models.Task{Priority: models.PriorityMedium, Category: models.CategoryTechnique})
		return nil
	case key.Matches(msg, s.keys.edit):
		if hasTask {
			s.openForm(task)
		}
		return nil
	case key.Matches(msg, s.keys.samples):
		if !s.report(board.LoadSamples()) {
			s.deps.toast("Sample tasks loaded successfully", router.ToastSuccess)
		}
	case key.Matches(msg, s.keys.push):
		return s.startPush()
	case key.Matches(msg, s.keys.pull):
		return s.startPull()
	default:
		if s.mode == TaskListMode && s.isNavigation(msg) {
			var cmd tea.Cmd
			s.list, cmd = s.list.Update(msg)
			return cmd
		}
		return nil
	}

	s.refresh()
	return nil
}

func (s *TasksScreen) isNavigation(msg tea.KeyMsg) bool {
	km := s.list.KeyMap
	return key.Matches(msg, km.CursorUp, km.CursorDown, km.PrevPage, km.NextPage, km.GoToStart, km.GoToEnd)
}

// report toasts err and reports whether there was one.
func (s *TasksScreen) report(err error) bool {
	if err == nil {
		return false
	}
	s.deps.logger().Error("task operation failed", "error", err)
	s.deps.toast(taskError(err), router.ToastError)
	return true
}

func (s *TasksScreen) openForm(t models.Task) {
	s.editing = true
	s.editID = t.ID
	s.form.reset()
	s.form.inputs[taskTitle].SetValue(t.Title)
	s.form.inputs[taskDue].SetValue(t.DueDate)
	s.form.inputs[taskDescription].SetValue(t.Description)
	s.priority = max(indexOf(taskPriorities, t.Priority), 0)
	s.category = max(indexOf(models.TaskCategories, t.Category), 0)
}

func (s *TasksScreen) updateForm(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, s.keys.cancel):
		s.editing = false
		return nil
	case msg.Type == tea.KeyLeft:
		s.priority = (s.priority + len(taskPriorities) - 1) % len(taskPriorities)
		return nil
	case msg.Type == tea.KeyRight:
		s.priority = (s.priority + 1) % len(taskPriorities)
		return nil
	case key.Matches(msg, s.keys.category):
		s.category = (s.category + 1) % len(models.TaskCategories)
		return nil
	case key.Matches(msg, s.keys.save):
		s.save()
		return nil
	}
	return s.form.update(msg)
}

// save stores the form. Must be called with s.mu held.
func (s *TasksScreen) save() {
	t := models.Task{}
	if s.editID != "" {
		existing, ok := s.deps.Board.Task(s.editID)
		if !ok {
			s.editing = false
			s.report(shared.ErrTaskNotFound)
			return
		}
		t = existing
	}
	t.Title = s.form.value(taskTitle)
	t.DueDate = s.form.value(taskDue)
	t.Description = s.form.value(taskDescription)
	t.Priority = taskPriorities[s.priority]
	t.Category = models.TaskCategories[s.category]

	_, created, err := s.deps.Board.Save(t)
	if s.report(err) {
		return
	}
	s.editing = false
	if created {
		s.deps.toast("Task created successfully", router.ToastSuccess)
	} else {
		s.deps.toast("Task updated successfully", router.ToastSuccess)
	}
	s.refresh()
}

func (s *TasksScreen) startPush() tea.Cmd {
	if s.deps.Syncer == nil {
		s.deps.toast("Task sync is not available", router.ToastWarning)
		return nil
	}
	if s.syncing {
		return nil
	}
	s.syncing = true
	s.last = tasks.ProgressUpdate{}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan syncCompleteMsg, 1)
	s.progress, s.done = progress, done

	ctx, syncer, snapshot := s.deps.context(), s.deps.Syncer, s.deps.Board.Tasks()
	go func() {
		result, err := syncer.PushAll(ctx, progress, snapshot, tasks.SyncOpts{})
		close(progress)
		done <- syncCompleteMsg{result: result, err: err}
	}()

	return waitForSync(progress, done)
}

func (s *TasksScreen) startPull() tea.Cmd {
	if s.deps.Syncer == nil {
		s.deps.toast("Task sync is not available", router.ToastWarning)
		return nil
	}
	if s.syncing {
		return nil
	}
	s.syncing = true
	s.last = tasks.ProgressUpdate{Phase: tasks.PullTasks, Message: "Fetching tasks from server..."}

	ctx, syncer, board := s.deps.context(), s.deps.Syncer, s.deps.Board
	return func() tea.Msg {
		changed, err := syncer.Pull(ctx, nil, board)
		return pullCompleteMsg{changed: changed, err: err}
	}
}

func waitForSync(progress <-chan tasks.ProgressUpdate, done <-chan syncCompleteMsg) tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return syncProgressMsg(update)
		}
		return <-done
	}
}

func (s *TasksScreen) View(width, _ int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	board := s.deps.Board
	stats := board.Stats()
	header := styles.help.Render(fmt.Sprintf("Total %d · Completed %d · Pending %d · Overdue %d",
		stats.Total, stats.Completed, stats.Pending, stats.Overdue))

	f := board.Filter()
	status := "all"
	if f.Status != "" {
		status = f.Status.Label()
	}
	info := styles.help.Render(fmt.Sprintf("Status: %s · Sort: %s", status, board.Sort()))
	if n := len(board.Selected()); n > 0 {
		info += styles.accent.Render(fmt.Sprintf(" · %d selected", n))
	}

	var body string
	switch {
	case s.editing:
		body = s.formView()
	case s.mode == TaskKanbanMode:
		body = s.kanbanView(width)
	case len(s.list.Items()) == 0:
		body = styles.title.Render("Training Tasks") + "\n" + styles.help.Render("No tasks yet. Press n to add one or l to load samples.")
	default:
		body = s.list.View()
	}

	out := header + "\n" + info + "\n\n" + body
	if s.syncing {
		msg := s.last.Message
		if msg == "" {
			msg = "Syncing tasks..."
		}
		if s.last.Total > 0 {
			msg = fmt.Sprintf("%s (%d/%d)", msg, s.last.Step, s.last.Total)
		}
		out += "\n" + styles.accent.Render(msg)
	}
	return out
}

func (s *TasksScreen) formView() string {
	heading := "New Task"
	if s.editID != "" {
		heading = "Edit Task"
	}
	return styles.title.Render(heading) + "\n" + s.form.view() +
		fmt.Sprintf("Priority: %s   Category: %s\n",
			styles.accent.Render(string(taskPriorities[s.priority])),
			styles.accent.Render(models.TaskCategories[s.category]))
}

func (s *TasksScreen) kanbanView(width int) string {
	columns := s.deps.Board.Kanban()
	colWidth := 24
	if width > 0 && len(columns) > 0 {
		colWidth = max(width/len(columns)-2, 16)
	}

	now := s.deps.now()
	rendered := make([]string, 0, len(columns))
	for _, col := range columns {
		var b strings.Builder
		b.WriteString(styles.accent.Bold(true).Render(fmt.Sprintf("%s (%d)", titleLabel(col.Status), len(col.Tasks))) + "\n")
		for _, t := range col.Tasks {
			line := "• " + t.Title
			if t.Overdue(now) {
				line += " ⚠"
			}
			b.WriteString(line + "\n" + styles.help.Render("  "+string(t.Priority)+" · "+t.Category) + "\n")
		}
		rendered = append(rendered, styles.card.Width(colWidth).Render(b.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func titleLabel(s models.TaskStatus) string {
	words := strings.Fields(s.Label())
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func nextStatusFilter(current models.TaskStatus) models.TaskStatus {
	if current == "" {
		return models.TaskStatuses[0]
	}
	i := indexOf(models.TaskStatuses, current)
	if i < 0 || i == len(models.TaskStatuses)-1 {
		return ""
	}
	return models.TaskStatuses[i+1]
}

func nextSortKey(current tasks.SortKey) tasks.SortKey {
	i := indexOf(tasks.SortKeys, current)
	return tasks.SortKeys[(i+1)%len(tasks.SortKeys)]
}

func indexOf[T comparable](list []T, v T) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

func taskError(err error) string {
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		return strings.TrimPrefix(err.Error(), shared.ErrInvalidInput.Error()+": ")
	case errors.Is(err, shared.ErrTaskNotFound):
		return "Task not found"
	default:
		return "Task operation failed"
	}
}

func syncError(err error) string {
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return "please sign in again"
	}
	if errors.Is(err, shared.ErrServiceUnavailable) {
		return "service unavailable"
	}
	return err.Error()
}
