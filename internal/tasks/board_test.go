package tasks

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/shared"
	"github.com/desertthunder/oracle/internal/storage"
)

var boardNow = time.Date(2025, 7, 28, 9, 0, 0, 0, time.UTC)

func newTestBoard(t *testing.T) (*Board, *storage.SessionScope) {
	t.Helper()
	scope := storage.NewSessionScope()
	n := 0
	b := NewBoard(scope, shared.DiscardLogger(),
		WithClock(func() time.Time { return boardNow }),
		WithIDs(func() string { n++; return fmt.Sprintf("gen%d", n) }),
	)
	if err := b.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return b, scope
}

func ids(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestBoardLoad(t *testing.T) {
	t.Run("Samples When Empty", func(t *testing.T) {
		b, scope := newTestBoard(t)
		if got := len(b.Tasks()); got != 3 {
			t.Fatalf("expected 3 sample tasks, got %d", got)
		}
		var stored []models.Task
		if found, _ := scope.Get(storage.KeyTasks, &stored); found {
			t.Error("samples should not be saved until the board changes")
		}
	})

	t.Run("Stored Tasks", func(t *testing.T) {
		scope := storage.NewSessionScope()
		_ = scope.Set(storage.KeyTasks, []models.Task{{ID: "task_9", Title: "Footwork", Category: "technique", Priority: "low", Status: "pending"}})

		b := NewBoard(scope, shared.DiscardLogger())
		if err := b.Load(); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got := ids(b.Tasks()); len(got) != 1 || got[0] != "task_9" {
			t.Errorf("tasks = %v", got)
		}
	})

	t.Run("Saved Empty Board Stays Empty", func(t *testing.T) {
		scope := storage.NewSessionScope()
		_ = scope.Set(storage.KeyTasks, []models.Task{})
		b := NewBoard(scope, shared.DiscardLogger())
		_ = b.Load()
		if len(b.Tasks()) != 0 {
			t.Error("expected an empty board")
		}
	})

	t.Run("LoadSamples Persists", func(t *testing.T) {
		b, scope := newTestBoard(t)
		_ = b.Delete("task_1")
		if err := b.LoadSamples(); err != nil {
			t.Fatalf("LoadSamples() error = %v", err)
		}
		var stored []models.Task
		if found, _ := scope.Get(storage.KeyTasks, &stored); !found || len(stored) != 3 {
			t.Errorf("stored %d tasks, found %v", len(stored), found)
		}
	})
}

func TestBoardViews(t *testing.T) {
	t.Run("Filters", func(t *testing.T) {
		b, _ := newTestBoard(t)
		tc := []struct {
			name   string
			filter Filter
			want   int
		}{
			{"All", Filter{}, 3},
			{"Status", Filter{Status: models.StatusPending}, 2},
			{"Priority", Filter{Priority: models.PriorityHigh}, 2},
			{"Category", Filter{Category: models.CategoryConditioning}, 1},
			{"Combined", Filter{Status: models.StatusPending, Priority: models.PriorityHigh}, 1},
			{"None", Filter{Category: models.CategoryRecovery}, 0},
		}
		for _, c := range tc {
			t.Run(c.name, func(t *testing.T) {
				b.SetFilter(c.filter)
				if got := len(b.Visible()); got != c.want {
					t.Errorf("visible = %d, want %d", got, c.want)
				}
			})
		}
	})

	t.Run("Sorts", func(t *testing.T) {
		tasks := []models.Task{
			{ID: "a", Priority: models.PriorityLow, Category: "sparring", DueDate: "2025-08-10", Created: boardNow.Add(-3 * time.Hour)},
			{ID: "b", Priority: models.PriorityHigh, Category: "conditioning", Created: boardNow.Add(-1 * time.Hour)},
			{ID: "c", Priority: models.PriorityMedium, Category: "technique", DueDate: "2025-08-01", Created: boardNow.Add(-2 * time.Hour)},
			{ID: "d", Priority: models.PriorityHigh, Category: "mental", DueDate: "2025-07-01", Created: boardNow},
		}
		tc := []struct {
			key  SortKey
			want string
		}{
			{SortPriority, "[b d c a]"},
			{SortDueDate, "[d c a b]"},
			{SortCreated, "[d b c a]"},
			{SortCategory, "[b d a c]"},
		}
		for _, c := range tc {
			t.Run(string(c.key), func(t *testing.T) {
				sorted := append([]models.Task(nil), tasks...)
				SortTasks(sorted, c.key)
				if got := fmt.Sprint(ids(sorted)); got != c.want {
					t.Errorf("order = %s, want %s", got, c.want)
				}
			})
		}
	})

	t.Run("ParseSortKey", func(t *testing.T) {
		for raw, want := range map[string]SortKey{"priority": SortPriority, "due_date": SortDueDate, "dueDate": SortDueDate, "CREATED": SortCreated} {
			if got, err := ParseSortKey(raw); err != nil || got != want {
				t.Errorf("ParseSortKey(%q) = %v, %v", raw, got, err)
			}
		}
		if _, err := ParseSortKey("random"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		b, _ := newTestBoard(t)
		if got, want := b.Stats(), (Stats{Total: 3, Completed: 0, Pending: 3, Overdue: 1}); got != want {
			t.Errorf("Stats() = %+v, want %+v", got, want)
		}

		_, _ = b.CycleStatus("task_1")
		if got, want := b.Stats(), (Stats{Total: 3, Completed: 1, Pending: 2, Overdue: 0}); got != want {
			t.Errorf("Stats() after completing = %+v, want %+v", got, want)
		}
	})

	t.Run("Kanban", func(t *testing.T) {
		b, _ := newTestBoard(t)
		cols := b.Kanban()
		if len(cols) != 4 || cols[0].Status != models.StatusPending {
			t.Fatalf("columns = %+v", cols)
		}
		if len(cols[0].Tasks) != 2 || len(cols[1].Tasks) != 1 || len(cols[2].Tasks) != 0 {
			t.Errorf("unexpected lane sizes: %d %d %d", len(cols[0].Tasks), len(cols[1].Tasks), len(cols[2].Tasks))
		}
	})
}

func TestBoardEdits(t *testing.T) {
	t.Run("Create Prepends", func(t *testing.T) {
		b, _ := newTestBoard(t)
		saved, created, err := b.Save(models.Task{
			Title:    "  Shadowbox daily ",
			Category: models.CategoryConditioning,
			Priority: models.PriorityLow,
			Subtasks: []models.Subtask{{Title: "Round 1"}, {Title: "   "}},
		})
		if err != nil || !created {
			t.Fatalf("Save() = %v, %v", created, err)
		}
		if saved.ID != "task_gen2" {
			t.Errorf("id = %q, want task_gen2", saved.ID)
		}
		if saved.Title != "Shadowbox daily" || saved.Status != models.StatusPending {
			t.Errorf("saved = %+v", saved)
		}
		if len(saved.Subtasks) != 1 || saved.Subtasks[0].ID != "sub_gen1" {
			t.Errorf("subtasks = %+v", saved.Subtasks)
		}
		if !saved.Created.Equal(boardNow) {
			t.Errorf("created = %v", saved.Created)
		}
		if first := b.Tasks()[0]; first.ID != saved.ID {
			t.Errorf("new task should be first, got %s", first.ID)
		}
	})

	t.Run("Update Keeps Created", func(t *testing.T) {
		b, _ := newTestBoard(t)
		original, _ := b.Task("task_2")
		original.Title = "Endurance block"
		saved, created, err := b.Save(original)
		if err != nil || created {
			t.Fatalf("Save() = %v, %v", created, err)
		}
		if !saved.Created.Equal(original.Created) || saved.Title != "Endurance block" {
			t.Errorf("saved = %+v", saved)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		b, _ := newTestBoard(t)
		if _, _, err := b.Save(models.Task{Category: "technique", Priority: "high"}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if _, _, err := b.Save(models.Task{ID: "missing", Title: "x", Category: "technique", Priority: "high"}); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})

	t.Run("CycleStatus", func(t *testing.T) {
		b, scope := newTestBoard(t)
		want := []models.TaskStatus{models.StatusInProgress, models.StatusCompleted, models.StatusBlocked, models.StatusPending}
		for _, w := range want {
			got, err := b.CycleStatus("task_2")
			if err != nil || got != w {
				t.Fatalf("CycleStatus() = %v, %v, want %v", got, err, w)
			}
		}
		if StatusMessage(models.StatusInProgress) != "Task marked as in progress" {
			t.Errorf("StatusMessage() = %q", StatusMessage(models.StatusInProgress))
		}
		var stored []models.Task
		if found, _ := scope.Get(storage.KeyTasks, &stored); !found {
			t.Error("cycling should persist the board")
		}
	})

	t.Run("ToggleSubtask", func(t *testing.T) {
		b, _ := newTestBoard(t)
		done, err := b.ToggleSubtask("task_1", "sub_3")
		if err != nil || !done {
			t.Fatalf("ToggleSubtask() = %v, %v", done, err)
		}
		task, _ := b.Task("task_1")
		if d, total := task.SubtaskProgress(); d != 3 || total != 4 {
			t.Errorf("progress = %d/%d", d, total)
		}
		if _, err := b.ToggleSubtask("task_1", "sub_x"); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		b, _ := newTestBoard(t)
		if err := b.Delete("task_3"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, ok := b.Task("task_3"); ok {
			t.Error("task_3 should be gone")
		}
		if err := b.Delete("task_3"); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})

	t.Run("Tasks Returns Copies", func(t *testing.T) {
		b, _ := newTestBoard(t)
		tasks := b.Tasks()
		tasks[0].Subtasks[0].Title = "changed"
		again, _ := b.Task(tasks[0].ID)
		if again.Subtasks[0].Title == "changed" {
			t.Error("callers must not share subtask slices with the board")
		}
	})
}

func TestBoardSelection(t *testing.T) {
	t.Run("Select And Bulk Status", func(t *testing.T) {
		b, _ := newTestBoard(t)
		b.Select("task_1", true)
		b.Select("task_3", true)
		b.Select("unknown", true)
		if got := fmt.Sprint(b.Selected()); got != "[task_1 task_3]" {
			t.Errorf("Selected() = %s", got)
		}

		n, err := b.BulkStatus(models.StatusCompleted)
		if err != nil || n != 2 {
			t.Fatalf("BulkStatus() = %d, %v", n, err)
		}
		if UpdatedMessage(n) != "2 tasks updated" {
			t.Errorf("UpdatedMessage() = %q", UpdatedMessage(n))
		}
		if len(b.Selected()) != 0 {
			t.Error("bulk update should clear the selection")
		}
		if b.Stats().Completed != 2 {
			t.Errorf("completed = %d", b.Stats().Completed)
		}
	})

	t.Run("Select All Visible", func(t *testing.T) {
		b, _ := newTestBoard(t)
		b.SetFilter(Filter{Priority: models.PriorityHigh})
		b.SelectAll(true)
		if len(b.Selected()) != 2 || !b.IsSelected("task_1") || b.IsSelected("task_2") {
			t.Errorf("Selected() = %v", b.Selected())
		}

		n, err := b.BulkPriority(models.PriorityLow)
		if err != nil || n != 2 {
			t.Fatalf("BulkPriority() = %d, %v", n, err)
		}
		if len(b.Visible()) != 0 {
			t.Error("no high priority tasks should remain")
		}
	})

	t.Run("Bulk Delete", func(t *testing.T) {
		b, _ := newTestBoard(t)
		b.SelectAll(true)
		b.Select("task_2", false)
		n, err := b.BulkDelete()
		if err != nil || n != 2 {
			t.Fatalf("BulkDelete() = %d, %v", n, err)
		}
		if DeletedMessage(n) != "2 tasks deleted" {
			t.Errorf("DeletedMessage() = %q", DeletedMessage(n))
		}
		if got := ids(b.Tasks()); len(got) != 1 || got[0] != "task_2" {
			t.Errorf("tasks = %v", got)
		}
	})

	t.Run("Invalid Bulk Values", func(t *testing.T) {
		b, _ := newTestBoard(t)
		if _, err := b.BulkStatus("done"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if _, err := b.BulkPriority("urgent"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestBoardMerge(t *testing.T) {
	b, _ := newTestBoard(t)
	local, _ := b.Task("task_1")

	newer := local
	newer.Title = "Jab from the server"
	newer.Updated = boardNow.Add(time.Hour)

	older := SampleTasks(boardNow)[1]
	older.Title = "stale"
	older.Updated = boardNow.Add(-time.Hour)

	fresh := models.Task{ID: "remote_1", Title: "Rope work", Category: "conditioning", Priority: "low", Status: "pending", Created: boardNow}

	changed, err := b.Merge([]models.Task{newer, older, fresh, {Title: "no id"}})
	if err != nil || changed != 2 {
		t.Fatalf("Merge() = %d, %v", changed, err)
	}
	if got, _ := b.Task("task_1"); got.Title != "Jab from the server" {
		t.Errorf("task_1 title = %q", got.Title)
	}
	if got, _ := b.Task("task_2"); got.Title == "stale" {
		t.Error("older remote task should not replace local")
	}
	if _, ok := b.Task("remote_1"); !ok {
		t.Error("unknown remote task should be appended")
	}
}
