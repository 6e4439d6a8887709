package tasks

import (
	"fmt"

	"github.com/desertthunder/oracle/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	PushTasks Phase = iota
	PullTasks
	MergeTasks
)

func (p Phase) String() string {
	switch p {
	case PushTasks:
		return "push_tasks"
	case PullTasks:
		return "pull_tasks"
	case MergeTasks:
		return "merge_tasks"
	default:
		return ""
	}
}

// sendProgress sends update without blocking. A nil or full channel drops it.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func pushStartedUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PushTasks,
		Total:   total,
		Message: fmt.Sprintf("Pushing %d tasks...", total),
	}
}

func pushedUpdate(step, total int, res TaskSyncResult) ProgressUpdate {
	verb := "updated"
	if res.Created {
		verb = "created"
	}
	return ProgressUpdate{
		Phase:   PushTasks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, res.Title, verb),
		Data:    res,
	}
}

func pushFailedUpdate(step, total int, res TaskSyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PushTasks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Title, res.Error),
		Data:    res,
	}
}

func pullingUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   PullTasks,
		Step:    0,
		Total:   1,
		Message: "Fetching tasks from the server...",
	}
}

func pulledUpdate(tasks []models.Task) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PullTasks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d tasks", len(tasks)),
		Data:    tasks,
	}
}

func mergedUpdate(changed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MergeTasks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Merged %d tasks into the board", changed),
	}
}
