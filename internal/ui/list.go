package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/oracle/internal/models"
)

var _ list.Item = taskItem{}

// taskItem wraps [models.Task] to implement [list.Item].
type taskItem struct {
	task     models.Task
	selected bool
	now      time.Time
}

func (i taskItem) FilterValue() string { return i.task.Title }

func (i taskItem) Title() string {
	mark := "[ ]"
	if i.selected {
		mark = "[x]"
	}
	return fmt.Sprintf("%s %s %s", mark, statusIcon(i.task.Status), i.task.Title)
}

func (i taskItem) Description() string {
	parts := []string{string(i.task.Priority), i.task.Category, i.task.Status.Label()}
	if i.task.DueDate != "" {
		due := "due " + i.task.DueDate
		if i.task.Overdue(i.now) {
			due += " ⚠ overdue"
		}
		parts = append(parts, due)
	}
	if done, total := i.task.SubtaskProgress(); total > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d subtasks", done, total))
	}
	return strings.Join(parts, " • ")
}

func statusIcon(s models.TaskStatus) string {
	switch s {
	case models.StatusInProgress:
		return "◐"
	case models.StatusCompleted:
		return "●"
	case models.StatusBlocked:
		return "⊘"
	default:
		return "○"
	}
}
