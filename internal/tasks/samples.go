package tasks

import (
	"time"

	"github.com/desertthunder/oracle/internal/models"
)

// SampleTasks is the starter board shown before the user has saved anything.
func SampleTasks(now time.Time) []models.Task {
	return []models.Task{
		{
			ID:          "task_1",
			Title:       "Master the Basic Jab",
			Description: "Practice proper jab technique focusing on form, speed, and accuracy",
			Category:    models.CategoryTechnique,
			Priority:    models.PriorityHigh,
			Status:      models.StatusInProgress,
			DueDate:     "2025-07-25",
			Created:     now,
			Subtasks: []models.Subtask{
				{ID: "sub_1", Title: "Practice stance and guard position", Completed: true},
				{ID: "sub_2", Title: "Work on straight punch mechanics", Completed: true},
				{ID: "sub_3", Title: "Focus on quick retraction"},
				{ID: "sub_4", Title: "Practice on heavy bag (100 jabs)"},
			},
			Notes: "Focus on keeping the shoulder relaxed and snapping the punch back quickly",
		},
		{
			ID:          "task_2",
			Title:       "Improve Cardiovascular Endurance",
			Description: "Build stamina for longer training sessions and better performance",
			Category:    models.CategoryConditioning,
			Priority:    models.PriorityMedium,
			Status:      models.StatusPending,
			DueDate:     "2025-08-01",
			Created:     now,
			Subtasks: []models.Subtask{
				{ID: "sub_5", Title: "3 rounds shadowboxing"},
				{ID: "sub_6", Title: "10 minutes jump rope"},
				{ID: "sub_7", Title: "5 rounds heavy bag work"},
			},
			Notes: "Gradually increase intensity and duration over time",
		},
		{
			ID:          "task_3",
			Title:       "Learn Defensive Head Movement",
			Description: "Practice slipping, ducking, and weaving to avoid punches",
			Category:    models.CategoryTechnique,
			Priority:    models.PriorityHigh,
			Status:      models.StatusPending,
			DueDate:     "2025-07-30",
			Created:     now,
			Subtasks: []models.Subtask{
				{ID: "sub_8", Title: "Practice slip left and right"},
				{ID: "sub_9", Title: "Work on ducking under hooks"},
				{ID: "sub_10", Title: "Combine with counter punches"},
			},
			Notes: "Start slow and focus on proper mechanics before adding speed",
		},
	}
}
