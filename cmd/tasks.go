package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/oracle/internal/formatter"
	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/shared"
	"github.com/desertthunder/oracle/internal/tasks"
	"github.com/urfave/cli/v3"
)

// loadBoard connects and loads the stored board.
func (r *Runner) loadBoard() error {
	if err := r.connect(); err != nil {
		return err
	}
	return r.board.Load()
}

// TasksList prints the board with the requested filter and order.
func (r *Runner) TasksList(ctx context.Context, cmd *cli.Command) error {
	filter, err := parseFilter(cmd)
	if err != nil {
		return err
	}
	sortKey, err := tasks.ParseSortKey(cmd.String("sort"))
	if err != nil {
		return err
	}
	if err := r.loadBoard(); err != nil {
		return err
	}

	r.board.SetFilter(filter)
	r.board.SetSort(sortKey)
	visible := r.board.Visible()

	if cmd.Bool("json") {
		return r.writeJSON(visible, true)
	}

	stats := r.board.Stats()
	r.writePlain("Total %d · Completed %d · Pending %d · Overdue %d\n\n", stats.Total, stats.Completed, stats.Pending, stats.Overdue)
	if len(visible) == 0 {
		return r.writePlain("No tasks match\n")
	}

	now := r.now()
	for i, t := range visible {
		r.writePlain("%d. [%s] %s (%s, %s)", i+1, t.Status.Label(), t.Title, t.Priority, t.Category)
		if t.DueDate != "" {
			r.writePlain(" due %s", t.DueDate)
		}
		if t.Overdue(now) {
			r.writePlain(" ⚠ overdue")
		}
		r.writePlain("\n   id: %s\n", t.ID)
	}
	return nil
}

// TasksExport writes the board to a file.
func (r *Runner) TasksExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.loadBoard(); err != nil {
		return err
	}

	path, err := formatter.WriteExport(r.board.Tasks(), format, cmd.String("output"), r.now())
	if err != nil {
		return err
	}

	r.logger.Info("tasks exported", "format", format, "path", path)
	return r.writePlain("✓ Exported %d tasks to %s\n", len(r.board.Tasks()), path)
}

// TasksBulkStatus sets the status of the given tasks.
func (r *Runner) TasksBulkStatus(ctx context.Context, cmd *cli.Command) error {
	status := models.TaskStatus(cmd.String("status"))
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, status)
	}
	if err := r.loadBoard(); err != nil {
		return err
	}

	for _, id := range cmd.StringSlice("id") {
		if _, ok := r.board.Task(id); !ok {
			return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, id)
		}
		r.board.Select(id, true)
	}

	n, err := r.board.BulkStatus(status)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %s\n", tasks.UpdatedMessage(n))
}

// TasksSync pushes the board to the API, or merges the server's tasks into it with --pull.
func (r *Runner) TasksSync(ctx context.Context, cmd *cli.Command) error {
	if err := r.restore(ctx); err != nil {
		return err
	}
	if err := r.board.Load(); err != nil {
		return err
	}

	syncer := tasks.NewSyncer(r.client, r.logger)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.PushTasks:
				if update.Step == 0 {
					r.writePlain("📤 %s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.PullTasks:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.MergeTasks:
				r.writePlain("🔀 %s\n", update.Message)
			}
		}
	}()

	if cmd.Bool("pull") {
		changed, err := syncer.Pull(ctx, progressCh, r.board)
		close(progressCh)
		<-done
		if err != nil {
			return err
		}
		return r.writePlain("\n✓ %d tasks changed\n", changed)
	}

	result, err := syncer.PushAll(ctx, progressCh, r.board.Tasks(), tasks.SyncOpts{
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	})
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete!")
	r.writePlain("Pushed: %d/%d\n", result.Pushed, result.Total)
	if result.Failed > 0 {
		r.writePlain("\nFailed to push %d tasks:\n", result.Failed)
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  - %s: %v\n", res.Title, res.Error)
			}
		}
	}
	return nil
}

func parseFilter(cmd *cli.Command) (tasks.Filter, error) {
	filter := tasks.Filter{
		Status:   models.TaskStatus(cmd.String("status")),
		Priority: models.TaskPriority(cmd.String("priority")),
		Category: cmd.String("category"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return filter, fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, filter.Status)
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return filter, fmt.Errorf("%w: unknown priority %q", shared.ErrInvalidArgument, filter.Priority)
	}
	return filter, nil
}
