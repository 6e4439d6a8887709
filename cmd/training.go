package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/oracle/internal/formatter"
	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/shared"
	"github.com/urfave/cli/v3"
)

// TrainingStart starts a training session.
func (r *Runner) TrainingStart(ctx context.Context, cmd *cli.Command) error {
	req := models.SessionRequest{
		Type:     cmd.String("type"),
		Duration: int(cmd.Int("duration")),
	}
	if req.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", shared.ErrInvalidArgument)
	}
	if err := r.restore(ctx); err != nil {
		return err
	}

	session, err := r.client.StartSession(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	r.logger.Info("training session started", "id", session.ID, "type", session.Type)
	r.writePlain("✓ %s started (%s planned)\n", formatter.FormatTrainingType(session.Type), formatter.FormatDuration(req.Duration))
	r.writePlain("Session: %s\n", session.ID)
	return nil
}

// TrainingEnd ends a training session and prints its summary.
func (r *Runner) TrainingEnd(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: session id", shared.ErrMissingArgument)
	}
	if err := r.restore(ctx); err != nil {
		return err
	}

	results := map[string]any{}
	if techniques := cmd.StringSlice("technique"); len(techniques) > 0 {
		results["techniques"] = techniques
	}

	summary, err := r.client.EndSession(ctx, id, results)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	r.writePlainHeader("Session Complete!")
	r.writePlain("Duration: %s\n", formatter.FormatDuration(summary.DurationMinutes))
	if len(summary.TechniquesPracticed) > 0 {
		r.writePlain("Techniques: %s\n", strings.Join(summary.TechniquesPracticed, ", "))
	}
	for _, a := range summary.Achievements {
		r.writePlain("🏆 %s\n", a.Name)
	}
	return nil
}

// TrainingShow prints one training session.
func (r *Runner) TrainingShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: session id", shared.ErrMissingArgument)
	}
	if err := r.restore(ctx); err != nil {
		return err
	}

	session, err := r.client.Session(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch session: %w", err)
	}
	r.writeSession(*session)
	return nil
}

// Stats prints the signed-in user's totals and recent sessions.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	if err := r.restore(ctx); err != nil {
		return err
	}

	user := r.auth.CurrentUser()
	stats, err := r.client.UserStats(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}
	recent, err := r.client.RecentSessions(ctx, user.ID, 5)
	if err != nil {
		return fmt.Errorf("failed to fetch recent sessions: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"stats": stats, "recent": recent}, true)
	}

	r.writePlainHeader(fmt.Sprintf("Welcome back, %s", orFallback(user.Name, "User")))
	r.writePlain("Sessions: %d\n", stats.TotalSessions)
	r.writePlain("Training time: %s\n", formatter.FormatDuration(stats.TrainingTime))
	r.writePlain("Techniques learned: %d\n", stats.TechniquesLearned)
	r.writePlain("Current streak: %d days\n", stats.CurrentStreak)

	if len(recent) == 0 {
		return nil
	}
	r.writePlainln("Recent sessions:")
	for _, s := range recent {
		r.writeSession(s)
	}
	return nil
}

func (r *Runner) writeSession(s models.TrainingSession) {
	state := "in progress"
	if !s.Active() {
		state = formatter.FormatDuration(s.Duration)
	}
	r.writePlain("• %s · %s · %s", formatter.FormatTrainingType(s.Type), formatter.FormatDate(s.StartedAt, r.now()), state)
	if s.Score > 0 {
		r.writePlain(" · score %.1f (%s)", s.Score, formatter.SkillLevel(s.Score).Level)
	}
	r.writePlain("\n  id: %s\n", s.ID)
}
