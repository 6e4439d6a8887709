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

// ChatSend sends one message to a coach and prints the reply.
func (r *Runner) ChatSend(ctx context.Context, cmd *cli.Command) error {
	message := strings.TrimSpace(cmd.StringArg("message"))
	if message == "" {
		return fmt.Errorf("%w: message", shared.ErrMissingArgument)
	}
	if err := r.restore(ctx); err != nil {
		return err
	}

	sessionID := cmd.String("session")
	if sessionID == "" {
		sessionID = shared.GenerateID()
	}
	coach := cmd.String("coach")

	r.logger.Info("sending chat message", "coach", coach, "session", sessionID)
	reply, err := r.client.SendMessage(ctx, message, sessionID, coach)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	text := reply.Message
	if !cmd.Bool("raw") {
		text = formatter.RenderMessage(text)
	}

	r.writePlain("🥊 %s\n\n%s\n", orFallback(reply.Coach, coach), text)
	if len(reply.Suggestions) > 0 {
		r.writePlainln("Suggestions:")
		for _, s := range reply.Suggestions {
			r.writePlain("  • %s\n", s)
		}
	}
	r.writePlain("\nSession: %s\n", sessionID)
	return nil
}

// ChatHistory prints past messages.
func (r *Runner) ChatHistory(ctx context.Context, cmd *cli.Command) error {
	if err := r.restore(ctx); err != nil {
		return err
	}

	messages, err := r.client.ChatHistory(ctx, cmd.String("session"), int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("failed to fetch chat history: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(messages, true)
	}

	if len(messages) == 0 {
		return r.writePlain("No messages yet\n")
	}
	now := r.now()
	for _, m := range messages {
		who := "You"
		if m.Sender == models.SenderAI {
			who = orFallback(m.Coach, "Coach")
		}
		r.writePlain("[%s] %s: %s\n", formatter.FormatDate(m.Timestamp, now), who, m.Content)
	}
	return nil
}

// ChatPersonas lists the coach personas.
func (r *Runner) ChatPersonas(ctx context.Context, cmd *cli.Command) error {
	if err := r.restore(ctx); err != nil {
		return err
	}

	personas, err := r.client.Personas(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch personas: %w", err)
	}

	r.writePlainHeader("Coaches")
	for _, p := range personas {
		if p.Description == "" {
			r.writePlain("• %s\n", p.Name)
			continue
		}
		r.writePlain("• %s: %s\n", p.Name, p.Description)
	}
	return nil
}

func orFallback(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
