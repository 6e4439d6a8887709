package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/desertthunder/oracle/internal/server"
	"github.com/urfave/cli/v3"
)

// DevServe runs the in-memory development API until interrupted.
func (r *Runner) DevServe(ctx context.Context, cmd *cli.Command) error {
	dev := r.config.Dev
	if host := cmd.String("host"); host != "" {
		dev.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		dev.Port = port
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := server.NewDevRouter(server.NewDevAPI(server.DevOptions{Logger: r.logger, Now: r.now}), r.logger)
	r.writePlain("Development API at http://%s (set api.host = \"localhost\" to use it)\n", dev.Addr())

	if err := server.Serve(ctx, dev.Addr(), handler, r.logger); err != nil {
		return fmt.Errorf("dev server: %w", err)
	}
	r.logger.Info("dev server stopped")
	return nil
}
