package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/oracle/internal/router"
	"github.com/desertthunder/oracle/internal/shared"
	"github.com/desertthunder/oracle/internal/storage"
	"github.com/desertthunder/oracle/internal/tasks"
	"github.com/desertthunder/oracle/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive training client.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.UI.LogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	if err := r.connect(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shell := ui.NewShell(r.now)
	deps := &ui.Deps{
		Ctx:     ctx,
		Session: r.auth,
		API:     r.client,
		Board:   r.board,
		Syncer:  tasks.NewSyncer(r.client, r.logger),
		Toaster: shell,
		Logger:  r.logger,
		Now:     r.now,

		StaticCursor: r.config.UI.StaticCursor,
	}
	screens := ui.NewScreens(deps)

	nav, err := router.New(router.Options{
		Routes:       router.DefaultRoutes(ui.Views(screens)),
		Auth:         r.auth,
		Shell:        shell,
		Location:     router.NewMemoryLocation("/"),
		HistoryLimit: r.config.Session.HistoryLimit,
		Logger:       r.logger,
		Now:          r.now,
	})
	if err != nil {
		return err
	}
	r.auth.SetRedirector(nav)

	if r.store != nil {
		watcher := storage.NewWatcher(r.store, r.logger, storage.WithPollInterval(r.config.Storage.PollInterval))
		go watcher.Start(ctx)
		go r.auth.Reconcile(ctx, watcher.Events())
	}

	r.auth.Init(ctx)
	r.auth.StartSessionCheck(ctx)
	defer r.auth.StopSessionCheck()

	r.logger.Info("starting TUI")
	return ui.Run(ctx, ui.NewModel(ctx, deps, nav, shell, screens))
}
