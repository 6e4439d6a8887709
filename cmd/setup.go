package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/oracle/internal/shared"
	"github.com/desertthunder/oracle/internal/storage"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the default configuration file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	r.logger.Info("config file created", "path", configPath)

	r.writePlain("✓ Configuration written to %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set api.host or api.base_url for your API\n")
	r.writePlain("2. Run 'oracle setup database' to create local storage\n")
	return nil
}

// SetupDatabase initializes the storage database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Storage.Path)

	store, err := storage.Open(r.config.Storage, r.logger)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer store.Close()

	keys, err := store.Keys()
	if err != nil {
		return err
	}
	rev, err := store.Revision()
	if err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Storage.Path)
	return r.writePlain("✓ Storage ready at %s (%d keys, revision %d)\n", r.config.Storage.Path, len(keys), rev)
}
