package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/shared"
	"github.com/urfave/cli/v3"
)

// UploadVideo uploads a training video, printing progress as it goes.
func (r *Runner) UploadVideo(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	defer file.Close()

	if err := r.restore(ctx); err != nil {
		return err
	}

	metadata := map[string]any{}
	if title := cmd.String("title"); title != "" {
		metadata["title"] = title
	}
	if kind := cmd.String("type"); kind != "" {
		metadata["type"] = kind
	}

	r.logger.Info("uploading video", "path", path)
	r.writePlain("📤 Uploading %s\n", filepath.Base(path))

	var mu sync.Mutex
	reported := -1
	resp, err := r.client.UploadVideo(ctx, filepath.Base(path), file, metadata, func(fraction float64) {
		mu.Lock()
		defer mu.Unlock()
		step := int(fraction*100) / 25 * 25
		if step > reported {
			reported = step
			r.writePlain("   %d%%\n", step)
		}
	})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	var upload models.VideoUpload
	if err := resp.Decode(&upload); err != nil {
		return err
	}
	r.writePlain("✓ Uploaded video %s (%s)\n", upload.ID, upload.Status)
	return nil
}
