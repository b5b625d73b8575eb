package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Ingest reprocesses saved webhook payload files (*.json) from a directory,
// in filename order, with the same keep-going semantics as the batch
// endpoint.
func (a *Application) Ingest(ctx context.Context, dir string) error {
	log := a.base.Logger

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list payload files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no *.json payload files in %s", dir)
	}
	sort.Strings(files)

	payloads := make([]json.RawMessage, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		payloads = append(payloads, data)
	}

	result := a.webhookService.ProcessPayloads(ctx, payloads)

	log.Infow("ingest finished",
		"total", result.Total,
		"processed", result.Processed,
		"failed", result.Failed,
	)
	for _, e := range result.Errors {
		log.Warnw("payload failed", "file", files[e.Index], "error", e.Error)
	}

	if result.Failed > 0 {
		return fmt.Errorf("%d of %d payloads failed", result.Failed, result.Total)
	}
	return nil
}
