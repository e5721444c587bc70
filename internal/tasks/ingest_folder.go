package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/querylog/internal/entities"
	"github.com/mrlokans/querylog/internal/ingest"
)

// RunnerProvider hands out runners configured for a trigger and an optional
// category filter override.
type RunnerProvider interface {
	Runner(trigger entities.RunTrigger, categories string) *ingest.Runner
}

// IngestFolderTask routes every log file below Folder into per-category CSV files.
type IngestFolderTask struct {
	Folder string `json:"folder"`
	// OutputDir defaults to "<folder>_<suffix>"
	OutputDir string `json:"output_dir,omitempty"`
	// Categories optionally replaces the configured category filter
	Categories string `json:"categories,omitempty"`
}

// Config returns the queue configuration for folder ingestion tasks.
// Output files are truncated on first use, so a retried attempt starts over.
func (t IngestFolderTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "ingest_folder",
		MaxAttempts: 2,
		Backoff:     time.Minute,
		Timeout:     60 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// IngestFolderProcessor creates a processor function for IngestFolderTask.
func IngestFolderProcessor(provider RunnerProvider, folderSuffix string) backlite.QueueProcessor[IngestFolderTask] {
	return func(ctx context.Context, task IngestFolderTask) error {
		if provider == nil {
			return fmt.Errorf("ingest runner not configured")
		}
		if task.Folder == "" {
			return fmt.Errorf("ingest folder: folder is required")
		}

		outputDir := task.OutputDir
		if outputDir == "" {
			outputDir = ingest.DefaultFolderOutput(task.Folder, folderSuffix)
		}

		runner := provider.Runner(entities.RunTriggerTask, task.Categories)
		outcomes, total, err := runner.RunFolder(ctx, task.Folder, outputDir)
		if err != nil {
			return fmt.Errorf("ingest folder %s: %w", task.Folder, err)
		}

		log.Printf("[TASK] Folder %s ingested into %s: %d run(s), %d lines, %d routed, %d dropped",
			task.Folder, outputDir, len(outcomes), total.Lines, total.Routed, total.DroppedTotal())
		return nil
	}
}

// NewIngestFolderQueue creates a backlite queue for folder ingestion tasks.
func NewIngestFolderQueue(provider RunnerProvider, folderSuffix string) backlite.Queue {
	return backlite.NewQueue(IngestFolderProcessor(provider, folderSuffix))
}
