package http

import (
	"net/http"

	"github.com/mrlokans/querylog/internal/ingest"
	"github.com/mrlokans/querylog/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database      Pinger
	RunStore      RunStore
	IngestService *ingest.Service

	// Uploads are routed into OutputDir/<run id>
	OutputDir string

	// Task queue client (optional)
	TaskClient tasks.Enqueuer

	// Folder sweep (optional)
	Sweeper Sweeper

	// Prometheus exposition handler (optional)
	Metrics http.Handler

	// Application info
	Version string
}
