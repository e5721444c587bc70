package http

import (
	"bufio"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/querylog/internal/entities"
	"github.com/mrlokans/querylog/internal/ingest"
	"github.com/mrlokans/querylog/internal/router"
)

// IngestController routes NDJSON request bodies into per-category CSV files.
type IngestController struct {
	service   *ingest.Service
	outputDir string
}

func NewIngestController(service *ingest.Service, outputDir string) *IngestController {
	return &IngestController{
		service:   service,
		outputDir: outputDir,
	}
}

// IngestResponse is returned for every finished upload, failed or not.
type IngestResponse struct {
	Run     *entities.IngestRun `json:"run"`
	Dropped map[string]int      `json:"dropped"`
}

// Ingest handles POST /api/ingest
// The body is newline-delimited JSON. An optional "categories" query
// parameter overrides the configured filter. Each upload gets its own
// output directory named after the run ID.
func (ic *IngestController) Ingest(c *gin.Context) {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		respondBadRequest(c, "request body is empty")
		return
	}

	runID := ingest.NewRunID()
	target := router.DirectoryTarget(filepath.Join(ic.outputDir, runID))

	outcome, err := ic.service.Runner(entities.RunTriggerHTTP, c.Query("categories")).
		RunReaderAs(c.Request.Context(), runID, "http", c.Request.Body, target)

	resp := IngestResponse{Run: outcome.Run, Dropped: make(map[string]int)}
	for reason, n := range outcome.Result.Dropped {
		resp.Dropped[string(reason)] = n
	}

	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, bufio.ErrTooLong) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: "ingest_failed", Details: resp})
		return
	}

	c.JSON(http.StatusOK, resp)
}
