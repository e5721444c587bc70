package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/querylog/internal/entities"
)

// RunStore reads the run ledger.
type RunStore interface {
	List(limit, offset int) ([]entities.IngestRun, int64, error)
	GetByID(id string) (*entities.IngestRun, error)
}

const defaultRunsPageSize = 50

// RunsController exposes the ingest run ledger and the files runs produced.
type RunsController struct {
	store RunStore
}

func NewRunsController(store RunStore) *RunsController {
	return &RunsController{store: store}
}

// ListRuns handles GET /api/runs?limit=&offset=
func (rc *RunsController) ListRuns(c *gin.Context) {
	limit, ok := parseIntQuery(c, "limit", defaultRunsPageSize)
	if !ok {
		return
	}
	offset, ok := parseIntQuery(c, "offset", 0)
	if !ok {
		return
	}
	if limit == 0 {
		limit = defaultRunsPageSize
	}

	runs, total, err := rc.store.List(limit, offset)
	if err != nil {
		respondInternalError(c, err, "list runs")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    runs,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(runs)) < total,
	})
}

// GetRun handles GET /api/runs/:id
func (rc *RunsController) GetRun(c *gin.Context) {
	run, ok := rc.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, run)
}

// DownloadCategory handles GET /api/runs/:id/categories/:category
// and serves the CSV file the run produced for that category.
func (rc *RunsController) DownloadCategory(c *gin.Context) {
	run, ok := rc.lookup(c)
	if !ok {
		return
	}

	category := c.Param("category")
	for _, rcat := range run.Categories {
		if rcat.Category == category {
			c.FileAttachment(rcat.Path, category+".csv")
			return
		}
	}
	respondNotFound(c, "category")
}

func (rc *RunsController) lookup(c *gin.Context) (*entities.IngestRun, bool) {
	run, err := rc.store.GetByID(c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "run")
		return nil, false
	}
	if err != nil {
		respondInternalError(c, err, "get run")
		return nil, false
	}
	return run, true
}
