package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/querylog/internal/scheduler"
)

// Sweeper is the scheduled folder sweep as seen by the API.
type Sweeper interface {
	RunNow(ctx context.Context) error
	IsRunning() bool
	GetNextRunTime() *time.Time
	LastError() error
}

type SweepController struct {
	sweeper Sweeper
}

func NewSweepController(sweeper Sweeper) *SweepController {
	return &SweepController{sweeper: sweeper}
}

type SweepStatus struct {
	Scheduled bool       `json:"scheduled"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// GetStatus handles GET /api/sweep/status
func (sc *SweepController) GetStatus(c *gin.Context) {
	status := SweepStatus{
		Scheduled: sc.sweeper.IsRunning(),
		NextRun:   sc.sweeper.GetNextRunTime(),
	}
	if err := sc.sweeper.LastError(); err != nil {
		status.LastError = err.Error()
	}
	c.JSON(http.StatusOK, status)
}

// SweepNow handles POST /api/sweep/run
// It blocks until the sweep finishes.
func (sc *SweepController) SweepNow(c *gin.Context) {
	err := sc.sweeper.RunNow(c.Request.Context())
	if errors.Is(err, scheduler.ErrSweepInProgress) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "sweep_in_progress"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "sweep_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sweep completed"})
}
