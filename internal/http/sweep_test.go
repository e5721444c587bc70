package http

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/querylog/internal/scheduler"
)

func TestSweepController(t *testing.T) {
	gin.SetMode(gin.TestMode)
	next := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	sweeper := &stubSweeper{running: true, next: &next}
	router := NewRouter(RouterConfig{Sweeper: sweeper})

	w := performRequest(router, http.MethodGet, "/api/sweep/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[SweepStatus](t, w)
	assert.True(t, status.Scheduled)
	require.NotNil(t, status.NextRun)
	assert.True(t, next.Equal(*status.NextRun))
	assert.Empty(t, status.LastError)

	w = performRequest(router, http.MethodPost, "/api/sweep/run", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, sweeper.runs)

	sweeper.runErr = errors.New("permission denied")
	w = performRequest(router, http.MethodPost, "/api/sweep/run", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "sweep_failed", decode[ErrorResponse](t, w).Code)

	w = performRequest(router, http.MethodGet, "/api/sweep/status", nil)
	assert.Equal(t, "permission denied", decode[SweepStatus](t, w).LastError)
}

func TestSweepController_SweepInProgress(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sweeper := &stubSweeper{running: true, runErr: scheduler.ErrSweepInProgress}
	router := NewRouter(RouterConfig{Sweeper: sweeper})

	w := performRequest(router, http.MethodPost, "/api/sweep/run", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "sweep_in_progress", decode[ErrorResponse](t, w).Code)
}
