package http

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/querylog/internal/database"
)

func setupHealthTestDB(t *testing.T) *database.Database {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "health.db"), database.WithLogLevel(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type stubSweeper struct {
	runErr  error
	lastErr error
	running bool
	next    *time.Time
	runs    int
}

func (s *stubSweeper) RunNow(context.Context) error {
	s.runs++
	s.lastErr = s.runErr
	return s.runErr
}

func (s *stubSweeper) IsRunning() bool            { return s.running }
func (s *stubSweeper) GetNextRunTime() *time.Time { return s.next }
func (s *stubSweeper) LastError() error           { return s.lastErr }

func serveHealth(t *testing.T, controller *HealthController) (int, HealthResponse) {
	router := gin.New()
	router.GET("/health", controller.Status)
	w := performRequest(router, http.MethodGet, "/health", nil)
	return w.Code, decode[HealthResponse](t, w)
}

func TestHealthController_Status(t *testing.T) {
	t.Run("returns healthy when database is connected", func(t *testing.T) {
		code, response := serveHealth(t, NewHealthController(setupHealthTestDB(t), nil, "1.0.0"))

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "1.0.0", response.Version)
		assert.Equal(t, "ok", response.Checks["database"])
		assert.Contains(t, response.Time, "T")
	})

	t.Run("returns healthy when database is nil", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		_, response := serveHealth(t, NewHealthController(nil, nil, "1.0.0"))

		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "not configured", response.Checks["database"])
	})

	t.Run("returns unhealthy when database connection is closed", func(t *testing.T) {
		db := setupHealthTestDB(t)
		require.NoError(t, db.Close())

		code, response := serveHealth(t, NewHealthController(db, nil, "1.0.0"))

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Contains(t, response.Checks["database"], "error")
	})

	t.Run("reports sweep failures without failing health", func(t *testing.T) {
		sweeper := &stubSweeper{lastErr: errors.New("folder vanished")}
		_, response := serveHealth(t, NewHealthController(setupHealthTestDB(t), sweeper, ""))

		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "error: folder vanished", response.Checks["sweep"])
		assert.Empty(t, response.Version)
	})
}
