package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Optional dependencies left nil in cfg simply leave their routes out.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Sweeper, cfg.Version)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	api := router.Group("/api")

	if cfg.IngestService != nil {
		ingestController := NewIngestController(cfg.IngestService, cfg.OutputDir)
		api.POST("/ingest", ingestController.Ingest)
	}

	// Run ledger endpoints
	if cfg.RunStore != nil {
		runsController := NewRunsController(cfg.RunStore)
		api.GET("/runs", runsController.ListRuns)
		api.GET("/runs/:id", runsController.GetRun)
		api.GET("/runs/:id/categories/:category", runsController.DownloadCategory)
	}

	// Task management endpoints
	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient)
		api.GET("/tasks/types", tasksController.ListTaskTypes)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
		api.POST("/tasks/ingest-folder", tasksController.IngestFolder)
		api.POST("/tasks/cleanup-runs", tasksController.CleanupRuns)
	}

	if cfg.Sweeper != nil {
		sweepController := NewSweepController(cfg.Sweeper)
		api.GET("/sweep/status", sweepController.GetStatus)
		api.POST("/sweep/run", sweepController.SweepNow)
	}

	return router
}
