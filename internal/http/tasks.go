package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/querylog/internal/tasks"
)

// TasksController handles task queue management endpoints.
type TasksController struct {
	client tasks.Enqueuer
}

func NewTasksController(client tasks.Enqueuer) *TasksController {
	return &TasksController{client: client}
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ListTaskTypes handles GET /api/tasks/types
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	types := []TaskTypeInfo{
		{
			Type:        tasks.IngestFolderTask{}.Config().Name,
			Description: "Route every log file below a server-side folder into CSV files",
		},
		{
			Type:        tasks.CleanupRunsTask{}.Config().Name,
			Description: "Delete ledger entries older than the retention period",
		},
	}

	c.JSON(http.StatusOK, gin.H{
		"task_types": types,
	})
}

// IngestFolderRequest is the body of POST /api/tasks/ingest-folder.
type IngestFolderRequest struct {
	Folder     string `json:"folder" binding:"required"`
	OutputDir  string `json:"output_dir"`
	Categories string `json:"categories"`
}

// IngestFolder handles POST /api/tasks/ingest-folder
// The folder is read on the server; the run happens in the background.
func (tc *TasksController) IngestFolder(c *gin.Context) {
	var req IngestFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "folder is required")
		return
	}

	id, err := tc.client.Enqueue(tasks.IngestFolderTask{
		Folder:     req.Folder,
		OutputDir:  req.OutputDir,
		Categories: req.Categories,
	})
	if err != nil {
		respondInternalError(c, err, "enqueue ingest folder")
		return
	}
	tc.respondEnqueued(c, id, tasks.IngestFolderTask{}.Config().Name)
}

// CleanupRunsRequest is the optional body of POST /api/tasks/cleanup-runs.
type CleanupRunsRequest struct {
	RetentionDays int `json:"retention_days"`
}

// CleanupRuns handles POST /api/tasks/cleanup-runs
func (tc *TasksController) CleanupRuns(c *gin.Context) {
	var req CleanupRunsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil || req.RetentionDays < 0 {
			respondBadRequest(c, "invalid retention_days")
			return
		}
	}

	id, err := tc.client.Enqueue(tasks.CleanupRunsTask{RetentionDays: req.RetentionDays})
	if err != nil {
		respondInternalError(c, err, "enqueue cleanup runs")
		return
	}
	tc.respondEnqueued(c, id, tasks.CleanupRunsTask{}.Config().Name)
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.client.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": tasks.StatusString(status),
	})
}

func (tc *TasksController) respondEnqueued(c *gin.Context, taskID, taskType string) {
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task_id": taskID,
		"type":    taskType,
		"message": "task enqueued",
	})
}
