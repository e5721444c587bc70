package entities

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

type RunTrigger string

const (
	RunTriggerCLI   RunTrigger = "cli"
	RunTriggerHTTP  RunTrigger = "http"
	RunTriggerTask  RunTrigger = "task"
	RunTriggerSweep RunTrigger = "sweep"
)

// IngestRun is one pass of the pipeline over a single output target.
type IngestRun struct {
	ID         string        `gorm:"primaryKey;size:36" json:"id"`
	Trigger    RunTrigger    `gorm:"index;size:20" json:"trigger"`
	Source     string        `gorm:"size:1024" json:"source"`     // input file, folder or "stdin"
	OutputPath string        `gorm:"size:1024" json:"output_path"` // output directory or prefix
	Filter     string        `gorm:"size:1024" json:"filter,omitempty"`
	Status     RunStatus     `gorm:"index;size:20" json:"status"`
	Lines      int           `json:"lines"`
	Routed     int           `json:"routed"`
	Invalid    int           `json:"invalid"`
	Upstream   int           `json:"upstream"`
	Filtered   int           `json:"filtered"`
	ErrorMsg   string        `gorm:"size:500" json:"error_msg,omitempty"`
	Categories []RunCategory `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"categories,omitempty"`
	StartedAt  time.Time     `gorm:"index" json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

func (IngestRun) TableName() string {
	return "ingest_runs"
}

// RunCategory holds the per-category outcome of a run.
type RunCategory struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	RunID    string `gorm:"index;size:36" json:"-"`
	Category string `gorm:"size:255" json:"category"`
	Path     string `gorm:"size:1024" json:"path"`
	Lines    int    `json:"lines"`
}

func (RunCategory) TableName() string {
	return "run_categories"
}
