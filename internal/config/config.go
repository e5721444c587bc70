package config

import (
	"runtime"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Output
		Ingest
		Database
		Watch
		Runs
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Output struct {
		Dir          string // Root directory for per-category CSV files
		Prefix       string // When set, files are named "<prefix>_<category>.csv" instead
		FolderSuffix string // Folder mode writes to "<folder>_<suffix>" by default
	}
	Ingest struct {
		Delimiter          string
		CategoryField      string
		CategoryFilter     string // Comma-separated, case-insensitive; empty keeps everything
		AlwaysInclude      string // Comma-separated categories added to any non-empty filter
		OmitCategoryColumn bool
		BatchSize          int
		Workers            int
	}
	Database struct {
		Path string
	}
	Watch struct {
		Enabled  bool
		Dir      string
		Schedule string // Cron format: "*/30 * * * *" = every 30 minutes
	}
	Runs struct {
		RetentionDays int // Days to keep run ledger entries (default: 30)
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8189)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("output_prefix", "")
	v.SetDefault("output_folder_suffix", DefaultFolderSuffix)

	v.SetDefault("csv_delimiter", DefaultDelimiter)
	v.SetDefault("category_field", DefaultCategoryField)
	v.SetDefault("category_filter", "")
	v.SetDefault("category_always_include", "")
	v.SetDefault("omit_category_column", false)
	v.SetDefault("batch_size", DefaultBatchSize)
	v.SetDefault("ingest_workers", runtime.NumCPU())

	v.SetDefault("database_path", DefaultDatabasePath)

	v.SetDefault("watch_enabled", false)
	v.SetDefault("watch_dir", "")
	v.SetDefault("watch_schedule", "*/30 * * * *")

	v.SetDefault("run_retention_days", 30)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "30m")
	v.SetDefault("task_release_after", "1h")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Output: Output{
			Dir:          v.GetString("OUTPUT_DIR"),
			Prefix:       v.GetString("OUTPUT_PREFIX"),
			FolderSuffix: v.GetString("OUTPUT_FOLDER_SUFFIX"),
		},
		Ingest: Ingest{
			Delimiter:          v.GetString("CSV_DELIMITER"),
			CategoryField:      v.GetString("CATEGORY_FIELD"),
			CategoryFilter:     v.GetString("CATEGORY_FILTER"),
			AlwaysInclude:      v.GetString("CATEGORY_ALWAYS_INCLUDE"),
			OmitCategoryColumn: v.GetBool("OMIT_CATEGORY_COLUMN"),
			BatchSize:          v.GetInt("BATCH_SIZE"),
			Workers:            v.GetInt("INGEST_WORKERS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Watch: Watch{
			Enabled:  v.GetBool("WATCH_ENABLED"),
			Dir:      v.GetString("WATCH_DIR"),
			Schedule: v.GetString("WATCH_SCHEDULE"),
		},
		Runs: Runs{
			RetentionDays: v.GetInt("RUN_RETENTION_DAYS"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
	}
}
