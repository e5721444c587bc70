package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/querylog/internal/config"
	"github.com/mrlokans/querylog/internal/database"
	"github.com/mrlokans/querylog/internal/database/runs"
	http_controllers "github.com/mrlokans/querylog/internal/http"
	"github.com/mrlokans/querylog/internal/ingest"
	"github.com/mrlokans/querylog/internal/metrics"
	"github.com/mrlokans/querylog/internal/scheduler"
	"github.com/mrlokans/querylog/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// CheckOutputDir makes sure dir exists and is writable by touching and
// removing an empty file in it.
func CheckOutputDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("output directory is not set")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}

	probe := filepath.Join(dir, ".querylog")
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	f.Close()
	return os.Remove(probe)
}

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	log.Printf("Checking output directory: %s\n", cfg.Output.Dir)
	if err := CheckOutputDir(cfg.Output.Dir); err != nil {
		log.Fatalf("%v", err)
		return
	}

	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		// service connections
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for SIGINT or SIGTERM, then shut down within the configured timeout.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting uploads before the background workers go away.
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting querylog v%s", version)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path, database.WithLogLevel(logger.Warn))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	runStore := runs.NewRepository(db.DB)
	m := metrics.New()

	ingestService := ingest.NewService(ingest.SettingsFromConfig(cfg.Ingest),
		ingest.WithServiceRecorder(runStore),
		ingest.WithServiceObserver(m),
		ingest.WithServiceRunObserver(m),
	)

	// Background context for schedulers and task workers
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var cleanupScheduler *scheduler.RunCleanupScheduler
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewIngestFolderQueue(ingestService, cfg.Output.FolderSuffix),
			tasks.NewCleanupRunsQueue(runStore),
		)
		go taskClient.Start(bgCtx)

		cleanupScheduler = scheduler.NewRunCleanupScheduler(taskClient, scheduler.DefaultCleanupSchedule, cfg.Runs.RetentionDays)
		if err := cleanupScheduler.Start(bgCtx); err != nil {
			log.Printf("WARNING: Failed to start run cleanup: %v", err)
		}
	} else {
		log.Printf("Task queue disabled: folder tasks and ledger cleanup are unavailable")
	}

	// Folder sweep
	var sweeper http_controllers.Sweeper
	var sweepScheduler *scheduler.FolderSweepScheduler
	if cfg.Watch.Enabled {
		sweepScheduler = scheduler.NewFolderSweepScheduler(ingestService, cfg.Watch.Dir, cfg.Output.Dir, cfg.Watch.Schedule)
		if err := sweepScheduler.Start(bgCtx); err != nil {
			log.Fatalf("Failed to start folder sweep: %v", err)
		}
		sweeper = sweepScheduler
	}

	routerCfg := http_controllers.RouterConfig{
		Database:      db,
		RunStore:      runStore,
		IngestService: ingestService,
		OutputDir:     cfg.Output.Dir,
		Sweeper:       sweeper,
		Metrics:       m.Handler(),
		Version:       version,
	}
	if taskClient != nil {
		routerCfg.TaskClient = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		if sweepScheduler != nil {
			sweepScheduler.Stop()
		}
		if cleanupScheduler != nil {
			cleanupScheduler.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		bgCancel()
	}

	Serve(router, cfg, onShutdown)
}
