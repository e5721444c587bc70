package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/querylog/internal/tasks"
)

// DefaultCleanupSchedule runs the ledger cleanup daily at 03:00.
const DefaultCleanupSchedule = "0 3 * * *"

// RunCleanupScheduler enqueues a CleanupRunsTask on a schedule. The task
// queue does the deleting, so retries and history come for free.
type RunCleanupScheduler struct {
	enqueuer      tasks.Enqueuer
	schedule      string
	retentionDays int

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

func NewRunCleanupScheduler(enqueuer tasks.Enqueuer, schedule string, retentionDays int) *RunCleanupScheduler {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	return &RunCleanupScheduler{
		enqueuer:      enqueuer,
		schedule:      schedule,
		retentionDays: retentionDays,
		cron:          newCron(),
	}
}

func (s *RunCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.retentionDays <= 0 {
		log.Printf("[CLEANUP] Run retention disabled, ledger cleanup not scheduled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.enqueue() }); err != nil {
		return fmt.Errorf("failed to schedule run cleanup: %w", err)
	}
	s.cron.Start()
	s.isRunning = true

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *RunCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
}

func (s *RunCleanupScheduler) enqueue() {
	id, err := s.enqueuer.Enqueue(tasks.CleanupRunsTask{RetentionDays: s.retentionDays})
	if err != nil {
		log.Printf("[CLEANUP] Failed to enqueue run cleanup: %v", err)
		return
	}
	log.Printf("[CLEANUP] Enqueued run cleanup task %s", id)
}
