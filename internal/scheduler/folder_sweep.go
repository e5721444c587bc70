package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/querylog/internal/entities"
	"github.com/mrlokans/querylog/internal/tasks"
)

// ErrSweepInProgress is returned by RunNow when another sweep has not
// finished yet.
var ErrSweepInProgress = errors.New("sweep already in progress")

// FolderSweepScheduler periodically re-ingests a watched folder. Output
// files are recreated on every sweep, so the result always mirrors the
// folder's current content.
type FolderSweepScheduler struct {
	provider  tasks.RunnerProvider
	dir       string
	outputDir string
	schedule  string

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	sweeping  atomic.Bool

	// guarded separately: Stop holds mu while waiting for a sweep
	errMu   sync.Mutex
	lastErr error
}

func NewFolderSweepScheduler(provider tasks.RunnerProvider, dir, outputDir, schedule string) *FolderSweepScheduler {
	return &FolderSweepScheduler{
		provider:  provider,
		dir:       dir,
		outputDir: outputDir,
		schedule:  schedule,
		cron:      newCron(),
	}
}

// Start schedules the sweep. The scheduler stops when ctx is cancelled.
func (s *FolderSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.dir == "" {
		log.Printf("[SWEEP] Watch directory not configured, skipping")
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		_ = s.sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule folder sweep: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := NextRunTime(s.schedule, time.Now())
	log.Printf("[SWEEP] Watching %s with schedule '%s'. Next run: %v", s.dir, s.schedule, nextRun)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *FolderSweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.isRunning = false

	log.Printf("[SWEEP] Stopped")
}

func (s *FolderSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next sweep will occur.
func (s *FolderSweepScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// RunNow sweeps immediately and returns the sweep's error, or
// ErrSweepInProgress without sweeping if another sweep is running.
func (s *FolderSweepScheduler) RunNow(ctx context.Context) error {
	return s.sweep(ctx)
}

func (s *FolderSweepScheduler) LastError() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

func (s *FolderSweepScheduler) sweep(ctx context.Context) error {
	if !s.sweeping.CompareAndSwap(false, true) {
		log.Printf("[SWEEP] Previous sweep still running, skipping")
		return ErrSweepInProgress
	}
	defer s.sweeping.Store(false)

	runner := s.provider.Runner(entities.RunTriggerSweep, "")
	outcomes, total, err := runner.RunFolder(ctx, s.dir, s.outputDir)

	s.errMu.Lock()
	s.lastErr = err
	s.errMu.Unlock()

	if err != nil {
		log.Printf("[SWEEP] Sweep of %s failed: %v", s.dir, err)
		return err
	}
	log.Printf("[SWEEP] Swept %s into %s: %d run(s), %d lines, %d routed",
		s.dir, s.outputDir, len(outcomes), total.Lines, total.Routed)
	return nil
}
