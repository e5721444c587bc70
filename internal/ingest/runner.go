package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/querylog/internal/entities"
	"github.com/mrlokans/querylog/internal/flatten"
	"github.com/mrlokans/querylog/internal/router"
	"github.com/mrlokans/querylog/internal/utils"
)

// maxErrorMessage bounds the error text stored in the ledger.
const maxErrorMessage = 500

// RunRecorder persists the ledger entry of each run.
type RunRecorder interface {
	StartRun(run *entities.IngestRun) error
	FinishRun(run *entities.IngestRun) error
}

// RunObserver is notified once per finished run.
type RunObserver interface {
	RunFinished(run *entities.IngestRun)
}

// Outcome is the ledger entry and counts of one run.
type Outcome struct {
	Run    *entities.IngestRun
	Result Result
}

// Runner drives a Pipeline over files, folders and streams. Every call
// creates fresh routers, so sinks never outlive a run.
type Runner struct {
	pipeline   *Pipeline
	recorder   RunRecorder
	observer   RunObserver
	trigger    entities.RunTrigger
	routerOpts []router.Option
}

type RunnerOption func(*Runner)

func WithRecorder(recorder RunRecorder) RunnerOption {
	return func(r *Runner) {
		r.recorder = recorder
	}
}

func WithRunObserver(observer RunObserver) RunnerOption {
	return func(r *Runner) {
		r.observer = observer
	}
}

func WithTrigger(trigger entities.RunTrigger) RunnerOption {
	return func(r *Runner) {
		r.trigger = trigger
	}
}

func WithRouterOptions(opts ...router.Option) RunnerOption {
	return func(r *Runner) {
		r.routerOpts = append(r.routerOpts, opts...)
	}
}

func NewRunner(pipeline *Pipeline, opts ...RunnerOption) *Runner {
	r := &Runner{
		pipeline: pipeline,
		trigger:  entities.RunTriggerCLI,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ForTrigger returns a copy of the runner that records runs under trigger.
func (r *Runner) ForTrigger(trigger entities.RunTrigger) *Runner {
	clone := *r
	clone.trigger = trigger
	return &clone
}

// RunFile routes one input file (plain, .gz or every entry of a .zip) to addr.
func (r *Runner) RunFile(ctx context.Context, path string, addr router.Addressing) (Outcome, error) {
	sources, err := Expand(path)
	if err != nil {
		return Outcome{}, err
	}
	return r.run(ctx, "", path, sources, addr)
}

// RunReader routes a single stream, such as stdin or a request body, to addr.
func (r *Runner) RunReader(ctx context.Context, name string, in io.Reader, addr router.Addressing) (Outcome, error) {
	return r.run(ctx, "", name, []Source{ReaderSource(name, in)}, addr)
}

// RunReaderAs is RunReader with a caller-chosen run ID, for callers that
// derive the output location from the ID before the run starts.
func (r *Runner) RunReaderAs(ctx context.Context, runID, name string, in io.Reader, addr router.Addressing) (Outcome, error) {
	return r.run(ctx, runID, name, []Source{ReaderSource(name, in)}, addr)
}

// NewRunID returns a fresh ledger ID.
func NewRunID() string {
	return uuid.NewString()
}

func (r *Runner) run(ctx context.Context, runID, label string, sources []Source, addr router.Addressing) (Outcome, error) {
	if runID == "" {
		runID = NewRunID()
	}
	run := &entities.IngestRun{
		ID:         runID,
		Trigger:    r.trigger,
		Source:     label,
		OutputPath: addr.String(),
		Filter:     r.pipeline.Filter().String(),
		Status:     entities.RunStatusRunning,
		StartedAt:  time.Now(),
	}
	if r.recorder != nil {
		if err := r.recorder.StartRun(run); err != nil {
			log.Printf("[INGEST] Failed to record start of run %s: %v", run.ID, err)
		}
	}

	log.Printf("[INGEST] Run %s: %s -> %s (%d source(s))", run.ID, label, addr, len(sources))

	rt := router.New(addr, r.routerOpts...)
	total := NewResult()
	runErr := r.routeSources(ctx, sources, rt, &total)
	if err := rt.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close outputs: %w", err)
	}

	r.finish(run, total, rt.Stats(), runErr)
	return Outcome{Run: run, Result: total}, runErr
}

func (r *Runner) routeSources(ctx context.Context, sources []Source, rt *router.CategoryRouter, total *Result) error {
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		in, err := src.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", src.Name, err)
		}
		res, err := r.pipeline.Run(ctx, in, rt)
		in.Close()
		total.Merge(res)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", src.Name, err)
		}
	}
	return nil
}

func (r *Runner) finish(run *entities.IngestRun, res Result, stats []router.CategoryStats, runErr error) {
	finished := time.Now()
	run.FinishedAt = &finished
	run.Lines = res.Lines
	run.Routed = res.Routed
	run.Invalid = res.Dropped[flatten.ReasonInvalidInput]
	run.Upstream = res.Dropped[flatten.ReasonUpstream]
	run.Filtered = res.Dropped[flatten.ReasonFilteredOut]
	run.Categories = make([]entities.RunCategory, 0, len(stats))
	for _, s := range stats {
		run.Categories = append(run.Categories, entities.RunCategory{
			RunID:    run.ID,
			Category: s.Category,
			Path:     s.Path,
			Lines:    s.Lines,
		})
	}

	run.Status = entities.RunStatusCompleted
	if runErr != nil {
		run.Status = entities.RunStatusFailed
		run.ErrorMsg = utils.TruncateUTF8(runErr.Error(), maxErrorMessage)
	}

	if r.recorder != nil {
		if err := r.recorder.FinishRun(run); err != nil {
			log.Printf("[INGEST] Failed to record result of run %s: %v", run.ID, err)
		}
	}
	if r.observer != nil {
		r.observer.RunFinished(run)
	}

	switch {
	case runErr == nil:
		log.Printf("[INGEST] Run %s completed: %d lines, %d routed into %d categories, %d dropped (%s)",
			run.ID, res.Lines, res.Routed, len(stats), res.DroppedTotal(), finished.Sub(run.StartedAt).Round(time.Millisecond))
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		log.Printf("[INGEST] Run %s cancelled after %d lines", run.ID, res.Lines)
	default:
		log.Printf("[INGEST] Run %s failed after %d lines: %v", run.ID, res.Lines, runErr)
	}
}

