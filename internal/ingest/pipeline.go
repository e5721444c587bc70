package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/querylog/internal/entities"
	"github.com/mrlokans/querylog/internal/flatten"
	"github.com/mrlokans/querylog/internal/router"
)

const (
	DefaultBatchSize = 500

	// MaxLineSize bounds a single input line. Longer lines fail the run.
	MaxLineSize = 16 * 1024 * 1024
)

// Observer receives progress of a pipeline. Implementations must be safe for
// concurrent use, since several pipelines may share one observer.
type Observer interface {
	BatchProcessed(lines int, routed map[string]int, dropped map[flatten.DropReason]int)
}

// Pipeline reads NDJSON lines in batches, flattens them in parallel and
// dispatches the surviving records to a router.
type Pipeline struct {
	flattener *flatten.Flattener
	filter    flatten.FilterSet
	batchSize int
	workers   int
	observer  Observer
}

type PipelineOption func(*Pipeline)

func WithFilter(filter flatten.FilterSet) PipelineOption {
	return func(p *Pipeline) {
		p.filter = filter
	}
}

func WithBatchSize(size int) PipelineOption {
	return func(p *Pipeline) {
		if size > 0 {
			p.batchSize = size
		}
	}
}

func WithWorkers(workers int) PipelineOption {
	return func(p *Pipeline) {
		if workers > 0 {
			p.workers = workers
		}
	}
}

func WithObserver(observer Observer) PipelineOption {
	return func(p *Pipeline) {
		p.observer = observer
	}
}

func NewPipeline(flattener *flatten.Flattener, opts ...PipelineOption) *Pipeline {
	if flattener == nil {
		flattener = flatten.New()
	}
	p := &Pipeline{
		flattener: flattener,
		batchSize: DefaultBatchSize,
		workers:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Filter() flatten.FilterSet {
	return p.filter
}

// Run consumes r until EOF and routes every accepted line through rt. The
// router is flushed before Run returns successfully. Cancellation is
// observed between batches; a batch that has started always completes.
func (p *Pipeline) Run(ctx context.Context, r io.Reader, rt *router.CategoryRouter) (Result, error) {
	start := time.Now()
	res := NewResult()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	batch := make([]string, 0, p.batchSize)
	process := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		err := p.processBatch(batch, rt, &res)
		batch = batch[:0]
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		batch = append(batch, line)
		if len(batch) >= p.batchSize {
			if err := process(); err != nil {
				res.Duration = time.Since(start)
				return res, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		res.Duration = time.Since(start)
		return res, fmt.Errorf("read input: %w", err)
	}
	if err := process(); err != nil {
		res.Duration = time.Since(start)
		return res, err
	}

	err := rt.Flush()
	res.Duration = time.Since(start)
	return res, err
}

func (p *Pipeline) processBatch(lines []string, rt *router.CategoryRouter, res *Result) error {
	records := make([]entities.Record, len(lines))
	errs := make([]error, len(lines))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, line := range lines {
		g.Go(func() error {
			records[i], errs[i] = p.flattener.Flatten(line, p.filter)
			return nil
		})
	}
	_ = g.Wait()

	accepted := records[:0]
	routed := make(map[string]int)
	dropped := make(map[flatten.DropReason]int)
	for i, err := range errs {
		if err != nil {
			reason, ok := flatten.ReasonOf(err)
			if !ok {
				return fmt.Errorf("flatten line: %w", err)
			}
			dropped[reason]++
			continue
		}
		category, _ := records[i].Category()
		routed[category]++
		accepted = append(accepted, records[i])
	}

	if err := rt.Dispatch(accepted, p.workers); err != nil {
		return err
	}

	res.Lines += len(lines)
	res.Routed += len(accepted)
	for reason, n := range dropped {
		res.Dropped[reason] += n
	}
	for category, n := range routed {
		res.Categories[category] += n
	}
	if p.observer != nil {
		p.observer.BatchProcessed(len(lines), routed, dropped)
	}
	return nil
}
