// Package router fans records out to one buffered CSV file per category.
//
// The set of categories is not known up front: a category's file is created
// the first time a record of that category is dispatched. Records can be
// dispatched from many goroutines at once. Writers of different categories
// never wait on each other, and writers of the same category are serialized
// by that category's sink. Sinks are keyed by file name, so categories that
// sanitize to the same name (e.g. "live:board" and "liveboard") share one
// file and one header.
//
// Typical use:
//
//	rt := router.New(router.DirectoryTarget("./generated_csvs"))
//	defer rt.Close()
//
//	if err := rt.Dispatch(records, runtime.NumCPU()); err != nil {
//		return err // fatal: abort the run
//	}
//	return rt.Flush()
package router

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/querylog/internal/entities"
	"github.com/mrlokans/querylog/internal/registry"
	"github.com/mrlokans/querylog/internal/utils"
)

// CategoryStats describes one category's output at a point in time.
type CategoryStats struct {
	Category      string
	Path          string
	Lines         int
	HeaderWritten bool
}

// CategoryRouter owns the sinks of one output target for the lifetime of a run.
type CategoryRouter struct {
	addr       Addressing
	opener     Opener
	bufferSize int
	sinks      *registry.Registry[*Sink]

	failed   atomic.Bool
	errMu    sync.Mutex
	firstErr error
	closed   atomic.Bool
}

type Option func(*CategoryRouter)

// WithOpener replaces how sink files are created. Mostly useful in tests.
func WithOpener(opener Opener) Option {
	return func(r *CategoryRouter) {
		if opener != nil {
			r.opener = opener
		}
	}
}

// WithBufferSize sets the write buffer size of each sink.
func WithBufferSize(size int) Option {
	return func(r *CategoryRouter) {
		if size > 0 {
			r.bufferSize = size
		}
	}
}

func New(addr Addressing, opts ...Option) *CategoryRouter {
	r := &CategoryRouter{
		addr:       addr,
		opener:     CreateFile,
		bufferSize: defaultBufferSize,
		sinks:      registry.New[*Sink](registry.WithNormalizer(utils.SanitizeCategory)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *CategoryRouter) Addressing() Addressing {
	return r.addr
}

// Dispatch appends every record to the sink of its category, spreading the
// batch over parallelism goroutines. It returns once every record has been
// written, or with the first fatal error. After a fatal error the router
// refuses further work with ErrStateCorrupted.
func (r *CategoryRouter) Dispatch(records []entities.Record, parallelism int) error {
	if err := r.healthy(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	if parallelism < 1 {
		parallelism = 1
	}
	if parallelism > len(records) {
		parallelism = len(records)
	}
	chunk := (len(records) + parallelism - 1) / parallelism

	var g errgroup.Group
	for start := 0; start < len(records); start += chunk {
		part := records[start:min(start+chunk, len(records))]
		g.Go(func() error {
			for _, rec := range part {
				if r.failed.Load() {
					return nil
				}
				if err := r.route(rec); err != nil {
					r.fail(err)
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// workers stop early when a concurrent Dispatch fails
	return r.healthy()
}

func (r *CategoryRouter) route(rec entities.Record) error {
	category, err := rec.Category()
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	sink, err := r.GetOrCreateSink(category)
	if err != nil {
		return err
	}
	return r.WriteRecord(rec, sink)
}

// GetOrCreateSink returns the sink of category, creating its file on first
// use. Creation failures are not retried and leave nothing registered.
func (r *CategoryRouter) GetOrCreateSink(category string) (*Sink, error) {
	sink, _, err := r.sinks.GetOrCreate(category, func(name string) (*Sink, error) {
		path := r.addr.PathFor(name)
		out, err := r.opener(path)
		if err != nil {
			return nil, fmt.Errorf("%w %q at %s: %w", ErrSinkCreation, category, path, err)
		}
		return newSink(name, path, out, r.bufferSize), nil
	})
	if err != nil {
		r.fail(err)
		return nil, err
	}
	return sink, nil
}

// WriteRecord appends rec to sink, with the header line if it is the first
// record of the category.
func (r *CategoryRouter) WriteRecord(rec entities.Record, sink *Sink) error {
	if err := sink.Write(rec); err != nil {
		r.fail(err)
		return err
	}
	return nil
}

// Flush forces every sink's buffer to its file.
func (r *CategoryRouter) Flush() error {
	var errs []error
	r.sinks.Range(func(_ string, sink *Sink) bool {
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	if err := errors.Join(errs...); err != nil {
		r.fail(err)
		return err
	}
	return nil
}

// Close flushes and closes every sink. It is safe to call more than once.
func (r *CategoryRouter) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	var errs []error
	r.sinks.Range(func(_ string, sink *Sink) bool {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errs...)
}

// Categories returns the file names of the categories seen so far, sorted.
func (r *CategoryRouter) Categories() []string {
	return r.sinks.Keys()
}

// HeaderEmitted reports whether the header of category has been written.
func (r *CategoryRouter) HeaderEmitted(category string) bool {
	sink, ok := r.sinks.Get(category)
	return ok && sink.HeaderWritten()
}

// Stats returns per-category output counts, sorted by category.
func (r *CategoryRouter) Stats() []CategoryStats {
	stats := make([]CategoryStats, 0, r.sinks.Len())
	r.sinks.Range(func(category string, sink *Sink) bool {
		stats = append(stats, CategoryStats{
			Category:      category,
			Path:          sink.Path(),
			Lines:         sink.Lines(),
			HeaderWritten: sink.HeaderWritten(),
		})
		return true
	})
	return stats
}

// Err returns the fatal error that stopped the router, if any.
func (r *CategoryRouter) Err() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.firstErr
}

func (r *CategoryRouter) healthy() error {
	if r.closed.Load() {
		return ErrClosed
	}
	if r.failed.Load() {
		return fmt.Errorf("%w: %w", ErrStateCorrupted, r.Err())
	}
	return nil
}

func (r *CategoryRouter) fail(err error) {
	r.errMu.Lock()
	if r.firstErr == nil {
		r.firstErr = err
	}
	r.errMu.Unlock()
	r.failed.Store(true)
}
