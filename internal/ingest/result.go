package ingest

import (
	"sort"
	"time"

	"github.com/mrlokans/querylog/internal/flatten"
)

// Result summarizes one or more ingested sources.
type Result struct {
	Lines      int
	Routed     int
	Dropped    map[flatten.DropReason]int
	Categories map[string]int
	Duration   time.Duration
}

func NewResult() Result {
	return Result{
		Dropped:    make(map[flatten.DropReason]int),
		Categories: make(map[string]int),
	}
}

// DroppedTotal is the number of lines that did not reach a sink.
func (r Result) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// CategoryNames returns the routed categories, sorted.
func (r Result) CategoryNames() []string {
	names := make([]string, 0, len(r.Categories))
	for name := range r.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge adds other into r.
func (r *Result) Merge(other Result) {
	if r.Dropped == nil {
		r.Dropped = make(map[flatten.DropReason]int)
	}
	if r.Categories == nil {
		r.Categories = make(map[string]int)
	}
	r.Lines += other.Lines
	r.Routed += other.Routed
	for reason, n := range other.Dropped {
		r.Dropped[reason] += n
	}
	for category, n := range other.Categories {
		r.Categories[category] += n
	}
	r.Duration += other.Duration
}
