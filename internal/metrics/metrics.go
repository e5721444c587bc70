// Package metrics exposes ingestion counters in the Prometheus format.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrlokans/querylog/internal/entities"
	"github.com/mrlokans/querylog/internal/flatten"
)

const namespace = "querylog"

const (
	// MaxCategoryLabels bounds the category series of RecordsRouted.
	MaxCategoryLabels = 100
	// OtherCategory labels every category past MaxCategoryLabels.
	OtherCategory = "other"
)

// Metrics holds the ingestion collectors on a private registry. It satisfies
// the pipeline and run observer interfaces of the ingest package.
type Metrics struct {
	registry *prometheus.Registry

	LinesRead     prometheus.Counter
	RecordsRouted *prometheus.CounterVec
	LinesDropped  *prometheus.CounterVec
	Runs          *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec

	labelsMu   sync.Mutex
	categories map[string]struct{}
}

func New() *Metrics {
	m := &Metrics{
		registry:   prometheus.NewRegistry(),
		categories: make(map[string]struct{}),

		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "lines_total",
			Help:      "Total number of non-blank input lines read",
		}),
		RecordsRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_routed_total",
			Help:      "Total number of records appended to a category file",
		}, []string{"category"}),
		LinesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "lines_dropped_total",
			Help:      "Total number of input lines dropped, by reason",
		}, []string{"reason"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "total",
			Help:      "Total number of finished ingest runs",
		}, []string{"trigger", "status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "duration_seconds",
			Help:      "Ingest run duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"trigger"}),
	}

	m.registry.MustRegister(
		m.LinesRead,
		m.RecordsRouted,
		m.LinesDropped,
		m.Runs,
		m.RunDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Expose every reason from the start, even before the first drop.
	for _, reason := range flatten.Reasons {
		m.LinesDropped.WithLabelValues(string(reason))
	}
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (m *Metrics) BatchProcessed(lines int, routed map[string]int, dropped map[flatten.DropReason]int) {
	m.LinesRead.Add(float64(lines))
	for category, n := range routed {
		m.RecordsRouted.WithLabelValues(m.categoryLabel(category)).Add(float64(n))
	}
	for reason, n := range dropped {
		m.LinesDropped.WithLabelValues(string(reason)).Add(float64(n))
	}
}

func (m *Metrics) RunFinished(run *entities.IngestRun) {
	m.Runs.WithLabelValues(string(run.Trigger), string(run.Status)).Inc()
	if run.FinishedAt != nil {
		m.RunDuration.WithLabelValues(string(run.Trigger)).Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	}
}

// categoryLabel admits the first MaxCategoryLabels categories as their own
// series and folds the rest into OtherCategory.
func (m *Metrics) categoryLabel(category string) string {
	m.labelsMu.Lock()
	defer m.labelsMu.Unlock()

	if _, ok := m.categories[category]; ok {
		return category
	}
	if len(m.categories) >= MaxCategoryLabels {
		return OtherCategory
	}
	m.categories[category] = struct{}{}
	return category
}
