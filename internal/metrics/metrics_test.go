package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/querylog/internal/entities"
	"github.com/mrlokans/querylog/internal/flatten"
)

func TestMetrics_BatchProcessed(t *testing.T) {
	m := New()

	m.BatchProcessed(10, map[string]int{"liveboard": 6, "vehicle": 1}, map[flatten.DropReason]int{
		flatten.ReasonUpstream:     2,
		flatten.ReasonInvalidInput: 1,
	})
	m.BatchProcessed(5, map[string]int{"liveboard": 5}, nil)

	assert.Equal(t, 15.0, testutil.ToFloat64(m.LinesRead))
	assert.Equal(t, 11.0, testutil.ToFloat64(m.RecordsRouted.WithLabelValues("liveboard")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsRouted.WithLabelValues("vehicle")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LinesDropped.WithLabelValues("upstream_error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LinesDropped.WithLabelValues("filtered_out")))
}

func TestMetrics_CategoryLabelsAreBounded(t *testing.T) {
	m := New()

	for i := 0; i < MaxCategoryLabels+50; i++ {
		m.BatchProcessed(1, map[string]int{fmt.Sprintf("cat-%d", i): 1}, nil)
	}
	m.BatchProcessed(1, map[string]int{"cat-0": 2}, nil)

	assert.Equal(t, MaxCategoryLabels+1, testutil.CollectAndCount(m.RecordsRouted))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsRouted.WithLabelValues("cat-0")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.RecordsRouted.WithLabelValues(OtherCategory)))
}

func TestMetrics_RunFinished(t *testing.T) {
	m := New()

	started := time.Now().Add(-2 * time.Second)
	finished := time.Now()
	m.RunFinished(&entities.IngestRun{
		Trigger:    entities.RunTriggerHTTP,
		Status:     entities.RunStatusCompleted,
		StartedAt:  started,
		FinishedAt: &finished,
	})
	m.RunFinished(&entities.IngestRun{
		Trigger: entities.RunTriggerHTTP,
		Status:  entities.RunStatusFailed,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("http", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("http", "failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RunDuration))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.BatchProcessed(3, map[string]int{"liveboard": 3}, nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `querylog_ingest_records_routed_total{category="liveboard"} 3`)
	assert.Contains(t, string(body), "querylog_ingest_lines_dropped_total")
	assert.Contains(t, string(body), "go_goroutines")
}
