package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/querylog/internal/entities"
	"github.com/mrlokans/querylog/internal/router"
)

func TestService_RunnerAppliesSettings(t *testing.T) {
	recorder := &fakeRecorder{}
	observer := &recordingObserver{}
	runObserver := &countingRunObserver{}

	svc := NewService(Settings{
		Delimiter:     ",",
		CategoryField: "querytype",
		Categories:    "connections",
		BatchSize:     2,
		Workers:       2,
	},
		WithServiceRecorder(recorder),
		WithServiceObserver(observer),
		WithServiceRunObserver(runObserver),
	)
	assert.Equal(t, "connections", svc.Settings().Categories)

	dir := t.TempDir()
	outcome, err := svc.Runner(entities.RunTriggerHTTP, "").
		RunReader(context.Background(), "body", strings.NewReader(sampleLog), router.DirectoryTarget(dir))
	require.NoError(t, err)

	assert.Equal(t, entities.RunTriggerHTTP, outcome.Run.Trigger)
	assert.Equal(t, "connections", outcome.Run.Filter)
	assert.Equal(t, 1, outcome.Result.Routed)
	assert.Equal(t, "from,ms,querytype,to\nBrussel,40,connections,Gent\n", readFile(t, filepath.Join(dir, "connections.csv")))

	assert.Len(t, recorder.finished, 1)
	assert.Equal(t, 1, runObserver.runs)
	assert.Equal(t, 7, observer.lines)
}

func TestService_RunnerOverridesCategories(t *testing.T) {
	svc := NewService(Settings{Categories: "connections"})

	outcome, err := svc.Runner(entities.RunTriggerTask, "liveboard,vehicle").
		RunReader(context.Background(), "body", strings.NewReader(sampleLog), router.DirectoryTarget(t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, "liveboard,vehicle", outcome.Run.Filter)
	assert.Equal(t, 3, outcome.Result.Routed)
}
