package router

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/querylog/internal/entities"
)

func record(category string, fields map[string]string) entities.Record {
	all := map[string]string{"type": category}
	for k, v := range fields {
		all[k] = v
	}
	return entities.NewRecord(all, ",").WithCategoryValue(category)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestDispatch_WritesHeaderThenData(t *testing.T) {
	dir := t.TempDir()
	rt := New(DirectoryTarget(dir))

	first := record("A", map[string]string{"x": "1", "y": "2"})
	second := record("A", map[string]string{"x": "3", "y": "4"})

	require.NoError(t, rt.Dispatch([]entities.Record{first}, 1))
	require.NoError(t, rt.Dispatch([]entities.Record{second}, 1))
	require.NoError(t, rt.Close())

	lines := readLines(t, filepath.Join(dir, "A.csv"))
	assert.Equal(t, []string{"type,x,y", "A,1,2", "A,3,4"}, lines)
	assert.Equal(t, first.Header(), lines[0])
}

func TestDispatch_HeaderComesFromFirstRecordOnly(t *testing.T) {
	dir := t.TempDir()
	rt := New(DirectoryTarget(dir))

	records := []entities.Record{
		record("A", map[string]string{"x": "1"}),
		record("A", map[string]string{"z": "9", "w": "8"}),
	}
	require.NoError(t, rt.Dispatch(records, 1))
	require.NoError(t, rt.Close())

	// Differing key sets are not reconciled; each line prints its own columns.
	lines := readLines(t, filepath.Join(dir, "A.csv"))
	assert.Equal(t, []string{"type,x", "A,1", "A,8,9"}, lines)
}

func TestDispatch_PrefixAddressing(t *testing.T) {
	dir := t.TempDir()
	rt := New(PrefixTarget(filepath.Join(dir, "run1")))

	require.NoError(t, rt.Dispatch([]entities.Record{
		record("liveboard", map[string]string{"x": "1"}),
		record("vehicle", map[string]string{"x": "2"}),
	}, 2))
	require.NoError(t, rt.Close())

	assert.FileExists(t, filepath.Join(dir, "run1_liveboard.csv"))
	assert.FileExists(t, filepath.Join(dir, "run1_vehicle.csv"))
	assert.Equal(t, []string{"liveboard", "vehicle"}, rt.Categories())
}

func TestDispatch_CategoriesSharingAFileName(t *testing.T) {
	dir := t.TempDir()
	rt := New(DirectoryTarget(dir))

	var records []entities.Record
	for i := 0; i < 3; i++ {
		records = append(records,
			record("live:board", map[string]string{"x": "a"}),
			record("liveboard", map[string]string{"x": "b"}),
		)
	}
	require.NoError(t, rt.Dispatch(records, 1))
	require.NoError(t, rt.Close())

	lines := readLines(t, filepath.Join(dir, "liveboard.csv"))
	assert.Equal(t, []string{
		"type,x",
		"live:board,a", "liveboard,b",
		"live:board,a", "liveboard,b",
		"live:board,a", "liveboard,b",
	}, lines)

	assert.Equal(t, []string{"liveboard"}, rt.Categories())
	stats := rt.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, 6, stats[0].Lines)
	assert.True(t, rt.HeaderEmitted("live:board"))
}

func TestDispatch_ConcurrentTenThousandRecords(t *testing.T) {
	dir := t.TempDir()
	rt := New(DirectoryTarget(dir))

	categories := []string{"liveboard", "connections", "vehicle"}
	const total = 10000

	records := make([]entities.Record, 0, total)
	for i := 0; i < total; i++ {
		records = append(records, record(categories[i%len(categories)], map[string]string{
			"seq": fmt.Sprint(i),
		}))
	}

	require.NoError(t, rt.Dispatch(records, 16))
	require.NoError(t, rt.Flush())
	require.NoError(t, rt.Close())

	dataLines := 0
	for _, category := range categories {
		lines := readLines(t, filepath.Join(dir, category+".csv"))
		require.NotEmpty(t, lines)
		assert.Equal(t, "seq,type", lines[0], category)

		for _, line := range lines[1:] {
			assert.NotEqual(t, "seq,type", line, "header must appear exactly once")
			assert.True(t, strings.HasSuffix(line, ","+category), line)
		}
		dataLines += len(lines) - 1
	}
	assert.Equal(t, total, dataLines)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(categories))
}

func TestDispatch_NoLossOrDuplicationForAnyParallelism(t *testing.T) {
	for _, parallelism := range []int{0, 1, 2, 7, 64, 1000} {
		t.Run(fmt.Sprintf("parallelism=%d", parallelism), func(t *testing.T) {
			dir := t.TempDir()
			rt := New(DirectoryTarget(dir), WithBufferSize(128))

			const n, k = 997, 5
			records := make([]entities.Record, 0, n)
			for i := 0; i < n; i++ {
				records = append(records, record(fmt.Sprintf("c%d", i%k), map[string]string{"i": fmt.Sprint(i)}))
			}
			require.NoError(t, rt.Dispatch(records, parallelism))
			require.NoError(t, rt.Close())

			seen := make(map[string]bool, n)
			for c := 0; c < k; c++ {
				lines := readLines(t, filepath.Join(dir, fmt.Sprintf("c%d.csv", c)))
				assert.Equal(t, "i,type", lines[0])
				for _, line := range lines[1:] {
					assert.False(t, seen[line], "duplicate line %s", line)
					seen[line] = true
				}
			}
			assert.Len(t, seen, n)
		})
	}
}

func TestDispatch_ConcurrentCallers(t *testing.T) {
	dir := t.TempDir()
	rt := New(DirectoryTarget(dir), WithBufferSize(64))

	const callers, perCaller = 8, 250
	var wg sync.WaitGroup
	for c := 0; c < callers; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			batch := make([]entities.Record, 0, perCaller)
			for i := 0; i < perCaller; i++ {
				batch = append(batch, record("shared", map[string]string{"v": fmt.Sprintf("%d-%d", c, i)}))
			}
			assert.NoError(t, rt.Dispatch(batch, 4))
		}(c)
	}
	wg.Wait()
	require.NoError(t, rt.Close())

	lines := readLines(t, filepath.Join(dir, "shared.csv"))
	assert.Equal(t, "type,v", lines[0])
	assert.Len(t, lines, callers*perCaller+1)

	stats := rt.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, callers*perCaller, stats[0].Lines)
	assert.True(t, stats[0].HeaderWritten)
	assert.True(t, rt.HeaderEmitted("shared"))
	assert.False(t, rt.HeaderEmitted("absent"))
}

func TestDispatch_MissingCategoryIsFatal(t *testing.T) {
	rt := New(DirectoryTarget(t.TempDir()))

	err := rt.Dispatch([]entities.Record{entities.NewRecord(map[string]string{"x": "1"}, ",")}, 1)
	assert.ErrorIs(t, err, entities.ErrMissingField)
	assert.Error(t, rt.Err())
}

func TestGetOrCreateSink_CreationFailureIsFatal(t *testing.T) {
	var opened int
	boom := errors.New("disk full")
	rt := New(DirectoryTarget("/unused"), WithOpener(func(string) (io.WriteCloser, error) {
		opened++
		return nil, boom
	}))

	err := rt.Dispatch([]entities.Record{record("A", nil), record("A", nil)}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSinkCreation)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, opened, "creation is not retried")
	assert.Empty(t, rt.Categories())

	err = rt.Dispatch([]entities.Record{record("B", nil)}, 1)
	assert.ErrorIs(t, err, ErrStateCorrupted)
}

type failingWriter struct {
	failAfter int
	written   int
	closed    bool
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.written+len(p) > w.failAfter {
		return 0, errors.New("i/o error")
	}
	w.written += len(p)
	return len(p), nil
}

func (w *failingWriter) Close() error {
	w.closed = true
	return nil
}

func TestDispatch_WriteFailurePoisonsRouter(t *testing.T) {
	out := &failingWriter{failAfter: 10}
	rt := New(DirectoryTarget("/unused"),
		WithBufferSize(16),
		WithOpener(func(string) (io.WriteCloser, error) { return out, nil }),
	)

	records := make([]entities.Record, 0, 20)
	for i := 0; i < 20; i++ {
		records = append(records, record("A", map[string]string{"payload": strings.Repeat("x", 20)}))
	}

	err := rt.Dispatch(records, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrite)

	err = rt.Dispatch(records[:1], 1)
	assert.ErrorIs(t, err, ErrStateCorrupted)

	sink, err := rt.GetOrCreateSink("A")
	require.NoError(t, err)
	assert.ErrorIs(t, sink.Write(records[0]), ErrStateCorrupted)

	require.NoError(t, rt.Close())
	assert.True(t, out.closed)
}

func TestFlush_MakesDataVisible(t *testing.T) {
	dir := t.TempDir()
	rt := New(DirectoryTarget(dir))
	defer rt.Close()

	require.NoError(t, rt.Dispatch([]entities.Record{record("A", map[string]string{"x": "1"})}, 1))

	// Buffered but not yet flushed.
	data, err := os.ReadFile(filepath.Join(dir, "A.csv"))
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, rt.Flush())
	data, err = os.ReadFile(filepath.Join(dir, "A.csv"))
	require.NoError(t, err)
	assert.Equal(t, "type,x\nA,1\n", string(data))
}

func TestClose_IsIdempotentAndRejectsDispatch(t *testing.T) {
	rt := New(DirectoryTarget(t.TempDir()))
	require.NoError(t, rt.Dispatch([]entities.Record{record("A", nil)}, 1))

	require.NoError(t, rt.Close())
	require.NoError(t, rt.Close())

	err := rt.Dispatch([]entities.Record{record("A", nil)}, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDispatch_EmptyBatch(t *testing.T) {
	rt := New(DirectoryTarget(t.TempDir()))
	assert.NoError(t, rt.Dispatch(nil, 4))
	assert.Empty(t, rt.Categories())
}

func TestCreateFile_TruncatesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "A.csv")

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("stale content\n"), 0644))

	rt := New(DirectoryTarget(filepath.Join(dir, "nested")))
	require.NoError(t, rt.Dispatch([]entities.Record{record("A", map[string]string{"x": "1"})}, 1))
	require.NoError(t, rt.Close())

	assert.Equal(t, []string{"type,x", "A,1"}, readLines(t, path))
}
