package ingest

import (
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Source is one readable NDJSON stream.
type Source struct {
	// Name identifies the source in logs and the run ledger, e.g.
	// "logs/day1.zip!day1.json".
	Name string
	open func() (io.ReadCloser, error)
}

func (s Source) Open() (io.ReadCloser, error) {
	return s.open()
}

// ReaderSource wraps an already open reader. It can be opened once.
func ReaderSource(name string, r io.Reader) Source {
	return Source{
		Name: name,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(r), nil
		},
	}
}

// Expand turns a path into sources: ".gz" files are decompressed, ".zip"
// archives yield one source per regular entry (sorted by name), anything
// else is read as is.
func Expand(path string) ([]Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return []Source{{Name: path, open: func() (io.ReadCloser, error) { return openGzip(path) }}}, nil
	case ".zip":
		return expandZip(path)
	default:
		return []Source{{Name: path, open: func() (io.ReadCloser, error) { return os.Open(path) }}}, nil
	}
}

func expandZip(path string) ([]Source, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", path, err)
	}
	defer zr.Close()

	var names []string
	for _, file := range zr.File {
		if file.FileInfo().IsDir() || strings.HasPrefix(filepath.Base(file.Name), ".") {
			continue
		}
		names = append(names, file.Name)
	}
	sort.Strings(names)

	sources := make([]Source, 0, len(names))
	for _, name := range names {
		sources = append(sources, Source{
			Name: path + "!" + name,
			open: func() (io.ReadCloser, error) { return openZipEntry(path, name) },
		})
	}
	return sources, nil
}

func openGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open gzip %s: %w", path, err)
	}
	return &multiCloser{Reader: gz, closers: []io.Closer{gz, f}}, nil
}

func openZipEntry(path, name string) (io.ReadCloser, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", path, err)
	}
	for _, file := range zr.File {
		if file.Name != name {
			continue
		}
		entry, err := file.Open()
		if err != nil {
			zr.Close()
			return nil, fmt.Errorf("open zip entry %s: %w", name, err)
		}
		return &multiCloser{Reader: entry, closers: []io.Closer{entry, zr}}, nil
	}
	zr.Close()
	return nil, fmt.Errorf("zip entry %s not found in %s", name, path)
}

// multiCloser closes a decoder together with the file underneath it.
type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
