package router

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mrlokans/querylog/internal/entities"
)

const defaultBufferSize = 64 * 1024

// Opener creates the backing target of a sink.
type Opener func(path string) (io.WriteCloser, error)

// CreateFile is the default Opener. It creates missing parent directories
// and truncates an existing file, so every run starts its files afresh.
func CreateFile(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

// Sink is the buffered output of one category. All methods are safe for
// concurrent use; each append happens entirely inside the sink's lock.
type Sink struct {
	category string
	path     string

	mu            sync.Mutex
	out           io.WriteCloser
	w             *bufio.Writer
	headerWritten bool
	lines         int
	err           error
	closed        bool
}

func newSink(category, path string, out io.WriteCloser, bufferSize int) *Sink {
	return &Sink{
		category: category,
		path:     path,
		out:      out,
		w:        bufio.NewWriterSize(out, bufferSize),
	}
}

func (s *Sink) Category() string {
	return s.category
}

func (s *Sink) Path() string {
	return s.path
}

// Write appends rec. The first record of the sink is written with its
// header line; claiming the header and writing it happen under the same
// lock, so the header always precedes every data line of the file.
// A failed write poisons the sink: later calls return ErrStateCorrupted.
func (s *Sink) Write(rec entities.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}

	withHeader := !s.headerWritten
	text := rec.HeadlessText()
	if withHeader {
		text = rec.Text()
	}

	if _, err := s.w.WriteString(text); err != nil {
		s.err = err
		return fmt.Errorf("%w %s: %w", ErrWrite, s.path, err)
	}

	if withHeader {
		s.headerWritten = true
	}
	s.lines++
	return nil
}

// Flush writes buffered data to the backing target.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	return s.flushLocked()
}

// Close flushes and closes the backing target. Closing twice is a no-op.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var flushErr error
	if s.err == nil {
		flushErr = s.flushLocked()
	}
	if err := s.out.Close(); err != nil && flushErr == nil {
		return fmt.Errorf("%w %s: %w", ErrWrite, s.path, err)
	}
	return flushErr
}

// HeaderWritten reports whether the header line has been emitted.
func (s *Sink) HeaderWritten() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headerWritten
}

// Lines returns the number of data lines appended so far.
func (s *Sink) Lines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines
}

func (s *Sink) usable() error {
	if s.err != nil {
		return fmt.Errorf("%w: category %q: %w", ErrStateCorrupted, s.category, s.err)
	}
	if s.closed {
		return fmt.Errorf("%w: category %q", ErrClosed, s.category)
	}
	return nil
}

func (s *Sink) flushLocked() error {
	if err := s.w.Flush(); err != nil {
		s.err = err
		return fmt.Errorf("%w %s: %w", ErrWrite, s.path, err)
	}
	return nil
}
