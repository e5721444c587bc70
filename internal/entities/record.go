package entities

import (
	"errors"
	"sort"
	"strings"
)

// DefaultDelimiter separates columns in the generated CSV files.
const DefaultDelimiter = ";"

// ErrMissingField indicates a record has no value for its category field.
var ErrMissingField = errors.New("record has no category field")

// Record is one flattened log line. Keys are kept in sorted order so that
// the header and the data line of a record always line up.
type Record struct {
	keys      []string
	values    map[string]string
	delimiter string
	category  string
}

// NewRecord builds a record from a flat field mapping. The mapping is copied.
func NewRecord(fields map[string]string, delimiter string) Record {
	keys := make([]string, 0, len(fields))
	values := make(map[string]string, len(fields))
	for k, v := range fields {
		keys = append(keys, k)
		values[k] = v
	}
	sort.Strings(keys)

	if delimiter == "" {
		delimiter = DefaultDelimiter
	}

	return Record{
		keys:      keys,
		values:    values,
		delimiter: delimiter,
	}
}

// WithCategoryValue returns a copy of the record routed under category,
// independent of the record's columns.
func (r Record) WithCategoryValue(category string) Record {
	r.category = category
	return r
}

// Category returns the routing key of the record.
func (r Record) Category() (string, error) {
	if r.category == "" {
		return "", ErrMissingField
	}
	return r.category, nil
}

// Keys returns the column names in canonical order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the value stored under key.
func (r Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

func (r Record) Len() int {
	return len(r.keys)
}

func (r Record) Delimiter() string {
	return r.delimiter
}

// Header returns the column names joined by the delimiter, without a newline.
func (r Record) Header() string {
	return strings.Join(r.keys, r.delimiter)
}

// HeadlessText returns the values in key order, newline-terminated.
// Delimiters embedded in values are not escaped.
func (r Record) HeadlessText() string {
	var b strings.Builder
	for i, k := range r.keys {
		if i > 0 {
			b.WriteString(r.delimiter)
		}
		b.WriteString(r.values[k])
	}
	b.WriteByte('\n')
	return b.String()
}

// Text returns the header line followed by the data line.
func (r Record) Text() string {
	return r.Header() + "\n" + r.HeadlessText()
}
