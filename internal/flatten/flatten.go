// Package flatten turns one NDJSON log line into a flat entities.Record.
//
// Only the top level of the object is flattened: nested objects and arrays
// are kept as compact JSON text in a single column. Lines that cannot be
// used are rejected with an *Error carrying a DropReason, so that the
// caller can count and skip them without stopping the run.
package flatten

import (
	"bytes"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/mrlokans/querylog/internal/entities"
)

const (
	// DefaultCategoryField is the field the query log uses to name the request type.
	DefaultCategoryField = "querytype"

	// errorField marks lines for which the query service failed.
	errorField = "error"
)

// Flattener converts log lines into records. It holds no mutable state and
// is safe for concurrent use.
type Flattener struct {
	categoryField string
	delimiter     string
	omitCategory  bool
}

type Option func(*Flattener)

// WithCategoryField sets the field records are routed by.
func WithCategoryField(field string) Option {
	return func(f *Flattener) {
		if field != "" {
			f.categoryField = field
		}
	}
}

// WithDelimiter sets the column delimiter of the produced records.
func WithDelimiter(delimiter string) Option {
	return func(f *Flattener) {
		if delimiter != "" {
			f.delimiter = delimiter
		}
	}
}

// WithOmitCategoryColumn drops the category field from the record columns.
// Records are still routed by it.
func WithOmitCategoryColumn() Option {
	return func(f *Flattener) { f.omitCategory = true }
}

func New(opts ...Option) *Flattener {
	f := &Flattener{
		categoryField: DefaultCategoryField,
		delimiter:     entities.DefaultDelimiter,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Flattener) CategoryField() string {
	return f.categoryField
}

func (f *Flattener) Delimiter() string {
	return f.delimiter
}

// Flatten parses line and returns its record, or an *Error explaining why
// the line was dropped. The upstream error check runs before category
// filtering, so failed queries are always reported as ReasonUpstream.
func (f *Flattener) Flatten(line string, filter FilterSet) (entities.Record, error) {
	data := bytes.TrimSpace([]byte(line))
	if len(data) == 0 || data[0] != '{' {
		return entities.Record{}, dropped(ReasonInvalidInput, "expected an object, got %q", preview(data))
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return entities.Record{}, dropped(ReasonInvalidInput, "%v", err)
	}

	if _, failed := raw[errorField]; failed {
		return entities.Record{}, dropped(ReasonUpstream, "%s", preview(data))
	}

	categoryRaw, ok := raw[f.categoryField]
	if !ok || isNull(categoryRaw) {
		return entities.Record{}, dropped(ReasonFilteredOut, "missing %q field", f.categoryField)
	}
	category, err := stringify(categoryRaw)
	if err != nil {
		return entities.Record{}, dropped(ReasonInvalidInput, "%v", err)
	}
	if category == "" {
		return entities.Record{}, dropped(ReasonFilteredOut, "empty %q field", f.categoryField)
	}
	if !filter.Allows(category) {
		return entities.Record{}, dropped(ReasonFilteredOut, "category %q not selected", category)
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		if f.omitCategory && key == f.categoryField {
			continue
		}
		text, err := stringify(value)
		if err != nil {
			return entities.Record{}, dropped(ReasonInvalidInput, "field %q: %v", key, err)
		}
		fields[key] = text
	}

	return entities.NewRecord(fields, f.delimiter).WithCategoryValue(category), nil
}

// stringify renders one JSON value as a column: strings lose their quotes,
// containers become compact JSON, everything else keeps its literal text.
func stringify(value json.RawMessage) (string, error) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 {
		return "", nil
	}

	switch value[0] {
	case '"':
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, value); err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		return string(value), nil
	}
}

func isNull(value json.RawMessage) bool {
	return string(bytes.TrimSpace(value)) == "null"
}

func preview(data []byte) string {
	const previewLen = 80
	s := strings.ToValidUTF8(string(data), "")
	if len(s) > previewLen {
		return s[:previewLen] + "..."
	}
	return s
}
