package flatten

import (
	"errors"
	"fmt"
)

// DropReason classifies why a line did not become a record.
type DropReason string

const (
	ReasonInvalidInput DropReason = "invalid_input"
	ReasonUpstream     DropReason = "upstream_error"
	ReasonFilteredOut  DropReason = "filtered_out"
)

// Reasons lists every drop reason in reporting order.
var Reasons = []DropReason{ReasonInvalidInput, ReasonUpstream, ReasonFilteredOut}

var (
	// ErrInvalidInput indicates the line is not a JSON object.
	ErrInvalidInput = errors.New("line is not a JSON object")

	// ErrUpstream indicates the query service reported an error for this request.
	ErrUpstream = errors.New("query reported an error")

	// ErrFilteredOut indicates the record has no category or its category is not selected.
	ErrFilteredOut = errors.New("record filtered out")
)

// Error is returned by Flatten for every dropped line.
type Error struct {
	Reason DropReason
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.sentinel().Error()
	}
	return fmt.Sprintf("%s: %s", e.sentinel(), e.Detail)
}

func (e *Error) Unwrap() error {
	return e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Reason {
	case ReasonUpstream:
		return ErrUpstream
	case ReasonFilteredOut:
		return ErrFilteredOut
	default:
		return ErrInvalidInput
	}
}

// ReasonOf extracts the drop reason from an error returned by Flatten.
func ReasonOf(err error) (DropReason, bool) {
	var ferr *Error
	if errors.As(err, &ferr) {
		return ferr.Reason, true
	}
	return "", false
}

func dropped(reason DropReason, format string, args ...any) error {
	return &Error{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
