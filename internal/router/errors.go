package router

import "errors"

var (
	// ErrSinkCreation indicates the output file of a category could not be created.
	ErrSinkCreation = errors.New("failed to create category sink")

	// ErrWrite indicates appending to or flushing a category sink failed.
	ErrWrite = errors.New("failed to write category sink")

	// ErrStateCorrupted is returned once an earlier write failed: output
	// produced by the router can no longer be trusted to be complete.
	ErrStateCorrupted = errors.New("router state corrupted by an earlier failure")

	// ErrClosed is returned when records are dispatched after Close.
	ErrClosed = errors.New("router is closed")
)
