package engine

import "errors"

var (
	// ErrInput indicates the input source was malformed or unreadable.
	// Nothing is spilled once an input error surfaces.
	ErrInput = errors.New("unreadable input source")

	// ErrResourceExhausted indicates a word could not be buffered within
	// the configured memory budget
	ErrResourceExhausted = errors.New("memory budget exhausted")

	// ErrSortCompleted indicates the engine was asked to sort twice;
	// an engine instance owns one temp namespace and runs one operation
	ErrSortCompleted = errors.New("sort operation already completed")
)
