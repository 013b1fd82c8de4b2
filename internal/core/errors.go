package core

import (
	"errors"
	"fmt"
)

// ErrNoUpdates is returned when the scanner output holds no category
// blocks, which is how the scanner reports that everything is up to date.
var ErrNoUpdates = errors.New("no updates found")

// ErrMalformedReport is returned when a block between the boundary blocks
// does not look like a category batch.
var ErrMalformedReport = errors.New("malformed scanner report")

// ErrInputMissing is returned when the scanner output file does not exist.
var ErrInputMissing = errors.New("scanner output not found")

// LineError describes a package line that could not be parsed. It only
// affects that line.
type LineError struct {
	Category string
	Line     string
	Reason   string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s: skipping line %q: %s", e.Category, e.Line, e.Reason)
}

// BatchError wraps ErrMalformedReport with the offending block position.
type BatchError struct {
	Index  int
	Header string
	Reason string
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("block %d (%q): %s", e.Index, e.Header, e.Reason)
}

func (e *BatchError) Unwrap() error {
	return ErrMalformedReport
}
