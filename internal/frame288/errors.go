package frame288

import "errors"

var (
	// ErrShape is returned when a frame does not have 12 months of 24 values.
	ErrShape = errors.New("frame288: invalid shape")
	// ErrIndex is returned for a month outside 1..12 or an hour outside 0..23.
	ErrIndex = errors.New("frame288: index out of range")
)
