package interval

import "errors"

var (
	// ErrInsufficientData is returned when an operation needs more samples than the series has.
	ErrInsufficientData = errors.New("interval: insufficient data")
	// ErrEmptySeries is returned when a domain is requested from an empty series.
	ErrEmptySeries = errors.New("interval: empty series")
	// ErrInvalidTimestamp is returned when a timestring cannot be parsed.
	ErrInvalidTimestamp = errors.New("interval: invalid timestamp")
	// ErrMissingColumn is returned when a serialized payload lacks a requested column.
	ErrMissingColumn = errors.New("interval: missing column")
	// ErrColumnMismatch is returned when the time and value columns differ in length or type.
	ErrColumnMismatch = errors.New("interval: column mismatch")
)
