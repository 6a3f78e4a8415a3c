package interval

import (
	"strings"
	"sync"
	"time"
)

// Accepted timestring layouts, tried in order. Layouts without a zone parse as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestring parses a timestring with the accepted layouts.
func ParseTimestring(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}

// stamp keeps the raw timestring and memoizes its parsed form. Stamps are
// shared between a datum and every datum derived from it.
type stamp struct {
	raw  string
	once sync.Once
	t    time.Time
	err  error
}

func newStamp(raw string) *stamp { return &stamp{raw: raw} }

func (s *stamp) parsed() (time.Time, error) {
	s.once.Do(func() {
		s.t, s.err = ParseTimestring(s.raw)
	})
	return s.t, s.err
}

// Point is a raw sample as delivered by a serialized payload.
type Point struct {
	Timestring string
	Value      float64
}

// Datum is one sample of a series. The timestring is kept verbatim and parsed
// on first access.
type Datum struct {
	stamp *stamp
	value float64
}

// Timestring returns the sample time exactly as received.
func (d Datum) Timestring() string { return d.stamp.raw }

// Value returns the sample value.
func (d Datum) Value() float64 { return d.value }

// Timestamp returns the parsed sample time. Unparseable timestrings yield the
// zero time.
func (d Datum) Timestamp() time.Time {
	t, _ := d.stamp.parsed()
	return t
}

func (d Datum) withValue(value float64) Datum {
	return Datum{stamp: d.stamp, value: value}
}
