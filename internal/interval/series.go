package interval

import (
	"math"
	"sync"
	"time"

	"der-explorer/internal/frame288"
)

// Series is an immutable, time-ordered sequence of samples for one named
// signal. Samples are assumed evenly spaced and sorted ascending; neither is
// enforced. Every transform returns a new Series.
type Series struct {
	name string
	data []Datum

	periodOnce sync.Once
	period     time.Duration
	periodErr  error
}

// New builds a series from points already sorted by time.
func New(name string, points []Point) *Series {
	data := make([]Datum, len(points))
	for i, p := range points {
		data[i] = Datum{stamp: newStamp(p.Timestring), value: p.Value}
	}
	return &Series{name: name, data: data}
}

func fromData(name string, data []Datum) *Series {
	return &Series{name: name, data: data}
}

// Name returns the signal name.
func (s *Series) Name() string { return s.name }

// Len returns the number of samples.
func (s *Series) Len() int { return len(s.data) }

// Data returns the samples in order.
func (s *Series) Data() []Datum {
	out := make([]Datum, len(s.data))
	copy(out, s.data)
	return out
}

// Values returns the sample values in order.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.data))
	for i, d := range s.data {
		out[i] = d.value
	}
	return out
}

// Timestrings returns the raw sample times in order.
func (s *Series) Timestrings() []string {
	out := make([]string, len(s.data))
	for i, d := range s.data {
		out[i] = d.Timestring()
	}
	return out
}

// Timestamps returns the parsed sample times in order.
func (s *Series) Timestamps() []time.Time {
	out := make([]time.Time, len(s.data))
	for i, d := range s.data {
		out[i] = d.Timestamp()
	}
	return out
}

// Period returns the spacing between the first two samples. Later samples are
// not checked.
func (s *Series) Period() (time.Duration, error) {
	s.periodOnce.Do(func() {
		if len(s.data) < 2 {
			s.periodErr = ErrInsufficientData
			return
		}
		s.period = s.data[1].Timestamp().Sub(s.data[0].Timestamp())
	})
	return s.period, s.periodErr
}

// TimeDomain returns the first and last sample times.
func (s *Series) TimeDomain() (time.Time, time.Time, error) {
	if len(s.data) == 0 {
		return time.Time{}, time.Time{}, ErrEmptySeries
	}
	return s.data[0].Timestamp(), s.data[len(s.data)-1].Timestamp(), nil
}

// ValueDomain returns the smallest and largest sample values.
func (s *Series) ValueDomain() (float64, float64, error) {
	if len(s.data) == 0 {
		return 0, 0, ErrEmptySeries
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, d := range s.data {
		lo = math.Min(lo, d.value)
		hi = math.Max(hi, d.value)
	}
	return lo, hi, nil
}

// Years lists every calendar year from the first sample to the last, inclusive.
func (s *Series) Years() []int {
	first, last, err := s.TimeDomain()
	if err != nil {
		return nil
	}
	var years []int
	for y := first.Year(); y <= last.Year(); y++ {
		years = append(years, y)
	}
	return years
}

// StartOfMonth returns the first sample that falls in the given calendar month
// of any year.
func (s *Series) StartOfMonth(month time.Month) (Datum, bool) {
	for _, d := range s.data {
		if d.Timestamp().Month() == month {
			return d, true
		}
	}
	return Datum{}, false
}

// Map applies fn to every sample, keeping timestamps and name.
func (s *Series) Map(fn func(Datum) float64) *Series {
	data := make([]Datum, len(s.data))
	for i, d := range s.data {
		data[i] = d.withValue(fn(d))
	}
	return fromData(s.name, data)
}

// Rename returns a copy of the series under a new name.
func (s *Series) Rename(name string) *Series {
	return fromData(name, s.data)
}

// Multiply scales every sample by n.
func (s *Series) Multiply(n float64) *Series {
	return s.Map(func(d Datum) float64 { return d.value * n })
}

// Divide divides every sample by n.
func (s *Series) Divide(n float64) *Series {
	return s.Map(func(d Datum) float64 { return d.value / n })
}

// MultiplySeries multiplies this series by others at timestamps where every
// operand has a sample. Other timestamps are dropped.
func (s *Series) MultiplySeries(others ...*Series) *Series {
	operands := append([]*Series{s}, others...)
	var data []Datum
	for _, group := range Align(operands...) {
		if !group.Complete() {
			continue
		}
		product := 1.0
		for _, member := range group.Members {
			product *= member.value
		}
		data = append(data, group.Members[0].withValue(product))
	}
	return fromData(s.name, data)
}

// Subtract returns this series minus other at timestamps present in both.
func (s *Series) Subtract(other *Series) *Series {
	var data []Datum
	for _, group := range Align(s, other) {
		if !group.Complete() {
			continue
		}
		data = append(data, group.Members[0].withValue(group.Members[0].value-group.Members[1].value))
	}
	return fromData(s.name, data)
}

// Align288 replaces every value with the grid value for its month and hour.
// The result takes the grid's name when it has one.
func (s *Series) Align288(grid *frame288.Grid) *Series {
	aligned := s.Map(func(d Datum) float64 { return grid.ValueByDate(d.Timestamp()) })
	if grid.Name() != "" {
		aligned.name = grid.Name()
	}
	return aligned
}

// Map288 applies fn to every sample together with the grid value for its
// month and hour.
func (s *Series) Map288(grid *frame288.Grid, fn func(d Datum, gridValue float64) float64) *Series {
	return s.Map(func(d Datum) float64 { return fn(d, grid.ValueByDate(d.Timestamp())) })
}

// Multiply288 multiplies every sample by the grid value for its month and hour.
func (s *Series) Multiply288(grid *frame288.Grid) *Series {
	return s.Map288(grid, func(d Datum, v float64) float64 { return d.value * v })
}
