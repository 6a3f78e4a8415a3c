package frame288

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	// Months is the number of month rows in a grid.
	Months = 12
	// Hours is the number of hour columns in a grid.
	Hours = 24
	// Cells is the total number of values held by a grid.
	Cells = Months * Hours
)

// Values is the raw 12x24 payload. Row 0 is January, column 0 is 00:00-00:59.
type Values [Months][Hours]float64

// Grid is an immutable month-by-hour grid of numeric values, e.g. an average
// daily load profile per month. Every transform returns a new Grid.
type Grid struct {
	name  string
	units string
	frame *Values
}

// Option overrides grid metadata on construction or transform.
type Option func(*Grid)

// WithName sets the grid name.
func WithName(name string) Option {
	return func(g *Grid) { g.name = name }
}

// WithUnits sets the grid units label.
func WithUnits(units string) Option {
	return func(g *Grid) { g.units = units }
}

// New builds a grid from a frame keyed by 1-based month. Exactly the months
// 1..12 must be present and each must hold 24 values.
func New(frame map[int][]float64, opts ...Option) (*Grid, error) {
	if len(frame) != Months {
		return nil, fmt.Errorf("%w: expected %d months, got %d", ErrShape, Months, len(frame))
	}
	var values Values
	for month := 1; month <= Months; month++ {
		row, ok := frame[month]
		if !ok {
			return nil, fmt.Errorf("%w: missing month %d", ErrShape, month)
		}
		if len(row) != Hours {
			return nil, fmt.Errorf("%w: month %d has %d values", ErrShape, month, len(row))
		}
		copy(values[month-1][:], row)
	}
	return build(&values, opts...), nil
}

// FromValues builds a grid from a fixed-size payload; it cannot fail.
func FromValues(values Values, opts ...Option) *Grid {
	return build(&values, opts...)
}

func build(values *Values, opts ...Option) *Grid {
	g := &Grid{frame: values}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Name returns the grid name, possibly empty.
func (g *Grid) Name() string { return g.name }

// Units returns the grid units label, possibly empty.
func (g *Grid) Units() string { return g.units }

// Values returns a copy of the payload.
func (g *Grid) Values() Values { return *g.frame }

// Frame returns the payload keyed by 1-based month.
func (g *Grid) Frame() map[int][]float64 {
	frame := make(map[int][]float64, Months)
	for i := range g.frame {
		row := make([]float64, Hours)
		copy(row, g.frame[i][:])
		frame[i+1] = row
	}
	return frame
}

// Month returns the 24 values of a 1-based month.
func (g *Grid) Month(month int) ([]float64, error) {
	if month < 1 || month > Months {
		return nil, fmt.Errorf("%w: month %d", ErrIndex, month)
	}
	row := make([]float64, Hours)
	copy(row, g.frame[month-1][:])
	return row, nil
}

// ValueByMonthHour returns the value at a 1-based month and 0-based hour.
func (g *Grid) ValueByMonthHour(month, hour int) (float64, error) {
	if month < 1 || month > Months {
		return 0, fmt.Errorf("%w: month %d", ErrIndex, month)
	}
	if hour < 0 || hour >= Hours {
		return 0, fmt.Errorf("%w: hour %d", ErrIndex, hour)
	}
	return g.frame[month-1][hour], nil
}

// ValueByDate returns the value for the calendar month and hour of t, read in
// whatever location t carries.
func (g *Grid) ValueByDate(t time.Time) float64 {
	return g.frame[int(t.Month())-1][t.Hour()]
}

// Range returns the minimum and maximum over all 288 values.
func (g *Grid) Range() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range g.frame {
		for _, v := range g.frame[i] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}

// Min returns the smallest value in the grid.
func (g *Grid) Min() float64 {
	lo, _ := g.Range()
	return lo
}

// Max returns the largest value in the grid.
func (g *Grid) Max() float64 {
	_, hi := g.Range()
	return hi
}

// Map applies fn to every cell. Name and units carry forward unless
// overridden by opts.
func (g *Grid) Map(fn func(float64) float64, opts ...Option) *Grid {
	var values Values
	for i := range g.frame {
		for j, v := range g.frame[i] {
			values[i][j] = fn(v)
		}
	}
	return build(&values, g.carry(opts)...)
}

// Multiply scales every cell by n.
func (g *Grid) Multiply(n float64, opts ...Option) *Grid {
	return g.Map(func(v float64) float64 { return v * n }, opts...)
}

// Divide divides every cell by n.
func (g *Grid) Divide(n float64, opts ...Option) *Grid {
	return g.Map(func(v float64) float64 { return v / n }, opts...)
}

// Rename returns a grid sharing the payload under a new name.
func (g *Grid) Rename(name string) *Grid {
	return &Grid{name: name, units: g.units, frame: g.frame}
}

func (g *Grid) carry(opts []Option) []Option {
	return append([]Option{WithName(g.name), WithUnits(g.units)}, opts...)
}

// MarshalJSON encodes the payload as {"1": [...24], ..., "12": [...24]}.
func (g *Grid) MarshalJSON() ([]byte, error) {
	out := make(map[string][]float64, Months)
	for month, row := range g.Frame() {
		out[strconv.Itoa(month)] = row
	}
	return json.Marshal(out)
}

// Parse decodes a {"1": [...], ..., "12": [...]} object into a grid.
func Parse(data []byte, opts ...Option) (*Grid, error) {
	var raw map[string][]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShape, err)
	}
	frame := make(map[int][]float64, len(raw))
	for key, row := range raw {
		month, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: month key %q", ErrShape, key)
		}
		if _, dup := frame[month]; dup {
			return nil, fmt.Errorf("%w: duplicate month key %q", ErrShape, key)
		}
		frame[month] = row
	}
	return New(frame, opts...)
}
