package interval

import (
	"encoding/json"
	"fmt"
)

// Columns is the column-oriented wire shape of a series:
// {columnKey: [timestrings...], unitKey: [values...]}.
type Columns map[string]any

// Serialize returns the series in column form under the given keys.
func (s *Series) Serialize(unitKey, columnKey string) Columns {
	return Columns{
		columnKey: s.Timestrings(),
		unitKey:   s.Values(),
	}
}

// Parse builds a series from column form. Every timestring is parsed up front
// so a malformed payload fails here instead of in a later computation.
func Parse(cols Columns, columnKey, unitKey, name string) (*Series, error) {
	rawTimes, ok := cols[columnKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, columnKey)
	}
	rawValues, ok := cols[unitKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, unitKey)
	}
	times, err := toStrings(rawTimes)
	if err != nil {
		return nil, err
	}
	values, err := toFloats(rawValues)
	if err != nil {
		return nil, err
	}
	if len(times) != len(values) {
		return nil, fmt.Errorf("%w: %d times, %d values", ErrColumnMismatch, len(times), len(values))
	}

	points := make([]Point, len(times))
	for i := range times {
		points[i] = Point{Timestring: times[i], Value: values[i]}
	}
	series := New(name, points)
	for i, d := range series.data {
		if _, err := d.stamp.parsed(); err != nil {
			return nil, fmt.Errorf("%w: row %d %q", ErrInvalidTimestamp, i, d.Timestring())
		}
	}
	return series, nil
}

// ParseJSON decodes a column-form JSON object and builds a series from it.
func ParseJSON(data []byte, columnKey, unitKey, name string) (*Series, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	timesRaw, ok := raw[columnKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, columnKey)
	}
	valuesRaw, ok := raw[unitKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, unitKey)
	}
	var times []string
	if err := json.Unmarshal(timesRaw, &times); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrColumnMismatch, columnKey, err)
	}
	var values []float64
	if err := json.Unmarshal(valuesRaw, &values); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrColumnMismatch, unitKey, err)
	}
	return Parse(Columns{columnKey: times, unitKey: values}, columnKey, unitKey, name)
}

func toStrings(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: time row %d is %T", ErrColumnMismatch, i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: time column is %T", ErrColumnMismatch, raw)
	}
}

func toFloats(raw any) ([]float64, error) {
	switch v := raw.(type) {
	case []float64:
		return v, nil
	case []any:
		out := make([]float64, len(v))
		for i, item := range v {
			switch n := item.(type) {
			case float64:
				out[i] = n
			case int:
				out[i] = float64(n)
			case json.Number:
				f, err := n.Float64()
				if err != nil {
					return nil, fmt.Errorf("%w: value row %d: %v", ErrColumnMismatch, i, err)
				}
				out[i] = f
			default:
				return nil, fmt.Errorf("%w: value row %d is %T", ErrColumnMismatch, i, item)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: value column is %T", ErrColumnMismatch, raw)
	}
}
