package interval

import "time"

// Filter selects samples. Zero fields are ignored and every set field must
// match. Start, End and Range bounds are inclusive. Month matches the calendar
// month in any year.
type Filter struct {
	Month time.Month
	Start time.Time
	End   time.Time
	Range *[2]time.Time
}

func (f Filter) match(t time.Time) bool {
	if f.Month != 0 && t.Month() != f.Month {
		return false
	}
	if !within(t, f.Start, f.End) {
		return false
	}
	if f.Range != nil && !within(t, f.Range[0], f.Range[1]) {
		return false
	}
	return true
}

func within(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}

// Filter returns the samples matching f, keeping the series name. The result
// may be empty.
func (s *Series) Filter(f Filter) *Series {
	var data []Datum
	for _, d := range s.data {
		if f.match(d.Timestamp()) {
			data = append(data, d)
		}
	}
	return fromData(s.name, data)
}
