package interval

import "time"

// Group is the set of samples that share the earliest pending timestamp
// during an alignment pass. Members is indexed like the aligned series; a nil
// entry means that series had no sample at Timestamp.
type Group struct {
	Timestamp time.Time
	Members   []*Datum
	count     int
}

// Complete reports whether every aligned series contributed to the group.
func (g Group) Complete() bool { return g.count == len(g.Members) }

// Size returns the number of series that contributed to the group.
func (g Group) Size() int { return g.count }

// Align walks the series as sorted queues. Each step takes the minimum head
// timestamp, pops every head exactly equal to it and emits them as a group.
// Timestamps are compared as instants; there is no nearest-match fallback.
func Align(series ...*Series) []Group {
	heads := make([]int, len(series))
	var groups []Group
	for {
		var (
			earliest time.Time
			found    bool
		)
		for i, s := range series {
			if heads[i] >= len(s.data) {
				continue
			}
			t := s.data[heads[i]].Timestamp()
			if !found || t.Before(earliest) {
				earliest = t
				found = true
			}
		}
		if !found {
			return groups
		}

		group := Group{Timestamp: earliest, Members: make([]*Datum, len(series))}
		for i, s := range series {
			if heads[i] >= len(s.data) {
				continue
			}
			d := &s.data[heads[i]]
			if d.Timestamp().Equal(earliest) {
				group.Members[i] = d
				group.count++
				heads[i]++
			}
		}
		groups = append(groups, group)
	}
}
