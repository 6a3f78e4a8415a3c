package polling

import (
	"encoding/json"
	"fmt"
)

// Pagination-only keys never distinguish polling buckets.
var paginationKeys = []string{"page", "page_size", "pageSize"}

// Params are the query parameters an entity list was loaded with.
type Params map[string]any

// Normalize returns a copy of p without pagination keys.
func (p Params) Normalize() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, k := range paginationKeys {
		delete(out, k)
	}
	return out
}

// Key returns a canonical encoding of the normalized params. Object keys are
// sorted at every depth, so params that are deeply equal produce the same key
// regardless of insertion order.
func (p Params) Key() (string, error) {
	data, err := json.Marshal(p.Normalize())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return string(data), nil
}
