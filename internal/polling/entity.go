package polling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind names an entity type tracked by the registry.
type Kind string

const (
	// KindMeterGroup is an uploaded meter group still being ingested.
	KindMeterGroup Kind = "meter_group"
	// KindScenario is a DER simulation scenario still running.
	KindScenario Kind = "scenario"
)

// ID is an entity id. Upstream ids arrive as JSON strings or numbers.
type ID string

// UnmarshalJSON accepts a non-empty JSON string or a number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("%w: null", ErrInvalidID)
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return fmt.Errorf("%w: empty", ErrInvalidID)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, data)
	}
	*id = ID(n.String())
	return nil
}

// Int returns the id as an integer when it is numeric.
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// Progress reports how far a server-side computation has advanced.
type Progress struct {
	IsComplete      bool    `json:"is_complete"`
	PercentComplete float64 `json:"percent_complete"`
}

// Entity is a tracked upstream object. Raw holds the full upstream JSON so the
// store can replace the object whole.
type Entity struct {
	ID       ID
	Progress Progress
	Raw      json.RawMessage
}

type entityFields struct {
	ID       ID       `json:"id"`
	Progress Progress `json:"progress"`
}

// UnmarshalJSON reads id and progress and keeps the whole object in Raw.
// An object without an id is rejected.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var fields entityFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields.ID == "" {
		return fmt.Errorf("%w: missing", ErrInvalidID)
	}
	e.ID = fields.ID
	e.Progress = fields.Progress
	e.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns Raw when present, otherwise id and progress.
func (e Entity) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	return json.Marshal(entityFields{ID: e.ID, Progress: e.Progress})
}

// Clone returns a deep copy.
func (e Entity) Clone() Entity {
	e.Raw = append(json.RawMessage(nil), e.Raw...)
	return e
}

func incompleteIDs(entities []Entity) []ID {
	var ids []ID
	for _, e := range entities {
		if e.ID != "" && !e.Progress.IsComplete {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
