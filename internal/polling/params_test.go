package polling

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParamsKey(t *testing.T) {
	cases := []struct {
		name  string
		a, b  Params
		equal bool
	}{
		{
			name:  "pagination ignored",
			a:     Params{"owner": "me", "page": 1, "page_size": 10},
			b:     Params{"owner": "me", "pageSize": 50},
			equal: true,
		},
		{
			name:  "nested key order ignored",
			a:     Params{"filter": map[string]any{"x": 1, "y": "z"}},
			b:     Params{"filter": map[string]any{"y": "z", "x": 1}},
			equal: true,
		},
		{
			name:  "nil and empty",
			a:     nil,
			b:     Params{"page": 3},
			equal: true,
		},
		{
			name:  "values must match exactly",
			a:     Params{"owner": "me"},
			b:     Params{"owner": "you"},
			equal: false,
		},
		{
			name:  "array order matters",
			a:     Params{"ids": []any{1, 2}},
			b:     Params{"ids": []any{2, 1}},
			equal: false,
		},
	}
	for _, tc := range cases {
		ka, err := tc.a.Key()
		if err != nil {
			t.Fatalf("%s: key a: %v", tc.name, err)
		}
		kb, err := tc.b.Key()
		if err != nil {
			t.Fatalf("%s: key b: %v", tc.name, err)
		}
		if (ka == kb) != tc.equal {
			t.Fatalf("%s: expected equal=%v, got %q vs %q", tc.name, tc.equal, ka, kb)
		}
	}
}

func TestParamsKey_Unencodable(t *testing.T) {
	if _, err := (Params{"fn": func() {}}).Key(); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
}

func TestNormalize_DoesNotMutate(t *testing.T) {
	p := Params{"page": 1, "owner": "me"}
	n := p.Normalize()
	if _, ok := p["page"]; !ok {
		t.Fatalf("normalize mutated the input")
	}
	if _, ok := n["page"]; ok {
		t.Fatalf("normalize kept page")
	}
}

func TestEntityJSON(t *testing.T) {
	var entities []Entity
	payload := `[{"id": 42, "name": "Load A", "progress": {"is_complete": false, "percent_complete": 12.5}},
	             {"id": "abc", "progress": {"is_complete": true, "percent_complete": 100}}]`
	if err := json.Unmarshal([]byte(payload), &entities); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entities[0].ID != "42" || entities[1].ID != "abc" {
		t.Fatalf("unexpected ids: %q %q", entities[0].ID, entities[1].ID)
	}
	if n, ok := entities[0].ID.Int(); !ok || n != 42 {
		t.Fatalf("expected numeric id 42, got %d %v", n, ok)
	}
	if entities[0].Progress.PercentComplete != 12.5 || !entities[1].Progress.IsComplete {
		t.Fatalf("unexpected progress: %+v %+v", entities[0].Progress, entities[1].Progress)
	}

	out, err := json.Marshal(entities[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal back: %v", err)
	}
	if back["name"] != "Load A" {
		t.Fatalf("expected raw fields preserved, got %v", back)
	}

	bare, err := json.Marshal(Entity{ID: "7"})
	if err != nil {
		t.Fatalf("marshal bare: %v", err)
	}
	if string(bare) != `{"id":"7","progress":{"is_complete":false,"percent_complete":0}}` {
		t.Fatalf("unexpected bare encoding: %s", bare)
	}

	var bad Entity
	if err := json.Unmarshal([]byte(`{"id": true}`), &bad); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if ids := incompleteIDs(entities); len(ids) != 1 || ids[0] != "42" {
		t.Fatalf("unexpected incomplete ids: %v", ids)
	}
}

func TestEntityJSON_RejectsMissingID(t *testing.T) {
	cases := map[string]string{
		"missing": `{"progress": {"is_complete": false, "percent_complete": 5}}`,
		"null":    `{"id": null, "progress": {"is_complete": false, "percent_complete": 5}}`,
		"empty":   `{"id": "", "progress": {"is_complete": false, "percent_complete": 5}}`,
	}
	for name, payload := range cases {
		var e Entity
		if err := json.Unmarshal([]byte(payload), &e); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("%s: expected ErrInvalidID, got %v", name, err)
		}
	}
}

func TestIncompleteIDs_SkipsEmptyID(t *testing.T) {
	ids := incompleteIDs([]Entity{{ID: ""}, {ID: "3"}})
	if len(ids) != 1 || ids[0] != "3" {
		t.Fatalf("expected only id 3, got %v", ids)
	}
}
