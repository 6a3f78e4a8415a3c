package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"der-explorer/internal/audit"
	"der-explorer/internal/polling"
	"der-explorer/internal/store/memory"
)

func gridFrame(value func(month, hour int) float64) map[string][]float64 {
	frame := make(map[string][]float64, 12)
	for m := 1; m <= 12; m++ {
		row := make([]float64, 24)
		for h := range row {
			row[h] = value(m, h)
		}
		frame[strconv.Itoa(m)] = row
	}
	return frame
}

type fakeTracker struct {
	grouped []polling.Entity
	params  polling.Params
	scalar  []polling.Entity
	resets  int
}

func (f *fakeTracker) AddGroupedEntities(entities []polling.Entity, params polling.Params) error {
	if _, err := params.Key(); err != nil {
		return err
	}
	f.grouped = append(f.grouped, entities...)
	f.params = params
	return nil
}

func (f *fakeTracker) AddScalarEntities(entities []polling.Entity) error {
	f.scalar = append(f.scalar, entities...)
	return nil
}

func (f *fakeTracker) Reset() { f.resets++ }

func (f *fakeTracker) Snapshot() polling.Snapshot {
	ids := make([]polling.ID, 0, len(f.scalar))
	for _, e := range f.scalar {
		ids = append(ids, e.ID)
	}
	return polling.Snapshot{ScalarKind: polling.KindScenario, Scalar: ids}
}

type recordingAudit struct {
	entries []audit.Entry
}

func (a *recordingAudit) Log(ctx context.Context, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func newTestMux(t *testing.T) (*http.ServeMux, *fakeTracker, *memory.Store) {
	mux, tracker, st, _ := newAuditedMux(t)
	return mux, tracker, st
}

func newAuditedMux(t *testing.T) (*http.ServeMux, *fakeTracker, *memory.Store, *recordingAudit) {
	t.Helper()
	tracker := &fakeTracker{}
	st := memory.NewStore()
	auditLog := &recordingAudit{}
	mux := http.NewServeMux()
	if err := Register(mux, tracker, st, auditLog, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	return mux, tracker, st, auditLog
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestGridSummary(t *testing.T) {
	mux, _, _ := newTestMux(t)
	body := map[string]any{
		"name":  "load",
		"units": "kW",
		"frame": gridFrame(func(m, h int) float64 { return float64(m*1000 + h*10) }),
	}
	resp := do(t, mux, http.MethodPost, "/api/v1/grids/summary", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var got gridSummary
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "load" || got.Min != 1000 || got.Max != 12230 {
		t.Fatalf("unexpected summary: %+v", got)
	}
	if got.Scale.Unit != "MW" || got.Scale.Factor != 1000 {
		t.Fatalf("expected MW scale, got %+v", got.Scale)
	}
}

func TestGridSummary_BadShape(t *testing.T) {
	mux, _, _ := newTestMux(t)
	body := map[string]any{"frame": map[string][]float64{"1": {1, 2, 3}}}
	resp := do(t, mux, http.MethodPost, "/api/v1/grids/summary", body)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func hourly(start int, values ...float64) map[string]any {
	times := make([]string, len(values))
	for i := range values {
		times[i] = fmt.Sprintf("2020-01-01T%02d:00:00Z", start+i)
	}
	return map[string]any{"timestamp": times, "kw": values}
}

func TestIntervalOps_Subtract(t *testing.T) {
	mux, _, _ := newTestMux(t)
	body := map[string]any{
		"op":   "subtract",
		"unit": "kw",
		"series": []map[string]any{
			{"name": "a", "data": hourly(0, 1, 2, 3, 4)},
			{"name": "b", "data": hourly(1, 4, 3, 2, 1)},
		},
	}
	resp := do(t, mux, http.MethodPost, "/api/v1/intervals/ops", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var got intervalOpResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]any{-2.0, 0.0, 2.0}, got.Data["kw"]); diff != "" {
		t.Fatalf("unexpected values (-want +got):\n%s", diff)
	}
	if got.PeriodMinutes == nil || *got.PeriodMinutes != 60 {
		t.Fatalf("expected 60 minute period, got %v", got.PeriodMinutes)
	}
	if diff := cmp.Diff([]string{"2020-01-01T01:00:00Z", "2020-01-01T03:00:00Z"}, got.TimeDomain); diff != "" {
		t.Fatalf("unexpected time domain (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2020}, got.Years); diff != "" {
		t.Fatalf("unexpected years (-want +got):\n%s", diff)
	}
}

func TestIntervalOps_Multiply288(t *testing.T) {
	mux, _, _ := newTestMux(t)
	body := map[string]any{
		"op":     "multiply288",
		"unit":   "kw",
		"series": []map[string]any{{"name": "a", "data": hourly(0, 1, 2)}},
		"grid": map[string]any{
			"name":  "price",
			"frame": gridFrame(func(m, h int) float64 { return float64(h + 1) }),
		},
	}
	resp := do(t, mux, http.MethodPost, "/api/v1/intervals/ops", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var got intervalOpResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]any{1.0, 4.0}, got.Data["kw"]); diff != "" {
		t.Fatalf("unexpected values (-want +got):\n%s", diff)
	}
}

func TestIntervalOps_Filter(t *testing.T) {
	mux, _, _ := newTestMux(t)
	body := map[string]any{
		"op":     "filter",
		"unit":   "kw",
		"series": []map[string]any{{"name": "a", "data": hourly(0, 1, 2, 3, 4)}},
		"filter": map[string]any{"range": []string{"2020-01-01T01:00:00Z", "2020-01-01T02:00:00Z"}},
	}
	resp := do(t, mux, http.MethodPost, "/api/v1/intervals/ops", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var got intervalOpResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]any{2.0, 3.0}, got.Data["kw"]); diff != "" {
		t.Fatalf("unexpected values (-want +got):\n%s", diff)
	}
}

func TestIntervalOps_Rejects(t *testing.T) {
	mux, _, _ := newTestMux(t)
	cases := []struct {
		name string
		body map[string]any
	}{
		{"unknown op", map[string]any{"op": "pow", "unit": "kw", "series": []map[string]any{{"data": hourly(0, 1)}}}},
		{"divide by zero", map[string]any{"op": "divide", "unit": "kw", "scalar": 0, "series": []map[string]any{{"data": hourly(0, 1)}}}},
		{"subtract arity", map[string]any{"op": "subtract", "unit": "kw", "series": []map[string]any{{"data": hourly(0, 1)}}}},
		{"missing column", map[string]any{"op": "divide", "scalar": 2, "series": []map[string]any{{"data": hourly(0, 1)}}}},
		{"bad timestamp", map[string]any{"op": "divide", "scalar": 2, "unit": "kw", "series": []map[string]any{{"data": map[string]any{"timestamp": []string{"nope"}, "kw": []float64{1}}}}}},
		{"no grid", map[string]any{"op": "align288", "unit": "kw", "series": []map[string]any{{"data": hourly(0, 1)}}}},
	}
	for _, tc := range cases {
		resp := do(t, mux, http.MethodPost, "/api/v1/intervals/ops", tc.body)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", tc.name, resp.Code, resp.Body.String())
		}
	}
}

func TestIntervalOps_NonFiniteResult(t *testing.T) {
	mux, _, _ := newTestMux(t)
	body := map[string]any{
		"op":     "multiply",
		"unit":   "kw",
		"scalar": 1e308,
		"series": []map[string]any{{"name": "big", "data": hourly(0, 1e308, 2)}},
	}
	resp := do(t, mux, http.MethodPost, "/api/v1/intervals/ops", body)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Body.Len() == 0 {
		t.Fatalf("expected an error body")
	}
}

func TestPolling_RegisterAndSnapshot(t *testing.T) {
	mux, tracker, _ := newTestMux(t)

	body := map[string]any{
		"entities": []map[string]any{{"id": 7, "progress": map[string]any{"is_complete": false, "percent_complete": 10}}},
	}
	resp := do(t, mux, http.MethodPost, "/api/v1/polling/scenarios", body)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	if len(tracker.scalar) != 1 || tracker.scalar[0].ID != "7" {
		t.Fatalf("unexpected scalar entities: %+v", tracker.scalar)
	}

	body = map[string]any{
		"entities": []map[string]any{{"id": "mg-1"}},
		"params":   map[string]any{"owner": "me", "page": 2},
	}
	resp = do(t, mux, http.MethodPost, "/api/v1/polling/meter-groups", body)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	if tracker.params["owner"] != "me" || len(tracker.grouped) != 1 {
		t.Fatalf("unexpected grouped registration: %+v %+v", tracker.grouped, tracker.params)
	}

	resp = do(t, mux, http.MethodGet, "/api/v1/polling", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var snap polling.Snapshot
	if err := json.Unmarshal(resp.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]polling.ID{"7"}, snap.Scalar); diff != "" {
		t.Fatalf("unexpected snapshot (-want +got):\n%s", diff)
	}

	resp = do(t, mux, http.MethodGet, "/api/v1/polling/scenarios", nil)
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestLogout_ResetsTracker(t *testing.T) {
	mux, tracker, _, auditLog := newAuditedMux(t)
	resp := do(t, mux, http.MethodPost, "/api/v1/auth/logout", nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if tracker.resets != 1 {
		t.Fatalf("expected 1 reset, got %d", tracker.resets)
	}
	if len(auditLog.entries) != 1 || auditLog.entries[0].Action != audit.ActionPollingReset {
		t.Fatalf("expected one reset audit entry, got %+v", auditLog.entries)
	}

	resp = do(t, mux, http.MethodGet, "/api/v1/auth/logout", nil)
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestEntities_ListAndGet(t *testing.T) {
	mux, _, st := newTestMux(t)
	ctx := context.Background()
	if err := st.Upsert(ctx, polling.KindScenario, []polling.Entity{
		{ID: "2", Progress: polling.Progress{PercentComplete: 50}},
		{ID: "1", Progress: polling.Progress{IsComplete: true, PercentComplete: 100}},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	resp := do(t, mux, http.MethodGet, "/api/v1/entities/scenario", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var list []polling.Entity
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0].ID != "1" || list[1].ID != "2" {
		t.Fatalf("unexpected list: %+v", list)
	}

	resp = do(t, mux, http.MethodGet, "/api/v1/entities/scenario/2", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	resp = do(t, mux, http.MethodGet, "/api/v1/entities/scenario/404", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	resp = do(t, mux, http.MethodGet, "/api/v1/entities/widgets", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown kind, got %d", resp.Code)
	}
}

func TestExports(t *testing.T) {
	mux, _, _ := newTestMux(t)
	grid := map[string]any{
		"name":  "Load Profile",
		"frame": gridFrame(func(m, h int) float64 { return float64(h) }),
	}

	resp := do(t, mux, http.MethodPost, "/api/v1/exports/grid.xlsx", grid)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); ct != contentTypeXLSX {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, "Load_Profile.xlsx") {
		t.Fatalf("unexpected disposition %q", cd)
	}

	resp = do(t, mux, http.MethodPost, "/api/v1/exports/grid.pdf", grid)
	if resp.Code != http.StatusOK || !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected pdf, got %d", resp.Code)
	}

	body := map[string]any{"unit": "kw", "series": []map[string]any{{"name": "a", "data": hourly(0, 1, 2)}}}
	resp = do(t, mux, http.MethodPost, "/api/v1/exports/interval.xlsx", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, mux, http.MethodPost, "/api/v1/exports/interval.xlsx", map[string]any{"series": []any{}})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	resp = do(t, mux, http.MethodPost, "/api/v1/exports/other.csv", grid)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
