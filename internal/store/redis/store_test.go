package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"der-explorer/internal/polling"
	"der-explorer/internal/store"
)

var _ store.Store = (*Store)(nil)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, WithPrefix("test:")), mr
}

func TestStore_UpsertGetList(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	raw := json.RawMessage(`{"id":7,"name":"Feeder 7","progress":{"is_complete":false,"percent_complete":30}}`)
	var running polling.Entity
	if err := json.Unmarshal(raw, &running); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Upsert(ctx, polling.KindMeterGroup, []polling.Entity{running, {ID: "3"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !mr.Exists("test:meter_group") {
		t.Fatalf("expected hash key test:meter_group")
	}

	got, err := s.Get(ctx, polling.KindMeterGroup, "7")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Progress.PercentComplete != 30 {
		t.Fatalf("unexpected progress: %+v", got.Progress)
	}
	var fields map[string]any
	if err := json.Unmarshal(got.Raw, &fields); err != nil {
		t.Fatalf("raw payload: %v", err)
	}
	if fields["name"] != "Feeder 7" {
		t.Fatalf("expected raw payload kept, got %v", fields)
	}

	done := polling.Entity{ID: "7", Progress: polling.Progress{IsComplete: true, PercentComplete: 100}}
	if err := s.Upsert(ctx, polling.KindMeterGroup, []polling.Entity{done}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	list, err := s.List(ctx, polling.KindMeterGroup)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "3" || list[1].ID != "7" || !list[1].Progress.IsComplete {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestStore_Missing(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Get(context.Background(), polling.KindScenario, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	list, err := s.List(context.Background(), polling.KindScenario)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v (%v)", list, err)
	}
}

func TestStore_FailsWhenServerDown(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()
	if err := s.Upsert(context.Background(), polling.KindScenario, []polling.Entity{{ID: "1"}}); err == nil {
		t.Fatalf("expected error from closed server")
	}
}
