// Package store holds the shared entity store the polling registry writes
// into and the HTTP API reads from.
package store

import (
	"context"
	"errors"

	"der-explorer/internal/polling"
)

// ErrNotFound is returned when an entity is not in the store.
var ErrNotFound = errors.New("store: entity not found")

// Reader reads entities back out of a store.
type Reader interface {
	Get(ctx context.Context, kind polling.Kind, id polling.ID) (polling.Entity, error)
	List(ctx context.Context, kind polling.Kind) ([]polling.Entity, error)
}

// Store is a full entity store. Upsert replaces each entity whole; concurrent
// writers apply in arrival order.
type Store interface {
	polling.Store
	Reader
}
