package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"der-explorer/internal/polling"
	"der-explorer/internal/store"
)

// Store persists entities in the entities table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore constructs a store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Upsert writes every entity in one transaction, replacing existing rows.
func (s *Store) Upsert(ctx context.Context, kind polling.Kind, entities []polling.Entity) error {
	if s == nil || s.db == nil {
		return errors.New("entity store: nil db")
	}
	if len(entities) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	for _, e := range entities {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("entity store: encode %s/%s: %w", kind, e.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO entities (kind, id, payload, is_complete, percent_complete, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (kind, id) DO UPDATE SET
	payload = EXCLUDED.payload,
	is_complete = EXCLUDED.is_complete,
	percent_complete = EXCLUDED.percent_complete,
	updated_at = EXCLUDED.updated_at`,
			string(kind), string(e.ID), payload, e.Progress.IsComplete, e.Progress.PercentComplete, now,
		); err != nil {
			return fmt.Errorf("entity store: upsert %s/%s: %w", kind, e.ID, err)
		}
	}
	return tx.Commit()
}

// Get loads one entity.
func (s *Store) Get(ctx context.Context, kind polling.Kind, id polling.ID) (polling.Entity, error) {
	if s == nil || s.db == nil {
		return polling.Entity{}, errors.New("entity store: nil db")
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
SELECT payload FROM entities WHERE kind = $1 AND id = $2`, string(kind), string(id)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return polling.Entity{}, store.ErrNotFound
	}
	if err != nil {
		return polling.Entity{}, err
	}
	return decode(payload)
}

// List returns every entity of a kind ordered by id.
func (s *Store) List(ctx context.Context, kind polling.Kind) ([]polling.Entity, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("entity store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT payload FROM entities WHERE kind = $1 ORDER BY id`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []polling.Entity
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		e, err := decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func decode(payload []byte) (polling.Entity, error) {
	var e polling.Entity
	if err := json.Unmarshal(payload, &e); err != nil {
		return polling.Entity{}, fmt.Errorf("entity store: decode: %w", err)
	}
	return e, nil
}
