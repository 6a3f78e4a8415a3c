package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"der-explorer/internal/polling"
	"der-explorer/internal/store"
)

const defaultPrefix = "der:entities:"

// Store keeps one Redis hash per entity kind, field = id, value = entity JSON.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewStore constructs a store on an existing client.
func NewStore(client goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:       addr,
		Password:   password,
		DB:         db,
		MaxRetries: 3,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("entity store: redis ping: %w", err)
	}
	return client, nil
}

func (s *Store) key(kind polling.Kind) string { return s.prefix + string(kind) }

// Upsert writes all entities with a single HSET.
func (s *Store) Upsert(ctx context.Context, kind polling.Kind, entities []polling.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	fields := make(map[string]any, len(entities))
	for _, e := range entities {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("entity store: encode %s/%s: %w", kind, e.ID, err)
		}
		fields[string(e.ID)] = payload
	}
	if err := s.client.HSet(ctx, s.key(kind), fields).Err(); err != nil {
		return fmt.Errorf("entity store: hset %s: %w", kind, err)
	}
	return nil
}

// Get loads one entity.
func (s *Store) Get(ctx context.Context, kind polling.Kind, id polling.ID) (polling.Entity, error) {
	payload, err := s.client.HGet(ctx, s.key(kind), string(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return polling.Entity{}, store.ErrNotFound
	}
	if err != nil {
		return polling.Entity{}, fmt.Errorf("entity store: hget %s/%s: %w", kind, id, err)
	}
	return decode(payload)
}

// List returns every entity of a kind ordered by id.
func (s *Store) List(ctx context.Context, kind polling.Kind) ([]polling.Entity, error) {
	all, err := s.client.HGetAll(ctx, s.key(kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("entity store: hgetall %s: %w", kind, err)
	}
	out := make([]polling.Entity, 0, len(all))
	for _, payload := range all {
		e, err := decode([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func decode(payload []byte) (polling.Entity, error) {
	var e polling.Entity
	if err := json.Unmarshal(payload, &e); err != nil {
		return polling.Entity{}, fmt.Errorf("entity store: decode: %w", err)
	}
	return e, nil
}
