package polling

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"der-explorer/internal/observability/metrics"
)

// DefaultInterval is the poll period used when none is configured.
const DefaultInterval = 10 * time.Second

// Fetcher loads the current state of the given entities. Params are the
// normalized query params of the bucket being polled; nil for scalar kinds.
type Fetcher func(ctx context.Context, ids []ID, params Params) ([]Entity, error)

// CompletionHook is called with the entities a fetch reported complete, after
// they were stored and untracked.
type CompletionHook func(ctx context.Context, kind Kind, completed []Entity)

// Store receives fetched entities. Each entity replaces the stored one whole.
type Store interface {
	Upsert(ctx context.Context, kind Kind, entities []Entity) error
}

// tracker is one set of tracked ids polled with a single fetch.
type tracker struct {
	params   Params
	ids      map[ID]struct{}
	inFlight bool
}

func newTracker(params Params) *tracker {
	return &tracker{params: params, ids: make(map[ID]struct{})}
}

func (t *tracker) sortedIDs() []ID {
	ids := make([]ID, 0, len(t.ids))
	for id := range t.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Registry re-fetches in-progress entities on a fixed interval until each
// reports completion. One kind is tracked in buckets keyed by the query params
// its list was loaded with; another is tracked as a flat id set.
//
// An id is tracked only while its entity is incomplete, and a bucket that
// runs out of ids is dropped. A bucket whose previous fetch is still in flight
// is skipped on the next tick. Results of fetches that started before Reset
// are discarded.
type Registry struct {
	store       Store
	groupedKind Kind
	grouped     Fetcher
	scalarKind  Kind
	scalar      Fetcher
	interval    time.Duration
	concurrency int
	onComplete  CompletionHook
	logger      *log.Logger

	mu         sync.Mutex
	generation uint64
	groups     map[string]*tracker
	scalarSet  *tracker

	// resetMu orders Reset after any store write already in progress.
	resetMu sync.RWMutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithGroupedFetcher sets the kind tracked in param-keyed buckets.
func WithGroupedFetcher(kind Kind, fetch Fetcher) Option {
	return func(r *Registry) {
		r.groupedKind = kind
		r.grouped = fetch
	}
}

// WithScalarFetcher sets the kind tracked as a flat id set.
func WithScalarFetcher(kind Kind, fetch Fetcher) Option {
	return func(r *Registry) {
		r.scalarKind = kind
		r.scalar = fetch
	}
}

// WithInterval sets the poll period.
func WithInterval(interval time.Duration) Option {
	return func(r *Registry) {
		if interval > 0 {
			r.interval = interval
		}
	}
}

// WithConcurrency caps concurrent fetches within one tick. Zero means no cap.
func WithConcurrency(n int) Option {
	return func(r *Registry) {
		if n >= 0 {
			r.concurrency = n
		}
	}
}

// WithCompletionHook sets a hook run after entities complete.
func WithCompletionHook(hook CompletionHook) Option {
	return func(r *Registry) { r.onComplete = hook }
}

// WithLogger sets the logger for fetch and store failures.
func WithLogger(logger *log.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// New constructs a Registry that pushes fetched entities into store.
func New(store Store, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	r := &Registry{
		store:       store,
		groupedKind: KindMeterGroup,
		scalarKind:  KindScenario,
		interval:    DefaultInterval,
		groups:      make(map[string]*tracker),
		scalarSet:   newTracker(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Interval returns the poll period.
func (r *Registry) Interval() time.Duration { return r.interval }

// AddGroupedEntities tracks the incomplete entities under the bucket for
// params. Pagination keys are ignored and params that are deeply equal share
// a bucket.
func (r *Registry) AddGroupedEntities(entities []Entity, params Params) error {
	if r.grouped == nil {
		return ErrNilFetcher
	}
	key, err := params.Key()
	if err != nil {
		return err
	}
	ids := incompleteIDs(entities)
	if len(ids) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.groups[key]
	if !ok {
		t = newTracker(params.Normalize())
		r.groups[key] = t
	}
	for _, id := range ids {
		t.ids[id] = struct{}{}
	}
	r.observeTrackedLocked()
	return nil
}

// AddScalarEntities tracks the incomplete entities in the flat id set.
func (r *Registry) AddScalarEntities(entities []Entity) error {
	if r.scalar == nil {
		return ErrNilFetcher
	}
	ids := incompleteIDs(entities)
	if len(ids) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.scalarSet.ids[id] = struct{}{}
	}
	r.observeTrackedLocked()
	return nil
}

// Reset stops tracking everything. Fetches already in flight finish but their
// results are dropped.
func (r *Registry) Reset() {
	r.resetMu.Lock()
	defer r.resetMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.groups = make(map[string]*tracker)
	r.scalarSet = newTracker(nil)
	r.observeTrackedLocked()
}

// GroupSnapshot describes one tracked bucket.
type GroupSnapshot struct {
	Key      string `json:"key"`
	Params   Params `json:"params"`
	IDs      []ID   `json:"ids"`
	InFlight bool   `json:"in_flight"`
}

// Snapshot is a point-in-time view of tracking state.
type Snapshot struct {
	GroupedKind Kind            `json:"grouped_kind"`
	Groups      []GroupSnapshot `json:"groups"`
	ScalarKind  Kind            `json:"scalar_kind"`
	Scalar      []ID            `json:"scalar"`
}

// Snapshot returns the tracked ids, buckets ordered by key.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		GroupedKind: r.groupedKind,
		Groups:      make([]GroupSnapshot, 0, len(r.groups)),
		ScalarKind:  r.scalarKind,
		Scalar:      r.scalarSet.sortedIDs(),
	}
	for key, t := range r.groups {
		snap.Groups = append(snap.Groups, GroupSnapshot{
			Key:      key,
			Params:   t.params,
			IDs:      t.sortedIDs(),
			InFlight: t.inFlight,
		})
	}
	sort.Slice(snap.Groups, func(i, j int) bool { return snap.Groups[i].Key < snap.Groups[j].Key })
	return snap
}

// Start polls every interval until ctx is done. Each tick runs in its own
// goroutine so a slow fetch does not delay other buckets; Start returns once
// all ticks it launched have finished.
func (r *Registry) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.Poll(ctx)
			}()
		}
	}
}

type job struct {
	kind       Kind
	key        string
	fetch      Fetcher
	tracker    *tracker
	ids        []ID
	params     Params
	generation uint64
}

// Poll runs one tick: one fetch per non-empty bucket and one for the scalar
// set, concurrently, and waits for them.
func (r *Registry) Poll(ctx context.Context) {
	metrics.IncPollingTick()
	jobs := r.claim()
	if len(jobs) == 0 {
		return
	}

	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			r.run(ctx, j)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Registry) claim() []job {
	r.mu.Lock()
	defer r.mu.Unlock()

	var jobs []job
	keys := make([]string, 0, len(r.groups))
	for key := range r.groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		t := r.groups[key]
		if len(t.ids) == 0 {
			continue
		}
		if t.inFlight {
			metrics.IncPollingSkipped(string(r.groupedKind))
			continue
		}
		t.inFlight = true
		jobs = append(jobs, job{
			kind:       r.groupedKind,
			key:        key,
			fetch:      r.grouped,
			tracker:    t,
			ids:        t.sortedIDs(),
			params:     t.params,
			generation: r.generation,
		})
	}

	if t := r.scalarSet; len(t.ids) > 0 && r.scalar != nil {
		if t.inFlight {
			metrics.IncPollingSkipped(string(r.scalarKind))
		} else {
			t.inFlight = true
			jobs = append(jobs, job{
				kind:       r.scalarKind,
				fetch:      r.scalar,
				tracker:    t,
				ids:        t.sortedIDs(),
				generation: r.generation,
			})
		}
	}
	return jobs
}

func (r *Registry) run(ctx context.Context, j job) {
	completed := r.fetchAndStore(ctx, j)
	if len(completed) > 0 && r.onComplete != nil {
		r.onComplete(ctx, j.kind, completed)
	}
}

// fetchAndStore runs one job and returns the entities it untracked.
func (r *Registry) fetchAndStore(ctx context.Context, j job) []Entity {
	start := time.Now()
	entities, err := j.fetch(ctx, j.ids, j.params)
	if err != nil {
		metrics.ObservePollingFetch(string(j.kind), metrics.ResultError, time.Since(start))
		r.logf("polling fetch error: kind=%s bucket=%s ids=%d err=%v", j.kind, j.key, len(j.ids), err)
		r.release(j, nil)
		return nil
	}

	r.resetMu.RLock()
	defer r.resetMu.RUnlock()
	if r.isStale(j) {
		metrics.ObservePollingFetch(string(j.kind), metrics.ResultStale, time.Since(start))
		r.release(j, nil)
		return nil
	}
	if err := r.store.Upsert(ctx, j.kind, entities); err != nil {
		metrics.ObservePollingFetch(string(j.kind), metrics.ResultError, time.Since(start))
		r.logf("polling store error: kind=%s bucket=%s err=%v", j.kind, j.key, err)
		r.release(j, nil)
		return nil
	}
	metrics.ObservePollingFetch(string(j.kind), metrics.ResultSuccess, time.Since(start))
	return r.release(j, entities)
}

func (r *Registry) isStale(j job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation != j.generation
}

// release clears the in-flight flag and untracks entities reported complete,
// returning them.
func (r *Registry) release(j job, entities []Entity) []Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	j.tracker.inFlight = false
	if r.generation != j.generation {
		return nil
	}
	var completed []Entity
	for _, e := range entities {
		if !e.Progress.IsComplete {
			continue
		}
		if _, ok := j.tracker.ids[e.ID]; ok {
			delete(j.tracker.ids, e.ID)
			completed = append(completed, e)
		}
	}
	metrics.AddPollingCompleted(string(j.kind), len(completed))
	if j.tracker != r.scalarSet && len(j.tracker.ids) == 0 && r.groups[j.key] == j.tracker {
		delete(r.groups, j.key)
	}
	r.observeTrackedLocked()
	return completed
}

func (r *Registry) observeTrackedLocked() {
	grouped := 0
	for _, t := range r.groups {
		grouped += len(t.ids)
	}
	metrics.SetPollingTracked(string(r.groupedKind), grouped)
	metrics.SetPollingTracked(string(r.scalarKind), len(r.scalarSet.ids))
}

func (r *Registry) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}
