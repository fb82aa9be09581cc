package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leighmacdonald/rgs/internal/backend"
	"github.com/leighmacdonald/rgs/internal/config"
	"github.com/leighmacdonald/rgs/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const defaultMaxConcurrent = 8

type gameEntry struct {
	status   model.Status
	source   backend.DataSource
	servers  model.ServerSet
	settings map[model.ConfType]*config.Store
}

func newGameEntry() *gameEntry {
	return &gameEntry{
		status:   model.StatusEmpty,
		source:   backend.MockDataSource{},
		servers:  model.NewServerSet(),
		settings: map[model.ConfType]*config.Store{},
	}
}

func (e *gameEntry) store(confType model.ConfType) *config.Store {
	store, found := e.settings[confType]
	if !found {
		store = config.NewStore()
		e.settings[confType] = store
	}

	return store
}

// Registry tracks the state of every known game. A single mutex guards the map and
// the entries in it, nothing blocking ever runs while it is held. Queries run on
// their own goroutines, at most maxConcurrent at a time.
type Registry struct {
	log      *zap.Logger
	mu       *sync.Mutex
	games    map[string]*gameEntry
	sem      *semaphore.Weighted
	inFlight int
	drained  *sync.Cond
}

func New(logger *zap.Logger, maxConcurrent int64) *Registry {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	mutex := &sync.Mutex{}

	return &Registry{
		log:     logger.Named("registry"),
		mu:      mutex,
		games:   map[string]*gameEntry{},
		sem:     semaphore.NewWeighted(maxConcurrent),
		drained: sync.NewCond(mutex),
	}
}

// ListGames returns the known game ids in sorted order.
func (r *Registry) ListGames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.games))
	for id := range r.games {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func (r *Registry) CreateGame(gameID string) error {
	r.mu.Lock()

	if _, found := r.games[gameID]; found {
		r.mu.Unlock()

		return errors.Wrap(model.ErrGameExists, gameID)
	}

	r.games[gameID] = newGameEntry()
	r.mu.Unlock()

	r.log.Debug("Created game", zap.String("game", gameID))

	return nil
}

// RemoveGame deletes the game. A refresh still in flight for it is not cancelled,
// its result is dropped when it completes.
func (r *Registry) RemoveGame(gameID string) error {
	r.mu.Lock()

	if _, found := r.games[gameID]; !found {
		r.mu.Unlock()

		return errors.Wrap(model.ErrNoSuchGame, gameID)
	}

	delete(r.games, gameID)
	r.mu.Unlock()

	r.log.Debug("Removed game", zap.String("game", gameID))

	return nil
}

// SetDataSource replaces the backend used by future refreshes of the game.
func (r *Registry) SetDataSource(gameID string, source backend.DataSource) error {
	if source == nil {
		return errors.Wrap(model.ErrBackend, "nil data source")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, errEntry := r.entry(gameID)
	if errEntry != nil {
		return errEntry
	}

	entry.source = source

	return nil
}

// Settings returns the config store of the given type, creating an empty one on first
// use. Repeated calls return the same store so writes are visible to later refreshes.
func (r *Registry) Settings(gameID string, confType model.ConfType) (*config.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, errEntry := r.entry(gameID)
	if errEntry != nil {
		return nil, errEntry
	}

	return entry.store(confType), nil
}

func (r *Registry) Status(gameID string) (model.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, errEntry := r.entry(gameID)
	if errEntry != nil {
		return model.StatusEmpty, errEntry
	}

	return entry.status, nil
}

// Servers returns a copy of the last known servers of the game.
func (r *Registry) Servers(gameID string) (model.ServerSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, errEntry := r.entry(gameID)
	if errEntry != nil {
		return model.ServerSet{}, errEntry
	}

	return entry.servers.Clone(), nil
}

// Refresh queries the game's data source in the background and returns immediately.
// The returned channel yields the outcome of the query once it has been committed and
// is then closed, callers are free to ignore it. A missing game fails synchronously
// with ErrNoSuchGame and changes nothing.
//
// ctx is handed to the data source. No timeout is applied here, callers wanting one
// should attach it to ctx.
func (r *Registry) Refresh(ctx context.Context, gameID string) (<-chan error, error) {
	r.mu.Lock()

	entry, errEntry := r.entry(gameID)
	if errEntry != nil {
		r.mu.Unlock()

		return nil, errEntry
	}

	var (
		source   = entry.source
		settings = entry.store(model.ConfBackend).Clone()
		result   = make(chan error, 1)
		log      = r.log.With(zap.String("game", gameID), zap.String("refresh_id", uuid.NewString()))
	)

	entry.status = model.StatusWorking

	r.inFlight++
	r.mu.Unlock()

	go func() {
		defer close(result)

		start := time.Now()
		servers, errQuery := r.run(ctx, source, settings)

		if !r.commit(gameID, entry, servers, errQuery) {
			log.Debug("Discarding refresh result for removed game", zap.Error(errQuery))
		} else if errQuery != nil {
			log.Warn("Refresh failed", zap.Duration("duration", time.Since(start)), zap.Error(errQuery))
		} else {
			log.Info("Refresh complete", zap.Duration("duration", time.Since(start)), zap.Int("servers", servers.Len()))
		}

		result <- errQuery
	}()

	return result, nil
}

// Wait blocks until every refresh started so far has committed its result.
func (r *Registry) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.inFlight > 0 {
		r.drained.Wait()
	}
}

// InFlight returns the number of refreshes that have not committed yet.
func (r *Registry) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.inFlight
}

func (r *Registry) run(ctx context.Context, source backend.DataSource, settings *config.Store) (servers model.ServerSet, err error) {
	if errAcquire := r.sem.Acquire(ctx, 1); errAcquire != nil {
		return model.ServerSet{}, errors.Wrapf(model.ErrBackend, "Refresh not started: %v", errAcquire)
	}

	defer r.sem.Release(1)

	defer func() {
		if recovered := recover(); recovered != nil {
			servers = model.ServerSet{}
			err = errors.Wrap(model.ErrBackend, fmt.Sprintf("data source panic: %v", recovered))
		}
	}()

	return source.Query(ctx, settings)
}

// commit writes the query outcome back, unless the entry it was started for has since
// been removed. A failed query keeps the previous servers. Returns false when the
// result was dropped.
func (r *Registry) commit(gameID string, started *gameEntry, servers model.ServerSet, errQuery error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.inFlight--
	if r.inFlight == 0 {
		r.drained.Broadcast()
	}

	current, found := r.games[gameID]
	if !found || current != started {
		return false
	}

	if errQuery != nil {
		current.status = model.StatusError

		return true
	}

	current.status = model.StatusReady
	current.servers = servers.Clone()

	return true
}

// entry must be called with mu held.
func (r *Registry) entry(gameID string) (*gameEntry, error) {
	entry, found := r.games[gameID]
	if !found {
		return nil, errors.Wrap(model.ErrNoSuchGame, gameID)
	}

	return entry, nil
}
