package herd

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/farmsight/herdfeed/internal/api"
	"github.com/farmsight/herdfeed/internal/model"
)

// AnimalSource provides the animal list. Satisfied by *api.Client.
type AnimalSource interface {
	GetAllAnimals(ctx context.Context, opts api.ListAnimalsOptions) ([]model.Animal, error)
}

// Config holds registry settings.
type Config struct {
	ReconcileInterval time.Duration // Periodic re-sync cadence (0 = no reconcile)
}

// Registry is an in-memory directory of the herd, loaded from the REST API
// and reconciled periodically. Consumers use it to resolve tags for feed
// entries whose frames omit the animal tag.
type Registry struct {
	cfg    Config
	source AnimalSource
	logger *slog.Logger

	mu         sync.RWMutex
	byID       map[int64]model.Animal
	byTag      map[string]model.Animal
	lastSyncAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config, source AnimalSource, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		cfg:    cfg,
		source: source,
		logger: logger,
		byID:   make(map[int64]model.Animal),
		byTag:  make(map[string]model.Animal),
	}
}

// Load performs an initial sync from the REST API.
func (r *Registry) Load(ctx context.Context) error {
	start := time.Now()

	animals, err := r.source.GetAllAnimals(ctx, api.ListAnimalsOptions{})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.byID = make(map[int64]model.Animal, len(animals))
	r.byTag = make(map[string]model.Animal, len(animals))
	for _, a := range animals {
		r.byID[a.ID] = a
		r.byTag[strings.ToUpper(a.TagID)] = a
	}
	r.lastSyncAt = time.Now()
	r.mu.Unlock()

	r.logger.Info("herd registry loaded",
		"animals", len(animals),
		"duration", time.Since(start),
	)
	return nil
}

// Start loads the registry and begins periodic reconciliation. A failed
// initial load is not fatal: the registry starts empty and the reconcile
// loop keeps retrying.
func (r *Registry) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	if err := r.Load(r.ctx); err != nil {
		r.logger.Warn("initial herd load failed, starting empty", "error", err)
	}

	if r.cfg.ReconcileInterval > 0 {
		r.wg.Add(1)
		go r.reconcileLoop()
	}

	return nil
}

// Stop halts reconciliation.
func (r *Registry) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("herd registry stop timed out")
	}
	return nil
}

// ByID looks up an animal by database ID.
func (r *Registry) ByID(id int64) (model.Animal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// ByTag looks up an animal by tag (case-insensitive).
func (r *Registry) ByTag(tagID string) (model.Animal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byTag[strings.ToUpper(tagID)]
	return a, ok
}

// Count returns the number of animals held.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// LastSyncAt returns the time of the last successful sync.
func (r *Registry) LastSyncAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSyncAt
}

// ResolveTag returns the measurement's tag, falling back to a registry
// lookup when the frame omitted it. Empty when the animal is unknown.
func (r *Registry) ResolveTag(m model.Measurement) string {
	if m.TagID != "" {
		return m.TagID
	}
	if a, ok := r.ByID(m.AnimalID); ok {
		return a.TagID
	}
	return ""
}

// reconcileLoop periodically re-syncs from the REST API. A failed reconcile
// keeps the previous directory.
func (r *Registry) reconcileLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if err := r.Load(r.ctx); err != nil {
				r.logger.Warn("herd reconcile failed", "error", err)
			}
		}
	}
}
