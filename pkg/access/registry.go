package access

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/audit"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/routes"
)

// RegistryOptions are the optional collaborators of a Registry. A nil Cache
// defaults to a MemoryCache with DefaultTTL.
type RegistryOptions struct {
	Cache       SnapshotCache
	Broadcaster *Broadcaster
	Recorder    audit.ModelRecorder
	Metrics     *observability.Metrics
}

// Registry owns the access entry table and the cached policy snapshot built
// from it. Every mutation goes through the registry so the snapshot is
// invalidated when the write commits.
type Registry struct {
	store       *Store
	catalog     routes.Lister
	cache       SnapshotCache
	broadcaster *Broadcaster
	recorder    audit.ModelRecorder
	metrics     *observability.Metrics

	reloads singleflight.Group
	// generation is bumped on every invalidation before the cache is
	// forgotten; a reload that started under an older generation must not
	// leave its snapshot in the cache
	generation atomic.Uint64
	now        func() time.Time
}

// NewRegistry creates a registry over store and catalog
func NewRegistry(store *Store, catalog routes.Lister, opts RegistryOptions) *Registry {
	cache := opts.Cache
	if cache == nil {
		cache = NewMemoryCache(DefaultTTL)
	}
	return &Registry{
		store:       store,
		catalog:     catalog,
		cache:       cache,
		broadcaster: opts.Broadcaster,
		recorder:    opts.Recorder,
		metrics:     opts.Metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Store exposes the entry store for read paths
func (r *Registry) Store() *Store {
	return r.store
}

// Snapshot returns the cached policy snapshot, loading it from storage on a
// miss. Concurrent misses share one load.
func (r *Registry) Snapshot(ctx context.Context) (Snapshot, error) {
	driver := r.cache.Driver()

	snap, ok, err := r.cache.Get(ctx)
	if err != nil {
		return nil, apperrors.Infrastructure("route access cache unavailable", err)
	}
	if ok {
		if r.metrics != nil {
			r.metrics.CacheHitsTotal.WithLabelValues(driver).Inc()
		}
		return snap, nil
	}
	if r.metrics != nil {
		r.metrics.CacheMissesTotal.WithLabelValues(driver).Inc()
	}

	v, err, _ := r.reloads.Do(CacheKey, func() (interface{}, error) {
		return r.reload(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(Snapshot), nil
}

func (r *Registry) reload(ctx context.Context) (Snapshot, error) {
	ctx, span := observability.StartSpan(ctx, "access.snapshot.reload",
		attribute.String("cache.driver", r.cache.Driver()))
	defer span.End()

	generation := r.generation.Load()
	start := time.Now()

	snap, err := r.store.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot load failed")
		if r.metrics != nil {
			r.metrics.SnapshotReloadsTotal.WithLabelValues("error").Inc()
		}
		return nil, apperrors.Infrastructure("failed to load route access policies", err)
	}

	if r.metrics != nil {
		r.metrics.SnapshotReloadsTotal.WithLabelValues("success").Inc()
		r.metrics.SnapshotReloadTime.Observe(time.Since(start).Seconds())
		r.metrics.SnapshotRoutes.Set(float64(len(snap)))
	}
	span.SetAttributes(attribute.Int("access.routes", len(snap)))

	if r.generation.Load() != generation {
		return snap, nil
	}
	if err := r.cache.Set(ctx, snap); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("Failed to cache route access snapshot")
		return snap, nil
	}
	// An invalidation between the check and Set may have run its Forget
	// before Set landed; drop what was just stored.
	if r.generation.Load() != generation {
		if err := r.cache.Forget(ctx); err != nil {
			observability.FromContext(ctx).WithError(err).Warn("Failed to drop superseded route access snapshot")
		}
	}
	return snap, nil
}

// Get returns the policy of routeName. ok is false when the route has no entry.
func (r *Registry) Get(ctx context.Context, routeName string) (Policy, bool, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return Policy{}, false, err
	}
	p, ok := snap[routeName]
	return p, ok, nil
}

// Invalidate drops the cached snapshot and tells other instances to do the same
func (r *Registry) Invalidate(ctx context.Context) error {
	r.forget()
	if r.metrics != nil {
		r.metrics.InvalidationsTotal.WithLabelValues("local").Inc()
	}

	if err := r.cache.Forget(ctx); err != nil {
		return apperrors.Infrastructure("failed to invalidate route access cache", err)
	}
	if r.broadcaster != nil {
		if err := r.broadcaster.Publish(ctx); err != nil {
			observability.FromContext(ctx).WithError(err).Warn("Failed to broadcast route access invalidation")
		}
	}
	return nil
}

func (r *Registry) forget() {
	r.generation.Add(1)
	r.reloads.Forget(CacheKey)
}

func (r *Registry) invalidateRemote(ctx context.Context) {
	r.forget()
	if r.metrics != nil {
		r.metrics.InvalidationsTotal.WithLabelValues("remote").Inc()
	}
	if err := r.cache.Forget(ctx); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("Failed to apply remote route access invalidation")
	}
}

// Listen applies invalidations published by other instances until ctx is
// cancelled. It returns immediately when no broadcaster is configured.
func (r *Registry) Listen(ctx context.Context) error {
	if r.broadcaster == nil {
		return nil
	}
	return r.broadcaster.Listen(ctx, r.invalidateRemote)
}

func (r *Registry) record(ctx context.Context, event string, e *Entry, attrs, old map[string]interface{}) {
	audit.SafeRecordModel(ctx, r.recorder, audit.ModelChange{
		Model:      ModelRouteAccess,
		SubjectID:  e.ID,
		Identifier: audit.Identify("", "", e.ID),
		Event:      event,
		Attributes: attrs,
		Old:        old,
	})
}
