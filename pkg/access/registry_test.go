package access

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/audit/audittest"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/routes"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage/storagetest"
)

func noop(http.ResponseWriter, *http.Request) {}

// testRouter registers a small admin surface
func testRouter() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/login", noop).Methods(http.MethodPost).Name("login")
	router.HandleFunc("/dashboard", noop).Methods(http.MethodGet).Name("dashboard")
	admin := router.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/users", noop).Methods(http.MethodGet, http.MethodHead).Name("admin.users.index")
	admin.HandleFunc("/users", noop).Methods(http.MethodPost).Name("admin.users.store")
	admin.HandleFunc("/users/{id:[0-9]+}", noop).Methods(http.MethodPut, http.MethodPatch).Name("admin.users.update")
	admin.HandleFunc("/users/{id:[0-9]+}", noop).Methods(http.MethodDelete).Name("admin.users.destroy")
	return router
}

type registryFixture struct {
	db       *sql.DB
	registry *Registry
	recorder *audittest.Recorder
	metrics  *observability.Metrics
}

func setupRegistry(t *testing.T) *registryFixture {
	t.Helper()
	db := storagetest.NewSQLite(t)
	f := &registryFixture{
		db:       db,
		recorder: &audittest.Recorder{},
		metrics:  observability.NewMetrics(prometheus.NewRegistry()),
	}
	f.registry = NewRegistry(NewStore(db), routes.NewCatalog(testRouter()), RegistryOptions{
		Recorder: f.recorder,
		Metrics:  f.metrics,
	})
	f.registry.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }
	return f
}

func (f *registryFixture) entry(t *testing.T, routeName string) *Entry {
	t.Helper()
	all, err := f.registry.Store().All(context.Background())
	require.NoError(t, err)
	for _, e := range all {
		if e.RouteName == routeName {
			return e
		}
	}
	t.Fatalf("no entry for %s", routeName)
	return nil
}

func boolPtr(b bool) *bool { return &b }

func TestRegistry_ScanCreatesAndMatches(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()
	viewID := storagetest.InsertPermission(t, f.db, "user.view")

	result, err := f.registry.Scan(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Created: 5, Matched: 1}, result)

	index := f.entry(t, "admin.users.index")
	assert.Equal(t, "/admin/users", index.RouteURI)
	assert.Equal(t, http.MethodGet, index.RouteMethod)
	assert.Equal(t, "user.view", index.PermissionName)
	require.NotNil(t, index.PermissionID)
	assert.Equal(t, viewID, *index.PermissionID)
	assert.True(t, index.IsActive)
	assert.False(t, index.IsPublic)

	// first method of a multi-method route wins
	assert.Equal(t, http.MethodPut, f.entry(t, "admin.users.update").RouteMethod)

	store := f.entry(t, "admin.users.store")
	assert.Empty(t, store.PermissionName)
	assert.Nil(t, store.PermissionID)

	assert.Len(t, f.recorder.Events(), 5)
	assert.Equal(t, "RouteAccess:created", f.recorder.Events()[0])
	assert.Equal(t, float64(5), testutil.ToFloat64(f.metrics.ScanRoutesTotal.WithLabelValues("created")))
}

func TestRegistry_ScanIsIdempotent(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()
	storagetest.InsertPermission(t, f.db, "user.view")

	_, err := f.registry.Scan(ctx, nil)
	require.NoError(t, err)

	result, err := f.registry.Scan(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 1, result.Matched)
}

func TestRegistry_ScanKeepsFlagsAndUpdatesLinks(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	_, err := f.registry.Scan(ctx, nil)
	require.NoError(t, err)
	index := f.entry(t, "admin.users.index")
	_, err = f.registry.BulkSetFlag(ctx, []int64{index.ID}, FlagActive, false)
	require.NoError(t, err)
	_, err = f.registry.BulkSetFlag(ctx, []int64{index.ID}, FlagPublic, true)
	require.NoError(t, err)

	storagetest.InsertPermission(t, f.db, "user.view")
	result, err := f.registry.Scan(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Updated: 1, Matched: 1}, result)

	index = f.entry(t, "admin.users.index")
	assert.False(t, index.IsActive)
	assert.True(t, index.IsPublic)
	assert.Equal(t, "user.view", index.PermissionName)
}

func TestRegistry_UnfilteredScanNeverDeletes(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	_, err := f.registry.Create(ctx, Input{RouteName: "admin.legacy.index"})
	require.NoError(t, err)
	_, err = f.registry.Create(ctx, Input{RouteName: "reports.index"})
	require.NoError(t, err)

	result, err := f.registry.Scan(ctx, []string{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Removed)

	names, err := f.registry.Store().RouteNames(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "admin.legacy.index")
	assert.Contains(t, names, "reports.index")
}

func TestRegistry_PrefixScanRemovesStaleEntries(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	_, err := f.registry.Create(ctx, Input{RouteName: "admin.legacy.index"})
	require.NoError(t, err)
	_, err = f.registry.Create(ctx, Input{RouteName: "reports.index"})
	require.NoError(t, err)

	result, err := f.registry.Scan(ctx, []string{"admin."})
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Created: 4, Removed: 1}, result)

	names, err := f.registry.Store().RouteNames(ctx)
	require.NoError(t, err)
	assert.NotContains(t, names, "admin.legacy.index")
	assert.NotContains(t, names, "dashboard")
	assert.Contains(t, names, "reports.index")
	assert.Contains(t, f.recorder.Events(), "RouteAccess:deleted")
}

func TestRegistry_GetReflectsWrites(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	_, ok, err := f.registry.Get(ctx, "reports.index")
	require.NoError(t, err)
	assert.False(t, ok)

	e, err := f.registry.Create(ctx, Input{RouteName: "reports.index", PermissionName: "report.view"})
	require.NoError(t, err)
	p, ok, err := f.registry.Get(ctx, "reports.index")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Policy{PermissionName: "report.view", IsActive: true}, p)

	_, err = f.registry.Update(ctx, e.ID, Input{RouteName: "reports.index", IsPublic: boolPtr(true)})
	require.NoError(t, err)
	p, _, err = f.registry.Get(ctx, "reports.index")
	require.NoError(t, err)
	assert.Equal(t, Policy{IsActive: true, IsPublic: true}, p)

	_, err = f.registry.BulkUpdate(ctx, []int64{e.ID}, ActionDeactivate)
	require.NoError(t, err)
	p, _, err = f.registry.Get(ctx, "reports.index")
	require.NoError(t, err)
	assert.False(t, p.IsActive)

	require.NoError(t, f.registry.Delete(ctx, e.ID))
	_, ok, err = f.registry.Get(ctx, "reports.index")
	require.NoError(t, err)
	assert.False(t, ok)
}

// racingCache runs beforeSet once, just before the first snapshot is stored
type racingCache struct {
	*MemoryCache
	beforeSet func()
}

func (c *racingCache) Set(ctx context.Context, snap Snapshot) error {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	return c.MemoryCache.Set(ctx, snap)
}

func TestRegistry_WriteDuringReloadIsNotCachedOver(t *testing.T) {
	db := storagetest.NewSQLite(t)
	cache := &racingCache{MemoryCache: NewMemoryCache(DefaultTTL)}
	registry := NewRegistry(NewStore(db), routes.NewCatalog(testRouter()), RegistryOptions{Cache: cache})
	ctx := context.Background()

	e, err := registry.Create(ctx, Input{RouteName: "reports.index"})
	require.NoError(t, err)

	// the reload has read the active row; the deactivation commits and
	// invalidates before the stale snapshot reaches the cache
	cache.beforeSet = func() {
		_, err := registry.Update(ctx, e.ID, Input{RouteName: "reports.index", IsActive: boolPtr(false)})
		require.NoError(t, err)
	}
	p, ok, err := registry.Get(ctx, "reports.index")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p.IsActive, "request that started before the write sees the old row")

	p, _, err = registry.Get(ctx, "reports.index")
	require.NoError(t, err)
	assert.False(t, p.IsActive)

	_, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "fresh snapshot is cached again")
}

func TestRegistry_SnapshotIsCached(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	_, err := f.registry.Create(ctx, Input{RouteName: "reports.index"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := f.registry.Get(ctx, "reports.index")
		require.NoError(t, err)
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CacheMissesTotal.WithLabelValues(DriverMemory)))
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.CacheHitsTotal.WithLabelValues(DriverMemory)))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SnapshotRoutes))
}

func TestRegistry_SnapshotFailureIsInfrastructure(t *testing.T) {
	f := setupRegistry(t)
	require.NoError(t, f.db.Close())

	_, _, err := f.registry.Get(context.Background(), "reports.index")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInfrastructure, apperrors.KindOf(err))
}

func TestRegistry_CreateValidation(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	_, err := f.registry.Create(ctx, Input{RouteMethod: "CONNECT-EXTRA"})
	require.Error(t, err)
	fields := err.(*apperrors.Error).Fields
	assert.Equal(t, "The route name field is required.", fields["route_name"])
	assert.Contains(t, fields, "route_method")

	_, err = f.registry.Create(ctx, Input{RouteName: "reports.index"})
	require.NoError(t, err)
	_, err = f.registry.Create(ctx, Input{RouteName: "reports.index"})
	require.Error(t, err)
	assert.Equal(t, "The route name has already been taken.", err.(*apperrors.Error).Fields["route_name"])
}

func TestRegistry_CreateLinksPermission(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()
	id := storagetest.InsertPermission(t, f.db, "report.view")

	e, err := f.registry.Create(ctx, Input{RouteName: "reports.index", PermissionName: "report.view"})
	require.NoError(t, err)
	require.NotNil(t, e.PermissionID)
	assert.Equal(t, id, *e.PermissionID)

	e, err = f.registry.Update(ctx, e.ID, Input{RouteName: "reports.index", PermissionName: "report.list"})
	require.NoError(t, err)
	assert.Nil(t, e.PermissionID)

	last, ok := f.recorder.Last()
	require.True(t, ok)
	assert.Equal(t, "updated", last.Event)
	assert.Equal(t, "report.view", last.Old["permission_name"])
}

func TestRegistry_RelinkPermissions(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	e, err := f.registry.Create(ctx, Input{RouteName: "reports.index", PermissionName: "report.view"})
	require.NoError(t, err)
	require.Nil(t, e.PermissionID)

	id := storagetest.InsertPermission(t, f.db, "report.view")
	n, err := f.registry.RelinkPermissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	linked := f.entry(t, "reports.index")
	require.NotNil(t, linked.PermissionID)
	assert.Equal(t, id, *linked.PermissionID)

	n, err = f.registry.RelinkPermissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = f.db.Exec("UPDATE permissions SET name = $1 WHERE id = $2", "report.list", id)
	require.NoError(t, err)
	n, err = f.registry.RelinkPermissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	unlinked := f.entry(t, "reports.index")
	assert.Nil(t, unlinked.PermissionID)
	assert.Equal(t, "report.view", unlinked.PermissionName)
}

func TestRegistry_BulkOperations(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	a, err := f.registry.Create(ctx, Input{RouteName: "reports.index"})
	require.NoError(t, err)
	b, err := f.registry.Create(ctx, Input{RouteName: "reports.export"})
	require.NoError(t, err)

	_, err = f.registry.BulkUpdate(ctx, []int64{a.ID}, "archive")
	require.Error(t, err)
	assert.Contains(t, err.(*apperrors.Error).Fields, "action")

	_, err = f.registry.BulkUpdate(ctx, []int64{a.ID, 999}, ActionMakePublic)
	require.Error(t, err)
	assert.Contains(t, err.(*apperrors.Error).Fields, "ids")

	_, err = f.registry.BulkUpdate(ctx, nil, ActionMakePublic)
	require.Error(t, err)
	assert.Contains(t, err.(*apperrors.Error).Fields, "ids")

	msg, err := f.registry.BulkUpdate(ctx, []int64{a.ID, b.ID}, ActionMakePublic)
	require.NoError(t, err)
	assert.Equal(t, "Routes made public successfully.", msg)
	assert.True(t, f.entry(t, "reports.export").IsPublic)

	n, err := f.registry.BulkDelete(ctx, []int64{a.ID, b.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	names, err := f.registry.Store().RouteNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRegistry_ListAndUnregistered(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	unregistered, err := f.registry.UnregisteredRoutes(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, unregistered, 5)

	_, err = f.registry.Scan(ctx, []string{"admin.users.index"})
	require.NoError(t, err)
	_, err = f.registry.Create(ctx, Input{RouteName: "reports.index", Description: "Monthly reports", IsActive: boolPtr(false)})
	require.NoError(t, err)

	entries, total, unregisteredCount, err := f.registry.List(ctx, ListParams{
		Search: "MONTHLY",
		Page:   httputil.PageParams{Page: 1, PerPage: 15},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, "reports.index", entries[0].RouteName)
	assert.Equal(t, 4, unregisteredCount)

	_, total, _, err = f.registry.List(ctx, ListParams{IsActive: boolPtr(true), Page: httputil.PageParams{Page: 1, PerPage: 15}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	form, err := f.registry.FormData(ctx)
	require.NoError(t, err)
	assert.Len(t, form.UnregisteredRoutes, 4)
	assert.Empty(t, form.Permissions)
}
