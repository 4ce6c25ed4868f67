package audit

import (
	"context"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/contextkeys"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage/storagetest"
)

func TestRecorder_RecordModel(t *testing.T) {
	db := storagetest.NewSQLite(t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	recorder := NewRecorder(db, metrics)
	store := NewStore(db)

	userID := storagetest.InsertUser(t, db, "Admin", "admin@example.com")
	ctx := contextkeys.WithUserID(context.Background(), strconv.FormatInt(userID, 10))

	require.NoError(t, recorder.RecordModel(ctx, ModelChange{
		Model:      "Permission",
		SubjectID:  12,
		Identifier: "user.view",
		Event:      EventCreated,
		Attributes: map[string]interface{}{"name": "user.view"},
	}))

	activities, total, err := store.Search(context.Background(), Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)

	a := activities[0]
	assert.Equal(t, "permission", a.LogName)
	assert.Equal(t, `Permission "user.view" was created`, a.Description)
	assert.Equal(t, "Permission", a.SubjectType)
	assert.Equal(t, int64(12), *a.SubjectID)
	assert.Equal(t, userID, *a.CauserID)
	assert.Equal(t, "Admin", a.CauserName)
	assert.Equal(t, map[string]interface{}{"name": "user.view"}, a.Properties["attributes"])

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ActivitiesRecordedTotal.WithLabelValues("permission", "created")))
}

func TestRecorder_SkipsEmptyUpdates(t *testing.T) {
	db := storagetest.NewSQLite(t)
	recorder := NewRecorder(db, nil)

	require.NoError(t, recorder.RecordModel(context.Background(), ModelChange{
		Model: "Menu", SubjectID: 1, Identifier: "Users", Event: EventUpdated,
	}))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM activity_log").Scan(&count))
	assert.Zero(t, count)
}

func TestRecorder_UpdateKeepsOldValues(t *testing.T) {
	db := storagetest.NewSQLite(t)
	recorder := NewRecorder(db, nil)

	changed, old := Dirty(
		map[string]interface{}{"name": "Users", "icon": "users"},
		map[string]interface{}{"name": "People", "icon": "users"},
	)
	require.NoError(t, recorder.RecordModel(context.Background(), ModelChange{
		Model: "Menu", SubjectID: 3, Identifier: "People", Event: EventUpdated,
		Attributes: changed, Old: old,
	}))

	a, err := NewStore(db).Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "People"}, a.Properties["attributes"])
	assert.Equal(t, map[string]interface{}{"name": "Users"}, a.Properties["old"])
	assert.Nil(t, a.CauserID, "no user in context means system causer")
}

func TestRecorder_LogAuthEvent(t *testing.T) {
	db := storagetest.NewSQLite(t)
	recorder := NewRecorder(db, nil)
	userID := storagetest.InsertUser(t, db, "Admin", "admin@example.com")
	ctx := context.Background()

	require.NoError(t, recorder.LogAuthEvent(ctx, "login", &userID, map[string]interface{}{"ip": "10.0.0.1"}))
	require.NoError(t, recorder.LogAuthEvent(ctx, "login_failed", &userID, map[string]interface{}{"email": "admin@example.com"}))
	require.NoError(t, recorder.LogAuthEvent(ctx, "login_failed", nil, map[string]interface{}{"email": "ghost@example.com"}))

	activities, err := NewStore(db).All(ctx, Filter{LogName: LogNameAuth})
	require.NoError(t, err)
	require.Len(t, activities, 3)

	byDescription := map[string]*Activity{}
	for _, a := range activities {
		byDescription[a.Description] = a
	}

	login := byDescription["User logged in"]
	require.NotNil(t, login)
	assert.Equal(t, userID, *login.CauserID)

	failed := byDescription["Failed login attempt for admin@example.com"]
	require.NotNil(t, failed)
	assert.Nil(t, failed.CauserID)
	assert.Equal(t, userID, *failed.SubjectID)

	ghost := byDescription["Failed login attempt for ghost@example.com"]
	require.NotNil(t, ghost)
	assert.Nil(t, ghost.SubjectID)
}

func TestStore_TruncateAgainstSQLite(t *testing.T) {
	db := storagetest.NewSQLite(t)
	recorder := NewRecorder(db, nil)
	store := NewStore(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, recorder.LogAuthEvent(ctx, "logout", nil, nil))
	}

	_, err := store.Truncate(ctx, "nope")
	require.Error(t, err)
	_, total, err := store.Search(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	n, err := store.Truncate(ctx, TruncateConfirmation)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestStore_BulkDeleteAgainstSQLite(t *testing.T) {
	db := storagetest.NewSQLite(t)
	recorder := NewRecorder(db, nil)
	store := NewStore(db)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, recorder.LogAuthEvent(ctx, "logout", nil, nil))
	}

	n, err := store.BulkDelete(ctx, []int64{1, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = store.BulkDelete(ctx, []int64{2, 3})
	require.Error(t, err)

	_, total, err := store.Search(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
