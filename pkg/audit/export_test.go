package audit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage/storagetest"
)

func int64Ptr(v int64) *int64 { return &v }

func TestWriteCSV(t *testing.T) {
	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	activities := []*Activity{
		{
			ID:          1,
			LogName:     "permission",
			Description: `Permission "user.view" was created`,
			Event:       "created",
			SubjectType: "Permission",
			SubjectID:   int64Ptr(9),
			CauserName:  "Admin",
			CreatedAt:   created,
		},
		{
			ID:          2,
			LogName:     "auth",
			Description: "Failed login attempt",
			Event:       "login_failed",
			CreatedAt:   created,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, activities))

	assert.Equal(t,
		"ID,Log Name,Description,Event,Subject Type,Subject ID,Causer,Created At\n"+
			`1,permission,"Permission ""user.view"" was created",created,Permission,9,Admin,2026-03-04 05:06:07`+"\n"+
			`2,auth,"Failed login attempt",login_failed,Unknown,N/A,System,2026-03-04 05:06:07`+"\n",
		buf.String())
}

func TestWriteCSV_OnlyDescriptionIsQuoted(t *testing.T) {
	activities := []*Activity{{
		ID:          3,
		LogName:     "default,legacy",
		Description: "Menu, renamed",
		Event:       "updated",
		SubjectType: "Menu",
		SubjectID:   int64Ptr(4),
		CauserName:  "Doe, Jane",
		CreatedAt:   time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, activities))

	// log name and causer are written verbatim, so their commas add columns
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `3,default,legacy,"Menu, renamed",updated,Menu,4,Doe, Jane,2026-03-04 05:06:07`, lines[1])
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "activity_logs_2026-10-15_093005.csv",
		ExportFilename(time.Date(2026, 10, 15, 9, 30, 5, 0, time.UTC)))
}

type fakeObjects struct {
	key  string
	body string
	err  error
}

func (f *fakeObjects) PutObject(ctx context.Context, key string, content io.Reader, contentType string) error {
	if f.err != nil {
		return f.err
	}
	data, _ := io.ReadAll(content)
	f.key, f.body = key, string(data)
	return nil
}

func seedActivity(t *testing.T, r *Recorder, description string, at time.Time) {
	t.Helper()
	require.NoError(t, r.Record(context.Background(), &Activity{
		LogName: "menu", Description: description, Event: EventCreated, CreatedAt: at,
	}))
}

func TestRetention_ArchivesThenPrunes(t *testing.T) {
	db := storagetest.NewSQLite(t)
	recorder := NewRecorder(db, nil)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	seedActivity(t, recorder, "ancient", now.AddDate(0, 0, -100))
	seedActivity(t, recorder, "old", now.AddDate(0, 0, -31))
	seedActivity(t, recorder, "fresh", now.AddDate(0, 0, -1))

	objects := &fakeObjects{}
	retention := NewRetention(NewStore(db), objects, "archive/", nil)
	retention.now = func() time.Time { return now }

	result, err := retention.Run(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Archived)
	assert.Equal(t, int64(2), result.Pruned)
	assert.Equal(t, "archive/activity_logs_2026-10-15_120000.csv", result.ObjectKey)
	assert.Contains(t, objects.body, `"ancient"`)
	assert.Contains(t, objects.body, `"old"`)
	assert.NotContains(t, objects.body, "fresh")

	var remaining int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM activity_log").Scan(&remaining))
	assert.Equal(t, 1, remaining)
}

func TestRetention_ArchiveFailureKeepsRows(t *testing.T) {
	db := storagetest.NewSQLite(t)
	recorder := NewRecorder(db, nil)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	seedActivity(t, recorder, "old", now.AddDate(0, 0, -60))

	retention := NewRetention(NewStore(db), &fakeObjects{err: errors.New("bucket gone")}, "", nil)
	retention.now = func() time.Time { return now }

	_, err := retention.Run(context.Background(), 30)
	require.Error(t, err)

	var remaining int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM activity_log").Scan(&remaining))
	assert.Equal(t, 1, remaining)
}

func TestRetention_WithoutArchive(t *testing.T) {
	db := storagetest.NewSQLite(t)
	recorder := NewRecorder(db, nil)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	seedActivity(t, recorder, "old", now.AddDate(0, 0, -60))

	retention := NewRetention(NewStore(db), nil, "", nil)
	retention.now = func() time.Time { return now }

	result, err := retention.Run(context.Background(), 30)
	require.NoError(t, err)
	assert.Zero(t, result.Archived)
	assert.Equal(t, int64(1), result.Pruned)

	_, err = retention.Run(context.Background(), 0)
	assert.Error(t, err)
}
