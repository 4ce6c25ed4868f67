package storage

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectOf(t *testing.T) {
	sqlite, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer sqlite.Close()
	assert.Equal(t, DialectSQLite, DialectOf(sqlite))

	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	assert.Equal(t, DialectPostgres, DialectOf(mockDB))

	assert.Equal(t, DialectPostgres, DialectOf(nil))
}

func TestDialect_InInt64(t *testing.T) {
	clause, args, next := DialectPostgres.InInt64("id", 2, []int64{4, 5})
	assert.Equal(t, "id = ANY($2)", clause)
	assert.Equal(t, []interface{}{pq.Array([]int64{4, 5})}, args)
	assert.Equal(t, 3, next)

	clause, args, next = DialectSQLite.InInt64("id", 2, []int64{4, 5})
	assert.Equal(t, "id IN ($2, $3)", clause)
	assert.Equal(t, []interface{}{int64(4), int64(5)}, args)
	assert.Equal(t, 4, next)

	clause, args, next = DialectSQLite.InInt64("id", 1, nil)
	assert.Equal(t, "1 = 0", clause)
	assert.Empty(t, args)
	assert.Equal(t, 1, next)
}

func TestDialect_InStrings(t *testing.T) {
	clause, args, _ := DialectSQLite.InStrings("event", 1, []string{"created", "deleted"})
	assert.Equal(t, "event IN ($1, $2)", clause)
	assert.Equal(t, []interface{}{"created", "deleted"}, args)

	clause, _, next := DialectPostgres.InStrings("event", 1, []string{"created"})
	assert.Equal(t, "event = ANY($1)", clause)
	assert.Equal(t, 2, next)
}

func TestParseReplicaURLs(t *testing.T) {
	assert.Nil(t, ParseReplicaURLs(""))
	assert.Equal(t,
		[]string{"postgres://host1/db", "postgres://host2/db"},
		ParseReplicaURLs(" postgres://host1/db , ,postgres://host2/db "),
	)
}
