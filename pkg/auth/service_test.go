package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage/storagetest"
)

func insertLoginUser(t *testing.T, db *sql.DB, email, password string, active bool) int64 {
	t.Helper()

	hash, err := HashPassword(password)
	require.NoError(t, err)

	var id int64
	require.NoError(t, db.QueryRow(
		"INSERT INTO users (name, email, password_hash, is_active) VALUES ($1, $2, $3, $4) RETURNING id",
		"Test User", email, hash, active,
	).Scan(&id))
	return id
}

func setupService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db := storagetest.NewSQLite(t)
	return NewService(NewStore(db), time.Hour), db
}

func TestService_LoginAndAuthenticate(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()
	userID := insertLoginUser(t, db, "admin@example.com", "password123", true)

	result, user, err := service.Login(ctx, " Admin@Example.com ", "password123", "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, userID, result.User.ID)

	session, authUser, err := service.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, authUser.ID)
	assert.Equal(t, "10.0.0.1", session.IPAddress)
	require.NotNil(t, session.LastUsedAt, "first use reports the touch")

	var lastUsed sql.NullTime
	require.NoError(t, db.QueryRow("SELECT last_used_at FROM sessions WHERE id = $1", session.ID).Scan(&lastUsed))
	assert.True(t, lastUsed.Valid)

	var stored string
	require.NoError(t, db.QueryRow("SELECT token_hash FROM sessions WHERE id = $1", session.ID).Scan(&stored))
	assert.NotEqual(t, result.Token, stored, "plaintext token must never be stored")

	require.NoError(t, service.RevokeSession(ctx, session.ID))
	_, _, err = service.Authenticate(ctx, result.Token)
	assert.True(t, errors.Is(err, ErrInvalidSession))
}

func TestService_LoginFailures(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()
	insertLoginUser(t, db, "active@example.com", "password123", true)
	disabledID := insertLoginUser(t, db, "disabled@example.com", "password123", false)

	_, user, err := service.Login(ctx, "active@example.com", "wrong-password", "", "")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	assert.NotNil(t, user)

	_, user, err = service.Login(ctx, "nobody@example.com", "password123", "", "")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	assert.Nil(t, user)

	_, user, err = service.Login(ctx, "disabled@example.com", "password123", "", "")
	assert.True(t, errors.Is(err, ErrAccountDisabled))
	assert.Equal(t, disabledID, user.ID)

	_, _, err = service.Login(ctx, "", "", "", "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestService_ExpiredSessions(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()
	insertLoginUser(t, db, "admin@example.com", "password123", true)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return base }

	result, _, err := service.Login(ctx, "admin@example.com", "password123", "", "")
	require.NoError(t, err)

	service.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, _, err = service.Authenticate(ctx, result.Token)
	assert.True(t, errors.Is(err, ErrInvalidSession))

	removed, err := service.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestService_RevokeUserSessions(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()
	userID := insertLoginUser(t, db, "admin@example.com", "password123", true)

	for i := 0; i < 3; i++ {
		_, _, err := service.Login(ctx, "admin@example.com", "password123", "", "")
		require.NoError(t, err)
	}

	n, err := service.RevokeUserSessions(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestService_AuthenticateMalformedToken(t *testing.T) {
	service, _ := setupService(t)
	_, _, err := service.Authenticate(context.Background(), "Bearer nonsense")
	assert.True(t, errors.Is(err, ErrInvalidSession))
}
