package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/auth"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/contextkeys"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/rbac"
)

type fakeSessions struct {
	token string
	user  *auth.User
	err   error
}

func (f fakeSessions) Authenticate(ctx context.Context, token string) (*auth.Session, *auth.User, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	if token != f.token {
		return nil, nil, auth.ErrInvalidSession
	}
	return &auth.Session{ID: 42, UserID: f.user.ID}, f.user, nil
}

type fakeCapabilities struct {
	caps *rbac.Capabilities
	err  error
}

func (f fakeCapabilities) LoadCapabilities(ctx context.Context, userID int64) (*rbac.Capabilities, error) {
	return f.caps, f.err
}

// serve runs one request and returns the context the handler saw, or nil
// when the handler was not called
func serve(m *SessionMiddleware, header string) (*httptest.ResponseRecorder, context.Context) {
	var seen context.Context
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Context()
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestSessionMiddleware(t *testing.T) {
	user := &auth.User{ID: 7, Name: "Ada", IsActive: true}
	sessions := fakeSessions{token: "sk_valid", user: user}
	caps := fakeCapabilities{caps: &rbac.Capabilities{Permissions: []string{"user.view"}}}

	t.Run("valid session attaches principal", func(t *testing.T) {
		rec, ctx := serve(NewSessionMiddleware(sessions, caps), "Bearer sk_valid")
		require.NotNil(t, ctx)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		principal := auth.PrincipalFromContext(ctx)
		require.NotNil(t, principal)
		assert.Equal(t, int64(7), principal.UserID())
		assert.Equal(t, int64(42), principal.SessionID)
		assert.True(t, principal.HasPermission("user.view"))
		assert.False(t, principal.HasBypassRole())
		assert.Equal(t, "7", contextkeys.GetUserID(ctx))
		assert.Equal(t, "Ada", contextkeys.GetUserName(ctx))
	})

	t.Run("scheme is case insensitive", func(t *testing.T) {
		_, ctx := serve(NewSessionMiddleware(sessions, caps), "bearer sk_valid")
		require.NotNil(t, ctx)
		assert.NotNil(t, auth.PrincipalFromContext(ctx))
	})

	t.Run("bypass flag carried", func(t *testing.T) {
		bypass := fakeCapabilities{caps: &rbac.Capabilities{Permissions: []string{}, Bypass: true}}
		_, ctx := serve(NewSessionMiddleware(sessions, bypass), "Bearer sk_valid")
		require.NotNil(t, ctx)
		principal := auth.PrincipalFromContext(ctx)
		require.NotNil(t, principal)
		assert.True(t, principal.HasBypassRole())
	})

	for name, header := range map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic sk_valid",
		"empty token":    "Bearer ",
		"unknown token":  "Bearer sk_other",
	} {
		t.Run(name+" continues anonymously", func(t *testing.T) {
			rec, ctx := serve(NewSessionMiddleware(sessions, caps), header)
			require.NotNil(t, ctx)
			assert.Nil(t, auth.PrincipalFromContext(ctx))
			assert.Equal(t, http.StatusNoContent, rec.Code)
		})
	}

	t.Run("session store failure", func(t *testing.T) {
		broken := fakeSessions{err: errors.New("db down")}
		rec, ctx := serve(NewSessionMiddleware(broken, caps), "Bearer sk_valid")
		assert.Nil(t, ctx)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("capability failure", func(t *testing.T) {
		rec, ctx := serve(NewSessionMiddleware(sessions, fakeCapabilities{err: errors.New("db down")}), "Bearer sk_valid")
		assert.Nil(t, ctx)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
