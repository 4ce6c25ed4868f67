package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/auth"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/contextkeys"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/rbac"
)

// Authenticator resolves a bearer token to its session and user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Session, *auth.User, error)
}

// CapabilityLoader resolves the capability set of a user
type CapabilityLoader interface {
	LoadCapabilities(ctx context.Context, userID int64) (*rbac.Capabilities, error)
}

// SessionMiddleware attaches the principal of a bearer session to the request.
// Requests without a valid session continue anonymously; the authorization
// gate decides whether that is acceptable for the route.
type SessionMiddleware struct {
	sessions     Authenticator
	capabilities CapabilityLoader
}

// NewSessionMiddleware creates the session middleware
func NewSessionMiddleware(sessions Authenticator, capabilities CapabilityLoader) *SessionMiddleware {
	return &SessionMiddleware{
		sessions:     sessions,
		capabilities: capabilities,
	}
}

// Handler wraps an HTTP handler with session authentication
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		session, user, err := m.sessions.Authenticate(ctx, token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidSession) {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteServiceError(w, apperrors.Infrastructure("failed to resolve session", err))
			return
		}

		caps, err := m.capabilities.LoadCapabilities(ctx, user.ID)
		if err != nil {
			httputil.WriteServiceError(w, apperrors.Infrastructure("failed to load capabilities", err))
			return
		}

		principal := auth.NewPrincipal(user, session.ID, caps.Permissions, caps.Bypass)
		ctx = auth.WithPrincipal(ctx, principal)
		ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(user.ID, 10))
		ctx = contextkeys.WithUserName(ctx, user.Name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
