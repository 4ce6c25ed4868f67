package access

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/auth"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
)

// Denial reasons
const (
	ReasonUnauthenticated   = httputil.ReasonUnauthenticated
	ReasonAccountDisabled   = "account_disabled"
	ReasonRouteDisabled     = "route_disabled"
	ReasonMissingPermission = "missing_permission"
)

var denialMessages = map[string]string{
	ReasonUnauthenticated:   "Unauthenticated.",
	ReasonAccountDisabled:   "Your account has been deactivated.",
	ReasonRouteDisabled:     "This route is currently disabled.",
	ReasonMissingPermission: "You do not have permission to access this resource.",
}

// Deny builds the authorization error for a denial reason
func Deny(reason string) error {
	return apperrors.Forbidden(reason, denialMessages[reason])
}

// PolicySource looks up the policy of a named route
type PolicySource interface {
	Get(ctx context.Context, routeName string) (Policy, bool, error)
}

// SessionTerminator ends the session of a principal whose account was disabled
type SessionTerminator interface {
	RevokeSession(ctx context.Context, sessionID int64) error
}

// Gate decides whether a principal may call a named route
type Gate struct {
	policies PolicySource
	sessions SessionTerminator
	metrics  *observability.Metrics
}

// NewGate creates a gate; sessions and metrics may be nil
func NewGate(policies PolicySource, sessions SessionTerminator, metrics *observability.Metrics) *Gate {
	return &Gate{policies: policies, sessions: sessions, metrics: metrics}
}

// Check returns nil to allow the request, an authorization error to deny it,
// or an infrastructure error when the policy cannot be loaded. routeName is
// empty for unnamed routes.
func (g *Gate) Check(ctx context.Context, principal *auth.Principal, routeName string) error {
	reason, err := g.decide(ctx, principal, routeName)
	if err != nil {
		g.observe("error", "infrastructure")
		return err
	}
	if reason != "" {
		g.observe("deny", reason)
		return Deny(reason)
	}
	return nil
}

func (g *Gate) decide(ctx context.Context, principal *auth.Principal, routeName string) (string, error) {
	if principal == nil {
		return ReasonUnauthenticated, nil
	}
	if principal.HasBypassRole() {
		g.observe("allow", "bypass")
		return "", nil
	}
	if !principal.IsActive() {
		if g.sessions != nil && principal.SessionID != 0 {
			if err := g.sessions.RevokeSession(ctx, principal.SessionID); err != nil {
				observability.FromContext(ctx).WithError(err).Warn("Failed to revoke session of disabled account")
			}
		}
		return ReasonAccountDisabled, nil
	}
	if routeName == "" {
		g.observe("allow", "unnamed")
		return "", nil
	}

	policy, ok, err := g.policies.Get(ctx, routeName)
	if err != nil {
		return "", err
	}
	switch {
	case !ok:
		g.observe("allow", "unregistered")
		return "", nil
	case !policy.IsActive:
		return ReasonRouteDisabled, nil
	case policy.IsPublic:
		g.observe("allow", "public")
		return "", nil
	case policy.PermissionName == "":
		g.observe("allow", "unrestricted")
		return "", nil
	case principal.HasPermission(policy.PermissionName):
		g.observe("allow", "permission")
		return "", nil
	}
	return ReasonMissingPermission, nil
}

func (g *Gate) observe(decision, reason string) {
	if g.metrics != nil {
		g.metrics.GateDecisionsTotal.WithLabelValues(decision, reason).Inc()
	}
}

// Middleware applies the gate to every request routed by a mux router. It
// must run after the session middleware has placed the principal in the
// request context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var routeName string
		if route := mux.CurrentRoute(r); route != nil {
			routeName = route.GetName()
		}

		if err := g.Check(r.Context(), auth.PrincipalFromContext(r.Context()), routeName); err != nil {
			if !apperrors.IsAuthorization(err) {
				observability.FromContext(r.Context()).WithError(err).
					WithField("route", routeName).Error("Authorization check failed")
			}
			httputil.WriteServiceError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
