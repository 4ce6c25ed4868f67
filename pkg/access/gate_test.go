package access

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/auth"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
)

type staticPolicies struct {
	snap Snapshot
	err  error
}

func (s staticPolicies) Get(_ context.Context, routeName string) (Policy, bool, error) {
	if s.err != nil {
		return Policy{}, false, s.err
	}
	p, ok := s.snap[routeName]
	return p, ok, nil
}

type revoked struct {
	ids []int64
}

func (r *revoked) RevokeSession(_ context.Context, sessionID int64) error {
	r.ids = append(r.ids, sessionID)
	return nil
}

var gatePolicies = Snapshot{
	"reports.index":    {PermissionName: "report.view", IsActive: true},
	"reports.disabled": {PermissionName: "", IsActive: false, IsPublic: true},
	"reports.public":   {PermissionName: "report.secret", IsActive: true, IsPublic: true},
	"reports.open":     {IsActive: true},
}

func principal(active, bypass bool, permissions ...string) *auth.Principal {
	return auth.NewPrincipal(&auth.User{ID: 7, Name: "Ada", IsActive: active}, 42, permissions, bypass)
}

func reasonOf(err error) string {
	if e, ok := apperrors.As(err); ok {
		return e.Reason
	}
	return ""
}

func TestGate_Check(t *testing.T) {
	tests := []struct {
		name      string
		principal *auth.Principal
		route     string
		reason    string
	}{
		{"no principal", nil, "reports.index", ReasonUnauthenticated},
		{"bypass on disabled route", principal(true, true), "reports.disabled", ""},
		{"bypass with inactive account", principal(false, true), "reports.index", ""},
		{"inactive account", principal(false, false, "report.view"), "reports.index", ReasonAccountDisabled},
		{"unnamed route", principal(true, false), "", ""},
		{"unregistered route", principal(true, false), "reports.unknown", ""},
		{"disabled public route", principal(true, false), "reports.disabled", ReasonRouteDisabled},
		{"public route without permission", principal(true, false), "reports.public", ""},
		{"route without permission name", principal(true, false), "reports.open", ""},
		{"holds permission", principal(true, false, "report.view"), "reports.index", ""},
		{"lacks permission", principal(true, false, "report.export"), "reports.index", ReasonMissingPermission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(staticPolicies{snap: gatePolicies}, &revoked{}, nil)
			err := gate.Check(context.Background(), tt.principal, tt.route)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsAuthorization(err))
			assert.Equal(t, tt.reason, reasonOf(err))
		})
	}
}

func TestGate_InactiveAccountRevokesSession(t *testing.T) {
	sessions := &revoked{}
	gate := NewGate(staticPolicies{snap: gatePolicies}, sessions, nil)

	err := gate.Check(context.Background(), principal(false, false), "reports.open")
	assert.Equal(t, ReasonAccountDisabled, reasonOf(err))
	assert.Equal(t, []int64{42}, sessions.ids)
}

func TestGate_PolicyFailureDenies(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	failing := staticPolicies{err: apperrors.Infrastructure("route access cache unavailable", errors.New("down"))}
	gate := NewGate(failing, nil, metrics)

	err := gate.Check(context.Background(), principal(true, false, "report.view"), "reports.index")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInfrastructure, apperrors.KindOf(err))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.GateDecisionsTotal.WithLabelValues("error", "infrastructure")))

	// bypass never consults policies
	assert.NoError(t, gate.Check(context.Background(), principal(true, true), "reports.index"))
}

func TestGate_Middleware(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	gate := NewGate(staticPolicies{snap: gatePolicies}, nil, metrics)

	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var p *auth.Principal
			switch r.Header.Get("X-Test-User") {
			case "viewer":
				p = principal(true, false, "report.view")
			case "guest":
				p = principal(true, false)
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	})
	router.Use(gate.Middleware)
	router.HandleFunc("/reports", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Name("reports.index")

	serve := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		req.Header.Set("X-Test-User", user)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, serve("viewer").Code)

	rec := serve("guest")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"You do not have permission to access this resource.","reason":"missing_permission"}`, rec.Body.String())

	rec = serve("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unauthenticated.")

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.GateDecisionsTotal.WithLabelValues("allow", "permission")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.GateDecisionsTotal.WithLabelValues("deny", ReasonMissingPermission)))
}
