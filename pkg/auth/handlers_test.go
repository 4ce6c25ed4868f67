package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
)

type mockAuditLogger struct {
	mu     sync.Mutex
	events []string
}

func (m *mockAuditLogger) LogAuthEvent(ctx context.Context, event string, userID *int64, properties map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

type countingThrottle struct {
	max   int
	hits  map[string]int
	clear int
}

func (c *countingThrottle) TooManyAttempts(ctx context.Context, key string) (bool, time.Duration, error) {
	return c.hits[key] >= c.max, 30 * time.Second, nil
}

func (c *countingThrottle) Hit(ctx context.Context, key string) error {
	c.hits[key]++
	return nil
}

func (c *countingThrottle) Clear(ctx context.Context, key string) error {
	delete(c.hits, key)
	c.clear++
	return nil
}

func setupHandlers(t *testing.T) (*mux.Router, *mockAuditLogger, *countingThrottle, *observability.Metrics) {
	t.Helper()

	service, db := setupService(t)
	insertLoginUser(t, db, "admin@example.com", "password123", true)

	audit := &mockAuditLogger{}
	throttle := &countingThrottle{max: 2, hits: make(map[string]int)}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	h := NewHandlers(service, throttle, audit, metrics)

	router := mux.NewRouter()
	h.RegisterPublicRoutes(router)
	authed := router.NewRoute().Subrouter()
	authed.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			session, user, err := service.Authenticate(r.Context(), token)
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			ctx := WithPrincipal(r.Context(), NewPrincipal(user, session.ID, nil, false))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	h.RegisterRoutes(authed)

	return router, audit, throttle, metrics
}

func doLogin(router http.Handler, email, password string) *httptest.ResponseRecorder {
	body := `{"email":"` + email + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.RemoteAddr = "192.0.2.1:5555"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_LoginLogout(t *testing.T) {
	router, audit, throttle, metrics := setupHandlers(t)

	rec := doLogin(router, "admin@example.com", "password123")
	require.Equal(t, http.StatusOK, rec.Code)

	var result LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, strings.HasPrefix(result.Token, TokenPrefix))
	assert.Equal(t, 1, throttle.clear)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+result.Token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+result.Token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "session is gone after logout")

	assert.Equal(t, []string{EventLogin, EventLogout}, audit.events)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.LoginAttemptsTotal.WithLabelValues("success")))
}

func TestHandlers_LoginThrottled(t *testing.T) {
	router, audit, throttle, metrics := setupHandlers(t)

	assert.Equal(t, http.StatusForbidden, doLogin(router, "admin@example.com", "bad").Code)
	assert.Equal(t, http.StatusForbidden, doLogin(router, "ADMIN@example.com", "bad").Code)

	rec := doLogin(router, "admin@example.com", "password123")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	assert.Equal(t, 2, throttle.hits[ThrottleKey("admin@example.com", "192.0.2.1")])
	assert.Equal(t, []string{EventLoginFailed, EventLoginFailed}, audit.events)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.LoginAttemptsTotal.WithLabelValues("throttled")))
}

func TestHandlers_LoginBadBody(t *testing.T) {
	router, _, _, _ := setupHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusUnprocessableEntity, doLogin(router, "", "").Code)
}
