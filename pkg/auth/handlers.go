package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
)

// Auth activity events
const (
	EventLogin       = "login"
	EventLogout      = "logout"
	EventLoginFailed = "login_failed"
)

// AuditLogger records authentication events
type AuditLogger interface {
	LogAuthEvent(ctx context.Context, event string, userID *int64, properties map[string]interface{}) error
}

// LoginThrottle limits repeated login attempts per key
type LoginThrottle interface {
	TooManyAttempts(ctx context.Context, key string) (bool, time.Duration, error)
	Hit(ctx context.Context, key string) error
	Clear(ctx context.Context, key string) error
}

// Handlers serves login and logout
type Handlers struct {
	service  *Service
	throttle LoginThrottle
	audit    AuditLogger
	metrics  *observability.Metrics
}

// NewHandlers creates auth handlers; audit and metrics may be nil
func NewHandlers(service *Service, throttle LoginThrottle, audit AuditLogger, metrics *observability.Metrics) *Handlers {
	return &Handlers{
		service:  service,
		throttle: throttle,
		audit:    audit,
		metrics:  metrics,
	}
}

// RegisterPublicRoutes registers routes reachable without a session
func (h *Handlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/login", h.login).Methods(http.MethodPost).Name("login")
}

// RegisterRoutes registers routes that require a session
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/logout", h.logout).Methods(http.MethodPost).Name("logout")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	ctx := r.Context()
	ip := clientIP(r)
	key := ThrottleKey(req.Email, ip)

	limited, retryAfter, err := h.throttle.TooManyAttempts(ctx, key)
	if err != nil {
		observability.FromContext(ctx).WithError(err).Warn("Login throttle unavailable")
	}
	if limited {
		h.countAttempt("throttled")
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds()+0.5)))
		httputil.WriteTooManyRequests(w, fmt.Sprintf("too many login attempts, retry in %d seconds", int(retryAfter.Seconds()+0.5)))
		return
	}

	result, user, err := h.service.Login(ctx, req.Email, req.Password, ip, r.UserAgent())
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrAccountDisabled) {
			if hitErr := h.throttle.Hit(ctx, key); hitErr != nil {
				observability.FromContext(ctx).WithError(hitErr).Warn("Failed to record login attempt")
			}
			var userID *int64
			if user != nil {
				userID = &user.ID
			}
			h.record(ctx, EventLoginFailed, userID, map[string]interface{}{
				"email": strings.ToLower(strings.TrimSpace(req.Email)),
				"ip":    ip,
			})
			h.countAttempt("failed")
		}
		httputil.WriteServiceError(w, err)
		return
	}

	if err := h.throttle.Clear(ctx, key); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("Failed to clear login throttle")
	}
	h.record(ctx, EventLogin, &result.User.ID, map[string]interface{}{"ip": ip})
	h.countAttempt("success")

	httputil.WriteSuccess(w, result)
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteServiceError(w, ErrInvalidSession)
		return
	}

	if err := h.service.RevokeSession(r.Context(), principal.SessionID); err != nil {
		httputil.WriteServiceError(w, apperrors.Infrastructure("failed to end session", err))
		return
	}

	userID := principal.UserID()
	h.record(r.Context(), EventLogout, &userID, map[string]interface{}{"ip": clientIP(r)})
	httputil.WriteNoContent(w)
}

func (h *Handlers) record(ctx context.Context, event string, userID *int64, props map[string]interface{}) {
	if h.audit == nil {
		return
	}
	if err := h.audit.LogAuthEvent(ctx, event, userID, props); err != nil {
		observability.FromContext(ctx).WithError(err).Warnf("Failed to record %s activity", event)
	}
}

func (h *Handlers) countAttempt(status string) {
	if h.metrics != nil {
		h.metrics.LoginAttemptsTotal.WithLabelValues(status).Inc()
	}
}

// ThrottleKey combines the normalized email and client IP
func ThrottleKey(email, ip string) string {
	return strings.ToLower(strings.TrimSpace(email)) + "|" + ip
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
