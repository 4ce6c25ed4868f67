package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/access"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/audit"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/auth"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/menu"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/middleware"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/rbac"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/routes"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/users"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// Options are the optional collaborators of a Server. Zero values select
// in-process defaults: a memory snapshot cache and a memory login throttle.
type Options struct {
	SessionTTL time.Duration
	Throttle   middleware.ThrottleConfig

	// Redis, when set, backs the login throttle
	Redis       *redis.Client
	Cache       access.SnapshotCache
	Broadcaster *access.Broadcaster

	Logger  *observability.Logger
	Metrics *observability.Metrics

	// Tracing wraps the handler with OpenTelemetry instrumentation
	Tracing bool
}

// Server wires the admin services onto one named-route table
type Server struct {
	router  *mux.Router
	catalog *routes.Catalog
	logger  *observability.Logger
	metrics *observability.Metrics
	handler http.Handler

	Auth     *auth.Service
	RBAC     *rbac.Service
	Users    *users.Service
	Menus    *menu.Service
	Access   *access.Registry
	Activity *audit.Store
	Recorder *audit.Recorder
	Throttle auth.LoginThrottle
}

// NewServer builds every service over db and registers their routes
func NewServer(db *sql.DB, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}

	s := &Server{
		router:  mux.NewRouter(),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	s.catalog = routes.NewCatalog(s.router)

	s.Recorder = audit.NewRecorder(db, opts.Metrics)
	s.Activity = audit.NewStore(db)
	s.Access = access.NewRegistry(access.NewStore(db), s.catalog, access.RegistryOptions{
		Cache:       opts.Cache,
		Broadcaster: opts.Broadcaster,
		Recorder:    s.Recorder,
		Metrics:     opts.Metrics,
	})
	s.Auth = auth.NewService(auth.NewStore(db), opts.SessionTTL)
	roles := rbac.NewStore(db)
	s.RBAC = rbac.NewService(roles, s.Recorder, s.Access)
	s.Users = users.NewService(users.NewStore(db), roles, s.Auth, s.Recorder)
	s.Menus = menu.NewService(menu.NewStore(db), s.catalog, s.Recorder)

	if opts.Redis != nil {
		s.Throttle = middleware.NewRedisThrottle(opts.Redis, opts.Throttle, "")
	} else {
		s.Throttle = middleware.NewMemoryThrottle(opts.Throttle)
	}

	s.setupRoutes(roles)
	s.handler = s.buildHandler(opts.Tracing)
	return s
}

// setupRoutes registers the public routes on the root router and everything
// else on a subrouter guarded by the session middleware and the gate
func (s *Server) setupRoutes(roles *rbac.Store) {
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}

	authHandlers := auth.NewHandlers(s.Auth, s.Throttle, s.Recorder, s.metrics)
	authHandlers.RegisterPublicRoutes(s.router)

	protected := s.router.NewRoute().Subrouter()
	protected.Use(
		middleware.NewSessionMiddleware(s.Auth, roles).Handler,
		access.NewGate(s.Access, s.Auth, s.metrics).Middleware,
	)
	authHandlers.RegisterRoutes(protected)
	protected.HandleFunc("/dashboard", s.dashboard).Methods(http.MethodGet).Name("dashboard")

	admin := protected.PathPrefix("/admin").Subrouter()
	rbac.NewHandlers(s.RBAC).RegisterRoutes(admin)
	users.NewHandlers(s.Users).RegisterRoutes(admin)
	menu.NewHandlers(s.Menus).RegisterRoutes(admin)
	access.NewHandlers(s.Access).RegisterRoutes(admin)
	audit.NewHandlers(s.Activity).RegisterRoutes(admin)
}

// Router returns the named-route table
func (s *Server) Router() *mux.Router {
	return s.router
}

// Catalog enumerates the named routes of the server
func (s *Server) Catalog() *routes.Catalog {
	return s.catalog
}

func (s *Server) buildHandler(tracing bool) http.Handler {
	handler := httputil.Chain(
		httputil.RequestIDMiddleware(s.logger),
		httputil.RecoveryMiddleware,
		httputil.LoggingMiddleware,
		httputil.MaxBytesMiddleware(maxBodyBytes),
	)(s.router)
	if tracing {
		handler = otelhttp.NewHandler(handler, "admin-server")
	}
	return handler
}

// Handler returns the router wrapped with the request middleware chain
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
