package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/access"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/audit"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/config"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/middleware"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage"
)

// Runtime owns the external connections of a process and the Server built
// on them. admin-server, admin-cli and admin-scheduler all start from Open.
type Runtime struct {
	Config   *config.Config
	Logger   *observability.Logger
	DB       *storage.ConnectionManager
	Redis    *storage.RedisClient
	Objects  *storage.ObjectStore
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
	Server   *Server

	otel *observability.OTelProviders
}

// Open connects to the database, and to Redis and S3 when configured, then
// builds the Server
func Open(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: logger}

	if cfg.Observability.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		rt.Metrics = observability.NewMetrics(registry)
		rt.Gatherer = registry
	}

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	rt.otel = otelProviders

	rt.DB, err = storage.NewConnectionManager(cfg.Storage, logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Storage.RedisURL != "" {
		rt.Redis, err = storage.NewRedisClient(cfg.Storage)
		if err != nil {
			rt.Close()
			return nil, err
		}
		logger.Info("Redis connected")
	}

	if cfg.Activity.ArchiveEnabled {
		rt.Objects, err = storage.NewObjectStore(ctx, cfg.Storage)
		if err != nil {
			rt.Close()
			return nil, err
		}
		logger.Infof("Activity archive bucket: %s", rt.Objects.Bucket())
	}

	opts := Options{
		SessionTTL: cfg.Auth.SessionTTL,
		Throttle: middleware.ThrottleConfig{
			MaxAttempts: cfg.Auth.LoginMaxAttempts,
			Window:      cfg.Auth.LoginWindow,
		},
		Logger:  logger,
		Metrics: rt.Metrics,
		Tracing: cfg.Observability.OTelEnabled,
	}
	switch {
	case cfg.Cache.Driver == config.CacheDriverRedis && rt.Redis != nil:
		opts.Cache = access.NewRedisCache(rt.Redis, cfg.Cache.TTL)
	default:
		opts.Cache = access.NewMemoryCache(cfg.Cache.TTL)
	}
	if rt.Redis != nil {
		opts.Redis = rt.Redis.Client()
		if cfg.Cache.Broadcast {
			opts.Broadcaster = access.NewBroadcaster(rt.Redis, logger)
		}
	}

	rt.Server = NewServer(rt.DB.Primary(), opts)
	return rt, nil
}

// Retention builds the activity retention job, archiving to S3 when enabled
func (rt *Runtime) Retention() *audit.Retention {
	var objects audit.ObjectPutter
	if rt.Objects != nil {
		objects = rt.Objects
	}
	return audit.NewRetention(rt.Server.Activity, objects, rt.Config.Activity.ArchivePrefix, rt.Metrics)
}

// Serve runs the API server, the health server and the background workers
// until ctx is cancelled or one of them fails, then shuts down gracefully
func (rt *Runtime) Serve(ctx context.Context) error {
	cfg := rt.Config.Server

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      rt.Server.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(rt.DB.Primary(), rt.redisClient(), rt.Config.Observability.OTelServiceVersion)
	if rt.Objects != nil {
		checker.AddCheck("s3", rt.Objects.HealthCheck)
	}
	observability.RegisterHealthRoutes(healthMux, checker)
	if rt.Gatherer != nil {
		observability.RegisterMetricsEndpoint(healthMux, rt.Gatherer)
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := observability.NewShutdownManager(rt.Logger, cfg.ShutdownTimeout, apiServer, healthServer)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rt.Logger.Infof("Admin API listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rt.Logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer observability.RecoverPanic(rt.Logger, "route access invalidation listener")
		return rt.Server.Access.Listen(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return shutdown.Shutdown()
	})

	if throttle, ok := rt.Server.Throttle.(*middleware.MemoryThrottle); ok {
		throttle.StartCleanup(ctx)
	}
	rt.DB.StartHealthCheckRoutine(ctx, 30*time.Second)
	if rt.Metrics != nil {
		go rt.recordDBStats(ctx)
	}

	return g.Wait()
}

func (rt *Runtime) redisClient() *redis.Client {
	if rt.Redis == nil {
		return nil
	}
	return rt.Redis.Client()
}

func (rt *Runtime) recordDBStats(ctx context.Context) {
	defer observability.RecoverPanic(rt.Logger, "database stats")
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rt.Metrics.RecordDBStats(rt.DB.Primary().Stats())
		case <-ctx.Done():
			return
		}
	}
}

// Close releases every connection opened by Open
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Redis != nil {
		errs = append(errs, rt.Redis.Close())
	}
	if rt.DB != nil {
		errs = append(errs, rt.DB.Close())
	}
	if rt.otel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		errs = append(errs, rt.otel.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
