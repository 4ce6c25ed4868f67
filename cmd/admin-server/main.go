package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/api"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/config"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage"
)

var (
	migrate = flag.Bool("migrate", false, "Apply pending migrations before serving")
	scan    = flag.Bool("scan", false, "Synchronize the route access table before serving")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := api.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if *migrate {
		n, err := storage.Migrate(ctx, rt.DB.Primary(), logger)
		if err != nil {
			return err
		}
		logger.Infof("Applied %d migration(s)", n)
	}
	if *scan {
		result, err := rt.Server.Access.Scan(ctx, nil)
		if err != nil {
			return err
		}
		logger.Infof("Route scan: %d created, %d updated, %d removed", result.Created, result.Updated, result.Removed)
	}

	logger.Info("Starting admin server")
	if err := rt.Serve(ctx); err != nil {
		return err
	}
	logger.Info("Admin server stopped")
	return nil
}
