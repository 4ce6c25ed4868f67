package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/api"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/cli"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/config"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
)

var runOnce = flag.String("run-once", "", "Run one job (prune, relink, session-cleanup) and exit")

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := cli.NewLogrus(os.Stdout, cfg.Observability.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := api.Open(ctx, cfg, observability.NewLogger(cfg.Observability.Level(), os.Stdout))
	if err != nil {
		log.Fatalf("Failed to open runtime: %v", err)
	}
	defer rt.Close()

	j := &jobs{
		retention:     rt.Retention(),
		retentionDays: cfg.Activity.RetentionDays,
		relinker:      rt.Server.Access,
		sessions:      rt.Server.Auth,
		log:           log,
	}

	// Run once mode (for testing or manual maintenance)
	if *runOnce != "" {
		run, ok := j.byName(*runOnce)
		if !ok {
			log.Fatalf("Unknown job: %s", *runOnce)
		}
		if err := run(ctx); err != nil {
			log.WithError(err).Fatal("Job failed")
		}
		return
	}

	c := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(log)),
		cron.SkipIfStillRunning(cron.PrintfLogger(log)),
	))
	if err := j.register(ctx, c, cfg.Scheduler); err != nil {
		log.Fatalf("Failed to schedule jobs: %v", err)
	}

	c.Start()
	log.Info("Admin scheduler started")

	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	<-c.Stop().Done()
	log.Info("Scheduler stopped")
}
