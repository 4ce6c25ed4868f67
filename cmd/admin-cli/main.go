package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/api"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/cli"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/config"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	// commands print their results on stdout; the service logger goes to stderr
	logger := observability.NewLogger(cfg.Observability.Level(), os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := api.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	env := cli.NewEnv(rt)
	return cli.NewRootCommand(env).Execute(ctx, os.Stderr, args)
}
