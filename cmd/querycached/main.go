// Command querycached runs the query cache administration service.
//
// Configuration is read from the environment and an optional .env file;
// see package internal/config for the variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonwraymond/querycache/internal/config"
	"github.com/jonwraymond/querycache/internal/di"
)

func main() {
	envFile := flag.String("env-file", "", "path to a .env file (default: ./.env when present)")
	flag.Parse()

	if err := run(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "querycached: %v\n", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(ctx, files...)
	if err != nil {
		return err
	}

	app, cleanup, err := di.InitializeApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return app.Run(ctx)
}
