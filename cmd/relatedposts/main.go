package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"RelatedPosts/internal/app"
	"RelatedPosts/internal/config"
	"RelatedPosts/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	command := os.Args[1]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		os.Exit(1)
	}

	err = run(ctx, application, command, os.Args[2:])
	if closeErr := application.Close(); closeErr != nil {
		logger.Warn("close application", "error", closeErr)
	}
	if err != nil {
		logger.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, application *app.Application, command string, args []string) error {
	switch command {
	case "migrate":
		return application.Migrate(ctx)
	case "seed":
		fs := flag.NewFlagSet("seed", flag.ExitOnError)
		_ = fs.Parse(args)
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: relatedposts seed <file.yaml>")
		}
		_, err := application.Seed(ctx, fs.Arg(0))
		return err
	case "related":
		fs := flag.NewFlagSet("related", flag.ExitOnError)
		limit := fs.Int("limit", 0, "number of related posts (default from config)")
		_ = fs.Parse(args)
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: relatedposts related [-limit N] <slug>")
		}
		return application.Related(ctx, fs.Arg(0), *limit, os.Stdout)
	case "warm":
		fs := flag.NewFlagSet("warm", flag.ExitOnError)
		once := fs.Bool("once", false, "warm the cache once and exit")
		_ = fs.Parse(args)
		if *once {
			_, err := application.Warm(ctx)
			return err
		}
		return application.Schedule(ctx)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage() {
	fmt.Print(`relatedposts - related-content ranker

Usage:
  relatedposts migrate                    create the catalog schema
  relatedposts seed <file.yaml>           load categories and posts from a fixture file
  relatedposts related [-limit N] <slug>  print the posts related to slug
  relatedposts warm [-once]               precompute cached lists (on cron unless -once)

Configuration is read from $RELATED_POSTS_CONFIG with environment overrides.
`)
}
