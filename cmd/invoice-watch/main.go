package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/invoice-intake/internal/app"
	"github.com/joseph-ayodele/invoice-intake/internal/async"
	"github.com/joseph-ayodele/invoice-intake/internal/ingest"
)

func main() {
	var (
		tenantName  = flag.String("tenant", "local", "tenant whose storage receives the records")
		initialScan = flag.Bool("initial-scan", true, "ingest files already present in the inbox")
		debounce    = flag.Duration("debounce", 500*time.Millisecond, "quiet period before a changed file is ingested")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: invoice-watch [flags] <inbox-dir>...")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := app.NewLogger()
	cfg, err := app.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tenants := app.NewTenants(cfg.Storage, logger)
	defer tenants.Close()
	h, err := tenants.Resolve(ctx, *tenantName)
	if err != nil {
		logger.Error("failed to open tenant storage", "tenant", *tenantName, "error", err)
		os.Exit(1)
	}

	p, err := app.NewPipeline(cfg, nil, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	queue := async.NewWorkerQueue(async.HandlerFunc(func(ctx context.Context, job async.Job) error {
		res, err := p.Ingestor.IngestPath(ctx, h, job.Path)
		if err != nil {
			return err
		}
		if res.Deduplicated {
			return nil
		}
		for _, line := range res.Outcome.Lines() {
			fmt.Println(line)
		}
		return nil
	}), logger, async.WithProcessTimeout(cfg.Pipeline.DocumentTimeout+time.Minute))

	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       flag.Args(),
		InitialScan: *initialScan,
		SkipHidden:  true,
		Debounce:    *debounce,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	logger.Info("watching inbox", "roots", flag.Args(), "tenant", h.Tenant)

loop:
	for {
		select {
		case path, ok := <-paths:
			if !ok {
				break loop
			}
			if err := queue.Enqueue(ctx, async.Job{Tenant: h.Tenant, Path: path}); err != nil {
				logger.Warn("failed to queue file", "file", path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Error("watcher error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.DocumentTimeout+time.Minute)
	defer cancel()
	queue.Shutdown(shutdownCtx)
}
