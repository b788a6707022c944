package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joseph-ayodele/invoice-intake/internal/app"
	"github.com/joseph-ayodele/invoice-intake/internal/export"
	"github.com/joseph-ayodele/invoice-intake/internal/ingest"
	"github.com/joseph-ayodele/invoice-intake/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		tenantName = flag.String("tenant", "local", "tenant whose storage receives the records")
		dir        = flag.String("dir", "", "directory to ingest (instead of file arguments)")
		skipHidden = flag.Bool("skip-hidden", true, "skip hidden files and directories under -dir")
		xlsx       = flag.String("xlsx", "", "write an XLSX export of the tenant's invoices to this path")
		source     = flag.String("source", "csv", "export source: csv or db")
	)
	flag.Usage = func() {
		printError("usage: invoice-batch [flags] file...\n       invoice-batch [flags] -dir <folder>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *dir == "" && flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *source != "csv" && *source != "db" {
		printError("Error: --source must be csv or db\n")
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

	var outcomes []pipeline.Outcome
	if *dir != "" {
		results, stats, err := p.Ingestor.IngestDirectory(ctx, h, *dir, *skipHidden)
		if err != nil {
			logger.Error("failed to ingest directory", "dir", *dir, "error", err)
			os.Exit(1)
		}
		outcomes = ingest.Outcomes(results)
		logger.Info("directory ingest complete",
			"scanned", stats.Scanned,
			"matched", stats.Matched,
			"succeeded", stats.Succeeded,
			"deduplicated", stats.Deduplicated,
			"failed", stats.Failed,
		)
	} else {
		docs := make([]pipeline.Document, 0, flag.NArg())
		for _, path := range flag.Args() {
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Error("failed to read file", "file", path, "error", err)
				os.Exit(1)
			}
			docs = append(docs, pipeline.Document{Name: filepath.Base(path), Data: data})
		}
		outcomes = p.Batch.Run(ctx, h, docs).Outcomes()
	}

	fmt.Println(pipeline.JoinStatuses(outcomes))

	if *xlsx != "" {
		var src export.Source = export.CSVSource(h.CSVPath)
		if *source == "db" {
			src = h.Invoices
		}
		data, err := export.NewService(logger).InvoicesXLSX(ctx, h.Tenant, src)
		if err != nil {
			logger.Error("failed to export invoices", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsx, data, 0o644); err != nil {
			logger.Error("failed to write output file", "path", *xlsx, "error", err)
			os.Exit(1)
		}
		logger.Info("export written", "path", *xlsx)
	}

	for _, o := range outcomes {
		if !o.OK() {
			os.Exit(3)
		}
	}
}
