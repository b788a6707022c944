package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/invoice-intake/internal/app"
	"github.com/joseph-ayodele/invoice-intake/internal/generate"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

func main() {
	var (
		tenantName = flag.String("tenant", "local", "tenant whose storage receives the record")
		input      = flag.String("f", "-", "JSON invoice form; - reads stdin")
	)
	flag.Parse()

	logger := app.NewLogger()
	cfg, err := app.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var payload []byte
	if *input == "-" {
		payload, err = io.ReadAll(os.Stdin)
	} else {
		payload, err = os.ReadFile(*input)
	}
	if err != nil {
		logger.Error("failed to read invoice form", "input", *input, "error", err)
		os.Exit(1)
	}
	in, err := generate.DecodeInput(payload)
	if err != nil {
		logger.Error("invalid invoice form", "error", err)
		os.Exit(2)
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

	svc := generate.NewService(repository.NewSink(logger), cfg.Invoice.OutputDir, logger)
	created, err := svc.Create(ctx, h, in)
	if err != nil {
		logger.Error("failed to create invoice", "error", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Invoice %s saved: %s\n", created.Invoice.InvoiceNo, created.PDFPath)
	if created.InsertErr != nil {
		fmt.Printf("⚠️ DB insert warning for %s: %v\n", created.Invoice.SourceFile, created.InsertErr)
	}
}
