package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/joseph-ayodele/invoice-intake/internal/app"
	"github.com/joseph-ayodele/invoice-intake/internal/auth"
	"github.com/joseph-ayodele/invoice-intake/internal/export"
	"github.com/joseph-ayodele/invoice-intake/internal/generate"
	"github.com/joseph-ayodele/invoice-intake/internal/server"
)

func main() {
	logger := app.NewLogger()

	cfg, err := app.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p, err := app.NewPipeline(cfg, reg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	tenants := app.NewTenants(cfg.Storage, logger)
	defer tenants.Close()

	router := server.NewRouter(server.Deps{
		Auth:     auth.NewFileStore(cfg.Auth.UsersFile, logger),
		Tenants:  tenants,
		Batch:    p.Batch,
		Invoices: generate.NewService(p.Sink, cfg.Invoice.OutputDir, logger),
		Export:   export.NewService(logger),
		Gatherer: reg,
		Logger:   logger,
	})

	srv := server.New(router, logger)
	if err := srv.ListenAndServe(ctx, cfg.Server.HTTPAddr, cfg.Server.GRPCAddr); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
