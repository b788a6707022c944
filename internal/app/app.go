// Package app wires configuration into the pipeline components shared by the binaries.
package app

import (
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/ingest"
	"github.com/joseph-ayodele/invoice-intake/internal/metrics"
	"github.com/joseph-ayodele/invoice-intake/internal/ocr"
	"github.com/joseph-ayodele/invoice-intake/internal/parse"
	"github.com/joseph-ayodele/invoice-intake/internal/pipeline"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
	"github.com/joseph-ayodele/invoice-intake/internal/tenant"
)

// NewLogger returns a JSON logger on stdout and makes it the default.
func NewLogger() *slog.Logger {
	level := slog.LevelInfo
	if common.DebugEnabled() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads and validates the environment configuration.
func LoadConfig() (*common.Config, error) {
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OCRConfig maps the OCR section onto the extractor settings.
func OCRConfig(c common.OCRConfig) ocr.Config {
	return ocr.Config{
		Pdftotext:     c.Pdftotext,
		Pdftoppm:      c.Pdftoppm,
		Tesseract:     c.Tesseract,
		TesseractLang: c.Language,
		TessdataDir:   c.TessdataDir,
		DPI:           c.DPI,
		Threshold:     uint8(min(max(c.Threshold, 0), 255)),
		MaxPages:      c.MaxPages,
		NativeBackend: c.NativeBackend,
	}
}

// NewExtractor builds the text acquirer with the configured OCR engine.
func NewExtractor(c common.OCRConfig, logger *slog.Logger) (*ocr.Extractor, error) {
	cfg := OCRConfig(c)
	runner := ocr.NewExecRunner(logger)
	engine, err := ocr.NewEngine(runner, cfg, ocr.EngineConfig{
		Name:          c.Engine,
		AzureEndpoint: c.AzureEndpoint,
		AzureKey:      c.AzureKey,
	})
	if err != nil {
		return nil, err
	}
	return ocr.NewExtractor(cfg, logger, ocr.WithRunner(runner), ocr.WithEngine(engine)), nil
}

// NewTenants returns a registry over the storage templates.
func NewTenants(c common.StorageConfig, logger *slog.Logger) *tenant.Registry {
	return tenant.NewRegistry(tenant.Config{
		CSVPath: c.CSVPath,
		DB: repository.Config{
			Driver:           c.Driver,
			DSN:              c.DSN,
			MaxConns:         c.MaxConns,
			MinConns:         c.MinConns,
			MaxConnLifetime:  c.MaxConnLifetime,
			MaxConnIdleTime:  c.MaxConnIdleTime,
			DialTimeout:      c.DialTimeout,
			StatementTimeout: c.StatementTimeout,
		},
	}, logger)
}

// Pipeline bundles the ingestion components every binary shares.
type Pipeline struct {
	Extractor *ocr.Extractor
	Parser    *parse.Parser
	Sink      *repository.Sink
	Processor *pipeline.Processor
	Batch     *pipeline.Batch
	Ingestor  *ingest.FSIngestor
	Metrics   *metrics.Pipeline
}

// NewPipeline wires acquisition, parsing and persistence. reg may be nil.
func NewPipeline(cfg *common.Config, reg prometheus.Registerer, logger *slog.Logger) (*Pipeline, error) {
	ext, err := NewExtractor(cfg.OCR, logger)
	if err != nil {
		return nil, err
	}
	var m *metrics.Pipeline
	if reg != nil {
		m = metrics.NewPipeline(reg)
	}
	parser := parse.New(nil)
	sink := repository.NewSink(logger)
	proc := pipeline.NewProcessor(ext, parser, sink, logger,
		pipeline.WithDocumentTimeout(cfg.Pipeline.DocumentTimeout),
		pipeline.WithMetrics(m),
	)
	batch := pipeline.NewBatch(proc, logger)
	return &Pipeline{
		Extractor: ext,
		Parser:    parser,
		Sink:      sink,
		Processor: proc,
		Batch:     batch,
		Ingestor:  ingest.NewFSIngestor(batch, logger),
		Metrics:   m,
	}, nil
}
