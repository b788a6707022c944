package generate

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

// Saver persists one record to a tenant's storage.
type Saver interface {
	Save(ctx context.Context, h repository.Handle, inv entity.Invoice) (repository.SaveResult, error)
}

// Created describes a manual invoice that reached the CSV log.
type Created struct {
	Invoice   entity.Invoice
	PDFPath   string
	InsertErr error
}

// Service creates manual invoices: compute, render, persist.
type Service struct {
	sink   Saver
	outDir string
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(sink Saver, outDir string, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{sink: sink, outDir: outDir, now: time.Now, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create builds the record for in, writes its PDF under outDir/<tenant>/ and
// persists it through the same sink uploads use.
func (s *Service) Create(ctx context.Context, h repository.Handle, in Input) (Created, error) {
	now := s.now()
	inv, err := Build(in, now)
	if err != nil {
		return Created{}, err
	}

	var buf bytes.Buffer
	if err := RenderPDF(&buf, inv, now); err != nil {
		return Created{}, err
	}
	dir := filepath.Join(s.outDir, h.Tenant)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Created{}, fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, fileStem(inv.InvoiceNo)+".pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return Created{}, fmt.Errorf("write invoice pdf: %w", err)
	}

	res, err := s.sink.Save(ctx, h, inv)
	if err != nil {
		return Created{}, fmt.Errorf("save invoice: %w", err)
	}
	s.logger.Info("generate.invoice.created",
		"tenant", h.Tenant,
		"invoice_no", inv.InvoiceNo,
		"pdf", path,
		"db_warning", res.InsertErr != nil,
	)
	return Created{Invoice: inv, PDFPath: path, InsertErr: res.InsertErr}, nil
}
