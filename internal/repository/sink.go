package repository

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// Handle is one tenant's storage pair: the CSV audit log and the invoices table.
type Handle struct {
	Tenant   string
	CSVPath  string
	Invoices InvoiceRepository
}

// SaveResult reports the best-effort half of a save.
type SaveResult struct {
	InsertErr error
}

// Sink persists records: CSV append first (must succeed), then the table insert
// (failure is reported, never rolled back or retried).
type Sink struct {
	logger *slog.Logger
}

func NewSink(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger}
}

// Save returns an error only when the CSV append fails; in that case nothing
// was inserted.
func (s *Sink) Save(ctx context.Context, h Handle, inv entity.Invoice) (SaveResult, error) {
	if err := AppendCSV(h.CSVPath, inv); err != nil {
		s.logger.Error("sink.append.failed", "tenant", h.Tenant, "file", inv.SourceFile, "error", err)
		return SaveResult{}, err
	}

	var res SaveResult
	if h.Invoices == nil {
		return res, nil
	}
	if err := h.Invoices.Insert(ctx, inv); err != nil {
		s.logger.Warn("sink.insert.failed", "tenant", h.Tenant, "file", inv.SourceFile, "error", err)
		res.InsertErr = err
	}
	return res, nil
}
