package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/metrics"
	"github.com/joseph-ayodele/invoice-intake/internal/ocr"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

// Acquirer turns document bytes into text without failing.
type Acquirer interface {
	Acquire(ctx context.Context, data []byte, kind constants.Kind) ocr.Result
}

// Parser maps acquired text to a record.
type Parser interface {
	ParseInvoice(text string) entity.Invoice
}

// Saver persists one record to a tenant's storage.
type Saver interface {
	Save(ctx context.Context, h repository.Handle, inv entity.Invoice) (repository.SaveResult, error)
}

// Document is one upload: its original file name and bytes.
type Document struct {
	Name string
	Data []byte
}

// Processor runs one document through acquire -> parse -> persist.
type Processor struct {
	acquirer Acquirer
	parser   Parser
	sink     Saver
	logger   *slog.Logger
	timeout  time.Duration
	metrics  *metrics.Pipeline
	now      func() time.Time
}

type Option func(*Processor)

// WithDocumentTimeout bounds text acquisition for one document. A timed-out
// acquisition is reported as empty text.
func WithDocumentTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Pipeline) Option {
	return func(p *Processor) { p.metrics = m }
}

func NewProcessor(acq Acquirer, parser Parser, sink Saver, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		acquirer: acq,
		parser:   parser,
		sink:     sink,
		logger:   logger,
		timeout:  2 * time.Minute,
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process ingests doc into h. It never returns an error: every failure is an
// Outcome, and the record is empty unless it reached the CSV log.
func (p *Processor) Process(ctx context.Context, h repository.Handle, doc Document) (entity.Invoice, Outcome) {
	start := p.now()
	kind := constants.KindFromName(doc.Name)
	log := p.logger.With("file", doc.Name, "kind", kind, "tenant", h.Tenant)

	inv, out := p.process(ctx, h, doc, kind, log)

	label := string(kind)
	if out.Code == constants.OutcomeUnsupported {
		label = ""
	}
	p.metrics.ObserveDocument(string(out.Code), label, p.now().Sub(start))
	return inv, out
}

func (p *Processor) process(ctx context.Context, h repository.Handle, doc Document, kind constants.Kind, log *slog.Logger) (entity.Invoice, Outcome) {
	if !constants.IsSupportedKind(kind) {
		log.Info("processor.unsupported")
		return entity.Invoice{}, unsupportedOutcome(doc.Name, kind)
	}

	actx, cancel := context.WithTimeout(ctx, p.timeout)
	res := p.acquirer.Acquire(actx, doc.Data, kind)
	cancel()

	if strings.TrimSpace(res.Text) == "" {
		log.Warn("processor.acquire.empty", "method", res.Method, "status", res.Status().String(), "error", res.Err)
		return entity.Invoice{}, noTextOutcome(doc.Name, kind, res.Err)
	}
	p.metrics.ObserveConfidence(res.Confidence)
	log.Debug("processor.acquire.ok", "method", res.Method, "pages", res.Pages, "confidence", res.Confidence)

	inv := p.parser.ParseInvoice(res.Text)
	inv.SourceFile = doc.Name

	saved, err := p.sink.Save(ctx, h, inv)
	if err != nil {
		log.Error("processor.persist.failed", "error", err)
		return entity.Invoice{}, failedOutcome(doc.Name, kind, err)
	}

	out := savedOutcome(doc.Name, kind)
	if saved.InsertErr != nil {
		p.metrics.InsertFailed()
		out.Warning = insertWarning(doc.Name, saved.InsertErr)
		out.Err = saved.InsertErr
	}
	log.Info("processor.saved", "invoice_no", inv.InvoiceNo, "method", res.Method, "db_warning", saved.InsertErr != nil)
	return inv, out
}
