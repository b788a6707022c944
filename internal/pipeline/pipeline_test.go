package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/ocr"
	"github.com/joseph-ayodele/invoice-intake/internal/parse"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const invoiceText = `TAX INVOICE
Invoice No: INV/2025/0099
Date: 12/05/2024
Buyer Name: Asha Traders
Item: Power Bank Qty: 2 Rate: 500
Total Amount: ₹1,180.00`

// stubAcquirer returns canned text per document name.
type stubAcquirer struct {
	texts map[string]string
	block bool
}

func (s stubAcquirer) Acquire(ctx context.Context, data []byte, kind constants.Kind) ocr.Result {
	if s.block {
		<-ctx.Done()
		return ocr.Result{Err: ctx.Err()}
	}
	return ocr.Result{Text: s.texts[string(data)], Method: "stub"}
}

type stubInvoices struct {
	rows []entity.Invoice
	err  error
}

func (s *stubInvoices) EnsureSchema(context.Context) error { return nil }
func (s *stubInvoices) Insert(_ context.Context, inv entity.Invoice) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, inv)
	return nil
}
func (s *stubInvoices) List(context.Context) ([]entity.Invoice, error) { return s.rows, nil }

func fixedClock() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }

func newHandle(t *testing.T, repo repository.InvoiceRepository) repository.Handle {
	t.Helper()
	return repository.Handle{
		Tenant:   "alice",
		CSVPath:  filepath.Join(t.TempDir(), "users", "alice", "invoices.csv"),
		Invoices: repo,
	}
}

func newProcessor(acq Acquirer, opts ...Option) *Processor {
	return NewProcessor(acq, parse.New(nil, parse.WithClock(fixedClock)), repository.NewSink(quietLogger), quietLogger, opts...)
}

// doc uses the name as payload so stubAcquirer can look the text up.
func doc(name string) Document { return Document{Name: name, Data: []byte(name)} }

func TestProcessPDFSaved(t *testing.T) {
	repo := &stubInvoices{}
	h := newHandle(t, repo)
	p := newProcessor(stubAcquirer{texts: map[string]string{"inv.pdf": invoiceText}})

	inv, out := p.Process(context.Background(), h, doc("inv.pdf"))

	assert.Equal(t, constants.OutcomeSaved, out.Code)
	assert.Equal(t, "✅ Parsed and saved: inv.pdf", out.Message)
	assert.Equal(t, []string{out.Message}, out.Lines())
	assert.Equal(t, "INV/2025/0099", inv.InvoiceNo)
	assert.Equal(t, "inv.pdf", inv.SourceFile)
	assert.Equal(t, "1180", inv.Total.String())

	rows, err := repository.ReadCSV(h.CSVPath)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, inv.Strings(), rows[0].Strings())
	require.Len(t, repo.rows, 1)
}

func TestProcessImageSaved(t *testing.T) {
	h := newHandle(t, &stubInvoices{})
	p := newProcessor(stubAcquirer{texts: map[string]string{"photo.JPEG": invoiceText}})

	_, out := p.Process(context.Background(), h, doc("photo.JPEG"))

	assert.Equal(t, "✅ OCR’d and saved: photo.JPEG", out.Message)
}

func TestProcessScannedPDFWithoutText(t *testing.T) {
	repo := &stubInvoices{}
	h := newHandle(t, repo)
	p := newProcessor(stubAcquirer{texts: map[string]string{"scan.pdf": "  \n\t "}})

	inv, out := p.Process(context.Background(), h, doc("scan.pdf"))

	assert.Equal(t, constants.OutcomeNoText, out.Code)
	assert.Equal(t, "⚠️ Could not read text from scan.pdf (likely a scanned PDF). Convert to image and re-upload.", out.Message)
	assert.True(t, inv.IsZero())
	rows, err := repository.ReadCSV(h.CSVPath)
	require.NoError(t, err)
	assert.Empty(t, rows, "no row is appended")
	assert.Empty(t, repo.rows)
}

func TestProcessImageWithoutText(t *testing.T) {
	p := newProcessor(stubAcquirer{})
	_, out := p.Process(context.Background(), newHandle(t, nil), doc("blank.png"))
	assert.Equal(t, "⚠️ OCR returned empty text for blank.png", out.Message)
}

func TestProcessUnsupported(t *testing.T) {
	p := newProcessor(stubAcquirer{texts: map[string]string{"notes.docx": invoiceText}})
	inv, out := p.Process(context.Background(), newHandle(t, nil), doc("notes.docx"))
	assert.Equal(t, constants.OutcomeUnsupported, out.Code)
	assert.Equal(t, "❌ Unsupported file type: notes.docx", out.Message)
	assert.True(t, inv.IsZero())
}

func TestProcessInsertFailureIsAWarning(t *testing.T) {
	repo := &stubInvoices{err: errors.New("database is locked")}
	h := newHandle(t, repo)
	p := newProcessor(stubAcquirer{texts: map[string]string{"inv.pdf": invoiceText}})

	inv, out := p.Process(context.Background(), h, doc("inv.pdf"))

	assert.True(t, out.OK())
	assert.Equal(t, []string{
		"✅ Parsed and saved: inv.pdf",
		"⚠️ DB insert warning for inv.pdf: database is locked",
	}, out.Lines())
	assert.False(t, inv.IsZero())
	rows, err := repository.ReadCSV(h.CSVPath)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "csv append is not rolled back")
}

func TestProcessCSVFailure(t *testing.T) {
	repo := &stubInvoices{}
	h := repository.Handle{Tenant: "alice", CSVPath: t.TempDir(), Invoices: repo}
	p := newProcessor(stubAcquirer{texts: map[string]string{"inv.pdf": invoiceText}})

	inv, out := p.Process(context.Background(), h, doc("inv.pdf"))

	assert.Equal(t, constants.OutcomeFailed, out.Code)
	assert.Contains(t, out.Message, "❌ inv.pdf: ")
	assert.True(t, inv.IsZero())
	assert.Empty(t, repo.rows)
}

func TestProcessTimeoutIsEmptyText(t *testing.T) {
	p := newProcessor(stubAcquirer{block: true}, WithDocumentTimeout(10*time.Millisecond))

	_, out := p.Process(context.Background(), newHandle(t, nil), doc("slow.pdf"))

	assert.Equal(t, constants.OutcomeNoText, out.Code)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
}

func TestBatchKeepsOrderAndSkipsUnsupported(t *testing.T) {
	repo := &stubInvoices{}
	h := newHandle(t, repo)
	p := newProcessor(stubAcquirer{texts: map[string]string{"a.pdf": invoiceText, "c.png": invoiceText}})

	rep := NewBatch(p, quietLogger).Run(context.Background(), h, []Document{doc("a.pdf"), doc("b.docx"), doc("c.png")})

	require.Len(t, rep.Results, 3)
	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, "✅ Parsed and saved: a.pdf\n\n❌ Unsupported file type: b.docx\n\n✅ OCR’d and saved: c.png", rep.Status())
	assert.Equal(t, 2, rep.Counts()[constants.OutcomeSaved])

	rows, err := repository.ReadCSV(h.CSVPath)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a.pdf", rows[0].SourceFile)
	assert.Equal(t, "c.png", rows[1].SourceFile)
}

type panicky struct{ DocumentProcessor }

func (p panicky) Process(ctx context.Context, h repository.Handle, d Document) (entity.Invoice, Outcome) {
	if d.Name == "bad.pdf" {
		panic("renderer exploded")
	}
	return p.DocumentProcessor.Process(ctx, h, d)
}

func TestBatchRecoversPanics(t *testing.T) {
	h := newHandle(t, &stubInvoices{})
	inner := newProcessor(stubAcquirer{texts: map[string]string{"ok.pdf": invoiceText}})

	rep := NewBatch(panicky{inner}, quietLogger).Run(context.Background(), h, []Document{doc("bad.pdf"), doc("ok.pdf")})

	require.Len(t, rep.Results, 2)
	assert.Equal(t, "❌ bad.pdf: panic: renderer exploded", rep.Results[0].Outcome.Message)
	assert.Equal(t, constants.OutcomeSaved, rep.Results[1].Outcome.Code)
}

func TestBatchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newProcessor(stubAcquirer{texts: map[string]string{"a.pdf": invoiceText}})

	rep := NewBatch(p, quietLogger).Run(ctx, newHandle(t, nil), []Document{doc("a.pdf"), doc("b.png")})

	require.Len(t, rep.Results, 2)
	for _, r := range rep.Results {
		assert.Equal(t, constants.OutcomeFailed, r.Outcome.Code)
	}
}

func TestJoinStatusesIncludesWarnings(t *testing.T) {
	outs := []Outcome{
		{Message: "✅ Parsed and saved: a.pdf", Warning: "⚠️ DB insert warning for a.pdf: boom"},
		{Message: "❌ Unsupported file type: b.txt"},
	}
	assert.Equal(t, "✅ Parsed and saved: a.pdf\n\n⚠️ DB insert warning for a.pdf: boom\n\n❌ Unsupported file type: b.txt", JoinStatuses(outs))
	assert.Empty(t, JoinStatuses(nil))
}
