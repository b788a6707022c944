package generate

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/ocr"
	"github.com/joseph-ayodele/invoice-intake/internal/parse"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

var (
	quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	fixedNow    = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func TestBuildDefaults(t *testing.T) {
	inv, err := Build(Input{BuyerName: "Asha Traders"}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		constants.FieldInvoiceNo:    "INV/2025/089019",
		constants.FieldDate:         "2025-03-14",
		constants.FieldTime:         "09:26:53",
		constants.FieldBuyerName:    "Asha Traders",
		constants.FieldBuyerAddress: "",
		constants.FieldPAN:          "ABCDE1234F",
		constants.FieldGSTIN:        "16ABCDE8273Z01",
		constants.FieldItem:         "Power Bank",
		constants.FieldQty:          "1",
		constants.FieldRate:         "500",
		constants.FieldAmount:       "500",
		constants.FieldCGST:         "45",
		constants.FieldSGST:         "45",
		constants.FieldTotal:        "590",
		constants.FieldTerms:        "Goods once sold will not be taken back.",
		constants.FieldSourceFile:   "INV/2025/089019.pdf",
	}, inv.Fields())
}

func TestBuildRoundsTaxToTwoPlaces(t *testing.T) {
	inv, err := Build(Input{InvoiceNo: "A-7", Qty: intp(3), Rate: floatp(333.33)}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "999.99", inv.Amount.String())
	assert.Equal(t, "90", inv.CGST.String())
	assert.Equal(t, "90", inv.SGST.String())
	assert.Equal(t, "1179.99", inv.Total.String())
	assert.Equal(t, "A-7.pdf", inv.SourceFile)
}

func TestBuildRejectsBadInput(t *testing.T) {
	for name, in := range map[string]Input{
		"zero qty":      {Qty: intp(0)},
		"negative rate": {Rate: floatp(-1)},
		"path chars":    {InvoiceNo: `..\evil`},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Build(in, fixedNow)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestBuildFlattensAddress(t *testing.T) {
	inv, err := Build(Input{BuyerAddress: "12, MG Road\r\n  Agartala \n"}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "12, MG Road, Agartala", inv.BuyerAddress)
}

func TestDecodeInput(t *testing.T) {
	in, err := DecodeInput([]byte(`{"buyer_name":"Asha","qty":2,"rate":250.5}`))
	require.NoError(t, err)
	assert.Equal(t, "Asha", in.BuyerName)
	assert.Equal(t, 2, *in.Qty)
	assert.Equal(t, 250.5, *in.Rate)

	in, err = DecodeInput([]byte(`{}`))
	require.NoError(t, err)
	assert.Nil(t, in.Qty)

	for name, payload := range map[string]string{
		"unknown field":  `{"discount": 5}`,
		"qty as string":  `{"qty": "2"}`,
		"qty below one":  `{"qty": 0}`,
		"fractional qty": `{"qty": 1.5}`,
		"negative rate":  `{"rate": -3}`,
		"not an object":  `[1,2]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeInput([]byte(payload))
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}

	_, err = DecodeInput([]byte(`{"qty":`))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestGeneratedLayoutParsesBack(t *testing.T) {
	inv, err := Build(Input{
		BuyerName:    "Asha Traders",
		BuyerAddress: "12, MG Road, Agartala",
		Qty:          intp(3),
		Rate:         floatp(333.33),
	}, fixedNow)
	require.NoError(t, err)

	parsed := parse.New(nil, parse.WithClock(func() time.Time { return fixedNow })).ParseInvoice(Text(inv))
	parsed.SourceFile = inv.SourceFile

	assert.Equal(t, inv.Fields(), parsed.Fields())
}

func TestRenderedPDFParsesBack(t *testing.T) {
	inv, err := Build(Input{
		BuyerName:    "Asha Traders",
		BuyerAddress: "12, MG Road, Agartala",
		Qty:          intp(3),
		Rate:         floatp(333.33),
	}, fixedNow)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderPDF(&buf, inv, fixedNow))

	res := ocr.NewExtractor(ocr.Config{}, quietLogger).Acquire(context.Background(), buf.Bytes(), constants.KindPDF)
	require.NoError(t, res.Err)
	require.Equal(t, ocr.MethodPDFText, res.Method)
	assert.True(t, strings.HasPrefix(res.Text, "INVOICE\nInvoice No: INV/2025/089019\nDate: 2025-03-14\n"), res.Text)

	parsed := parse.New(nil, parse.WithClock(func() time.Time { return fixedNow })).ParseInvoice(res.Text)
	parsed.SourceFile = inv.SourceFile
	assert.Equal(t, inv.Fields(), parsed.Fields())
}

// Records from both production paths land in schema-identical rows.
func TestGeneratedAndParsedRowsShareSchema(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := repository.Open(ctx, repository.Config{Driver: "sqlite", DSN: filepath.Join(dir, "invoices.db")}, quietLogger)
	require.NoError(t, err)
	defer db.Close(quietLogger)
	h := repository.Handle{Tenant: "alice", CSVPath: filepath.Join(dir, "invoices.csv"), Invoices: db.Invoices(quietLogger)}

	svc := NewService(repository.NewSink(quietLogger), filepath.Join(dir, "generated"), quietLogger,
		WithClock(func() time.Time { return fixedNow }))
	created, err := svc.Create(ctx, h, Input{BuyerName: "Asha Traders"})
	require.NoError(t, err)
	require.NoError(t, created.InsertErr)

	parsed := parse.New(nil).ParseInvoice("Invoice No: X-1\nTotal: 10")
	parsed.SourceFile = "x-1.png"
	_, err = repository.NewSink(quietLogger).Save(ctx, h, parsed)
	require.NoError(t, err)

	raw, err := os.ReadFile(h.CSVPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(constants.InvoiceColumns, ","), lines[0])

	csvRows, err := repository.ReadCSV(h.CSVPath)
	require.NoError(t, err)
	dbRows, err := h.Invoices.List(ctx)
	require.NoError(t, err)
	require.Len(t, csvRows, 2)
	require.Len(t, dbRows, 2)
	for i := range csvRows {
		assert.Len(t, csvRows[i].Fields(), len(constants.InvoiceColumns))
		assert.Equal(t, csvRows[i].Strings(), dbRows[i].Strings())
	}
	assert.Equal(t, created.Invoice.Strings(), csvRows[0].Strings())
	assert.Equal(t, "x-1.png", dbRows[1].SourceFile)
}

func TestServiceCreateWritesPDF(t *testing.T) {
	dir := t.TempDir()
	h := repository.Handle{Tenant: "bob", CSVPath: filepath.Join(dir, "invoices.csv")}
	svc := NewService(repository.NewSink(quietLogger), filepath.Join(dir, "out"), quietLogger,
		WithClock(func() time.Time { return fixedNow }))

	created, err := svc.Create(context.Background(), h, Input{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "out", "bob", "INV_2025_089019.pdf"), created.PDFPath)
	data, err := os.ReadFile(created.PDFPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRenderPDF(t *testing.T) {
	inv, err := Build(Input{BuyerName: "Zoë Café"}, fixedNow)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, RenderPDF(&buf, inv, fixedNow))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)
}
