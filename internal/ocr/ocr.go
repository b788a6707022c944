package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
)

// Acquisition methods reported in Result.Method.
const (
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
	MethodImageOCR = "image-ocr"
)

// Native PDF text backends.
const (
	BackendReader    = "reader"
	BackendPdftotext = "pdftotext"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string

	DPI       int   // rasterization DPI for scanned PDFs, default 200
	Threshold uint8 // binarization cutoff for scanned pages; 0 selects the default 200
	MaxPages  int   // 0 = no limit

	PSM int // layout hint for scanned pages, default 6 (single uniform block)
	OEM int // 1 = LSTM; leave 0 to use default

	NativeBackend string // BackendReader (default) | BackendPdftotext
}

// Status classifies a Result.
type Status int

const (
	StatusText   Status = iota // non-blank text acquired
	StatusEmpty                // both paths ran cleanly but produced no text
	StatusFailed               // no text, and the last attempt returned an error
)

func (s Status) String() string {
	switch s {
	case StatusText:
		return "text"
	case StatusEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// Result is the outcome of one acquisition. Err carries a swallowed failure;
// callers that only need text can ignore it.
type Result struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
	Err        error
}

func (r Result) Status() Status {
	switch {
	case strings.TrimSpace(r.Text) != "":
		return StatusText
	case r.Err != nil:
		return StatusFailed
	default:
		return StatusEmpty
	}
}

// Extractor turns document bytes into text: native PDF text first, page OCR as the fallback.
type Extractor struct {
	cfg    Config
	runner Runner
	native PDFTextReader
	raster Rasterizer
	engine Engine
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the external command runner.
func WithRunner(r Runner) Option { return func(e *Extractor) { e.runner = r } }

// WithEngine replaces the OCR engine (default: tesseract CLI).
func WithEngine(en Engine) Option { return func(e *Extractor) { e.engine = en } }

// WithPDFTextReader replaces the native PDF text reader.
func WithPDFTextReader(r PDFTextReader) Option { return func(e *Extractor) { e.native = r } }

// WithRasterizer replaces the PDF page renderer (default: pdftoppm).
func WithRasterizer(r Rasterizer) Option { return func(e *Extractor) { e.raster = r } }

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = 200
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	e := &Extractor{cfg: cfg, logger: logger}
	for _, o := range opts {
		o(e)
	}
	if e.runner == nil {
		e.runner = NewExecRunner(logger)
	}
	if e.native == nil {
		if cfg.NativeBackend == BackendPdftotext {
			e.native = NewPdftotextReader(e.runner, cfg.Pdftotext)
		} else {
			e.native = NewPDFReader()
		}
	}
	if e.raster == nil {
		e.raster = NewPdftoppmRasterizer(e.runner, cfg.Pdftoppm)
	}
	if e.engine == nil {
		e.engine = NewTesseractEngine(e.runner, cfg)
	}
	return e
}

// Acquire never returns an error: failures are folded into Result.Err and an empty Text.
func (e *Extractor) Acquire(ctx context.Context, data []byte, kind constants.Kind) Result {
	start := time.Now()
	var res Result
	switch constants.FormatOf(kind) {
	case constants.PDF:
		res = e.acquirePDF(ctx, data)
	case constants.IMAGE:
		res = e.acquireImage(ctx, data)
	default:
		res = Result{Err: fmt.Errorf("%w: %q", common.ErrUnsupportedKind, kind)}
	}
	res.Duration = time.Since(start)
	res.Confidence = heuristicConfidence(res.Text)

	attrs := []any{
		"kind", kind,
		"method", res.Method,
		"pages", res.Pages,
		"status", res.Status().String(),
		"bytes", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		e.logger.Warn("ocr.acquire.error", append(attrs, "error", res.Err)...)
	} else {
		e.logger.Debug("ocr.acquire.done", append(attrs, "confidence", res.Confidence)...)
	}
	return res
}

func (e *Extractor) acquirePDF(ctx context.Context, data []byte) Result {
	var warns []string
	text, pages, err := e.native.Text(ctx, data)
	if err != nil {
		warns = append(warns, "native text: "+err.Error())
		e.logger.Debug("ocr.pdf_text.failed", "error", err)
	}
	if text = NormalizeNative(text); text != "" {
		return Result{Text: text, Pages: pages, SourceType: constants.PDF, Method: MethodPDFText, Warnings: warns}
	}

	text, pages, w, err := e.pdfOCR(ctx, data)
	return Result{
		Text:       NormalizeOCR(text),
		Pages:      pages,
		SourceType: constants.PDF,
		Method:     MethodPDFOCR,
		Warnings:   append(warns, w...),
		Err:        err,
	}
}
