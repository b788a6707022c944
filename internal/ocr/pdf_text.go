package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFTextReader extracts the embedded text layer of a PDF.
type PDFTextReader interface {
	Text(ctx context.Context, data []byte) (text string, pages int, err error)
}

var errEmptyDocument = errors.New("empty document")

// PDFReader reads the text layer in-process.
type PDFReader struct{}

func NewPDFReader() *PDFReader { return &PDFReader{} }

// Text rebuilds each page's lines from glyph positions and joins the pages
// with a newline.
func (*PDFReader) Text(ctx context.Context, data []byte) (text string, pages int, err error) {
	if len(data) == 0 {
		return "", 0, errEmptyDocument
	}
	// the reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf reader: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	pages = r.NumPage()
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", pages, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		t := pageLines(p.Content().Text)
		if t == "" {
			// no positioned glyphs; fall back to the raw text runs
			if t, err = p.GetPlainText(nil); err != nil {
				return "", pages, fmt.Errorf("page %d: %w", i, err)
			}
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, "\n"), pages, nil
}

// pageLines groups glyphs that share a baseline into one line, top to bottom,
// and orders each line left to right. A horizontal gap wider than a fraction
// of the font size between two glyphs becomes a single space.
func pageLines(glyphs []pdf.Text) string {
	kept := make([]pdf.Text, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S == "" || g.S == "\n" || g.S == "\r" {
			continue
		}
		kept = append(kept, g)
	}
	if len(kept) == 0 {
		return ""
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Y > kept[j].Y })

	var lines []string
	start := 0
	for i := 1; i <= len(kept); i++ {
		if i < len(kept) && kept[start].Y-kept[i].Y <= baselineTolerance(kept[i]) {
			continue
		}
		if line := joinRow(kept[start:i]); line != "" {
			lines = append(lines, line)
		}
		start = i
	}
	return strings.Join(lines, "\n")
}

func baselineTolerance(g pdf.Text) float64 {
	return math.Max(2, math.Abs(g.FontSize)/2)
}

func joinRow(row []pdf.Text) string {
	sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
	var b strings.Builder
	end := math.Inf(-1)
	for _, g := range row {
		gap := g.X - end
		if b.Len() > 0 && gap > math.Abs(g.FontSize)*0.2 && g.S != " " && !strings.HasSuffix(b.String(), " ") {
			b.WriteByte(' ')
		}
		b.WriteString(g.S)
		end = math.Max(end, g.X+g.W)
	}
	return strings.TrimSpace(b.String())
}

// PdftotextReader shells out to poppler's pdftotext.
type PdftotextReader struct {
	runner Runner
	bin    string
}

func NewPdftotextReader(r Runner, bin string) *PdftotextReader {
	if bin == "" {
		bin = "pdftotext"
	}
	return &PdftotextReader{runner: r, bin: bin}
}

func (p *PdftotextReader) Text(ctx context.Context, data []byte) (string, int, error) {
	if len(data) == 0 {
		return "", 0, errEmptyDocument
	}
	path, cleanup, err := writeTemp(data, "in.pdf")
	if err != nil {
		return "", 0, err
	}
	defer cleanup()

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.bin, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, toolError("pdftotext", err, errb)
	}
	text := string(out)
	// A form-feed \f is used as page separator by default
	pages := 1 + strings.Count(strings.TrimRight(text, "\f\n"), "\f")
	return strings.ReplaceAll(text, "\f", "\n"), pages, nil
}

// writeTemp stores data in a fresh temp dir and returns the file path and a cleanup func.
func writeTemp(data []byte, name string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "intake-*")
	if err != nil {
		return "", func() {}, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return path, cleanup, nil
}
