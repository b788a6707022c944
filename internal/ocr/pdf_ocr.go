package ocr

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// Rasterizer renders PDF pages to images at the given DPI. maxPages <= 0 means all pages.
type Rasterizer interface {
	Render(ctx context.Context, data []byte, dpi, maxPages int) ([]image.Image, error)
}

// PdftoppmRasterizer renders pages with poppler's pdftoppm.
type PdftoppmRasterizer struct {
	runner Runner
	bin    string
}

func NewPdftoppmRasterizer(r Runner, bin string) *PdftoppmRasterizer {
	if bin == "" {
		bin = "pdftoppm"
	}
	return &PdftoppmRasterizer{runner: r, bin: bin}
}

func (p *PdftoppmRasterizer) Render(ctx context.Context, data []byte, dpi, maxPages int) ([]image.Image, error) {
	if len(data) == 0 {
		return nil, errEmptyDocument
	}
	in, cleanup, err := writeTemp(data, "in.pdf")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	prefix := filepath.Join(filepath.Dir(in), "page")
	// pdftoppm -r 200 -png [-l N] <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(dpi), "-png"}
	if maxPages > 0 {
		args = append(args, "-l", strconv.Itoa(maxPages))
	}
	args = append(args, in, prefix)
	if _, errb, err := p.runner.Run(ctx, p.bin, args...); err != nil {
		return nil, toolError("pdftoppm", err, errb)
	}

	// collect generated pngs (page-1.png, page-2.png, ... zero padded by page count)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}
	pages := make([]image.Image, 0, len(matches))
	for _, m := range matches {
		img, err := imaging.Open(m)
		if err != nil {
			return nil, fmt.Errorf("open rendered page %s: %w", filepath.Base(m), err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

// pdfOCR renders, binarizes and recognizes every page. A page that fails to
// recognize is skipped with a warning; the error is returned only when no page produced text.
func (e *Extractor) pdfOCR(ctx context.Context, data []byte) (string, int, []string, error) {
	pages, err := e.raster.Render(ctx, data, e.cfg.DPI, e.cfg.MaxPages)
	if err != nil {
		return "", 0, nil, err
	}

	var (
		parts   []string
		warns   []string
		lastErr error
	)
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return strings.Join(parts, "\n"), len(pages), warns, err
		}
		txt, err := e.engine.Recognize(ctx, Binarize(page, e.cfg.Threshold), RecognizeOptions{PSM: e.cfg.PSM})
		if err != nil {
			warns = append(warns, fmt.Sprintf("page %d: %v", i+1, err))
			lastErr = err
			continue
		}
		parts = append(parts, txt)
	}
	if len(parts) == 0 && lastErr != nil {
		return "", len(pages), warns, lastErr
	}
	return strings.Join(parts, "\n"), len(pages), warns, nil
}
