package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/ocr"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

// TextDumpExt is appended to a document's file name for its text dump.
const TextDumpExt = ".txt"

// Acquirer turns document bytes into text without failing.
type Acquirer interface {
	Acquire(ctx context.Context, data []byte, kind constants.Kind) ocr.Result
}

// Parser maps text to a record.
type Parser interface {
	ParseInvoice(text string) entity.Invoice
}

// DumpText acquires the text of every supported document in inDir and writes
// it to outDir/<name>.txt. Documents without text are skipped. Returns the dumps written.
func DumpText(ctx context.Context, acq Acquirer, inDir, outDir string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	names, err := listFiles(inDir, AllowedExt)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		data, err := os.ReadFile(filepath.Join(inDir, name))
		if err != nil {
			logger.Error("ingest.dump.read_failed", "file", name, "error", err)
			continue
		}
		res := acq.Acquire(ctx, data, constants.KindFromName(name))
		if strings.TrimSpace(res.Text) == "" {
			logger.Warn("ingest.dump.empty", "file", name, "error", res.Err)
			continue
		}
		out := filepath.Join(outDir, name+TextDumpExt)
		if err := os.WriteFile(out, []byte(res.Text), 0o644); err != nil {
			logger.Error("ingest.dump.write_failed", "file", name, "error", err)
			continue
		}
		logger.Info("ingest.dump.ok", "file", name, "method", res.Method)
		written = append(written, out)
	}
	return written, nil
}

// Reextract parses every text dump in dir and replaces the CSV log at csvPath
// with the results, one row per dump with Source_File set to the dump's name.
func Reextract(dir, csvPath string, parser Parser, logger *slog.Logger) ([]entity.Invoice, error) {
	if logger == nil {
		logger = slog.Default()
	}
	names, err := listFiles(dir, func(ext string) bool { return strings.EqualFold(ext, TextDumpExt) })
	if err != nil {
		return nil, err
	}

	invs := make([]entity.Invoice, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		inv := parser.ParseInvoice(string(data))
		inv.SourceFile = name
		invs = append(invs, inv)
	}
	if err := repository.WriteCSV(csvPath, invs); err != nil {
		return nil, err
	}
	logger.Info("ingest.reextract.done", "dir", dir, "csv", csvPath, "rows", len(invs))
	return invs, nil
}

// listFiles returns the sorted names of regular, non-hidden files in dir whose extension passes keep.
func listFiles(dir string, keep func(ext string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || IsHidden(e.Name()) || !keep(filepath.Ext(e.Name())) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
