package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/invoice-intake/internal/pipeline"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

// FSIngestor feeds files from the local filesystem through the pipeline.
// Content already saved for a tenant during this process's lifetime is skipped.
type FSIngestor struct {
	runner DocumentRunner
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]map[string]struct{} // tenant -> sha256 hex
}

func NewFSIngestor(runner DocumentRunner, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{runner: runner, logger: logger, seen: make(map[string]map[string]struct{})}
}

func (i *FSIngestor) IngestPath(ctx context.Context, h repository.Handle, path string) (FileResult, error) {
	out := FileResult{Path: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return out, fmt.Errorf("read: %w", err)
	}
	out.HashHex = hashHex(data)

	if i.isSeen(h.Tenant, out.HashHex) {
		out.Deduplicated = true
		i.logger.Info("ingest.file.duplicate", "path", abs, "tenant", h.Tenant, "sha256", out.HashHex)
		return out, nil
	}

	// unsupported kinds still go through the pipeline so they get their status line
	res := i.runner.Do(ctx, h, pipeline.Document{Name: filepath.Base(abs), Data: data})
	out.Outcome = res.Outcome
	if res.Outcome.OK() {
		i.markSeen(h.Tenant, out.HashHex)
	}
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested and ingests
// every supported file in lexical order. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, h repository.Handle, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, h, path)
		switch {
		case err != nil:
			r.Err = err.Error()
			stats.Failed++
		case r.Deduplicated:
			stats.Deduplicated++
		case r.Outcome.OK():
			stats.Succeeded++
		default:
			stats.Failed++
		}
		results = append(results, r)
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.logger.Info("ingest.directory.done",
		"root", root,
		"tenant", h.Tenant,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

func (i *FSIngestor) isSeen(tenant, hash string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.seen[tenant][hash]
	return ok
}

func (i *FSIngestor) markSeen(tenant, hash string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.seen[tenant] == nil {
		i.seen[tenant] = make(map[string]struct{})
	}
	i.seen[tenant][hash] = struct{}{}
}

// Outcomes returns the pipeline outcomes of results, skipping duplicates and walk errors.
func Outcomes(results []FileResult) []pipeline.Outcome {
	var outs []pipeline.Outcome
	for _, r := range results {
		if r.Outcome.Message != "" {
			outs = append(outs, r.Outcome)
		}
	}
	return outs
}

var _ Ingestor = (*FSIngestor)(nil)
