package ingest

import (
	"context"

	"github.com/joseph-ayodele/invoice-intake/internal/pipeline"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

// FileResult is the per-file ingest outcome.
type FileResult struct {
	Path         string
	HashHex      string
	Deduplicated bool
	Outcome      pipeline.Outcome
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// DocumentRunner processes one document without panicking; *pipeline.Batch satisfies it.
type DocumentRunner interface {
	Do(ctx context.Context, h repository.Handle, doc pipeline.Document) pipeline.Result
}

// Ingestor is the behavior the binaries depend on.
type Ingestor interface {
	// IngestPath a single path.
	IngestPath(ctx context.Context, h repository.Handle, path string) (FileResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, h repository.Handle, root string, skipHidden bool) ([]FileResult, DirStats, error)
}
