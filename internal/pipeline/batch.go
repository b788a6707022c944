package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

// DocumentProcessor is satisfied by *Processor.
type DocumentProcessor interface {
	Process(ctx context.Context, h repository.Handle, doc Document) (entity.Invoice, Outcome)
}

// Result pairs a document's record with its outcome.
type Result struct {
	Invoice entity.Invoice
	Outcome Outcome
}

// Report is the ordered result of one batch.
type Report struct {
	ID      string
	Results []Result
}

func (r Report) Outcomes() []Outcome {
	out := make([]Outcome, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Outcome
	}
	return out
}

// Status joins every status line in upload order.
func (r Report) Status() string { return JoinStatuses(r.Outcomes()) }

// Counts tallies outcomes by code.
func (r Report) Counts() map[constants.Outcome]int {
	c := make(map[constants.Outcome]int)
	for _, res := range r.Results {
		c[res.Outcome.Code]++
	}
	return c
}

// Warnings counts saved documents whose table insert failed.
func (r Report) Warnings() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome.Warning != "" {
			n++
		}
	}
	return n
}

// Batch processes uploads strictly one after another.
type Batch struct {
	proc   DocumentProcessor
	logger *slog.Logger
}

func NewBatch(proc DocumentProcessor, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{proc: proc, logger: logger}
}

// Run processes docs in order. A panic or cancellation affects only the
// document it hits; every document gets exactly one result.
func (b *Batch) Run(ctx context.Context, h repository.Handle, docs []Document) Report {
	rep := Report{ID: uuid.NewString(), Results: make([]Result, 0, len(docs))}
	log := b.logger.With("batch_id", rep.ID, "tenant", h.Tenant)
	log.Info("batch.start", "documents", len(docs))

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			rep.Results = append(rep.Results, Result{Outcome: failedOutcome(doc.Name, constants.KindFromName(doc.Name), err)})
			continue
		}
		rep.Results = append(rep.Results, b.do(ctx, h, doc, log))
	}

	c := rep.Counts()
	log.Info("batch.done",
		"saved", c[constants.OutcomeSaved],
		"unsupported", c[constants.OutcomeUnsupported],
		"no_text", c[constants.OutcomeNoText],
		"failed", c[constants.OutcomeFailed],
		"db_warnings", rep.Warnings(),
	)
	return rep
}

// Do processes a single document with the same panic isolation as Run.
func (b *Batch) Do(ctx context.Context, h repository.Handle, doc Document) Result {
	return b.do(ctx, h, doc, b.logger.With("tenant", h.Tenant))
}

func (b *Batch) do(ctx context.Context, h repository.Handle, doc Document, log *slog.Logger) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("batch.document.panic", "file", doc.Name, "panic", r)
			res = Result{Outcome: failedOutcome(doc.Name, constants.KindFromName(doc.Name), fmt.Errorf("panic: %v", r))}
		}
	}()
	inv, out := b.proc.Process(ctx, h, doc)
	return Result{Invoice: inv, Outcome: out}
}
