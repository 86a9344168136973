package services

import (
	"context"

	"github.com/ersonp/hindsight-core/internal/domain/ports"
)

// Engine is the public API surface of the memory substrate: retain,
// recall, and bank administration over one shared set of process-wide
// collaborators. Construct once and pass explicitly; the engine holds no
// mutable per-request state.
type Engine struct {
	store  ports.Store
	retain *RetainService
	recall *RecallService
}

// NewEngine wires the retain and recall pipelines from their injected
// collaborators. checker, resolver, tasks, and analyzer may be nil; the
// corresponding stage degrades to a no-op.
func NewEngine(
	store ports.Store,
	llm ports.LLMClient,
	embedder ports.Embedder,
	checker ports.DuplicateChecker,
	resolver ports.EntityResolver,
	tasks ports.TaskBackend,
	analyzer ports.QueryAnalyzer,
	tuning Tuning,
) *Engine {
	return &Engine{
		store:  store,
		retain: NewRetainService(store, llm, embedder, checker, resolver, tasks, tuning),
		recall: NewRecallService(store, embedder, analyzer),
	}
}

// Retain ingests one content item into a bank and returns the created
// unit ids in extraction order.
func (e *Engine) Retain(ctx context.Context, bankID string, input RetainContentInput, opts RetainOptions) ([]string, error) {
	return e.retain.Retain(ctx, bankID, input, opts)
}

// RetainBatch ingests a batch of content items, returning one unit-id
// list per item in input order.
func (e *Engine) RetainBatch(ctx context.Context, bankID string, inputs []RetainContentInput, opts RetainOptions) ([][]string, error) {
	return e.retain.RetainBatch(ctx, bankID, inputs, opts)
}

// Recall runs a natural-language query against a bank.
func (e *Engine) Recall(ctx context.Context, bankID, query string, opts RecallOptions) (*RecallResult, error) {
	return e.recall.Recall(ctx, bankID, query, opts)
}

// DeleteBank removes a bank and everything it contains: documents,
// chunks, units, entities, and links.
func (e *Engine) DeleteBank(ctx context.Context, bankID string) error {
	return e.store.DeleteBank(ctx, bankID)
}
