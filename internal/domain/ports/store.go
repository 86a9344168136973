package ports

import (
	"context"
	"errors"
	"time"

	"github.com/ersonp/hindsight-core/internal/domain/entities"
)

// ErrBankNotFound is returned by GetBankProfile when the bank has never
// been created.
var ErrBankNotFound = errors.New("store: bank not found")

// TemporalCandidate is a stored unit's id and mention timestamp, returned by
// a temporal window query so the link builder can score it without paying
// for the full fact row.
type TemporalCandidate struct {
	UnitID      string
	MentionedAt time.Time
}

// SemanticCandidate is a stored unit's id and embedding, returned by a bank
// embedding pool query so the link builder can rank it in process.
type SemanticCandidate struct {
	UnitID    string
	Embedding []float32
}

// RecallHit is one ranked result from a recall search: the stored unit plus
// the similarity score it was ranked on.
type RecallHit struct {
	Unit       entities.Unit
	Similarity float64
}

// RetainStore is the transaction-scoped surface the retain orchestrator
// drives. Every method participates in the transaction opened by
// Store.BeginRetain; nothing is visible to other readers until Commit, and
// nothing survives a Rollback. Implementations must also satisfy
// EntityBank so the same handle can back the entity resolver.
type RetainStore interface {
	EntityBank

	// EnsureBankExists inserts the bank row if absent, stamping name on
	// first creation; it is not an error for the bank to already exist,
	// and name is ignored in that case.
	EnsureBankExists(ctx context.Context, bankID, name string) error

	// HandleDocumentTracking implements the document upsert/append rules:
	// when isFirstBatch is true the document's content is replaced and its
	// prior chunks and facts are cascade-deleted; otherwise content is
	// appended to the existing document. If documentID is empty, a new id
	// is generated. Returns the resolved document id.
	HandleDocumentTracking(ctx context.Context, bankID, documentID, content string, isFirstBatch bool) (resolvedDocumentID string, err error)

	// StoreChunksBatch persists chunks in order and returns their
	// generated ids indexed the same as the input slice.
	StoreChunksBatch(ctx context.Context, bankID, documentID string, chunks []string) (chunkIDs []string, err error)

	// InsertFactsBatch persists non-duplicate units and returns their
	// generated ids, indexed the same as the (already filtered) input
	// slice.
	InsertFactsBatch(ctx context.Context, units []entities.Unit) (unitIDs []string, err error)

	// InsertEntityLinks persists resolved (unit, entity, confidence)
	// tuples.
	InsertEntityLinks(ctx context.Context, links []entities.EntityLink) error

	// InsertFactLinks persists temporal, semantic, and causal edges
	// between units.
	InsertFactLinks(ctx context.Context, links []entities.FactLink) error

	// TemporalCandidatesInWindow returns existing units in the bank whose
	// mentioned_at falls in [start, end], plus any units already inserted
	// earlier in this same transaction that fall in the window. The
	// caller is responsible for excluding a unit from being linked to
	// itself.
	TemporalCandidatesInWindow(ctx context.Context, bankID string, start, end time.Time) ([]TemporalCandidate, error)

	// SemanticCandidates returns the embedding of every existing unit in
	// the bank (again including ones inserted earlier in this
	// transaction), for in-process cosine ranking.
	SemanticCandidates(ctx context.Context, bankID string) ([]SemanticCandidate, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the top-level persistence port. A single implementation backs
// both the write path (via BeginRetain) and the read path (recall,
// administration).
type Store interface {
	// EnsureSchema creates the store's tables and indexes if they do not
	// already exist. Safe to call on every startup.
	EnsureSchema(ctx context.Context) error

	// BeginRetain opens a new transaction-scoped RetainStore. Exactly one
	// of Commit or Rollback must be called on the result.
	BeginRetain(ctx context.Context) (RetainStore, error)

	// DeleteBank removes a bank and every row that references it
	// (documents, chunks, units, entities, entity links, fact links) in
	// one transaction.
	DeleteBank(ctx context.Context, bankID string) error

	// GetBankProfile loads the bank's persisted name/description/
	// background, or ErrBankNotFound if it has never been created.
	GetBankProfile(ctx context.Context, bankID string) (*entities.Bank, error)

	// SearchUnits ranks stored units in bankID against queryEmbedding,
	// optionally restricted to factType (empty means all types) and to a
	// mentioned_at window (zero Start/End means unbounded), returning at
	// most limit hits ordered by descending similarity.
	SearchUnits(ctx context.Context, bankID string, queryEmbedding []float32, factType string, window *TemporalConstraint, limit int) ([]RecallHit, error)

	// GetEntityNamesForUnits returns, for each requested unit id, the
	// names of entities linked to it.
	GetEntityNamesForUnits(ctx context.Context, unitIDs []string) (map[string][]string, error)

	// GetChunkText returns the source chunk text a unit was extracted
	// from.
	GetChunkText(ctx context.Context, chunkID string) (string, error)

	Close() error
}
