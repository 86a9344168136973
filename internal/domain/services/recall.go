package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ersonp/hindsight-core/internal/domain/entities"
	"github.com/ersonp/hindsight-core/internal/domain/ports"
)

// Budget is the recall result-size tier.
type Budget string

const (
	BudgetLow  Budget = "LOW"
	BudgetMid  Budget = "MID"
	BudgetHigh Budget = "HIGH"
)

// resultCount maps a budget tier to the maximum number of results.
func (b Budget) resultCount() int {
	switch b {
	case BudgetLow:
		return 5
	case BudgetHigh:
		return 40
	default:
		return 15
	}
}

// RecallOptions configure one recall query. The zero value searches all
// fact types at the MID budget with no token bound and no hydration.
type RecallOptions struct {
	Budget          Budget
	MaxTokens       int
	FactType        string
	IncludeEntities bool
	IncludeChunks   bool
	MaxChunkTokens  int
}

// RecallHit is one ranked recall result.
type RecallHit struct {
	UnitID        string
	FactText      string
	FactType      entities.FactType
	Similarity    float64
	MentionedAt   time.Time
	OccurredStart *time.Time
	OccurredEnd   *time.Time
	ChunkID       string
}

// RecallResult is a recall response: ranked hits plus optional hydrated
// entity names and source chunk texts, keyed by unit id and chunk id
// respectively.
type RecallResult struct {
	Results  []RecallHit
	Entities map[string][]string
	Chunks   map[string]string
}

// RecallService is the read path: semantic search over the bank's vector
// index, optionally narrowed by a temporal constraint extracted from the
// query. It never opens a write transaction.
type RecallService struct {
	store     ports.Store
	embedding *EmbeddingService
	analyzer  ports.QueryAnalyzer
}

// NewRecallService creates a new recall service. analyzer may be nil, in
// which case no temporal narrowing is applied.
func NewRecallService(store ports.Store, embedder ports.Embedder, analyzer ports.QueryAnalyzer) *RecallService {
	return &RecallService{
		store:     store,
		embedding: NewEmbeddingService(embedder),
		analyzer:  analyzer,
	}
}

// Recall runs a natural-language query against a bank. Analyzer failures
// degrade to an unconstrained search rather than failing the query.
func (s *RecallService) Recall(ctx context.Context, bankID, query string, opts RecallOptions) (*RecallResult, error) {
	queryEmbedding, err := s.embedding.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	var window *ports.TemporalConstraint
	if s.analyzer != nil {
		constraint, err := s.analyzer.Analyze(ctx, query, time.Now().UTC())
		if err != nil {
			log.Printf("warning: query analysis failed, searching without temporal constraint: %v", err)
		} else {
			window = constraint
		}
	}

	hits, err := s.store.SearchUnits(ctx, bankID, queryEmbedding, opts.FactType, window, opts.Budget.resultCount())
	if err != nil {
		return nil, fmt.Errorf("searching units: %w", err)
	}
	hits = truncateToTokenBudget(hits, opts.MaxTokens)

	result := &RecallResult{Results: make([]RecallHit, len(hits))}
	unitIDs := make([]string, len(hits))
	for i, h := range hits {
		unitIDs[i] = h.Unit.ID
		result.Results[i] = RecallHit{
			UnitID:        h.Unit.ID,
			FactText:      h.Unit.FactText,
			FactType:      h.Unit.FactType,
			Similarity:    h.Similarity,
			MentionedAt:   h.Unit.MentionedAt,
			OccurredStart: h.Unit.OccurredStart,
			OccurredEnd:   h.Unit.OccurredEnd,
			ChunkID:       h.Unit.ChunkID,
		}
	}

	if opts.IncludeEntities && len(unitIDs) > 0 {
		names, err := s.store.GetEntityNamesForUnits(ctx, unitIDs)
		if err != nil {
			return nil, fmt.Errorf("hydrating entities: %w", err)
		}
		result.Entities = names
	}

	if opts.IncludeChunks {
		result.Chunks = make(map[string]string)
		for _, h := range result.Results {
			if h.ChunkID == "" {
				continue
			}
			if _, ok := result.Chunks[h.ChunkID]; ok {
				continue
			}
			text, err := s.store.GetChunkText(ctx, h.ChunkID)
			if err != nil {
				return nil, fmt.Errorf("hydrating chunk %s: %w", h.ChunkID, err)
			}
			if opts.MaxChunkTokens > 0 && estimateTokens(text) > opts.MaxChunkTokens {
				text = text[:opts.MaxChunkTokens*4]
			}
			result.Chunks[h.ChunkID] = text
		}
	}

	return result, nil
}

// truncateToTokenBudget drops trailing hits once the accumulated fact-text
// token estimate exceeds maxTokens. Zero means unbounded. At least one hit
// always survives so a recall is never silently empty.
func truncateToTokenBudget(hits []ports.RecallHit, maxTokens int) []ports.RecallHit {
	if maxTokens <= 0 {
		return hits
	}
	total := 0
	for i, h := range hits {
		total += estimateTokens(h.Unit.FactText)
		if total > maxTokens && i > 0 {
			return hits[:i]
		}
	}
	return hits
}

// estimateTokens approximates a token count as chars/4.
func estimateTokens(text string) int {
	return len(text) / 4
}
