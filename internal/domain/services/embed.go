package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ersonp/hindsight-core/internal/domain/entities"
	"github.com/ersonp/hindsight-core/internal/domain/ports"
)

// EmbeddingService generates embeddings for extracted facts, augmenting
// each text with a human-readable date so temporal queries recall well
// semantically.
type EmbeddingService struct {
	embedder ports.Embedder
}

// NewEmbeddingService creates a new embedding service.
func NewEmbeddingService(embedder ports.Embedder) *EmbeddingService {
	return &EmbeddingService{embedder: embedder}
}

// AugmentText prepends a readable date to the fact text, derived from
// occurred_start when set, otherwise mentioned_at.
func AugmentText(f entities.ExtractedFact) string {
	date := f.MentionedAt
	if f.OccurredStart != nil {
		date = *f.OccurredStart
	}
	return fmt.Sprintf("On %s: %s", formatReadableDate(date), f.FactText)
}

// EmbedFacts augments every fact's text and generates embeddings in one
// batch call, preserving order.
func (s *EmbeddingService) EmbedFacts(ctx context.Context, facts []entities.ExtractedFact) ([][]float32, error) {
	if len(facts) == 0 {
		return nil, nil
	}
	texts := make([]string, len(facts))
	for i, f := range facts {
		texts[i] = AugmentText(f)
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("generating embeddings: %w", err)
	}
	if len(embeddings) != len(facts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(facts))
	}
	return embeddings, nil
}

// EmbedQuery embeds a single recall query, without date augmentation.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := s.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(embeddings))
	}
	return embeddings[0], nil
}

func formatReadableDate(t time.Time) string {
	return t.UTC().Format("January 2, 2006")
}
