package ports

import "context"

// DuplicateChecker decides whether a candidate fact is a near-duplicate of
// one already stored in the bank. Implementations combine a text-similarity
// pass with a vector-similarity threshold; the exact strategy is advisory
// and swappable, per spec: on checker failure the caller treats the fact as
// not a duplicate rather than blocking the batch.
type DuplicateChecker interface {
	IsDuplicate(ctx context.Context, bankID, factText string, embedding []float32) (bool, error)
}
