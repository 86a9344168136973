// Package dedup provides the reference DuplicateChecker: a fact is a
// duplicate only when its nearest stored neighbor in the bank clears a
// vector-similarity threshold AND its text is near-equivalent. Both
// conditions are required so paraphrases that genuinely add information
// survive.
package dedup

import (
	"context"
	"strings"

	"github.com/ersonp/hindsight-core/internal/domain/ports"
)

// DefaultSimilarityThreshold is conservative: dedup only fires on
// near-identical vectors.
const DefaultSimilarityThreshold = 0.92

// textOverlapThreshold is the token-set Jaccard similarity above which two
// fact texts are considered near-equivalent.
const textOverlapThreshold = 0.9

// Checker implements ports.DuplicateChecker against the store's read path.
// It sees only committed facts, so dedup runs against the bank as of the
// previous batch, never against the in-flight transaction.
type Checker struct {
	store     ports.Store
	threshold float64
}

// NewChecker creates a checker. A non-positive threshold selects the
// default.
func NewChecker(store ports.Store, threshold float64) *Checker {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Checker{store: store, threshold: threshold}
}

// IsDuplicate reports whether the bank already holds a near-equivalent of
// the candidate fact.
func (c *Checker) IsDuplicate(ctx context.Context, bankID, factText string, embedding []float32) (bool, error) {
	hits, err := c.store.SearchUnits(ctx, bankID, embedding, "", nil, 1)
	if err != nil {
		return false, err
	}
	if len(hits) == 0 || hits[0].Similarity < c.threshold {
		return false, nil
	}
	return nearEquivalentText(factText, hits[0].Unit.FactText), nil
}

// nearEquivalentText compares normalized texts: exact match after
// whitespace/case folding, or a token-set Jaccard similarity above the
// overlap threshold.
func nearEquivalentText(a, b string) bool {
	na, nb := normalizeText(a), normalizeText(b)
	if na == nb {
		return true
	}
	return jaccard(tokenSet(na), tokenSet(nb)) >= textOverlapThreshold
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[strings.Trim(tok, ".,;:!?'\"")] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
