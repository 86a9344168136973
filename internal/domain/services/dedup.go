package services

import (
	"context"
	"log"

	"github.com/ersonp/hindsight-core/internal/domain/entities"
	"github.com/ersonp/hindsight-core/internal/domain/ports"
)

// CheckDuplicatesBatch asks the injected checker whether each unit is a
// near-duplicate of one already stored in the bank, returning a parallel
// slice of flags. Dedup is advisory: a checker failure (or a nil checker)
// marks the unit as not a duplicate and logs, never failing the batch.
func CheckDuplicatesBatch(ctx context.Context, checker ports.DuplicateChecker, bankID string, units []entities.Unit) []bool {
	flags := make([]bool, len(units))
	if checker == nil {
		return flags
	}
	for i, u := range units {
		dup, err := checker.IsDuplicate(ctx, bankID, u.FactText, u.Embedding)
		if err != nil {
			log.Printf("warning: duplicate check failed for fact %d, keeping it: %v", i, err)
			continue
		}
		flags[i] = dup
	}
	return flags
}

// FilterDuplicates returns the units whose flag is false, preserving order.
func FilterDuplicates(units []entities.Unit, flags []bool) []entities.Unit {
	kept := make([]entities.Unit, 0, len(units))
	for i, u := range units {
		if !flags[i] {
			kept = append(kept, u)
		}
	}
	return kept
}
