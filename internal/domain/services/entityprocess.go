package services

import (
	"context"
	"log"

	"github.com/ersonp/hindsight-core/internal/domain/entities"
	"github.com/ersonp/hindsight-core/internal/domain/ports"
)

// ProcessEntitiesBatch resolves every non-duplicate fact's entity mentions
// against the bank, creating new entity rows inside the caller's
// transaction, and returns the flat list of entity links to insert.
// unitIDs and facts are parallel slices. Resolver failures are logged and
// the fact proceeds with no entities.
func ProcessEntitiesBatch(
	ctx context.Context,
	resolver ports.EntityResolver,
	bank ports.EntityBank,
	bankID string,
	unitIDs []string,
	facts []entities.ExtractedFact,
) []entities.EntityLink {
	if resolver == nil {
		return nil
	}

	var links []entities.EntityLink
	for i, fact := range facts {
		names := make([]string, 0, len(fact.Entities))
		for _, e := range fact.Entities {
			names = append(names, e.Text)
		}
		if len(names) == 0 {
			continue
		}

		resolutions, err := resolver.Resolve(ctx, bank, bankID, fact.FactText, names)
		if err != nil {
			log.Printf("warning: entity resolution failed for unit %s, proceeding without entities: %v", unitIDs[i], err)
			continue
		}
		for _, res := range resolutions {
			links = append(links, entities.EntityLink{
				UnitID:     unitIDs[i],
				EntityID:   res.EntityID,
				Confidence: clamp01(res.Confidence),
			})
		}
	}
	return links
}
