package services

import (
	"sort"
	"time"

	"github.com/ersonp/hindsight-core/internal/domain/entities"
	"github.com/ersonp/hindsight-core/internal/domain/ports"
)

// Temporal link parameters.
const (
	// maxTemporalLinksPerUnit caps how many temporal edges one new unit
	// may produce.
	maxTemporalLinksPerUnit = 10
	// minTemporalWeight is the floor of the linear decay weight.
	minTemporalWeight = 0.3
)

// The representable datetime range query bounds clamp to. Matches the
// range the backing store can round-trip.
var (
	minDatetime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxDatetime = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)
)

// timeWindow converts a fractional hour count to a duration.
func timeWindow(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

// computeTemporalQueryBounds returns the window the candidate scan should
// cover: [min(new) - W, max(new) + W], clamped to the representable
// datetime range. ok is false when there are no new units.
func computeTemporalQueryBounds(newUnits map[string]time.Time, timeWindowHours float64) (start, end time.Time, ok bool) {
	if len(newUnits) == 0 {
		return time.Time{}, time.Time{}, false
	}

	var minDate, maxDate time.Time
	for _, t := range newUnits {
		t = t.UTC()
		if minDate.IsZero() || t.Before(minDate) {
			minDate = t
		}
		if maxDate.IsZero() || t.After(maxDate) {
			maxDate = t
		}
	}

	window := timeWindow(timeWindowHours)
	start = minDate.Add(-window)
	if start.Before(minDatetime) || start.After(minDate) {
		start = minDatetime
	}
	end = maxDate.Add(window)
	if end.After(maxDatetime) || end.Before(maxDate) {
		end = maxDatetime
	}
	return start, end, true
}

// computeTemporalLinks scores every candidate within the time window
// against every new unit: weight decays linearly with the absolute time
// difference, floored at minTemporalWeight, and each unit emits at most
// maxTemporalLinksPerUnit links ordered by descending weight with ties
// broken by candidate id. Candidates that are themselves new units are
// skipped, so temporal edges only reach back to existing memory.
func computeTemporalLinks(newUnits map[string]time.Time, candidates []ports.TemporalCandidate, timeWindowHours float64) []entities.FactLink {
	if len(newUnits) == 0 || len(candidates) == 0 {
		return nil
	}
	window := timeWindow(timeWindowHours)

	var links []entities.FactLink
	for _, unitID := range sortedKeys(newUnits) {
		unitDate := newUnits[unitID].UTC()

		type scoredCandidate struct {
			id     string
			weight float64
		}
		var scored []scoredCandidate
		for _, c := range candidates {
			if c.UnitID == unitID {
				continue
			}
			if _, isNew := newUnits[c.UnitID]; isNew {
				continue
			}
			delta := unitDate.Sub(c.MentionedAt.UTC())
			if delta < 0 {
				delta = -delta
			}
			if delta > window {
				continue
			}
			weight := 1.0 - float64(delta)/float64(window)
			if weight < minTemporalWeight {
				weight = minTemporalWeight
			}
			scored = append(scored, scoredCandidate{id: c.UnitID, weight: weight})
		}

		sort.Slice(scored, func(i, j int) bool {
			if scored[i].weight != scored[j].weight {
				return scored[i].weight > scored[j].weight
			}
			return scored[i].id < scored[j].id
		})
		if len(scored) > maxTemporalLinksPerUnit {
			scored = scored[:maxTemporalLinksPerUnit]
		}

		for _, s := range scored {
			links = append(links, entities.FactLink{
				SrcUnitID: unitID,
				DstUnitID: s.id,
				Kind:      entities.LinkTemporal,
				Weight:    s.weight,
			})
		}
	}
	return links
}

// newEmbedding pairs a new unit's id with its embedding for semantic link
// computation.
type newEmbedding struct {
	UnitID    string
	Embedding []float32
}

// computeSemanticLinks ranks the bank's existing embedding pool against
// each new unit and emits links for the topK nearest neighbors whose
// cosine similarity clears the floor. Negative similarities clamp to zero
// so weights stay in [0, 1].
func computeSemanticLinks(newUnits []newEmbedding, pool []ports.SemanticCandidate, similarityFloor float64, topK int, cosine func(a, b []float32) float64) []entities.FactLink {
	if len(newUnits) == 0 || len(pool) == 0 || topK <= 0 {
		return nil
	}

	newIDs := make(map[string]struct{}, len(newUnits))
	for _, u := range newUnits {
		newIDs[u.UnitID] = struct{}{}
	}

	var links []entities.FactLink
	for _, unit := range newUnits {
		type scoredCandidate struct {
			id  string
			sim float64
		}
		var scored []scoredCandidate
		for _, c := range pool {
			if _, isNew := newIDs[c.UnitID]; isNew {
				continue
			}
			sim := cosine(unit.Embedding, c.Embedding)
			if sim < similarityFloor {
				continue
			}
			scored = append(scored, scoredCandidate{id: c.UnitID, sim: sim})
		}

		sort.Slice(scored, func(i, j int) bool {
			if scored[i].sim != scored[j].sim {
				return scored[i].sim > scored[j].sim
			}
			return scored[i].id < scored[j].id
		})
		if len(scored) > topK {
			scored = scored[:topK]
		}

		for _, s := range scored {
			links = append(links, entities.FactLink{
				SrcUnitID: unit.UnitID,
				DstUnitID: s.id,
				Kind:      entities.LinkSemantic,
				Weight:    clamp01(s.sim),
			})
		}
	}
	return links
}

// computeCausalLinks resolves the LLM-reported causal relations of the
// batch's facts to post-dedup unit ids. facts is the full pre-dedup
// extraction in global order; unitIDByGlobalIndex maps a global fact index
// to its unit id, absent when the fact was dropped as a duplicate. A
// relation whose source or target was dropped, or whose target index is
// out of range, is skipped.
func computeCausalLinks(facts []entities.ExtractedFact, unitIDByGlobalIndex map[int]string) []entities.FactLink {
	var links []entities.FactLink
	for i, fact := range facts {
		src, ok := unitIDByGlobalIndex[i]
		if !ok {
			continue
		}
		for _, rel := range fact.CausalRelations {
			dst, ok := unitIDByGlobalIndex[rel.TargetFactIndex]
			if !ok || dst == src {
				continue
			}
			links = append(links, entities.FactLink{
				SrcUnitID: src,
				DstUnitID: dst,
				Kind:      entities.LinkCausal,
				Weight:    clamp01(rel.Strength),
				Metadata:  string(rel.RelationType),
			})
		}
	}
	return links
}
