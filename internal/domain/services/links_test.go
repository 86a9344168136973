package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/hindsight-core/internal/domain/entities"
	"github.com/ersonp/hindsight-core/internal/domain/ports"
	"github.com/ersonp/hindsight-core/internal/infrastructure/vectorindex"
)

func TestComputeTemporalQueryBoundsEmpty(t *testing.T) {
	_, _, ok := computeTemporalQueryBounds(nil, 24)
	assert.False(t, ok)
}

func TestComputeTemporalQueryBoundsSingleUnit(t *testing.T) {
	units := map[string]time.Time{
		"unit-1": time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	start, end, ok := computeTemporalQueryBounds(units, 24)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 6, 16, 12, 0, 0, 0, time.UTC), end)
}

func TestComputeTemporalQueryBoundsSpansUnits(t *testing.T) {
	units := map[string]time.Time{
		"unit-1": time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
		"unit-2": time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		"unit-3": time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC),
	}
	start, end, ok := computeTemporalQueryBounds(units, 24)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC), end)
}

func TestComputeTemporalQueryBoundsClampsNearMin(t *testing.T) {
	units := map[string]time.Time{
		"unit-1": time.Date(1, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	start, end, ok := computeTemporalQueryBounds(units, 48)
	require.True(t, ok)
	assert.Equal(t, minDatetime, start)
	assert.True(t, end.After(start))
}

func TestComputeTemporalQueryBoundsClampsNearMax(t *testing.T) {
	units := map[string]time.Time{
		"unit-1": time.Date(9999, 12, 30, 0, 0, 0, 0, time.UTC),
	}
	start, end, ok := computeTemporalQueryBounds(units, 48)
	require.True(t, ok)
	assert.Equal(t, maxDatetime, end)
	assert.True(t, start.Before(end))
}

func TestComputeTemporalLinksEmptyInputs(t *testing.T) {
	assert.Empty(t, computeTemporalLinks(nil, nil, 24))
	assert.Empty(t, computeTemporalLinks(map[string]time.Time{"u": time.Now()}, nil, 24))
}

func TestComputeTemporalLinksWithinWindow(t *testing.T) {
	units := map[string]time.Time{
		"unit-1": time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	candidates := []ports.TemporalCandidate{
		{UnitID: "candidate-1", MentionedAt: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)},
	}

	links := computeTemporalLinks(units, candidates, 24)
	require.Len(t, links, 1)
	assert.Equal(t, "unit-1", links[0].SrcUnitID)
	assert.Equal(t, "candidate-1", links[0].DstUnitID)
	assert.Equal(t, entities.LinkTemporal, links[0].Kind)
	assert.Empty(t, links[0].Metadata)
	assert.Greater(t, links[0].Weight, 0.9)
}

func TestComputeTemporalLinksOutsideWindow(t *testing.T) {
	units := map[string]time.Time{
		"unit-1": time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	candidates := []ports.TemporalCandidate{
		{UnitID: "candidate-1", MentionedAt: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)},
	}
	assert.Empty(t, computeTemporalLinks(units, candidates, 24))
}

func TestComputeTemporalLinksWeightDecreasesWithDistance(t *testing.T) {
	units := map[string]time.Time{
		"unit-1": time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	candidates := []ports.TemporalCandidate{
		{UnitID: "close", MentionedAt: time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC)},
		{UnitID: "far", MentionedAt: time.Date(2024, 6, 14, 18, 0, 0, 0, time.UTC)},
	}

	links := computeTemporalLinks(units, candidates, 24)
	require.Len(t, links, 2)

	byDst := map[string]float64{}
	for _, l := range links {
		byDst[l.DstUnitID] = l.Weight
	}
	assert.Greater(t, byDst["close"], byDst["far"])
}

func TestComputeTemporalLinksCapsAtTenPerUnit(t *testing.T) {
	units := map[string]time.Time{
		"unit-1": time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	var candidates []ports.TemporalCandidate
	for i := 0; i < 15; i++ {
		candidates = append(candidates, ports.TemporalCandidate{
			UnitID:      fmt.Sprintf("candidate-%02d", i),
			MentionedAt: time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC),
		})
	}

	links := computeTemporalLinks(units, candidates, 24)
	assert.Len(t, links, 10)
}

func TestComputeTemporalLinksMultipleUnits(t *testing.T) {
	units := map[string]time.Time{
		"unit-1": time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		"unit-2": time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC),
	}
	candidates := []ports.TemporalCandidate{
		{UnitID: "c1", MentionedAt: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)},
		{UnitID: "c2", MentionedAt: time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC)},
		{UnitID: "c3", MentionedAt: time.Date(2024, 6, 17, 12, 0, 0, 0, time.UTC)},
	}

	links := computeTemporalLinks(units, candidates, 24)

	var unit1Dsts, unit2Dsts []string
	for _, l := range links {
		switch l.SrcUnitID {
		case "unit-1":
			unit1Dsts = append(unit1Dsts, l.DstUnitID)
		case "unit-2":
			unit2Dsts = append(unit2Dsts, l.DstUnitID)
		}
	}
	assert.Equal(t, []string{"c1"}, unit1Dsts)
	assert.Equal(t, []string{"c2"}, unit2Dsts)
}

func TestComputeTemporalLinksSkipsOtherNewUnits(t *testing.T) {
	units := map[string]time.Time{
		"unit-1": time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		"unit-2": time.Date(2024, 6, 15, 13, 0, 0, 0, time.UTC),
	}
	// The candidate scan sees rows inserted earlier in the same
	// transaction; those must not become temporal edges.
	candidates := []ports.TemporalCandidate{
		{UnitID: "unit-1", MentionedAt: units["unit-1"]},
		{UnitID: "unit-2", MentionedAt: units["unit-2"]},
		{UnitID: "old", MentionedAt: time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)},
	}

	links := computeTemporalLinks(units, candidates, 24)
	require.Len(t, links, 2)
	for _, l := range links {
		assert.Equal(t, "old", l.DstUnitID)
	}
}

func TestComputeTemporalLinksWeightFloor(t *testing.T) {
	units := map[string]time.Time{
		"unit-1": time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	candidates := []ports.TemporalCandidate{
		{UnitID: "c1", MentionedAt: time.Date(2024, 6, 14, 13, 0, 0, 0, time.UTC)},
	}

	links := computeTemporalLinks(units, candidates, 24)
	require.Len(t, links, 1)
	assert.GreaterOrEqual(t, links[0].Weight, 0.3)
	assert.LessOrEqual(t, links[0].Weight, 1.0)
}

func TestComputeTemporalLinksOverflowNearBounds(t *testing.T) {
	units := map[string]time.Time{
		"unit-1": time.Date(1, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	candidates := []ports.TemporalCandidate{
		{UnitID: "c1", MentionedAt: time.Date(1, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
	links := computeTemporalLinks(units, candidates, 48)
	assert.Len(t, links, 1)

	units = map[string]time.Time{
		"unit-1": time.Date(9999, 12, 30, 0, 0, 0, 0, time.UTC),
	}
	candidates = []ports.TemporalCandidate{
		{UnitID: "c1", MentionedAt: time.Date(9999, 12, 31, 12, 0, 0, 0, time.UTC)},
	}
	links = computeTemporalLinks(units, candidates, 48)
	assert.Len(t, links, 1)
}

// The literal window scenario: candidates at +1h, +18h, and +25h against a
// 24h window produce exactly two links, closer wins.
func TestComputeTemporalLinksWindowScenario(t *testing.T) {
	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	units := map[string]time.Time{"unit-1": base}
	candidates := []ports.TemporalCandidate{
		{UnitID: "plus1h", MentionedAt: base.Add(1 * time.Hour)},
		{UnitID: "plus18h", MentionedAt: base.Add(18 * time.Hour)},
		{UnitID: "plus25h", MentionedAt: base.Add(25 * time.Hour)},
	}

	links := computeTemporalLinks(units, candidates, 24)
	require.Len(t, links, 2)

	byDst := map[string]float64{}
	for _, l := range links {
		byDst[l.DstUnitID] = l.Weight
	}
	assert.NotContains(t, byDst, "plus25h")
	assert.Greater(t, byDst["plus1h"], byDst["plus18h"])
}

func TestComputeSemanticLinksFloorAndCap(t *testing.T) {
	newUnits := []newEmbedding{
		{UnitID: "new-1", Embedding: []float32{1, 0, 0}},
	}
	pool := []ports.SemanticCandidate{
		{UnitID: "new-1", Embedding: []float32{1, 0, 0}}, // itself, skipped
		{UnitID: "same", Embedding: []float32{1, 0, 0}},
		{UnitID: "near", Embedding: []float32{0.9, 0.1, 0}},
		{UnitID: "orthogonal", Embedding: []float32{0, 1, 0}},
	}

	links := computeSemanticLinks(newUnits, pool, 0.75, 5, vectorindex.CosineSimilarity)
	require.Len(t, links, 2)
	assert.Equal(t, "same", links[0].DstUnitID)
	assert.InDelta(t, 1.0, links[0].Weight, 1e-9)
	assert.Equal(t, "near", links[1].DstUnitID)
	for _, l := range links {
		assert.Equal(t, entities.LinkSemantic, l.Kind)
		assert.GreaterOrEqual(t, l.Weight, 0.75)
		assert.LessOrEqual(t, l.Weight, 1.0)
	}

	capped := computeSemanticLinks(newUnits, pool, 0.0, 1, vectorindex.CosineSimilarity)
	assert.Len(t, capped, 1)
}

func TestComputeCausalLinksSkipsDroppedEndpoints(t *testing.T) {
	facts := []entities.ExtractedFact{
		{FactText: "rain", CausalRelations: []entities.CausalRelation{
			{TargetFactIndex: 1, RelationType: entities.CausalCauses, Strength: 0.8},
			{TargetFactIndex: 2, RelationType: entities.CausalEnables, Strength: 0.5},
			{TargetFactIndex: 99, RelationType: entities.CausalCauses, Strength: 1},
		}},
		{FactText: "cancelled game"},
		{FactText: "duplicate fact"},
	}
	// Fact 2 was dropped as a duplicate: no unit id for global index 2.
	ids := map[int]string{0: "u0", 1: "u1"}

	links := computeCausalLinks(facts, ids)
	require.Len(t, links, 1)
	assert.Equal(t, "u0", links[0].SrcUnitID)
	assert.Equal(t, "u1", links[0].DstUnitID)
	assert.Equal(t, entities.LinkCausal, links[0].Kind)
	assert.Equal(t, string(entities.CausalCauses), links[0].Metadata)
	assert.InDelta(t, 0.8, links[0].Weight, 1e-9)
}
