package entities

import (
	"encoding/json"
	"time"
)

// FactType is the perspective a fact is recorded under.
type FactType string

const (
	// FactTypeWorld is an independent truth, not tied to the agent.
	FactTypeWorld FactType = "world"
	// FactTypeBank is an agent-interaction event (LLM-emitted "assistant" is
	// normalized to this value).
	FactTypeBank FactType = "bank"
	// FactTypeOpinion is a belief the agent formed.
	FactTypeOpinion FactType = "opinion"
)

// NormalizeFactType applies invariant 6: "assistant" becomes "bank", and any
// value that is neither a known FactType nor "assistant" defaults to "world".
func NormalizeFactType(raw string) FactType {
	switch raw {
	case string(FactTypeWorld), string(FactTypeBank), string(FactTypeOpinion):
		return FactType(raw)
	case "assistant":
		return FactTypeBank
	default:
		return FactTypeWorld
	}
}

// FactKind is the temporal nature of a fact used only during extraction; it
// controls whether occurred_start/occurred_end survive into the stored Unit.
type FactKind string

const (
	FactKindConversation FactKind = "conversation"
	FactKindEvent        FactKind = "event"
	FactKindOther        FactKind = "other"
)

// Unit is the primary stored memory object (called "Fact" in prose, "Unit"
// in code to match its storage identifier, unit_id).
type Unit struct {
	ID         string
	BankID     string
	ChunkID    string // empty when the fact has no chunk back-reference
	FactText   string
	FactType   FactType
	Embedding  []float32

	MentionedAt   time.Time  // never zero once stored
	OccurredStart *time.Time
	OccurredEnd   *time.Time

	EmotionalSignificance string
	ReasoningMotivation   string
	PreferencesOpinions   string
	SensoryDetails        string
	Observations          string

	Confidence *float64
}

// ExtractedEntity is an entity mention as reported by the fact extractor,
// prior to resolution against the bank's entity table.
type ExtractedEntity struct {
	Text string
}

// CausalRelationType is the sub-kind carried by a causal FactLink.
type CausalRelationType string

const (
	CausalCauses    CausalRelationType = "causes"
	CausalCausedBy  CausalRelationType = "caused_by"
	CausalEnables   CausalRelationType = "enables"
	CausalPrevents  CausalRelationType = "prevents"
)

func IsValidCausalRelationType(s string) bool {
	switch CausalRelationType(s) {
	case CausalCauses, CausalCausedBy, CausalEnables, CausalPrevents:
		return true
	default:
		return false
	}
}

// CausalRelation is a raw, LLM-reported causal edge. TargetFactIndex starts
// as a chunk-local index and is rebased by the extraction service
// (ExtractFromContents) to a global fact index in batch order, then resolved to a post-dedup unit_id before it is
// persisted as a FactLink. Strength becomes the link weight, clamped to
// [0, 1].
type CausalRelation struct {
	TargetFactIndex int
	RelationType    CausalRelationType
	Strength        float64
}

// ExtractedFact is one fact as it comes out of the extractor, before
// dedup, chunk mapping, temporal offsetting, or entity resolution.
type ExtractedFact struct {
	// ContentIndex is the position of the RetainContent this fact came from,
	// within the batch. ChunkIndex is the position of the chunk in the
	// batch's global chunk sequence (content order, then chunk order). Both are needed to preserve global order and
	// to rebase CausalRelation.TargetFactIndex.
	ContentIndex int
	ChunkIndex   int

	FactText string
	FactType FactType

	MentionedAt   time.Time
	OccurredStart *time.Time
	OccurredEnd   *time.Time

	EmotionalSignificance string
	ReasoningMotivation   string
	PreferencesOpinions   string
	SensoryDetails        string
	Observations          string

	Entities        []ExtractedEntity
	CausalRelations []CausalRelation

	Confidence *float64
}

// RawExtractedFact mirrors the lenient per-field JSON the LLM emits, before
// any validation or normalization (see Fact Extractor algorithm, step 3).
type RawExtractedFact struct {
	FactualCore string `json:"factual_core"`

	FactType string `json:"fact_type"`
	FactKind string `json:"fact_kind"`

	EmotionalSignificance string `json:"emotional_significance"`
	ReasoningMotivation   string `json:"reasoning_motivation"`
	PreferencesOpinions   string `json:"preferences_opinions"`
	SensoryDetails        string `json:"sensory_details"`
	Observations          string `json:"observations"`

	OccurredStart string `json:"occurred_start"`
	OccurredEnd   string `json:"occurred_end"`

	Entities []rawEntity `json:"entities"`

	CausalRelations []rawCausalRelation `json:"causal_relations"`

	Confidence *float64 `json:"confidence"`
}

type rawEntity struct {
	Text string `json:"text"`
}

// UnmarshalJSON accepts either a bare string or {"text": "..."} for an
// entity, matching the extractor's "normalize entities (strings -> {text:
// ...})" step.
func (e *rawEntity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Text = s
		return nil
	}
	type alias rawEntity
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*e = rawEntity(a)
	return nil
}

type rawCausalRelation struct {
	TargetFactIndex int      `json:"target_fact_index"`
	RelationType    string   `json:"relation_type"`
	Strength        *float64 `json:"strength"`
}
