// Package services contains the domain business logic of the retain and
// recall pipelines: fact extraction, embedding, deduplication, entity
// processing, link computation, and the orchestrators that drive them.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ersonp/hindsight-core/internal/domain/chunker"
	"github.com/ersonp/hindsight-core/internal/domain/entities"
	"github.com/ersonp/hindsight-core/internal/domain/ports"
)

// Extraction call parameters. The token cap matches the model's output
// ceiling; overruns are recovered by splitting the chunk, not by raising.
const (
	extractionTemperature = 0.1
	extractionMaxTokens   = 65000
	extractionScope       = "memory_extract_facts"
)

// ChunkMetadata pairs a chunk's text with the number of facts extracted
// from it, in global chunk order across the whole batch.
type ChunkMetadata struct {
	Text      string
	FactCount int
}

// ExtractionService turns raw content into extracted facts via the LLM,
// one structured call per chunk, with parallel fan-out and recursive
// auto-split when a chunk's output exceeds the model's token cap.
type ExtractionService struct {
	llm           ports.LLMClient
	maxChunkChars int
	retries       int
}

// NewExtractionService creates a new extraction service. maxChunkChars
// bounds a single extraction chunk; retries is the attempt budget for
// JSON-validation failures on one chunk.
func NewExtractionService(llm ports.LLMClient, maxChunkChars, retries int) *ExtractionService {
	if maxChunkChars <= 0 {
		maxChunkChars = chunker.MaxCharsExtraction
	}
	if retries <= 0 {
		retries = 2
	}
	return &ExtractionService{llm: llm, maxChunkChars: maxChunkChars, retries: retries}
}

// ExtractFromContents extracts facts from every content item in parallel:
// one task per content, one subtask per chunk. The returned facts are in
// global order (content order, then chunk order, then extraction order),
// with ContentIndex/ChunkIndex populated and causal target indices rebased
// from chunk-local to global fact indices. The second return value is the
// chunk list in global order with per-chunk fact counts.
func (s *ExtractionService) ExtractFromContents(
	ctx context.Context,
	contents []entities.RetainContent,
	agentName string,
	extractOpinions bool,
) ([]entities.ExtractedFact, []ChunkMetadata, error) {
	perContentChunks := make([][]string, len(contents))
	perContentFacts := make([][][]entities.ExtractedFact, len(contents))

	g, gctx := errgroup.WithContext(ctx)
	for i := range contents {
		i := i
		content := contents[i]
		g.Go(func() error {
			chunks := chunker.Split(content.Content, s.maxChunkChars)
			perContentChunks[i] = chunks
			perContentFacts[i] = make([][]entities.ExtractedFact, len(chunks))

			cg, cctx := errgroup.WithContext(gctx)
			for j := range chunks {
				j := j
				chunk := chunks[j]
				cg.Go(func() error {
					facts, err := s.extractWithAutoSplit(cctx, chunk, content.EventDate, content.Context, agentName, extractOpinions)
					if err != nil {
						return err
					}
					perContentFacts[i][j] = facts
					return nil
				})
			}
			return cg.Wait()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Assemble the global order and rebase chunk-local causal targets to
	// global fact indices.
	var allFacts []entities.ExtractedFact
	var chunksMeta []ChunkMetadata
	globalChunk := 0
	for i := range contents {
		for j, chunk := range perContentChunks[i] {
			facts := perContentFacts[i][j]
			base := len(allFacts)
			for _, f := range facts {
				f.ContentIndex = i
				f.ChunkIndex = globalChunk
				for r := range f.CausalRelations {
					f.CausalRelations[r].TargetFactIndex += base
				}
				allFacts = append(allFacts, f)
			}
			chunksMeta = append(chunksMeta, ChunkMetadata{Text: chunk, FactCount: len(facts)})
			globalChunk++
		}
	}
	return allFacts, chunksMeta, nil
}

// extractWithAutoSplit extracts facts from one chunk, recovering from
// output-too-long by splitting the chunk near its midpoint and recursing on
// both halves in parallel. Termination is guaranteed because both halves
// are strictly shorter than the input; an unsplittable chunk yields an
// empty result rather than an error.
func (s *ExtractionService) extractWithAutoSplit(
	ctx context.Context,
	chunk string,
	eventDate time.Time,
	contextText, agentName string,
	extractOpinions bool,
) ([]entities.ExtractedFact, error) {
	facts, err := s.extractFromChunk(ctx, chunk, eventDate, contextText, agentName, extractOpinions)
	if err == nil {
		return facts, nil
	}
	if !errors.Is(err, ports.ErrOutputTooLong) {
		return nil, err
	}

	first, second, ok := splitAtMidpoint(chunk)
	if !ok {
		log.Printf("warning: chunk of %d chars cannot be split further, dropping it", len(chunk))
		return nil, nil
	}
	log.Printf("warning: output too long for %d-char chunk, splitting into %d and %d chars", len(chunk), len(first), len(second))

	var firstFacts, secondFacts []entities.ExtractedFact
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		firstFacts, err = s.extractWithAutoSplit(gctx, first, eventDate, contextText, agentName, extractOpinions)
		return err
	})
	g.Go(func() error {
		var err error
		secondFacts, err = s.extractWithAutoSplit(gctx, second, eventDate, contextText, agentName, extractOpinions)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return append(firstFacts, secondFacts...), nil
}

// splitAtMidpoint splits text at the sentence boundary nearest its
// midpoint, searching within 20% of the midpoint and preferring sentence
// terminators over paragraph breaks. Falls back to a raw midpoint split
// when no boundary is found. ok is false when the text is too short to
// split into two non-empty halves.
func splitAtMidpoint(text string) (first, second string, ok bool) {
	if len(text) < 2 {
		return "", "", false
	}

	mid := len(text) / 2
	searchRange := len(text) / 5
	searchStart := mid - searchRange
	if searchStart < 0 {
		searchStart = 0
	}
	searchEnd := mid + searchRange
	if searchEnd > len(text) {
		searchEnd = len(text)
	}

	split := mid
	window := text[searchStart:searchEnd]
	for _, ending := range []string{". ", "! ", "? ", "\n\n"} {
		best, bestDist := -1, 0
		for from := 0; from < len(window); {
			pos := strings.Index(window[from:], ending)
			if pos == -1 {
				break
			}
			candidate := searchStart + from + pos + len(ending)
			dist := candidate - mid
			if dist < 0 {
				dist = -dist
			}
			if best == -1 || dist < bestDist {
				best, bestDist = candidate, dist
			}
			from += pos + 1
		}
		if best != -1 {
			split = best
			break
		}
	}

	first = strings.TrimSpace(text[:split])
	second = strings.TrimSpace(text[split:])
	if first == "" || second == "" {
		return "", "", false
	}
	return first, second, true
}

// extractFromChunk makes one structured LLM call for a chunk and parses the
// response leniently: per-fact defects are skipped with a warning, never
// failing the whole chunk. JSON-validation failures retry with the same
// prompt up to the configured budget; output-too-long propagates to the
// auto-split caller; transport errors propagate verbatim.
func (s *ExtractionService) extractFromChunk(
	ctx context.Context,
	chunk string,
	eventDate time.Time,
	contextText, agentName string,
	extractOpinions bool,
) ([]entities.ExtractedFact, error) {
	systemPrompt := extractionSystemPrompt
	userPrompt := buildExtractionPrompt(chunk, contextText, agentName, extractOpinions)

	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		raw, err := s.llm.Call(ctx, systemPrompt, userPrompt, ports.CallOptions{
			Temperature:    extractionTemperature,
			MaxTokens:      extractionMaxTokens,
			SkipValidation: true,
			Scope:          extractionScope,
		})
		if err != nil {
			if errors.Is(err, ports.ErrOutputTooLong) {
				return nil, err
			}
			if isValidationError(err) {
				lastErr = err
				log.Printf("warning: extraction attempt %d/%d failed JSON validation: %v", attempt+1, s.retries, err)
				continue
			}
			return nil, err
		}
		return parseExtractionResponse(raw, eventDate), nil
	}
	return nil, fmt.Errorf("extraction failed after %d attempts: %w", s.retries, lastErr)
}

// isValidationError reports whether an LLM error carries the retryable
// JSON-validation signature.
func isValidationError(err error) bool {
	return strings.Contains(err.Error(), "json_validate_failed")
}

// parseExtractionResponse leniently parses the raw LLM JSON. A non-object
// response or a missing facts field yields an empty list, not an error;
// individual malformed facts are skipped.
func parseExtractionResponse(raw string, eventDate time.Time) []entities.ExtractedFact {
	var resp struct {
		Facts []json.RawMessage `json:"facts"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		log.Printf("warning: LLM returned unparseable JSON: %v", err)
		return nil
	}
	if len(resp.Facts) == 0 {
		log.Printf("warning: LLM response has no facts field or an empty list")
		return nil
	}

	var facts []entities.ExtractedFact
	for i, rawFact := range resp.Facts {
		var rf entities.RawExtractedFact
		if err := json.Unmarshal(rawFact, &rf); err != nil {
			log.Printf("warning: skipping malformed fact %d: %v", i, err)
			continue
		}
		fact, ok := normalizeRawFact(rf, i, eventDate)
		if !ok {
			continue
		}
		facts = append(facts, fact)
	}
	return facts
}

// normalizeRawFact applies the per-fact normalization rules: factual_core
// is the only strictly required field; fact_type is normalized with
// "assistant" rewritten to "bank"; only event-kind facts keep their
// occurred range; dimension fields combine into the final fact text.
func normalizeRawFact(rf entities.RawExtractedFact, index int, eventDate time.Time) (entities.ExtractedFact, bool) {
	if rf.FactualCore == "" {
		log.Printf("warning: skipping fact %d: missing factual_core", index)
		return entities.ExtractedFact{}, false
	}

	factType := rf.FactType
	switch factType {
	case "world", "bank", "opinion", "assistant":
	default:
		// Models sometimes swap fact_type and fact_kind; take the swap
		// when it produces a valid type, otherwise fall through to the
		// "world" default.
		switch rf.FactKind {
		case "world", "bank", "opinion", "assistant":
			factType = rf.FactKind
		}
	}

	factKind := entities.FactKind(rf.FactKind)
	switch factKind {
	case entities.FactKindConversation, entities.FactKindEvent, entities.FactKindOther:
	default:
		factKind = entities.FactKindConversation
	}

	fact := entities.ExtractedFact{
		FactText:              combineDimensions(rf),
		FactType:              entities.NormalizeFactType(factType),
		MentionedAt:           eventDate.UTC(),
		EmotionalSignificance: rf.EmotionalSignificance,
		ReasoningMotivation:   rf.ReasoningMotivation,
		PreferencesOpinions:   rf.PreferencesOpinions,
		SensoryDetails:        rf.SensoryDetails,
		Observations:          rf.Observations,
		Confidence:            rf.Confidence,
	}

	if factKind == entities.FactKindEvent {
		start := parseTimestamp(rf.OccurredStart)
		end := parseTimestamp(rf.OccurredEnd)
		if start != nil && end != nil && start.After(*end) {
			log.Printf("warning: fact %d: occurred range inverted, dropping it", index)
		} else {
			fact.OccurredStart = start
			fact.OccurredEnd = end
		}
	}

	for _, e := range rf.Entities {
		if e.Text != "" {
			fact.Entities = append(fact.Entities, entities.ExtractedEntity{Text: e.Text})
		}
	}

	for _, rel := range rf.CausalRelations {
		if !entities.IsValidCausalRelationType(rel.RelationType) {
			log.Printf("warning: fact %d: dropping causal relation with type %q", index, rel.RelationType)
			continue
		}
		strength := 1.0
		if rel.Strength != nil {
			strength = clamp01(*rel.Strength)
		}
		fact.CausalRelations = append(fact.CausalRelations, entities.CausalRelation{
			TargetFactIndex: rel.TargetFactIndex,
			RelationType:    entities.CausalRelationType(rel.RelationType),
			Strength:        strength,
		})
	}

	return fact, true
}

// combineDimensions joins the non-empty dimension fields onto the factual
// core with " - " separators, in stable order: core, emotional, reasoning,
// preferences, sensory, observations.
func combineDimensions(rf entities.RawExtractedFact) string {
	parts := []string{rf.FactualCore}
	for _, dim := range []string{
		rf.EmotionalSignificance,
		rf.ReasoningMotivation,
		rf.PreferencesOpinions,
		rf.SensoryDetails,
		rf.Observations,
	} {
		if dim != "" {
			parts = append(parts, dim)
		}
	}
	return strings.Join(parts, " - ")
}

// timestampLayouts are tried in order when parsing LLM-emitted timestamps.
// Layouts without an offset are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			u := t.UTC()
			return &u
		}
	}
	log.Printf("warning: unparseable timestamp %q, ignoring it", s)
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// sortedKeys returns map keys in ascending order, for deterministic
// iteration.
func sortedKeys(m map[string]time.Time) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
