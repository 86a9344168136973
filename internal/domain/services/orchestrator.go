package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ersonp/hindsight-core/internal/domain/entities"
	"github.com/ersonp/hindsight-core/internal/domain/ports"
	"github.com/ersonp/hindsight-core/internal/infrastructure/vectorindex"
)

// ErrContradictoryOptions is returned before any LLM call when the caller
// disables opinion extraction while forcing every fact to the opinion type.
var ErrContradictoryOptions = errors.New("retain: extract_opinions=false contradicts fact_type_override=opinion")

// temporalOffsetStep is added per fact index within one content item, so
// extraction order survives as a strict ordering of temporal fields.
const temporalOffsetStep = 10 * time.Second

// Background task fan-out parameters.
const (
	topEntitiesForObservations = 5
	minFactsForObservations    = 5
)

// Connection acquisition retry policy.
const (
	beginRetainAttempts = 3
	beginRetainBackoff  = 100 * time.Millisecond
)

// Tuning carries the process-wide retain parameters, injected at
// construction so no configuration is read mid-pipeline.
type Tuning struct {
	TimeWindowHours    float64
	SemanticFloor      float64
	SemanticTopK       int
	MaxExtractionChars int
	ExtractionRetries  int
}

// DefaultTuning returns conservative defaults for every threshold.
func DefaultTuning() Tuning {
	return Tuning{
		TimeWindowHours:    24,
		SemanticFloor:      0.75,
		SemanticTopK:       5,
		MaxExtractionChars: 3000,
		ExtractionRetries:  2,
	}
}

// RetainContentInput is one caller-supplied content item for a batch.
// EventDate nil means "now".
type RetainContentInput struct {
	Content   string
	Context   string
	EventDate *time.Time
	Metadata  map[string]string
}

// RetainOptions are the batch-level knobs shared by every content item.
// The zero value means: no document grouping, replace-on-repeat document
// semantics, no type override, no forced confidence.
type RetainOptions struct {
	// DocumentID groups the batch's facts under a bank-scoped document.
	// Empty means no explicit document; one is generated when chunks are
	// produced.
	DocumentID string
	// Append adds this batch's content to an existing document instead
	// of replacing it (the replace path cascade-deletes the document's
	// prior chunks and facts).
	Append bool
	// FactTypeOverride rewrites every extracted fact's type. Must be
	// empty or one of world/bank/opinion.
	FactTypeOverride string
	// ConfidenceScore, when set, is applied to every fact in the batch.
	ConfidenceScore *float64
	// ExtractOpinions overrides the extraction mode. When nil the mode
	// is derived from FactTypeOverride: an opinion override extracts
	// opinions only.
	ExtractOpinions *bool
	// BankName seeds the bank profile's name when this batch creates
	// the bank lazily. An existing bank keeps its stored name.
	BankName string
}

// RetainService drives the retain pipeline: extraction fan-out, batched
// embedding, then one database transaction covering document tracking,
// chunk persistence, dedup, fact insertion, entity resolution, and link
// construction, with background tasks enqueued only after commit.
type RetainService struct {
	store      ports.Store
	extraction *ExtractionService
	embedding  *EmbeddingService
	checker    ports.DuplicateChecker
	resolver   ports.EntityResolver
	tasks      ports.TaskBackend
	tuning     Tuning
}

// NewRetainService creates a new retain orchestrator. checker, resolver,
// and tasks may be nil; the corresponding pipeline stage then degrades to
// a no-op (no dedup, no entities, no background work).
func NewRetainService(
	store ports.Store,
	llm ports.LLMClient,
	embedder ports.Embedder,
	checker ports.DuplicateChecker,
	resolver ports.EntityResolver,
	tasks ports.TaskBackend,
	tuning Tuning,
) *RetainService {
	if tuning.TimeWindowHours <= 0 {
		tuning.TimeWindowHours = DefaultTuning().TimeWindowHours
	}
	if tuning.SemanticFloor <= 0 {
		tuning.SemanticFloor = DefaultTuning().SemanticFloor
	}
	if tuning.SemanticTopK <= 0 {
		tuning.SemanticTopK = DefaultTuning().SemanticTopK
	}
	return &RetainService{
		store:      store,
		extraction: NewExtractionService(llm, tuning.MaxExtractionChars, tuning.ExtractionRetries),
		embedding:  NewEmbeddingService(embedder),
		checker:    checker,
		resolver:   resolver,
		tasks:      tasks,
		tuning:     tuning,
	}
}

// Retain ingests a single content item; a thin wrapper over RetainBatch.
func (s *RetainService) Retain(ctx context.Context, bankID string, input RetainContentInput, opts RetainOptions) ([]string, error) {
	results, err := s.RetainBatch(ctx, bankID, []RetainContentInput{input}, opts)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// RetainBatch ingests a batch of content items and returns one unit-id
// list per input item, in input order. The whole batch persists under one
// transaction; on any error nothing is committed and no background tasks
// are submitted.
func (s *RetainService) RetainBatch(ctx context.Context, bankID string, inputs []RetainContentInput, opts RetainOptions) ([][]string, error) {
	extractOpinions, err := resolveExtractionMode(opts)
	if err != nil {
		return nil, err
	}
	if opts.FactTypeOverride != "" && entities.NormalizeFactType(opts.FactTypeOverride) != entities.FactType(opts.FactTypeOverride) {
		return nil, fmt.Errorf("retain: invalid fact_type_override %q", opts.FactTypeOverride)
	}

	if len(inputs) == 0 {
		return [][]string{}, nil
	}

	agentName := s.bankName(ctx, bankID, opts.BankName)

	contents := make([]entities.RetainContent, len(inputs))
	for i, in := range inputs {
		eventDate := time.Now().UTC()
		if in.EventDate != nil {
			eventDate = in.EventDate.UTC()
		}
		contents[i] = entities.RetainContent{
			Content:   in.Content,
			Context:   in.Context,
			EventDate: eventDate,
			Metadata:  in.Metadata,
		}
	}

	extracted, chunksMeta, err := s.extraction.ExtractFromContents(ctx, contents, agentName, extractOpinions)
	if err != nil {
		return nil, fmt.Errorf("extracting facts: %w", err)
	}
	if len(extracted) == 0 {
		return emptyResults(len(contents)), nil
	}

	if opts.FactTypeOverride != "" {
		for i := range extracted {
			extracted[i].FactType = entities.FactType(opts.FactTypeOverride)
		}
	}
	if opts.ConfidenceScore != nil {
		for i := range extracted {
			extracted[i].Confidence = opts.ConfidenceScore
		}
	}

	embeddings, err := s.embedding.EmbedFacts(ctx, extracted)
	if err != nil {
		return nil, err
	}

	rtx, err := s.beginRetainWithRetry(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := rtx.Rollback(ctx); rbErr != nil {
				log.Printf("warning: failed to rollback retain transaction: %v", rbErr)
			}
		}
	}()

	if err := rtx.EnsureBankExists(ctx, bankID, agentName); err != nil {
		return nil, err
	}

	documentID := opts.DocumentID
	if documentID != "" || len(chunksMeta) > 0 {
		combined := make([]string, len(contents))
		for i, c := range contents {
			combined[i] = c.Content
		}
		documentID, err = rtx.HandleDocumentTracking(ctx, bankID, documentID, strings.Join(combined, "\n"), !opts.Append)
		if err != nil {
			return nil, fmt.Errorf("tracking document: %w", err)
		}
	}

	var chunkIDs []string
	if documentID != "" && len(chunksMeta) > 0 {
		chunkTexts := make([]string, len(chunksMeta))
		for i, c := range chunksMeta {
			chunkTexts[i] = c.Text
		}
		chunkIDs, err = rtx.StoreChunksBatch(ctx, bankID, documentID, chunkTexts)
		if err != nil {
			return nil, fmt.Errorf("storing chunks: %w", err)
		}
	}

	units := buildUnits(bankID, extracted, embeddings, chunkIDs)

	flags := CheckDuplicatesBatch(ctx, s.checker, bankID, units)
	keptUnits := FilterDuplicates(units, flags)
	keptFacts := filterFacts(extracted, flags)

	if len(keptUnits) == 0 {
		if err := rtx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("committing retain transaction: %w", err)
		}
		committed = true
		return emptyResults(len(contents)), nil
	}

	unitIDs, err := rtx.InsertFactsBatch(ctx, keptUnits)
	if err != nil {
		return nil, fmt.Errorf("inserting facts: %w", err)
	}

	entityLinks := ProcessEntitiesBatch(ctx, s.resolver, rtx, bankID, unitIDs, keptFacts)

	newUnits := make(map[string]time.Time, len(unitIDs))
	for i, id := range unitIDs {
		newUnits[id] = keptUnits[i].MentionedAt
	}
	if start, end, ok := computeTemporalQueryBounds(newUnits, s.tuning.TimeWindowHours); ok {
		candidates, err := rtx.TemporalCandidatesInWindow(ctx, bankID, start, end)
		if err != nil {
			return nil, fmt.Errorf("scanning temporal candidates: %w", err)
		}
		temporalLinks := computeTemporalLinks(newUnits, candidates, s.tuning.TimeWindowHours)
		if err := rtx.InsertFactLinks(ctx, temporalLinks); err != nil {
			return nil, fmt.Errorf("inserting temporal links: %w", err)
		}
	}

	pool, err := rtx.SemanticCandidates(ctx, bankID)
	if err != nil {
		return nil, fmt.Errorf("loading embedding pool: %w", err)
	}
	newEmbeddings := make([]newEmbedding, len(unitIDs))
	for i, id := range unitIDs {
		newEmbeddings[i] = newEmbedding{UnitID: id, Embedding: keptUnits[i].Embedding}
	}
	semanticLinks := computeSemanticLinks(newEmbeddings, pool, s.tuning.SemanticFloor, s.tuning.SemanticTopK, vectorindex.CosineSimilarity)
	if err := rtx.InsertFactLinks(ctx, semanticLinks); err != nil {
		return nil, fmt.Errorf("inserting semantic links: %w", err)
	}

	if err := rtx.InsertEntityLinks(ctx, entityLinks); err != nil {
		return nil, fmt.Errorf("inserting entity links: %w", err)
	}

	causalLinks := computeCausalLinks(extracted, unitIDsByGlobalIndex(flags, unitIDs))
	if err := rtx.InsertFactLinks(ctx, causalLinks); err != nil {
		return nil, fmt.Errorf("inserting causal links: %w", err)
	}

	results := mapResultsToContents(len(contents), extracted, flags, unitIDs)

	if err := rtx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing retain transaction: %w", err)
	}
	committed = true

	s.triggerBackgroundTasks(ctx, bankID, unitIDs, keptFacts, entityLinks)

	return results, nil
}

// resolveExtractionMode derives the extraction mode from the options and
// rejects the contradictory combination before any LLM call.
func resolveExtractionMode(opts RetainOptions) (bool, error) {
	derived := opts.FactTypeOverride == string(entities.FactTypeOpinion)
	if opts.ExtractOpinions == nil {
		return derived, nil
	}
	if !*opts.ExtractOpinions && derived {
		return false, ErrContradictoryOptions
	}
	return *opts.ExtractOpinions, nil
}

// bankName loads the bank's profile name for the extraction prompt. A
// bank that does not exist yet (it is created lazily inside the
// transaction) takes the caller-seeded name, falling back to the bank id.
func (s *RetainService) bankName(ctx context.Context, bankID, seedName string) string {
	profile, err := s.store.GetBankProfile(ctx, bankID)
	if err != nil {
		if !errors.Is(err, ports.ErrBankNotFound) {
			log.Printf("warning: loading bank profile for %s: %v", bankID, err)
		}
		if seedName != "" {
			return seedName
		}
		return bankID
	}
	return profile.Name
}

// beginRetainWithRetry acquires a transaction with bounded retry and
// linear backoff on transient acquisition failures.
func (s *RetainService) beginRetainWithRetry(ctx context.Context) (ports.RetainStore, error) {
	var lastErr error
	for attempt := 0; attempt < beginRetainAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * beginRetainBackoff):
			}
		}
		rtx, err := s.store.BeginRetain(ctx)
		if err == nil {
			return rtx, nil
		}
		lastErr = err
		log.Printf("warning: acquiring retain transaction (attempt %d/%d): %v", attempt+1, beginRetainAttempts, err)
	}
	return nil, fmt.Errorf("acquiring retain transaction: %w", lastErr)
}

// buildUnits converts extracted facts plus their embeddings into storable
// units, resolving chunk back-references and applying the per-content
// temporal offset (fact i within its content shifts all temporal fields by
// i*10s, preserving extraction order in the stored timestamps).
func buildUnits(bankID string, facts []entities.ExtractedFact, embeddings [][]float32, chunkIDs []string) []entities.Unit {
	units := make([]entities.Unit, len(facts))
	perContentIndex := make(map[int]int)
	for i, f := range facts {
		idx := perContentIndex[f.ContentIndex]
		perContentIndex[f.ContentIndex]++
		offset := time.Duration(idx) * temporalOffsetStep

		var chunkID string
		if f.ChunkIndex >= 0 && f.ChunkIndex < len(chunkIDs) {
			chunkID = chunkIDs[f.ChunkIndex]
		}

		units[i] = entities.Unit{
			BankID:                bankID,
			ChunkID:               chunkID,
			FactText:              f.FactText,
			FactType:              f.FactType,
			Embedding:             embeddings[i],
			MentionedAt:           f.MentionedAt.Add(offset),
			OccurredStart:         offsetTime(f.OccurredStart, offset),
			OccurredEnd:           offsetTime(f.OccurredEnd, offset),
			EmotionalSignificance: f.EmotionalSignificance,
			ReasoningMotivation:   f.ReasoningMotivation,
			PreferencesOpinions:   f.PreferencesOpinions,
			SensoryDetails:        f.SensoryDetails,
			Observations:          f.Observations,
			Confidence:            f.Confidence,
		}
	}
	return units
}

func offsetTime(t *time.Time, offset time.Duration) *time.Time {
	if t == nil {
		return nil
	}
	shifted := t.Add(offset)
	return &shifted
}

// filterFacts keeps the extracted facts whose duplicate flag is false,
// preserving order, so they stay parallel to the inserted units.
func filterFacts(facts []entities.ExtractedFact, flags []bool) []entities.ExtractedFact {
	kept := make([]entities.ExtractedFact, 0, len(facts))
	for i, f := range facts {
		if !flags[i] {
			kept = append(kept, f)
		}
	}
	return kept
}

// unitIDsByGlobalIndex maps each non-duplicate fact's global extraction
// index to the unit id it was inserted under.
func unitIDsByGlobalIndex(flags []bool, unitIDs []string) map[int]string {
	m := make(map[int]string, len(unitIDs))
	next := 0
	for i, dup := range flags {
		if !dup {
			m[i] = unitIDs[next]
			next++
		}
	}
	return m
}

// mapResultsToContents maps inserted unit ids back to per-content lists:
// facts are walked in content order and each non-duplicate consumes the
// next id, so the output always matches input order.
func mapResultsToContents(contentCount int, facts []entities.ExtractedFact, flags []bool, unitIDs []string) [][]string {
	factsByContent := make([][]int, contentCount)
	for i, f := range facts {
		factsByContent[f.ContentIndex] = append(factsByContent[f.ContentIndex], i)
	}

	results := make([][]string, contentCount)
	next := 0
	for content := 0; content < contentCount; content++ {
		ids := []string{}
		for _, factIdx := range factsByContent[content] {
			if !flags[factIdx] {
				ids = append(ids, unitIDs[next])
				next++
			}
		}
		results[content] = ids
	}
	return results
}

func emptyResults(n int) [][]string {
	results := make([][]string, n)
	for i := range results {
		results[i] = []string{}
	}
	return results
}

// triggerBackgroundTasks enqueues post-commit maintenance work. Failures
// are logged and invisible to the caller; committed units are never
// rescinded.
func (s *RetainService) triggerBackgroundTasks(ctx context.Context, bankID string, unitIDs []string, facts []entities.ExtractedFact, entityLinks []entities.EntityLink) {
	if s.tasks == nil {
		return
	}

	factEntities := make([][]string, len(facts))
	anyEntities := false
	for i, f := range facts {
		names := make([]string, 0, len(f.Entities))
		for _, e := range f.Entities {
			names = append(names, e.Text)
		}
		factEntities[i] = names
		if len(names) > 0 {
			anyEntities = true
		}
	}

	if anyEntities {
		texts := make([]string, len(facts))
		for i, f := range facts {
			texts[i] = f.FactText
		}
		err := s.tasks.SubmitTask(ctx, ports.Task{
			Type:   ports.TaskReinforceOpinion,
			BankID: bankID,
			Payload: map[string]any{
				"created_unit_ids": unitIDs,
				"unit_texts":       texts,
				"unit_entities":    factEntities,
			},
		})
		if err != nil {
			log.Printf("warning: submitting %s task: %v", ports.TaskReinforceOpinion, err)
		}
	}

	if len(entityLinks) > 0 {
		seen := make(map[string]struct{})
		var entityIDs []string
		for _, link := range entityLinks {
			if _, ok := seen[link.EntityID]; ok {
				continue
			}
			seen[link.EntityID] = struct{}{}
			entityIDs = append(entityIDs, link.EntityID)
			if len(entityIDs) == topEntitiesForObservations {
				break
			}
		}
		err := s.tasks.SubmitTask(ctx, ports.Task{
			Type:   ports.TaskRegenerateObservations,
			BankID: bankID,
			Payload: map[string]any{
				"entity_ids": entityIDs,
				"min_facts":  minFactsForObservations,
			},
		})
		if err != nil {
			log.Printf("warning: submitting %s task: %v", ports.TaskRegenerateObservations, err)
		}
	}
}
