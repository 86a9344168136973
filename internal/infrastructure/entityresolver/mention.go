// Package entityresolver provides the reference EntityResolver: a
// mention-based resolver that normalizes extracted names, filters generic
// relations and common nouns, and find-or-creates bank-scoped entity rows
// inside the caller's transaction. A production deployment may substitute
// a smarter resolver without changing the port.
package entityresolver

import (
	"context"
	"strings"
	"unicode"

	"github.com/ersonp/hindsight-core/internal/domain/entities"
	"github.com/ersonp/hindsight-core/internal/domain/ports"
)

// Mention confidence levels: names literally present in the fact text
// resolve with higher confidence than names the extractor inferred.
const (
	confidenceMentioned = 0.9
	confidenceInferred  = 0.7
)

// genericNames are relation words and vague references the extractor is
// told not to emit but occasionally does; they never become entities.
var genericNames = map[string]struct{}{
	"mom": {}, "dad": {}, "mother": {}, "father": {}, "parents": {},
	"brother": {}, "sister": {}, "friend": {}, "friends": {}, "family": {},
	"boss": {}, "colleague": {}, "coworker": {}, "neighbor": {},
	"someone": {}, "somebody": {}, "guy": {}, "girl": {}, "person": {},
	"user": {}, "assistant": {}, "he": {}, "she": {}, "they": {},
	"him": {}, "her": {}, "them": {}, "it": {},
}

// MentionResolver implements ports.EntityResolver.
type MentionResolver struct{}

// NewMentionResolver creates the reference resolver.
func NewMentionResolver() *MentionResolver {
	return &MentionResolver{}
}

// Resolve filters and normalizes the extracted names, creates missing
// entity rows through the transaction-scoped bank handle, and returns one
// resolution per surviving name.
func (r *MentionResolver) Resolve(ctx context.Context, bank ports.EntityBank, bankID, factText string, mentionedNames []string) ([]ports.EntityResolution, error) {
	seen := make(map[string]struct{}, len(mentionedNames))
	var resolutions []ports.EntityResolution

	for _, raw := range mentionedNames {
		name := entities.NormalizeName(raw)
		if !isProperName(name) {
			continue
		}
		key := strings.ToLower(name)
		if _, done := seen[key]; done {
			continue
		}
		seen[key] = struct{}{}

		entityID, err := bank.FindOrCreateEntity(ctx, bankID, name)
		if err != nil {
			return nil, err
		}

		confidence := confidenceInferred
		if strings.Contains(factText, name) {
			confidence = confidenceMentioned
		}
		resolutions = append(resolutions, ports.EntityResolution{EntityID: entityID, Confidence: confidence})
	}
	return resolutions, nil
}

// isProperName reports whether a normalized name looks like a specific
// named referent: non-empty, not a generic relation word, and carrying at
// least one uppercase letter or digit.
func isProperName(name string) bool {
	if name == "" {
		return false
	}
	if _, generic := genericNames[strings.ToLower(name)]; generic {
		return false
	}
	for _, r := range name {
		if unicode.IsUpper(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
