package mocks

import (
	"context"

	"github.com/ersonp/hindsight-core/internal/domain/ports"
)

// EntityResolver is a mock implementation of ports.EntityResolver. The
// zero value find-or-creates one entity per mentioned name at full
// confidence; Err fails every call instead.
type EntityResolver struct {
	Err error
}

// Resolve implements ports.EntityResolver.
func (m *EntityResolver) Resolve(ctx context.Context, bank ports.EntityBank, bankID, factText string, mentionedNames []string) ([]ports.EntityResolution, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []ports.EntityResolution
	for _, name := range mentionedNames {
		id, err := bank.FindOrCreateEntity(ctx, bankID, name)
		if err != nil {
			return nil, err
		}
		out = append(out, ports.EntityResolution{EntityID: id, Confidence: 1})
	}
	return out, nil
}
