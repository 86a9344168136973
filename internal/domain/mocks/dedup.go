package mocks

import "context"

// DuplicateChecker is a mock implementation of ports.DuplicateChecker.
// Duplicates maps fact text to a flag; texts not present are not
// duplicates. Err fails every check instead.
type DuplicateChecker struct {
	Duplicates map[string]bool
	Err        error
}

// IsDuplicate implements ports.DuplicateChecker.
func (m *DuplicateChecker) IsDuplicate(ctx context.Context, bankID, factText string, embedding []float32) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return m.Duplicates[factText], nil
}
