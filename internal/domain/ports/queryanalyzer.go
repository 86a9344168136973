package ports

import (
	"context"
	"time"
)

// TemporalConstraint is an absolute date range extracted from a natural
// language query, inclusive on both ends.
type TemporalConstraint struct {
	Start time.Time
	End   time.Time
}

// QueryAnalyzer extracts an optional temporal constraint from a recall
// query. Recall uses this to narrow its candidate window; retain never
// calls it. A reference implementation is a heuristic keyword/regex
// resolver (see internal/infrastructure/queryanalyzer/heuristic); a
// production deployment may substitute a generative model without
// changing this contract.
type QueryAnalyzer interface {
	Analyze(ctx context.Context, query string, referenceDate time.Time) (*TemporalConstraint, error)
}
