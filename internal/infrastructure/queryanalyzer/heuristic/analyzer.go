// Package heuristic provides the reference QueryAnalyzer: keyword and
// regex driven resolution of relative and absolute date expressions in a
// recall query. It preserves the contract shape of a generative analyzer
// (an optional inclusive date range, nil meaning "none") so one can be
// substituted without changing recall.
package heuristic

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ersonp/hindsight-core/internal/domain/ports"
)

var (
	// "2024-01-01 to 2024-03-31"
	explicitRangeRe = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s+to\s+(\d{4}-\d{2}-\d{2})`)
	// "in March 2020", "during March 2020"
	monthYearRe = regexp.MustCompile(`(?i)\b(?:in|during)\s+(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{4})\b`)
	// "in 2022", "during 2022"
	yearRe = regexp.MustCompile(`(?i)\b(?:in|during)\s+(\d{4})\b`)
	// "since 2023" handled as an open-ended range; "since March 2023" is not matched
	sinceYearRe = regexp.MustCompile(`(?i)\bsince\s+(\d{4})\b`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

// Analyzer implements ports.QueryAnalyzer.
type Analyzer struct{}

// NewAnalyzer creates the heuristic analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze extracts an optional inclusive date range from the query,
// resolving relative expressions against referenceDate. A query with no
// recognizable temporal expression returns nil.
func (a *Analyzer) Analyze(ctx context.Context, query string, referenceDate time.Time) (*ports.TemporalConstraint, error) {
	ref := referenceDate.UTC()
	lower := strings.ToLower(query)

	if m := explicitRangeRe.FindStringSubmatch(query); m != nil {
		start, err1 := time.ParseInLocation("2006-01-02", m[1], time.UTC)
		end, err2 := time.ParseInLocation("2006-01-02", m[2], time.UTC)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("parsing explicit range %q to %q", m[1], m[2])
		}
		if end.Before(start) {
			start, end = end, start
		}
		return &ports.TemporalConstraint{Start: start, End: endOfDay(end)}, nil
	}

	if m := monthYearRe.FindStringSubmatch(query); m != nil {
		month := monthsByName[strings.ToLower(m[1])]
		var year int
		fmt.Sscanf(m[2], "%d", &year)
		start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		return &ports.TemporalConstraint{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}, nil
	}

	if m := yearRe.FindStringSubmatch(query); m != nil {
		var year int
		fmt.Sscanf(m[1], "%d", &year)
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &ports.TemporalConstraint{Start: start, End: start.AddDate(1, 0, 0).Add(-time.Nanosecond)}, nil
	}

	if m := sinceYearRe.FindStringSubmatch(query); m != nil {
		var year int
		fmt.Sscanf(m[1], "%d", &year)
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &ports.TemporalConstraint{Start: start, End: endOfDay(ref)}, nil
	}

	switch {
	case strings.Contains(lower, "yesterday"):
		day := ref.AddDate(0, 0, -1)
		return &ports.TemporalConstraint{Start: startOfDay(day), End: endOfDay(day)}, nil
	case strings.Contains(lower, "today"):
		return &ports.TemporalConstraint{Start: startOfDay(ref), End: endOfDay(ref)}, nil
	case strings.Contains(lower, "last week"):
		return &ports.TemporalConstraint{Start: startOfDay(ref.AddDate(0, 0, -7)), End: endOfDay(ref)}, nil
	case strings.Contains(lower, "last month"):
		return &ports.TemporalConstraint{Start: startOfDay(ref.AddDate(0, -1, 0)), End: endOfDay(ref)}, nil
	case strings.Contains(lower, "last year"):
		return &ports.TemporalConstraint{Start: startOfDay(ref.AddDate(-1, 0, 0)), End: endOfDay(ref)}, nil
	}

	return nil, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, time.UTC)
}
