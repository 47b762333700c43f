package retrieval

import (
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/scoring"
)

// Query is one retrieval request.
type Query struct {
	Text string
	// Filters overrides implicit filters derived from Text when set.
	Filters *core.Filters
	// Limit caps the result count. Zero uses the configured default.
	Limit int
	// MinSimilarity overrides the adaptive threshold when set.
	MinSimilarity *float64
}

// Confidence is a coarse relevance band.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Hit is a ranked candidate enriched for presentation.
type Hit struct {
	scoring.ScoredCandidate

	Confidence  Confidence
	Explanation string
	DateRange   string
	// KeyPhrases are the sentences of the segment stating quantified claims.
	KeyPhrases []string
}

// Coverage summarizes where the hits of a result come from.
type Coverage struct {
	Sources   int
	Span      core.DateRange
	TopSkills []string
	Summary   string
}

// Result is the outcome of a retrieval.
type Result struct {
	RequestID  string
	Candidates []*Hit
	Threshold  float64
	Path       scoring.Path
	Coverage   Coverage
	// Guidance is set when Candidates is empty.
	Guidance   string
	Expansions []string
	Filters    core.Filters
	// ImplicitFilters reports whether Filters were derived from the query text.
	ImplicitFilters bool
}

// IsEmpty reports whether no candidate survived.
func (r *Result) IsEmpty() bool {
	return len(r.Candidates) == 0
}
