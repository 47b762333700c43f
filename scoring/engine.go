// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package scoring

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/vitae/config"
	"github.com/poiesic/vitae/core"
)

// Path names the store query a candidate came from.
type Path string

const (
	PathVector  Path = "vector"
	PathLexical Path = "lexical"
)

// Candidate is a segment returned by a store, before scoring.
type Candidate struct {
	Segment    *core.EvidenceSegment
	Similarity float64
	Path       Path
}

// SearchContext carries the per-query inputs of scoring.
type SearchContext struct {
	// Now anchors recency. The engine clock is used when zero.
	Now     time.Time
	Filters core.Filters
}

// ScoredCandidate is a candidate with every score component exposed.
type ScoredCandidate struct {
	Segment       *core.EvidenceSegment
	Similarity    float64
	Recency       float64
	MetadataBoost float64
	Final         float64
	Path          Path
	MatchedSkills []string
	MatchedTags   []string
	// MatchedRange is set when the segment tenure overlaps the filter date range.
	MatchedRange bool
}

// Engine scores candidates under a fixed set of weights.
// It is stateless and safe for concurrent use.
type Engine struct {
	weights config.Weights
	clock   func() time.Time
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used when a SearchContext has no Now.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine returns an Engine using weights.
func NewEngine(weights config.Weights, opts ...Option) (*Engine, error) {
	if weights.Similarity < 0 || weights.Recency < 0 || weights.Metadata < 0 || weights.Sum() <= 0 {
		return nil, fmt.Errorf("%w: component weights must be non-negative with a positive sum", ErrInvalidWeights)
	}
	if weights.RecencyWindowDays <= 0 {
		return nil, fmt.Errorf("%w: recency window must be positive", ErrInvalidWeights)
	}

	e := &Engine{
		weights: weights,
		clock:   time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "scoring")
	return e, nil
}

// Weights returns the weights in use.
func (e *Engine) Weights() config.Weights {
	return e.weights
}

// Score computes every component of c. The result depends only on c, sc and
// the engine weights.
func (e *Engine) Score(c Candidate, sc SearchContext) ScoredCandidate {
	now := sc.Now
	if now.IsZero() {
		now = e.clock()
	}

	out := ScoredCandidate{
		Segment:    c.Segment,
		Similarity: ClampUnit(c.Similarity),
		Path:       c.Path,
	}
	if c.Segment != nil {
		out.Recency = Recency(c.Segment.End, now, e.weights.RecencyWindow(), e.weights.OpenEndedRecency)
		out.MatchedSkills = overlap(sc.Filters.Skills, c.Segment.Skills)
		out.MatchedTags = overlap(sc.Filters.Tags, c.Segment.Topics)
		out.MatchedRange = sc.Filters.InRange(c.Segment)
	}

	matches := float64(len(out.MatchedSkills) + len(out.MatchedTags))
	if out.MatchedRange {
		matches++
	}
	out.MetadataBoost = math.Min(matches*e.weights.BoostPerMatch, e.weights.MaxBoost)
	out.Final = out.Similarity*e.weights.Similarity +
		out.Recency*e.weights.Recency +
		out.MetadataBoost*e.weights.Metadata
	return out
}

// Rank scores every candidate and orders them by final score, then
// similarity, then recency, then segment ID.
func (e *Engine) Rank(cands []Candidate, sc SearchContext) []ScoredCandidate {
	if sc.Now.IsZero() {
		sc.Now = e.clock()
	}

	e.logger.Debug("ranking candidates",
		"candidates", len(cands),
		"weightSum", e.weights.Sum(),
		"similarity", e.weights.Similarity,
		"recency", e.weights.Recency,
		"metadata", e.weights.Metadata)

	scored := make([]ScoredCandidate, 0, len(cands))
	for _, c := range cands {
		scored = append(scored, e.Score(c, sc))
	}

	slices.SortStableFunc(scored, func(a, b ScoredCandidate) int {
		if c := cmp.Compare(b.Final, a.Final); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Recency, a.Recency); c != 0 {
			return c
		}
		return cmp.Compare(segmentID(a.Segment), segmentID(b.Segment))
	})
	return scored
}

// Recency returns 1 for an entry that ended now or later, decaying linearly to
// 0 once window has passed since end. An open entry (zero end) scores openValue.
func Recency(end, now time.Time, window time.Duration, openValue float64) float64 {
	if end.IsZero() {
		return openValue
	}
	if window <= 0 || !end.Before(now) {
		return 1
	}
	age := now.Sub(end)
	return math.Max(0, 1-float64(age)/float64(window))
}

// ClampUnit bounds v to [0, 1], mapping NaN to 0.
func ClampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// overlap returns the wanted values present in have, ignoring case. Each
// value of have is reported once.
func overlap(wanted, have []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range wanted {
		for _, h := range have {
			key := strings.ToLower(strings.TrimSpace(h))
			if !seen[key] && strings.EqualFold(strings.TrimSpace(w), strings.TrimSpace(h)) {
				seen[key] = true
				out = append(out, h)
				break
			}
		}
	}
	return out
}

func segmentID(s *core.EvidenceSegment) core.ID {
	if s == nil {
		return 0
	}
	return s.ID
}
