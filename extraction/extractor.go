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


package extraction

import (
	"context"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/vitae/config"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/metrics"
	"github.com/poiesic/vitae/tokens"
)

// maxSummaryRunes bounds the summary stored with each segment.
const maxSummaryRunes = 160

// Reasons reported when a draft segment does not survive extraction.
const (
	DropUndersized = "undersized"
	DropDuplicate  = "duplicate"
	DropMerged     = "merged"
)

// Extractor builds evidence segments from source documents.
// It holds no per-run state and is safe for concurrent use.
type Extractor struct {
	budget   *tokens.Budget
	splitter *tokens.Splitter
	limits   config.Budget
	strategy EvidenceStrategy
	metrics  *metrics.Metrics
	poolSize int
	logger   *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithStrategy replaces the default PatternStrategy.
func WithStrategy(strategy EvidenceStrategy) Option {
	return func(e *Extractor) error {
		if strategy == nil {
			return ErrStrategyRequired
		}
		e.strategy = strategy
		return nil
	}
}

// WithMetrics records extracted and dropped segments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Extractor) error {
		e.metrics = m
		return nil
	}
}

// WithPoolSize sets the number of documents ExtractBatch processes at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(e *Extractor) error {
		e.poolSize = max(size, 1)
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewExtractor creates an Extractor measuring segments against budget.
func NewExtractor(budget *tokens.Budget, opts ...Option) (*Extractor, error) {
	if budget == nil {
		return nil, ErrBudgetRequired
	}
	splitter, err := tokens.NewSplitter(budget)
	if err != nil {
		return nil, err
	}

	e := &Extractor{
		budget:   budget,
		splitter: splitter,
		limits:   budget.Limits(),
		strategy: PatternStrategy{},
		poolSize: max(runtime.NumCPU()/2, 1),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "extractor")
	return e, nil
}

// Limits returns the token bounds every emitted segment satisfies.
func (e *Extractor) Limits() config.Budget {
	return e.limits
}

// candidate is a segment under construction. parts[0] is primary content;
// later parts come from enhancement or merging.
type candidate struct {
	kind      core.SegmentKind
	parts     []string
	truncated bool
}

// Extract splits doc into evidence segments. Segments whose fingerprint is
// already claimed in run are discarded. Every returned segment has a token
// count between the budget's TargetMin and HardCap.
func (e *Extractor) Extract(ctx context.Context, run *Run, doc *core.SourceDocument) ([]*core.EvidenceSegment, error) {
	if run == nil {
		return nil, ErrRunRequired
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	header := Header(doc)
	spans := e.splitter.Split(doc.Body)
	drafts := e.strategy.Plan(doc, spans)

	assigned := make(map[string]bool)
	var cands []*candidate
	for _, d := range drafts {
		for _, span := range d.Spans {
			assigned[span] = true
		}
		for _, chunk := range e.splitter.SplitIntoChunks(strings.Join(d.Spans, " ")) {
			cands = append(cands, &candidate{kind: d.Kind, parts: []string{chunk.Text}, truncated: chunk.Truncated})
		}
	}

	var unused []string
	for _, span := range spans {
		if !assigned[span] {
			unused = append(unused, span)
		}
	}

	for _, c := range cands {
		if e.count(header, c.parts) < e.limits.TargetMin {
			unused = e.enhance(doc, header, c, unused)
		}
	}

	kept := e.merge(header, cands)

	segments := make([]*core.EvidenceSegment, 0, len(kept))
	for _, c := range kept {
		capped := e.budget.EnforceHardCap(render(header, c.parts))
		if capped.Tokens < e.limits.TargetMin {
			e.dropped(DropUndersized)
			continue
		}
		fingerprint := core.Fingerprint(capped.Text)
		if !run.Claim(fingerprint) {
			e.dropped(DropDuplicate)
			continue
		}
		segments = append(segments, e.newSegment(doc, c, capped, fingerprint))
		e.metrics.SegmentExtracted(string(c.kind))
	}

	e.logger.Debug("extracted document",
		"run", run.ID(),
		"document", doc.Key(),
		"drafts", len(cands),
		"segments", len(segments))
	return segments, nil
}

// enhance grows an undersized candidate, first with body spans no kind claimed
// and then with context sentences, until it reaches TargetMin. Nothing is
// added that would push it past TargetMax. The spans still unused are returned.
func (e *Extractor) enhance(doc *core.SourceDocument, header string, c *candidate, unused []string) []string {
	var rest []string
	for _, span := range unused {
		if e.count(header, c.parts) < e.limits.TargetMin && e.fits(header, c.parts, span, e.limits.TargetMax) {
			c.parts = append(c.parts, span)
			continue
		}
		rest = append(rest, span)
	}

	for _, sentence := range contextSentences(doc, c.kind) {
		if e.count(header, c.parts) >= e.limits.TargetMin {
			break
		}
		if strings.Contains(render(header, c.parts), sentence) {
			continue
		}
		if e.fits(header, c.parts, sentence, e.limits.TargetMax) {
			c.parts = append(c.parts, sentence)
		}
	}
	return rest
}

// merge folds each undersized candidate into the largest sibling that can hold
// it without passing HardCap. Candidates that fit nowhere are dropped. When no
// candidate reached TargetMin the largest one serves as the merge target.
func (e *Extractor) merge(header string, cands []*candidate) []*candidate {
	var kept, small []*candidate
	for _, c := range cands {
		if e.count(header, c.parts) >= e.limits.TargetMin {
			kept = append(kept, c)
		} else {
			small = append(small, c)
		}
	}
	if len(small) == 0 {
		return kept
	}

	bySize := func(list []*candidate) {
		slices.SortStableFunc(list, func(a, b *candidate) int {
			return e.count(header, b.parts) - e.count(header, a.parts)
		})
	}
	if len(kept) == 0 {
		bySize(small)
		kept, small = small[:1], small[1:]
	}

	for _, c := range small {
		targets := slices.Clone(kept)
		bySize(targets)

		merged := false
		for _, target := range targets {
			extra := missingParts(render(header, target.parts), c.parts)
			parts := append(slices.Clone(target.parts), extra...)
			if e.count(header, parts) <= e.limits.HardCap {
				target.parts = parts
				target.truncated = target.truncated || c.truncated
				merged = true
				break
			}
		}
		if merged {
			e.dropped(DropMerged)
		} else {
			e.dropped(DropUndersized)
		}
	}
	return kept
}

func (e *Extractor) newSegment(doc *core.SourceDocument, c *candidate, capped tokens.Capped, fingerprint string) *core.EvidenceSegment {
	skills := doc.Skills
	if c.kind != core.KindTechnical {
		skills = nil
		for _, skill := range doc.Skills {
			if core.ContainsTerm(capped.Text, skill) {
				skills = append(skills, skill)
			}
		}
	}

	return &core.EvidenceSegment{
		ID:           core.IDFromContent(fingerprint),
		Fingerprint:  fingerprint,
		DocumentID:   doc.Key(),
		Kind:         c.kind,
		Content:      capped.Text,
		Summary:      summarize(c.parts[0]),
		Title:        doc.Title,
		Organization: doc.Organization,
		Start:        doc.Start,
		End:          doc.End,
		Topics:       slices.Clone(doc.Topics),
		Skills:       slices.Clone(skills),
		TokenCount:   capped.Tokens,
		Truncated:    c.truncated || capped.Truncated,
	}
}

func (e *Extractor) count(header string, parts []string) int {
	return e.budget.Count(render(header, parts))
}

func (e *Extractor) fits(header string, parts []string, extra string, limit int) bool {
	return e.budget.Count(render(header, parts)+" "+extra) <= limit
}

func (e *Extractor) dropped(reason string) {
	e.metrics.SegmentDropped(reason)
}

func render(header string, parts []string) string {
	return header + "\n" + strings.Join(parts, " ")
}

// missingParts returns the parts not already contained in text.
func missingParts(text string, parts []string) []string {
	var out []string
	for _, p := range parts {
		if !strings.Contains(text, p) {
			out = append(out, p)
		}
	}
	return out
}

// summarize returns the first sentence of text, cut at a word boundary to
// at most maxSummaryRunes.
func summarize(text string) string {
	sentences := tokens.SplitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	s := sentences[0]
	if utf8.RuneCountInString(s) <= maxSummaryRunes {
		return s
	}
	runes := []rune(s)[:maxSummaryRunes-1]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "…"
}
