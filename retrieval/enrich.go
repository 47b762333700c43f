package retrieval

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/vitae/config"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/scoring"
	"github.com/poiesic/vitae/tokens"
)

// topSkillCount bounds Coverage.TopSkills.
const topSkillCount = 5

var quantified = regexp.MustCompile(`\d|%|[$€£¥]`)

func confidenceFor(similarity float64, r config.Retrieval) Confidence {
	switch {
	case similarity >= r.HighConfidence:
		return ConfidenceHigh
	case similarity >= r.MediumConfidence:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func enrich(sc scoring.ScoredCandidate, r config.Retrieval) *Hit {
	seg := sc.Segment
	return &Hit{
		ScoredCandidate: sc,
		Confidence:      confidenceFor(sc.Similarity, r),
		Explanation:     explain(sc),
		DateRange:       seg.DateRange().Format(),
		KeyPhrases:      keyPhrases(seg.Content),
	}
}

func explain(sc scoring.ScoredCandidate) string {
	var b strings.Builder
	if sc.Path == scoring.PathLexical {
		fmt.Fprintf(&b, "keyword match (baseline similarity %.2f)", sc.Similarity)
	} else {
		fmt.Fprintf(&b, "semantic match (similarity %.2f)", sc.Similarity)
	}

	seg := sc.Segment
	if seg.Kind != "" {
		fmt.Fprintf(&b, " on %s evidence", seg.Kind)
	}
	if seg.Title != "" && seg.Organization != "" {
		fmt.Fprintf(&b, " from %s at %s", seg.Title, seg.Organization)
	}
	if len(sc.MatchedSkills) > 0 {
		fmt.Fprintf(&b, "; skills %s", strings.Join(sc.MatchedSkills, ", "))
	}
	if len(sc.MatchedTags) > 0 {
		fmt.Fprintf(&b, "; tags %s", strings.Join(sc.MatchedTags, ", "))
	}
	if sc.MatchedRange {
		b.WriteString("; within requested dates")
	}
	fmt.Fprintf(&b, "; recency %.2f", sc.Recency)
	return b.String()
}

// keyPhrases returns the body sentences stating numbers, percentages or
// amounts. The header line is skipped.
func keyPhrases(content string) []string {
	body := content
	if _, rest, ok := strings.Cut(content, "\n"); ok {
		body = rest
	}
	var out []string
	for _, sentence := range tokens.SplitSentences(body) {
		if quantified.MatchString(sentence) {
			out = append(out, sentence)
		}
	}
	return out
}

func coverageOf(hits []*Hit) Coverage {
	if len(hits) == 0 {
		return Coverage{Summary: "no matching evidence"}
	}

	sources := make(map[string]struct{})
	skillCounts := make(map[string]int)
	spelling := make(map[string]string)
	var start, end time.Time
	open := false

	for _, h := range hits {
		seg := h.Segment
		sources[seg.DocumentID] = struct{}{}
		for _, s := range seg.Skills {
			key := strings.ToLower(s)
			if _, ok := spelling[key]; !ok {
				spelling[key] = s
			}
			skillCounts[key]++
		}

		if !seg.Start.IsZero() && (start.IsZero() || seg.Start.Before(start)) {
			start = seg.Start
		}
		if seg.End.IsZero() {
			open = true
		} else if seg.End.After(end) {
			end = seg.End
		}
	}
	if open {
		end = time.Time{}
	}

	keys := make([]string, 0, len(skillCounts))
	for k := range skillCounts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(skillCounts[b], skillCounts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(keys) > topSkillCount {
		keys = keys[:topSkillCount]
	}
	top := make([]string, len(keys))
	for i, k := range keys {
		top[i] = spelling[k]
	}

	c := Coverage{Sources: len(sources), Span: core.DateRange{Start: start, End: end}, TopSkills: top}
	c.Summary = summarizeCoverage(len(hits), c)
	return c
}

func summarizeCoverage(n int, c Coverage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s from %d %s", n, plural(n, "segment", "segments"), c.Sources, plural(c.Sources, "source", "sources"))
	if span := c.Span.Format(); span != "" {
		fmt.Fprintf(&b, " spanning %s", span)
	}
	if len(c.TopSkills) > 0 {
		fmt.Fprintf(&b, "; top skills: %s", strings.Join(c.TopSkills, ", "))
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// guidance explains an empty result.
func guidance(q Query, filters core.Filters, implicit bool) string {
	msg := "No relevant experience was found for this question."
	switch {
	case !filters.Range.IsZero() && implicit:
		msg += " The time period in the question (" + filters.Range.Format() + ") only ranks results; try naming a skill, technology or organization from it."
	case !filters.Range.IsZero():
		msg += " The date range only ranks results; try naming a skill, technology or organization instead."
	case len(core.Terms(q.Text)) > baselineTerms:
		msg += " Try a shorter question about a single skill, role or result."
	default:
		msg += " Try naming a specific skill, technology or organization."
	}
	return msg
}
