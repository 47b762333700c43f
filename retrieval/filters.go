package retrieval

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hbollon/go-edlib"
	"github.com/poiesic/vitae/core"
)

// VocabularySource lists the skills and topics known to the store.
// storage.SegmentRepository implementations satisfy it.
type VocabularySource interface {
	Vocabulary(ctx context.Context) (skills, topics []string, err error)
}

// staticVocabulary is a fixed VocabularySource.
type staticVocabulary struct {
	skills []string
	topics []string
}

func (v staticVocabulary) Vocabulary(context.Context) ([]string, []string, error) {
	return v.skills, v.topics, nil
}

const yearPattern = `((?:19|20)\d{2})`

var (
	yearSpan   = regexp.MustCompile(`\b` + yearPattern + `\s*(?:-|–|to|through|until)\s*` + yearPattern + `\b`)
	sinceYear  = regexp.MustCompile(`(?i)\b(?:since|after|from)\s+` + yearPattern + `\b`)
	beforeYear = regexp.MustCompile(`(?i)\b(?:before|prior to)\s+` + yearPattern + `\b`)
	inYear     = regexp.MustCompile(`(?i)\b(?:in|during)\s+` + yearPattern + `\b`)
)

// minFuzzyRunes keeps short terms such as "go" or "ml" out of fuzzy matching.
const minFuzzyRunes = 4

// yearRange extracts a date range stated in text. Spans win over open
// bounds, which win over single years.
func yearRange(text string) (core.DateRange, bool) {
	if m := yearSpan.FindStringSubmatch(text); m != nil {
		from, to := atoiYear(m[1]), atoiYear(m[2])
		if from > to {
			from, to = to, from
		}
		return core.DateRange{Start: yearStart(from), End: yearEnd(to)}, true
	}
	if m := sinceYear.FindStringSubmatch(text); m != nil {
		return core.DateRange{Start: yearStart(atoiYear(m[1]))}, true
	}
	if m := beforeYear.FindStringSubmatch(text); m != nil {
		return core.DateRange{End: yearStart(atoiYear(m[1])).Add(-time.Nanosecond)}, true
	}
	if m := inYear.FindStringSubmatch(text); m != nil {
		y := atoiYear(m[1])
		return core.DateRange{Start: yearStart(y), End: yearEnd(y)}, true
	}
	return core.DateRange{}, false
}

func atoiYear(s string) int {
	y, _ := strconv.Atoi(s)
	return y
}

func yearStart(y int) time.Time {
	return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func yearEnd(y int) time.Time {
	return time.Date(y, time.December, 31, 23, 59, 59, 0, time.UTC)
}

// matchVocabulary returns the entries of vocab the text mentions, either
// verbatim or as a close spelling of a query term.
func matchVocabulary(text string, vocab []string, fuzzy float64) []string {
	terms := core.Terms(text)
	var matched []string
	seen := make(map[string]bool)

	for _, entry := range vocab {
		key := strings.ToLower(strings.TrimSpace(entry))
		if key == "" || seen[key] {
			continue
		}
		if core.ContainsTerm(text, entry) || fuzzyMentions(terms, key, fuzzy) {
			seen[key] = true
			matched = append(matched, entry)
		}
	}
	return matched
}

// fuzzyMentions compares entry against every run of query terms with the
// same word count.
func fuzzyMentions(terms []string, entry string, threshold float64) bool {
	if len([]rune(entry)) < minFuzzyRunes {
		return false
	}
	width := len(strings.Fields(entry))
	for i := 0; i+width <= len(terms); i++ {
		candidate := strings.Join(terms[i:i+width], " ")
		if len([]rune(candidate)) < minFuzzyRunes {
			continue
		}
		if float64(edlib.JaroWinklerSimilarity(candidate, entry)) >= threshold {
			return true
		}
	}
	return false
}
