package ai

import (
	"context"
	"slices"
	"strings"

	"github.com/poiesic/vitae/core"
)

// DefaultSynonyms maps career vocabulary to related terms used for query
// expansion when no language model is configured.
var DefaultSynonyms = map[string][]string{
	"led":              {"managed", "mentored", "leadership"},
	"leadership":       {"led", "managed", "mentored"},
	"managed":          {"led", "leadership"},
	"mentored":         {"coached", "leadership"},
	"mentoring":        {"coaching", "leadership"},
	"built":            {"developed", "implemented"},
	"developed":        {"built", "implemented"},
	"designed":         {"architected", "built"},
	"architecture":     {"design", "system design"},
	"backend":          {"server", "api"},
	"frontend":         {"ui", "web"},
	"ml":               {"machine learning"},
	"machine learning": {"ml", "models"},
	"ai":               {"machine learning", "ml"},
	"k8s":              {"kubernetes"},
	"kubernetes":       {"k8s", "containers"},
	"golang":           {"go"},
	"postgres":         {"postgresql"},
	"postgresql":       {"postgres"},
	"js":               {"javascript"},
	"javascript":       {"js"},
	"ts":               {"typescript"},
	"typescript":       {"ts"},
	"devops":           {"infrastructure", "ci/cd"},
	"achievements":     {"results", "impact"},
	"accomplishments":  {"results", "impact"},
	"impact":           {"results", "outcomes"},
	"results":          {"outcomes", "impact"},
	"experience":       {"worked", "role"},
}

// SynonymExpander expands queries from a static synonym table.
type SynonymExpander struct {
	table map[string][]string
	keys  []string
	max   int
}

var _ QueryExpander = (*SynonymExpander)(nil)

// NewSynonymExpander returns an expander over table, or DefaultSynonyms when
// table is nil. At most max terms are returned; max <= 0 means no cap.
func NewSynonymExpander(table map[string][]string, max int) *SynonymExpander {
	if table == nil {
		table = DefaultSynonyms
	}
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return &SynonymExpander{table: table, keys: keys, max: max}
}

// Expand returns the synonyms of every table entry the query mentions,
// skipping terms the query already contains.
func (s *SynonymExpander) Expand(ctx context.Context, query string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyInput
	}

	var out []string
	seen := make(map[string]bool)
	for _, key := range s.keys {
		if !core.ContainsTerm(query, key) {
			continue
		}
		for _, syn := range s.table[key] {
			if seen[syn] || core.ContainsTerm(query, syn) {
				continue
			}
			seen[syn] = true
			out = append(out, syn)
			if s.max > 0 && len(out) == s.max {
				return out, nil
			}
		}
	}
	return out, nil
}
