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
	"regexp"
	"strings"

	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/tokens"
)

// Draft is the primary content a strategy assigns to one evidence kind.
type Draft struct {
	Kind  core.SegmentKind
	Spans []string
}

// EvidenceStrategy groups the spans of a document by evidence kind.
// Implementations must be deterministic and must not assign the same span to
// more than one kind.
type EvidenceStrategy interface {
	Plan(doc *core.SourceDocument, spans []string) []Draft
}

var (
	achievementVerb = regexp.MustCompile(`(?i)\b(?:reduc\w*|increas\w*|improv\w*|grew|grow\w*|launch\w*|deliver\w*|saved|saving\w*|cut|cutting|boost\w*|achiev\w*|won|shipped|shipping|scaled|scaling|doubl\w*|tripl\w*|accelerat\w*|generat\w*|optimi[sz]\w*|lowered|raised|drove|exceed\w*|decreas\w*)\b`)
	quantity        = regexp.MustCompile(`\d`)
	metricPattern   = regexp.MustCompile(`\d+(?:\.\d+)?\s?%|[$€£]\s?\d|\b\d+(?:\.\d+)?x\b`)
	leadershipVerb  = regexp.MustCompile(`(?i)\b(?:led|lead|leading|mentor\w*|managed|managing|manager|coach\w*|hired|hiring|supervis\w*|directed|directing|headed|onboard\w*|team of \d+)\b`)
	technicalWord   = regexp.MustCompile(`(?i)\b(?:architect\w*|design|designed|designing|implement\w*|built|build|building|develop|developed|developing|migrat\w*|apis?|databases?|pipelines?|infrastructure|deploy\w*|automat\w*|refactor\w*|integrat\w*|code|coding|microservices?|backend|frontend|cloud|kubernetes|docker|sql)\b`)
)

// kindOrder is the order drafts are returned in.
var kindOrder = []core.SegmentKind{
	core.KindOverview,
	core.KindTechnical,
	core.KindAchievement,
	core.KindLeadership,
}

// PatternStrategy classifies spans with keyword patterns. Declared outcomes
// seed the achievement kind, declared skills the technical kind and the
// summary the overview kind.
type PatternStrategy struct{}

var _ EvidenceStrategy = PatternStrategy{}

// Classify returns the evidence kind of a single span. Quantified results win
// over leadership, leadership over technical work, and anything else is
// overview material.
func (PatternStrategy) Classify(span string, skills []string) core.SegmentKind {
	switch {
	case metricPattern.MatchString(span),
		achievementVerb.MatchString(span) && quantity.MatchString(span):
		return core.KindAchievement
	case leadershipVerb.MatchString(span):
		return core.KindLeadership
	case technicalWord.MatchString(span) || mentionsAny(span, skills):
		return core.KindTechnical
	default:
		return core.KindOverview
	}
}

// Plan implements EvidenceStrategy.
func (s PatternStrategy) Plan(doc *core.SourceDocument, spans []string) []Draft {
	assigned := make(map[core.SegmentKind][]string)
	used := make(map[string]bool)
	add := func(kind core.SegmentKind, span string) {
		key := strings.ToLower(strings.TrimSpace(span))
		if key == "" || used[key] {
			return
		}
		used[key] = true
		assigned[kind] = append(assigned[kind], span)
	}

	if summary := strings.TrimSpace(doc.Summary); summary != "" {
		for _, sentence := range tokens.SplitSentences(summary) {
			add(core.KindOverview, terminate(sentence))
		}
	}
	if len(doc.Skills) > 0 {
		add(core.KindTechnical, "Skills applied: "+joinList(doc.Skills)+".")
	}
	for _, outcome := range doc.Outcomes {
		add(core.KindAchievement, terminate(outcome))
	}
	for _, span := range spans {
		add(s.Classify(span, doc.Skills), span)
	}

	var drafts []Draft
	for _, kind := range kindOrder {
		if len(assigned[kind]) > 0 {
			drafts = append(drafts, Draft{Kind: kind, Spans: assigned[kind]})
		}
	}
	return drafts
}

func mentionsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if core.ContainsTerm(text, p) {
			return true
		}
	}
	return false
}

// terminate makes sure s ends like a sentence.
func terminate(s string) string {
	s = strings.TrimSpace(s)
	body := strings.TrimRight(s, "\"')”’")
	if body == "" || strings.HasSuffix(body, ".") || strings.HasSuffix(body, "!") || strings.HasSuffix(body, "?") {
		return s
	}
	return s + "."
}

func joinList(items []string) string {
	var clean []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			clean = append(clean, item)
		}
	}
	return strings.Join(clean, ", ")
}
