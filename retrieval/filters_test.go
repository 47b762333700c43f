package retrieval

import (
	"testing"
	"time"

	"github.com/poiesic/vitae/config"
	"github.com/stretchr/testify/assert"
)

func TestYearRange(t *testing.T) {
	tests := []struct {
		text      string
		ok        bool
		startYear int
		endYear   int // 0 means open
	}{
		{"Go work since 2019", true, 2019, 0},
		{"projects from 2018-2020", true, 2018, 2020},
		{"roles 2021 to 2019", true, 2019, 2021},
		{"what did I ship in 2021", true, 2021, 2021},
		{"jobs before 2015", true, 0, 2014},
		{"Go microservices", false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			r, ok := yearRange(tt.text)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			if tt.startYear == 0 {
				assert.True(t, r.Start.IsZero())
			} else {
				assert.Equal(t, tt.startYear, r.Start.Year())
			}
			if tt.endYear == 0 {
				assert.True(t, r.IsOpen())
			} else {
				assert.Equal(t, tt.endYear, r.End.Year())
			}
		})
	}
}

func TestMatchVocabulary(t *testing.T) {
	vocab := []string{"Kubernetes", "Go", "machine learning", "PostgreSQL", "go"}

	assert.Equal(t, []string{"Kubernetes"}, matchVocabulary("scaling kubernetes clusters", vocab, 0.92))
	assert.Equal(t, []string{"Go"}, matchVocabulary("Go and gRPC", vocab, 0.92))
	assert.Equal(t, []string{"machine learning"}, matchVocabulary("machine learnin pipelines", vocab, 0.92))
	assert.Equal(t, []string{"PostgreSQL"}, matchVocabulary("postgresq tuning", vocab, 0.92))
	assert.Empty(t, matchVocabulary("good management", vocab, 0.92), "short entries never match fuzzily")
	assert.Empty(t, matchVocabulary("", vocab, 0.92))
}

func TestAdaptiveThreshold(t *testing.T) {
	r := config.DefaultConfig().Retrieval

	tests := []struct {
		name     string
		terms    int
		filtered bool
		want     float64
	}{
		{"one term lands on the floor", 1, false, 0.20},
		{"two terms", 2, false, 0.25},
		{"three terms use the base", 3, false, 0.30},
		{"filters add a step", 3, true, 0.35},
		{"five terms", 5, false, 0.40},
		{"long queries hit the ceiling", 9, true, 0.50},
		{"no terms", 0, false, 0.20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, adaptiveThreshold(r, tt.terms, tt.filtered), 1e-9)
		})
	}
}

func TestPathState(t *testing.T) {
	p := newPathState()
	assert.Equal(t, "vector", string(p.path()))
	assert.False(t, p.vectorDone(3))
	assert.Equal(t, "vector", string(p.path()))

	p = newPathState()
	assert.True(t, p.vectorDone(0))
	assert.Equal(t, "lexical", string(p.path()))
	assert.False(t, p.vectorDone(0), "the fallback runs at most once")
}

func TestCoverageOf(t *testing.T) {
	open := segment(1, "globex", goContent, "Go", "Kubernetes")
	open.Start = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	open.End = time.Time{}
	closed := segment(2, "acme", goContent, "go", "SQL")
	also := segment(3, "acme", goContent, "Kubernetes")

	hits := []*Hit{{}, {}, {}}
	hits[0].Segment, hits[1].Segment, hits[2].Segment = open, closed, also

	c := coverageOf(hits)
	assert.Equal(t, 2, c.Sources)
	assert.Equal(t, 2020, c.Span.Start.Year())
	assert.True(t, c.Span.IsOpen())
	assert.Equal(t, []string{"Go", "Kubernetes", "SQL"}, c.TopSkills)
	assert.Equal(t, "3 segments from 2 sources spanning 2020–Present; top skills: Go, Kubernetes, SQL", c.Summary)
}

func TestConfidenceFor(t *testing.T) {
	r := config.DefaultConfig().Retrieval
	assert.Equal(t, ConfidenceHigh, confidenceFor(0.75, r))
	assert.Equal(t, ConfidenceMedium, confidenceFor(0.5, r))
	assert.Equal(t, ConfidenceLow, confidenceFor(0.49, r))
}
