package frontmatter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/vitae/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acme = `---
id: acme-engineer
category: job
organization: Acme
title: Engineer
start: 2019-03
end: "2021-06-30"
summary: Payments platform engineer.
skills: [Go, Kubernetes, " "]
topics:
  - payments
outcomes:
  - Cut p99 latency by 40%
---

Built the settlement service in Go.

Ran the Kubernetes migration.
`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(acme))
	require.NoError(t, err)

	assert.Equal(t, "acme-engineer", doc.ID)
	assert.Equal(t, core.CategoryJob, doc.Category)
	assert.Equal(t, "Acme", doc.Organization)
	assert.Equal(t, "Engineer", doc.Title)
	assert.Equal(t, time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC), doc.Start)
	assert.Equal(t, time.Date(2021, 6, 30, 0, 0, 0, 0, time.UTC), doc.End)
	assert.Equal(t, "Payments platform engineer.", doc.Summary)
	assert.Equal(t, []string{"Go", "Kubernetes"}, doc.Skills, "blank entries are dropped")
	assert.Equal(t, []string{"payments"}, doc.Topics)
	assert.Equal(t, []string{"Cut p99 latency by 40%"}, doc.Outcomes)
	assert.Equal(t, "Built the settlement service in Go.\n\nRan the Kubernetes migration.", doc.Body)
}

func TestParse_Defaults(t *testing.T) {
	doc, err := Parse([]byte("---\r\norganization: Initech\r\ntitle: Lead\r\nstart: 2022\r\nend: present\r\n---\r\nBody\r\n"))
	require.NoError(t, err)

	assert.Equal(t, core.CategoryJob, doc.Category, "category defaults to job")
	assert.Equal(t, 2022, doc.Start.Year())
	assert.True(t, doc.DateRange().IsOpen())
	assert.Equal(t, "Body", doc.Body)
	assert.Empty(t, doc.ID)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"no front matter", "Just a body", ErrMissingFrontMatter},
		{"unterminated", "---\ntitle: x\n", ErrUnterminatedFrontMatter},
		{"bad yaml", "---\ntitle: [unclosed\n---\n", ErrInvalidFrontMatter},
		{"bad date", "---\norganization: A\ntitle: B\nstart: March 2019\n---\n", ErrInvalidDate},
		{"missing title", "---\norganization: A\n---\n", core.ErrMissingTitle},
		{"reversed range", "---\norganization: A\ntitle: B\nstart: 2021\nend: 2019\n---\n", core.ErrInvalidDateRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2019", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2019-07", time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC)},
		{" 2019-07-15 ", time.Date(2019, 7, 15, 0, 0, 0, 0, time.UTC)},
		{"Present", time.Time{}},
		{"", time.Time{}},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := ParseDate("07/2019")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestParseFile_IDFromName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "initech-lead.md")
	require.NoError(t, os.WriteFile(path, []byte("---\norganization: Initech\ntitle: Lead\n---\nText\n"), 0o644))

	doc, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "initech-lead", doc.ID)

	_, err = ParseFile(filepath.Join(dir, "missing.md"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("b.md", "---\norganization: Initech\ntitle: Lead\n---\n")
	write("a.md", acme)
	write("notes.json", "{}")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	docs, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "acme-engineer", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)

	write("c.md", "no front matter")
	_, err = LoadDir(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingFrontMatter)
	assert.Contains(t, err.Error(), "c.md")
}
