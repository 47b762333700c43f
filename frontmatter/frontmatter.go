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


package frontmatter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/poiesic/vitae/core"
)

const delimiter = "---"

// Extensions lists the file extensions LoadDir picks up.
var Extensions = []string{".md", ".markdown", ".txt"}

var dateLayouts = []string{time.DateOnly, "2006-01", "2006"}

type header struct {
	ID           string   `yaml:"id"`
	Category     string   `yaml:"category"`
	Organization string   `yaml:"organization"`
	Title        string   `yaml:"title"`
	Start        any      `yaml:"start"`
	End          any      `yaml:"end"`
	Summary      string   `yaml:"summary"`
	Skills       []string `yaml:"skills"`
	Topics       []string `yaml:"topics"`
	Outcomes     []string `yaml:"outcomes"`
}

// dateValue converts a decoded YAML scalar. Bare years decode as integers
// and full dates may decode as timestamps.
func dateValue(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, nil
	case string:
		return ParseDate(v)
	case time.Time:
		return v.UTC(), nil
	default:
		return ParseDate(fmt.Sprint(v))
	}
}

// ParseDate parses YYYY, YYYY-MM or YYYY-MM-DD as a UTC time. Blank input,
// "present" and "current" return the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "present", "current", "now", "ongoing":
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Split separates the front matter block from the body.
func Split(data []byte) (meta []byte, body string, err error) {
	text := strings.ReplaceAll(string(bytes.TrimPrefix(data, []byte("\ufeff"))), "\r\n", "\n")
	first, rest, _ := strings.Cut(text, "\n")
	if strings.TrimSpace(first) != delimiter {
		return nil, "", ErrMissingFrontMatter
	}

	var block []string
	lines := strings.Split(rest, "\n")
	for i, line := range lines {
		if strings.TrimRight(line, " \t") == delimiter {
			return []byte(strings.Join(block, "\n")), strings.TrimSpace(strings.Join(lines[i+1:], "\n")), nil
		}
		block = append(block, line)
	}
	return nil, "", ErrUnterminatedFrontMatter
}

// Parse decodes a document file and validates the result.
func Parse(data []byte) (*core.SourceDocument, error) {
	meta, body, err := Split(data)
	if err != nil {
		return nil, err
	}

	var h header
	if err := yaml.Unmarshal(meta, &h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFrontMatter, err)
	}

	start, err := dateValue(h.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	end, err := dateValue(h.End)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}

	doc := &core.SourceDocument{
		ID:           strings.TrimSpace(h.ID),
		Category:     core.Category(strings.ToLower(strings.TrimSpace(h.Category))),
		Organization: strings.TrimSpace(h.Organization),
		Title:        strings.TrimSpace(h.Title),
		Start:        start,
		End:          end,
		Summary:      strings.TrimSpace(h.Summary),
		Skills:       compact(h.Skills),
		Topics:       compact(h.Topics),
		Outcomes:     compact(h.Outcomes),
		Body:         body,
	}
	if doc.Category == "" {
		doc.Category = core.CategoryJob
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseFile reads and parses one document file. A document without an id
// takes the file name without its extension.
func ParseFile(path string) (*core.SourceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.ID == "" {
		base := filepath.Base(path)
		doc.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return doc, nil
}

// LoadDir parses every document file directly under dir in name order.
// It stops at the first file that fails to parse.
func LoadDir(dir string) ([]*core.SourceDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var docs []*core.SourceDocument
	for _, entry := range entries {
		if entry.IsDir() || !slices.Contains(Extensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}
		doc, err := ParseFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
