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


package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/vitae"
	"github.com/poiesic/vitae/ai"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/retrieval"
	"github.com/poiesic/vitae/storage"
	"github.com/urfave/cli/v2"
)

var defaultProbeQueries = []string{
	"software development process",
	"agile methodology",
	"testing procedures",
	"system architecture",
}

var errStopScan = errors.New("stop scan")

func diagnoseCommand() *cli.Command {
	return &cli.Command{
		Name:   "diagnose",
		Usage:  "Check the embedder, the store and retrieval end to end",
		Action: diagnoseAction,
		Flags: withFlags(storeFlags(), aiFlags(), []cli.Flag{
			&cli.IntFlag{
				Name:  "samples",
				Usage: "Number of stored segments to print",
				Value: 3,
			},
			&cli.StringSliceFlag{
				Name:  "query",
				Usage: "Question to run through retrieval (repeatable)",
			},
		}),
	}
}

func diagnoseAction(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	queries := c.StringSlice("query")
	if len(queries) == 0 {
		queries = defaultProbeQueries
	}
	d := &diagnosis{w: c.App.Writer, db: db}
	return d.run(c.Context, c.Int("samples"), queries)
}

// diagnosis runs independent checks and counts the ones that fail.
type diagnosis struct {
	w        io.Writer
	db       *vitae.Database
	problems int
}

func (d *diagnosis) section(n int, title string) {
	fmt.Fprintf(d.w, "\n%s\n %d. %s\n%s\n", strings.Repeat("=", 50), n, title, strings.Repeat("=", 50))
}

func (d *diagnosis) ok(format string, args ...any) {
	fmt.Fprintf(d.w, "[ok]   "+format+"\n", args...)
}

func (d *diagnosis) fail(format string, args ...any) {
	d.problems++
	fmt.Fprintf(d.w, "[fail] "+format+"\n", args...)
}

func (d *diagnosis) run(ctx context.Context, samples int, queries []string) error {
	dims := d.checkEmbedder(ctx)
	stats, storeOK := d.checkStore(ctx, dims)
	if storeOK {
		d.probe(ctx, max(dims, stats.Dimensions))
		d.sample(ctx, samples)
		d.retrieve(ctx, queries)
	}

	fmt.Fprintln(d.w)
	if d.problems > 0 {
		return fmt.Errorf("diagnosis found %d problems", d.problems)
	}
	fmt.Fprintln(d.w, "All checks passed")
	return nil
}

func (d *diagnosis) checkEmbedder(ctx context.Context) int {
	d.section(1, "EMBEDDER CHECK")
	vector, err := d.db.Provider().Embedder().EmbedText(ctx, "test", ai.PurposeQuery)
	if err != nil {
		d.fail("embedder error: %v", err)
		return 0
	}
	d.ok("embedder working - %d dimensions, magnitude %.3f", len(vector), core.Magnitude(vector))
	return len(vector)
}

func (d *diagnosis) checkStore(ctx context.Context, dims int) (storage.Stats, bool) {
	d.section(2, "STORE CHECK")
	stats, err := d.db.SegmentRepository().Stats(ctx)
	if err != nil {
		d.fail("store error: %v", err)
		return stats, false
	}
	d.ok("store connected - %d segments from %d documents", stats.Segments, stats.Documents)

	switch {
	case stats.Segments == 0:
		d.fail("no segments found in store")
		return stats, false
	case stats.WithVectors == 0:
		d.fail("no segments have vectors")
		return stats, false
	case stats.WithVectors < stats.Segments:
		d.fail("%d of %d segments have no vector", stats.Segments-stats.WithVectors, stats.Segments)
	default:
		d.ok("all segments have vectors (%d dimensions)", stats.Dimensions)
	}
	if dims > 0 && stats.Dimensions != dims {
		d.fail("store vectors have %d dimensions but the embedder produces %d; run reembed", stats.Dimensions, dims)
	}
	return stats, true
}

// probe searches with a constant vector at threshold zero, which must match
// something in any store holding vectors of that width.
func (d *diagnosis) probe(ctx context.Context, dims int) {
	d.section(3, "PROBE SEARCH")
	if dims == 0 {
		d.fail("no vector width known; skipping probe")
		return
	}
	vector := make([]float32, dims)
	for i := range vector {
		vector[i] = 0.1
	}
	matches, err := d.db.SegmentRepository().Search(ctx, core.NormalizeVector(vector), 0, 5, core.Filters{})
	if err != nil {
		d.fail("similarity search error: %v", err)
		return
	}
	if len(matches) == 0 {
		d.fail("similarity search at threshold 0 returned nothing")
		return
	}
	d.ok("similarity search works - returned %d results, top similarity %.3f", len(matches), matches[0].Similarity)
}

func (d *diagnosis) sample(ctx context.Context, n int) {
	d.section(4, "SAMPLE SEGMENTS")
	if n <= 0 {
		return
	}
	err := d.db.SegmentRepository().ForEachSegment(ctx, n, func(segs []*core.EvidenceSegment) error {
		for i, seg := range segs {
			fmt.Fprintf(d.w, "\n--- Segment %d ---\n", i+1)
			fmt.Fprintf(d.w, "Document: %s (%s)\n", seg.DocumentID, seg.Kind)
			fmt.Fprintf(d.w, "Content: %s\n", preview(seg.Content, 100))
			fmt.Fprintf(d.w, "Skills: %s  Topics: %s\n", strings.Join(seg.Skills, ", "), strings.Join(seg.Topics, ", "))
			fmt.Fprintf(d.w, "Tokens: %d  Vector: %d dimensions\n", seg.TokenCount, len(seg.Vector))
		}
		return errStopScan
	})
	if err != nil && !errors.Is(err, errStopScan) {
		d.fail("reading segments: %v", err)
	}
}

func (d *diagnosis) retrieve(ctx context.Context, queries []string) {
	d.section(5, "RETRIEVAL TEST")
	retriever, err := d.db.NewRetriever()
	if err != nil {
		d.fail("creating retriever: %v", err)
		return
	}
	zero := 0.0
	for _, text := range queries {
		fmt.Fprintf(d.w, "\nTesting query: %q\n", text)
		result, err := retriever.Retrieve(ctx, retrieval.Query{Text: text, MinSimilarity: &zero})
		if err != nil {
			d.fail("retrieval error: %v", err)
			continue
		}
		if result.IsEmpty() {
			fmt.Fprintf(d.w, "[warn] no results via %s search\n", result.Path)
			continue
		}
		top := result.Candidates[0]
		d.ok("%d results via %s search, top score %.3f (similarity %.3f)",
			len(result.Candidates), result.Path, top.Final, top.Similarity)
		fmt.Fprintf(d.w, "       %s\n", preview(top.Segment.Content, 100))
	}
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
