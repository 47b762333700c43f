package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/extraction"
	"github.com/poiesic/vitae/tokens"
	"github.com/urfave/cli/v2"
)

func segmentsCommand() *cli.Command {
	return &cli.Command{
		Name:      "segments",
		Usage:     "Preview the segments extracted from document files without storing them",
		ArgsUsage: "<file or directory>...",
		Action:    segmentsAction,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "estimate",
				Usage: "Estimate token counts at four characters per token instead of using the tokenizer",
			},
			&cli.StringFlag{
				Name:  "encoding",
				Usage: "Tokenizer encoding",
				Value: tokens.DefaultEncoding,
			},
		},
	}
}

func segmentsAction(c *cli.Context) error {
	docs, err := collectDocuments(c.Args().Slice())
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	var counter tokens.Counter = tokens.EstimateCounter{}
	if !c.Bool("estimate") {
		counter = tokens.NewTiktokenCounter(c.String("encoding"), slog.Default())
	}
	budget, err := tokens.NewBudget(counter, cfg.Budget)
	if err != nil {
		return err
	}
	extractor, err := extraction.NewExtractor(budget)
	if err != nil {
		return err
	}

	result, err := extractor.ExtractBatch(c.Context, docs)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		printSegments(c.App.Writer, doc, result.Segments[doc.Key()], result.Failures[doc.Key()])
	}
	fmt.Fprintf(c.App.Writer, "%d segments from %d documents (budget %d-%d, hard cap %d)\n",
		result.SegmentCount(), len(docs), cfg.Budget.TargetMin, cfg.Budget.TargetMax, cfg.Budget.HardCap)
	return nil
}

func printSegments(w io.Writer, doc *core.SourceDocument, segs []*core.EvidenceSegment, err error) {
	fmt.Fprintf(w, "== %s: %s at %s\n", doc.Key(), doc.Title, doc.Organization)
	if err != nil {
		fmt.Fprintf(w, "   error: %v\n\n", err)
		return
	}
	for _, seg := range segs {
		flag := ""
		if seg.Truncated {
			flag = " truncated"
		}
		fmt.Fprintf(w, "-- %s, %d tokens%s\n", seg.Kind, seg.TokenCount, flag)
		for _, line := range strings.Split(seg.Content, "\n") {
			fmt.Fprintf(w, "   %s\n", line)
		}
	}
	fmt.Fprintln(w)
}
