package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/frontmatter"
	"github.com/poiesic/vitae/ingestion"
	"github.com/urfave/cli/v2"
)

var errNoDocuments = errors.New("no documents found")

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Extract, embed and store segments of document files",
		ArgsUsage: "<file or directory>...",
		Action:    ingestAction,
		Flags: withFlags(storeFlags(), aiFlags(), []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Re-ingest documents even when their content is unchanged",
			},
			&cli.IntFlag{
				Name:  "pool-size",
				Usage: "Number of documents processed concurrently (0 uses half the CPUs)",
			},
		}),
	}
}

func ingestAction(c *cli.Context) error {
	ctx := context.Background()

	docs, err := collectDocuments(c.Args().Slice())
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := []ingestion.Option{ingestion.WithForce(c.Bool("force"))}
	if n := c.Int("pool-size"); n > 0 {
		opts = append(opts, ingestion.WithPoolSize(n))
	}
	pipeline, err := db.NewIngestionPipeline(opts...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	report, err := pipeline.Ingest(ctx, docs...)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	out := c.App.Writer
	for _, d := range report.Documents {
		switch d.Outcome {
		case ingestion.OutcomeFailed:
			fmt.Fprintf(out, "%-10s %s: %v\n", d.Outcome, d.DocumentID, d.Err)
		case ingestion.OutcomeIngested:
			fmt.Fprintf(out, "%-10s %s (%d segments, %d replaced)\n", d.Outcome, d.DocumentID, d.Segments, d.Replaced)
		default:
			fmt.Fprintf(out, "%-10s %s\n", d.Outcome, d.DocumentID)
		}
	}
	fmt.Fprintf(out, "Ingested %d, unchanged %d, failed %d (%d segments)\n",
		report.Count(ingestion.OutcomeIngested), report.Count(ingestion.OutcomeUnchanged),
		report.Count(ingestion.OutcomeFailed), report.Segments())

	if n := report.Count(ingestion.OutcomeFailed); n > 0 {
		return fmt.Errorf("%d of %d documents failed", n, len(report.Documents))
	}
	return nil
}

// collectDocuments parses files and every document file directly under directories.
func collectDocuments(paths []string) ([]*core.SourceDocument, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: pass at least one file or directory", errNoDocuments)
	}

	var docs []*core.SourceDocument
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			found, err := frontmatter.LoadDir(path)
			if err != nil {
				return nil, err
			}
			docs = append(docs, found...)
			continue
		}
		doc, err := frontmatter.ParseFile(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, errNoDocuments
	}
	return docs, nil
}

func forgetCommand() *cli.Command {
	return &cli.Command{
		Name:      "forget",
		Usage:     "Remove the segments and state of documents",
		ArgsUsage: "<document id>...",
		Flags:     withFlags(storeFlags(), aiFlags()),
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("document id is required")
			}
			db, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			pipeline, err := db.NewIngestionPipeline()
			if err != nil {
				return err
			}
			defer pipeline.Release()

			for _, id := range c.Args().Slice() {
				n, err := pipeline.Forget(c.Context, id)
				if err != nil {
					return fmt.Errorf("failed to forget %s: %w", id, err)
				}
				fmt.Fprintf(c.App.Writer, "Removed %d segments of %s\n", n, id)
			}
			return nil
		},
	}
}
