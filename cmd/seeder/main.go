package main

import (
	"context"
	"flag"
	"iter"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/vitae"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/frontmatter"
	"github.com/poiesic/vitae/ingestion"
)

func date(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

var samples = []*core.SourceDocument{
	{
		ID:           "globex-staff",
		Category:     core.CategoryJob,
		Organization: "Globex",
		Title:        "Staff Engineer",
		Start:        date(2021, time.March),
		Summary:      "Led the platform group responsible for payments infrastructure.",
		Skills:       []string{"Go", "Kubernetes", "PostgreSQL"},
		Topics:       []string{"payments", "platform"},
		Outcomes: []string{
			"Cut settlement latency from hours to minutes",
			"Migrated forty services onto a shared Kubernetes platform",
		},
		Body: "Owned the ledger service and its reconciliation jobs.\n\n" +
			"Introduced load shedding and circuit breakers on the card authorization path, " +
			"which removed the weekly paging incidents during peak traffic.",
	},
	{
		ID:           "initech-senior",
		Category:     core.CategoryJob,
		Organization: "Initech",
		Title:        "Senior Software Engineer",
		Start:        date(2017, time.June),
		End:          date(2021, time.February),
		Summary:      "Built reporting pipelines for enterprise customers.",
		Skills:       []string{"Python", "Kafka", "PostgreSQL"},
		Topics:       []string{"data", "reporting"},
		Outcomes:     []string{"Replaced nightly batch exports with streaming updates"},
		Body: "Designed the event schema shared by billing and analytics.\n\n" +
			"Mentored four engineers through their first on-call rotations.",
	},
	{
		ID:           "tracker-oss",
		Category:     core.CategoryProject,
		Organization: "Open source",
		Title:        "Maintainer, tracker",
		Start:        date(2019, time.January),
		Summary:      "Maintain a distributed tracing collector used by several companies.",
		Skills:       []string{"Go", "gRPC", "OpenTelemetry"},
		Topics:       []string{"observability"},
		Body:         "Reviewed contributions, cut releases and kept the exporter API stable across three major versions.",
	},
	{
		ID:           "state-university",
		Category:     core.CategoryEducation,
		Organization: "State University",
		Title:        "B.S. Computer Science",
		Start:        date(2011, time.September),
		End:          date(2015, time.May),
		Skills:       []string{"C", "Algorithms"},
		Body:         "Senior thesis on consistent hashing for cache clusters.",
	},
}

var (
	srcDir    = flag.String("src", "", "directory of front matter documents to seed")
	dbPath    = flag.String("db", "./vitae_db", "database directory")
	batchSize = flag.Int("batch", 2, "documents per ingestion call")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// documentsFromSlice returns an iterator over a slice of documents.
func documentsFromSlice(docs []*core.SourceDocument) iter.Seq[*core.SourceDocument] {
	return func(yield func(*core.SourceDocument) bool) {
		for _, doc := range docs {
			if !yield(doc) {
				return
			}
		}
	}
}

// ingestBatched reads from a source iterator and ingests documents in batches.
func ingestBatched(ctx context.Context, pipeline *ingestion.Pipeline, source iter.Seq[*core.SourceDocument], batchSize int) (int, error) {
	batch := make([]*core.SourceDocument, 0, batchSize)
	stored := 0

	flush := func() error {
		report, err := pipeline.Ingest(ctx, batch...)
		if err != nil {
			return err
		}
		stored += report.Segments()
		batch = batch[:0]
		return report.Err()
	}

	for doc := range source {
		batch = append(batch, doc)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return stored, err
			}
		}
	}

	// Process any remaining documents
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return stored, err
		}
	}

	return stored, nil
}

func main() {
	db, err := vitae.NewDatabase(*dbPath)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	ingester, err := db.NewIngestionPipeline()
	if err != nil {
		panic(err)
	}
	defer ingester.Release()

	ctx := context.Background()

	// Determine source of seed data
	docs := samples
	if *srcDir != "" {
		docs, err = frontmatter.LoadDir(*srcDir)
		if err != nil {
			panic(err)
		}
	}

	stored, err := ingestBatched(ctx, ingester, documentsFromSlice(docs), max(*batchSize, 1))
	if err != nil {
		panic(err)
	}
	slog.Info("seeded store", "documents", len(docs), "segments", stored)
}
