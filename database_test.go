package vitae

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/vitae/ai/mock"
	"github.com/poiesic/vitae/config"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/ingestion"
	"github.com/poiesic/vitae/retrieval"
	"github.com/poiesic/vitae/tokens"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(opts ...DatabaseOption) []DatabaseOption {
	return append([]DatabaseOption{
		WithProvider(mock.NewMockProvider()),
		WithCounter(tokens.EstimateCounter{}),
		WithConfig(config.NewConfig(config.WithRetry(3, time.Millisecond))),
	}, opts...)
}

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir, testOptions()...)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		// Verify components are initialized
		assert.NotNil(t, db.SegmentRepository())
		assert.NotNil(t, db.StateRepository())
		assert.NotNil(t, db.Provider())
		assert.NotNil(t, db.Metrics())
		assert.Equal(t, config.CurrentVersion, db.Config().Version)
		assert.NotNil(t, db.backend)
		assert.NotNil(t, db.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create a database at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile, testOptions()...)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("error with invalid config", func(t *testing.T) {
		bad := config.NewConfig(config.WithBudget(200, 100, 50))
		db, err := NewDatabase(t.TempDir(), testOptions(WithConfig(bad))...)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase(t.TempDir(), testOptions()...)
	require.NoError(t, err)
	require.NotNil(t, db)

	// Close the database
	err = db.Close()
	assert.NoError(t, err)
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db, err := NewDatabase("", testOptions(WithInMemory())...)
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	t.Run("can create extractor", func(t *testing.T) {
		extractor, err := db.NewExtractor()
		require.NoError(t, err)
		assert.Equal(t, db.Config().Budget, extractor.Limits())
	})

	t.Run("can create ingestion pipeline", func(t *testing.T) {
		pipeline, err := db.NewIngestionPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		pipeline.Release()
	})

	t.Run("can create retriever", func(t *testing.T) {
		retriever, err := db.NewRetriever()
		require.NoError(t, err)
		assert.Same(t, db.Config(), retriever.Config())
	})

	t.Run("can create reembedder", func(t *testing.T) {
		reembedder, err := db.NewReembedder(nil, nil)
		require.NoError(t, err)
		require.NotNil(t, reembedder)
	})
}

func TestDatabase_IngestAndRetrieve(t *testing.T) {
	reg := prometheus.NewRegistry()
	db, err := NewDatabase("", testOptions(WithInMemory(), WithRegistry(reg))...)
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	pipeline, err := db.NewIngestionPipeline(ingestion.WithPoolSize(2))
	require.NoError(t, err)
	defer pipeline.Release()

	doc := &core.SourceDocument{
		ID:           "initech-lead",
		Category:     core.CategoryJob,
		Organization: "Initech",
		Title:        "Tech Lead",
		Start:        time.Date(2022, time.July, 1, 0, 0, 0, 0, time.UTC),
		Summary:      "Led the payments platform team through a migration to Kubernetes.",
		Skills:       []string{"Kubernetes", "PostgreSQL"},
		Topics:       []string{"payments"},
		Body: "- Led a team of six engineers building the payments platform.\n" +
			"- Migrated 40 services to Kubernetes with zero downtime.\n" +
			"- Tuned PostgreSQL queries, cutting p99 latency by 35%.",
	}
	report, err := pipeline.Ingest(ctx, doc)
	require.NoError(t, err)
	require.NoError(t, report.Err())
	require.Positive(t, report.Segments())

	retriever, err := db.NewRetriever()
	require.NoError(t, err)
	result, err := retriever.Retrieve(ctx, retrieval.Query{Text: "Kubernetes migration"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)
	for _, hit := range result.Candidates {
		assert.Equal(t, "initech-lead", hit.Segment.DocumentID)
	}
	assert.True(t, result.ImplicitFilters)
	assert.Contains(t, result.Filters.Skills, "Kubernetes", "stored vocabulary feeds implicit filters")

	var out bytes.Buffer
	reembedder, err := db.NewReembedder(nil, &out)
	require.NoError(t, err)
	summary, err := reembedder.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.Segments(), summary.Segments)
	assert.Equal(t, 1, summary.Documents)
	assert.Equal(t, summary.Dimensions, summary.PreviousDimensions, "same embedder keeps the dimension")

	families, err := reg.Gather()
	require.NoError(t, err)
	reembedded := 0.0
	for _, f := range families {
		if f.GetName() == "vitae_segments_reembedded_total" {
			reembedded = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(summary.Segments), reembedded)
}
