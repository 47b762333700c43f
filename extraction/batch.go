package extraction

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vitae/core"
)

// BatchResult collects the outcome of ExtractBatch, keyed by document key.
type BatchResult struct {
	RunID    string
	Segments map[string][]*core.EvidenceSegment
	Failures map[string]error
}

// SegmentCount returns the number of segments across all documents.
func (r *BatchResult) SegmentCount() int {
	n := 0
	for _, segs := range r.Segments {
		n += len(segs)
	}
	return n
}

// ExtractBatch extracts docs concurrently within a single Run. A failing
// document is recorded in Failures and does not stop the others. The returned
// error is non-nil only when the worker pool cannot be created.
func (e *Extractor) ExtractBatch(ctx context.Context, docs []*core.SourceDocument) (*BatchResult, error) {
	pool, err := ants.NewPool(e.poolSize)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	run := NewRun()
	result := &BatchResult{
		RunID:    run.ID(),
		Segments: make(map[string][]*core.EvidenceSegment),
		Failures: make(map[string]error),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(key string, segs []*core.EvidenceSegment, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Failures[key] = err
			return
		}
		result.Segments[key] = segs
	}

	for i, doc := range docs {
		key := fmt.Sprintf("#%d", i)
		if doc != nil {
			key = doc.Key()
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			segs, err := e.Extract(ctx, run, doc)
			if err != nil {
				e.logger.Warn("document extraction failed", "run", run.ID(), "document", key, "err", err)
			}
			record(key, segs, err)
		})
		if submitErr != nil {
			wg.Done()
			record(key, nil, submitErr)
		}
	}
	wg.Wait()

	e.logger.Info("batch extracted",
		"run", run.ID(),
		"documents", len(docs),
		"segments", result.SegmentCount(),
		"failures", len(result.Failures))
	return result, nil
}
