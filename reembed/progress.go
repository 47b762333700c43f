package reembed

import (
	"fmt"
	"io"
	"maps"
	"sync"
	"time"

	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/storage"
)

// Recorder receives the outcome of each reembedded batch. *metrics.Metrics
// satisfies it.
type Recorder interface {
	SegmentsReembedded(n, dimensions int)
}

// progress follows a run against the store contents captured before it
// started. It counts segments per document and writes a status line every
// interval segments.
type progress struct {
	mu       sync.Mutex
	out      io.Writer
	before   storage.Stats
	interval int
	recorder Recorder
	clock    func() time.Time

	start      time.Time
	segments   int
	reported   int
	dimensions int
	documents  map[string]int
}

func newProgress(out io.Writer, before storage.Stats, interval int, recorder Recorder, clock func() time.Time) *progress {
	if clock == nil {
		clock = time.Now
	}
	return &progress{
		out:       out,
		before:    before,
		interval:  max(interval, 1),
		recorder:  recorder,
		clock:     clock,
		start:     clock(),
		documents: make(map[string]int),
	}
}

// record accounts for a batch embedded at the given dimension.
func (p *progress) record(batch []*core.EvidenceSegment, dimensions int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, seg := range batch {
		p.documents[seg.DocumentID]++
	}
	p.segments += len(batch)
	p.dimensions = dimensions
	if p.recorder != nil {
		p.recorder.SegmentsReembedded(len(batch), dimensions)
	}

	if p.segments-p.reported >= p.interval {
		p.status()
		p.reported = p.segments
	}
}

// perDocument returns the number of segments reembedded for each document.
func (p *progress) perDocument() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return maps.Clone(p.documents)
}

// summary describes the run so far.
func (p *progress) summary() *Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summaryLocked()
}

func (p *progress) summaryLocked() *Summary {
	return &Summary{
		Segments:           p.segments,
		Documents:          len(p.documents),
		Dimensions:         p.dimensions,
		PreviousDimensions: p.before.Dimensions,
		Elapsed:            p.clock().Sub(p.start),
	}
}

// finish writes the final status line and notes a change of vector dimension.
func (p *progress) finish() *Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status()
	fmt.Fprintln(p.out)
	if p.before.Dimensions > 0 && p.dimensions > 0 && p.before.Dimensions != p.dimensions {
		fmt.Fprintf(p.out, "Vector dimensions changed from %d to %d\n", p.before.Dimensions, p.dimensions)
	}
	return p.summaryLocked()
}

// status prints the current counts. Must be called with lock held.
func (p *progress) status() {
	percentage := 100.0
	if p.before.Segments > 0 {
		percentage = float64(p.segments) / float64(p.before.Segments) * 100
	}
	rate := 0.0
	if elapsed := p.clock().Sub(p.start).Seconds(); elapsed > 0 {
		rate = float64(p.segments) / elapsed
	}

	fmt.Fprintf(p.out, "\rReembedded %d/%d segments across %d/%d documents (%.1f%%) - %.1f segments/s",
		p.segments, p.before.Segments, len(p.documents), p.before.Documents, percentage, rate)
}
