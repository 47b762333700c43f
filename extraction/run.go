package extraction

import (
	"sync"

	"github.com/google/uuid"
)

// Run is the dedup scope of one extraction batch. Fingerprints claimed in a
// Run are never emitted twice within it. A Run is safe for concurrent use.
type Run struct {
	id   string
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewRun starts an empty run with a fresh ID.
func NewRun() *Run {
	return &Run{
		id:   uuid.NewString(),
		seen: make(map[string]struct{}),
	}
}

// ID identifies the run in logs.
func (r *Run) ID() string {
	return r.id
}

// Claim records fingerprint and reports whether it was new to the run.
func (r *Run) Claim(fingerprint string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[fingerprint]; ok {
		return false
	}
	r.seen[fingerprint] = struct{}{}
	return true
}

// Seen reports whether fingerprint was already claimed.
func (r *Run) Seen(fingerprint string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[fingerprint]
	return ok
}

// Len returns the number of claimed fingerprints.
func (r *Run) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

// Reset forgets every claimed fingerprint. The ID is kept.
func (r *Run) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = make(map[string]struct{})
}
