package retrieval

import (
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/scoring"
)

// RetrievalMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results.
type RetrievalMonitor interface {
	Start(query Query)
	AfterExpansion(expansions []string)
	AfterEmbedding(dimensions int)
	ThresholdChosen(threshold float64, filters core.Filters, implicit bool)
	AfterSearch(path scoring.Path, matches int)
	AfterValidation(kept, dropped int)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of RetrievalMonitor
type noopMonitor struct{}

var _ RetrievalMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Query)                                     {}
func (n *noopMonitor) AfterExpansion(_ []string)                         {}
func (n *noopMonitor) AfterEmbedding(_ int)                              {}
func (n *noopMonitor) ThresholdChosen(_ float64, _ core.Filters, _ bool) {}
func (n *noopMonitor) AfterSearch(_ scoring.Path, _ int)                 {}
func (n *noopMonitor) AfterValidation(_, _ int)                          {}
func (n *noopMonitor) Finish(_ *Result)                                  {}
