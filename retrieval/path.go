package retrieval

import "github.com/poiesic/vitae/scoring"

// pathState tracks which store query feeds the candidate set of one call.
// It starts on the vector path and moves to the lexical path at most once,
// only when the vector path produced nothing. There is no transition back.
type pathState struct {
	current scoring.Path
}

func newPathState() *pathState {
	return &pathState{current: scoring.PathVector}
}

// vectorDone records the vector result count and reports whether the
// lexical fallback must run.
func (p *pathState) vectorDone(n int) bool {
	if p.current != scoring.PathVector || n > 0 {
		return false
	}
	p.current = scoring.PathLexical
	return true
}

func (p *pathState) path() scoring.Path {
	return p.current
}
