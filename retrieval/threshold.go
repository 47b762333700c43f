package retrieval

import (
	"math"

	"github.com/poiesic/vitae/config"
)

// baselineTerms is the term count at which the base threshold applies.
const baselineTerms = 3

// adaptiveThreshold picks the similarity floor for a query. Each meaningful
// term beyond three raises it by one step, each one short of three lowers
// it, and filters add one more step. The result stays within the
// configured bounds.
func adaptiveThreshold(r config.Retrieval, meaningfulTerms int, filtered bool) float64 {
	t := r.BaseThreshold + r.ThresholdStep*float64(meaningfulTerms-baselineTerms)
	if filtered {
		t += r.ThresholdStep
	}
	t = math.Max(r.MinThreshold, math.Min(r.MaxThreshold, t))
	// drop float noise such as 0.30000000000000004
	return math.Round(t*1e6) / 1e6
}
