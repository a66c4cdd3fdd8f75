package surface

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/contactkeval/vol-surface/internal/pricing"
)

// Point is one (strike, time-to-expiry, implied vol) sample of the surface.
// Vol is a decimal fraction, 0.20 for 20%.
type Point struct {
	Kind         pricing.OptionKind `json:"kind" csv:"kind"`
	Strike       float64            `json:"strike" csv:"strike"`
	TimeToExpiry float64            `json:"time_to_expiry" csv:"time_to_expiry"`
	Vol          float64            `json:"implied_vol" csv:"implied_vol"`
}

// Surface is the result of one build, partitioned by option kind.
type Surface struct {
	RunID   string        `json:"run_id"`
	Ticker  string        `json:"ticker"`
	Spot    float64       `json:"spot"`
	AsOf    time.Time     `json:"as_of"`
	Calls   []Point       `json:"calls"`
	Puts    []Point       `json:"puts"`
	Results []QuoteResult `json:"results,omitempty"`
	Summary Summary       `json:"summary"`
}

// Points returns calls followed by puts.
func (s *Surface) Points() []Point {
	out := make([]Point, 0, len(s.Calls)+len(s.Puts))
	out = append(out, s.Calls...)
	return append(out, s.Puts...)
}

// Summary counts quote outcomes and describes the solved vols.
type Summary struct {
	Quotes        int      `json:"quotes"`
	Filtered      int      `json:"filtered"`
	Invalid       int      `json:"invalid"`
	NonComputable int      `json:"non_computable"`
	Divergent     int      `json:"divergent"`
	Converged     int      `json:"converged"`
	Calls         VolStats `json:"calls"`
	Puts          VolStats `json:"puts"`
}

// VolStats describes a set of implied vols.
type VolStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// Describe computes VolStats over the vols of points. Empty input yields a
// zero value.
func Describe(points []Point) VolStats {
	if len(points) == 0 {
		return VolStats{}
	}
	vols := make(stats.Float64Data, len(points))
	for i, p := range points {
		vols[i] = p.Vol
	}

	out := VolStats{Count: len(vols)}
	// stats only errors on empty input, which is excluded above.
	out.Mean, _ = stats.Mean(vols)
	out.Median, _ = stats.Median(vols)
	out.Min, _ = stats.Min(vols)
	out.Max, _ = stats.Max(vols)
	out.StdDev, _ = stats.StandardDeviation(vols)
	return out
}

// sortPoints orders by time to expiry, then strike.
func sortPoints(p []Point) {
	sort.Slice(p, func(i, j int) bool {
		if p[i].TimeToExpiry != p[j].TimeToExpiry {
			return p[i].TimeToExpiry < p[j].TimeToExpiry
		}
		return p[i].Strike < p[j].Strike
	})
}
