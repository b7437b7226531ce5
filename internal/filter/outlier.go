package filter

import (
	"iter"
	"math"

	"github.com/jengzang/antrak/internal/models"
	"github.com/jengzang/antrak/internal/observability"
)

// Plausible reports whether the altitude change from earlier to later is
// physically plausible. Fixes at least t.MinInterval apart always are.
// Fixes with equal timestamps are not.
func (t Thresholds) Plausible(earlier, later models.Position) bool {
	dt := later.Timestamp.Sub(earlier.Timestamp)
	if dt < 0 {
		dt = -dt
	}
	if dt >= t.MinInterval {
		return true
	}
	if dt == 0 {
		return false
	}
	rate := math.Abs(later.Altitude-earlier.Altitude) / dt.Seconds()
	return rate < t.MaxVerticalSpeed
}

// Outliers removes positions with an implausible vertical speed.
//
// Each position is judged against the position following it and is
// emitted only when Plausible holds for the pair. The last position has
// no partner and is never emitted, so a single position input yields
// nothing. Input order is kept.
func Outliers(positions iter.Seq2[models.Position, error], t Thresholds) iter.Seq2[models.Position, error] {
	t = t.WithDefaults()
	return func(yield func(models.Position, error) bool) {
		var prev models.Position
		have := false
		for p, err := range positions {
			if err != nil {
				yield(p, err)
				return
			}
			if have {
				if t.Plausible(prev, p) {
					if !yield(prev, nil) {
						return
					}
				} else {
					observability.FixesDropped.WithLabelValues(observability.ReasonOutlier).Inc()
				}
			}
			prev, have = p, true
		}
	}
}
