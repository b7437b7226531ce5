package filter

import (
	"iter"

	"github.com/jengzang/antrak/internal/models"
	"github.com/jengzang/antrak/internal/observability"
)

// GoodFix reports whether p is a 3D fix with all dilution of precision
// values below maxDOP.
func GoodFix(p models.Position, maxDOP float64) bool {
	return p.Is3D && p.HDOP < maxDOP && p.VDOP < maxDOP && p.PDOP < maxDOP
}

// Quality drops positions failing GoodFix. Errors are passed on.
func Quality(positions iter.Seq2[models.Position, error], maxDOP float64) iter.Seq2[models.Position, error] {
	return func(yield func(models.Position, error) bool) {
		for p, err := range positions {
			if err != nil {
				yield(p, err)
				return
			}
			if !GoodFix(p, maxDOP) {
				observability.FixesDropped.WithLabelValues(observability.ReasonQuality).Inc()
				continue
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}
