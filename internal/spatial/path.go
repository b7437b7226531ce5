package spatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// SimplifyTolerance is the Douglas-Peucker tolerance, in degrees, applied
// before measuring a track.
const SimplifyTolerance = 0.0003

// Simplify returns a Douglas-Peucker simplified copy of the path. The
// input is not modified.
func Simplify(path orb.LineString, tolerance float64) orb.LineString {
	if len(path) < 3 {
		return path.Clone()
	}
	out, ok := simplify.DouglasPeucker(tolerance).Simplify(path.Clone()).(orb.LineString)
	if !ok {
		return path.Clone()
	}
	return out
}

// Length returns the great-circle length of a lon/lat path in meters.
func Length(path orb.LineString) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		a, b := path[i-1], path[i]
		total += HaversineDistance(a.Lat(), a.Lon(), b.Lat(), b.Lon())
	}
	return total
}

// TrackLength returns the length of the path simplified with
// SimplifyTolerance.
func TrackLength(path orb.LineString) float64 {
	return Length(Simplify(path, SimplifyTolerance))
}

// Extent returns min x, min y, max x, max y of the path.
func Extent(path orb.LineString) [4]float64 {
	if len(path) == 0 {
		return [4]float64{}
	}
	b := path.Bound()
	return [4]float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
}
