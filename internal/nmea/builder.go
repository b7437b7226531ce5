package nmea

import (
	"context"
	"iter"
	"log/slog"
	"time"

	gonmea "github.com/adrianmo/go-nmea"

	"github.com/jengzang/antrak/internal/models"
	"github.com/jengzang/antrak/internal/observability"
)

var required = [...]string{TypeRMC, TypeGGA, TypeVTG, TypeGSA}

// BuildPosition converts a fix group into a position. A group missing
// one of the RMC, GGA, VTG or GSA sentences is an incomplete fix: it is
// logged at debug level and ok is false.
func BuildPosition(g FixGroup) (p models.Position, ok bool) {
	for _, t := range required {
		if _, found := g[t]; !found {
			slog.Default().LogAttrs(context.Background(), slog.LevelDebug, "incomplete fix",
				slog.String("component", "nmea"),
				slog.String("missing", t),
				slog.Int("sentences", len(g)),
			)
			return models.Position{}, false
		}
	}

	rmc, ok1 := g[TypeRMC].Value.(gonmea.RMC)
	gga, ok2 := g[TypeGGA].Value.(gonmea.GGA)
	vtg, ok3 := g[TypeVTG].Value.(gonmea.VTG)
	gsa, ok4 := g[TypeGSA].Value.(gonmea.GSA)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return models.Position{}, false
	}

	return models.Position{
		Longitude: rmc.Longitude,
		Latitude:  rmc.Latitude,
		Altitude:  gga.Altitude,
		Timestamp: fixTime(rmc.Date, rmc.Time),
		Heading:   vtg.TrueTrack,
		Speed:     vtg.GroundSpeedKPH,
		Is3D:      gsa.FixType == gonmea.Fix3D,
		HDOP:      gsa.HDOP,
		VDOP:      gsa.VDOP,
		PDOP:      gsa.PDOP,
	}, true
}

// BuildPositions lazily converts fix groups, dropping incomplete fixes.
func BuildPositions(groups iter.Seq2[FixGroup, error]) iter.Seq2[models.Position, error] {
	return func(yield func(models.Position, error) bool) {
		for g, err := range groups {
			if err != nil {
				yield(models.Position{}, err)
				return
			}
			p, ok := BuildPosition(g)
			if !ok {
				observability.FixesDropped.WithLabelValues(observability.ReasonIncomplete).Inc()
				continue
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

// fixTime combines RMC date and time. Two digit years are in 2000-2099.
func fixTime(d gonmea.Date, t gonmea.Time) time.Time {
	return time.Date(
		2000+d.YY, time.Month(d.MM), d.DD,
		t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond),
		time.UTC,
	)
}
