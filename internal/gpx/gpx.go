// Package gpx reads track points from GPX 1.1 documents.
package gpx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/jengzang/antrak/internal/models"
)

type trackPoint struct {
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Ele  float64 `xml:"ele"`
	Time string  `xml:"time"`
}

// ReadPositions lazily yields a position for every trkpt element. Times
// without a zone are taken as UTC. GPX carries no heading or speed, so
// every position has NoCourse set.
func ReadPositions(r io.Reader) iter.Seq2[models.Position, error] {
	return func(yield func(models.Position, error) bool) {
		dec := xml.NewDecoder(r)
		for {
			tok, err := dec.Token()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(models.Position{}, fmt.Errorf("gpx: %w", err))
				return
			}
			start, ok := tok.(xml.StartElement)
			if !ok || start.Name.Local != "trkpt" {
				continue
			}

			var tp trackPoint
			if err := dec.DecodeElement(&tp, &start); err != nil {
				yield(models.Position{}, fmt.Errorf("gpx: trkpt: %w", err))
				return
			}
			ts, err := parseTime(tp.Time)
			if err != nil {
				yield(models.Position{}, fmt.Errorf("gpx: trkpt time %q: %w", tp.Time, err))
				return
			}
			p := models.Position{
				Longitude: tp.Lon,
				Latitude:  tp.Lat,
				Altitude:  tp.Ele,
				Timestamp: ts,
				NoCourse:  true,
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC)
}
