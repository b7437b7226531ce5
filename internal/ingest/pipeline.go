// Package ingest chains the parsing and filtering stages that turn raw
// telemetry into positions ready to be saved.
package ingest

import (
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/jengzang/antrak/internal/filter"
	"github.com/jengzang/antrak/internal/gpx"
	"github.com/jengzang/antrak/internal/models"
	"github.com/jengzang/antrak/internal/nmea"
)

// Format of a telemetry source.
type Format string

const (
	FormatNMEA Format = "nmea"
	FormatGPX  Format = "gpx"
)

// ParseFormat accepts "nmea" and "gpx" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatNMEA, FormatGPX:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// FormatOf guesses the format from a file name; .gpx is GPX, anything
// else NMEA.
func FormatOf(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".gpx") {
		return FormatGPX
	}
	return FormatNMEA
}

// NMEA returns the fixes of a sentence stream which pass the quality and
// vertical speed checks.
func NMEA(r io.Reader, t filter.Thresholds) iter.Seq2[models.Position, error] {
	t = t.WithDefaults()
	positions := nmea.BuildPositions(nmea.Assemble(nmea.ReadSentences(r)))
	return filter.Outliers(filter.Quality(positions, t.MaxDOP), t)
}

// Read returns the positions of r. GPX is read without filtering.
func Read(r io.Reader, f Format, t filter.Thresholds) iter.Seq2[models.Position, error] {
	if f == FormatGPX {
		return gpx.ReadPositions(r)
	}
	return NMEA(r, t)
}

// Files reads the files one after another as a single sequence. Each
// file is opened only when reached and closed when done.
func Files(names []string, t filter.Thresholds) iter.Seq2[models.Position, error] {
	return func(yield func(models.Position, error) bool) {
		for _, name := range names {
			if !readFile(name, t, yield) {
				return
			}
		}
	}
}

func readFile(name string, t filter.Thresholds, yield func(models.Position, error) bool) bool {
	f, err := os.Open(name)
	if err != nil {
		yield(models.Position{}, fmt.Errorf("failed to open %s: %w", name, err))
		return false
	}
	defer f.Close()

	for p, err := range Read(f, FormatOf(name), t) {
		if err != nil {
			yield(models.Position{}, fmt.Errorf("%s: %w", name, err))
			return false
		}
		if !yield(p, nil) {
			return false
		}
	}
	return true
}
