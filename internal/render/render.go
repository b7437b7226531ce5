// Package render defines how a track map is drawn. Raster composition is
// left to Renderer implementations; GeoJSON writes a vector overlay.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/jengzang/antrak/internal/models"
)

// Tile is a fetched base map tile.
type Tile struct {
	maptile.Tile
	Data []byte
}

// Map is everything needed to draw one track.
type Map struct {
	Track  models.TrackPositions
	Width  int
	Height int
	Zoom   maptile.Zoom
	Tiles  []Tile // empty unless the renderer uses tiles
}

// Renderer draws a map.
type Renderer interface {
	// Ext is the output file extension, with the dot.
	Ext() string
	// UsesTiles tells whether Map.Tiles must be filled.
	UsesTiles() bool
	Render(ctx context.Context, m Map, w io.Writer) error
}

// GeoJSON writes the track as a LineString feature and the map extent as
// a bounding box.
type GeoJSON struct{}

func (GeoJSON) Ext() string     { return ".geojson" }
func (GeoJSON) UsesTiles() bool { return false }

func (GeoJSON) Render(_ context.Context, m Map, w io.Writer) error {
	line := make(orb.LineString, len(m.Track.Positions))
	for i, p := range m.Track.Positions {
		line[i] = orb.Point(p)
	}

	f := geojson.NewFeature(line)
	f.Properties["trip"] = m.Track.Trip
	f.Properties["name"] = m.Track.Name
	f.Properties["start"] = m.Track.Start
	f.BBox = geojson.BBox(m.Track.Extent[:])

	fc := geojson.NewFeatureCollection()
	fc.Append(f)

	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("geojson: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// New returns the renderer for format "png" or "geojson".
func New(format string) (Renderer, error) {
	switch format {
	case "", "png":
		return PNG{Caption: true}, nil
	case "geojson":
		return GeoJSON{}, nil
	}
	return nil, fmt.Errorf("unknown map format %q", format)
}
