package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/antrak/internal/models"
)

func TestGeoJSON(t *testing.T) {
	m := Map{Track: models.TrackPositions{
		Trip:      "Harz",
		Name:      "loop",
		Start:     time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC),
		Extent:    [4]float64{11, 47, 11.1, 47.2},
		Positions: [][2]float64{{11, 47}, {11.1, 47.1}, {11.05, 47.2}},
	}}

	var buf bytes.Buffer
	require.NoError(t, GeoJSON{}.Render(context.Background(), m, &buf))

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	assert.Equal(t, orb.LineString{{11, 47}, {11.1, 47.1}, {11.05, 47.2}}, f.Geometry)
	assert.Equal(t, "loop", f.Properties.MustString("name"))
	assert.Equal(t, geojson.BBox{11, 47, 11.1, 47.2}, f.BBox)
	assert.False(t, GeoJSON{}.UsesTiles())
}

func tilePNG(t *testing.T, size int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPNG(t *testing.T) {
	extent := [4]float64{11.0, 47.0, 11.01, 47.01}
	zoom := maptile.Zoom(14)
	green := color.RGBA{G: 0xff, A: 0xff}

	var tiles []Tile
	sw := maptile.At(orb.Point{extent[0], extent[1]}, zoom)
	ne := maptile.At(orb.Point{extent[2], extent[3]}, zoom)
	// one extra ring, the canvas is larger than the extent
	for y := ne.Y - 1; y <= sw.Y+1; y++ {
		for x := sw.X - 1; x <= ne.X+1; x++ {
			// high resolution tiles are scaled to 256 px
			tiles = append(tiles, Tile{Tile: maptile.New(x, y, zoom), Data: tilePNG(t, 512, green)})
		}
	}

	m := Map{
		Track: models.TrackPositions{
			Trip:      "Harz",
			Name:      "loop",
			Extent:    extent,
			Positions: [][2]float64{{11.0, 47.0}, {11.01, 47.01}},
		},
		Width:  300,
		Height: 200,
		Zoom:   zoom,
		Tiles:  tiles,
	}

	var buf bytes.Buffer
	r := PNG{Line: color.RGBA{B: 0xff, A: 0xff}, LineWidth: 4}
	require.NoError(t, r.Render(context.Background(), m, &buf))
	assert.Equal(t, ".png", r.Ext())

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 300, 200), img.Bounds())

	// the track passes through the center, the corners show the tiles
	_, _, b, _ := img.At(150, 100).RGBA()
	assert.Equal(t, uint32(0xffff), b)
	r0, g0, b0, _ := img.At(2, 198).RGBA()
	assert.Equal(t, []uint32{0, 0xffff, 0}, []uint32{r0, g0, b0})
}

func TestPNG_BadTile(t *testing.T) {
	m := Map{
		Width: 10, Height: 10, Zoom: 1,
		Tiles: []Tile{{Tile: maptile.New(0, 0, 1), Data: []byte("not an image")}},
	}
	assert.Error(t, PNG{}.Render(context.Background(), m, io.Discard))
}

func TestNew(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)
	assert.Equal(t, ".png", r.Ext())

	r, err = New("geojson")
	require.NoError(t, err)
	assert.Equal(t, ".geojson", r.Ext())

	_, err = New("svg")
	assert.Error(t, err)
}
