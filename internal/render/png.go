package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

const tileSize = 256

// PNG draws the track over the base map tiles, centered on the track
// extent, with a caption in the top left corner.
type PNG struct {
	Line      color.Color // track color, red when nil
	LineWidth float64     // pixels, 3 when zero
	Caption   bool
}

func (PNG) Ext() string     { return ".png" }
func (PNG) UsesTiles() bool { return true }

func (r PNG) Render(ctx context.Context, m Map, w io.Writer) error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("png: invalid map size %dx%d", m.Width, m.Height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	// world pixel of the canvas origin
	ext := m.Track.Extent
	center := worldPixel(orb.Point{(ext[0] + ext[2]) / 2, (ext[1] + ext[3]) / 2}, m.Zoom)
	origin := orb.Point{center.X() - float64(m.Width)/2, center.Y() - float64(m.Height)/2}

	for _, t := range m.Tiles {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, _, err := image.Decode(bytes.NewReader(t.Data))
		if err != nil {
			return fmt.Errorf("png: tile %v: %w", t.Tile, err)
		}
		x := int(math.Round(float64(t.X)*tileSize - origin.X()))
		y := int(math.Round(float64(t.Y)*tileSize - origin.Y()))
		// high resolution tiles are scaled down
		draw.ApproxBiLinear.Scale(dst, image.Rect(x, y, x+tileSize, y+tileSize), src, src.Bounds(), draw.Over, nil)
	}

	r.drawTrack(dst, m, origin)
	if r.Caption {
		caption(dst, m.Track.Trip+" - "+m.Track.Name)
	}

	if err := png.Encode(w, dst); err != nil {
		return fmt.Errorf("png: %w", err)
	}
	return nil
}

// drawTrack strokes the track as one quad per segment.
func (r PNG) drawTrack(dst *image.RGBA, m Map, origin orb.Point) {
	lineColor := r.Line
	if lineColor == nil {
		lineColor = color.RGBA{R: 0xe0, A: 0xff}
	}
	half := r.LineWidth / 2
	if half <= 0 {
		half = 1.5
	}

	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over

	var prev orb.Point
	for i, p := range m.Track.Positions {
		wp := worldPixel(orb.Point(p), m.Zoom)
		cur := orb.Point{wp.X() - origin.X(), wp.Y() - origin.Y()}
		if i > 0 {
			segment(z, prev, cur, half)
		}
		prev = cur
	}
	if len(m.Track.Positions) == 1 {
		segment(z, prev, orb.Point{prev.X() + 0.01, prev.Y()}, half)
	}
	z.Draw(dst, b, image.NewUniform(lineColor), image.Point{})
}

func segment(z *vector.Rasterizer, a, b orb.Point, half float64) {
	dx, dy := b.X()-a.X(), b.Y()-a.Y()
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	// normal scaled to half the line width, segment extended by the same
	nx, ny := -dy/l*half, dx/l*half
	ex, ey := dx/l*half, dy/l*half
	z.MoveTo(float32(a.X()-ex+nx), float32(a.Y()-ey+ny))
	z.LineTo(float32(b.X()+ex+nx), float32(b.Y()+ey+ny))
	z.LineTo(float32(b.X()+ex-nx), float32(b.Y()+ey-ny))
	z.LineTo(float32(a.X()-ex-nx), float32(a.Y()-ey-ny))
	z.ClosePath()
}

func caption(dst *image.RGBA, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	draw.Draw(dst, image.Rect(0, 0, width+8, 18), image.NewUniform(color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xc0}), image.Point{}, draw.Over)

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(4, 13),
	}
	drawer.DrawString(text)
}

// worldPixel projects a lon/lat point to pixels of the whole map at z.
func worldPixel(p orb.Point, z maptile.Zoom) orb.Point {
	f := maptile.Fraction(p, z)
	return orb.Point{f.X() * tileSize, f.Y() * tileSize}
}
