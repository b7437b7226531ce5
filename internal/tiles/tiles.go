// Package tiles fetches map tiles through a shared read-through cache.
package tiles

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/jengzang/antrak/internal/cache"
)

// TileSize is the edge of a tile in pixels.
const TileSize = 256

// MaxZoom is the highest zoom level used.
const MaxZoom = maptile.Zoom(18)

// Provider is a tile URL template with {z}, {x} and {y} placeholders.
type Provider string

// OpenStreetMap is the default provider.
const OpenStreetMap Provider = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"

// URL returns the address of t.
func (p Provider) URL(t maptile.Tile) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(int(t.Z)),
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(t.Y), 10),
	).Replace(string(p))
}

// Downloader fetches a tile image.
type Downloader interface {
	Fetch(ctx context.Context, t maptile.Tile) ([]byte, error)
}

// HTTPDownloader fetches tiles from a provider.
type HTTPDownloader struct {
	Provider Provider
	Client   *http.Client
}

func (d *HTTPDownloader) Fetch(ctx context.Context, t maptile.Tile) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.Provider.URL(t), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "antrak")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tile %v: %w", t, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tile %v: http status %d", t, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Cached reads tiles through a cache.
type Cached struct {
	Next     Downloader
	Cache    cache.Cache
	Provider Provider
	TTL      time.Duration
}

func (c *Cached) Fetch(ctx context.Context, t maptile.Tile) ([]byte, error) {
	key := "tile:" + c.Provider.URL(t)
	return cache.ReadThrough(ctx, c.Cache, key, c.TTL, func(ctx context.Context) ([]byte, error) {
		return c.Next.Fetch(ctx, t)
	})
}

// Cover returns the zoom level and the tiles showing extent (min x,
// min y, max x, max y) on a map of width x height pixels.
func Cover(extent [4]float64, width, height int) (maptile.Zoom, []maptile.Tile) {
	z := MaxZoom
	for ; z > 0; z-- {
		lo, hi := corners(extent, z)
		if int(hi.X-lo.X+1)*TileSize <= width && int(lo.Y-hi.Y+1)*TileSize <= height {
			break
		}
	}

	lo, hi := corners(extent, z)
	var out []maptile.Tile
	for y := hi.Y; y <= lo.Y; y++ {
		for x := lo.X; x <= hi.X; x++ {
			out = append(out, maptile.New(x, y, z))
		}
	}
	return z, out
}

// corners returns the tiles of the south-west and north-east corner. Tile
// rows grow southwards.
func corners(extent [4]float64, z maptile.Zoom) (sw, ne maptile.Tile) {
	sw = maptile.At(orb.Point{extent[0], extent[1]}, z)
	ne = maptile.At(orb.Point{extent[2], extent[3]}, z)
	return sw, ne
}
