package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb/maptile"
	"golang.org/x/sync/errgroup"

	"github.com/jengzang/antrak/internal/models"
	"github.com/jengzang/antrak/internal/observability"
	"github.com/jengzang/antrak/internal/render"
	"github.com/jengzang/antrak/internal/repository"
	"github.com/jengzang/antrak/internal/tiles"
)

// MapService renders one map per matching track
type MapService struct {
	trackRepo  *repository.TrackRepository
	renderer   render.Renderer
	downloader tiles.Downloader
	width      int
	height     int
	log        *slog.Logger
}

// NewMapService creates a new map service. downloader is shared by all
// render tasks and may be nil when the renderer uses no tiles.
func NewMapService(trackRepo *repository.TrackRepository, renderer render.Renderer, downloader tiles.Downloader, width, height int) *MapService {
	return &MapService{
		trackRepo:  trackRepo,
		renderer:   renderer,
		downloader: downloader,
		width:      width,
		height:     height,
		log:        slog.Default().With(slog.String("component", "map_service")),
	}
}

// MapFileName returns "<start date> - <trip> - <name><ext>".
func MapFileName(t models.TrackPositions, ext string) string {
	return fmt.Sprintf("%s - %s - %s%s", t.Start.Format("2006-01-02"), t.Trip, t.Name, ext)
}

// Render loads the matching tracks and renders them concurrently into
// dir. It returns the written files in track order. Rendering does not
// touch the database.
func (s *MapService) Render(ctx context.Context, device, query, dir string) ([]string, error) {
	tracks, err := s.trackRepo.LoadPositions(ctx, device, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}

	files := make([]string, len(tracks))
	g, ctx := errgroup.WithContext(ctx)
	for i, t := range tracks {
		files[i] = filepath.Join(dir, MapFileName(t, s.renderer.Ext()))
		g.Go(func() error {
			return s.renderTrack(ctx, t, files[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (s *MapService) renderTrack(ctx context.Context, t models.TrackPositions, output string) error {
	start := time.Now()
	s.log.Debug("rendering map", slog.String("output", output), slog.Any("extent", t.Extent))

	m := render.Map{Track: t, Width: s.width, Height: s.height}
	if s.renderer.UsesTiles() {
		if s.downloader == nil {
			return fmt.Errorf("renderer needs tiles but no downloader is configured")
		}
		var cover []maptile.Tile
		m.Zoom, cover = tiles.Cover(t.Extent, s.width, s.height)
		for _, tile := range cover {
			data, err := s.downloader.Fetch(ctx, tile)
			if err != nil {
				return err
			}
			m.Tiles = append(m.Tiles, render.Tile{Tile: tile, Data: data})
		}
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	if err := s.renderer.Render(ctx, m, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	observability.RenderLatency.Observe(time.Since(start).Seconds())
	s.log.Debug("written map", slog.String("output", output))
	return nil
}
