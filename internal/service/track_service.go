package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/antrak/internal/cache"
	"github.com/jengzang/antrak/internal/database"
	"github.com/jengzang/antrak/internal/filter"
	"github.com/jengzang/antrak/internal/ingest"
	"github.com/jengzang/antrak/internal/models"
	"github.com/jengzang/antrak/internal/repository"
)

// TrackService handles ingest and track registration
type TrackService struct {
	tx         *database.TxManager
	trackRepo  *repository.TrackRepository
	thresholds filter.Thresholds
	cache      cache.Cache
	log        *slog.Logger
}

// NewTrackService creates a new track service. c may be nil.
func NewTrackService(tx *database.TxManager, trackRepo *repository.TrackRepository, thresholds filter.Thresholds, c cache.Cache) *TrackService {
	return &TrackService{
		tx:         tx,
		trackRepo:  trackRepo,
		thresholds: thresholds.WithDefaults(),
		cache:      c,
		log:        slog.Default().With(slog.String("component", "track_service")),
	}
}

// Ingest saves the positions read from r.
func (s *TrackService) Ingest(ctx context.Context, device string, r io.Reader, format ingest.Format) (*models.IngestResult, error) {
	return s.save(ctx, device, func() (int, error) {
		return s.trackRepo.SavePositions(ctx, device, ingest.Read(r, format, s.thresholds))
	})
}

// SavePositions saves the positions of all files in one transaction. A
// file which cannot be read or parsed aborts the whole call.
func (s *TrackService) SavePositions(ctx context.Context, device string, files ...string) (*models.IngestResult, error) {
	return s.save(ctx, device, func() (int, error) {
		return s.trackRepo.SavePositions(ctx, device, ingest.Files(files, s.thresholds))
	})
}

func (s *TrackService) save(ctx context.Context, device string, fn func() (int, error)) (*models.IngestResult, error) {
	if device == "" {
		return nil, fmt.Errorf("device is required")
	}
	batch := uuid.NewString()
	log := s.log.With(slog.String("batch", batch), slog.String("device", device))
	log.Info("ingest started")

	saved, err := fn()
	if err != nil {
		log.Error("ingest failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save positions: %w", err)
	}
	s.invalidate(ctx, device)

	log.Info("ingest finished", slog.Int("saved", saved))
	return &models.IngestResult{BatchID: batch, Device: device, Saved: saved}, nil
}

// SetTrack registers a track. The window [start, end] is narrowed to the
// first and last stored position within it.
func (s *TrackService) SetTrack(ctx context.Context, device, trip, name string, start, end time.Time) (*models.Track, error) {
	if trip == "" || name == "" {
		return nil, fmt.Errorf("trip and name are required")
	}
	if end.Before(start) {
		return nil, fmt.Errorf("track end %s before start %s", end, start)
	}

	var track models.Track
	err := s.tx.Do(ctx, func(ctx context.Context, _ *database.Session) error {
		period, err := s.trackRepo.FindPeriod(ctx, device, start, end)
		if err != nil {
			return err
		}
		track = models.Track{Trip: trip, Name: name, Device: device, Start: period.Start, End: period.End}
		return s.trackRepo.AddTrack(ctx, track)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set track: %w", err)
	}
	s.invalidate(ctx, device)
	return &track, nil
}

// ListTracks returns the tracks of a device matching query.
func (s *TrackService) ListTracks(ctx context.Context, device, query string) ([]models.Track, error) {
	tracks, err := s.trackRepo.ListTracks(ctx, device, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	return tracks, nil
}

// invalidate moves the device to a new cache generation.
func (s *TrackService) invalidate(ctx context.Context, device string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, generationKey(device)); err != nil {
		s.log.Warn("cache invalidation failed", slog.String("device", device), slog.Any("error", err))
	}
}

func generationKey(device string) string { return "gen:" + device }
