package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/jengzang/antrak/internal/cache"
	"github.com/jengzang/antrak/internal/models"
	"github.com/jengzang/antrak/internal/repository"
)

// ReportService serves track statistics through the cache
type ReportService struct {
	trackRepo *repository.TrackRepository
	cache     cache.Cache
	ttl       time.Duration
	log       *slog.Logger
}

// NewReportService creates a new report service. c may be nil.
func NewReportService(trackRepo *repository.TrackRepository, c cache.Cache, ttl time.Duration) *ReportService {
	return &ReportService{
		trackRepo: trackRepo,
		cache:     c,
		ttl:       ttl,
		log:       slog.Default().With(slog.String("component", "report_service")),
	}
}

// Summary returns the statistics of the tracks matching query.
func (s *ReportService) Summary(ctx context.Context, device, query string) ([]models.TrackSummary, error) {
	load := func(ctx context.Context) ([]byte, error) {
		rows, err := s.trackRepo.TrackSummary(ctx, device, query)
		if err != nil {
			return nil, err
		}
		return json.Marshal(rows)
	}

	data, err := cache.ReadThrough(ctx, s.cache, s.key(ctx, "summary", device, query), s.ttl, load)
	if err != nil {
		return nil, fmt.Errorf("failed to get track summary: %w", err)
	}
	var rows []models.TrackSummary
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode track summary: %w", err)
	}
	return rows, nil
}

// key includes the device cache generation, so writes invalidate it.
func (s *ReportService) key(ctx context.Context, kind, device, query string) string {
	var gen int64
	if s.cache != nil {
		var err error
		if gen, err = s.cache.Counter(ctx, generationKey(device)); err != nil {
			s.log.Warn("cache generation lookup failed", slog.String("device", device), slog.Any("error", err))
		}
	}
	return fmt.Sprintf("%s:%s:%d:%s", kind, device, gen, query)
}

// Stats writes a text report of the matching tracks: the trip of the
// first track, then one line per track.
func (s *ReportService) Stats(ctx context.Context, device, query string, w io.Writer) error {
	rows, err := s.Summary(ctx, device, query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	if _, err := fmt.Fprintln(w, rows[0].Trip); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintln(w, FormatSummary(r)); err != nil {
			return err
		}
	}
	return nil
}

// FormatSummary formats one report line: date, start and end time, name,
// duration, distance in km and maximum speed in km/h.
func FormatSummary(r models.TrackSummary) string {
	duration := time.Duration(r.Duration * float64(time.Second))
	return fmt.Sprintf(" %s %s %s  %-30s  %s  %d km  %d km/h",
		r.Start.Format("2006-01-02"), r.Start.Format("15:04:05"), r.End.Format("15:04:05"),
		r.Name,
		duration,
		int64(math.Round(r.Distance/1000)),
		int64(math.Round(r.MaxSpeed)),
	)
}
