package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"github.com/jengzang/antrak/internal/database"
	"github.com/jengzang/antrak/internal/models"
	"github.com/jengzang/antrak/internal/observability"
	"github.com/jengzang/antrak/internal/spatial"
)

// ErrNoPositions is returned by FindPeriod when the window holds no
// positions of the device.
var ErrNoPositions = errors.New("no positions in period")

const sqlSavePosition = `
INSERT INTO position (device, timestamp, location, heading, speed)
VALUES (?, ?, ?, ?, ?)`

const sqlFindPeriod = `
SELECT min(timestamp), max(timestamp)
FROM position
WHERE device = ? AND timestamp BETWEEN ? AND ?`

const sqlAddTrack = `
INSERT INTO track (trip, name, device, start, "end")
VALUES (?, ?, ?, ?, ?)`

const sqlListTracks = `
SELECT trip, name, device, start, "end"
FROM track
WHERE device = ? AND (? = '' OR iregexp(?, trip || ' ' || name))
ORDER BY start, trip, name`

// positions of matching tracks, one row per position, grouped by track
const sqlTrackPositions = `
SELECT t.trip, t.name, t.start, t."end", p.location, p.speed
FROM track t
    INNER JOIN position p ON t.device = p.device
        AND p.timestamp BETWEEN t.start AND t."end"
WHERE p.device = ? AND (? = '' OR iregexp(?, t.trip || ' ' || t.name))
ORDER BY t.trip, t.start, t.name, p.timestamp`

// TrackRepository handles database operations for positions and tracks
type TrackRepository struct {
	tx  *database.TxManager
	log *slog.Logger
}

// NewTrackRepository creates a new track repository
func NewTrackRepository(tx *database.TxManager) *TrackRepository {
	return &TrackRepository{
		tx:  tx,
		log: slog.Default().With(slog.String("component", "track_repository")),
	}
}

// SavePositions inserts the positions of a device. An error from the
// sequence or a failed insert aborts the whole batch.
func (r *TrackRepository) SavePositions(ctx context.Context, device string, positions iter.Seq2[models.Position, error]) (int, error) {
	saved := 0
	err := r.tx.Do(ctx, func(ctx context.Context, s *database.Session) error {
		stmt, err := s.PrepareContext(ctx, sqlSavePosition)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		r.log.Debug("saving positions", slog.String("device", device))
		for p, err := range positions {
			if err != nil {
				return err
			}
			location, err := s.EncodePoint(orb.Point{p.Longitude, p.Latitude})
			if err != nil {
				return err
			}
			var heading, speed sql.NullFloat64
			if !p.NoCourse {
				heading = sql.NullFloat64{Float64: p.Heading, Valid: true}
				speed = sql.NullFloat64{Float64: p.Speed, Valid: true}
			}
			_, err = stmt.ExecContext(ctx, device, toMillis(p.Timestamp), location, heading, speed)
			if err != nil {
				return fmt.Errorf("failed to save position %s: %w", p.Timestamp.Format(time.RFC3339), err)
			}
			saved++
		}
		r.log.Debug("positions saved", slog.String("device", device), slog.Int("count", saved))
		return nil
	})
	if err != nil {
		return 0, err
	}
	observability.PositionsSaved.Add(float64(saved))
	return saved, nil
}

// FindPeriod returns the first and last timestamp of the positions of a
// device within [start, end].
func (r *TrackRepository) FindPeriod(ctx context.Context, device string, start, end time.Time) (models.Period, error) {
	var period models.Period
	err := r.tx.Do(ctx, func(ctx context.Context, s *database.Session) error {
		var first, last sql.NullInt64
		err := s.QueryRowContext(ctx, sqlFindPeriod, device, toMillis(start), toMillis(end)).Scan(&first, &last)
		if err != nil {
			return fmt.Errorf("failed to find period: %w", err)
		}
		if !first.Valid || !last.Valid {
			return ErrNoPositions
		}
		period = models.Period{Start: fromMillis(first.Int64), End: fromMillis(last.Int64)}
		return nil
	})
	return period, err
}

// AddTrack inserts a track. Start and end are expected to be validated,
// usually by FindPeriod.
func (r *TrackRepository) AddTrack(ctx context.Context, t models.Track) error {
	return r.tx.Do(ctx, func(ctx context.Context, s *database.Session) error {
		r.log.Debug("saving track",
			slog.String("trip", t.Trip), slog.String("name", t.Name),
			slog.Time("start", t.Start), slog.Time("end", t.End),
			slog.String("device", t.Device),
		)
		_, err := s.ExecContext(ctx, sqlAddTrack, t.Trip, t.Name, t.Device, toMillis(t.Start), toMillis(t.End))
		if err != nil {
			return fmt.Errorf("failed to add track: %w", err)
		}
		return nil
	})
}

// ListTracks returns the tracks of a device whose "trip name" matches
// query case-insensitively. An empty query matches all tracks. A query
// which does not compile fails with database.ErrInvalidPattern.
func (r *TrackRepository) ListTracks(ctx context.Context, device, query string) ([]models.Track, error) {
	if err := database.CheckPattern(query); err != nil {
		return nil, err
	}
	var tracks []models.Track
	err := r.tx.Do(ctx, func(ctx context.Context, s *database.Session) error {
		rows, err := s.QueryContext(ctx, sqlListTracks, device, query, query)
		if err != nil {
			return fmt.Errorf("failed to query tracks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var t models.Track
			var start, end int64
			if err := rows.Scan(&t.Trip, &t.Name, &t.Device, &start, &end); err != nil {
				return fmt.Errorf("failed to scan track: %w", err)
			}
			t.Start, t.End = fromMillis(start), fromMillis(end)
			tracks = append(tracks, t)
		}
		return rows.Err()
	})
	return tracks, err
}

// trackRows holds the positions of one track in time order.
type trackRows struct {
	trip, name string
	start, end time.Time
	path       orb.LineString
	maxSpeed   sql.NullFloat64
}

// loadTracks groups the positions of the matching tracks.
func (r *TrackRepository) loadTracks(ctx context.Context, s *database.Session, device, query string) ([]*trackRows, error) {
	if err := database.CheckPattern(query); err != nil {
		return nil, err
	}
	rows, err := s.QueryContext(ctx, sqlTrackPositions, device, query, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query track positions: %w", err)
	}
	defer rows.Close()

	var tracks []*trackRows
	var cur *trackRows
	for rows.Next() {
		var (
			trip, name string
			start, end int64
			location   []byte
			speed      sql.NullFloat64
		)
		if err := rows.Scan(&trip, &name, &start, &end, &location, &speed); err != nil {
			return nil, fmt.Errorf("failed to scan track position: %w", err)
		}
		if cur == nil || cur.trip != trip || cur.name != name || !cur.start.Equal(fromMillis(start)) {
			cur = &trackRows{trip: trip, name: name, start: fromMillis(start), end: fromMillis(end)}
			tracks = append(tracks, cur)
		}
		p, err := s.DecodePoint(location)
		if err != nil {
			return nil, err
		}
		cur.path = append(cur.path, p)
		if speed.Valid && (!cur.maxSpeed.Valid || speed.Float64 > cur.maxSpeed.Float64) {
			cur.maxSpeed = speed
		}
	}
	return tracks, rows.Err()
}

// TrackSummary returns duration, simplified path length and maximum speed
// of every matching track, ordered by trip and start.
func (r *TrackRepository) TrackSummary(ctx context.Context, device, query string) ([]models.TrackSummary, error) {
	var out []models.TrackSummary
	err := r.tx.Do(ctx, func(ctx context.Context, s *database.Session) error {
		tracks, err := r.loadTracks(ctx, s, device, query)
		if err != nil {
			return err
		}
		for _, t := range tracks {
			out = append(out, models.TrackSummary{
				Trip:     t.trip,
				Name:     t.name,
				Start:    t.start,
				End:      t.end,
				Duration: t.end.Sub(t.start).Seconds(),
				Distance: spatial.TrackLength(t.path),
				MaxSpeed: t.maxSpeed.Float64,
			})
		}
		return nil
	})
	return out, err
}

// LoadPositions returns the extent and coordinates of every matching
// track, ordered by trip and start.
func (r *TrackRepository) LoadPositions(ctx context.Context, device, query string) ([]models.TrackPositions, error) {
	var out []models.TrackPositions
	err := r.tx.Do(ctx, func(ctx context.Context, s *database.Session) error {
		tracks, err := r.loadTracks(ctx, s, device, query)
		if err != nil {
			return err
		}
		for _, t := range tracks {
			coords := make([][2]float64, len(t.path))
			for i, p := range t.path {
				coords[i] = [2]float64{p.X(), p.Y()}
			}
			out = append(out, models.TrackPositions{
				Trip:      t.trip,
				Name:      t.name,
				Start:     t.start,
				Extent:    spatial.Extent(t.path),
				Positions: coords,
			})
		}
		return nil
	})
	return out, err
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
