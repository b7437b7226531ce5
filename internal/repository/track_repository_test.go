package repository

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/antrak/internal/database"
	"github.com/jengzang/antrak/internal/models"
)

var t0 = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) (*TrackRepository, *database.TxManager) {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "tracks.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tx := database.NewTxManager(db, nil)
	require.NoError(t, database.NewMigrationManager(tx).RunMigrations(context.Background()))
	return NewTrackRepository(tx), tx
}

func seq(positions ...models.Position) iter.Seq2[models.Position, error] {
	return func(yield func(models.Position, error) bool) {
		for _, p := range positions {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// northbound returns n positions 10 s and 0.001° of latitude apart, with
// speeds 10, 20, ... km/h.
func northbound(start time.Time, n int) []models.Position {
	out := make([]models.Position, n)
	for i := range out {
		out[i] = models.Position{
			Longitude: 11.0,
			Latitude:  47.0 + float64(i)*0.001,
			Altitude:  1000,
			Timestamp: start.Add(time.Duration(i) * 10 * time.Second),
			Heading:   0,
			Speed:     float64(i+1) * 10,
		}
	}
	return out
}

func TestSavePositionsAndFindPeriod(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	saved, err := repo.SavePositions(ctx, "dev1", seq(northbound(t0, 6)...))
	require.NoError(t, err)
	assert.Equal(t, 6, saved)

	period, err := repo.FindPeriod(ctx, "dev1", t0.Add(-time.Hour), t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, t0, period.Start)
	assert.Equal(t, t0.Add(50*time.Second), period.End)

	period, err = repo.FindPeriod(ctx, "dev1", t0.Add(15*time.Second), t0.Add(35*time.Second))
	require.NoError(t, err)
	assert.Equal(t, t0.Add(20*time.Second), period.Start)
	assert.Equal(t, t0.Add(30*time.Second), period.End)

	_, err = repo.FindPeriod(ctx, "dev1", t0.Add(time.Hour), t0.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrNoPositions)

	_, err = repo.FindPeriod(ctx, "other", t0.Add(-time.Hour), t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNoPositions)
}

func TestSavePositions_SequenceErrorAbortsBatch(t *testing.T) {
	repo, tx := newTestRepository(t)
	ctx := context.Background()
	boom := errors.New("boom")

	positions := func(yield func(models.Position, error) bool) {
		for _, p := range northbound(t0, 3) {
			if !yield(p, nil) {
				return
			}
		}
		yield(models.Position{}, boom)
	}

	saved, err := repo.SavePositions(ctx, "dev1", positions)
	require.ErrorIs(t, err, boom)
	assert.Zero(t, saved)

	_, err = repo.FindPeriod(ctx, "dev1", t0.Add(-time.Hour), t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNoPositions)
	assert.Equal(t, 0, tx.Stats().Depth)
}

func TestSavePositions_NoCourseStoredAsNull(t *testing.T) {
	repo, tx := newTestRepository(t)
	ctx := context.Background()

	p := northbound(t0, 1)[0]
	p.NoCourse = true
	_, err := repo.SavePositions(ctx, "dev1", seq(p))
	require.NoError(t, err)

	var nulls int
	require.NoError(t, tx.Do(ctx, func(ctx context.Context, s *database.Session) error {
		return s.QueryRowContext(ctx, "SELECT count(*) FROM position WHERE heading IS NULL AND speed IS NULL").Scan(&nulls)
	}))
	assert.Equal(t, 1, nulls)
}

func TestListTracks(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	tracks := []models.Track{
		{Trip: "Summer Alps", Name: "day 2", Device: "dev1", Start: t0.Add(24 * time.Hour), End: t0.Add(25 * time.Hour)},
		{Trip: "Summer Alps", Name: "day 1", Device: "dev1", Start: t0, End: t0.Add(time.Hour)},
		{Trip: "Harz", Name: "loop", Device: "dev1", Start: t0.Add(48 * time.Hour), End: t0.Add(49 * time.Hour)},
		{Trip: "Summer Alps", Name: "day 1", Device: "dev2", Start: t0, End: t0.Add(time.Hour)},
	}
	for _, tr := range tracks {
		require.NoError(t, repo.AddTrack(ctx, tr))
	}

	all, err := repo.ListTracks(ctx, "dev1", "")
	require.NoError(t, err)
	assert.Equal(t, []models.Track{tracks[1], tracks[0], tracks[2]}, all)

	matchAll, err := repo.ListTracks(ctx, "dev1", ".*")
	require.NoError(t, err)
	assert.Equal(t, all, matchAll)

	alps, err := repo.ListTracks(ctx, "dev1", "ALPS DAY")
	require.NoError(t, err)
	assert.Equal(t, []models.Track{tracks[1], tracks[0]}, alps)

	none, err := repo.ListTracks(ctx, "dev1", "^day")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.ListTracks(ctx, "dev1", "(")
	assert.ErrorIs(t, err, database.ErrInvalidPattern)
	_, err = repo.TrackSummary(ctx, "dev1", "[a-")
	assert.ErrorIs(t, err, database.ErrInvalidPattern)
	_, err = repo.LoadPositions(ctx, "dev1", "(")
	assert.ErrorIs(t, err, database.ErrInvalidPattern)
}

func TestAddTrack_Duplicate(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	tr := models.Track{Trip: "Harz", Name: "loop", Device: "dev1", Start: t0, End: t0.Add(time.Hour)}
	require.NoError(t, repo.AddTrack(ctx, tr))
	assert.Error(t, repo.AddTrack(ctx, tr))
}

func TestTrackSummaryAndPositions(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	positions := northbound(t0, 6)
	_, err := repo.SavePositions(ctx, "dev1", seq(positions...))
	require.NoError(t, err)
	require.NoError(t, repo.AddTrack(ctx, models.Track{
		Trip: "Harz", Name: "climb", Device: "dev1", Start: t0, End: t0.Add(50 * time.Second),
	}))
	require.NoError(t, repo.AddTrack(ctx, models.Track{
		Trip: "Harz", Name: "start", Device: "dev1", Start: t0, End: t0.Add(20 * time.Second),
	}))

	summary, err := repo.TrackSummary(ctx, "dev1", "climb")
	require.NoError(t, err)
	require.Len(t, summary, 1)
	s := summary[0]
	assert.Equal(t, "Harz", s.Trip)
	assert.Equal(t, "climb", s.Name)
	assert.InDelta(t, 50, s.Duration, 1e-9)
	assert.InDelta(t, 0.005*111195, s.Distance, 1)
	assert.InDelta(t, 60, s.MaxSpeed, 1e-9)

	all, err := repo.TrackSummary(ctx, "dev1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "climb", all[0].Name)
	assert.Equal(t, "start", all[1].Name)
	assert.InDelta(t, 30, all[1].MaxSpeed, 1e-9)

	loaded, err := repo.LoadPositions(ctx, "dev1", "start")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, t0, loaded[0].Start)
	require.Len(t, loaded[0].Positions, 3)
	for i, c := range loaded[0].Positions {
		assert.InDelta(t, positions[i].Longitude, c[0], 1e-12)
		assert.InDelta(t, positions[i].Latitude, c[1], 1e-12)
	}
	assert.InDeltaSlice(t, []float64{11, 47, 11, 47.002}, loaded[0].Extent[:], 1e-12)
}

func TestTrackSummary_NoTracks(t *testing.T) {
	repo, _ := newTestRepository(t)

	summary, err := repo.TrackSummary(context.Background(), "dev1", "")
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestRepositoryJoinsOuterScope(t *testing.T) {
	repo, tx := newTestRepository(t)
	ctx := context.Background()
	before := tx.Stats()

	err := tx.Do(ctx, func(ctx context.Context, s *database.Session) error {
		if _, err := repo.SavePositions(ctx, "dev1", seq(northbound(t0, 3)...)); err != nil {
			return err
		}
		period, err := repo.FindPeriod(ctx, "dev1", t0, t0.Add(time.Hour))
		if err != nil {
			return err
		}
		return repo.AddTrack(ctx, models.Track{Trip: "Harz", Name: "a", Device: "dev1", Start: period.Start, End: period.End})
	})
	require.NoError(t, err)

	after := tx.Stats()
	assert.Equal(t, before.Opened+1, after.Opened)
	assert.Equal(t, before.Closed+1, after.Closed)
}
