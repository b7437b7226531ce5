package gpx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/antrak/internal/models"
)

const doc = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <metadata><time>2024-07-01T07:00:00Z</time></metadata>
  <trk>
    <name>loop</name>
    <trkseg>
      <trkpt lat="47.0" lon="11.0"><ele>1000.5</ele><time>2024-07-01T08:00:00Z</time></trkpt>
      <trkpt lat="47.001" lon="11.002"><ele>1001</ele><time>2024-07-01T10:00:10+02:00</time></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="47.002" lon="11.004"><time>2024-07-01T08:00:20</time></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestReadPositions(t *testing.T) {
	var got []models.Position
	for p, err := range ReadPositions(strings.NewReader(doc)) {
		require.NoError(t, err)
		got = append(got, p)
	}
	require.Len(t, got, 3)

	t0 := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	for i, p := range got {
		assert.Equal(t, t0.Add(time.Duration(i)*10*time.Second), p.Timestamp)
		assert.True(t, p.NoCourse)
	}
	assert.Equal(t, 11.0, got[0].Longitude)
	assert.Equal(t, 47.0, got[0].Latitude)
	assert.Equal(t, 1000.5, got[0].Altitude)
	assert.Equal(t, 11.002, got[1].Longitude)
	assert.Zero(t, got[2].Altitude)
}

func TestReadPositions_BadTime(t *testing.T) {
	input := `<gpx><trk><trkseg><trkpt lat="1" lon="2"><time>yesterday</time></trkpt></trkseg></trk></gpx>`
	var errs int
	for _, err := range ReadPositions(strings.NewReader(input)) {
		if err != nil {
			errs++
		}
	}
	assert.Equal(t, 1, errs)
}

func TestReadPositions_Malformed(t *testing.T) {
	var last error
	for _, err := range ReadPositions(strings.NewReader(`<gpx><trk><trkpt lat="1"`)) {
		last = err
	}
	assert.ErrorContains(t, last, "gpx")
}
