package registry

import (
	"sync"
	"testing"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTracks() []app.Track {
	return []app.Track{
		{ID: "FLT-001", Label: "AI-202", Position: app.Position{Lat: 28.6, Lng: 77.2}, Altitude: 30000, GroundSpeed: 450, Heading: 180, Status: app.StatusOnTime},
		{ID: "FLT-002", Label: "6E-115", Position: app.Position{Lat: 19.0, Lng: 72.8}, Altitude: 28000, GroundSpeed: 430, Heading: 90, Status: app.StatusOnTime},
	}
}

func TestReplaceAllAndList(t *testing.T) {
	r := New()

	stored := r.ReplaceAll(seedTracks())
	assert.Len(t, stored, 2)
	assert.Equal(t, 2, r.Count())

	listed := r.List()
	require.Len(t, listed, 2)
	assert.Equal(t, "FLT-001", listed[0].ID)
	assert.Equal(t, "FLT-002", listed[1].ID)

	// reseed clears previous content
	r.ReplaceAll(seedTracks()[:1])
	assert.Equal(t, 1, r.Count())
}

func TestGetNotFound(t *testing.T) {
	r := New()
	r.ReplaceAll(seedTracks())

	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	track, err := r.Get("FLT-001")
	require.NoError(t, err)
	assert.Equal(t, "AI-202", track.Label)
}

func TestApplyUpdateMergesFields(t *testing.T) {
	r := New()
	r.ReplaceAll(seedTracks())

	alt := 31000.0
	status := app.StatusDelayed
	require.NoError(t, r.ApplyUpdate("FLT-001", app.TrackUpdate{
		Altitude: &alt,
		Status:   &status,
	}))

	track, err := r.Get("FLT-001")
	require.NoError(t, err)
	assert.Equal(t, 31000.0, track.Altitude)
	assert.Equal(t, app.StatusDelayed, track.Status)
	// untouched fields survive
	assert.Equal(t, 450.0, track.GroundSpeed)
	assert.False(t, track.UpdatedAt.IsZero())
	// no position change, no history entry
	assert.Empty(t, track.History)
}

func TestApplyUpdateUnknownID(t *testing.T) {
	r := New()
	r.ReplaceAll(seedTracks())

	pos := app.Position{Lat: 1, Lng: 2}
	assert.ErrorIs(t, r.ApplyUpdate("nope", app.TrackUpdate{Position: &pos}), ErrNotFound)
}

func TestHistoryAppendAndCap(t *testing.T) {
	r := New()
	r.ReplaceAll(seedTracks())

	for i := 0; i < app.HistoryCap+10; i++ {
		pos := app.Position{Lat: 28.6 + float64(i+1)*0.01, Lng: 77.2}
		require.NoError(t, r.ApplyUpdate("FLT-001", app.TrackUpdate{Position: &pos}))
	}

	track, err := r.Get("FLT-001")
	require.NoError(t, err)
	assert.Len(t, track.History, app.HistoryCap)
	// oldest entries were evicted: the first surviving fix is update #11
	assert.InDelta(t, 28.6+11*0.01, track.History[0].Lat, 1e-9)
	// newest fix matches the current position
	assert.InDelta(t, track.Position.Lat, track.History[len(track.History)-1].Lat, 1e-9)
}

func TestSamePositionDoesNotAppendHistory(t *testing.T) {
	r := New()
	r.ReplaceAll(seedTracks())

	pos := app.Position{Lat: 28.6, Lng: 77.2}
	require.NoError(t, r.ApplyUpdate("FLT-001", app.TrackUpdate{Position: &pos}))

	track, err := r.Get("FLT-001")
	require.NoError(t, err)
	assert.Empty(t, track.History)
}

func TestListReturnsCopies(t *testing.T) {
	r := New()
	r.ReplaceAll(seedTracks())

	listed := r.List()
	listed[0].Label = "mutated"

	track, err := r.Get("FLT-001")
	require.NoError(t, err)
	assert.Equal(t, "AI-202", track.Label)
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	r := New()
	r.ReplaceAll(seedTracks())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				pos := app.Position{Lat: float64(n), Lng: float64(j)}
				_ = r.ApplyUpdate("FLT-001", app.TrackUpdate{Position: &pos})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.List()
				_ = r.Count()
			}
		}()
	}
	wg.Wait()

	track, err := r.Get("FLT-001")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(track.History), app.HistoryCap)
}
