package alerts

import (
	"io"
	"testing"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testZone = app.Zone{
	ID:           "zone-delhi-adiz",
	Name:         "Delhi ADIZ",
	Center:       app.Position{Lat: 28.6139, Lng: 77.2090},
	RadiusMeters: 50000,
	Type:         app.ZoneMilitary,
}

func newTestEngine(zones ...app.Zone) *Engine {
	log := logrus.New()
	log.Out = io.Discard
	return New(log, zones)
}

func track(id string, pos app.Position, status app.TrackStatus) app.Track {
	return app.Track{ID: id, Label: "AI-" + id, Position: pos, Status: status}
}

func TestLostCommRaiseAndClear(t *testing.T) {
	e := newTestEngine()

	created := e.Evaluate([]app.Track{track("1", app.Position{}, app.StatusLostComm)})
	require.Len(t, created, 1)
	assert.Equal(t, app.AlertLostComm, created[0].Kind)
	assert.Equal(t, app.SeverityHigh, created[0].Severity)
	assert.Contains(t, created[0].Message, "AI-1")

	// condition cleared, alert removed immediately
	e.Evaluate([]app.Track{track("1", app.Position{}, app.StatusOnTime)})
	assert.Empty(t, e.GetAll())
	assert.Empty(t, e.GetForTrack("1"))
}

func TestZoneEntryScenario(t *testing.T) {
	e := newTestEngine(testZone)

	// inside the zone: ~0 m from center
	inside := track("1", app.Position{Lat: 28.6139, Lng: 77.2090}, app.StatusOnTime)
	created := e.Evaluate([]app.Track{inside})
	require.Len(t, created, 1)
	assert.Equal(t, app.AlertZoneEntry, created[0].Kind)
	assert.Equal(t, app.SeverityHigh, created[0].Severity)
	assert.Equal(t, testZone.ID, created[0].ZoneID)

	// ~100km east of center: condition clears
	outside := track("1", app.Position{Lat: 28.6139, Lng: 78.23}, app.StatusOnTime)
	created = e.Evaluate([]app.Track{outside})
	assert.Empty(t, created)
	assert.Empty(t, e.GetAll())
	assert.Empty(t, e.GetForTrack("1"))
}

func TestZoneDedupAcrossTicks(t *testing.T) {
	e := newTestEngine(testZone)
	inside := track("1", app.Position{Lat: 28.62, Lng: 77.21}, app.StatusOnTime)

	first := e.Evaluate([]app.Track{inside})
	require.Len(t, first, 1)

	for i := 0; i < 25; i++ {
		created := e.Evaluate([]app.Track{inside})
		assert.Empty(t, created)
		assert.Len(t, e.GetAll(), 1)
	}
}

func TestSeverityPerZoneType(t *testing.T) {
	cases := []struct {
		zoneType app.ZoneType
		want     app.Severity
	}{
		{app.ZoneMilitary, app.SeverityHigh},
		{app.ZoneRestricted, app.SeverityMedium},
		{app.ZoneAirport, app.SeverityLow},
		{app.ZoneType("weather-balloon"), app.SeverityLow}, //unknown falls through to low
	}

	for _, tc := range cases {
		z := testZone
		z.Type = tc.zoneType
		e := newTestEngine(z)

		created := e.Evaluate([]app.Track{track("1", z.Center, app.StatusOnTime)})
		require.Len(t, created, 1, "zone type %s", tc.zoneType)
		assert.Equal(t, tc.want, created[0].Severity, "zone type %s", tc.zoneType)
	}
}

func TestDismissIdempotent(t *testing.T) {
	e := newTestEngine(testZone)

	created := e.Evaluate([]app.Track{track("1", testZone.Center, app.StatusOnTime)})
	require.Len(t, created, 1)

	assert.True(t, e.Dismiss(created[0].ID))
	assert.False(t, e.Dismiss(created[0].ID))
	assert.False(t, e.Dismiss("no-such-alert"))
}

func TestDismissAllowsReRaise(t *testing.T) {
	e := newTestEngine(testZone)
	inside := track("1", testZone.Center, app.StatusOnTime)

	created := e.Evaluate([]app.Track{inside})
	require.Len(t, created, 1)
	require.True(t, e.Dismiss(created[0].ID))

	// the condition still holds, so the next pass raises a fresh alert
	created = e.Evaluate([]app.Track{inside})
	require.Len(t, created, 1)
}

func TestClearAll(t *testing.T) {
	e := newTestEngine(testZone)
	e.Evaluate([]app.Track{
		track("1", testZone.Center, app.StatusLostComm),
		track("2", testZone.Center, app.StatusOnTime),
	})
	require.NotEmpty(t, e.GetAll())

	e.ClearAll()
	assert.Empty(t, e.GetAll())
}

func TestGetForTrack(t *testing.T) {
	e := newTestEngine(testZone)
	e.Evaluate([]app.Track{
		track("1", testZone.Center, app.StatusLostComm),
		track("2", app.Position{Lat: 10, Lng: 10}, app.StatusOnTime),
	})

	// track 1 is both inside the zone and lost-comm
	assert.Len(t, e.GetForTrack("1"), 2)
	assert.Empty(t, e.GetForTrack("2"))
}

func TestEndToEndSeedScenario(t *testing.T) {
	// three tracks, exactly one inside the 50km zone
	e := newTestEngine(testZone)
	tracks := []app.Track{
		track("1", app.Position{Lat: 28.6139, Lng: 77.2090}, app.StatusOnTime),
		track("2", app.Position{Lat: 19.0896, Lng: 72.8656}, app.StatusOnTime),
		track("3", app.Position{Lat: 13.1986, Lng: 77.7066}, app.StatusOnTime),
	}

	created := e.Evaluate(tracks)
	require.Len(t, created, 1)
	assert.Equal(t, app.AlertZoneEntry, created[0].Kind)
	assert.Equal(t, app.SeverityHigh, created[0].Severity)
	assert.Equal(t, "1", created[0].TrackID)

	// move the track ~100km away and re-run
	tracks[0].Position = app.Position{Lat: 29.5, Lng: 78.0}
	e.Evaluate(tracks)
	assert.Empty(t, e.GetAll())
}
