package diff

import (
	"testing"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/stretchr/testify/assert"
)

func defaultTolerances() Tolerances {
	return Tolerances{
		PositionDeg: 0.000005,
		AltitudeFt:  2,
		SpeedKts:    1,
		HeadingDeg:  0.5,
	}
}

func snapshot() []app.Track {
	return []app.Track{
		{ID: "1", Label: "AI-101", Position: app.Position{Lat: 28.6, Lng: 77.2}, Altitude: 30000, GroundSpeed: 450, Heading: 180, Status: app.StatusOnTime},
		{ID: "2", Label: "6E-115", Position: app.Position{Lat: 19.0, Lng: 72.8}, Altitude: 28000, GroundSpeed: 430, Heading: 90, Status: app.StatusOnTime},
	}
}

func TestIdenticalSnapshotsNotSignificant(t *testing.T) {
	assert.False(t, Significant(snapshot(), snapshot(), defaultTolerances()))
}

func TestCountMismatchSignificant(t *testing.T) {
	assert.True(t, Significant(snapshot(), snapshot()[:1], defaultTolerances()))
	assert.True(t, Significant(nil, snapshot(), defaultTolerances()))
}

func TestLongitudeWithinTolerance(t *testing.T) {
	prev, curr := snapshot(), snapshot()
	curr[0].Position.Lng += 0.0000049
	assert.False(t, Significant(prev, curr, defaultTolerances()))
}

func TestLongitudeBeyondTolerance(t *testing.T) {
	prev, curr := snapshot(), snapshot()
	curr[0].Position.Lng += 0.00001
	assert.True(t, Significant(prev, curr, defaultTolerances()))
}

func TestAltitudeTolerance(t *testing.T) {
	prev, curr := snapshot(), snapshot()
	curr[1].Altitude += 1.5
	assert.False(t, Significant(prev, curr, defaultTolerances()))

	curr[1].Altitude += 5
	assert.True(t, Significant(prev, curr, defaultTolerances()))
}

func TestSpeedAndHeadingTolerance(t *testing.T) {
	prev, curr := snapshot(), snapshot()
	curr[0].GroundSpeed += 0.9
	curr[0].Heading += 0.4
	assert.False(t, Significant(prev, curr, defaultTolerances()))

	curr[0].GroundSpeed += 2
	assert.True(t, Significant(prev, curr, defaultTolerances()))
}

func TestStatusChangeSignificant(t *testing.T) {
	prev, curr := snapshot(), snapshot()
	curr[0].Status = app.StatusLostComm
	assert.True(t, Significant(prev, curr, defaultTolerances()))
}

func TestLabelChangeSignificant(t *testing.T) {
	prev, curr := snapshot(), snapshot()
	curr[1].Label = "6E-999"
	assert.True(t, Significant(prev, curr, defaultTolerances()))
}

func TestJoinByIDNotOrder(t *testing.T) {
	prev, curr := snapshot(), snapshot()
	// same content, reversed order: still not significant
	curr[0], curr[1] = curr[1], curr[0]
	assert.False(t, Significant(prev, curr, defaultTolerances()))
}

func TestReplacedIDSignificant(t *testing.T) {
	prev, curr := snapshot(), snapshot()
	curr[1].ID = "3"
	assert.True(t, Significant(prev, curr, defaultTolerances()))
}
