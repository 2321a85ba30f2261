package diff

import (
	"math"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
)

// Tolerances - per-field thresholds under which two snapshots are
// considered unchanged.
type Tolerances struct {
	PositionDeg float64 `toml:"positionDeg" default:"0.000005" comment:"lat/lng tolerance in degrees"`
	AltitudeFt  float64 `toml:"altitudeFt" default:"2" comment:"altitude tolerance in feet"`
	SpeedKts    float64 `toml:"speedKts" default:"1" comment:"ground speed tolerance in knots"`
	HeadingDeg  float64 `toml:"headingDeg" default:"0.5" comment:"heading tolerance in degrees"`
}

// Significant reports whether the current snapshot differs from the
// previous one beyond the tolerances. Tracks are joined by id: the
// registry's iteration order is not contractual.
func Significant(prev, curr []app.Track, tol Tolerances) bool {
	if len(prev) != len(curr) {
		return true
	}

	byID := make(map[string]app.Track, len(prev))
	for _, t := range prev {
		byID[t.ID] = t
	}

	for _, c := range curr {
		p, ok := byID[c.ID]
		if !ok {
			return true
		}
		if math.Abs(c.Position.Lat-p.Position.Lat) > tol.PositionDeg ||
			math.Abs(c.Position.Lng-p.Position.Lng) > tol.PositionDeg ||
			math.Abs(c.Altitude-p.Altitude) > tol.AltitudeFt ||
			math.Abs(c.GroundSpeed-p.GroundSpeed) > tol.SpeedKts ||
			math.Abs(c.Heading-p.Heading) > tol.HeadingDeg ||
			c.Status != p.Status ||
			c.Label != p.Label {
			return true
		}
	}
	return false
}
