package geo

import (
	"math"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
)

// EarthRadiusMeters - spherical earth model used for all great-circle math
const EarthRadiusMeters = 6371000.0

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Distance returns the great-circle distance in meters between two
// points, using the Haversine formula.
func Distance(a, b app.Position) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Bearing returns the initial great-circle bearing in degrees [0,360)
// from point a towards point b.
func Bearing(a, b app.Position) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	return math.Mod(toDegrees(math.Atan2(y, x))+360, 360)
}

// Interpolate returns the point a fraction f along the segment between
// a and b. f=0 gives a, f=1 gives b. Linear in lat/lng, which is close
// enough to the great circle at the distances the tracker covers.
func Interpolate(a, b app.Position, f float64) app.Position {
	return app.Position{
		Lat: a.Lat + (b.Lat-a.Lat)*f,
		Lng: a.Lng + (b.Lng-a.Lng)*f,
	}
}
