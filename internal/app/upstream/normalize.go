package upstream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
)

// rawRecord is the strict intermediate shape for one provider record.
// The provider only guarantees identifier, lat, lng, altitude and
// velocity; everything else is optional. Pointer fields distinguish
// "absent" from zero so missing numerics can default to 0 instead of
// propagating garbage.
type rawRecord struct {
	ID       string   `json:"id"`
	Callsign string   `json:"callsign"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Altitude *float64 `json:"altitude"`
	Velocity *float64 `json:"velocity"`
	Heading  *float64 `json:"heading"`
}

type statesPayload struct {
	States []rawRecord `json:"states"`
}

// normalize validates the provider response and converts it into the
// internal track model. Records without an identifier or position are
// skipped; missing numeric fields default to 0.
func normalize(body []byte) ([]app.Track, error) {
	var payload statesPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		// some deployments return a bare array instead of {states: []}
		if errArr := json.Unmarshal(body, &payload.States); errArr != nil {
			return nil, fmt.Errorf("malformed upstream payload: %w", err)
		}
	}

	now := time.Now().UTC()
	tracks := make([]app.Track, 0, len(payload.States))
	for _, r := range payload.States {
		if r.ID == "" || r.Lat == nil || r.Lng == nil {
			continue
		}
		label := r.Callsign
		if label == "" {
			label = r.ID
		}
		tracks = append(tracks, app.Track{
			ID:          r.ID,
			Label:       label,
			Position:    app.Position{Lat: *r.Lat, Lng: *r.Lng},
			Altitude:    deref(r.Altitude),
			GroundSpeed: deref(r.Velocity),
			Heading:     deref(r.Heading),
			Status:      app.StatusOnTime,
			UpdatedAt:   now,
		})
	}
	return tracks, nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
