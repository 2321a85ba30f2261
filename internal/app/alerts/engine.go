package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/geo"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Engine detects communication-loss and geofence-entry conditions over
// the current track set. Each condition yields exactly one active
// alert until it clears: the composite-key index guarantees the dedup.
type Engine struct {
	Log   *logrus.Logger
	zones []app.Zone

	mu      sync.RWMutex
	alerts  map[string]*app.Alert //alert id -> alert
	byKey   map[string]string     //composite key -> alert id
}

func New(log *logrus.Logger, zones []app.Zone) *Engine {
	return &Engine{
		Log:    log,
		zones:  zones,
		alerts: make(map[string]*app.Alert),
		byKey:  make(map[string]string),
	}
}

func lostCommKey(trackID string) string {
	return "lost-comm:" + trackID
}

func zoneKey(trackID, zoneID string) string {
	return "zone:" + trackID + ":" + zoneID
}

// severityForZone maps a zone type to the severity of its entry alert.
// Unrecognized types fall through to low.
func severityForZone(t app.ZoneType) app.Severity {
	switch t {
	case app.ZoneMilitary:
		return app.SeverityHigh
	case app.ZoneRestricted:
		return app.SeverityMedium
	case app.ZoneAirport:
		return app.SeverityLow
	default:
		return app.SeverityLow
	}
}

// Evaluate runs one detection pass over the track set and returns the
// alerts newly raised by this pass. Cleared conditions are removed
// immediately.
func (e *Engine) Evaluate(tracks []app.Track) []app.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	var created []app.Alert

	for _, t := range tracks {
		// Communication loss
		key := lostCommKey(t.ID)
		if t.Status == app.StatusLostComm {
			if a := e.raiseLocked(key, app.Alert{
				TrackID:  t.ID,
				Kind:     app.AlertLostComm,
				Severity: app.SeverityHigh,
				Message:  fmt.Sprintf("Lost communication with flight %s", t.Label),
			}); a != nil {
				created = append(created, *a)
			}
		} else {
			e.clearLocked(key)
		}

		// Geofence entry
		for _, z := range e.zones {
			key := zoneKey(t.ID, z.ID)
			if geo.Distance(t.Position, z.Center) <= z.RadiusMeters {
				if a := e.raiseLocked(key, app.Alert{
					TrackID:  t.ID,
					Kind:     app.AlertZoneEntry,
					Severity: severityForZone(z.Type),
					Message:  fmt.Sprintf("Flight %s entered %s zone %s", t.Label, z.Type, z.Name),
					ZoneID:   z.ID,
					ZoneName: z.Name,
					ZoneType: z.Type,
				}); a != nil {
					created = append(created, *a)
				}
			} else {
				e.clearLocked(key)
			}
		}
	}

	return created
}

// raiseLocked creates the alert unless the key already maps to an
// active one. Returns the new alert, or nil when deduplicated.
func (e *Engine) raiseLocked(key string, a app.Alert) *app.Alert {
	if id, ok := e.byKey[key]; ok {
		if _, ok := e.alerts[id]; ok {
			return nil
		}
		// Index pointed at a missing alert. Drop the stale entry and
		// fall through to re-raise.
		e.Log.WithFields(logrus.Fields{
			"key": key,
			"id":  id,
		}).Error("Alert index inconsistency, rebuilding entry")
		delete(e.byKey, key)
	}

	a.ID = uuid.NewString()
	a.Timestamp = time.Now().UTC()
	e.alerts[a.ID] = &a
	e.byKey[key] = a.ID

	e.Log.WithFields(logrus.Fields{
		"kind":     a.Kind,
		"track":    a.TrackID,
		"severity": a.Severity,
	}).Info("Alert raised")

	return &a
}

func (e *Engine) clearLocked(key string) {
	id, ok := e.byKey[key]
	if !ok {
		return
	}
	delete(e.byKey, key)
	if a, ok := e.alerts[id]; ok {
		delete(e.alerts, id)
		e.Log.WithFields(logrus.Fields{
			"kind":  a.Kind,
			"track": a.TrackID,
		}).Info("Alert cleared")
	}
}

// GetAll returns every active alert.
func (e *Engine) GetAll() []app.Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]app.Alert, 0, len(e.alerts))
	for _, a := range e.alerts {
		result = append(result, *a)
	}
	return result
}

// GetForTrack returns the active alerts for one track id.
func (e *Engine) GetForTrack(trackID string) []app.Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]app.Alert, 0)
	for _, a := range e.alerts {
		if a.TrackID == trackID {
			result = append(result, *a)
		}
	}
	return result
}

// Dismiss removes one alert by id. Idempotent: reports whether an
// alert was actually removed.
func (e *Engine) Dismiss(alertID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.alerts[alertID]
	if !ok {
		return false
	}
	delete(e.alerts, alertID)

	switch a.Kind {
	case app.AlertZoneEntry:
		delete(e.byKey, zoneKey(a.TrackID, a.ZoneID))
	case app.AlertLostComm:
		delete(e.byKey, lostCommKey(a.TrackID))
	}
	return true
}

// ClearAll drops every active alert and the whole index.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts = make(map[string]*app.Alert)
	e.byKey = make(map[string]string)
}

// Zones returns the configured geofence zones.
func (e *Engine) Zones() []app.Zone {
	result := make([]app.Zone, len(e.zones))
	copy(result, e.zones)
	return result
}
