package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
)

// ErrNotFound is returned when a track id is absent from the registry.
var ErrNotFound = errors.New("track not found")

// Registry owns the authoritative set of tracks. It is shared between
// the tick loop and request handlers, so every operation takes the
// lock.
type Registry struct {
	mu     sync.RWMutex
	tracks map[string]*app.Track
	order  []string //stable iteration order for List
}

func New() *Registry {
	return &Registry{
		tracks: make(map[string]*app.Track),
	}
}

// ReplaceAll atomically clears and repopulates the registry. Used by
// seed/reset. Returns the stored snapshot.
func (r *Registry) ReplaceAll(tracks []app.Track) []app.Track {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracks = make(map[string]*app.Track, len(tracks))
	r.order = make([]string, 0, len(tracks))
	for i := range tracks {
		t := tracks[i].Clone()
		r.tracks[t.ID] = &t
		r.order = append(r.order, t.ID)
	}
	return r.listLocked()
}

// Get returns one track by id.
func (r *Registry) Get(id string) (app.Track, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tracks[id]
	if !ok {
		return app.Track{}, ErrNotFound
	}
	return t.Clone(), nil
}

// List returns a snapshot of all tracks in insertion order.
func (r *Registry) List() []app.Track {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

func (r *Registry) listLocked() []app.Track {
	result := make([]app.Track, 0, len(r.order))
	for _, id := range r.order {
		if t, ok := r.tracks[id]; ok {
			result = append(result, t.Clone())
		}
	}
	return result
}

// Count returns the number of tracks currently registered.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tracks)
}

// ApplyUpdate merges the non-nil fields of upd into the track, stamps
// UpdatedAt, and when the position changed appends a history fix,
// evicting the oldest entry once the cap is exceeded.
func (r *Registry) ApplyUpdate(id string, upd app.TrackUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tracks[id]
	if !ok {
		return ErrNotFound
	}

	now := time.Now().UTC()

	if upd.Position != nil && *upd.Position != t.Position {
		t.Position = *upd.Position
		t.History = append(t.History, app.PositionFix{
			Lat:       t.Position.Lat,
			Lng:       t.Position.Lng,
			Timestamp: now,
		})
		if len(t.History) > app.HistoryCap {
			t.History = t.History[len(t.History)-app.HistoryCap:]
		}
	}
	if upd.Altitude != nil {
		t.Altitude = *upd.Altitude
	}
	if upd.GroundSpeed != nil {
		t.GroundSpeed = *upd.GroundSpeed
	}
	if upd.Heading != nil {
		t.Heading = *upd.Heading
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Label != nil {
		t.Label = *upd.Label
	}
	t.UpdatedAt = now

	return nil
}
