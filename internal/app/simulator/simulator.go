package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/geo"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/registry"
	"github.com/sirupsen/logrus"
)

// Per-tick perturbation bounds
const (
	maxLatDrift     = 0.08  //degrees
	maxLngDrift     = 0.08  //degrees
	maxAltDrift     = 800   //feet
	maxSpeedDrift   = 20    //kts
	maxHeadingDrift = 8     //degrees
	pLostComm       = 0.01  //per tick, per track
	pDelayed        = 0.01  //per tick, per track
	pLanded         = 0.005 //per tick, per track
)

// Simulator advances every non-landed track by a bounded random walk
// on a fixed interval and writes the results back through the
// registry. The refreshed snapshot is handed to OnTick.
type Simulator struct {
	Log      *logrus.Logger
	Registry *registry.Registry

	// OnTick receives the refreshed track set after every tick. Must
	// not block: the hub side is expected to dispatch asynchronously.
	OnTick func(tracks []app.Track)

	mu       sync.Mutex
	rnd      *rand.Rand
	ticker   *time.Ticker
	stop     chan struct{}
	running  bool
	inFlight bool
}

func New(log *logrus.Logger, reg *registry.Registry) *Simulator {
	return &Simulator{
		Log:      log,
		Registry: reg,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start begins ticking at the given interval. A running simulator is
// restarted: the pending tick is cancelled and rescheduled.
func (s *Simulator) Start(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	if s.running {
		s.stopLocked()
	}
	s.ticker = time.NewTicker(interval)
	s.stop = make(chan struct{})
	s.running = true
	ticker, stop := s.ticker, s.stop
	s.mu.Unlock()

	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"interval": interval,
		"tracks":   s.Registry.Count(),
	}).Info("Simulator started")

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Tick(ctx)
			case <-stop:
				return
			case <-ctx.Done():
				s.Stop()
				return
			}
		}
	}()
}

// Stop cancels the pending tick immediately. In-flight work completes.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Simulator) stopLocked() {
	if !s.running {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.running = false
	s.Log.Info("Simulator stopped")
}

// Running reports whether the tick loop is active.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Tick runs one simulation step. If the previous tick is still
// finishing the step is skipped and logged rather than queued.
func (s *Simulator) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		s.Log.WithContext(ctx).Warn("Previous tick still in flight, skipping")
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.Log.WithContext(ctx).WithFields(logrus.Fields{
				"panic": r,
			}).Error("Tick panicked, timer kept alive")
		}
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	for _, t := range s.Registry.List() {
		if t.Status == app.StatusLanded {
			// landed tracks are frozen but stay queryable
			continue
		}
		upd := s.perturb(t)
		if err := s.Registry.ApplyUpdate(t.ID, upd); err != nil {
			s.Log.WithContext(ctx).WithFields(logrus.Fields{
				"track": t.ID,
				"Error": err,
			}).Warn("Track vanished mid-tick")
		}
	}

	if s.OnTick != nil {
		s.OnTick(s.Registry.List())
	}
}

func (s *Simulator) perturb(t app.Track) app.TrackUpdate {
	s.mu.Lock()
	rnd := s.rnd
	pos := app.Position{
		Lat: t.Position.Lat + (rnd.Float64()*2-1)*maxLatDrift,
		Lng: t.Position.Lng + (rnd.Float64()*2-1)*maxLngDrift,
	}
	alt := clamp(t.Altitude+(rnd.Float64()*2-1)*maxAltDrift, app.MinAltitudeFeet, app.MaxAltitudeFeet)
	speed := clamp(t.GroundSpeed+(rnd.Float64()*2-1)*maxSpeedDrift, app.MinSpeedKts, app.MaxSpeedKts)
	heading := wrapHeading(t.Heading + (rnd.Float64()*2-1)*maxHeadingDrift)

	// Status checks ordered landed > lost-communication > delayed so at
	// most one transition fires per tick per track.
	status := t.Status
	switch {
	case rnd.Float64() < pLanded:
		status = app.StatusLanded
	case rnd.Float64() < pLostComm:
		status = app.StatusLostComm
	case rnd.Float64() < pDelayed:
		status = app.StatusDelayed
	}
	s.mu.Unlock()

	return app.TrackUpdate{
		Position:    &pos,
		Altitude:    &alt,
		GroundSpeed: &speed,
		Heading:     &heading,
		Status:      &status,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func wrapHeading(h float64) float64 {
	h = h - 360*float64(int(h/360))
	if h < 0 {
		h += 360
	}
	return h
}

var airports = []app.Airport{
	{Code: "DEL", Name: "Indira Gandhi International", City: "Delhi", Lat: 28.5562, Lng: 77.1000},
	{Code: "BOM", Name: "Chhatrapati Shivaji Maharaj International", City: "Mumbai", Lat: 19.0896, Lng: 72.8656},
	{Code: "BLR", Name: "Kempegowda International", City: "Bengaluru", Lat: 13.1986, Lng: 77.7066},
	{Code: "MAA", Name: "Chennai International", City: "Chennai", Lat: 12.9941, Lng: 80.1709},
	{Code: "CCU", Name: "Netaji Subhas Chandra Bose International", City: "Kolkata", Lat: 22.6547, Lng: 88.4467},
	{Code: "HYD", Name: "Rajiv Gandhi International", City: "Hyderabad", Lat: 17.2403, Lng: 78.4294},
}

var carriers = []string{"AI", "6E", "UK", "SG", "QP"}

// Seed builds n fresh tracks placed part-way between a random origin
// and destination pair, headed towards the destination.
func (s *Simulator) Seed(n int) []app.Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	tracks := make([]app.Track, 0, n)
	for i := 0; i < n; i++ {
		oi := s.rnd.Intn(len(airports))
		di := s.rnd.Intn(len(airports) - 1)
		if di >= oi {
			di++
		}
		origin, dest := airports[oi], airports[di]

		from := app.Position{Lat: origin.Lat, Lng: origin.Lng}
		to := app.Position{Lat: dest.Lat, Lng: dest.Lng}
		pos := geo.Interpolate(from, to, 0.15+s.rnd.Float64()*0.7)

		tracks = append(tracks, app.Track{
			ID:          fmt.Sprintf("FLT-%03d", i+1),
			Label:       fmt.Sprintf("%s-%d", carriers[s.rnd.Intn(len(carriers))], 100+s.rnd.Intn(900)),
			Position:    pos,
			Altitude:    clamp(28000+(s.rnd.Float64()*2-1)*8000, app.MinAltitudeFeet, app.MaxAltitudeFeet),
			GroundSpeed: clamp(420+(s.rnd.Float64()*2-1)*80, app.MinSpeedKts, app.MaxSpeedKts),
			Heading:     geo.Bearing(pos, to),
			Status:      app.StatusOnTime,
			Origin:      origin,
			Destination: dest,
			UpdatedAt:   now,
		})
	}
	return tracks
}
