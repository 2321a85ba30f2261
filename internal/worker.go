package internal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bkoushik11/flight-tracking-backend/config"
	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/alerts"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/diff"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/hub"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/registry"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/simulator"
	dbSinker "github.com/bkoushik11/flight-tracking-backend/internal/app/sinkers/db"
	fileSinker "github.com/bkoushik11/flight-tracking-backend/internal/app/sinkers/file"
	stdoutSinker "github.com/bkoushik11/flight-tracking-backend/internal/app/sinkers/stdout"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/upstream"
	"github.com/sirupsen/logrus"
)

// Engine wires the core components: registry, tick source, alert
// engine, change gate, fan-out hub and optional sinker. One tick runs
// registry-update -> alert-recompute -> change-gate -> broadcast, in
// that order.
type Engine struct {
	Log      *logrus.Logger
	Conf     config.Configuration
	Registry *registry.Registry
	Alerts   *alerts.Engine
	Hub      *hub.Hub
	Sim      *simulator.Simulator
	Upstream *upstream.Client

	sinker app.Sinker

	mu   sync.Mutex
	prev []app.Track
}

// NewEngine builds and seeds the engine from the configuration.
func NewEngine(log *logrus.Logger, conf config.Configuration) *Engine {
	reg := registry.New()
	e := &Engine{
		Log:      log,
		Conf:     conf,
		Registry: reg,
		Alerts:   alerts.New(log, conf.Zones()),
		Sim:      simulator.New(log, reg),
		Upstream: upstream.New(log, conf.Flighttracking.Upstream),
	}
	e.Sim.OnTick = e.handleTick

	hubCfg := hub.DefaultConfig()
	if conf.Server.BroadcastMinMs > 0 {
		hubCfg.MinBroadcastInterval = time.Duration(conf.Server.BroadcastMinMs) * time.Millisecond
	}
	if conf.Server.RequestWindowSec > 0 {
		hubCfg.RequestWindow = time.Duration(conf.Server.RequestWindowSec) * time.Second
	}
	if conf.Server.IdleTimeoutMin > 0 {
		hubCfg.IdleTimeout = time.Duration(conf.Server.IdleTimeoutMin) * time.Minute
	}
	if conf.Server.SweepIntervalSec > 0 {
		hubCfg.SweepInterval = time.Duration(conf.Server.SweepIntervalSec) * time.Second
	}
	e.Hub = hub.New(log, hubCfg)
	e.Hub.Snapshot = func() ([]app.Track, error) {
		return e.Registry.List(), nil
	}

	e.Reset()
	return e
}

// Reset reseeds the registry and clears all active alerts. Returns the
// new track set.
func (e *Engine) Reset() []app.Track {
	n := e.Conf.Flighttracking.SeedTracks
	if n <= 0 {
		n = 6
	}
	tracks := e.Registry.ReplaceAll(e.Sim.Seed(n))
	e.Alerts.ClearAll()

	e.mu.Lock()
	e.prev = nil
	e.mu.Unlock()

	e.Log.WithFields(logrus.Fields{
		"tracks": len(tracks),
	}).Info("Registry reseeded")
	return tracks
}

// WithSinker attaches a snapshot sinker fed on every significant tick.
func (e *Engine) WithSinker(s app.Sinker) {
	e.sinker = s
}

// Run starts the configured tick source and the hub idle sweeper, and
// blocks until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Duration(e.Conf.Flighttracking.TickIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 3 * time.Second
	}

	e.Hub.StartSweeper(ctx)

	switch e.Conf.Flighttracking.Mode {
	case "UPSTREAM":
		e.Log.WithContext(ctx).WithFields(logrus.Fields{
			"interval": interval,
		}).Info("Starting upstream polling")
		go e.pollUpstream(ctx, interval)
	default:
		e.Sim.Start(ctx, interval)
	}

	<-ctx.Done()
	e.Sim.Stop()
	return nil
}

// pollUpstream drives ticks from the external provider instead of the
// simulator. Fetch failures are logged per tick and never kill the
// loop.
func (e *Engine) pollUpstream(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tracks, err := e.Upstream.FetchTracks(ctx)
			if err != nil {
				e.Log.WithContext(ctx).WithFields(logrus.Fields{
					"Error": err,
				}).Error("Upstream fetch failed with empty cache, skipping tick")
				continue
			}
			e.Ingest(ctx, tracks)
		case <-ctx.Done():
			return
		}
	}
}

// Ingest merges an externally produced track set: the raw list is
// always broadcast, the heavier registry merge (history append) only
// happens when the change gate fires.
func (e *Engine) Ingest(ctx context.Context, tracks []app.Track) {
	e.mu.Lock()
	prev := e.prev
	e.mu.Unlock()

	significant := diff.Significant(prev, tracks, e.Conf.Flighttracking.Tolerances)
	if significant {
		known := make(map[string]bool)
		for _, t := range e.Registry.List() {
			known[t.ID] = true
		}
		fresh := false
		for _, t := range tracks {
			if !known[t.ID] {
				fresh = true
				break
			}
		}
		if fresh || len(tracks) != len(known) {
			e.Registry.ReplaceAll(tracks)
		} else {
			for _, t := range tracks {
				pos, alt, speed, heading, status := t.Position, t.Altitude, t.GroundSpeed, t.Heading, t.Status
				if err := e.Registry.ApplyUpdate(t.ID, app.TrackUpdate{
					Position:    &pos,
					Altitude:    &alt,
					GroundSpeed: &speed,
					Heading:     &heading,
					Status:      &status,
				}); err != nil && !errors.Is(err, registry.ErrNotFound) {
					e.Log.WithContext(ctx).WithFields(logrus.Fields{
						"track": t.ID,
						"Error": err,
					}).Warn("Unable to merge upstream track")
				}
			}
		}
	}

	e.dispatch(ctx, e.Registry.List(), significant)
}

// handleTick is the simulator callback. The simulator has already
// written its updates through the registry.
func (e *Engine) handleTick(tracks []app.Track) {
	ctx := context.Background()

	e.mu.Lock()
	prev := e.prev
	e.mu.Unlock()

	significant := diff.Significant(prev, tracks, e.Conf.Flighttracking.Tolerances)
	e.dispatch(ctx, tracks, significant)
}

// dispatch runs the ordered downstream pass for one tick: alert
// recompute, then broadcast, then the significant-only side work.
func (e *Engine) dispatch(ctx context.Context, tracks []app.Track, significant bool) {
	newAlerts := e.Alerts.Evaluate(tracks)

	// full list goes out every cycle to keep subscribers warm
	e.Hub.BroadcastTracks(tracks)
	e.Hub.BroadcastAlerts(newAlerts)

	if significant {
		for _, t := range tracks {
			e.Hub.BroadcastTrack(t)
		}
		if e.sinker != nil {
			if err := e.sinker.Sink(ctx, time.Now(), tracks); err != nil {
				e.Log.WithContext(ctx).Error(err)
			}
		}
	}

	e.mu.Lock()
	e.prev = tracks
	e.mu.Unlock()
}

//Execute - start the headless collector: tick source plus sinker, no
//API or websocket layer.
func Execute(ctx context.Context, log *logrus.Logger, conf config.Configuration) error {
	log.WithContext(ctx).WithFields(logrus.Fields{
		"mode":           conf.Flighttracking.Mode,
		"tickIntervalMs": conf.Flighttracking.TickIntervalMs,
		"seedTracks":     conf.Flighttracking.SeedTracks,
		"sinkerType":     conf.Flighttracking.Sinkertype,
		"dbHost":         conf.Flighttracking.Postgres.Host,
		"dbPort":         conf.Flighttracking.Postgres.Port,
		"dbUser":         conf.Flighttracking.Postgres.User,
		"dbName":         conf.Flighttracking.Postgres.Dbname,
	}).Info("START with Configuration params: ")

	engine := NewEngine(log, conf)

	sinker, params, err := BuildSinker(conf, log)
	if err != nil {
		log.WithContext(ctx).Error(err)
		return err
	}
	if sinker != nil {
		if errInit := sinker.Init(ctx, params); errInit != nil {
			log.WithContext(ctx).Error(errInit)
			return errInit
		}
		engine.WithSinker(sinker)
	}

	return engine.Run(ctx)
}

func BuildSinker(conf config.Configuration, log *logrus.Logger) (app.Sinker, interface{}, error) {
	switch conf.Flighttracking.Sinkertype {
	case "FILE":
		log.Info("Initiate File Sinker")
		return fileSinker.New(log), conf.Flighttracking.File, nil
	case "STDOUT":
		log.Info("Initiate stdOut Sinker")
		return stdoutSinker.New(log), nil, nil
	case "DB":
		log.Info("Initiate DB Sinker")
		return dbSinker.New(log), conf.Flighttracking.Postgres, nil
	case "", "NONE":
		return nil, nil, nil
	default:
		return nil, nil, errors.New("Wrong sinker specified")
	}
}
