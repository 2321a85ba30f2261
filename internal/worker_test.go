package internal

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bkoushik11/flight-tracking-backend/config"
	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSinker struct {
	mu    sync.Mutex
	sinks int
	last  []app.Track
}

func (s *countingSinker) Init(ctx context.Context, params interface{}) error {
	return nil
}

func (s *countingSinker) Sink(ctx context.Context, t time.Time, tracks []app.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks++
	s.last = tracks
	return nil
}

func (s *countingSinker) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sinks
}

func newTestEngine(t *testing.T) *Engine {
	log := logrus.New()
	log.Out = io.Discard

	conf := config.Configuration{}
	defaults.SetDefaults(&conf)
	return NewEngine(log, conf)
}

func externalTracks() []app.Track {
	return []app.Track{
		{ID: "EXT-1", Label: "AI-101", Position: app.Position{Lat: 25.0, Lng: 80.0}, Altitude: 32000, GroundSpeed: 460, Heading: 270, Status: app.StatusOnTime},
		{ID: "EXT-2", Label: "6E-115", Position: app.Position{Lat: 22.0, Lng: 75.0}, Altitude: 30000, GroundSpeed: 440, Heading: 90, Status: app.StatusOnTime},
	}
}

func TestNewEngineSeedsRegistry(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, 6, e.Registry.Count())
	assert.Empty(t, e.Alerts.GetAll())
}

func TestResetReseedsAndClearsAlerts(t *testing.T) {
	e := newTestEngine(t)

	// trip an alert, then reset must wipe it
	lost := app.StatusLostComm
	require.NoError(t, e.Registry.ApplyUpdate("FLT-001", app.TrackUpdate{Status: &lost}))
	e.Alerts.Evaluate(e.Registry.List())
	require.NotEmpty(t, e.Alerts.GetAll())

	tracks := e.Reset()
	assert.Len(t, tracks, 6)
	assert.Empty(t, e.Alerts.GetAll())
}

func TestIngestReplacesUnknownFleet(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.Ingest(ctx, externalTracks())

	assert.Equal(t, 2, e.Registry.Count())
	track, err := e.Registry.Get("EXT-1")
	require.NoError(t, err)
	assert.Equal(t, "AI-101", track.Label)
}

func TestIngestGatesOnSignificance(t *testing.T) {
	e := newTestEngine(t)
	sinker := &countingSinker{}
	e.WithSinker(sinker)
	ctx := context.Background()

	// first ingest: no previous snapshot, always significant
	e.Ingest(ctx, externalTracks())
	require.Equal(t, 1, sinker.count())

	// identical snapshot: gate holds, sinker untouched
	e.Ingest(ctx, externalTracks())
	assert.Equal(t, 1, sinker.count())

	// a real altitude change reopens the gate
	moved := externalTracks()
	moved[0].Altitude += 500
	e.Ingest(ctx, moved)
	assert.Equal(t, 2, sinker.count())

	track, err := e.Registry.Get("EXT-1")
	require.NoError(t, err)
	assert.Equal(t, 32500.0, track.Altitude)
}

func TestIngestMergeKeepsHistory(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.Ingest(ctx, externalTracks())

	// same fleet, new position: merged through the registry so the
	// previous fix lands in history
	moved := externalTracks()
	moved[0].Position = app.Position{Lat: 25.1, Lng: 80.1}
	e.Ingest(ctx, moved)

	track, err := e.Registry.Get("EXT-1")
	require.NoError(t, err)
	assert.Equal(t, 25.1, track.Position.Lat)
	require.NotEmpty(t, track.History)
}

func TestIngestInsignificantSkipsMerge(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.Ingest(ctx, externalTracks())
	before, err := e.Registry.Get("EXT-1")
	require.NoError(t, err)

	// jitter below the tolerances never touches the registry
	jittered := externalTracks()
	jittered[0].Position.Lat += 0.000001
	e.Ingest(ctx, jittered)

	after, err := e.Registry.Get("EXT-1")
	require.NoError(t, err)
	assert.Equal(t, before.Position, after.Position)
	assert.Empty(t, after.History)
}

func TestBuildSinker(t *testing.T) {
	log := logrus.New()
	log.Out = io.Discard

	conf := config.Configuration{}
	defaults.SetDefaults(&conf)

	conf.Flighttracking.Sinkertype = "STDOUT"
	sinker, params, err := BuildSinker(conf, log)
	require.NoError(t, err)
	assert.NotNil(t, sinker)
	assert.Nil(t, params)

	conf.Flighttracking.Sinkertype = "FILE"
	sinker, params, err = BuildSinker(conf, log)
	require.NoError(t, err)
	assert.NotNil(t, sinker)
	assert.Equal(t, conf.Flighttracking.File, params)

	conf.Flighttracking.Sinkertype = "NONE"
	sinker, _, err = BuildSinker(conf, log)
	require.NoError(t, err)
	assert.Nil(t, sinker)

	conf.Flighttracking.Sinkertype = "BOGUS"
	_, _, err = BuildSinker(conf, log)
	assert.Error(t, err)
}
