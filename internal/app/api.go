package app

import (
	"context"
	"time"
)

// TrackStatus - lifecycle status of a tracked flight
type TrackStatus string

const (
	StatusOnTime   TrackStatus = "on-time"
	StatusDelayed  TrackStatus = "delayed"
	StatusLanded   TrackStatus = "landed"
	StatusLostComm TrackStatus = "lost-communication"
)

// Movement envelope applied during simulation
const (
	MinAltitudeFeet = 0
	MaxAltitudeFeet = 40000
	MinSpeedKts     = 140
	MaxSpeedKts     = 560
	HistoryCap      = 50
	FEETTOMETER     = 0.3048
	KTSKMH          = 1.852
)

// Position - a geographic point in degrees
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PositionFix - one historical position sample of a track
type PositionFix struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// Airport - origin or destination of a track
type Airport struct {
	Code string  `json:"code"`
	Name string  `json:"name"`
	City string  `json:"city"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Track - one simulated or ingested flight
type Track struct {
	ID          string        `json:"id"`
	Label       string        `json:"label"`
	Position    Position      `json:"position"`
	Altitude    float64       `json:"altitude"`    //feet
	GroundSpeed float64       `json:"groundSpeed"` //kts 1kts => 1.852 kmh
	Heading     float64       `json:"heading"`     //degrees, [0,360)
	Status      TrackStatus   `json:"status"`
	Origin      Airport       `json:"originAirport"`
	Destination Airport       `json:"destinationAirport"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	History     []PositionFix `json:"history"`
}

// TrackUpdate - partial field merge applied through the registry.
// Nil pointer means "leave the field untouched".
type TrackUpdate struct {
	Position    *Position
	Altitude    *float64
	GroundSpeed *float64
	Heading     *float64
	Status      *TrackStatus
	Label       *string
}

// AlertKind - what condition raised an alert
type AlertKind string

const (
	AlertLostComm  AlertKind = "lost-communication"
	AlertZoneEntry AlertKind = "geofence-entry"
)

// Severity - alert severity level
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ZoneType - category of a geofence zone, drives geofence alert severity
type ZoneType string

const (
	ZoneMilitary   ZoneType = "military"
	ZoneAirport    ZoneType = "airport"
	ZoneRestricted ZoneType = "restricted"
)

// Zone - a circular geofence, immutable for the process lifetime
type Zone struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Center       Position `json:"center"`
	RadiusMeters float64  `json:"radiusMeters"`
	Type         ZoneType `json:"type"`
}

// Alert - a detected condition tied to one track, and for geofence
// entries to one zone
type Alert struct {
	ID        string    `json:"id"`
	TrackID   string    `json:"trackId"`
	Kind      AlertKind `json:"kind"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
	ZoneID    string    `json:"zoneId,omitempty"`
	ZoneName  string    `json:"zoneName,omitempty"`
	ZoneType  ZoneType  `json:"zoneType,omitempty"`
}

// Sinker - receives every tick's track snapshot for export
type Sinker interface {
	Init(ctx context.Context, params interface{}) error
	Sink(ctx context.Context, t time.Time, data []Track) error
}

// Bbox - a geographic bounding box (south-west / north-east corners)
type Bbox struct {
	LatSW float64 `json:"latSW"`
	LngSW float64 `json:"lngSW"`
	LatNE float64 `json:"latNE"`
	LngNE float64 `json:"lngNE"`
}

// SunkTrack - one historical snapshot row from the DB sinker
type SunkTrack struct {
	TrackID         string      `json:"trackId"`
	Label           string      `json:"label"`
	Position        Position    `json:"position"`
	Altitude        float64     `json:"altitude"`
	GroundSpeed     float64     `json:"groundSpeed"`
	Heading         float64     `json:"heading"`
	Status          TrackStatus `json:"status"`
	OriginCode      string      `json:"originCode"`
	DestinationCode string      `json:"destinationCode"`
	SunkAt          time.Time   `json:"sunkAt"`
}

// Service - historical search over sunk track snapshots
type Service interface {
	Search(ctx context.Context, params interface{}, bbox Bbox, maxAltitudeFeet float64, from, to time.Time) ([]SunkTrack, error)
}

// Clone returns a deep copy of the track, history included.
func (t Track) Clone() Track {
	c := t
	if t.History != nil {
		c.History = make([]PositionFix, len(t.History))
		copy(c.History, t.History)
	}
	return c
}
