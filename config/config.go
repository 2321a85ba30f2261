package config

import (
	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/diff"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/sinkers/db"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/sinkers/file"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/upstream"
)

// Zone - one geofence definition in the config file
type Zone struct {
	ID           string  `toml:"id"`
	Name         string  `toml:"name"`
	Lat          float64 `toml:"lat"`
	Lng          float64 `toml:"lng"`
	RadiusMeters float64 `toml:"radiusMeters"`
	Type         string  `toml:"type" comment:"military|airport|restricted"`
}

// Configuration contains all tracker settings
type Configuration struct {
	Log struct {
		Level string `toml:"level" default:"info" comment:"Log level: debug, info, warn, error, dpanic, panic, and fatal"`
	} `toml:"Log" comment:"###############################\n Logs Settings \n##############################"`

	Flighttracking struct {
		Mode           string                 `toml:"mode" default:"SIMULATOR" comment:"tick source: SIMULATOR or UPSTREAM"`
		SeedTracks     int                    `toml:"seedTracks" default:"6" comment:"tracks created on seed/reset"`
		TickIntervalMs int                    `toml:"tickIntervalMs" default:"3000" comment:"tick interval in milliseconds"`
		Sinkertype     string                 `toml:"sinkertype" default:"NONE" comment:"snapshot sinker: NONE, STDOUT, FILE or DB"`
		File           file.Configuration     `toml:"file" comment:"###############################\n file sinker configuration \n##############################"`
		Postgres       db.Configuration       `toml:"db" comment:"###############################\n db sinker configuration \n##############################"`
		Upstream       upstream.Configuration `toml:"upstream" comment:"###############################\n upstream provider configuration \n##############################"`
		Tolerances     diff.Tolerances        `toml:"tolerances" comment:"###############################\n change gate tolerances \n##############################"`
		Zones          []Zone                 `toml:"zones" comment:"###############################\n geofence zones \n##############################"`
	} `toml:"Flighttracking" comment:"###############################\n Flighttracking Settings \n##############################"`

	Server struct {
		Port             int `toml:"port" default:"8080" comment:"HTTP listen port"`
		BroadcastMinMs   int `toml:"broadcastMinMs" default:"400" comment:"minimum spacing between full broadcasts"`
		RequestWindowSec int `toml:"requestWindowSec" default:"120" comment:"per-client snapshot request throttle window"`
		IdleTimeoutMin   int `toml:"idleTimeoutMin" default:"30" comment:"idle subscriber disconnect threshold"`
		SweepIntervalSec int `toml:"sweepIntervalSec" default:"60" comment:"idle sweep interval"`
	} `toml:"Server" comment:"###############################\n Server Settings \n##############################"`
}

// Zones converts the configured zone list into the domain model,
// falling back to the default set when none are configured.
func (c *Configuration) Zones() []app.Zone {
	if len(c.Flighttracking.Zones) == 0 {
		return DefaultZones()
	}
	zones := make([]app.Zone, 0, len(c.Flighttracking.Zones))
	for _, z := range c.Flighttracking.Zones {
		zones = append(zones, app.Zone{
			ID:           z.ID,
			Name:         z.Name,
			Center:       app.Position{Lat: z.Lat, Lng: z.Lng},
			RadiusMeters: z.RadiusMeters,
			Type:         app.ZoneType(z.Type),
		})
	}
	return zones
}

// DefaultZones - the built-in geofence set used when the config file
// declares none. go-defaults cannot populate slices, hence code.
func DefaultZones() []app.Zone {
	return []app.Zone{
		{
			ID:           "zone-delhi-adiz",
			Name:         "Delhi ADIZ",
			Center:       app.Position{Lat: 28.6139, Lng: 77.2090},
			RadiusMeters: 50000,
			Type:         app.ZoneMilitary,
		},
		{
			ID:           "zone-mumbai-app",
			Name:         "Mumbai Approach",
			Center:       app.Position{Lat: 19.0896, Lng: 72.8656},
			RadiusMeters: 30000,
			Type:         app.ZoneAirport,
		},
		{
			ID:           "zone-sriharikota",
			Name:         "Sriharikota Launch Corridor",
			Center:       app.Position{Lat: 13.7199, Lng: 80.2304},
			RadiusMeters: 40000,
			Type:         app.ZoneRestricted,
		},
	}
}
