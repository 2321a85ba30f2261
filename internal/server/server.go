package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bkoushik11/flight-tracking-backend/config"
	"github.com/bkoushik11/flight-tracking-backend/internal"
	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/hub"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/registry"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/service"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Server exposes the engine over REST and websocket.
type Server struct {
	Log    *logrus.Logger
	Conf   config.Configuration
	Engine *internal.Engine

	search   app.Service
	upgrader websocket.Upgrader
	http     *http.Server
}

func New(log *logrus.Logger, conf config.Configuration, engine *internal.Engine) *Server {
	return &Server{
		Log:    log,
		Conf:   conf,
		Engine: engine,
		search: service.New(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the REST and websocket routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api.HandleFunc("/tracks", s.listTracks).Methods(http.MethodGet)
	api.HandleFunc("/tracks/count", s.countTracks).Methods(http.MethodGet)
	api.HandleFunc("/tracks/reset", s.resetTracks).Methods(http.MethodPost)
	api.HandleFunc("/tracks/{id}", s.getTrack).Methods(http.MethodGet)

	api.HandleFunc("/alerts", s.listAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.clearAlerts).Methods(http.MethodDelete)
	api.HandleFunc("/alerts/track/{id}", s.alertsForTrack).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id}", s.dismissAlert).Methods(http.MethodDelete)

	api.HandleFunc("/zones", s.listZones).Methods(http.MethodGet)

	api.HandleFunc("/upstream/status", s.upstreamStatus).Methods(http.MethodGet)
	api.HandleFunc("/upstream/backoff", s.clearBackoff).Methods(http.MethodDelete)
	api.HandleFunc("/upstream/refresh", s.forceRefresh).Methods(http.MethodPost)

	api.HandleFunc("/search", s.searchTracks).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.serveWs)

	return r
}

// Run starts the HTTP server and blocks until a shutdown signal or
// context cancellation.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Conf.Server.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Log.WithContext(ctx).WithFields(logrus.Fields{
			"addr": addr,
		}).Info("HTTP server listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigs:
		s.Log.Info("Shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// errorPayload - structured error body {kind, message}
type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.WithFields(logrus.Fields{
			"Error": err,
		}).Error("Unable to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, message string) {
	s.writeJSON(w, status, errorPayload{Kind: kind, Message: message})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"tracks":  s.Engine.Registry.Count(),
		"clients": s.Engine.Hub.ClientCount(),
	})
}

func (s *Server) listTracks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.Registry.List())
}

func (s *Server) countTracks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]int{"count": s.Engine.Registry.Count()})
}

func (s *Server) getTrack(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	track, err := s.Engine.Registry.Get(id)
	if errors.Is(err, registry.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "NotFound", "unknown track "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, track)
}

func (s *Server) resetTracks(w http.ResponseWriter, r *http.Request) {
	tracks := s.Engine.Reset()
	s.writeJSON(w, http.StatusOK, tracks)
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.Alerts.GetAll())
}

func (s *Server) clearAlerts(w http.ResponseWriter, r *http.Request) {
	s.Engine.Alerts.ClearAll()
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "all alerts cleared"})
}

func (s *Server) alertsForTrack(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.Alerts.GetForTrack(mux.Vars(r)["id"]))
}

func (s *Server) dismissAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.Engine.Alerts.Dismiss(id) {
		s.writeError(w, http.StatusNotFound, "NotFound", "unknown alert "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "alert dismissed"})
}

func (s *Server) listZones(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.Alerts.Zones())
}

func (s *Server) upstreamStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.Upstream.Status())
}

func (s *Server) clearBackoff(w http.ResponseWriter, r *http.Request) {
	s.Engine.Upstream.ClearBackoff()
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "backoff cleared"})
}

func (s *Server) forceRefresh(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.Engine.Upstream.ForceRefresh(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, "UpstreamTransient", err.Error())
		return
	}
	s.Engine.Ingest(r.Context(), tracks)
	s.writeJSON(w, http.StatusOK, tracks)
}

//Search on collected data
// params : bbox, altitude threshold, time windows (from, to)
// return : json
func (s *Server) searchTracks(w http.ResponseWriter, r *http.Request) {
	if s.Conf.Flighttracking.Sinkertype != "DB" {
		s.writeError(w, http.StatusConflict, "ValidationError", "search requires the DB sinker")
		return
	}

	query := r.URL.Query()

	bbox, err := parseBbox(query.Get("bbox"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "ValidationError",
			fmt.Sprintf("bbox have to be well formatted (%s)", err.Error()))
		return
	}

	maxAltitude, err := strconv.ParseFloat(query.Get("maxAltitudeFeet"), 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "ValidationError",
			fmt.Sprintf("need a number (%s)", err.Error()))
		return
	}

	layout := "2006-01-02T15:04:05"
	from, err := time.Parse(layout, query.Get("fromTimeStamp"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "ValidationError",
			fmt.Sprintf("need a time with layout (%s) - error: %s", layout, err.Error()))
		return
	}
	to, err := time.Parse(layout, query.Get("toTimeStamp"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "ValidationError",
			fmt.Sprintf("need a time with layout (%s) - error: %s", layout, err.Error()))
		return
	}

	data, err := s.search.Search(r.Context(), s.Conf.Flighttracking.Postgres, bbox, maxAltitude, from, to)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Internal", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"nbTracks": len(data),
		"data":     data,
	})
}

// serveWs upgrades the connection and pumps inbound requests into the
// hub until the client goes away.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.WithFields(logrus.Fields{
			"Error": err,
		}).Error("Websocket upgrade failed")
		return
	}

	client := s.Engine.Hub.Register(conn)
	defer s.Engine.Hub.Unregister(client)

	for {
		var in struct {
			Type    string `json:"type"`
			TrackID string `json:"trackId"`
		}
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.Log.WithFields(logrus.Fields{
					"client": client.ID,
					"Error":  err,
				}).Warn("Websocket read failed")
			}
			return
		}
		s.Engine.Hub.HandleInbound(client, hub.Inbound{Type: in.Type, TrackID: in.TrackID})
	}
}
