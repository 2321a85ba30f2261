package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Conn is the narrow connection contract the hub needs from the
// realtime transport. *websocket.Conn satisfies it; tests use fakes.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// TopicAll is the default topic every client is joined to.
const TopicAll = "tracks:all"

func topicTrack(id string) string {
	return "track:" + id
}

// Message - one outbound frame
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Inbound - one request from a connected client
type Inbound struct {
	Type    string `json:"type"`
	TrackID string `json:"trackId,omitempty"`
}

// Config holds hub tunables.
type Config struct {
	SendBuffer           int           //per-client outbound queue length
	MinBroadcastInterval time.Duration //full-broadcast spacing
	RequestWindow        time.Duration //per-client snapshot request throttle
	IdleTimeout          time.Duration //sweep disconnect threshold
	SweepInterval        time.Duration
}

// DefaultConfig returns the default hub tuning.
func DefaultConfig() Config {
	return Config{
		SendBuffer:           32,
		MinBroadcastInterval: 400 * time.Millisecond,
		RequestWindow:        120 * time.Second,
		IdleTimeout:          30 * time.Minute,
		SweepInterval:        time.Minute,
	}
}

// Client represents one connected observer.
type Client struct {
	ID          string
	conn        Conn
	send        chan Message
	connectedAt time.Time

	mu              sync.Mutex
	topics          map[string]bool
	closed          bool
	lastActivity    time.Time
	lastSnapshotReq time.Time
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

func (c *Client) subscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topics[topic]
}

// Hub maintains the set of active clients, their topic memberships,
// and broadcasts track and alert updates to them. A slow client never
// blocks the tick loop: its queue fills and it gets disconnected.
type Hub struct {
	Log *logrus.Logger
	cfg Config

	// Snapshot provides the current track set for on-demand requests.
	// On failure the hub falls back to the last broadcast snapshot.
	Snapshot func() ([]app.Track, error)

	mu            sync.RWMutex
	clients       map[*Client]bool
	lastBroadcast time.Time
	cached        []app.Track
}

func New(log *logrus.Logger, cfg Config) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultConfig().SendBuffer
	}
	return &Hub{
		Log:     log,
		cfg:     cfg,
		clients: make(map[*Client]bool),
	}
}

// Register wires a new connection into the hub and starts its writer.
func (h *Hub) Register(conn Conn) *Client {
	now := time.Now()
	c := &Client{
		ID:           uuid.NewString(),
		conn:         conn,
		send:         make(chan Message, h.cfg.SendBuffer),
		connectedAt:  now,
		topics:       map[string]bool{TopicAll: true},
		lastActivity: now,
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go h.writeLoop(c)

	h.Log.WithFields(logrus.Fields{
		"client": c.ID,
	}).Info("Client registered")
	return c
}

func (h *Hub) writeLoop(c *Client) {
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			h.Unregister(c)
			return
		}
	}
}

// Unregister drops the client and closes its connection. The send
// channel is closed under the client mutex so in-flight deliveries
// never race the close.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()

	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()

	if ok {
		_ = c.conn.Close()
		h.Log.WithFields(logrus.Fields{
			"client": c.ID,
		}).Info("Client unregistered")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// deliver enqueues without blocking. A full queue means a stuck
// client: drop it so the broadcast path stays non-blocking. The send
// happens under the client mutex, the same lock Unregister closes the
// channel under, so a frame aimed at a departing client is discarded
// instead of hitting a closed channel.
func (h *Hub) deliver(c *Client, msg Message) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.send <- msg:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		h.Log.WithFields(logrus.Fields{
			"client": c.ID,
		}).Warn("Client send buffer full, disconnecting")
		go h.Unregister(c)
	}
}

// BroadcastTracks pushes the full track list to every client on the
// all-tracks topic, honoring the minimum broadcast spacing. The
// snapshot is always cached for fallback even when the send is
// throttled.
func (h *Hub) BroadcastTracks(tracks []app.Track) {
	h.mu.Lock()
	h.cached = tracks
	if time.Since(h.lastBroadcast) < h.cfg.MinBroadcastInterval {
		h.mu.Unlock()
		return
	}
	h.lastBroadcast = time.Now()
	targets := h.targetsLocked(TopicAll)
	h.mu.Unlock()

	msg := Message{Type: "tracks", Payload: tracks}
	for _, c := range targets {
		h.deliver(c, msg)
	}
}

// BroadcastTrack pushes one track to the subscribers of its topic.
// Single-track pushes bypass the full-broadcast throttle.
func (h *Hub) BroadcastTrack(t app.Track) {
	h.mu.RLock()
	targets := h.targetsLocked(topicTrack(t.ID))
	h.mu.RUnlock()

	msg := Message{Type: "track", Payload: t}
	for _, c := range targets {
		h.deliver(c, msg)
	}
}

// BroadcastAlerts pushes newly raised alerts to every client.
func (h *Hub) BroadcastAlerts(alerts []app.Alert) {
	if len(alerts) == 0 {
		return
	}
	h.mu.RLock()
	targets := h.targetsLocked(TopicAll)
	h.mu.RUnlock()

	msg := Message{Type: "alerts", Payload: alerts}
	for _, c := range targets {
		h.deliver(c, msg)
	}
}

func (h *Hub) targetsLocked(topic string) []*Client {
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.subscribed(topic) {
			targets = append(targets, c)
		}
	}
	return targets
}

// HandleInbound routes one client request.
func (h *Hub) HandleInbound(c *Client, in Inbound) {
	c.touch()

	switch in.Type {
	case "subscribe":
		if in.TrackID == "" {
			h.deliver(c, Message{Type: "error", Payload: map[string]string{
				"kind":    "ValidationError",
				"message": "subscribe requires trackId",
			}})
			return
		}
		c.mu.Lock()
		c.topics[topicTrack(in.TrackID)] = true
		c.mu.Unlock()
		h.deliver(c, Message{Type: "system", Payload: "subscribed to " + in.TrackID})

	case "unsubscribe":
		c.mu.Lock()
		delete(c.topics, topicTrack(in.TrackID))
		c.mu.Unlock()
		h.deliver(c, Message{Type: "system", Payload: "unsubscribed from " + in.TrackID})

	case "get_tracks":
		if wait, ok := h.throttleSnapshot(c); !ok {
			h.deliver(c, Message{Type: "system", Payload: fmt.Sprintf("try again in %d seconds", wait)})
			return
		}
		h.deliver(c, Message{Type: "tracks", Payload: h.currentTracks()})

	case "get_count":
		h.deliver(c, Message{Type: "count", Payload: len(h.currentTracks())})

	default:
		h.deliver(c, Message{Type: "error", Payload: map[string]string{
			"kind":    "ValidationError",
			"message": "unknown request type " + in.Type,
		}})
	}
}

// throttleSnapshot enforces the per-client request window. Returns the
// remaining wait in whole seconds when throttled.
func (h *Hub) throttleSnapshot(c *Client) (int, bool) {
	if h.cfg.RequestWindow <= 0 {
		return 0, true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.lastSnapshotReq)
	if !c.lastSnapshotReq.IsZero() && elapsed < h.cfg.RequestWindow {
		wait := int((h.cfg.RequestWindow - elapsed).Seconds()) + 1
		return wait, false
	}
	c.lastSnapshotReq = time.Now()
	return 0, true
}

// currentTracks resolves the snapshot, preferring live data, then the
// last broadcast set, then an explicit empty list. A subscriber never
// hangs on an upstream failure.
func (h *Hub) currentTracks() []app.Track {
	if h.Snapshot != nil {
		tracks, err := h.Snapshot()
		if err == nil {
			return tracks
		}
		h.Log.WithFields(logrus.Fields{
			"Error": err,
		}).Warn("Snapshot failed, serving cached tracks")
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.cached != nil {
		return h.cached
	}
	return []app.Track{}
}

// StartSweeper disconnects clients idle beyond the configured
// threshold on a fixed interval, until the context is cancelled.
func (h *Hub) StartSweeper(ctx context.Context) {
	if h.cfg.SweepInterval <= 0 || h.cfg.IdleTimeout <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(h.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (h *Hub) sweep() {
	h.mu.RLock()
	idle := map[*Client]time.Duration{}
	for c := range h.clients {
		c.mu.Lock()
		if since := time.Since(c.lastActivity); since > h.cfg.IdleTimeout {
			idle[c] = since
		}
		c.mu.Unlock()
	}
	h.mu.RUnlock()

	for c, since := range idle {
		h.Log.WithFields(logrus.Fields{
			"client": c.ID,
			"idle":   since,
		}).Info("Disconnecting idle client")
		h.Unregister(c)
	}
}
