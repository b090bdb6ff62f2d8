// Package realtime holds the process-wide registry of live-update sessions.
//
// The Registry is an actor: one goroutine (Serve) owns the membership set
// and every join, leave, broadcast and stats request is a message to it.
// Nothing outside that goroutine touches the set, so member counts and
// broadcast recipients are always observed consistently.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pigmap/internal/logging"
	"pigmap/internal/metrics"
	"pigmap/internal/model"
)

// DefaultBroadcastBuffer bounds pending broadcasts waiting for the actor.
const DefaultBroadcastBuffer = 256

// ErrStopped is returned by calls made after the registry has shut down.
var ErrStopped = errors.New("registry stopped")

// Stats is a point-in-time view of membership.
type Stats struct {
	ActiveSessions int `json:"activeSessions"`
}

// Config configures a Registry.
type Config struct {
	// AllowedOrigins lists accepted Origin headers; "*" accepts any.
	AllowedOrigins []string
	// SendBuffer is the per-session queue length.
	SendBuffer int
	// BroadcastBuffer is the pending-broadcast queue length.
	BroadcastBuffer int
}

type outbound struct {
	typ  string
	data []byte
}

// Registry tracks connected sessions and fans events out to them.
type Registry struct {
	sessions map[*Session]struct{}

	join     chan *Session
	leave    chan *Session
	presence chan struct{}
	outbound chan outbound
	stats    chan chan Stats

	stopped  chan struct{}
	stopOnce sync.Once

	upgrader   websocket.Upgrader
	sendBuffer int
}

func NewRegistry(cfg Config) *Registry {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSendBuffer
	}
	if cfg.BroadcastBuffer <= 0 {
		cfg.BroadcastBuffer = DefaultBroadcastBuffer
	}

	r := &Registry{
		sessions:   make(map[*Session]struct{}),
		join:       make(chan *Session),
		leave:      make(chan *Session),
		presence:   make(chan struct{}),
		outbound:   make(chan outbound, cfg.BroadcastBuffer),
		stats:      make(chan chan Stats),
		stopped:    make(chan struct{}),
		sendBuffer: cfg.SendBuffer,
	}
	r.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      originChecker(cfg.AllowedOrigins),
	}
	return r
}

func (r *Registry) String() string { return "registry" }

// Serve runs the actor loop until ctx is cancelled. All sessions are closed on exit.
func (r *Registry) Serve(ctx context.Context) error {
	log := logging.Component("registry")
	log.Info().Msg("Registry started")

	for {
		select {
		case <-ctx.Done():
			n := r.closeAll()
			r.stopOnce.Do(func() { close(r.stopped) })
			log.Info().Int("sessions_closed", n).Msg("Registry stopped")
			return ctx.Err()

		case s := <-r.join:
			r.add(s)

		case s := <-r.leave:
			r.remove(s)

		case <-r.presence:
			r.announceCount()

		case msg := <-r.outbound:
			r.fanout(msg, nil)

		case reply := <-r.stats:
			reply <- Stats{ActiveSessions: len(r.sessions)}
		}
	}
}

// Accept upgrades the request, registers the session and starts its pumps.
// The new session is sent a welcome event before anything else.
func (r *Registry) Accept(w http.ResponseWriter, req *http.Request) (*Session, error) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		logging.Component("registry").Warn().Err(err).Str("remote", req.RemoteAddr).Msg("Accept FAILED")
		return nil, fmt.Errorf("%w: %w", model.ErrConnection, err)
	}

	s := newSession(r, conn, r.sendBuffer)
	if !r.Join(s) {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %w", model.ErrConnection, ErrStopped)
	}
	s.start()
	return s, nil
}

// Join adds s to the membership set. Returns false if the registry has stopped.
func (r *Registry) Join(s *Session) bool {
	select {
	case r.join <- s:
		return true
	case <-r.stopped:
		return false
	}
}

// Leave removes s. Removing a session that is not a member is a no-op.
func (r *Registry) Leave(s *Session) {
	select {
	case r.leave <- s:
	case <-r.stopped:
	}
}

// Broadcast serializes e once and queues it for every session. It never
// blocks the caller: if the queue is full the event is dropped and logged.
func (r *Registry) Broadcast(e Event) {
	log := logging.Component("registry")

	data, err := Encode(e)
	if err != nil {
		log.Error().Err(err).Str("type", e.EventType()).Msg("Broadcast encode FAILED")
		return
	}

	select {
	case r.outbound <- outbound{typ: e.EventType(), data: data}:
	default:
		log.Warn().Str("type", e.EventType()).Msg("Broadcast queue full, event dropped")
	}
}

// MarkerAdded broadcasts a marker_added event.
func (r *Registry) MarkerAdded(m model.Marker) {
	r.Broadcast(NewMarkerAddedEvent(m))
}

// Stats asks the actor for the current membership size.
func (r *Registry) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)

	select {
	case r.stats <- reply:
	case <-r.stopped:
		return Stats{}, ErrStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}

	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// HandleMessage processes one client message. Malformed or unknown messages
// are logged and ignored. user_location re-announces the active-user count;
// the location itself is not retained.
func (r *Registry) HandleMessage(s *Session, raw []byte) {
	msg, err := ParseClientMessage(raw)
	if err != nil {
		logging.Component("registry").Warn().Err(err).Uint64("session", s.ID()).Msg("Ignoring client message")
		return
	}

	switch msg.Type {
	case TypeUserLocation:
		select {
		case r.presence <- struct{}{}:
		case <-r.stopped:
		}
	}
}

// add runs on the actor goroutine.
func (r *Registry) add(s *Session) {
	r.sessions[s] = struct{}{}
	n := len(r.sessions)
	metrics.ActiveSessions.Set(float64(n))
	logging.Component("registry").Info().Uint64("session", s.ID()).Int("active", n).Msg("Join OK")

	welcome, err := Encode(NewWelcomeEvent(n))
	if err == nil && !r.enqueue(s, welcome) {
		r.drop(s, "buffer_full")
	}

	r.fanoutCount(s)
}

// remove runs on the actor goroutine.
func (r *Registry) remove(s *Session) {
	if _, ok := r.sessions[s]; !ok {
		return
	}
	delete(r.sessions, s)
	close(s.send)
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	logging.Component("registry").Info().Uint64("session", s.ID()).Int("active", len(r.sessions)).Msg("Leave OK")

	r.announceCount()
}

func (r *Registry) announceCount() {
	r.fanoutCount(nil)
}

func (r *Registry) fanoutCount(except *Session) {
	evt := NewActiveUsersEvent(len(r.sessions))
	data, err := Encode(evt)
	if err != nil {
		return
	}
	r.fanout(outbound{typ: evt.EventType(), data: data}, except)
}

// fanout delivers msg to every member except one. Members whose queue is
// full are dropped, and the remaining members are told the new count.
func (r *Registry) fanout(msg outbound, except *Session) {
	metrics.RecordBroadcast(msg.typ)

	var full []*Session
	for s := range r.sessions {
		if s == except {
			continue
		}
		if !r.enqueue(s, msg.data) {
			full = append(full, s)
		}
	}
	if len(full) == 0 {
		return
	}

	for _, s := range full {
		r.drop(s, "buffer_full")
	}
	r.announceCount()
}

func (r *Registry) enqueue(s *Session, data []byte) bool {
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (r *Registry) drop(s *Session, reason string) {
	if _, ok := r.sessions[s]; !ok {
		return
	}
	delete(r.sessions, s)
	close(s.send)
	metrics.RecordDroppedSession(reason)
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	logging.Component("registry").Warn().Uint64("session", s.ID()).Str("reason", reason).Msg("Session dropped")
}

func (r *Registry) closeAll() int {
	n := len(r.sessions)
	for s := range r.sessions {
		close(s.send)
		delete(r.sessions, s)
	}
	metrics.ActiveSessions.Set(0)
	return n
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(req *http.Request) bool {
		_, ok := set[req.Header.Get("Origin")]
		if !ok {
			logging.Component("registry").Warn().Str("origin", req.Header.Get("Origin")).Msg("Origin rejected")
		}
		return ok
	}
}
