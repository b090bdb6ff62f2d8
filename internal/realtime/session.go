package realtime

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"pigmap/internal/logging"
	"pigmap/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4 * 1024

	// DefaultSendBuffer is the per-session outbound queue length. A session
	// whose queue is full when an event arrives is dropped.
	DefaultSendBuffer = 256
)

var sessionIDCounter atomic.Uint64

// Session is one connected live-update subscriber. Its send channel is
// owned by the registry: only the registry goroutine writes to or closes it.
type Session struct {
	id       uint64
	registry *Registry
	conn     *websocket.Conn
	send     chan []byte
}

func newSession(r *Registry, conn *websocket.Conn, buffer int) *Session {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Session{
		id:       sessionIDCounter.Add(1),
		registry: r,
		conn:     conn,
		send:     make(chan []byte, buffer),
	}
}

// ID returns the session's process-unique identifier.
func (s *Session) ID() uint64 {
	return s.id
}

// readPump delivers client messages to the registry until the connection fails.
func (s *Session) readPump() {
	log := logging.Component("registry")
	defer func() {
		s.registry.Leave(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Uint64("session", s.id).Msg("Read FAILED")
			}
			return
		}
		s.registry.HandleMessage(s, raw)
	}
}

// writePump drains the send queue onto the connection. A failed write
// removes the session from the registry.
func (s *Session) writePump() {
	log := logging.Component("registry")
	defer func() {
		_ = s.conn.Close()
	}()

	for data := range s.send {
		if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			s.fail()
			return
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Uint64("session", s.id).Msg("Write FAILED")
			s.fail()
			return
		}
	}

	// Registry closed the queue: say goodbye.
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Session) fail() {
	metrics.RecordDroppedSession("write_error")
	s.registry.Leave(s)
}

func (s *Session) start() {
	go s.writePump()
	go s.readPump()
}
