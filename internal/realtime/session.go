package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/logwell/logwell/internal/access"
	"github.com/logwell/logwell/internal/infrastructure/metrics"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 50 * time.Second
	maxFrameSize = 4 << 10
)

// Session is one authenticated realtime connection. All writes to the
// websocket go through the outbox channel and the write pump, so the
// hub never writes to the conn directly.
type Session struct {
	caller access.Caller
	conn   *websocket.Conn
	outbox chan Event
	rooms  map[string]struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

// NewSession wraps an already-authenticated websocket connection.
func NewSession(conn *websocket.Conn, caller access.Caller) *Session {
	return &Session{
		caller: caller,
		conn:   conn,
		outbox: make(chan Event, sendBuffer),
		rooms:  make(map[string]struct{}),
		closed: make(chan struct{}),
	}
}

// send enqueues an event without blocking. Returns false if the
// session buffer is full or the session is closed; the event is
// dropped in both cases.
func (s *Session) send(ev Event) bool {
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case s.outbox <- ev:
		return true
	default:
		return false
	}
}

// close marks the session dead and closes the underlying connection.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.Close()
	})
}

// Serve runs the session until the client disconnects or ctx is
// canceled. It owns both pumps and guarantees the session leaves every
// room on the way out.
func (h *Hub) Serve(ctx context.Context, s *Session) {
	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()
	defer h.Disconnect(s)
	defer s.close()

	go s.writePump()

	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		var ev Event
		if err := s.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Msg("session read failed")
			}
			return
		}
		switch ev.Event {
		case EventJoinApplication:
			if ev.ApplicationID == "" {
				s.send(Event{Event: EventError, Data: "applicationId is required"})
				continue
			}
			h.Join(ctx, s, ev.ApplicationID)
		default:
			s.send(Event{Event: EventError, Data: "unknown event: " + ev.Event})
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.closed:
			return
		case ev := <-s.outbox:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(ev); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		}
	}
}
