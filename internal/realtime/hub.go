// Package realtime fans newly ingested records out to authorized
// websocket subscribers. Rooms are keyed by application id and held by
// an injected Hub instance rather than package state, so tests and
// multi-instance deployments can own their registry.
package realtime

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/logwell/logwell/internal/access"
	"github.com/logwell/logwell/internal/infrastructure/metrics"
	"github.com/logwell/logwell/internal/model"
)

// Authorizer decides whether a caller may join an application's room.
// A not_found error means the application is invisible to the caller;
// the hub reports both that and explicit denial as "Access denied".
type Authorizer interface {
	CanJoin(ctx context.Context, caller access.Caller, applicationID string) error
}

// maxRoomsPerSession caps how many rooms one connection may join, to
// bound per-connection resource use.
const maxRoomsPerSession = 32

// Event is a frame on the realtime channel, both directions.
type Event struct {
	Event         string `json:"event"`
	ApplicationID string `json:"applicationId,omitempty"`
	Data          any    `json:"data,omitempty"`
}

const (
	// client → server
	EventJoinApplication = "join_application"
	// server → client
	EventNewLog = "new_log"
	EventError  = "error"
)

// Hub owns the room registry. All room mutation happens under its
// lock; delivery to a session is a non-blocking send on that session's
// buffered channel, so a slow client can never stall a broadcast.
type Hub struct {
	auth   Authorizer
	logger zerolog.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Session]struct{}
}

// NewHub builds a Hub using auth for join checks.
func NewHub(auth Authorizer, logger zerolog.Logger) *Hub {
	return &Hub{
		auth:   auth,
		logger: logger.With().Str("component", "realtime").Logger(),
		rooms:  make(map[string]map[*Session]struct{}),
	}
}

// Join subscribes s to the room for applicationID after an
// authorization check. Denied joins emit an error event to that
// session only and leave its subscriptions untouched.
func (h *Hub) Join(ctx context.Context, s *Session, applicationID string) {
	if err := h.auth.CanJoin(ctx, s.caller, applicationID); err != nil {
		h.logger.Debug().
			Str("application_id", applicationID).
			Str("user_id", s.caller.UserID.String()).
			Msg("room join denied")
		s.send(Event{Event: EventError, Data: "Access denied"})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(s.rooms) >= maxRoomsPerSession {
		s.send(Event{Event: EventError, Data: "room limit reached"})
		return
	}
	room, ok := h.rooms[applicationID]
	if !ok {
		room = make(map[*Session]struct{})
		h.rooms[applicationID] = room
	}
	room[s] = struct{}{}
	s.rooms[applicationID] = struct{}{}
}

// Broadcast delivers rec to every session joined to the application's
// room. Delivery is best-effort, at-most-once: events to sessions with
// a full buffer are dropped, never queued or replayed.
func (h *Hub) Broadcast(applicationID string, rec model.LogRecord) {
	h.mu.RLock()
	room := h.rooms[applicationID]
	sessions := make([]*Session, 0, len(room))
	for s := range room {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	ev := Event{Event: EventNewLog, ApplicationID: applicationID, Data: rec}
	for _, s := range sessions {
		if s.send(ev) {
			metrics.BroadcastDelivered.Inc()
		} else {
			metrics.BroadcastDropped.Inc()
		}
	}
}

// Disconnect removes s from every room it joined, dropping rooms that
// become empty so the registry cannot grow without bound.
func (h *Hub) Disconnect(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for appID := range s.rooms {
		if room, ok := h.rooms[appID]; ok {
			delete(room, s)
			if len(room) == 0 {
				delete(h.rooms, appID)
			}
		}
	}
	s.rooms = make(map[string]struct{})
}

// RoomSize reports the member count of one room.
func (h *Hub) RoomSize(applicationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[applicationID])
}
