package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logwell/logwell/internal/access"
	"github.com/logwell/logwell/internal/model"
)

// allowAuthorizer authorizes joins per (user, application) pair.
type allowAuthorizer struct {
	allowed map[string]bool // userID + "/" + appID
}

func (a *allowAuthorizer) CanJoin(_ context.Context, caller access.Caller, appID string) error {
	if a.allowed[caller.UserID.String()+"/"+appID] {
		return nil
	}
	return errors.New("not visible")
}

func newTestHub(allowed map[string]bool) *Hub {
	return NewHub(&allowAuthorizer{allowed: allowed}, zerolog.Nop())
}

func drain(t *testing.T, s *Session) Event {
	t.Helper()
	select {
	case ev := <-s.outbox:
		return ev
	default:
		t.Fatal("expected an event in the session outbox")
		return Event{}
	}
}

func TestJoinAndBroadcast(t *testing.T) {
	user := uuid.New()
	appID := uuid.New().String()
	hub := newTestHub(map[string]bool{user.String() + "/" + appID: true})

	s := NewSession(nil, access.Caller{UserID: user})
	hub.Join(context.Background(), s, appID)
	assert.Equal(t, 1, hub.RoomSize(appID))

	rec := model.LogRecord{Level: model.LevelError, Message: "boom", TraceID: "t1", ApplicationID: appID}
	hub.Broadcast(appID, rec)

	ev := drain(t, s)
	assert.Equal(t, EventNewLog, ev.Event)
	assert.Equal(t, appID, ev.ApplicationID)
	assert.Equal(t, rec, ev.Data)
}

func TestJoinDeniedEmitsErrorOnly(t *testing.T) {
	user := uuid.New()
	appID := uuid.New().String()
	hub := newTestHub(nil)

	s := NewSession(nil, access.Caller{UserID: user})
	hub.Join(context.Background(), s, appID)

	ev := drain(t, s)
	assert.Equal(t, EventError, ev.Event)
	assert.Equal(t, "Access denied", ev.Data)
	assert.Equal(t, 0, hub.RoomSize(appID), "denied join must not enter the room")

	// A later broadcast does not reach the rejected session.
	hub.Broadcast(appID, model.LogRecord{TraceID: "t1"})
	select {
	case ev := <-s.outbox:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestBroadcastIsRoomScoped(t *testing.T) {
	userA, userB := uuid.New(), uuid.New()
	appA, appB := uuid.New().String(), uuid.New().String()
	hub := newTestHub(map[string]bool{
		userA.String() + "/" + appA: true,
		userB.String() + "/" + appB: true,
	})

	sa := NewSession(nil, access.Caller{UserID: userA})
	sb := NewSession(nil, access.Caller{UserID: userB})
	hub.Join(context.Background(), sa, appA)
	hub.Join(context.Background(), sb, appB)

	hub.Broadcast(appA, model.LogRecord{TraceID: "t1", ApplicationID: appA})

	ev := drain(t, sa)
	assert.Equal(t, EventNewLog, ev.Event)
	select {
	case ev := <-sb.outbox:
		t.Fatalf("session in another room received %v", ev)
	default:
	}
}

func TestSessionMayJoinMultipleRooms(t *testing.T) {
	user := uuid.New()
	appA, appB := uuid.New().String(), uuid.New().String()
	hub := newTestHub(map[string]bool{
		user.String() + "/" + appA: true,
		user.String() + "/" + appB: true,
	})

	s := NewSession(nil, access.Caller{UserID: user})
	hub.Join(context.Background(), s, appA)
	hub.Join(context.Background(), s, appB)
	assert.Equal(t, 1, hub.RoomSize(appA))
	assert.Equal(t, 1, hub.RoomSize(appB))
}

func TestRoomCap(t *testing.T) {
	user := uuid.New()
	allowed := map[string]bool{}
	apps := make([]string, maxRoomsPerSession+1)
	for i := range apps {
		apps[i] = uuid.New().String()
		allowed[user.String()+"/"+apps[i]] = true
	}
	hub := newTestHub(allowed)

	s := NewSession(nil, access.Caller{UserID: user})
	for _, appID := range apps[:maxRoomsPerSession] {
		hub.Join(context.Background(), s, appID)
	}
	require.Len(t, s.rooms, maxRoomsPerSession)

	hub.Join(context.Background(), s, apps[maxRoomsPerSession])
	assert.Len(t, s.rooms, maxRoomsPerSession)
	assert.Equal(t, 0, hub.RoomSize(apps[maxRoomsPerSession]))
}

func TestDisconnectCleansUpEmptyRooms(t *testing.T) {
	user := uuid.New()
	appID := uuid.New().String()
	hub := newTestHub(map[string]bool{user.String() + "/" + appID: true})

	s1 := NewSession(nil, access.Caller{UserID: user})
	s2 := NewSession(nil, access.Caller{UserID: user})
	hub.Join(context.Background(), s1, appID)
	hub.Join(context.Background(), s2, appID)
	require.Equal(t, 2, hub.RoomSize(appID))

	hub.Disconnect(s1)
	assert.Equal(t, 1, hub.RoomSize(appID))

	hub.Disconnect(s2)
	assert.Equal(t, 0, hub.RoomSize(appID))
	hub.mu.RLock()
	_, exists := hub.rooms[appID]
	hub.mu.RUnlock()
	assert.False(t, exists, "empty room must be dropped")
}

func TestBroadcastDropsWhenSessionBufferFull(t *testing.T) {
	user := uuid.New()
	appID := uuid.New().String()
	hub := newTestHub(map[string]bool{user.String() + "/" + appID: true})

	s := NewSession(nil, access.Caller{UserID: user})
	hub.Join(context.Background(), s, appID)

	// Fill the buffer and one more; the overflow event is dropped,
	// never queued, and the broadcast does not block.
	for i := 0; i < sendBuffer+10; i++ {
		hub.Broadcast(appID, model.LogRecord{TraceID: "t"})
	}
	assert.Len(t, s.outbox, sendBuffer)
}
