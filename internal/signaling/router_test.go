package signaling

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"echolink/internal/domain/call"
	echolink_errors "echolink/pkg/errors"
	"echolink/pkg/metrics"
)

// fakeDirectory serves calls from a map, standing in for the call service.
type fakeDirectory struct {
	calls map[uuid.UUID]call.Call
}

func (d *fakeDirectory) GetByID(_ context.Context, id uuid.UUID) (call.Call, error) {
	c, ok := d.calls[id]
	if !ok {
		return call.Call{}, echolink_errors.ErrNotFound
	}
	return c, nil
}

type routerFixture struct {
	router   *Router
	registry *ConnectionRegistry
	rooms    *RoomTracker
	dir      *fakeDirectory

	callID   uuid.UUID
	caller   uuid.UUID
	receiver uuid.UUID

	callerConn   *fakeConn
	receiverConn *fakeConn
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	f := &routerFixture{
		callID:       uuid.New(),
		caller:       uuid.New(),
		receiver:     uuid.New(),
		callerConn:   &fakeConn{},
		receiverConn: &fakeConn{},
	}
	f.dir = &fakeDirectory{calls: map[uuid.UUID]call.Call{
		f.callID: {
			ID:         f.callID,
			CallerID:   f.caller,
			ReceiverID: f.receiver,
			Status:     call.StatusRinging,
		},
	}}

	f.rooms = NewRoomTracker()
	f.registry = NewConnectionRegistry(f.rooms, zap.NewNop())
	f.router = NewRouter(f.registry, f.rooms, f.dir, metrics.New(), zap.NewNop())

	f.registry.Register(f.caller, f.callerConn)
	f.registry.Register(f.receiver, f.receiverConn)
	return f
}

func (f *routerFixture) send(senderID uuid.UUID, msg ClientMessage) {
	raw, _ := json.Marshal(msg)
	f.router.HandleMessage(context.Background(), senderID, raw)
}

func TestRouterRelaysSignalBetweenParties(t *testing.T) {
	f := newRouterFixture(t)
	offer := json.RawMessage(`{"sdp":"v=0..."}`)

	f.send(f.caller, ClientMessage{
		Type:       TypeCallSignal,
		CallID:     f.callID,
		ReceiverID: f.receiver,
		Signal:     offer,
	})

	require.Equal(t, 1, f.receiverConn.sentCount())
	var event SignalEvent
	require.NoError(t, json.Unmarshal(f.receiverConn.sent[0], &event))
	assert.Equal(t, TypeCallSignal, event.Type)
	assert.Equal(t, f.callID, event.CallID)
	assert.Equal(t, f.caller, event.SenderID)
	assert.JSONEq(t, string(offer), string(event.Signal))
}

func TestRouterDropsSignalFromNonParty(t *testing.T) {
	f := newRouterFixture(t)
	outsider := uuid.New()
	f.registry.Register(outsider, &fakeConn{})

	f.send(outsider, ClientMessage{
		Type:       TypeCallSignal,
		CallID:     f.callID,
		ReceiverID: f.receiver,
		Signal:     json.RawMessage(`{}`),
	})

	assert.Equal(t, 0, f.receiverConn.sentCount())
}

func TestRouterDropsSignalToNonParty(t *testing.T) {
	f := newRouterFixture(t)
	outsider := uuid.New()
	outsiderConn := &fakeConn{}
	f.registry.Register(outsider, outsiderConn)

	f.send(f.caller, ClientMessage{
		Type:       TypeCallSignal,
		CallID:     f.callID,
		ReceiverID: outsider,
		Signal:     json.RawMessage(`{}`),
	})

	assert.Equal(t, 0, outsiderConn.sentCount())
}

func TestRouterDropsSignalForUnknownCall(t *testing.T) {
	f := newRouterFixture(t)

	f.send(f.caller, ClientMessage{
		Type:       TypeCallSignal,
		CallID:     uuid.New(),
		ReceiverID: f.receiver,
		Signal:     json.RawMessage(`{}`),
	})

	assert.Equal(t, 0, f.receiverConn.sentCount())
}

func TestRouterDropsMalformedMessage(t *testing.T) {
	f := newRouterFixture(t)

	f.router.HandleMessage(context.Background(), f.caller, []byte("{not json"))
	f.router.HandleMessage(context.Background(), f.caller, []byte(`{"type":"no_such_type"}`))

	assert.Equal(t, 0, f.receiverConn.sentCount())
	assert.Equal(t, 0, f.callerConn.sentCount())
}

func TestRouterSignalToOfflineReceiverIsSilent(t *testing.T) {
	f := newRouterFixture(t)
	f.registry.Unregister(f.receiver)

	f.send(f.caller, ClientMessage{
		Type:       TypeCallSignal,
		CallID:     f.callID,
		ReceiverID: f.receiver,
		Signal:     json.RawMessage(`{}`),
	})

	// nothing bounces back to the sender
	assert.Equal(t, 0, f.callerConn.sentCount())
}

func TestRouterJoinNotifiesExistingMembers(t *testing.T) {
	f := newRouterFixture(t)

	f.send(f.caller, ClientMessage{Type: TypeJoinCall, CallID: f.callID})
	f.send(f.receiver, ClientMessage{Type: TypeJoinCall, CallID: f.callID})

	assert.True(t, f.rooms.Contains(f.callID, f.caller))
	assert.True(t, f.rooms.Contains(f.callID, f.receiver))

	// the first member has nobody to notify; the second join notifies the first
	require.Equal(t, 1, f.callerConn.sentCount())
	var event RoomEvent
	require.NoError(t, json.Unmarshal(f.callerConn.sent[0], &event))
	assert.Equal(t, TypeUserJoined, event.Type)
	assert.Equal(t, f.receiver, event.UserID)

	// the joining user never receives their own join event
	assert.Equal(t, 0, f.receiverConn.sentCount())
}

func TestRouterJoinFromNonPartyIsDropped(t *testing.T) {
	f := newRouterFixture(t)
	outsider := uuid.New()
	f.registry.Register(outsider, &fakeConn{})

	f.send(outsider, ClientMessage{Type: TypeJoinCall, CallID: f.callID})

	assert.False(t, f.rooms.Contains(f.callID, outsider))
}

func TestRouterLeaveNotifiesRemainingMembers(t *testing.T) {
	f := newRouterFixture(t)
	f.rooms.Join(f.callID, f.caller)
	f.rooms.Join(f.callID, f.receiver)

	f.send(f.receiver, ClientMessage{Type: TypeLeaveCall, CallID: f.callID})

	assert.False(t, f.rooms.Contains(f.callID, f.receiver))
	require.Equal(t, 1, f.callerConn.sentCount())
	var event RoomEvent
	require.NoError(t, json.Unmarshal(f.callerConn.sent[0], &event))
	assert.Equal(t, TypeUserLeft, event.Type)
	assert.Equal(t, f.receiver, event.UserID)
}

func TestRouterDisconnectCleansUpEverything(t *testing.T) {
	f := newRouterFixture(t)
	f.rooms.Join(f.callID, f.caller)
	f.rooms.Join(f.callID, f.receiver)

	f.router.HandleDisconnect(f.receiver)

	_, registered := f.registry.Get(f.receiver)
	assert.False(t, registered)
	assert.False(t, f.rooms.Contains(f.callID, f.receiver))

	require.Equal(t, 1, f.callerConn.sentCount())
	var event RoomEvent
	require.NoError(t, json.Unmarshal(f.callerConn.sent[0], &event))
	assert.Equal(t, TypeUserLeft, event.Type)
	assert.Equal(t, f.receiver, event.UserID)
}

func TestRouterStatusChangeSkipsInitiator(t *testing.T) {
	f := newRouterFixture(t)
	f.rooms.Join(f.callID, f.caller)
	f.rooms.Join(f.callID, f.receiver)

	f.router.NotifyCallStatusChange(f.callID, "call_ended", f.caller)

	assert.Equal(t, 0, f.callerConn.sentCount())
	require.Equal(t, 1, f.receiverConn.sentCount())
	var event StatusEvent
	require.NoError(t, json.Unmarshal(f.receiverConn.sent[0], &event))
	assert.Equal(t, TypeCallStatusChanged, event.Type)
	assert.Equal(t, "call_ended", event.Status)
}
