package signaling

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"echolink/internal/domain/call"
	"echolink/pkg/metrics"
)

// CallDirectory resolves persisted calls for authorization checks. The call
// service satisfies this; tests substitute a fake.
type CallDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (call.Call, error)
}

// Router validates and forwards signaling traffic, drives room membership and
// broadcasts call status changes.
//
// Failed validation never produces an error back over the channel: the relay
// is best-effort by contract, and answering unauthorized probes would leak
// call membership. Drops are logged server-side only.
type Router struct {
	registry *ConnectionRegistry
	rooms    *RoomTracker
	calls    CallDirectory
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewRouter(registry *ConnectionRegistry, rooms *RoomTracker, calls CallDirectory, m *metrics.Metrics, logger *zap.Logger) *Router {
	return &Router{
		registry: registry,
		rooms:    rooms,
		calls:    calls,
		metrics:  m,
		logger:   logger.With(zap.String("component", "signal_router")),
	}
}

// HandleMessage dispatches one inbound message from senderID's connection.
func (r *Router) HandleMessage(ctx context.Context, senderID uuid.UUID, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.drop("malformed", senderID, uuid.Nil, zap.Error(err))
		return
	}

	switch msg.Type {
	case TypeCallSignal:
		r.handleCallSignal(ctx, senderID, msg)
	case TypeJoinCall:
		r.handleJoinCall(ctx, senderID, msg)
	case TypeLeaveCall:
		r.handleLeaveCall(senderID, msg)
	default:
		r.drop("unknown_type", senderID, msg.CallID, zap.String("msg_type", msg.Type))
	}
}

// handleCallSignal forwards an opaque signal payload to the receiver, after
// checking that both sender and receiver are parties to the call.
func (r *Router) handleCallSignal(ctx context.Context, senderID uuid.UUID, msg ClientMessage) {
	if msg.CallID == uuid.Nil || msg.ReceiverID == uuid.Nil || len(msg.Signal) == 0 {
		r.drop("missing_fields", senderID, msg.CallID)
		return
	}

	c, ok := r.authorize(ctx, msg.CallID, senderID)
	if !ok {
		r.drop("sender_not_party", senderID, msg.CallID)
		return
	}
	if !c.IsParty(msg.ReceiverID) {
		r.drop("receiver_not_party", senderID, msg.CallID,
			zap.String("receiver_id", msg.ReceiverID.String()))
		return
	}

	payload, err := json.Marshal(SignalEvent{
		Type:     TypeCallSignal,
		CallID:   msg.CallID,
		SenderID: senderID,
		Signal:   msg.Signal,
	})
	if err != nil {
		r.drop("marshal", senderID, msg.CallID, zap.Error(err))
		return
	}

	// Delivery failure is swallowed: the registry already evicted the peer.
	r.registry.Send(msg.ReceiverID, payload)
	r.metrics.SignalRelayed(TypeCallSignal)
}

// handleJoinCall adds the sender to the call room and notifies the other
// members. Unauthorized attempts are dropped silently.
func (r *Router) handleJoinCall(ctx context.Context, senderID uuid.UUID, msg ClientMessage) {
	if msg.CallID == uuid.Nil {
		r.drop("missing_fields", senderID, msg.CallID)
		return
	}
	if _, ok := r.authorize(ctx, msg.CallID, senderID); !ok {
		r.drop("sender_not_party", senderID, msg.CallID)
		return
	}

	r.rooms.Join(msg.CallID, senderID)
	r.notifyRoom(msg.CallID, senderID, RoomEvent{
		Type:   TypeUserJoined,
		CallID: msg.CallID,
		UserID: senderID,
	})
}

// handleLeaveCall removes the sender from the room. Leaving is deliberately
// unchecked: anyone may remove themselves, and disconnect cleanup relies on
// that.
func (r *Router) handleLeaveCall(senderID uuid.UUID, msg ClientMessage) {
	if msg.CallID == uuid.Nil {
		r.drop("missing_fields", senderID, msg.CallID)
		return
	}

	r.rooms.Leave(msg.CallID, senderID)
	r.notifyRoom(msg.CallID, senderID, RoomEvent{
		Type:   TypeUserLeft,
		CallID: msg.CallID,
		UserID: senderID,
	})
}

// NotifyCallStatusChange broadcasts a status transition to every current room
// member except the initiator. Invoked by the call service after the
// transition is persisted.
func (r *Router) NotifyCallStatusChange(callID uuid.UUID, status string, initiatorID uuid.UUID) {
	payload, err := json.Marshal(StatusEvent{
		Type:   TypeCallStatusChanged,
		CallID: callID,
		Status: status,
	})
	if err != nil {
		return
	}
	for _, member := range r.rooms.Members(callID) {
		if member == initiatorID {
			continue
		}
		r.registry.Send(member, payload)
	}
}

// HandleDisconnect runs synchronously on the disconnect path: the connection
// is unregistered and the user leaves every room, with user_left sent to the
// remaining members.
func (r *Router) HandleDisconnect(userID uuid.UUID) {
	r.registry.Unregister(userID)
	for _, callID := range r.rooms.LeaveAll(userID) {
		r.notifyRoom(callID, userID, RoomEvent{
			Type:   TypeUserLeft,
			CallID: callID,
			UserID: userID,
		})
	}
}

// notifyRoom sends event to every room member except the subject user.
func (r *Router) notifyRoom(callID, exceptID uuid.UUID, event RoomEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	for _, member := range r.rooms.Members(callID) {
		if member == exceptID {
			continue
		}
		r.registry.Send(member, payload)
	}
}

// authorize checks the call exists and userID is one of its parties.
func (r *Router) authorize(ctx context.Context, callID, userID uuid.UUID) (call.Call, bool) {
	c, err := r.calls.GetByID(ctx, callID)
	if err != nil {
		return call.Call{}, false
	}
	return c, c.IsParty(userID)
}

func (r *Router) drop(reason string, senderID, callID uuid.UUID, fields ...zap.Field) {
	r.metrics.SignalDropped(reason)
	allFields := append([]zap.Field{
		zap.String("reason", reason),
		zap.String("sender_id", senderID.String()),
		zap.String("call_id", callID.String()),
	}, fields...)
	r.logger.Warn("signaling message dropped", allFields...)
}
