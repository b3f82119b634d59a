package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"echolink/internal/domain/call"
	"echolink/internal/domain/user"
)

type CallRepository interface {
	Create(ctx context.Context, c *call.Call) error
	GetByID(ctx context.Context, id uuid.UUID) (call.Call, error)
	// Transition loads the call under a row lock, applies fn and persists the
	// mutation when fn reports a change. Concurrent answer/reject/end races on
	// the same call resolve deterministically through the lock.
	Transition(ctx context.Context, id uuid.UUID, fn func(c *call.Call) (bool, error)) (call.Call, error)
	HasRingingForReceiver(ctx context.Context, receiverID uuid.UUID) (bool, error)
	GetUserCalls(ctx context.Context, userID uuid.UUID, page, limit int) ([]call.Call, int64, error)
	MarkStaleRingingMissed(ctx context.Context, olderThan time.Time) (int64, error)

	AddParticipant(ctx context.Context, p *call.CallParticipant) error
	GetActiveParticipant(ctx context.Context, callID, userID uuid.UUID) (call.CallParticipant, error)
	MarkParticipantLeft(ctx context.Context, callID, userID uuid.UUID) error
	GetCallParticipants(ctx context.Context, callID uuid.UUID) ([]call.CallParticipant, error)
	IsCallParticipant(ctx context.Context, callID, userID uuid.UUID) (bool, error)
}

type UserRepository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error)
	UpdateOnlineStatus(ctx context.Context, userID uuid.UUID, isOnline bool) error
	UpdateLastSeen(ctx context.Context, userID uuid.UUID, lastSeen time.Time) error
}
