package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"echolink/internal/domain/call"
	"echolink/internal/repository"
	echolink_errors "echolink/pkg/errors"
	"echolink/pkg/metrics"
)

// CallStatusNotifier broadcasts a persisted status transition to the call's
// room members. The signal router implements it; the indirection keeps the
// lifecycle independent of the transport layer.
type CallStatusNotifier interface {
	NotifyCallStatusChange(callID uuid.UUID, status string, initiatorID uuid.UUID)
}

// CallService owns the call state machine:
//
//	RINGING -> IN_PROGRESS -> COMPLETED
//	RINGING -> REJECTED
//	RINGING | IN_PROGRESS -> MISSED (sweeper, see MissedCallWorker)
//
// Validation failures surface as typed errors for the HTTP layer; re-reject
// and re-end of an already-terminal call are tolerated no-ops because both
// parties hanging up at once is an expected race, not a client bug.
type CallService struct {
	repo     repository.CallRepository
	userRepo repository.UserRepository
	notifier CallStatusNotifier
	metrics  *metrics.Metrics
}

func NewCallService(repo repository.CallRepository, userRepo repository.UserRepository, m *metrics.Metrics) *CallService {
	return &CallService{repo: repo, userRepo: userRepo, metrics: m}
}

// SetNotifier wires the status notifier after construction; the router needs
// the service for authorization lookups, so the two are linked in two steps.
func (s *CallService) SetNotifier(n CallStatusNotifier) {
	s.notifier = n
}

// Initiate creates a call in RINGING status with a fresh signaling session id
// and registers the caller as the first participant. A receiver who already
// has a ringing call is busy.
func (s *CallService) Initiate(ctx context.Context, callerID, receiverID uuid.UUID, callType string) (call.Call, error) {
	if callType != call.TypeVoice && callType != call.TypeVideo {
		return call.Call{}, echolink_errors.ErrInvalidInput
	}
	if callerID == receiverID {
		return call.Call{}, echolink_errors.ErrInvalidInput
	}
	if _, err := s.userRepo.GetUserByID(ctx, receiverID); err != nil {
		return call.Call{}, err
	}

	busy, err := s.repo.HasRingingForReceiver(ctx, receiverID)
	if err != nil {
		return call.Call{}, err
	}
	if busy {
		return call.Call{}, echolink_errors.ErrReceiverBusy
	}

	now := time.Now()
	newCall := &call.Call{
		ID:         uuid.New(),
		CallerID:   callerID,
		ReceiverID: receiverID,
		Type:       callType,
		Status:     call.StatusRinging,
		SessionID:  uuid.New(),
		StartedAt:  now,
		CreatedAt:  now,
	}
	if err := s.repo.Create(ctx, newCall); err != nil {
		return call.Call{}, err
	}
	if err := s.ensureParticipant(ctx, newCall.ID, callerID); err != nil {
		return call.Call{}, err
	}

	s.metrics.CallTransition(call.StatusRinging)
	return *newCall, nil
}

// Answer transitions RINGING -> IN_PROGRESS. Only the receiver may answer,
// and only while the call is still ringing. The start time is refreshed so
// duration measures talk time, not ring time.
func (s *CallService) Answer(ctx context.Context, callID, userID uuid.UUID) (call.Call, error) {
	updated, err := s.repo.Transition(ctx, callID, func(c *call.Call) (bool, error) {
		if c.ReceiverID != userID {
			return false, echolink_errors.ErrForbidden
		}
		if c.Status != call.StatusRinging {
			return false, echolink_errors.ErrInvalidTransition
		}
		c.Status = call.StatusInProgress
		c.StartedAt = time.Now()
		return true, nil
	})
	if err != nil {
		return call.Call{}, err
	}

	if err := s.ensureParticipant(ctx, callID, userID); err != nil {
		return call.Call{}, err
	}

	s.metrics.CallTransition(call.StatusInProgress)
	return updated, nil
}

// Reject terminates a non-terminal call as REJECTED. Either party may reject.
// Rejecting a call that is already completed or rejected returns it unchanged.
func (s *CallService) Reject(ctx context.Context, callID, userID uuid.UUID) (call.Call, error) {
	var noop bool
	updated, err := s.repo.Transition(ctx, callID, func(c *call.Call) (bool, error) {
		if !c.IsParty(userID) {
			return false, echolink_errors.ErrForbidden
		}
		if c.Status == call.StatusCompleted || c.Status == call.StatusRejected {
			noop = true
			return false, nil
		}
		finishCall(c, call.StatusRejected)
		return true, nil
	})
	if err != nil {
		return call.Call{}, err
	}
	if noop {
		return updated, nil
	}

	s.markLeft(ctx, callID, userID)
	s.metrics.CallTransition(call.StatusRejected)
	return updated, nil
}

// End terminates a call as COMPLETED and broadcasts call_ended to the other
// room members. Ending an already-completed call is a no-op.
func (s *CallService) End(ctx context.Context, callID, userID uuid.UUID) (call.Call, error) {
	var noop bool
	updated, err := s.repo.Transition(ctx, callID, func(c *call.Call) (bool, error) {
		if !c.IsParty(userID) {
			return false, echolink_errors.ErrForbidden
		}
		if c.Status == call.StatusCompleted {
			noop = true
			return false, nil
		}
		finishCall(c, call.StatusCompleted)
		return true, nil
	})
	if err != nil {
		return call.Call{}, err
	}
	if noop {
		return updated, nil
	}

	s.markLeft(ctx, callID, userID)
	if s.notifier != nil {
		s.notifier.NotifyCallStatusChange(callID, "call_ended", userID)
	}

	s.metrics.CallTransition(call.StatusCompleted)
	return updated, nil
}

func (s *CallService) GetByID(ctx context.Context, id uuid.UUID) (call.Call, error) {
	return s.repo.GetByID(ctx, id)
}

// GetCallParticipants returns the participant roster for a call. The caller
// and receiver are always authorized; anyone else must appear on the roster
// themselves.
func (s *CallService) GetCallParticipants(ctx context.Context, callID, userID uuid.UUID) ([]call.CallParticipant, error) {
	c, err := s.repo.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !c.IsParty(userID) {
		member, err := s.repo.IsCallParticipant(ctx, callID, userID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, echolink_errors.ErrForbidden
		}
	}
	return s.repo.GetCallParticipants(ctx, callID)
}

func (s *CallService) GetUserCalls(ctx context.Context, userID uuid.UUID, page, limit int) ([]call.Call, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.GetUserCalls(ctx, userID, page, limit)
}

// SweepStaleRinging transitions calls that have been ringing longer than the
// timeout to MISSED. Called by the sweeper worker, not by request handlers.
func (s *CallService) SweepStaleRinging(ctx context.Context, timeout time.Duration) (int64, error) {
	n, err := s.repo.MarkStaleRingingMissed(ctx, time.Now().Add(-timeout))
	if err != nil {
		return 0, err
	}
	for i := int64(0); i < n; i++ {
		s.metrics.CallTransition(call.StatusMissed)
	}
	return n, nil
}

// finishCall applies the shared terminal bookkeeping. The start time is
// refreshed on answer, so for connected calls the duration measures talk
// time; for calls that never connected it measures ring time.
func finishCall(c *call.Call, status string) {
	now := time.Now()

	c.Status = status
	c.EndedAt = sql.NullTime{Time: now, Valid: true}
	if !c.StartedAt.IsZero() {
		c.DurationSeconds = sql.NullInt32{
			Int32: int32(now.Sub(c.StartedAt).Seconds()),
			Valid: true,
		}
	}
}

// ensureParticipant creates an active participant record unless one already
// exists, keeping at most one active row per (call, user).
func (s *CallService) ensureParticipant(ctx context.Context, callID, userID uuid.UUID) error {
	_, err := s.repo.GetActiveParticipant(ctx, callID, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, echolink_errors.ErrNotFound) {
		return err
	}
	return s.repo.AddParticipant(ctx, &call.CallParticipant{
		ID:       uuid.New(),
		CallID:   callID,
		UserID:   userID,
		JoinedAt: time.Now(),
	})
}

// markLeft ensures a participant record exists for userID and closes it. A
// receiver rejecting from the ringing state has no record yet; one is created
// so the audit trail shows who ended the call.
func (s *CallService) markLeft(ctx context.Context, callID, userID uuid.UUID) {
	if err := s.ensureParticipant(ctx, callID, userID); err != nil {
		return
	}
	_ = s.repo.MarkParticipantLeft(ctx, callID, userID)
}
