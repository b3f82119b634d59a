package repository

import (
	"context"
	"errors"
	"time"

	"echolink/internal/domain/call"
	echolink_errors "echolink/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresCallRepository struct {
	db *gorm.DB
}

func NewCallRepository(db *gorm.DB) CallRepository {
	return &PostgresCallRepository{db: db}
}

func (r *PostgresCallRepository) Create(ctx context.Context, c *call.Call) error {
	res := r.db.WithContext(ctx).Create(c)
	if res.Error != nil {
		// The only unique constraint reachable from a fresh row is the
		// partial index on (receiver_id) WHERE status = 'RINGING', so a
		// duplicate key here means the receiver already has a ringing call.
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return echolink_errors.ErrReceiverBusy
		}
		return res.Error
	}
	return nil
}

func (r *PostgresCallRepository) GetByID(ctx context.Context, id uuid.UUID) (call.Call, error) {
	var c call.Call
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return call.Call{}, echolink_errors.ErrNotFound
		}
		return call.Call{}, err
	}
	return c, nil
}

func (r *PostgresCallRepository) Transition(ctx context.Context, id uuid.UUID, fn func(c *call.Call) (bool, error)) (call.Call, error) {
	var result call.Call

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c call.Call
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&c).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echolink_errors.ErrNotFound
			}
			return err
		}

		changed, err := fn(&c)
		if err != nil {
			return err
		}
		if changed {
			if err := tx.Save(&c).Error; err != nil {
				return err
			}
		}
		result = c
		return nil
	})
	if err != nil {
		return call.Call{}, err
	}
	return result, nil
}

func (r *PostgresCallRepository) HasRingingForReceiver(ctx context.Context, receiverID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&call.Call{}).
		Where("receiver_id = ? AND status = ?", receiverID, call.StatusRinging).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresCallRepository) GetUserCalls(ctx context.Context, userID uuid.UUID, page, limit int) ([]call.Call, int64, error) {
	var calls []call.Call
	var total int64

	q := r.db.WithContext(ctx).
		Model(&call.Call{}).
		Where("caller_id = ? OR receiver_id = ?", userID, userID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := q.Order("started_at DESC").Offset(offset).Limit(limit).Find(&calls).Error; err != nil {
		return nil, 0, err
	}

	return calls, total, nil
}

func (r *PostgresCallRepository) MarkStaleRingingMissed(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&call.Call{}).
		Where("status = ? AND started_at < ?", call.StatusRinging, olderThan).
		Updates(map[string]interface{}{
			"status":   call.StatusMissed,
			"ended_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *PostgresCallRepository) AddParticipant(ctx context.Context, p *call.CallParticipant) error {
	res := r.db.WithContext(ctx).Create(p)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return echolink_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresCallRepository) GetActiveParticipant(ctx context.Context, callID, userID uuid.UUID) (call.CallParticipant, error) {
	var p call.CallParticipant
	err := r.db.WithContext(ctx).
		Where("call_id = ? AND user_id = ? AND left_at IS NULL", callID, userID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return call.CallParticipant{}, echolink_errors.ErrNotFound
		}
		return call.CallParticipant{}, err
	}
	return p, nil
}

func (r *PostgresCallRepository) MarkParticipantLeft(ctx context.Context, callID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&call.CallParticipant{}).
		Where("call_id = ? AND user_id = ? AND left_at IS NULL", callID, userID).
		Update("left_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return echolink_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresCallRepository) GetCallParticipants(ctx context.Context, callID uuid.UUID) ([]call.CallParticipant, error) {
	var participants []call.CallParticipant
	err := r.db.WithContext(ctx).
		Where("call_id = ?", callID).
		Order("joined_at ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *PostgresCallRepository) IsCallParticipant(ctx context.Context, callID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&call.CallParticipant{}).
		Where("call_id = ? AND user_id = ?", callID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
