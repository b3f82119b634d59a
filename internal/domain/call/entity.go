package call

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Call status lifecycle. Ringing is the initial state; completed, rejected
// and missed are terminal. Calls are never deleted, only transitioned.
const (
	StatusRinging    = "RINGING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusRejected   = "REJECTED"
	StatusMissed     = "MISSED"
)

const (
	TypeVoice = "VOICE"
	TypeVideo = "VIDEO"
)

// Call represents the calls table
type Call struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	CallerID        uuid.UUID     `gorm:"type:uuid;not null" json:"caller_id"`
	ReceiverID      uuid.UUID     `gorm:"type:uuid;not null" json:"receiver_id"`
	Type            string        `gorm:"type:call_type;not null" json:"call_type"`
	Status          string        `gorm:"type:call_status;not null;default:'RINGING'" json:"status"`
	SessionID       uuid.UUID     `gorm:"type:uuid;not null" json:"session_id"` // signaling correlation id
	StartedAt       time.Time     `gorm:"default:now()" json:"started_at"`
	EndedAt         sql.NullTime  `json:"ended_at"`
	DurationSeconds sql.NullInt32 `json:"duration_seconds"`
	CreatedAt       time.Time     `gorm:"default:now()" json:"created_at"`
}

// IsParty reports whether userID is the caller or the receiver.
func (c Call) IsParty(userID uuid.UUID) bool {
	return c.CallerID == userID || c.ReceiverID == userID
}

// IsTerminal reports whether the call reached a final status.
func (c Call) IsTerminal() bool {
	switch c.Status {
	case StatusCompleted, StatusRejected, StatusMissed:
		return true
	}
	return false
}

// CallParticipant represents call_participants. At most one active
// (left_at IS NULL) row exists per (call_id, user_id) pair.
type CallParticipant struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	CallID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"call_id"`
	UserID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	JoinedAt   time.Time    `gorm:"default:now()" json:"joined_at"`
	LeftAt     sql.NullTime `json:"left_at"`
	MutedAudio bool         `gorm:"default:false" json:"muted_audio"`
	VideoOn    bool         `gorm:"default:false" json:"video_on"`
}

func (Call) TableName() string {
	return "calls"
}

func (CallParticipant) TableName() string {
	return "call_participants"
}
