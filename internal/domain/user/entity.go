package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User represents the users table. The wider platform owns the full profile;
// the call backend only reads the columns it needs to resolve a party.
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Username    sql.NullString `json:"username"`
	DisplayName string         `json:"display_name"`
	AvatarURL   string         `json:"avatar_url"`
	IsOnline    bool           `json:"is_online"`
	LastSeenAt  sql.NullTime   `json:"last_seen_at"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `gorm:"default:now()" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
