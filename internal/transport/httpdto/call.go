package httpdto

import (
	"time"

	"echolink/internal/domain/call"
)

// InitiateCallRequest is used for POST /calls
type InitiateCallRequest struct {
	ReceiverID string `json:"receiver_id" binding:"required"`
	CallType   string `json:"call_type" binding:"required"` // "VOICE" or "VIDEO"
}

// ListCallsRequest holds query parameters for listing call history
type ListCallsRequest struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// CallDTO represents a call in API responses
type CallDTO struct {
	ID         string `json:"id"`
	CallerID   string `json:"caller_id"`
	ReceiverID string `json:"receiver_id"`
	CallType   string `json:"call_type"`
	Status     string `json:"status"`
	SessionID  string `json:"session_id"`
	StartedAt  string `json:"started_at,omitempty"`
	EndedAt    string `json:"ended_at,omitempty"`
	Duration   int64  `json:"duration,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// ListCallsResponse is returned when listing call history
type ListCallsResponse struct {
	Calls []CallDTO `json:"calls"`
	Total int64     `json:"total"`
}

// CallParticipantDTO represents a call participant in API responses
type CallParticipantDTO struct {
	UserID     string `json:"user_id"`
	JoinedAt   string `json:"joined_at"`
	LeftAt     string `json:"left_at,omitempty"`
	MutedAudio bool   `json:"muted_audio"`
	VideoOn    bool   `json:"video_on"`
}

// CallDetailResponse is returned when fetching a single call
type CallDetailResponse struct {
	Call         CallDTO              `json:"call"`
	Participants []CallParticipantDTO `json:"participants"`
}

// CallParticipantsResponse is returned when listing call participants
type CallParticipantsResponse struct {
	Participants []CallParticipantDTO `json:"participants"`
}

// FromCall converts a domain call to CallDTO
func FromCall(c call.Call) CallDTO {
	dto := CallDTO{
		ID:         c.ID.String(),
		CallerID:   c.CallerID.String(),
		ReceiverID: c.ReceiverID.String(),
		CallType:   c.Type,
		Status:     c.Status,
		SessionID:  c.SessionID.String(),
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
	}
	if !c.StartedAt.IsZero() {
		dto.StartedAt = c.StartedAt.Format(time.RFC3339)
	}
	if c.EndedAt.Valid {
		dto.EndedAt = c.EndedAt.Time.Format(time.RFC3339)
	}
	if c.DurationSeconds.Valid {
		dto.Duration = int64(c.DurationSeconds.Int32)
	}
	return dto
}

// FromCallSlice converts a slice of domain calls to CallDTO slice
func FromCallSlice(calls []call.Call) []CallDTO {
	dtos := make([]CallDTO, len(calls))
	for i, c := range calls {
		dtos[i] = FromCall(c)
	}
	return dtos
}

// FromCallParticipant converts a domain call participant to CallParticipantDTO
func FromCallParticipant(p call.CallParticipant) CallParticipantDTO {
	dto := CallParticipantDTO{
		UserID:     p.UserID.String(),
		JoinedAt:   p.JoinedAt.Format(time.RFC3339),
		MutedAudio: p.MutedAudio,
		VideoOn:    p.VideoOn,
	}
	if p.LeftAt.Valid {
		dto.LeftAt = p.LeftAt.Time.Format(time.RFC3339)
	}
	return dto
}

// FromCallParticipantSlice converts a slice of domain call participants to CallParticipantDTO slice
func FromCallParticipantSlice(participants []call.CallParticipant) []CallParticipantDTO {
	dtos := make([]CallParticipantDTO, len(participants))
	for i, p := range participants {
		dtos[i] = FromCallParticipant(p)
	}
	return dtos
}
