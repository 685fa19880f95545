package models

import "time"

const (
	SessionActive    = "active"
	SessionCompleted = "completed"

	MessageKindText  = "text"
	MessageKindImage = "image"
	MessageKindFile  = "file"

	// UnsentPlaceholder replaces the payload of a retracted message. The row
	// itself is never deleted.
	UnsentPlaceholder = "message retracted"
)

type ChatSession struct {
	ID               int64      `json:"id"`
	ClientID         int64      `json:"client_id"`
	ConsultantID     int64      `json:"consultant_id"`
	AppointmentID    *int64     `json:"appointment_id"`
	Status           string     `json:"status"`
	RatingSubmitted  bool       `json:"rating_submitted"`
	ClientPaid       bool       `json:"client_paid"`
	LastMessage      *string    `json:"last_message"`
	LastMessageAt    *time.Time `json:"last_message_at"`
	UnreadClient     bool       `json:"unread_client"`
	UnreadConsultant bool       `json:"unread_consultant"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at"`
}

// ChatSessionView carries the derived state the stored row cannot: whether
// the channel currently accepts writes and whether a rating is still owed.
type ChatSessionView struct {
	ChatSession
	Locked         bool `json:"locked"`
	RatingRequired bool `json:"rating_required"`
}

type ChatMessage struct {
	ID         int64      `json:"id"`
	SessionID  int64      `json:"session_id"`
	SenderID   int64      `json:"sender_id"`
	SenderRole string     `json:"sender_role"`
	Kind       string     `json:"kind"`
	Content    string     `json:"content"`
	FileURL    *string    `json:"file_url"`
	FileName   *string    `json:"file_name"`
	Unsent     bool       `json:"unsent"`
	UnsentAt   *time.Time `json:"unsent_at"`
	CreatedAt  time.Time  `json:"created_at"`
}
