package repository

import (
	"context"
	"time"

	"github.com/arman-d/ConsultLinkBack/internal/models"
)

type ChatSessionRepository struct {
	db DBTX
}

func NewChatSessionRepository(db DBTX) *ChatSessionRepository {
	return &ChatSessionRepository{db: db}
}

const chatSessionColumns = `id, client_id, consultant_id, appointment_id, status, rating_submitted,
		client_paid, last_message, last_message_at, unread_client, unread_consultant, created_at, completed_at`

func scanChatSession(row interface{ Scan(dest ...any) error }) (*models.ChatSession, error) {
	var session models.ChatSession
	err := row.Scan(
		&session.ID,
		&session.ClientID,
		&session.ConsultantID,
		&session.AppointmentID,
		&session.Status,
		&session.RatingSubmitted,
		&session.ClientPaid,
		&session.LastMessage,
		&session.LastMessageAt,
		&session.UnreadClient,
		&session.UnreadConsultant,
		&session.CreatedAt,
		&session.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateOrReuseActive inserts an active session for the pair or, when one
// already exists, re-points its appointment id. The partial unique index on
// (client_id, consultant_id) WHERE status='active' makes this safe under
// concurrent first access from both parties.
func (r *ChatSessionRepository) CreateOrReuseActive(
	ctx context.Context,
	clientID int64,
	consultantID int64,
	appointmentID *int64,
) (*models.ChatSession, error) {
	query := `
		INSERT INTO chat_sessions (client_id, consultant_id, appointment_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (client_id, consultant_id) WHERE status = 'active'
		DO UPDATE SET appointment_id = COALESCE(EXCLUDED.appointment_id, chat_sessions.appointment_id)
		RETURNING ` + chatSessionColumns
	return scanChatSession(r.db.QueryRow(ctx, query, clientID, consultantID, appointmentID))
}

// LatestForPair returns the most recent session between the pair regardless
// of status, or pgx.ErrNoRows.
func (r *ChatSessionRepository) LatestForPair(
	ctx context.Context,
	clientID int64,
	consultantID int64,
) (*models.ChatSession, error) {
	query := `
		SELECT ` + chatSessionColumns + `
		FROM chat_sessions
		WHERE client_id = $1 AND consultant_id = $2
		ORDER BY id DESC
		LIMIT 1
	`
	return scanChatSession(r.db.QueryRow(ctx, query, clientID, consultantID))
}

func (r *ChatSessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.ChatSession, error) {
	query := `SELECT ` + chatSessionColumns + ` FROM chat_sessions WHERE id = $1`
	return scanChatSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *ChatSessionRepository) GetByIDForUpdate(ctx context.Context, sessionID int64) (*models.ChatSession, error) {
	query := `SELECT ` + chatSessionColumns + ` FROM chat_sessions WHERE id = $1 FOR UPDATE`
	return scanChatSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *ChatSessionRepository) ListForParticipant(
	ctx context.Context,
	participantID int64,
) ([]models.ChatSession, error) {
	query := `
		SELECT ` + chatSessionColumns + `
		FROM chat_sessions
		WHERE client_id = $1 OR consultant_id = $1
		ORDER BY COALESCE(last_message_at, created_at) DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.ChatSession, 0)
	for rows.Next() {
		session, err := scanChatSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *ChatSessionRepository) RepointAppointment(
	ctx context.Context,
	sessionID int64,
	appointmentID int64,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE chat_sessions
		SET appointment_id = $2
		WHERE id = $1
	`, sessionID, appointmentID)
	return err
}

// TouchAfterMessage refreshes the denormalized preview fields. These are
// last-writer-wins display hints, not correctness-critical state.
func (r *ChatSessionRepository) TouchAfterMessage(
	ctx context.Context,
	sessionID int64,
	preview string,
	senderRole string,
) error {
	unreadClient := senderRole == models.RoleConsultant
	unreadConsultant := senderRole == models.RoleClient
	_, err := r.db.Exec(ctx, `
		UPDATE chat_sessions
		SET last_message = $2,
		    last_message_at = NOW(),
		    unread_client = $3,
		    unread_consultant = $4
		WHERE id = $1
	`, sessionID, preview, unreadClient, unreadConsultant)
	return err
}

// MarkRead clears only the reader's own unread flag.
func (r *ChatSessionRepository) MarkRead(ctx context.Context, sessionID int64, role string) error {
	column := "unread_client"
	if role == models.RoleConsultant {
		column = "unread_consultant"
	}
	_, err := r.db.Exec(ctx, `
		UPDATE chat_sessions
		SET `+column+` = FALSE
		WHERE id = $1
	`, sessionID)
	return err
}

func (r *ChatSessionRepository) CompleteIfActive(ctx context.Context, sessionID int64) (*models.ChatSession, error) {
	query := `
		UPDATE chat_sessions
		SET status = 'completed', completed_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING ` + chatSessionColumns
	return scanChatSession(r.db.QueryRow(ctx, query, sessionID))
}

// MarkClientPaid records that the client cleared the payment gate for this
// channel. The flag never resets; re-pointing the session at a later
// appointment does not revoke access already granted.
func (r *ChatSessionRepository) MarkClientPaid(ctx context.Context, sessionID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE chat_sessions
		SET client_paid = TRUE
		WHERE id = $1
	`, sessionID)
	return err
}

func (r *ChatSessionRepository) SetRatingSubmitted(ctx context.Context, sessionID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE chat_sessions
		SET rating_submitted = TRUE
		WHERE id = $1
	`, sessionID)
	return err
}

// CompleteOverdue persists the lazy 12-hour expiry for sessions that outlived
// their lifetime without an explicit completion. Returns the number of rows
// swept.
func (r *ChatSessionRepository) CompleteOverdue(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE chat_sessions
		SET status = 'completed', completed_at = NOW()
		WHERE status = 'active' AND created_at <= $1
	`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
