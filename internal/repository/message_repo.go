package repository

import (
	"context"

	"github.com/arman-d/ConsultLinkBack/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, session_id, sender_id, sender_role, kind, content, file_url, file_name,
		unsent, unsent_at, created_at`

func scanMessage(row interface{ Scan(dest ...any) error }) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	err := row.Scan(
		&msg.ID,
		&msg.SessionID,
		&msg.SenderID,
		&msg.SenderRole,
		&msg.Kind,
		&msg.Content,
		&msg.FileURL,
		&msg.FileName,
		&msg.Unsent,
		&msg.UnsentAt,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

type CreateMessageInput struct {
	SessionID  int64
	SenderID   int64
	SenderRole string
	Kind       string
	Content    string
	FileURL    *string
	FileName   *string
}

func (r *MessageRepository) Create(ctx context.Context, input CreateMessageInput) (*models.ChatMessage, error) {
	query := `
		INSERT INTO chat_messages (session_id, sender_id, sender_role, kind, content, file_url, file_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + messageColumns
	return scanMessage(r.db.QueryRow(ctx, query,
		input.SessionID, input.SenderID, input.SenderRole, input.Kind,
		input.Content, input.FileURL, input.FileName))
}

func (r *MessageRepository) GetByID(ctx context.Context, messageID int64) (*models.ChatMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM chat_messages WHERE id = $1`
	return scanMessage(r.db.QueryRow(ctx, query, messageID))
}

// ListBySession returns messages oldest-first within the requested page,
// alongside the total count for pagination.
func (r *MessageRepository) ListBySession(
	ctx context.Context,
	sessionID int64,
	limit int,
	offset int,
) ([]models.ChatMessage, int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE session_id = $1`, sessionID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + messageColumns + `
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		messages = append(messages, *msg)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// MarkUnsent tombstones the message. The sender guard and the NOT unsent
// guard live in the WHERE clause so a repeat call affects zero rows.
func (r *MessageRepository) MarkUnsent(ctx context.Context, messageID int64, senderID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE chat_messages
		SET unsent = TRUE, unsent_at = NOW(), content = $3, file_url = NULL, file_name = NULL
		WHERE id = $1 AND sender_id = $2 AND NOT unsent
	`, messageID, senderID, models.UnsentPlaceholder)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
