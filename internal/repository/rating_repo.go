package repository

import (
	"context"

	"github.com/arman-d/ConsultLinkBack/internal/models"
)

type RatingRepository struct {
	db DBTX
}

func NewRatingRepository(db DBTX) *RatingRepository {
	return &RatingRepository{db: db}
}

const ratingColumns = `id, session_id, consultant_id, client_id, score, feedback, created_at`

func scanRating(row interface{ Scan(dest ...any) error }) (*models.Rating, error) {
	var rating models.Rating
	err := row.Scan(
		&rating.ID,
		&rating.SessionID,
		&rating.ConsultantID,
		&rating.ClientID,
		&rating.Score,
		&rating.Feedback,
		&rating.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// Create relies on the UNIQUE constraint on session_id to reject a second
// rating for the same session.
func (r *RatingRepository) Create(
	ctx context.Context,
	sessionID int64,
	consultantID int64,
	clientID int64,
	score int,
	feedback *string,
) (*models.Rating, error) {
	query := `
		INSERT INTO ratings (session_id, consultant_id, client_id, score, feedback)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + ratingColumns
	return scanRating(r.db.QueryRow(ctx, query, sessionID, consultantID, clientID, score, feedback))
}

func (r *RatingRepository) GetBySessionID(ctx context.Context, sessionID int64) (*models.Rating, error) {
	query := `SELECT ` + ratingColumns + ` FROM ratings WHERE session_id = $1`
	return scanRating(r.db.QueryRow(ctx, query, sessionID))
}

func (r *RatingRepository) ListByConsultant(ctx context.Context, consultantID int64) ([]models.Rating, error) {
	query := `
		SELECT ` + ratingColumns + `
		FROM ratings
		WHERE consultant_id = $1
		ORDER BY id DESC
	`
	rows, err := r.db.Query(ctx, query, consultantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := make([]models.Rating, 0)
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, *rating)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ratings, nil
}
