package repository

import (
	"context"

	"github.com/arman-d/ConsultLinkBack/internal/models"
)

type ConsultantProfileRepository struct {
	db DBTX
}

func NewConsultantProfileRepository(db DBTX) *ConsultantProfileRepository {
	return &ConsultantProfileRepository{db: db}
}

func (r *ConsultantProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO consultant_profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

func (r *ConsultantProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.ConsultantProfile, error) {
	query := `
		SELECT id, user_id, full_name, bio, session_rate_cents, currency, created_at, updated_at
		FROM consultant_profiles
		WHERE user_id = $1
	`
	var profile models.ConsultantProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.Bio,
		&profile.SessionRateCents,
		&profile.Currency,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

type UpdateConsultantProfileInput struct {
	FullName         *string
	Bio              *string
	SessionRateCents *int64
}

func (r *ConsultantProfileRepository) Update(
	ctx context.Context,
	userID int64,
	input UpdateConsultantProfileInput,
) (*models.ConsultantProfile, error) {
	query := `
		UPDATE consultant_profiles
		SET full_name = COALESCE($2, full_name),
		    bio = COALESCE($3, bio),
		    session_rate_cents = COALESCE($4, session_rate_cents),
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING id, user_id, full_name, bio, session_rate_cents, currency, created_at, updated_at
	`
	var profile models.ConsultantProfile
	err := r.db.QueryRow(ctx, query, userID, input.FullName, input.Bio, input.SessionRateCents).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.Bio,
		&profile.SessionRateCents,
		&profile.Currency,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListListings returns the public directory: every consultant profile joined
// with its rating aggregates, computed fresh on each read.
func (r *ConsultantProfileRepository) ListListings(ctx context.Context) ([]models.ConsultantListing, error) {
	query := `
		SELECT
			p.id, p.user_id, p.full_name, p.bio, p.session_rate_cents, p.currency,
			p.created_at, p.updated_at,
			AVG(rt.score)::float8,
			COUNT(rt.id)
		FROM consultant_profiles p
		LEFT JOIN ratings rt ON rt.consultant_id = p.user_id
		GROUP BY p.id
		ORDER BY COUNT(rt.id) DESC, p.id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := make([]models.ConsultantListing, 0)
	for rows.Next() {
		var listing models.ConsultantListing
		if err := rows.Scan(
			&listing.ID,
			&listing.UserID,
			&listing.FullName,
			&listing.Bio,
			&listing.SessionRateCents,
			&listing.Currency,
			&listing.CreatedAt,
			&listing.UpdatedAt,
			&listing.AverageScore,
			&listing.ReviewCount,
		); err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return listings, nil
}

func (r *ConsultantProfileRepository) GetListing(ctx context.Context, userID int64) (*models.ConsultantListing, error) {
	query := `
		SELECT
			p.id, p.user_id, p.full_name, p.bio, p.session_rate_cents, p.currency,
			p.created_at, p.updated_at,
			AVG(rt.score)::float8,
			COUNT(rt.id)
		FROM consultant_profiles p
		LEFT JOIN ratings rt ON rt.consultant_id = p.user_id
		WHERE p.user_id = $1
		GROUP BY p.id
	`
	var listing models.ConsultantListing
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&listing.ID,
		&listing.UserID,
		&listing.FullName,
		&listing.Bio,
		&listing.SessionRateCents,
		&listing.Currency,
		&listing.CreatedAt,
		&listing.UpdatedAt,
		&listing.AverageScore,
		&listing.ReviewCount,
	)
	if err != nil {
		return nil, err
	}
	return &listing, nil
}
