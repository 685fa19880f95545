package repository

import (
	"context"

	"github.com/arman-d/ConsultLinkBack/internal/models"
)

type AvailabilityRepository struct {
	db DBTX
}

func NewAvailabilityRepository(db DBTX) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

type UpsertAvailabilityInput struct {
	Weekday        string
	MorningStart   *string
	MorningEnd     *string
	AfternoonStart *string
	AfternoonEnd   *string
}

func (r *AvailabilityRepository) Upsert(
	ctx context.Context,
	consultantID int64,
	input UpsertAvailabilityInput,
) (*models.AvailabilityWindow, error) {
	query := `
		INSERT INTO availability_windows
			(consultant_id, weekday, morning_start, morning_end, afternoon_start, afternoon_end)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (consultant_id, weekday)
		DO UPDATE SET
			morning_start = EXCLUDED.morning_start,
			morning_end = EXCLUDED.morning_end,
			afternoon_start = EXCLUDED.afternoon_start,
			afternoon_end = EXCLUDED.afternoon_end,
			updated_at = NOW()
		RETURNING id, consultant_id, weekday, morning_start, morning_end,
			afternoon_start, afternoon_end, created_at, updated_at
	`
	var window models.AvailabilityWindow
	err := r.db.QueryRow(
		ctx,
		query,
		consultantID,
		input.Weekday,
		input.MorningStart,
		input.MorningEnd,
		input.AfternoonStart,
		input.AfternoonEnd,
	).Scan(
		&window.ID,
		&window.ConsultantID,
		&window.Weekday,
		&window.MorningStart,
		&window.MorningEnd,
		&window.AfternoonStart,
		&window.AfternoonEnd,
		&window.CreatedAt,
		&window.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &window, nil
}

func (r *AvailabilityRepository) ListByConsultant(
	ctx context.Context,
	consultantID int64,
) ([]models.AvailabilityWindow, error) {
	query := `
		SELECT id, consultant_id, weekday, morning_start, morning_end,
			afternoon_start, afternoon_end, created_at, updated_at
		FROM availability_windows
		WHERE consultant_id = $1
		ORDER BY array_position(
			ARRAY['monday','tuesday','wednesday','thursday','friday','saturday','sunday'],
			weekday
		)
	`
	rows, err := r.db.Query(ctx, query, consultantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	windows := make([]models.AvailabilityWindow, 0)
	for rows.Next() {
		var window models.AvailabilityWindow
		if err := rows.Scan(
			&window.ID,
			&window.ConsultantID,
			&window.Weekday,
			&window.MorningStart,
			&window.MorningEnd,
			&window.AfternoonStart,
			&window.AfternoonEnd,
			&window.CreatedAt,
			&window.UpdatedAt,
		); err != nil {
			return nil, err
		}
		windows = append(windows, window)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return windows, nil
}

func (r *AvailabilityRepository) Delete(ctx context.Context, consultantID int64, weekday string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM availability_windows
		WHERE consultant_id = $1 AND weekday = $2
	`, consultantID, weekday)
	return err
}
