package repository

import (
	"context"

	"github.com/arman-d/ConsultLinkBack/internal/models"
)

type PayoutRepository struct {
	db DBTX
}

func NewPayoutRepository(db DBTX) *PayoutRepository {
	return &PayoutRepository{db: db}
}

const payoutColumns = `id, consultant_id, amount_cents, destination_ref, status, requested_at, resolved_at`

func scanPayout(row interface{ Scan(dest ...any) error }) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	err := row.Scan(
		&payout.ID,
		&payout.ConsultantID,
		&payout.AmountCents,
		&payout.DestinationRef,
		&payout.Status,
		&payout.RequestedAt,
		&payout.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *PayoutRepository) Create(
	ctx context.Context,
	consultantID int64,
	amountCents int64,
	destinationRef string,
) (*models.PayoutRequest, error) {
	query := `
		INSERT INTO payout_requests (consultant_id, amount_cents, destination_ref)
		VALUES ($1, $2, $3)
		RETURNING ` + payoutColumns
	return scanPayout(r.db.QueryRow(ctx, query, consultantID, amountCents, destinationRef))
}

func (r *PayoutRepository) GetByID(ctx context.Context, payoutID int64) (*models.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1`
	return scanPayout(r.db.QueryRow(ctx, query, payoutID))
}

func (r *PayoutRepository) GetByIDForUpdate(ctx context.Context, payoutID int64) (*models.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1 FOR UPDATE`
	return scanPayout(r.db.QueryRow(ctx, query, payoutID))
}

// ResolveIfPending records the admin decision. Zero rows affected means the
// request was already resolved.
func (r *PayoutRepository) ResolveIfPending(ctx context.Context, payoutID int64, status string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE payout_requests
		SET status = $2, resolved_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, payoutID, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PayoutRepository) ListByStatus(ctx context.Context, status string) ([]models.PayoutRequest, error) {
	query := `
		SELECT ` + payoutColumns + `
		FROM payout_requests
		WHERE status = $1
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payouts := make([]models.PayoutRequest, 0)
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, *payout)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payouts, nil
}

func (r *PayoutRepository) ListByConsultant(ctx context.Context, consultantID int64) ([]models.PayoutRequest, error) {
	query := `
		SELECT ` + payoutColumns + `
		FROM payout_requests
		WHERE consultant_id = $1
		ORDER BY id DESC
	`
	rows, err := r.db.Query(ctx, query, consultantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payouts := make([]models.PayoutRequest, 0)
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, *payout)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payouts, nil
}
