package repository

import (
	"context"

	"github.com/arman-d/ConsultLinkBack/internal/models"
)

type LedgerRepository struct {
	db DBTX
}

func NewLedgerRepository(db DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const ledgerColumns = `id, client_id, consultant_id, appointment_id, payout_id, amount_cents,
		currency, kind, status, reference, created_at`

func scanLedgerEntry(row interface{ Scan(dest ...any) error }) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := row.Scan(
		&entry.ID,
		&entry.ClientID,
		&entry.ConsultantID,
		&entry.AppointmentID,
		&entry.PayoutID,
		&entry.AmountCents,
		&entry.Currency,
		&entry.Kind,
		&entry.Status,
		&entry.Reference,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

type CreateLedgerEntryInput struct {
	ClientID      *int64
	ConsultantID  *int64
	AppointmentID *int64
	PayoutID      *int64
	AmountCents   int64
	Currency      string
	Kind          string
	Status        string
	Reference     string
}

func (r *LedgerRepository) Create(ctx context.Context, input CreateLedgerEntryInput) (*models.LedgerEntry, error) {
	query := `
		INSERT INTO ledger_entries
			(client_id, consultant_id, appointment_id, payout_id, amount_cents, currency, kind, status, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + ledgerColumns
	return scanLedgerEntry(r.db.QueryRow(ctx, query,
		input.ClientID, input.ConsultantID, input.AppointmentID, input.PayoutID,
		input.AmountCents, input.Currency, input.Kind, input.Status, input.Reference))
}

// Balance sums the consultant's earnings against withdrawals and their
// reversals. Every row counts regardless of status: a pending withdrawal is a
// hold, and a declined one is cancelled by its reversal row rather than by
// filtering, so the sum is order-independent.
func (r *LedgerRepository) Balance(ctx context.Context, consultantID int64) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM ledger_entries
		WHERE consultant_id = $1
		  AND kind IN ('consultant_earning', 'withdrawal', 'withdrawal_reversal')
	`, consultantID).Scan(&balance)
	return balance, err
}

// HasSessionFee reports whether the appointment carries a settled session fee.
// Only a completed entry opens the chat gate.
func (r *LedgerRepository) HasSessionFee(ctx context.Context, appointmentID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM ledger_entries
			WHERE appointment_id = $1 AND kind = 'session_fee' AND status = 'completed'
		)
	`, appointmentID).Scan(&exists)
	return exists, err
}

func (r *LedgerRepository) ListByConsultant(ctx context.Context, consultantID int64) ([]models.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE consultant_id = $1
		ORDER BY id DESC
	`
	rows, err := r.db.Query(ctx, query, consultantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.LedgerEntry, 0)
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// ResolveByPayout flips the pending withdrawal hold tied to a payout request.
func (r *LedgerRepository) ResolveByPayout(ctx context.Context, payoutID int64, status string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE ledger_entries
		SET status = $2
		WHERE payout_id = $1 AND status = 'pending'
	`, payoutID, status)
	return err
}
