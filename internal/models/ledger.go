package models

import "time"

const (
	EntrySessionFee         = "session_fee"
	EntryConsultantEarning  = "consultant_earning"
	EntryAdminIncome        = "admin_income"
	EntryWithdrawal         = "withdrawal"
	EntryWithdrawalReversal = "withdrawal_reversal"

	EntryPending   = "pending"
	EntryCompleted = "completed"
	EntryDeclined  = "declined"

	PayoutPending  = "pending"
	PayoutApproved = "approved"
	PayoutDeclined = "declined"
)

// LedgerEntry is append-only. Amounts are signed integer cents; withdrawals
// are negative, reversals positive. Balances are always aggregated from
// entries, never stored.
type LedgerEntry struct {
	ID            int64     `json:"id"`
	ClientID      *int64    `json:"client_id"`
	ConsultantID  *int64    `json:"consultant_id"`
	AppointmentID *int64    `json:"appointment_id"`
	PayoutID      *int64    `json:"payout_id"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	Kind          string    `json:"kind"`
	Status        string    `json:"status"`
	Reference     string    `json:"reference"`
	CreatedAt     time.Time `json:"created_at"`
}

type PayoutRequest struct {
	ID             int64      `json:"id"`
	ConsultantID   int64      `json:"consultant_id"`
	AmountCents    int64      `json:"amount_cents"`
	DestinationRef string     `json:"destination_ref"`
	Status         string     `json:"status"`
	RequestedAt    time.Time  `json:"requested_at"`
	ResolvedAt     *time.Time `json:"resolved_at"`
}
