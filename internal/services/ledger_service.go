package services

import (
	"context"
	"errors"
	"strings"

	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/notify"
	"github.com/arman-d/ConsultLinkBack/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrPaymentAlreadyRecorded = errors.New("payment already recorded")
)

// consultantSharePercent is the consultant's cut of a session fee. The
// remainder cent from integer division lands on the admin side.
const consultantSharePercent = 70

type LedgerService struct {
	db              *pgxpool.Pool
	ledgerRepo      *repository.LedgerRepository
	payoutRepo      *repository.PayoutRepository
	appointmentRepo *repository.AppointmentRepository
	notifier        notify.Notifier
}

func NewLedgerService(
	db *pgxpool.Pool,
	ledgerRepo *repository.LedgerRepository,
	payoutRepo *repository.PayoutRepository,
	appointmentRepo *repository.AppointmentRepository,
	notifier notify.Notifier,
) *LedgerService {
	return &LedgerService{
		db:              db,
		ledgerRepo:      ledgerRepo,
		payoutRepo:      payoutRepo,
		appointmentRepo: appointmentRepo,
		notifier:        notifier,
	}
}

type RecordSessionPaymentInput struct {
	AppointmentID int64
	AmountCents   int64
	Currency      string
}

// RecordSessionPayment writes the fee and its 70/30 split as three entries in
// one transaction. The partial unique index on (appointment_id, kind) rejects
// a second fee for the same appointment, so the split can never be applied
// twice or halfway.
func (s *LedgerService) RecordSessionPayment(
	ctx context.Context,
	input RecordSessionPaymentInput,
) ([]models.LedgerEntry, error) {
	if input.AppointmentID <= 0 || input.AmountCents <= 0 {
		return nil, ErrInvalidInput
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "PHP"
	}

	appointment, err := s.appointmentRepo.GetByID(ctx, input.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.Status != models.AppointmentAccepted {
		return nil, ErrInvalidStateTransition
	}

	consultantCents, adminCents := splitFee(input.AmountCents)
	reference := uuid.NewString()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txLedgerRepo := repository.NewLedgerRepository(tx)

	entries := []repository.CreateLedgerEntryInput{
		{
			ClientID:      &appointment.ClientID,
			ConsultantID:  &appointment.ConsultantID,
			AppointmentID: &appointment.ID,
			AmountCents:   input.AmountCents,
			Currency:      currency,
			Kind:          models.EntrySessionFee,
			Status:        models.EntryCompleted,
			Reference:     reference,
		},
		{
			ConsultantID:  &appointment.ConsultantID,
			AppointmentID: &appointment.ID,
			AmountCents:   consultantCents,
			Currency:      currency,
			Kind:          models.EntryConsultantEarning,
			Status:        models.EntryCompleted,
			Reference:     reference,
		},
		{
			ConsultantID:  &appointment.ConsultantID,
			AppointmentID: &appointment.ID,
			AmountCents:   adminCents,
			Currency:      currency,
			Kind:          models.EntryAdminIncome,
			Status:        models.EntryCompleted,
			Reference:     reference,
		},
	}

	created := make([]models.LedgerEntry, 0, len(entries))
	for _, entryInput := range entries {
		entry, err := txLedgerRepo.Create(ctx, entryInput)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return nil, ErrPaymentAlreadyRecorded
			}
			return nil, err
		}
		created = append(created, *entry)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return created, nil
}

func (s *LedgerService) Balance(ctx context.Context, consultantID int64) (int64, error) {
	return s.ledgerRepo.Balance(ctx, consultantID)
}

// RequestWithdrawal creates a pending payout request and its negative hold
// entry in one transaction. The advisory lock on the consultant id serializes
// concurrent requests so two of them cannot both pass the balance check.
func (s *LedgerService) RequestWithdrawal(
	ctx context.Context,
	consultantID int64,
	amountCents int64,
	destinationRef string,
) (*models.PayoutRequest, error) {
	destinationRef = strings.TrimSpace(destinationRef)
	if amountCents <= 0 || destinationRef == "" {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", consultantID); err != nil {
		return nil, err
	}

	txLedgerRepo := repository.NewLedgerRepository(tx)
	txPayoutRepo := repository.NewPayoutRepository(tx)

	balance, err := txLedgerRepo.Balance(ctx, consultantID)
	if err != nil {
		return nil, err
	}
	if amountCents > balance {
		return nil, ErrInsufficientBalance
	}

	payout, err := txPayoutRepo.Create(ctx, consultantID, amountCents, destinationRef)
	if err != nil {
		return nil, err
	}

	_, err = txLedgerRepo.Create(ctx, repository.CreateLedgerEntryInput{
		ConsultantID: &consultantID,
		PayoutID:     &payout.ID,
		AmountCents:  -amountCents,
		Currency:     "PHP",
		Kind:         models.EntryWithdrawal,
		Status:       models.EntryPending,
		Reference:    uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return payout, nil
}

// ResolveWithdrawal applies the admin decision. A decline cancels the hold by
// appending a reversal of the full amount rather than deleting anything, so
// the ledger stays append-only.
func (s *LedgerService) ResolveWithdrawal(
	ctx context.Context,
	adminID int64,
	payoutID int64,
	decision string,
) (*models.PayoutRequest, error) {
	var nextStatus string
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case "approve", "approved":
		nextStatus = models.PayoutApproved
	case "decline", "declined":
		nextStatus = models.PayoutDeclined
	default:
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txLedgerRepo := repository.NewLedgerRepository(tx)
	txPayoutRepo := repository.NewPayoutRepository(tx)

	payout, err := txPayoutRepo.GetByIDForUpdate(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != models.PayoutPending {
		return nil, ErrInvalidStateTransition
	}

	resolved, err := txPayoutRepo.ResolveIfPending(ctx, payoutID, nextStatus)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, ErrInvalidStateTransition
	}

	if nextStatus == models.PayoutApproved {
		if err := txLedgerRepo.ResolveByPayout(ctx, payoutID, models.EntryCompleted); err != nil {
			return nil, err
		}
	} else {
		if err := txLedgerRepo.ResolveByPayout(ctx, payoutID, models.EntryDeclined); err != nil {
			return nil, err
		}
		_, err = txLedgerRepo.Create(ctx, repository.CreateLedgerEntryInput{
			ConsultantID: &payout.ConsultantID,
			PayoutID:     &payout.ID,
			AmountCents:  payout.AmountCents,
			Currency:     "PHP",
			Kind:         models.EntryWithdrawalReversal,
			Status:       models.EntryCompleted,
			Reference:    uuid.NewString(),
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	updated, err := s.payoutRepo.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(ctx, notify.EventPayoutResolved, map[string]any{
		"payout_id":     updated.ID,
		"consultant_id": updated.ConsultantID,
		"status":        updated.Status,
		"amount_cents":  updated.AmountCents,
		"resolved_by":   adminID,
	})

	return updated, nil
}

func (s *LedgerService) ListEntries(ctx context.Context, consultantID int64) ([]models.LedgerEntry, error) {
	return s.ledgerRepo.ListByConsultant(ctx, consultantID)
}

func (s *LedgerService) ListPayouts(
	ctx context.Context,
	actorID int64,
	role string,
	status string,
) ([]models.PayoutRequest, error) {
	switch role {
	case models.RoleAdmin:
		if status == "" {
			status = models.PayoutPending
		}
		return s.payoutRepo.ListByStatus(ctx, status)
	case models.RoleConsultant:
		return s.payoutRepo.ListByConsultant(ctx, actorID)
	default:
		return nil, ErrForbidden
	}
}

// splitFee divides a gross fee into the consultant and admin shares. The
// shares always sum back to the gross amount.
func splitFee(grossCents int64) (consultantCents, adminCents int64) {
	consultantCents = grossCents * consultantSharePercent / 100
	adminCents = grossCents - consultantCents
	return consultantCents, adminCents
}
