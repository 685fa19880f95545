package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type ledgerApplicationService interface {
	RecordSessionPayment(ctx context.Context, input services.RecordSessionPaymentInput) ([]models.LedgerEntry, error)
	Balance(ctx context.Context, consultantID int64) (int64, error)
	RequestWithdrawal(ctx context.Context, consultantID int64, amountCents int64, destinationRef string) (*models.PayoutRequest, error)
	ResolveWithdrawal(ctx context.Context, adminID int64, payoutID int64, decision string) (*models.PayoutRequest, error)
	ListEntries(ctx context.Context, consultantID int64) ([]models.LedgerEntry, error)
	ListPayouts(ctx context.Context, actorID int64, role string, status string) ([]models.PayoutRequest, error)
}

type LedgerHandler struct {
	service ledgerApplicationService
}

func NewLedgerHandler(service ledgerApplicationService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

type recordSessionPaymentRequest struct {
	AppointmentID int64  `json:"appointment_id"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
}

type requestWithdrawalRequest struct {
	AmountCents    int64  `json:"amount_cents"`
	DestinationRef string `json:"destination_ref"`
}

type resolveWithdrawalRequest struct {
	Decision string `json:"decision"`
}

// RecordSessionPayment is where the manual proof-of-payment flow lands: an
// admin confirms the transfer and the fee plus its split hit the ledger.
func (h *LedgerHandler) RecordSessionPayment(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req recordSessionPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	entries, err := h.service.RecordSessionPayment(c.Context(), services.RecordSessionPaymentInput{
		AppointmentID: req.AppointmentID,
		AmountCents:   req.AmountCents,
		Currency:      req.Currency,
	})
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"entries": entries})
}

func (h *LedgerHandler) GetBalance(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleConsultant {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	balance, err := h.service.Balance(c.Context(), userID)
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.JSON(fiber.Map{"balance_cents": balance})
}

func (h *LedgerHandler) ListEntries(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleConsultant {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	entries, err := h.service.ListEntries(c.Context(), userID)
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.JSON(fiber.Map{"entries": entries})
}

func (h *LedgerHandler) RequestWithdrawal(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleConsultant {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req requestWithdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	payout, err := h.service.RequestWithdrawal(c.Context(), userID, req.AmountCents, req.DestinationRef)
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payout": payout})
}

func (h *LedgerHandler) ResolveWithdrawal(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	adminID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	payoutID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || payoutID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payout id"})
	}

	var req resolveWithdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	payout, err := h.service.ResolveWithdrawal(c.Context(), adminID, payoutID, req.Decision)
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.JSON(fiber.Map{"payout": payout})
}

func (h *LedgerHandler) ListPayouts(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != models.RoleAdmin && role != models.RoleConsultant) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	payouts, err := h.service.ListPayouts(c.Context(), userID, role, strings.TrimSpace(c.Query("status")))
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.JSON(fiber.Map{"payouts": payouts})
}

func mapLedgerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInsufficientBalance):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Insufficient balance"})
	case errors.Is(err, services.ErrPaymentAlreadyRecorded):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Payment already recorded for this appointment"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process ledger request"})
	}
}
