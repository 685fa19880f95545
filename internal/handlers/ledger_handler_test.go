package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/services"
)

type stubLedgerService struct {
	recordResult  []models.LedgerEntry
	recordErr     error
	balanceResult int64
	balanceErr    error
	requestResult *models.PayoutRequest
	requestErr    error
	resolveResult *models.PayoutRequest
	resolveErr    error
	entriesResult []models.LedgerEntry
	entriesErr    error
	payoutsResult []models.PayoutRequest
	payoutsErr    error

	lastRecordInput    services.RecordSessionPaymentInput
	lastActorID        int64
	lastRole           string
	lastPayoutID       int64
	lastDecision       string
	lastAmountCents    int64
	lastDestinationRef string
	lastStatusFilter   string
}

func (s *stubLedgerService) RecordSessionPayment(_ context.Context, input services.RecordSessionPaymentInput) ([]models.LedgerEntry, error) {
	s.lastRecordInput = input
	return s.recordResult, s.recordErr
}

func (s *stubLedgerService) Balance(_ context.Context, consultantID int64) (int64, error) {
	s.lastActorID = consultantID
	return s.balanceResult, s.balanceErr
}

func (s *stubLedgerService) RequestWithdrawal(_ context.Context, consultantID int64, amountCents int64, destinationRef string) (*models.PayoutRequest, error) {
	s.lastActorID = consultantID
	s.lastAmountCents = amountCents
	s.lastDestinationRef = destinationRef
	return s.requestResult, s.requestErr
}

func (s *stubLedgerService) ResolveWithdrawal(_ context.Context, adminID int64, payoutID int64, decision string) (*models.PayoutRequest, error) {
	s.lastActorID = adminID
	s.lastPayoutID = payoutID
	s.lastDecision = decision
	return s.resolveResult, s.resolveErr
}

func (s *stubLedgerService) ListEntries(_ context.Context, consultantID int64) ([]models.LedgerEntry, error) {
	s.lastActorID = consultantID
	return s.entriesResult, s.entriesErr
}

func (s *stubLedgerService) ListPayouts(_ context.Context, actorID int64, role string, status string) ([]models.PayoutRequest, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastStatusFilter = status
	return s.payoutsResult, s.payoutsErr
}

func newLedgerTestApp(service *stubLedgerService, role, userID string) *fiber.App {
	handler := &LedgerHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/v1/payments/session", handler.RecordSessionPayment)
	app.Get("/api/v1/earnings/balance", handler.GetBalance)
	app.Post("/api/v1/payouts", handler.RequestWithdrawal)
	app.Put("/api/v1/payouts/:id/resolve", handler.ResolveWithdrawal)
	app.Get("/api/v1/payouts", handler.ListPayouts)
	return app
}

func TestRecordSessionPaymentRequiresAdmin(t *testing.T) {
	service := &stubLedgerService{}
	app := newLedgerTestApp(service, "consultant", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/session", strings.NewReader(`{
		"appointment_id": 5,
		"amount_cents": 99900
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestRecordSessionPaymentReturnsEntries(t *testing.T) {
	service := &stubLedgerService{
		recordResult: []models.LedgerEntry{
			{ID: 1, Kind: models.EntrySessionFee, AmountCents: 99900},
			{ID: 2, Kind: models.EntryConsultantEarning, AmountCents: 69930},
			{ID: 3, Kind: models.EntryAdminIncome, AmountCents: 29970},
		},
	}
	app := newLedgerTestApp(service, "admin", "1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/session", strings.NewReader(`{
		"appointment_id": 5,
		"amount_cents": 99900,
		"currency": "PHP"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastRecordInput.AppointmentID != 5 || service.lastRecordInput.AmountCents != 99900 {
		t.Fatalf("unexpected input %+v", service.lastRecordInput)
	}

	var body struct {
		Entries []models.LedgerEntry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(body.Entries))
	}
}

func TestRecordSessionPaymentDuplicateIsConflict(t *testing.T) {
	service := &stubLedgerService{recordErr: services.ErrPaymentAlreadyRecorded}
	app := newLedgerTestApp(service, "admin", "1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/session", strings.NewReader(`{
		"appointment_id": 5,
		"amount_cents": 99900
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestGetBalanceReturnsCents(t *testing.T) {
	service := &stubLedgerService{balanceResult: 69930}
	app := newLedgerTestApp(service, "consultant", "7")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/earnings/balance", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastActorID != 7 {
		t.Fatalf("expected consultant 7, got %d", service.lastActorID)
	}

	var body struct {
		BalanceCents int64 `json:"balance_cents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.BalanceCents != 69930 {
		t.Fatalf("expected balance 69930, got %d", body.BalanceCents)
	}
}

func TestRequestWithdrawalInsufficientBalance(t *testing.T) {
	service := &stubLedgerService{requestErr: services.ErrInsufficientBalance}
	app := newLedgerTestApp(service, "consultant", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payouts", strings.NewReader(`{
		"amount_cents": 100000,
		"destination_ref": "gcash:09170000000"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if service.lastAmountCents != 100000 || service.lastDestinationRef != "gcash:09170000000" {
		t.Fatalf("unexpected withdrawal input %d %q", service.lastAmountCents, service.lastDestinationRef)
	}
}

func TestResolveWithdrawalPassesDecision(t *testing.T) {
	service := &stubLedgerService{
		resolveResult: &models.PayoutRequest{ID: 3, Status: models.PayoutDeclined},
	}
	app := newLedgerTestApp(service, "admin", "1")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/payouts/3/resolve", strings.NewReader(`{"decision": "decline"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastPayoutID != 3 || service.lastDecision != "decline" {
		t.Fatalf("expected payout 3 decline, got %d and %q", service.lastPayoutID, service.lastDecision)
	}
}

func TestListPayoutsPassesStatus(t *testing.T) {
	service := &stubLedgerService{
		payoutsResult: []models.PayoutRequest{{ID: 3, Status: models.PayoutPending}},
	}
	app := newLedgerTestApp(service, "admin", "1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payouts?status=pending", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastRole != "admin" || service.lastStatusFilter != "pending" {
		t.Fatalf("expected admin pending, got %q and %q", service.lastRole, service.lastStatusFilter)
	}
}
