package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/repository"
	"github.com/arman-d/ConsultLinkBack/internal/services"
)

type stubAppointmentService struct {
	requestResult *models.AppointmentView
	requestErr    error
	respondResult *models.AppointmentView
	respondErr    error
	cancelResult  *models.AppointmentView
	cancelErr     error
	listResult    []models.AppointmentView
	listErr       error
	getResult     *models.AppointmentView
	getErr        error

	lastActorID       int64
	lastRole          string
	lastAppointmentID int64
	lastDecision      string
	lastRequestInput  services.RequestAppointmentInput
	lastListFilter    repository.AppointmentListFilter
}

func (s *stubAppointmentService) Request(_ context.Context, clientID int64, input services.RequestAppointmentInput) (*models.AppointmentView, error) {
	s.lastActorID = clientID
	s.lastRequestInput = input
	return s.requestResult, s.requestErr
}

func (s *stubAppointmentService) Respond(_ context.Context, consultantID int64, appointmentID int64, decision string) (*models.AppointmentView, error) {
	s.lastActorID = consultantID
	s.lastAppointmentID = appointmentID
	s.lastDecision = decision
	return s.respondResult, s.respondErr
}

func (s *stubAppointmentService) Cancel(_ context.Context, clientID int64, appointmentID int64) (*models.AppointmentView, error) {
	s.lastActorID = clientID
	s.lastAppointmentID = appointmentID
	return s.cancelResult, s.cancelErr
}

func (s *stubAppointmentService) List(_ context.Context, actorID int64, role string, filter repository.AppointmentListFilter) ([]models.AppointmentView, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastListFilter = filter
	return s.listResult, s.listErr
}

func (s *stubAppointmentService) Get(_ context.Context, actorID int64, role string, appointmentID int64) (*models.AppointmentView, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastAppointmentID = appointmentID
	return s.getResult, s.getErr
}

func newAppointmentTestApp(service *stubAppointmentService, role, userID string) *fiber.App {
	handler := &AppointmentHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/v1/appointments", handler.Request)
	app.Get("/api/v1/appointments", handler.List)
	app.Put("/api/v1/appointments/:id/respond", handler.Respond)
	app.Delete("/api/v1/appointments/:id", handler.Cancel)
	return app
}

func TestRequestAppointmentReturnsCreated(t *testing.T) {
	service := &stubAppointmentService{
		requestResult: &models.AppointmentView{
			Appointment: models.Appointment{ID: 5, ClientID: 42, ConsultantID: 7, Status: "pending"},
			Timeframe:   "upcoming",
		},
	}
	app := newAppointmentTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{
		"consultant_id": 7,
		"scheduled_date": "2026-09-14",
		"time_of_day": "09:30",
		"notes": "contract review"
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
	if service.lastActorID != 42 {
		t.Fatalf("expected actor 42, got %d", service.lastActorID)
	}
	if service.lastRequestInput.ConsultantID != 7 {
		t.Fatalf("expected consultant 7, got %d", service.lastRequestInput.ConsultantID)
	}
	if service.lastRequestInput.TimeOfDay != "09:30" {
		t.Fatalf("expected time 09:30, got %q", service.lastRequestInput.TimeOfDay)
	}
	if got := service.lastRequestInput.ScheduledDate.Format("2006-01-02"); got != "2026-09-14" {
		t.Fatalf("expected date 2026-09-14, got %q", got)
	}
}

func TestRequestAppointmentRejectsConsultants(t *testing.T) {
	service := &stubAppointmentService{}
	app := newAppointmentTestApp(service, "consultant", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{"consultant_id": 7}`))
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

func TestRequestAppointmentOutsideWindowIsUnprocessable(t *testing.T) {
	service := &stubAppointmentService{
		requestErr: fmt.Errorf("%w: outside available hours", services.ErrInvalidSlot),
	}
	app := newAppointmentTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{
		"consultant_id": 7,
		"scheduled_date": "2026-09-14",
		"time_of_day": "07:00"
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

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(body.Error, "outside available hours") {
		t.Fatalf("expected rejection reason in body, got %q", body.Error)
	}
}

func TestRequestAppointmentRejectsMalformedDate(t *testing.T) {
	service := &stubAppointmentService{}
	app := newAppointmentTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{
		"consultant_id": 7,
		"scheduled_date": "next monday",
		"time_of_day": "09:30"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRespondAppointmentPassesDecision(t *testing.T) {
	service := &stubAppointmentService{
		respondResult: &models.AppointmentView{
			Appointment: models.Appointment{ID: 5, Status: "accepted"},
			Timeframe:   "upcoming",
		},
	}
	app := newAppointmentTestApp(service, "consultant", "7")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/appointments/5/respond", strings.NewReader(`{"decision": "accept"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastAppointmentID != 5 || service.lastDecision != "accept" {
		t.Fatalf("expected appointment 5 decision accept, got %d and %q", service.lastAppointmentID, service.lastDecision)
	}
}

func TestRespondAppointmentOnResolvedIsUnprocessable(t *testing.T) {
	service := &stubAppointmentService{respondErr: services.ErrInvalidStateTransition}
	app := newAppointmentTestApp(service, "consultant", "7")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/appointments/5/respond", strings.NewReader(`{"decision": "decline"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCancelAppointmentRejectsConsultants(t *testing.T) {
	service := &stubAppointmentService{}
	app := newAppointmentTestApp(service, "consultant", "7")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/appointments/5", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestListAppointmentsPassesStatusFilter(t *testing.T) {
	service := &stubAppointmentService{
		listResult: []models.AppointmentView{{
			Appointment: models.Appointment{ID: 5, Status: "pending"},
			Timeframe:   "upcoming",
		}},
	}
	app := newAppointmentTestApp(service, "consultant", "7")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments?status=pending", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastRole != "consultant" || service.lastListFilter.Status != "pending" {
		t.Fatalf("expected consultant pending filter, got %q and %q", service.lastRole, service.lastListFilter.Status)
	}
}
