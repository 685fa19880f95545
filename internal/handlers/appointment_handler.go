package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/repository"
	"github.com/arman-d/ConsultLinkBack/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type appointmentApplicationService interface {
	Request(ctx context.Context, clientID int64, input services.RequestAppointmentInput) (*models.AppointmentView, error)
	Respond(ctx context.Context, consultantID int64, appointmentID int64, decision string) (*models.AppointmentView, error)
	Cancel(ctx context.Context, clientID int64, appointmentID int64) (*models.AppointmentView, error)
	List(ctx context.Context, actorID int64, role string, filter repository.AppointmentListFilter) ([]models.AppointmentView, error)
	Get(ctx context.Context, actorID int64, role string, appointmentID int64) (*models.AppointmentView, error)
}

type AppointmentHandler struct {
	service appointmentApplicationService
}

func NewAppointmentHandler(service appointmentApplicationService) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

type requestAppointmentRequest struct {
	ConsultantID  int64   `json:"consultant_id"`
	ScheduledDate string  `json:"scheduled_date"`
	TimeOfDay     string  `json:"time_of_day"`
	Notes         *string `json:"notes"`
}

type respondAppointmentRequest struct {
	Decision string `json:"decision"`
}

func (h *AppointmentHandler) Request(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req requestAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	scheduledDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.ScheduledDate))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "scheduled_date must be a valid YYYY-MM-DD date"})
	}
	if req.Notes != nil && strings.TrimSpace(*req.Notes) == "" {
		req.Notes = nil
	}

	appointment, err := h.service.Request(c.Context(), userID, services.RequestAppointmentInput{
		ConsultantID:  req.ConsultantID,
		ScheduledDate: scheduledDate,
		TimeOfDay:     req.TimeOfDay,
		Notes:         req.Notes,
	})
	if err != nil {
		return mapAppointmentError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"appointment": appointment})
}

func (h *AppointmentHandler) Respond(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleConsultant {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	appointmentID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || appointmentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid appointment id"})
	}

	var req respondAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	appointment, err := h.service.Respond(c.Context(), userID, appointmentID, req.Decision)
	if err != nil {
		return mapAppointmentError(c, err)
	}

	return c.JSON(fiber.Map{"appointment": appointment})
}

func (h *AppointmentHandler) Cancel(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	appointmentID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || appointmentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid appointment id"})
	}

	appointment, err := h.service.Cancel(c.Context(), userID, appointmentID)
	if err != nil {
		return mapAppointmentError(c, err)
	}

	return c.JSON(fiber.Map{"appointment": appointment})
}

func (h *AppointmentHandler) List(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != models.RoleClient && role != models.RoleConsultant) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	appointments, err := h.service.List(c.Context(), userID, role, repository.AppointmentListFilter{
		Status: strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		return mapAppointmentError(c, err)
	}

	return c.JSON(fiber.Map{"appointments": appointments})
}

func (h *AppointmentHandler) Get(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != models.RoleClient && role != models.RoleConsultant) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	appointmentID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || appointmentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid appointment id"})
	}

	appointment, err := h.service.Get(c.Context(), userID, role, appointmentID)
	if err != nil {
		return mapAppointmentError(c, err)
	}

	return c.JSON(fiber.Map{"appointment": appointment})
}

func mapAppointmentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidSlot):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrConsultantNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Consultant not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Appointment not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process appointment request"})
	}
}
