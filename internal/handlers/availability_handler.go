package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/repository"
	"github.com/arman-d/ConsultLinkBack/internal/services"
	"github.com/gofiber/fiber/v2"
)

type availabilityApplicationService interface {
	SetWindow(ctx context.Context, consultantID int64, input repository.UpsertAvailabilityInput) (*models.AvailabilityWindow, error)
	ListWindows(ctx context.Context, consultantID int64) ([]models.AvailabilityWindow, error)
	RemoveWindow(ctx context.Context, consultantID int64, weekday string) error
}

type AvailabilityHandler struct {
	service availabilityApplicationService
}

func NewAvailabilityHandler(service availabilityApplicationService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

type setAvailabilityRequest struct {
	Weekday        string  `json:"weekday"`
	MorningStart   *string `json:"morning_start"`
	MorningEnd     *string `json:"morning_end"`
	AfternoonStart *string `json:"afternoon_start"`
	AfternoonEnd   *string `json:"afternoon_end"`
}

func (h *AvailabilityHandler) SetWindow(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleConsultant {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req setAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	window, err := h.service.SetWindow(c.Context(), userID, repository.UpsertAvailabilityInput{
		Weekday:        req.Weekday,
		MorningStart:   req.MorningStart,
		MorningEnd:     req.MorningEnd,
		AfternoonStart: req.AfternoonStart,
		AfternoonEnd:   req.AfternoonEnd,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "Invalid weekday or time range"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to save availability"})
	}

	return c.JSON(fiber.Map{"availability": window})
}

// ListOwnWindows returns the authenticated consultant's weekly schedule.
func (h *AvailabilityHandler) ListOwnWindows(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleConsultant {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	windows, err := h.service.ListWindows(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch availability"})
	}

	return c.JSON(fiber.Map{"availability": windows})
}

// ListConsultantWindows is the public view clients book against.
func (h *AvailabilityHandler) ListConsultantWindows(c *fiber.Ctx) error {
	consultantID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || consultantID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid consultant id"})
	}

	windows, err := h.service.ListWindows(c.Context(), consultantID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch availability"})
	}

	return c.JSON(fiber.Map{"availability": windows})
}

func (h *AvailabilityHandler) RemoveWindow(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleConsultant {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if err := h.service.RemoveWindow(c.Context(), userID, c.Params("weekday")); err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid weekday"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to remove availability"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
