package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/repository"
	"github.com/arman-d/ConsultLinkBack/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type profileApplicationService interface {
	GetOwnProfile(ctx context.Context, consultantID int64) (*models.ConsultantProfile, error)
	UpdateProfile(ctx context.Context, consultantID int64, input repository.UpdateConsultantProfileInput) (*models.ConsultantProfile, error)
	ListDirectory(ctx context.Context) ([]models.ConsultantListing, error)
	GetListing(ctx context.Context, consultantID int64) (*models.ConsultantListing, error)
}

// DirectoryHandler serves both the public consultant directory and the
// consultant's own profile management.
type DirectoryHandler struct {
	service profileApplicationService
}

func NewDirectoryHandler(service profileApplicationService) *DirectoryHandler {
	return &DirectoryHandler{service: service}
}

func (h *DirectoryHandler) ListConsultants(c *fiber.Ctx) error {
	listings, err := h.service.ListDirectory(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch consultants"})
	}

	return c.JSON(fiber.Map{"consultants": listings})
}

func (h *DirectoryHandler) GetConsultant(c *fiber.Ctx) error {
	consultantID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || consultantID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid consultant id"})
	}

	listing, err := h.service.GetListing(c.Context(), consultantID)
	if err != nil {
		if errors.Is(err, services.ErrConsultantNotFound) || errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Consultant not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch consultant"})
	}

	return c.JSON(fiber.Map{"consultant": listing})
}

func (h *DirectoryHandler) GetOwnProfile(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleConsultant {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	profile, err := h.service.GetOwnProfile(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}

type updateProfileRequest struct {
	FullName         *string `json:"full_name"`
	Bio              *string `json:"bio"`
	SessionRateCents *int64  `json:"session_rate_cents"`
}

func (h *DirectoryHandler) UpdateOwnProfile(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleConsultant {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	profile, err := h.service.UpdateProfile(c.Context(), userID, repository.UpdateConsultantProfileInput{
		FullName:         req.FullName,
		Bio:              req.Bio,
		SessionRateCents: req.SessionRateCents,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "session_rate_cents must be greater than 0"})
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}
