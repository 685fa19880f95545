package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type ratingApplicationService interface {
	SubmitRating(ctx context.Context, clientID int64, sessionID int64, score int, feedback *string) (*models.Rating, error)
	GetSessionRating(ctx context.Context, actorID int64, role string, sessionID int64) (*models.Rating, error)
}

type RatingHandler struct {
	service ratingApplicationService
}

func NewRatingHandler(service ratingApplicationService) *RatingHandler {
	return &RatingHandler{service: service}
}

type submitRatingRequest struct {
	Score    int     `json:"score"`
	Feedback *string `json:"feedback"`
}

func (h *RatingHandler) SubmitRating(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req submitRatingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	rating, err := h.service.SubmitRating(c.Context(), userID, sessionID, req.Score, req.Feedback)
	if err != nil {
		return mapRatingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"rating": rating})
}

func (h *RatingHandler) GetSessionRating(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != models.RoleClient && role != models.RoleConsultant) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	rating, err := h.service.GetSessionRating(c.Context(), userID, role, sessionID)
	if err != nil {
		return mapRatingError(c, err)
	}

	return c.JSON(fiber.Map{"rating": rating})
}

func mapRatingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Score must be between 1 and 5"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrAlreadyRated):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Session already rated"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Session is not closed yet"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process rating request"})
	}
}
