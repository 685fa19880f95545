package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/services"
)

type stubRatingService struct {
	submitResult *models.Rating
	submitErr    error
	getResult    *models.Rating
	getErr       error

	lastClientID  int64
	lastSessionID int64
	lastScore     int
	lastFeedback  *string
}

func (s *stubRatingService) SubmitRating(_ context.Context, clientID int64, sessionID int64, score int, feedback *string) (*models.Rating, error) {
	s.lastClientID = clientID
	s.lastSessionID = sessionID
	s.lastScore = score
	s.lastFeedback = feedback
	return s.submitResult, s.submitErr
}

func (s *stubRatingService) GetSessionRating(_ context.Context, actorID int64, role string, sessionID int64) (*models.Rating, error) {
	s.lastSessionID = sessionID
	return s.getResult, s.getErr
}

func newRatingTestApp(service *stubRatingService, role, userID string) *fiber.App {
	handler := &RatingHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/v1/sessions/:id/rating", handler.SubmitRating)
	return app
}

func TestSubmitRatingReturnsCreated(t *testing.T) {
	service := &stubRatingService{
		submitResult: &models.Rating{ID: 1, SessionID: 11, ClientID: 42, Score: 5},
	}
	app := newRatingTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/11/rating", strings.NewReader(`{
		"score": 5,
		"feedback": "clear and helpful"
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
	if service.lastClientID != 42 || service.lastSessionID != 11 || service.lastScore != 5 {
		t.Fatalf("unexpected input: client %d session %d score %d", service.lastClientID, service.lastSessionID, service.lastScore)
	}
	if service.lastFeedback == nil || *service.lastFeedback != "clear and helpful" {
		t.Fatalf("expected feedback to be forwarded, got %v", service.lastFeedback)
	}
}

func TestSubmitRatingRejectsConsultants(t *testing.T) {
	service := &stubRatingService{}
	app := newRatingTestApp(service, "consultant", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/11/rating", strings.NewReader(`{"score": 5}`))
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

func TestSubmitRatingTwiceIsConflict(t *testing.T) {
	service := &stubRatingService{submitErr: services.ErrAlreadyRated}
	app := newRatingTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/11/rating", strings.NewReader(`{"score": 4}`))
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

func TestSubmitRatingOnOpenSessionIsUnprocessable(t *testing.T) {
	service := &stubRatingService{submitErr: services.ErrInvalidStateTransition}
	app := newRatingTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/11/rating", strings.NewReader(`{"score": 4}`))
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
