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
	chatws "github.com/arman-d/ConsultLinkBack/internal/websocket"
)

type stubChatService struct {
	enterResult    *models.ChatSessionView
	enterErr       error
	listResult     []models.ChatSessionView
	listErr        error
	getResult      *models.ChatSessionView
	getErr         error
	sendResult     *services.ChatDelivery
	sendErr        error
	messagesResult []models.ChatMessage
	messagesTotal  int
	messagesErr    error
	markReadErr    error
	unsendResult   *models.ChatMessage
	unsendErr      error
	completeResult *models.ChatSessionView
	completeErr    error

	lastActorID       int64
	lastRole          string
	lastAppointmentID int64
	lastSessionID     int64
	lastMessageID     int64
	lastSendInput     services.SendMessageInput
	lastPage          int
	lastLimit         int
}

func (s *stubChatService) EnterSession(_ context.Context, actorID int64, role string, appointmentID int64) (*models.ChatSessionView, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastAppointmentID = appointmentID
	return s.enterResult, s.enterErr
}

func (s *stubChatService) ListSessions(_ context.Context, actorID int64, role string) ([]models.ChatSessionView, error) {
	s.lastActorID = actorID
	s.lastRole = role
	return s.listResult, s.listErr
}

func (s *stubChatService) GetSession(_ context.Context, actorID int64, role string, sessionID int64) (*models.ChatSessionView, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSessionID = sessionID
	return s.getResult, s.getErr
}

func (s *stubChatService) SendMessage(_ context.Context, actorID int64, role string, sessionID int64, input services.SendMessageInput) (*services.ChatDelivery, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSessionID = sessionID
	s.lastSendInput = input
	return s.sendResult, s.sendErr
}

func (s *stubChatService) ListMessages(_ context.Context, actorID int64, role string, sessionID int64, page int, limit int) ([]models.ChatMessage, int, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSessionID = sessionID
	s.lastPage = page
	s.lastLimit = limit
	return s.messagesResult, s.messagesTotal, s.messagesErr
}

func (s *stubChatService) MarkRead(_ context.Context, actorID int64, role string, sessionID int64) error {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSessionID = sessionID
	return s.markReadErr
}

func (s *stubChatService) Unsend(_ context.Context, actorID int64, sessionID int64, messageID int64) (*models.ChatMessage, error) {
	s.lastActorID = actorID
	s.lastSessionID = sessionID
	s.lastMessageID = messageID
	return s.unsendResult, s.unsendErr
}

func (s *stubChatService) Complete(_ context.Context, consultantID int64, sessionID int64) (*models.ChatSessionView, error) {
	s.lastActorID = consultantID
	s.lastSessionID = sessionID
	return s.completeResult, s.completeErr
}

func newChatTestApp(service *stubChatService, role, userID string) *fiber.App {
	handler := &ChatHandler{service: service, hub: chatws.NewHub()}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/v1/appointments/:id/session", handler.EnterSession)
	app.Post("/api/v1/sessions/:id/messages", handler.SendMessage)
	app.Get("/api/v1/sessions/:id/messages", handler.GetMessages)
	app.Delete("/api/v1/sessions/:id/messages/:messageId", handler.UnsendMessage)
	app.Post("/api/v1/sessions/:id/complete", handler.CompleteSession)
	return app
}

func TestEnterSessionRequiresPayment(t *testing.T) {
	service := &stubChatService{enterErr: services.ErrPaymentRequired}
	app := newChatTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/7/session", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", resp.StatusCode)
	}
	if service.lastActorID != 42 || service.lastAppointmentID != 7 {
		t.Fatalf("expected actor 42 appointment 7, got %d and %d", service.lastActorID, service.lastAppointmentID)
	}
}

func TestEnterSessionBeforeStartIsUnprocessable(t *testing.T) {
	service := &stubChatService{enterErr: services.ErrSessionNotYetActive}
	app := newChatTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/7/session", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestEnterSessionReturnsSession(t *testing.T) {
	service := &stubChatService{
		enterResult: &models.ChatSessionView{
			ChatSession: models.ChatSession{ID: 11, ClientID: 42, ConsultantID: 9, Status: "active"},
		},
	}
	app := newChatTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/7/session", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Session models.ChatSessionView `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Session.ID != 11 {
		t.Fatalf("expected session 11, got %d", body.Session.ID)
	}
}

func TestSendMessageReturnsCreated(t *testing.T) {
	service := &stubChatService{
		sendResult: &services.ChatDelivery{
			Session:     &models.ChatSession{ID: 11, ClientID: 42, ConsultantID: 9},
			Message:     &models.ChatMessage{ID: 101, SessionID: 11, SenderID: 42, Kind: "text", Content: "hi"},
			RecipientID: 9,
		},
	}
	app := newChatTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/11/messages", strings.NewReader(`{"content": "hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastSessionID != 11 {
		t.Fatalf("expected session 11, got %d", service.lastSessionID)
	}
	if service.lastSendInput.Content != "hi" {
		t.Fatalf("expected content %q, got %q", "hi", service.lastSendInput.Content)
	}
}

func TestSendMessageOnLockedChannel(t *testing.T) {
	service := &stubChatService{sendErr: services.ErrChannelLocked}
	app := newChatTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/11/messages", strings.NewReader(`{"content": "too late"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusLocked {
		t.Fatalf("expected 423, got %d", resp.StatusCode)
	}
}

func TestGetMessagesPassesPagination(t *testing.T) {
	service := &stubChatService{
		messagesResult: []models.ChatMessage{{ID: 101, SessionID: 11}},
		messagesTotal:  35,
	}
	app := newChatTestApp(service, "consultant", "9")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/11/messages?page=2&limit=20", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastPage != 2 || service.lastLimit != 20 {
		t.Fatalf("expected page 2 limit 20, got %d and %d", service.lastPage, service.lastLimit)
	}

	var body struct {
		Pagination models.PaginationMeta `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Pagination.Total != 35 || body.Pagination.TotalPages != 2 {
		t.Fatalf("unexpected pagination %+v", body.Pagination)
	}
}

func TestUnsendByNonSenderIsForbidden(t *testing.T) {
	service := &stubChatService{unsendErr: services.ErrForbidden}
	app := newChatTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/11/messages/101", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if service.lastMessageID != 101 {
		t.Fatalf("expected message 101, got %d", service.lastMessageID)
	}
}

func TestCompleteSessionRejectsClients(t *testing.T) {
	service := &stubChatService{}
	app := newChatTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/11/complete", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}
