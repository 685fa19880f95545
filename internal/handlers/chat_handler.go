package handlers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/services"
	chatws "github.com/arman-d/ConsultLinkBack/internal/websocket"
	"github.com/arman-d/ConsultLinkBack/pkg/utils"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type chatApplicationService interface {
	EnterSession(ctx context.Context, actorID int64, role string, appointmentID int64) (*models.ChatSessionView, error)
	ListSessions(ctx context.Context, actorID int64, role string) ([]models.ChatSessionView, error)
	GetSession(ctx context.Context, actorID int64, role string, sessionID int64) (*models.ChatSessionView, error)
	SendMessage(ctx context.Context, actorID int64, role string, sessionID int64, input services.SendMessageInput) (*services.ChatDelivery, error)
	ListMessages(ctx context.Context, actorID int64, role string, sessionID int64, page int, limit int) ([]models.ChatMessage, int, error)
	MarkRead(ctx context.Context, actorID int64, role string, sessionID int64) error
	Unsend(ctx context.Context, actorID int64, sessionID int64, messageID int64) (*models.ChatMessage, error)
	Complete(ctx context.Context, consultantID int64, sessionID int64) (*models.ChatSessionView, error)
}

type ChatHandler struct {
	service   chatApplicationService
	hub       *chatws.Hub
	storage   services.StorageService
	jwtSecret string
}

func NewChatHandler(
	service chatApplicationService,
	hub *chatws.Hub,
	storage services.StorageService,
	jwtSecret string,
) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		storage:   storage,
		jwtSecret: jwtSecret,
	}
}

// EnterSession gates access to the chat channel behind the appointment and
// payment checks, creating the channel if this is the first entry.
func (h *ChatHandler) EnterSession(c *fiber.Ctx) error {
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

	session, err := h.service.EnterSession(c.Context(), userID, role, appointmentID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *ChatHandler) ListSessions(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != models.RoleClient && role != models.RoleConsultant) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessions, err := h.service.ListSessions(c.Context(), userID, role)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *ChatHandler) GetSession(c *fiber.Ctx) error {
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

	session, err := h.service.GetSession(c.Context(), userID, role, sessionID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

type sendMessageRequest struct {
	Kind     string  `json:"kind"`
	Content  string  `json:"content"`
	FileURL  *string `json:"file_url"`
	FileName *string `json:"file_name"`
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
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

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	delivery, err := h.service.SendMessage(c.Context(), userID, role, sessionID, services.SendMessageInput{
		Kind:     req.Kind,
		Content:  req.Content,
		FileURL:  req.FileURL,
		FileName: req.FileName,
	})
	if err != nil {
		return mapChatError(c, err)
	}

	h.hub.Push(delivery)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": delivery.Message})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
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

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	messages, total, err := h.service.ListMessages(c.Context(), userID, role, sessionID, page, limit)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
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

	if err := h.service.MarkRead(c.Context(), userID, role, sessionID); err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *ChatHandler) UnsendMessage(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}
	messageID, err := strconv.ParseInt(c.Params("messageId"), 10, 64)
	if err != nil || messageID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message id"})
	}

	message, err := h.service.Unsend(c.Context(), userID, sessionID, messageID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"message": message})
}

func (h *ChatHandler) CompleteSession(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleConsultant {
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

	session, err := h.service.Complete(c.Context(), userID, sessionID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

// UploadAttachment stores a chat attachment and returns its URL for use in a
// subsequent image or file message.
func (h *ChatHandler) UploadAttachment(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != models.RoleClient && role != models.RoleConsultant) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to read file"})
	}
	defer file.Close()

	filename := fmt.Sprintf("%d-%d%s", userID, time.Now().UnixNano(),
		strings.ToLower(filepath.Ext(fileHeader.Filename)))
	url, err := h.storage.UploadFile(c.Context(), file, filename, "chat-attachments")
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to upload file"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"file_url":  url,
		"file_name": fileHeader.Filename,
	})
}

func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	role, _ := conn.Locals("role").(string)
	client := chatws.NewClient(h.hub, conn, userID)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump(h.service, role)
}

func (h *ChatHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrPaymentRequired):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "Session payment not recorded"})
	case errors.Is(err, services.ErrSessionNotYetScheduled):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Session is not scheduled yet"})
	case errors.Is(err, services.ErrSessionNotYetActive):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Session has not started yet"})
	case errors.Is(err, services.ErrChannelLocked):
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{"error": "Session channel is locked"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
