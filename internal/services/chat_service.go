package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/notify"
	"github.com/arman-d/ConsultLinkBack/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrPaymentRequired        = errors.New("payment required")
	ErrSessionNotYetScheduled = errors.New("session not yet scheduled")
	ErrSessionNotYetActive    = errors.New("session not yet active")
	ErrChannelLocked          = errors.New("channel locked")
)

// sessionLifetime is how long a channel accepts writes after it opens, absent
// an explicit completion.
const sessionLifetime = 12 * time.Hour

type attachmentRemover interface {
	DeleteFile(ctx context.Context, fileURL string) error
}

type ChatService struct {
	db              *pgxpool.Pool
	sessionRepo     *repository.ChatSessionRepository
	messageRepo     *repository.MessageRepository
	appointmentRepo *repository.AppointmentRepository
	ledgerRepo      *repository.LedgerRepository
	storage         attachmentRemover
	notifier        notify.Notifier
	logger          *slog.Logger
}

// ChatDelivery is what the transport layer needs to fan a message out.
type ChatDelivery struct {
	Session     *models.ChatSession
	Message     *models.ChatMessage
	RecipientID int64
}

func NewChatService(
	db *pgxpool.Pool,
	sessionRepo *repository.ChatSessionRepository,
	messageRepo *repository.MessageRepository,
	appointmentRepo *repository.AppointmentRepository,
	ledgerRepo *repository.LedgerRepository,
	storage attachmentRemover,
	notifier notify.Notifier,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		db:              db,
		sessionRepo:     sessionRepo,
		messageRepo:     messageRepo,
		appointmentRepo: appointmentRepo,
		ledgerRepo:      ledgerRepo,
		storage:         storage,
		notifier:        notifier,
		logger:          logger,
	}
}

// EnterSession is the gate in front of the chat channel. It checks the
// appointment, the clock, and (for clients) the recorded payment, then hands
// back the channel for the pair, creating it when needed.
func (s *ChatService) EnterSession(
	ctx context.Context,
	actorID int64,
	role string,
	appointmentID int64,
) (*models.ChatSessionView, error) {
	if role != models.RoleClient && role != models.RoleConsultant {
		return nil, ErrForbidden
	}

	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !canAccessAppointment(role, actorID, appointment) {
		return nil, ErrForbidden
	}
	if appointment.Status != models.AppointmentAccepted {
		return nil, ErrInvalidStateTransition
	}
	if appointment.ScheduledDate.IsZero() || strings.TrimSpace(appointment.TimeOfDay) == "" {
		return nil, ErrSessionNotYetScheduled
	}
	// Lower bound only: entering late is allowed, the 12h lifetime caps the
	// channel from the other side.
	if time.Now().UTC().Before(scheduledStart(appointment)) {
		return nil, ErrSessionNotYetActive
	}

	if role == models.RoleClient {
		paid, err := s.ledgerRepo.HasSessionFee(ctx, appointmentID)
		if err != nil {
			return nil, err
		}
		if !paid {
			return nil, ErrPaymentRequired
		}
	}

	// A client only reaches this point with the fee settled; stamp the
	// channel so the send and read paths can rely on the flag alone.
	session, err := s.ensureSession(ctx, appointment.ClientID, appointment.ConsultantID, appointment.ID, role == models.RoleClient)
	if err != nil {
		return nil, err
	}
	return s.sessionView(session), nil
}

// EnsureSessionForAppointment opens the pair's channel when an appointment is
// accepted, so the conversation exists before either side enters it. The
// channel opens unpaid; only EnterSession clears the client's gate.
func (s *ChatService) EnsureSessionForAppointment(
	ctx context.Context,
	clientID, consultantID, appointmentID int64,
) error {
	_, err := s.ensureSession(ctx, clientID, consultantID, appointmentID, false)
	return err
}

// ensureSession resolves the channel for a pair under an advisory lock so two
// concurrent first entries converge on one row. An active session is reused
// with its appointment re-pointed. A completed session that was rated gives
// way to a fresh channel; an un-rated one is returned as-is, still locked,
// because the rating is what releases the next channel.
func (s *ChatService) ensureSession(
	ctx context.Context,
	clientID, consultantID int64,
	appointmentID int64,
	clientPaid bool,
) (*models.ChatSession, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1, $2)", clientID, consultantID); err != nil {
		return nil, err
	}

	txSessionRepo := repository.NewChatSessionRepository(tx)

	session, err := txSessionRepo.LatestForPair(ctx, clientID, consultantID)
	switch {
	case err != nil && !errors.Is(err, pgx.ErrNoRows):
		return nil, err
	case err == nil && session.Status == models.SessionActive:
		if appointmentID > 0 {
			if err := txSessionRepo.RepointAppointment(ctx, session.ID, appointmentID); err != nil {
				return nil, err
			}
			session.AppointmentID = &appointmentID
		}
	case err == nil && !session.RatingSubmitted:
		// completed but un-rated: no new channel yet
	default:
		var apptID *int64
		if appointmentID > 0 {
			apptID = &appointmentID
		}
		session, err = txSessionRepo.CreateOrReuseActive(ctx, clientID, consultantID, apptID)
		if err != nil {
			return nil, err
		}
	}

	if clientPaid && !session.ClientPaid {
		if err := txSessionRepo.MarkClientPaid(ctx, session.ID); err != nil {
			return nil, err
		}
		session.ClientPaid = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

type SendMessageInput struct {
	Kind     string
	Content  string
	FileURL  *string
	FileName *string
}

func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
	input SendMessageInput,
) (*ChatDelivery, error) {
	if role != models.RoleClient && role != models.RoleConsultant {
		return nil, ErrForbidden
	}
	if sessionID <= 0 {
		return nil, ErrInvalidInput
	}

	kind := strings.TrimSpace(input.Kind)
	if kind == "" {
		kind = models.MessageKindText
	}
	content := strings.TrimSpace(input.Content)
	switch kind {
	case models.MessageKindText:
		if content == "" {
			return nil, ErrInvalidInput
		}
	case models.MessageKindImage, models.MessageKindFile:
		if input.FileURL == nil || strings.TrimSpace(*input.FileURL) == "" {
			return nil, ErrInvalidInput
		}
	default:
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txSessionRepo := repository.NewChatSessionRepository(tx)

	// Row lock so a concurrent completion or sweep cannot slip a message
	// into an already-closed channel.
	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if err := checkParticipant(session, actorID, role); err != nil {
		return nil, err
	}
	// The channel row can exist before the client ever cleared the gate;
	// the accept path opens it unpaid.
	if role == models.RoleClient && !session.ClientPaid {
		return nil, ErrPaymentRequired
	}
	if sessionLocked(session, time.Now().UTC()) {
		return nil, ErrChannelLocked
	}

	message, err := txMessageRepo.Create(ctx, repository.CreateMessageInput{
		SessionID:  sessionID,
		SenderID:   actorID,
		SenderRole: role,
		Kind:       kind,
		Content:    content,
		FileURL:    input.FileURL,
		FileName:   input.FileName,
	})
	if err != nil {
		return nil, err
	}

	if err := txSessionRepo.TouchAfterMessage(ctx, sessionID, messagePreview(message), role); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	recipientID := session.ClientID
	if actorID == session.ClientID {
		recipientID = session.ConsultantID
	}

	s.notifier.Publish(ctx, notify.EventMessageCreated, map[string]any{
		"session_id":   sessionID,
		"message_id":   message.ID,
		"sender_id":    actorID,
		"recipient_id": recipientID,
		"kind":         kind,
	})

	return &ChatDelivery{
		Session:     session,
		Message:     message,
		RecipientID: recipientID,
	}, nil
}

func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
	page int,
	limit int,
) ([]models.ChatMessage, int, error) {
	if role != models.RoleClient && role != models.RoleConsultant {
		return nil, 0, ErrForbidden
	}
	if sessionID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	session, err := s.participantSession(ctx, actorID, role, sessionID)
	if err != nil {
		return nil, 0, err
	}
	if role == models.RoleClient && !session.ClientPaid {
		return nil, 0, ErrPaymentRequired
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txSessionRepo := repository.NewChatSessionRepository(tx)

	messages, total, err := txMessageRepo.ListBySession(ctx, sessionID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	// Reading the thread clears only the reader's flag.
	if err := txSessionRepo.MarkRead(ctx, sessionID, role); err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}

	return messages, int(total), nil
}

func (s *ChatService) MarkRead(ctx context.Context, actorID int64, role string, sessionID int64) error {
	if _, err := s.participantSession(ctx, actorID, role, sessionID); err != nil {
		return err
	}
	return s.sessionRepo.MarkRead(ctx, sessionID, role)
}

func (s *ChatService) ListSessions(
	ctx context.Context,
	actorID int64,
	role string,
) ([]models.ChatSessionView, error) {
	if role != models.RoleClient && role != models.RoleConsultant {
		return nil, ErrForbidden
	}

	sessions, err := s.sessionRepo.ListForParticipant(ctx, actorID)
	if err != nil {
		return nil, err
	}

	views := make([]models.ChatSessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, *s.sessionView(&sessions[i]))
	}
	return views, nil
}

func (s *ChatService) GetSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
) (*models.ChatSessionView, error) {
	session, err := s.participantSession(ctx, actorID, role, sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionView(session), nil
}

// Unsend tombstones the actor's own message. Repeat calls are no-ops; the
// attachment blob is removed best-effort.
func (s *ChatService) Unsend(
	ctx context.Context,
	actorID int64,
	sessionID int64,
	messageID int64,
) (*models.ChatMessage, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.SessionID != sessionID {
		return nil, ErrInvalidInput
	}
	if message.SenderID != actorID {
		return nil, ErrForbidden
	}
	if message.Unsent {
		return message, nil
	}

	fileURL := message.FileURL

	if _, err := s.messageRepo.MarkUnsent(ctx, messageID, actorID); err != nil {
		return nil, err
	}

	if fileURL != nil && s.storage != nil {
		if err := s.storage.DeleteFile(ctx, *fileURL); err != nil {
			s.logger.Warn("chat: delete unsent attachment", "message_id", messageID, "error", err)
		}
	}

	return s.messageRepo.GetByID(ctx, messageID)
}

// Complete lets the consultant close the channel early.
func (s *ChatService) Complete(
	ctx context.Context,
	consultantID int64,
	sessionID int64,
) (*models.ChatSessionView, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ConsultantID != consultantID {
		return nil, ErrForbidden
	}

	completed, err := s.sessionRepo.CompleteIfActive(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	return s.sessionView(completed), nil
}

func (s *ChatService) participantSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
) (*models.ChatSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if err := checkParticipant(session, actorID, role); err != nil {
		return nil, err
	}
	return session, nil
}

func checkParticipant(session *models.ChatSession, actorID int64, role string) error {
	switch role {
	case models.RoleClient:
		if session.ClientID != actorID {
			return ErrForbidden
		}
	case models.RoleConsultant:
		if session.ConsultantID != actorID {
			return ErrForbidden
		}
	default:
		return ErrForbidden
	}
	return nil
}

func (s *ChatService) sessionView(session *models.ChatSession) *models.ChatSessionView {
	now := time.Now().UTC()
	closed := sessionClosed(session, now)
	return &models.ChatSessionView{
		ChatSession:    *session,
		Locked:         sessionLocked(session, now),
		RatingRequired: closed && !session.RatingSubmitted,
	}
}

// sessionClosed reports whether the consultation itself is over, explicitly
// or by outliving the 12h lifetime.
func sessionClosed(session *models.ChatSession, now time.Time) bool {
	if session.Status == models.SessionCompleted {
		return true
	}
	return now.Sub(session.CreatedAt) >= sessionLifetime
}

// sessionLocked reports whether the channel refuses writes. A submitted
// rating locks even an otherwise open channel.
func sessionLocked(session *models.ChatSession, now time.Time) bool {
	return sessionClosed(session, now) || session.RatingSubmitted
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}

func messagePreview(message *models.ChatMessage) string {
	switch message.Kind {
	case models.MessageKindImage:
		return "[image]"
	case models.MessageKindFile:
		return "[file]"
	default:
		preview := message.Content
		if len(preview) > 120 {
			// Never cut a rune in half; the preview column rejects
			// invalid UTF-8.
			cut := 120
			for cut > 0 && !utf8.RuneStart(preview[cut]) {
				cut--
			}
			preview = preview[:cut]
		}
		return preview
	}
}
