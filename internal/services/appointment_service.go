package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/notify"
	"github.com/arman-d/ConsultLinkBack/internal/repository"
	"github.com/jackc/pgx/v5"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrConsultantNotFound     = errors.New("consultant not found")
	ErrInvalidSlot            = errors.New("invalid slot")
)

const (
	TimeframeUpcoming = "upcoming"
	TimeframeOngoing  = "ongoing"
	TimeframePast     = "past"

	// appointmentDuration is the assumed slot length used for the derived
	// upcoming/ongoing/past classification. Never persisted.
	appointmentDuration = time.Hour
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type sessionEnsurer interface {
	EnsureSessionForAppointment(ctx context.Context, clientID, consultantID, appointmentID int64) error
}

type AppointmentService struct {
	appointmentRepo  *repository.AppointmentRepository
	availabilityRepo *repository.AvailabilityRepository
	userRepo         userReader
	sessions         sessionEnsurer
	notifier         notify.Notifier
}

func NewAppointmentService(
	appointmentRepo *repository.AppointmentRepository,
	availabilityRepo *repository.AvailabilityRepository,
	userRepo userReader,
	sessions sessionEnsurer,
	notifier notify.Notifier,
) *AppointmentService {
	return &AppointmentService{
		appointmentRepo:  appointmentRepo,
		availabilityRepo: availabilityRepo,
		userRepo:         userRepo,
		sessions:         sessions,
		notifier:         notifier,
	}
}

type RequestAppointmentInput struct {
	ConsultantID  int64
	ScheduledDate time.Time
	TimeOfDay     string
	Notes         *string
}

func (s *AppointmentService) Request(
	ctx context.Context,
	clientID int64,
	input RequestAppointmentInput,
) (*models.AppointmentView, error) {
	if input.ConsultantID <= 0 || strings.TrimSpace(input.TimeOfDay) == "" {
		return nil, ErrInvalidInput
	}
	if clientID == input.ConsultantID {
		return nil, ErrInvalidInput
	}

	consultant, err := s.userRepo.GetByID(ctx, input.ConsultantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConsultantNotFound
		}
		return nil, err
	}
	if consultant.Role != models.RoleConsultant {
		return nil, ErrConsultantNotFound
	}

	windows, err := s.availabilityRepo.ListByConsultant(ctx, input.ConsultantID)
	if err != nil {
		return nil, err
	}
	if check := CheckSlot(windows, input.ScheduledDate, input.TimeOfDay); !check.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSlot, check.Reason)
	}

	appointment, err := s.appointmentRepo.Create(ctx, repository.CreateAppointmentInput{
		ClientID:      clientID,
		ConsultantID:  input.ConsultantID,
		ScheduledDate: input.ScheduledDate,
		TimeOfDay:     strings.TrimSpace(input.TimeOfDay),
		Notes:         input.Notes,
	})
	if err != nil {
		return nil, err
	}

	return s.withTimeframe(appointment), nil
}

func (s *AppointmentService) Respond(
	ctx context.Context,
	consultantID int64,
	appointmentID int64,
	decision string,
) (*models.AppointmentView, error) {
	nextStatus, err := normalizeDecision(decision)
	if err != nil {
		return nil, err
	}

	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.ConsultantID != consultantID {
		return nil, ErrForbidden
	}
	if appointment.Status != models.AppointmentPending {
		return nil, ErrInvalidStateTransition
	}

	updated, err := s.appointmentRepo.UpdateStatusIfCurrent(
		ctx, appointmentID, models.AppointmentPending, nextStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	// Acceptance opens (or re-points) the chat channel for the pair so the
	// client lands in the right conversation at session time.
	if nextStatus == models.AppointmentAccepted {
		if err := s.sessions.EnsureSessionForAppointment(
			ctx, updated.ClientID, updated.ConsultantID, updated.ID); err != nil {
			return nil, err
		}
	}

	s.notifier.Publish(ctx, notify.EventAppointmentStatusChanged, map[string]any{
		"appointment_id": updated.ID,
		"client_id":      updated.ClientID,
		"consultant_id":  updated.ConsultantID,
		"status":         updated.Status,
	})

	return s.withTimeframe(updated), nil
}

func (s *AppointmentService) Cancel(
	ctx context.Context,
	clientID int64,
	appointmentID int64,
) (*models.AppointmentView, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.ClientID != clientID {
		return nil, ErrForbidden
	}
	if appointment.Status != models.AppointmentPending && appointment.Status != models.AppointmentAccepted {
		return nil, ErrInvalidStateTransition
	}
	if !time.Now().UTC().Before(scheduledStart(appointment)) {
		return nil, ErrInvalidStateTransition
	}

	updated, err := s.appointmentRepo.UpdateStatusIfCurrent(
		ctx, appointmentID, appointment.Status, models.AppointmentCancelled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	s.notifier.Publish(ctx, notify.EventAppointmentStatusChanged, map[string]any{
		"appointment_id": updated.ID,
		"client_id":      updated.ClientID,
		"consultant_id":  updated.ConsultantID,
		"status":         updated.Status,
	})

	return s.withTimeframe(updated), nil
}

func (s *AppointmentService) List(
	ctx context.Context,
	actorID int64,
	role string,
	filter repository.AppointmentListFilter,
) ([]models.AppointmentView, error) {
	if role != models.RoleClient && role != models.RoleConsultant {
		return nil, ErrForbidden
	}

	appointments, err := s.appointmentRepo.List(ctx, repository.AppointmentListFilter{
		ActorID: actorID,
		Role:    role,
		Status:  filter.Status,
	})
	if err != nil {
		return nil, err
	}

	views := make([]models.AppointmentView, 0, len(appointments))
	for i := range appointments {
		views = append(views, *s.withTimeframe(&appointments[i]))
	}
	return views, nil
}

func (s *AppointmentService) Get(
	ctx context.Context,
	actorID int64,
	role string,
	appointmentID int64,
) (*models.AppointmentView, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !canAccessAppointment(role, actorID, appointment) {
		return nil, ErrForbidden
	}
	return s.withTimeframe(appointment), nil
}

func (s *AppointmentService) withTimeframe(appointment *models.Appointment) *models.AppointmentView {
	return &models.AppointmentView{
		Appointment: *appointment,
		Timeframe:   classifyTimeframe(time.Now().UTC(), scheduledStart(appointment)),
	}
}

func canAccessAppointment(role string, actorID int64, appointment *models.Appointment) bool {
	if role == models.RoleClient {
		return appointment.ClientID == actorID
	}
	if role == models.RoleConsultant {
		return appointment.ConsultantID == actorID
	}
	return role == models.RoleAdmin
}

func normalizeDecision(decision string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case "accept", "accepted":
		return models.AppointmentAccepted, nil
	case "decline", "declined":
		return models.AppointmentDeclined, nil
	default:
		return "", ErrInvalidInput
	}
}

// scheduledStart combines the stored calendar date with the "HH:MM" slot. An
// unparseable slot falls back to midnight, which only makes the appointment
// appear earlier, never blocks it.
func scheduledStart(appointment *models.Appointment) time.Time {
	date := appointment.ScheduledDate
	clock, err := time.Parse("15:04", appointment.TimeOfDay)
	if err != nil {
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), 0, 0, time.UTC)
}

func classifyTimeframe(now, start time.Time) string {
	switch {
	case now.Before(start):
		return TimeframeUpcoming
	case now.Before(start.Add(appointmentDuration)):
		return TimeframeOngoing
	default:
		return TimeframePast
	}
}
