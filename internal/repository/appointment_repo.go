package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arman-d/ConsultLinkBack/internal/models"
)

const appointmentColumns = `id, client_id, consultant_id, scheduled_date, time_of_day, notes, status, created_at, updated_at`

type CreateAppointmentInput struct {
	ClientID      int64
	ConsultantID  int64
	ScheduledDate time.Time
	TimeOfDay     string
	Notes         *string
}

type AppointmentListFilter struct {
	ActorID int64
	Role    string
	Status  string
}

type AppointmentRepository struct {
	db DBTX
}

func NewAppointmentRepository(db DBTX) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) scanRow(row interface{ Scan(dest ...any) error }) (*models.Appointment, error) {
	var appointment models.Appointment
	err := row.Scan(
		&appointment.ID,
		&appointment.ClientID,
		&appointment.ConsultantID,
		&appointment.ScheduledDate,
		&appointment.TimeOfDay,
		&appointment.Notes,
		&appointment.Status,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *AppointmentRepository) Create(ctx context.Context, input CreateAppointmentInput) (*models.Appointment, error) {
	query := fmt.Sprintf(`
		INSERT INTO appointments (client_id, consultant_id, scheduled_date, time_of_day, notes, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING %s
	`, appointmentColumns)
	return r.scanRow(r.db.QueryRow(
		ctx,
		query,
		input.ClientID,
		input.ConsultantID,
		input.ScheduledDate,
		input.TimeOfDay,
		input.Notes,
	))
}

func (r *AppointmentRepository) GetByID(ctx context.Context, appointmentID int64) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, appointmentColumns)
	return r.scanRow(r.db.QueryRow(ctx, query, appointmentID))
}

func (r *AppointmentRepository) GetByIDForUpdate(ctx context.Context, appointmentID int64) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1 FOR UPDATE`, appointmentColumns)
	return r.scanRow(r.db.QueryRow(ctx, query, appointmentID))
}

func (r *AppointmentRepository) List(ctx context.Context, filter AppointmentListFilter) ([]models.Appointment, error) {
	actorColumn := "client_id"
	if filter.Role == models.RoleConsultant {
		actorColumn = "consultant_id"
	}

	args := []any{filter.ActorID}
	whereParts := []string{fmt.Sprintf("%s = $1", actorColumn)}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM appointments
		WHERE %s
		ORDER BY scheduled_date DESC, time_of_day DESC, id DESC
	`, appointmentColumns, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appointments := make([]models.Appointment, 0)
	for rows.Next() {
		appointment, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, *appointment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return appointments, nil
}

func (r *AppointmentRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	appointmentID int64,
	currentStatus string,
	nextStatus string,
) (*models.Appointment, error) {
	query := fmt.Sprintf(`
		UPDATE appointments
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, appointmentColumns)
	return r.scanRow(r.db.QueryRow(ctx, query, appointmentID, currentStatus, nextStatus))
}
