package models

import "time"

const (
	AppointmentPending   = "pending"
	AppointmentAccepted  = "accepted"
	AppointmentDeclined  = "declined"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

type Appointment struct {
	ID            int64     `json:"id"`
	ClientID      int64     `json:"client_id"`
	ConsultantID  int64     `json:"consultant_id"`
	ScheduledDate time.Time `json:"scheduled_date"`
	TimeOfDay     string    `json:"time_of_day"`
	Notes         *string   `json:"notes"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AppointmentView annotates an appointment with its display timeframe
// (upcoming/ongoing/past). The timeframe is derived from the scheduled start
// and a fixed one-hour assumed duration, recomputed on every read.
type AppointmentView struct {
	Appointment
	Timeframe string `json:"timeframe"`
}

type AvailabilityWindow struct {
	ID             int64     `json:"id"`
	ConsultantID   int64     `json:"consultant_id"`
	Weekday        string    `json:"weekday"`
	MorningStart   *string   `json:"morning_start"`
	MorningEnd     *string   `json:"morning_end"`
	AfternoonStart *string   `json:"afternoon_start"`
	AfternoonEnd   *string   `json:"afternoon_end"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
