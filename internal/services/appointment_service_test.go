package services

import (
	"errors"
	"testing"
	"time"

	"github.com/arman-d/ConsultLinkBack/internal/models"
)

func TestNormalizeDecision(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "accept", want: models.AppointmentAccepted},
		{in: "accepted", want: models.AppointmentAccepted},
		{in: " Accept ", want: models.AppointmentAccepted},
		{in: "decline", want: models.AppointmentDeclined},
		{in: "DECLINED", want: models.AppointmentDeclined},
		{in: "maybe", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := normalizeDecision(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("normalizeDecision(%q) err = %v, want ErrInvalidInput", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("normalizeDecision(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("normalizeDecision(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScheduledStart(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	appt := &models.Appointment{ScheduledDate: date, TimeOfDay: "14:30"}
	got := scheduledStart(appt)
	want := time.Date(2026, 9, 7, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("scheduledStart() = %v, want %v", got, want)
	}

	// Unparseable clock falls back to midnight.
	appt = &models.Appointment{ScheduledDate: date, TimeOfDay: "half past two"}
	got = scheduledStart(appt)
	if !got.Equal(date) {
		t.Errorf("scheduledStart() with bad clock = %v, want %v", got, date)
	}
}

func TestClassifyTimeframe(t *testing.T) {
	start := time.Date(2026, 9, 7, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{name: "before start", now: start.Add(-time.Minute), want: TimeframeUpcoming},
		{name: "at start", now: start, want: TimeframeOngoing},
		{name: "mid session", now: start.Add(30 * time.Minute), want: TimeframeOngoing},
		{name: "at end of hour", now: start.Add(appointmentDuration), want: TimeframePast},
		{name: "long after", now: start.Add(26 * time.Hour), want: TimeframePast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTimeframe(tt.now, start); got != tt.want {
				t.Errorf("classifyTimeframe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanAccessAppointment(t *testing.T) {
	appt := &models.Appointment{ClientID: 1, ConsultantID: 2}

	tests := []struct {
		name    string
		actorID int64
		role    string
		want    bool
	}{
		{name: "owning client", actorID: 1, role: models.RoleClient, want: true},
		{name: "other client", actorID: 3, role: models.RoleClient, want: false},
		{name: "owning consultant", actorID: 2, role: models.RoleConsultant, want: true},
		{name: "other consultant", actorID: 9, role: models.RoleConsultant, want: false},
		{name: "admin", actorID: 99, role: models.RoleAdmin, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canAccessAppointment(tt.role, tt.actorID, appt); got != tt.want {
				t.Errorf("canAccessAppointment() = %v, want %v", got, tt.want)
			}
		})
	}
}
