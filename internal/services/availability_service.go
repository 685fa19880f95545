package services

import (
	"context"
	"strings"
	"time"

	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/repository"
)

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
	time.Sunday:    "sunday",
}

// SlotCheck is the matcher verdict. Reason is set only when Valid is false.
type SlotCheck struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// CheckSlot decides whether a candidate date and "HH:MM" time falls inside the
// consultant's weekly windows. A window with no ranges at all accepts any time
// on that weekday; range endpoints are inclusive.
func CheckSlot(windows []models.AvailabilityWindow, date time.Time, timeOfDay string) SlotCheck {
	weekday := weekdayNames[date.Weekday()]

	candidate, err := parseClock(timeOfDay)
	if err != nil {
		return SlotCheck{Valid: false, Reason: "invalid time format, expected HH:MM"}
	}

	var window *models.AvailabilityWindow
	for i := range windows {
		if strings.EqualFold(strings.TrimSpace(windows[i].Weekday), weekday) {
			window = &windows[i]
			break
		}
	}
	if window == nil {
		return SlotCheck{Valid: false, Reason: "not available on " + weekday}
	}

	hasMorning := window.MorningStart != nil && window.MorningEnd != nil
	hasAfternoon := window.AfternoonStart != nil && window.AfternoonEnd != nil
	if !hasMorning && !hasAfternoon {
		return SlotCheck{Valid: true}
	}

	if hasMorning && inRange(candidate, *window.MorningStart, *window.MorningEnd) {
		return SlotCheck{Valid: true}
	}
	if hasAfternoon && inRange(candidate, *window.AfternoonStart, *window.AfternoonEnd) {
		return SlotCheck{Valid: true}
	}

	return SlotCheck{Valid: false, Reason: "outside available hours"}
}

func parseClock(value string) (time.Time, error) {
	return time.Parse("15:04", strings.TrimSpace(value))
}

func inRange(candidate time.Time, start, end string) bool {
	from, err := parseClock(start)
	if err != nil {
		return false
	}
	to, err := parseClock(end)
	if err != nil {
		return false
	}
	return !candidate.Before(from) && !candidate.After(to)
}

type AvailabilityService struct {
	availabilityRepo *repository.AvailabilityRepository
}

func NewAvailabilityService(availabilityRepo *repository.AvailabilityRepository) *AvailabilityService {
	return &AvailabilityService{availabilityRepo: availabilityRepo}
}

func (s *AvailabilityService) SetWindow(
	ctx context.Context,
	consultantID int64,
	input repository.UpsertAvailabilityInput,
) (*models.AvailabilityWindow, error) {
	weekday := strings.ToLower(strings.TrimSpace(input.Weekday))
	if !validWeekday(weekday) {
		return nil, ErrInvalidInput
	}
	input.Weekday = weekday

	ranges := [][2]*string{
		{input.MorningStart, input.MorningEnd},
		{input.AfternoonStart, input.AfternoonEnd},
	}
	for _, pair := range ranges {
		start, end := pair[0], pair[1]
		if (start == nil) != (end == nil) {
			return nil, ErrInvalidInput
		}
		if start == nil {
			continue
		}
		from, err := parseClock(*start)
		if err != nil {
			return nil, ErrInvalidInput
		}
		to, err := parseClock(*end)
		if err != nil {
			return nil, ErrInvalidInput
		}
		if to.Before(from) {
			return nil, ErrInvalidInput
		}
	}

	return s.availabilityRepo.Upsert(ctx, consultantID, input)
}

func (s *AvailabilityService) ListWindows(
	ctx context.Context,
	consultantID int64,
) ([]models.AvailabilityWindow, error) {
	return s.availabilityRepo.ListByConsultant(ctx, consultantID)
}

func (s *AvailabilityService) RemoveWindow(ctx context.Context, consultantID int64, weekday string) error {
	weekday = strings.ToLower(strings.TrimSpace(weekday))
	if !validWeekday(weekday) {
		return ErrInvalidInput
	}
	return s.availabilityRepo.Delete(ctx, consultantID, weekday)
}

func validWeekday(weekday string) bool {
	switch weekday {
	case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		return true
	default:
		return false
	}
}
