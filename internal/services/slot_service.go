package services

import (
	"context"
	"strings"
	"time"

	"github.com/saeid-a/CounselBack/internal/models"
)

const (
	slotDateLayout  = "2006-01-02"
	slotClockLayout = "15:04"
	slotLayout      = "2006-01-02T15:04:05"
	slotWindowDays  = 7
)

var slotTimes = []string{"10:00", "14:00", "16:00"}

// GenerateSlots lists the offered slots for the seven calendar days after
// today, weekdays only, three per day.
func GenerateSlots(today time.Time) []string {
	year, month, day := today.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)

	slots := make([]string, 0, slotWindowDays*len(slotTimes))
	for i := 1; i <= slotWindowDays; i++ {
		date := start.AddDate(0, 0, i)
		if weekday := date.Weekday(); weekday == time.Saturday || weekday == time.Sunday {
			continue
		}
		dateStr := date.Format(slotDateLayout)
		for _, clock := range slotTimes {
			slots = append(slots, dateStr+"T"+clock+":00")
		}
	}
	return slots
}

// AvailableSlots removes booked slots from offered ones, keeping the offered
// order.
func AvailableSlots(offered []string, booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, slot := range booked {
		taken[slot] = struct{}{}
	}

	available := make([]string, 0, len(offered))
	for _, slot := range offered {
		if _, ok := taken[slot]; ok {
			continue
		}
		available = append(available, slot)
	}
	return available
}

// normalizeSlot returns slot in canonical form. time.Parse accepts a
// single-digit hour, so "…T9:00:00" and "…T09:00:00" must collapse to one key.
func normalizeSlot(slot string) (string, bool) {
	parsed, err := time.Parse(slotLayout, strings.TrimSpace(slot))
	if err != nil {
		return "", false
	}
	return parsed.Format(slotLayout), true
}

type counselorSlotStore interface {
	ListByRole(ctx context.Context, role string, specialization string) ([]models.User, error)
	ReplaceSlots(ctx context.Context, id int64, slots []string) error
}

type SlotService struct {
	users counselorSlotStore
	now   func() time.Time
}

func NewSlotService(users counselorSlotStore) *SlotService {
	return &SlotService{
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// RefreshAll overwrites every counselor's offered slots with a freshly
// generated window. Existing bookings are left alone; they are subtracted
// when availability is read.
func (s *SlotService) RefreshAll(ctx context.Context, requester Requester) (int, error) {
	if requester.Role != models.RoleAdmin {
		return 0, ErrForbidden
	}

	counselors, err := s.users.ListByRole(ctx, models.RoleCounselor, "")
	if err != nil {
		return 0, err
	}

	slots := GenerateSlots(s.now())
	for _, counselor := range counselors {
		if err := s.users.ReplaceSlots(ctx, counselor.ID, slots); err != nil {
			return 0, err
		}
	}
	return len(counselors), nil
}
