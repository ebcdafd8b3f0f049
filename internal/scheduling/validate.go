package scheduling

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"

	DefaultOpeningTime = "07:00"
	DefaultClosingTime = "17:00"
)

// Policy holds the configurable parts of validation.
type Policy struct {
	OpeningTime string
	ClosingTime string
	// EnforceExamHours applies the opening hours to exam slots as well. Timetable events
	// are always bound by them.
	EnforceExamHours bool
}

// DefaultPolicy enforces 07:00-17:00 on every booking kind.
func DefaultPolicy() Policy {
	return Policy{
		OpeningTime:      DefaultOpeningTime,
		ClosingTime:      DefaultClosingTime,
		EnforceExamHours: true,
	}
}

func (p Policy) withDefaults() Policy {
	if p.OpeningTime == "" {
		p.OpeningTime = DefaultOpeningTime
	}

	if p.ClosingTime == "" {
		p.ClosingTime = DefaultClosingTime
	}

	return p
}

// Check reports an opening or closing time that is not "HH:MM", or hours that do not leave
// an open window. Empty values fall back to the defaults.
func (p Policy) Check() error {
	p = p.withDefaults()

	if !IsClock(p.OpeningTime) {
		return fmt.Errorf("opening time %q must be formatted as HH:MM", p.OpeningTime)
	}

	if !IsClock(p.ClosingTime) {
		return fmt.Errorf("closing time %q must be formatted as HH:MM", p.ClosingTime)
	}

	if p.OpeningTime >= p.ClosingTime {
		return fmt.Errorf("opening time %s must be before closing time %s", p.OpeningTime, p.ClosingTime)
	}

	return nil
}

func (p Policy) boundsHours(kind Kind) bool {
	return kind == KindTimetableEvent || (kind == KindExamSlot && p.EnforceExamHours)
}

// IsClock reports whether value is a zero-padded 24h "HH:MM" time.
func IsClock(value string) bool {
	if len(value) != len(clockLayout) {
		return false
	}

	_, err := time.Parse(clockLayout, value)

	return err == nil
}

// IsDate reports whether value is a "YYYY-MM-DD" calendar date.
func IsDate(value string) bool {
	if len(value) != len(dateLayout) {
		return false
	}

	_, err := time.Parse(dateLayout, value)

	return err == nil
}

// Validate checks candidate before any conflict scan. The first failing rule wins:
// required fields, then start before end, then opening hours, then capacity.
func Validate(candidate Booking, policy Policy) *ValidationError {
	policy = policy.withDefaults()

	if err := validateRequired(candidate); err != nil {
		return err
	}

	if candidate.StartTime >= candidate.EndTime {
		return timeRangeError(RuleTimeOrder, "end_time", "end time must be after start time")
	}

	if policy.boundsHours(candidate.Kind) {
		if candidate.StartTime < policy.OpeningTime {
			return timeRangeError(RuleBusinessHours, "start_time", "start time must be at or after "+policy.OpeningTime)
		}

		if candidate.EndTime > policy.ClosingTime {
			return timeRangeError(RuleBusinessHours, "end_time", "end time must be at or before "+policy.ClosingTime)
		}
	}

	if candidate.Kind == KindExamSlot && candidate.Capacity <= 0 {
		return fieldError(RuleCapacity, "capacity", "capacity must be a positive number")
	}

	return nil
}

func validateRequired(candidate Booking) *ValidationError {
	if candidate.Kind != KindExamSlot && candidate.Kind != KindTimetableEvent {
		return fieldError(RuleRequired, "kind", "booking kind must be exam_slot or timetable_event")
	}

	required := []struct {
		field string
		value string
	}{
		{titleField(candidate.Kind), candidate.Title},
		{"start_time", candidate.StartTime},
		{"end_time", candidate.EndTime},
	}

	if candidate.Kind == KindExamSlot {
		required = append(required,
			struct{ field, value string }{"date", candidate.Date},
			struct{ field, value string }{"room", candidate.Room},
			struct{ field, value string }{"invigilator_id", candidate.StaffID},
		)
	} else {
		required = append(required,
			struct{ field, value string }{"day", candidate.Day},
			struct{ field, value string }{"class_id", candidate.ClassID},
		)
	}

	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fieldError(RuleRequired, r.field, r.field+" is required")
		}
	}

	if candidate.Date != "" && candidate.Day != "" {
		return fieldError(RuleDateOrDay, "date", "a booking has either a date or a day, not both")
	}

	if candidate.Kind == KindExamSlot && !IsDate(candidate.Date) {
		return fieldError(RuleDateOrDay, "date", fmt.Sprintf("date %q must be formatted as YYYY-MM-DD", candidate.Date))
	}

	if candidate.Kind == KindTimetableEvent && WeekdayIndex(candidate.Day) < 0 {
		return fieldError(RuleDateOrDay, "day", fmt.Sprintf("day %q must be one of %s", candidate.Day, strings.Join(Weekdays, ", ")))
	}

	for _, r := range required[1:3] {
		if !IsClock(r.value) {
			return fieldError(RuleTimeFormat, r.field, fmt.Sprintf("%s %q must be formatted as HH:MM", r.field, r.value))
		}
	}

	return nil
}

func titleField(kind Kind) string {
	if kind == KindExamSlot {
		return "subject"
	}

	return "title"
}
