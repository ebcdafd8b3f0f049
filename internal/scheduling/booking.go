// Package scheduling decides whether an exam slot or a timetable event can be booked.
//
// A candidate booking goes through Validate, then any extra Rule registered on the
// Scheduler, then FindConflict against the bookings already stored for the same date or
// weekday. Only a candidate that passes every step reaches the Store. Rejections are
// returned as values implementing Rejection; the store is never touched on failure.
//
// Clock times are zero-padded 24h "HH:MM" strings and are compared lexicographically.
package scheduling

import (
	"slices"
	"strings"
)

// Kind tells exam slots and timetable events apart.
type Kind int

const (
	KindExamSlot Kind = iota + 1
	KindTimetableEvent
)

const (
	kindExamSlot       = "exam_slot"
	kindTimetableEvent = "timetable_event"
)

func (k Kind) String() string {
	switch k {
	case KindExamSlot:
		return kindExamSlot
	case KindTimetableEvent:
		return kindTimetableEvent
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String. It returns 0 for unknown values.
func ParseKind(value string) Kind {
	switch value {
	case kindExamSlot:
		return KindExamSlot
	case kindTimetableEvent:
		return KindTimetableEvent
	default:
		return 0
	}
}

// Weekdays lists the accepted timetable days in calendar order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WeekdayIndex returns the position of day in Weekdays, or -1.
func WeekdayIndex(day string) int {
	return slices.Index(Weekdays, day)
}

// Booking is an exam slot (Date set) or a timetable event (Day set).
type Booking struct {
	ID        string
	Kind      Kind
	ScopeID   string
	Title     string
	Date      string
	Day       string
	StartTime string
	EndTime   string
	Room      string
	StaffID   string
	ClassID   string
	Capacity  int
	Version   int
}

// Slot returns the date of an exam slot or the weekday of a timetable event.
func (b Booking) Slot() string {
	if b.Date != "" {
		return b.Date
	}

	return b.Day
}

// LockKey identifies the unit a store must serialize writes on.
func (b Booking) LockKey() string {
	return b.Kind.String() + ":" + b.Slot()
}

// Patch carries the fields changed by a reschedule. Nil fields are left untouched.
type Patch struct {
	Title     *string
	Date      *string
	Day       *string
	StartTime *string
	EndTime   *string
	Room      *string
	StaffID   *string
	Capacity  *int
}

// Apply returns a copy of b with the patch merged in.
func (p Patch) Apply(b Booking) Booking {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}

	set(&b.Title, p.Title)
	set(&b.Date, p.Date)
	set(&b.Day, p.Day)
	set(&b.StartTime, p.StartTime)
	set(&b.EndTime, p.EndTime)
	set(&b.Room, p.Room)
	set(&b.StaffID, p.StaffID)

	if p.Capacity != nil {
		b.Capacity = *p.Capacity
	}

	return b
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == (Patch{})
}

// Filter narrows Store.List. Zero fields match everything.
type Filter struct {
	Kind    Kind
	ScopeID string
	Date    string
	Day     string
}

// Matches reports whether b satisfies the filter.
func (f Filter) Matches(b Booking) bool {
	switch {
	case f.Kind != 0 && b.Kind != f.Kind:
		return false
	case f.ScopeID != "" && b.ScopeID != f.ScopeID:
		return false
	case f.Date != "" && b.Date != f.Date:
		return false
	case f.Day != "" && b.Day != f.Day:
		return false
	}

	return true
}

// SlotFilter returns the filter selecting every booking that can collide with b.
func SlotFilter(b Booking) Filter {
	return Filter{Kind: b.Kind, Date: b.Date, Day: b.Day}
}
