package scheduling

import (
	"fmt"
	"strings"
)

// FindConflict returns the first booking in existing that blocks candidate, or nil.
//
// Only bookings of the same kind on the same date or weekday are considered, and the one
// whose ID equals excludeID is skipped so an edit never collides with its previous version.
// For each overlapping booking a room match wins over a staff match, which wins over a
// class match. Scanning stops at the first blocking booking in list order.
func FindConflict(candidate Booking, existing []Booking, excludeID string) *Conflict {
	for _, booking := range existing {
		if excludeID != "" && booking.ID == excludeID {
			continue
		}

		if booking.Kind != candidate.Kind || booking.Date != candidate.Date || booking.Day != candidate.Day {
			continue
		}

		if !Overlaps(candidate.StartTime, candidate.EndTime, booking.StartTime, booking.EndTime) {
			continue
		}

		if conflict := classify(candidate, booking); conflict != nil {
			return conflict
		}
	}

	return nil
}

func classify(candidate, existing Booking) *Conflict {
	window := existing.StartTime + "-" + existing.EndTime

	switch {
	case sameRoom(candidate.Room, existing.Room):
		return &Conflict{
			Kind:          ReasonRoom,
			Message:       fmt.Sprintf("%s is already booked %s", RoomLabel(existing.Room), window),
			ConflictingID: existing.ID,
			Resource:      existing.Room,
			StartTime:     existing.StartTime,
			EndTime:       existing.EndTime,
		}
	case sameID(candidate.StaffID, existing.StaffID):
		return &Conflict{
			Kind:          ReasonStaff,
			Message:       fmt.Sprintf("%s %s is already assigned %s", staffLabel(existing.Kind), existing.StaffID, window),
			ConflictingID: existing.ID,
			Resource:      existing.StaffID,
			StartTime:     existing.StartTime,
			EndTime:       existing.EndTime,
		}
	case candidate.Kind == KindTimetableEvent && sameID(candidate.ClassID, existing.ClassID):
		return &Conflict{
			Kind:          ReasonClass,
			Message:       fmt.Sprintf("Class %s already has %s %s", existing.ClassID, existing.Title, window),
			ConflictingID: existing.ID,
			Resource:      existing.ClassID,
			StartTime:     existing.StartTime,
			EndTime:       existing.EndTime,
		}
	}

	return nil
}

func sameRoom(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)

	return a != "" && b != "" && strings.EqualFold(a, b)
}

// RoomLabel prefixes name with "Room" unless it already starts with that word.
func RoomLabel(name string) string {
	name = strings.TrimSpace(name)

	if len(name) >= 4 && strings.EqualFold(name[:4], "room") && (len(name) == 4 || name[4] == ' ') {
		return name
	}

	return "Room " + name
}

func sameID(a, b string) bool {
	return a != "" && a == b
}

func staffLabel(kind Kind) string {
	if kind == KindExamSlot {
		return "Invigilator"
	}

	return "Teacher"
}
