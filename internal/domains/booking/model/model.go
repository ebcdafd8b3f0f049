package model

import (
	"campus/internal/scheduling"
	"campus/shared/model"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID        = "id"
	FieldKind      = "kind"
	FieldScopeID   = "scope_id"
	FieldTitle     = "title"
	FieldDate      = "date"
	FieldDay       = "day"
	FieldStartTime = "start_time"
	FieldEndTime   = "end_time"
	FieldRoom      = "room"
	FieldStaffID   = "staff_id"
	FieldClassID   = "class_id"
	FieldCapacity  = "capacity"
	FieldVersion   = "version"
)

// Unique indexes backing the conflict scan. A violation means a concurrent writer won the slot.
const (
	ConstraintRoomSlot  = "bookings_room_slot_key"
	ConstraintStaffSlot = "bookings_staff_slot_key"
	ConstraintClassSlot = "bookings_class_slot_key"
)

// Booking is one row of the bookings table. Date is empty for timetable events and Day is
// empty for exam slots.
type Booking struct {
	ID        string `db:"id"`
	Kind      string `db:"kind"`
	ScopeID   string `db:"scope_id"`
	Title     string `db:"title"`
	Date      string `db:"date"`
	Day       string `db:"day"`
	StartTime string `db:"start_time"`
	EndTime   string `db:"end_time"`
	Room      string `db:"room"`
	StaffID   string `db:"staff_id"`
	ClassID   string `db:"class_id"`
	Capacity  int    `db:"capacity"`
	Version   int    `db:"version"`
	model.Metadata
}

func FromScheduling(b scheduling.Booking) Booking {
	return Booking{
		ID:        b.ID,
		Kind:      b.Kind.String(),
		ScopeID:   b.ScopeID,
		Title:     b.Title,
		Date:      b.Date,
		Day:       b.Day,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Room:      b.Room,
		StaffID:   b.StaffID,
		ClassID:   b.ClassID,
		Capacity:  b.Capacity,
		Version:   b.Version,
	}
}

func (b Booking) ToScheduling() scheduling.Booking {
	return scheduling.Booking{
		ID:        b.ID,
		Kind:      scheduling.ParseKind(b.Kind),
		ScopeID:   b.ScopeID,
		Title:     b.Title,
		Date:      b.Date,
		Day:       b.Day,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Room:      b.Room,
		StaffID:   b.StaffID,
		ClassID:   b.ClassID,
		Capacity:  b.Capacity,
		Version:   b.Version,
	}
}
