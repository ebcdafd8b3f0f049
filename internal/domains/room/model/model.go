package model

import "campus/shared/model"

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID       = "id"
	FieldName     = "name"
	FieldBuilding = "building"
	FieldCapacity = "capacity"
	FieldActive   = "active"
)

// Room is a bookable space. Bookings reference rooms by name, so names are unique
// regardless of case.
type Room struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Building string `db:"building"`
	Capacity int    `db:"capacity"`
	Active   bool   `db:"active"`
	model.Metadata
}
