package scheduling

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("booking not found")
	ErrStaleVersion = errors.New("booking was modified by someone else")
)

// Store persists bookings. Writes made through the Store handed to an Atomically callback
// are serialized with every other Atomically call sharing the same key.
type Store interface {
	List(ctx context.Context, filter Filter) ([]Booking, error)
	Get(ctx context.Context, id string) (Booking, error)
	Insert(ctx context.Context, booking Booking) (Booking, error)
	Update(ctx context.Context, id string, booking Booking) (Booking, error)
	Delete(ctx context.Context, id string) error
	Atomically(ctx context.Context, key string, fn func(ctx context.Context, tx Store) error) error
}
