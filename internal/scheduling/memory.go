package scheduling

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps bookings in a slice. The zero value is not usable, call NewMemoryStore.
type MemoryStore struct {
	mu       sync.Mutex
	bookings []Booking
}

// NewMemoryStore returns a store seeded with a copy of bookings.
func NewMemoryStore(bookings ...Booking) *MemoryStore {
	return &MemoryStore{bookings: slices.Clone(bookings)}
}

func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return memoryView{s}.List(ctx, filter)
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return memoryView{s}.Get(ctx, id)
}

func (s *MemoryStore) Insert(ctx context.Context, booking Booking) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return memoryView{s}.Insert(ctx, booking)
}

func (s *MemoryStore) Update(ctx context.Context, id string, booking Booking) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return memoryView{s}.Update(ctx, id, booking)
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return memoryView{s}.Delete(ctx, id)
}

// Atomically holds the store lock for the whole callback, whatever the key. The callback
// must use tx, calling back into s would deadlock.
func (s *MemoryStore) Atomically(ctx context.Context, _ string, fn func(ctx context.Context, tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return fn(ctx, memoryView{s})
}

// Snapshot returns a copy of every booking in insertion order.
func (s *MemoryStore) Snapshot() []Booking {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.bookings)
}

// memoryView operates on the slice without locking; callers hold s.mu.
type memoryView struct {
	s *MemoryStore
}

func (v memoryView) List(_ context.Context, filter Filter) ([]Booking, error) {
	result := make([]Booking, 0, len(v.s.bookings))
	for _, b := range v.s.bookings {
		if filter.Matches(b) {
			result = append(result, b)
		}
	}

	return result, nil
}

func (v memoryView) Get(_ context.Context, id string) (Booking, error) {
	i := v.index(id)
	if i < 0 {
		return Booking{}, ErrNotFound
	}

	return v.s.bookings[i], nil
}

func (v memoryView) Insert(_ context.Context, booking Booking) (Booking, error) {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}

	booking.Version = 1
	v.s.bookings = append(v.s.bookings, booking)

	return booking, nil
}

func (v memoryView) Update(_ context.Context, id string, booking Booking) (Booking, error) {
	i := v.index(id)
	if i < 0 {
		return Booking{}, ErrNotFound
	}

	if v.s.bookings[i].Version != booking.Version {
		return Booking{}, ErrStaleVersion
	}

	booking.ID = id
	booking.Version++
	v.s.bookings[i] = booking

	return booking, nil
}

func (v memoryView) Delete(_ context.Context, id string) error {
	i := v.index(id)
	if i < 0 {
		return ErrNotFound
	}

	v.s.bookings = slices.Delete(v.s.bookings, i, i+1)

	return nil
}

func (v memoryView) Atomically(ctx context.Context, _ string, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, v)
}

func (v memoryView) index(id string) int {
	return slices.IndexFunc(v.s.bookings, func(b Booking) bool { return b.ID == id })
}
