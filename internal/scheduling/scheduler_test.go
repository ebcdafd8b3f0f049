package scheduling_test

import (
	"campus/internal/scheduling"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_TimetableScenario(t *testing.T) {
	ctx := t.Context()
	store := scheduling.NewMemoryStore(timetableEvent("ev-1", "Physics", "Room 101", "5A", "Monday", "08:00", "09:00"))
	scheduler := scheduling.NewScheduler(store, scheduling.DefaultPolicy())

	_, err := scheduler.Book(ctx, timetableEvent("", "English", "Room 101", "5A", "Monday", "08:30", "09:30"))

	var conflict *scheduling.Conflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, scheduling.ReasonRoom, conflict.Kind)
	assert.Contains(t, conflict.Message, "Room 101")
	assert.Equal(t, "ev-1", conflict.ConflictingID)
	assert.Len(t, store.Snapshot(), 1)

	booked, err := scheduler.Book(ctx, timetableEvent("", "English", "Room 102", "5A", "Monday", "09:00", "10:00"))

	require.NoError(t, err)
	assert.NotEmpty(t, booked.ID)
	assert.Equal(t, 1, booked.Version)
	assert.Len(t, store.Snapshot(), 2)
}

func TestScheduler_RejectionLeavesStoreUntouched(t *testing.T) {
	ctx := t.Context()
	seed := []scheduling.Booking{
		examSlot("slot-1", "Hall A", "t-1", "2023-10-15", "09:00", "10:30"),
		examSlot("slot-2", "Hall B", "t-2", "2023-10-15", "11:00", "12:00"),
	}
	store := scheduling.NewMemoryStore(seed...)
	scheduler := scheduling.NewScheduler(store, scheduling.DefaultPolicy())

	candidates := []scheduling.Booking{
		examSlot("", "hall a", "t-9", "2023-10-15", "09:30", "10:00"),
		examSlot("", "Hall C", "t-2", "2023-10-15", "11:30", "12:30"),
		examSlot("", "Hall C", "t-3", "2023-10-15", "12:00", "12:00"),
		examSlot("", "", "t-3", "2023-10-15", "12:00", "13:00"),
	}

	for _, candidate := range candidates {
		_, err := scheduler.Book(ctx, candidate)

		_, ok := scheduling.AsRejection(err)
		assert.True(t, ok, "expected a rejection for %+v", candidate)
		assert.Equal(t, seed, store.Snapshot())
	}

	_, err := scheduler.Reschedule(ctx, "slot-2", scheduling.Patch{Room: ptr("Hall A"), StartTime: ptr("10:00")}, 0)

	var conflict *scheduling.Conflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "slot-1", conflict.ConflictingID)
	assert.Equal(t, seed, store.Snapshot())
}

func TestScheduler_Reschedule(t *testing.T) {
	ctx := t.Context()

	t.Run("same fields do not conflict with the booking itself", func(t *testing.T) {
		store := scheduling.NewMemoryStore(examSlot("slot-1", "Hall A", "t-1", "2023-10-15", "09:00", "10:30"))
		scheduler := scheduling.NewScheduler(store, scheduling.DefaultPolicy())
		current, err := store.Get(ctx, "slot-1")
		require.NoError(t, err)

		updated, err := scheduler.Reschedule(ctx, "slot-1", scheduling.Patch{Title: ptr("Mathematics")}, current.Version)

		require.NoError(t, err)
		assert.Equal(t, current.Version+1, updated.Version)
		assert.Equal(t, "slot-1", updated.ID)
	})

	t.Run("move to a free window", func(t *testing.T) {
		store := scheduling.NewMemoryStore(
			examSlot("slot-1", "Hall A", "t-1", "2023-10-15", "09:00", "10:30"),
			examSlot("slot-2", "Hall A", "t-2", "2023-10-15", "11:00", "12:00"),
		)
		scheduler := scheduling.NewScheduler(store, scheduling.DefaultPolicy())

		updated, err := scheduler.Reschedule(ctx, "slot-2", scheduling.Patch{StartTime: ptr("10:30"), EndTime: ptr("11:30")}, 0)

		require.NoError(t, err)
		assert.Equal(t, "10:30", updated.StartTime)
		assert.Equal(t, "11:30", updated.EndTime)
	})

	t.Run("stale version", func(t *testing.T) {
		store := scheduling.NewMemoryStore(examSlot("slot-1", "Hall A", "t-1", "2023-10-15", "09:00", "10:30"))
		scheduler := scheduling.NewScheduler(store, scheduling.DefaultPolicy())

		_, err := scheduler.Reschedule(ctx, "slot-1", scheduling.Patch{Room: ptr("Hall B")}, 7)

		assert.ErrorIs(t, err, scheduling.ErrStaleVersion)
	})

	t.Run("unknown booking", func(t *testing.T) {
		scheduler := scheduling.NewScheduler(scheduling.NewMemoryStore(), scheduling.DefaultPolicy())

		_, err := scheduler.Reschedule(ctx, "missing", scheduling.Patch{}, 0)

		assert.ErrorIs(t, err, scheduling.ErrNotFound)
	})
}

func TestScheduler_Cancel(t *testing.T) {
	ctx := t.Context()
	store := scheduling.NewMemoryStore(examSlot("slot-1", "Hall A", "t-1", "2023-10-15", "09:00", "10:30"))
	scheduler := scheduling.NewScheduler(store, scheduling.DefaultPolicy())

	require.NoError(t, scheduler.Cancel(ctx, "slot-1"))
	assert.Empty(t, store.Snapshot())
	assert.ErrorIs(t, scheduler.Cancel(ctx, "slot-1"), scheduling.ErrNotFound)

	_, err := scheduler.Book(ctx, examSlot("", "Hall A", "t-1", "2023-10-15", "09:00", "10:30"))
	assert.NoError(t, err)
}

func TestScheduler_Guards(t *testing.T) {
	ctx := t.Context()
	store := scheduling.NewMemoryStore()
	seats := func(_ context.Context, candidate scheduling.Booking) error {
		if candidate.Capacity > 40 {
			return scheduling.CapacityError(candidate.Room, candidate.Capacity, 40)
		}
		return nil
	}
	scheduler := scheduling.NewScheduler(store, scheduling.DefaultPolicy(), seats)

	candidate := examSlot("", "Hall A", "t-1", "2023-10-15", "09:00", "10:30")
	candidate.Capacity = 41

	_, err := scheduler.Book(ctx, candidate)

	rejection, ok := scheduling.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, scheduling.ReasonCapacity, rejection.Reason())
	assert.Equal(t, "Hall A seats 40, capacity 41 requested", rejection.Error())

	t.Run("guard failures are not rejections", func(t *testing.T) {
		broken := scheduling.NewScheduler(store, scheduling.DefaultPolicy(), func(context.Context, scheduling.Booking) error {
			return errors.New("room registry unavailable")
		})

		err := broken.Check(ctx, examSlot("", "Hall A", "t-1", "2023-10-15", "09:00", "10:30"), "")

		_, ok := scheduling.AsRejection(err)
		assert.Error(t, err)
		assert.False(t, ok)
	})
}

func TestScheduler_ConcurrentBookingsOfOneRoom(t *testing.T) {
	ctx := t.Context()
	store := scheduling.NewMemoryStore()
	scheduler := scheduling.NewScheduler(store, scheduling.DefaultPolicy())

	const attempts = 16

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)

	for i := range attempts {
		wg.Add(1)

		go func() {
			defer wg.Done()

			staff := string(rune('a' + i))
			if _, err := scheduler.Book(ctx, examSlot("", "Hall A", staff, "2023-10-15", "09:00", "10:00")); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Len(t, store.Snapshot(), 1)
}

func TestScheduler_WithStore(t *testing.T) {
	ctx := t.Context()
	scheduler := scheduling.NewScheduler(scheduling.NewMemoryStore(), scheduling.Policy{OpeningTime: "08:00", ClosingTime: "16:00"})
	dryRun := scheduler.WithStore(scheduling.NewMemoryStore(examSlot("slot-1", "Hall A", "t-1", "2023-10-15", "09:00", "10:30")))

	err := dryRun.Check(ctx, examSlot("", "Hall A", "t-2", "2023-10-15", "10:00", "11:00"), "")

	var conflict *scheduling.Conflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "slot-1", conflict.ConflictingID)
	assert.Equal(t, scheduler.Policy(), dryRun.Policy())
	assert.NoError(t, scheduler.Check(ctx, examSlot("", "Hall A", "t-2", "2023-10-15", "10:00", "11:00"), ""))
}

func ptr[T any](v T) *T {
	return &v
}
