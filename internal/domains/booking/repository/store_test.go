package repository_test

import (
	"campus/internal/domains/booking/mocks"
	"campus/internal/domains/booking/model"
	"campus/internal/domains/booking/repository"
	"campus/internal/scheduling"
	"campus/shared/constant"
	gDto "campus/shared/dto"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func slot(id string, version int) scheduling.Booking {
	return scheduling.Booking{
		ID:        id,
		Kind:      scheduling.KindExamSlot,
		ScopeID:   "exam-1",
		Title:     "Mathematics",
		Date:      "2024-06-10",
		StartTime: "09:00",
		EndTime:   "10:30",
		Room:      "Hall A",
		StaffID:   "staff-1",
		Capacity:  30,
		Version:   version,
	}
}

// lockPassthrough makes WithLock invoke its callback on a placeholder transaction.
func lockPassthrough(repo *mocks.MockBooking) *gomock.Call {
	return repo.EXPECT().WithLock(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, fn func(context.Context, *sqlx.Tx) error) error {
			return fn(ctx, &sqlx.Tx{})
		})
}

func filterValues(group gDto.FilterGroup) map[string]any {
	values := map[string]any{}

	for _, f := range group.Filters {
		filter := f.(gDto.Filter)

		name := filter.ArgName
		if name == "" {
			name = filter.Field
		}

		values[name] = filter.Value
	}

	return values
}

func TestListFilter(t *testing.T) {
	group := repository.ListFilter(scheduling.Filter{Kind: scheduling.KindTimetableEvent, ScopeID: "class-7", Day: "Monday"})

	assert.Equal(t, map[string]any{
		model.FieldKind:    "timetable_event",
		model.FieldScopeID: "class-7",
		model.FieldDay:     "Monday",
	}, filterValues(group))

	assert.Empty(t, repository.ListFilter(scheduling.Filter{}).Filters)
}

func TestStore_List(t *testing.T) {
	repo := mocks.NewMockBooking(gomock.NewController(t))
	store := repository.NewStore(repo)

	repo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params gDto.QueryParams, group gDto.FilterGroup, _ ...string) ([]model.Booking, error) {
			assert.Equal(t, model.FieldStartTime, params.SortBy)
			assert.Equal(t, "2024-06-10", filterValues(group)[model.FieldDate])

			return []model.Booking{model.FromScheduling(slot("b1", 2))}, nil
		})

	bookings, err := store.List(context.Background(), scheduling.SlotFilter(slot("", 0)))

	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, scheduling.KindExamSlot, bookings[0].Kind)
	assert.Equal(t, 2, bookings[0].Version)
}

func TestStore_Get(t *testing.T) {
	repo := mocks.NewMockBooking(gomock.NewController(t))
	store := repository.NewStore(repo)

	repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Booking{}, nil)

	_, err := store.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, scheduling.ErrNotFound)
}

func TestStore_Insert(t *testing.T) {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "staff-9")

	t.Run("assigns identity and first version", func(t *testing.T) {
		repo := mocks.NewMockBooking(gomock.NewController(t))
		store := repository.NewStore(repo)

		repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, row model.Booking) error {
			assert.NotEmpty(t, row.ID)
			assert.Equal(t, 1, row.Version)
			assert.Equal(t, "exam_slot", row.Kind)
			assert.Equal(t, "staff-9", row.CreatedBy)
			assert.False(t, row.CreatedAt.IsZero())

			return nil
		})

		booked, err := store.Insert(ctx, slot("", 0))

		require.NoError(t, err)
		assert.NotEmpty(t, booked.ID)
		assert.Equal(t, 1, booked.Version)
	})

	tests := []struct {
		constraint string
		reason     scheduling.Reason
	}{
		{constraint: model.ConstraintRoomSlot, reason: scheduling.ReasonRoom},
		{constraint: model.ConstraintStaffSlot, reason: scheduling.ReasonStaff},
		{constraint: model.ConstraintClassSlot, reason: scheduling.ReasonClass},
	}

	for _, tt := range tests {
		t.Run("unique violation on "+tt.constraint, func(t *testing.T) {
			repo := mocks.NewMockBooking(gomock.NewController(t))
			store := repository.NewStore(repo)

			violation := &pq.Error{Code: constant.PqErrorCodeUniqueViolation, Constraint: tt.constraint}
			repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(fmt.Errorf("failed to insert data (booking): %w", violation))

			_, err := store.Insert(ctx, slot("", 0))

			rejection, ok := scheduling.AsRejection(err)
			require.True(t, ok)
			assert.Equal(t, tt.reason, rejection.Reason())
		})
	}

	t.Run("other database errors are wrapped", func(t *testing.T) {
		repo := mocks.NewMockBooking(gomock.NewController(t))
		store := repository.NewStore(repo)

		cause := errors.New("connection refused")
		repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(cause)

		_, err := store.Insert(ctx, slot("", 0))

		assert.ErrorIs(t, err, cause)

		_, ok := scheduling.AsRejection(err)
		assert.False(t, ok)
	})
}

func TestStore_Update(t *testing.T) {
	t.Run("bumps the version under the expected version predicate", func(t *testing.T) {
		repo := mocks.NewMockBooking(gomock.NewController(t))
		store := repository.NewStore(repo)

		lockPassthrough(repo)
		repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, group gDto.FilterGroup) (int64, error) {
				assert.Equal(t, 4, fields[model.FieldVersion])
				assert.Equal(t, "11:00", fields[model.FieldStartTime])
				assert.Equal(t, 3, filterValues(group)["expected_version"])
				assert.Equal(t, "b1", filterValues(group)[model.FieldID])

				return 1, nil
			})

		moved := slot("b1", 3)
		moved.StartTime, moved.EndTime = "11:00", "12:00"

		updated, err := store.Update(context.Background(), "b1", moved)

		require.NoError(t, err)
		assert.Equal(t, 4, updated.Version)
		assert.Equal(t, "11:00", updated.StartTime)
	})

	t.Run("stale version", func(t *testing.T) {
		repo := mocks.NewMockBooking(gomock.NewController(t))
		store := repository.NewStore(repo)

		lockPassthrough(repo)
		repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), nil)
		repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(model.FromScheduling(slot("b1", 5)), nil)

		_, err := store.Update(context.Background(), "b1", slot("b1", 3))

		assert.ErrorIs(t, err, scheduling.ErrStaleVersion)
	})

	t.Run("deleted meanwhile", func(t *testing.T) {
		repo := mocks.NewMockBooking(gomock.NewController(t))
		store := repository.NewStore(repo)

		lockPassthrough(repo)
		repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), nil)
		repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(model.Booking{}, nil)

		_, err := store.Update(context.Background(), "b1", slot("b1", 3))

		assert.ErrorIs(t, err, scheduling.ErrNotFound)
	})
}

func TestStore_Delete(t *testing.T) {
	t.Run("missing booking", func(t *testing.T) {
		repo := mocks.NewMockBooking(gomock.NewController(t))

		repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Booking{}, nil)

		err := repository.NewStore(repo).Delete(context.Background(), "gone")

		assert.ErrorIs(t, err, scheduling.ErrNotFound)
	})

	t.Run("existing booking", func(t *testing.T) {
		repo := mocks.NewMockBooking(gomock.NewController(t))

		repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.FromScheduling(slot("b1", 1)), nil)
		repo.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil)

		require.NoError(t, repository.NewStore(repo).Delete(context.Background(), "b1"))
	})
}

func TestStore_AtomicallyReusesTransaction(t *testing.T) {
	repo := mocks.NewMockBooking(gomock.NewController(t))
	store := repository.NewStore(repo)

	lockPassthrough(repo).Times(1)
	repo.EXPECT().GetAllTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	repo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	scheduler := scheduling.NewScheduler(store, scheduling.DefaultPolicy())

	booked, err := scheduler.Book(context.Background(), slot("", 0))

	require.NoError(t, err)
	assert.Equal(t, 1, booked.Version)
}
