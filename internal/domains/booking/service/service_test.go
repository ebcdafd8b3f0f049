package service_test

import (
	"campus/config"
	"campus/infras/kafka"
	kafkaMocks "campus/infras/kafka/mocks"
	otelMocks "campus/infras/otel/mocks"
	s3Mocks "campus/infras/s3/mocks"
	bookingMocks "campus/internal/domains/booking/mocks"
	"campus/internal/domains/booking/model"
	"campus/internal/domains/booking/model/dto"
	"campus/internal/domains/booking/service"
	roomMocks "campus/internal/domains/room/mocks"
	roomModel "campus/internal/domains/room/model"
	"campus/internal/scheduling"
	cacheMocks "campus/shared/cache/mocks"
	"campus/shared/constant"
	gDto "campus/shared/dto"
	"campus/shared/failure"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	store *scheduling.MemoryStore
	repo  *bookingMocks.MockBooking
	rooms *roomMocks.MockRoom
	kafka *kafkaMocks.MockClient
	s3    *s3Mocks.MockS3
	svc   service.Booking
}

func newFixture(t *testing.T, seed ...scheduling.Booking) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	cache := cacheMocks.NewMockRedisCache(ctrl)
	cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("miss")).AnyTimes()
	cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	cfg := &config.Config{}
	cfg.Cache.TTL = 60
	cfg.Scheduling.OpeningTime = "07:00"
	cfg.Scheduling.ClosingTime = "17:00"
	cfg.Scheduling.EnforceExamHours = true
	cfg.Scheduling.ExportDirectory = "exports"
	cfg.Kafka.Topics.Bookings = "scheduling.bookings"

	f := fixture{
		store: scheduling.NewMemoryStore(seed...),
		repo:  bookingMocks.NewMockBooking(ctrl),
		rooms: roomMocks.NewMockRoom(ctrl),
		kafka: kafkaMocks.NewMockClient(ctrl),
		s3:    s3Mocks.NewMockS3(ctrl),
	}

	f.svc = service.NewWithStore(f.store, f.repo, f.rooms, cfg, cache, f.kafka, f.s3, otelMocks.NewOtel())

	return f
}

func (f fixture) unregisteredRooms() {
	f.rooms.EXPECT().Get(gomock.Any(), gomock.Any()).Return(roomModel.Room{}, nil).AnyTimes()
}

func (f fixture) ignoreEvents() {
	f.kafka.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func examSlot(id, room, staff, start, end string) scheduling.Booking {
	return scheduling.Booking{
		ID:        id,
		Kind:      scheduling.KindExamSlot,
		ScopeID:   "exam-1",
		Title:     "Mathematics",
		Date:      "2023-10-15",
		StartTime: start,
		EndTime:   end,
		Room:      room,
		StaffID:   staff,
		Capacity:  30,
		Version:   1,
	}
}

func timetableEvent(id, day, start, end string) scheduling.Booking {
	return scheduling.Booking{
		ID:        id,
		Kind:      scheduling.KindTimetableEvent,
		ScopeID:   "class-7a",
		ClassID:   "class-7a",
		Title:     "Biology",
		Day:       day,
		StartTime: start,
		EndTime:   end,
		Room:      "Lab 2",
		StaffID:   "teacher-1",
		Version:   1,
	}
}

func userContext() context.Context {
	return context.WithValue(context.Background(), constant.ContextKeyUserID, "admin-1")
}

func TestBookingService_Validate(t *testing.T) {
	t.Run("rejects a room clash with a stored slot", func(t *testing.T) {
		f := newFixture(t, examSlot("slot-1", "Hall A", "staff-1", "09:00", "10:30"))
		f.unregisteredRooms()

		_, err := f.svc.Validate(context.Background(), dto.ValidateRequest{
			ExamID:        "exam-1",
			Subject:       "Physics",
			Date:          "2023-10-15",
			StartTime:     "09:30",
			EndTime:       "10:00",
			Room:          "hall a",
			InvigilatorID: "staff-2",
			Capacity:      20,
		})

		rejection, ok := scheduling.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, scheduling.ReasonRoom, rejection.Reason())
		assert.Equal(t, "slot-1", rejection.BlockingID())
		assert.Len(t, f.store.Snapshot(), 1)
	})

	t.Run("checks a supplied list instead of the store", func(t *testing.T) {
		f := newFixture(t, examSlot("slot-1", "Hall A", "staff-1", "09:00", "10:30"))
		f.unregisteredRooms()

		_, err := f.svc.Validate(context.Background(), dto.ValidateRequest{
			ExamID:        "exam-1",
			Subject:       "Physics",
			Date:          "2023-10-15",
			StartTime:     "09:30",
			EndTime:       "10:00",
			Room:          "Hall B",
			InvigilatorID: "staff-9",
			Capacity:      20,
			Existing: []dto.ExistingBooking{
				{ID: "x-1", Date: "2023-10-15", StartTime: "09:45", EndTime: "11:00", Room: "Hall C", StaffID: "staff-9"},
			},
		})

		rejection, ok := scheduling.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, scheduling.ReasonStaff, rejection.Reason())
		assert.Equal(t, "x-1", rejection.BlockingID())
	})

	t.Run("an empty supplied list admits the candidate", func(t *testing.T) {
		f := newFixture(t, examSlot("slot-1", "Hall A", "staff-1", "09:00", "10:30"))
		f.unregisteredRooms()

		res, err := f.svc.Validate(context.Background(), dto.ValidateRequest{
			ExamID:        "exam-1",
			Subject:       "Physics",
			Date:          "2023-10-15",
			StartTime:     "09:00",
			EndTime:       "10:30",
			Room:          "Hall A",
			InvigilatorID: "staff-1",
			Capacity:      20,
			Existing:      []dto.ExistingBooking{},
		})

		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.Equal(t, "exam-1", res.Booking.ExamID)
		assert.Equal(t, "Physics", res.Booking.Title)
	})

	t.Run("skips the excluded booking", func(t *testing.T) {
		f := newFixture(t, timetableEvent("ev-1", "Monday", "09:00", "10:00"))

		res, err := f.svc.Validate(context.Background(), dto.ValidateRequest{
			ClassID:   "class-7a",
			ExcludeID: "ev-1",
			Title:     "Biology",
			Day:       "Monday",
			StartTime: "09:00",
			EndTime:   "10:00",
			Room:      "Lab 2",
			TeacherID: "teacher-1",
		})

		require.NoError(t, err)
		assert.True(t, res.OK)
	})

	t.Run("reports field rejections before conflicts", func(t *testing.T) {
		f := newFixture(t, timetableEvent("ev-1", "Monday", "09:00", "10:00"))

		_, err := f.svc.Validate(context.Background(), dto.ValidateRequest{
			ClassID:   "class-7a",
			Title:     "Biology",
			Day:       "Monday",
			StartTime: "10:00",
			EndTime:   "09:00",
			Room:      "Lab 2",
		})

		rejection, ok := scheduling.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, scheduling.ReasonTimeRange, rejection.Reason())
	})

	t.Run("refuses a malformed supplied booking", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Validate(context.Background(), dto.ValidateRequest{
			ClassID:   "class-7a",
			Title:     "Biology",
			Day:       "Monday",
			StartTime: "09:00",
			EndTime:   "10:00",
			Existing: []dto.ExistingBooking{
				{ID: "x-1", Day: "Monday", StartTime: "11:00", EndTime: "10:00"},
			},
		})

		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
	})
}

func TestBookingService_Create(t *testing.T) {
	t.Run("books the slot and publishes an event", func(t *testing.T) {
		f := newFixture(t)
		f.unregisteredRooms()

		published := make(chan kafka.Message, 1)
		f.kafka.EXPECT().SendMessages(gomock.Any(), "scheduling.bookings", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, msgs ...kafka.Message) error {
				published <- msgs[0]

				return nil
			})

		res, err := f.svc.Create(userContext(), examSlot("", "Hall A", "staff-1", "09:00", "10:30"))

		require.NoError(t, err)
		assert.NotEmpty(t, res.ID)
		assert.Equal(t, 1, res.Version)
		assert.Len(t, f.store.Snapshot(), 1)

		select {
		case msg := <-published:
			assert.Equal(t, res.ID, msg.Key)

			event, ok := msg.Value.(dto.BookingEvent)
			require.True(t, ok)
			assert.Equal(t, dto.EventBookingCreated, event.Type)
			assert.Equal(t, "admin-1", event.ActorID)
		case <-time.After(time.Second):
			t.Fatal("booking event was not published")
		}
	})

	t.Run("refuses more candidates than the room seats", func(t *testing.T) {
		f := newFixture(t)
		f.rooms.EXPECT().Get(gomock.Any(), gomock.Any()).Return(roomModel.Room{ID: "room-1", Name: "Hall A", Capacity: 20, Active: true}, nil)

		_, err := f.svc.Create(userContext(), examSlot("", "Hall A", "staff-1", "09:00", "10:30"))

		rejection, ok := scheduling.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, scheduling.ReasonCapacity, rejection.Reason())
		assert.Empty(t, f.store.Snapshot())
	})

	t.Run("fails when the room registry is unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.rooms.EXPECT().Get(gomock.Any(), gomock.Any()).Return(roomModel.Room{}, errors.New("connection reset"))

		_, err := f.svc.Create(userContext(), examSlot("", "Hall A", "staff-1", "09:00", "10:30"))

		require.Error(t, err)

		_, ok := scheduling.AsRejection(err)
		assert.False(t, ok)
		assert.Equal(t, http.StatusInternalServerError, failure.GetCode(err))
	})

	t.Run("refuses a staff double booking", func(t *testing.T) {
		f := newFixture(t, timetableEvent("ev-1", "Monday", "09:00", "10:00"))

		candidate := timetableEvent("", "Monday", "09:30", "10:30")
		candidate.Room = "Lab 3"
		candidate.ScopeID, candidate.ClassID = "class-8b", "class-8b"

		_, err := f.svc.Create(userContext(), candidate)

		rejection, ok := scheduling.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, scheduling.ReasonStaff, rejection.Reason())
		assert.Len(t, f.store.Snapshot(), 1)
	})
}

func TestBookingService_Update(t *testing.T) {
	later := "11:00"
	laterEnd := "12:00"

	t.Run("moves the booking and bumps its version", func(t *testing.T) {
		f := newFixture(t, timetableEvent("ev-1", "Monday", "09:00", "10:00"))
		f.ignoreEvents()

		res, err := f.svc.Update(userContext(), dto.ClassScope("class-7a"), "ev-1",
			scheduling.Patch{StartTime: &later, EndTime: &laterEnd}, 1)

		require.NoError(t, err)
		assert.Equal(t, "11:00", res.StartTime)
		assert.Equal(t, 2, res.Version)
	})

	t.Run("refuses a stale version", func(t *testing.T) {
		f := newFixture(t, timetableEvent("ev-1", "Monday", "09:00", "10:00"))

		_, err := f.svc.Update(userContext(), dto.ClassScope("class-7a"), "ev-1",
			scheduling.Patch{StartTime: &later, EndTime: &laterEnd}, 4)

		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, failure.GetCode(err))
		assert.Equal(t, "09:00", f.store.Snapshot()[0].StartTime)
	})

	t.Run("hides bookings of another scope", func(t *testing.T) {
		f := newFixture(t, timetableEvent("ev-1", "Monday", "09:00", "10:00"))

		_, err := f.svc.Update(userContext(), dto.ClassScope("class-8b"), "ev-1",
			scheduling.Patch{StartTime: &later, EndTime: &laterEnd}, 0)

		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})

	t.Run("rejects an empty patch", func(t *testing.T) {
		f := newFixture(t, timetableEvent("ev-1", "Monday", "09:00", "10:00"))

		_, err := f.svc.Update(userContext(), dto.ClassScope("class-7a"), "ev-1", scheduling.Patch{}, 0)

		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
	})

	t.Run("reports a missing booking", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Update(userContext(), dto.ClassScope("class-7a"), "ev-404",
			scheduling.Patch{StartTime: &later}, 0)

		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})
}

func TestBookingService_Delete(t *testing.T) {
	t.Run("cancels the booking", func(t *testing.T) {
		f := newFixture(t, examSlot("slot-1", "Hall A", "staff-1", "09:00", "10:30"))
		f.ignoreEvents()

		err := f.svc.Delete(userContext(), dto.ExamScope("exam-1"), "slot-1")

		require.NoError(t, err)
		assert.Empty(t, f.store.Snapshot())
	})

	t.Run("keeps bookings of another exam", func(t *testing.T) {
		f := newFixture(t, examSlot("slot-1", "Hall A", "staff-1", "09:00", "10:30"))

		err := f.svc.Delete(userContext(), dto.ExamScope("exam-2"), "slot-1")

		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
		assert.Len(t, f.store.Snapshot(), 1)
	})
}

func TestBookingService_Get(t *testing.T) {
	row := model.FromScheduling(examSlot("slot-1", "Hall A", "staff-1", "09:00", "10:30"))

	t.Run("returns a booking of the scope", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(row, nil)

		res, err := f.svc.Get(context.Background(), dto.ExamScope("exam-1"), "slot-1")

		require.NoError(t, err)
		assert.Equal(t, "slot-1", res.ID)
		assert.Equal(t, "exam_slot", res.Kind)
	})

	t.Run("hides a booking of another scope", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(row, nil)

		_, err := f.svc.Get(context.Background(), dto.ExamScope("exam-2"), "slot-1")

		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})

	t.Run("reports a missing booking", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Booking{}, nil)

		_, err := f.svc.Get(context.Background(), dto.ExamScope("exam-1"), "slot-404")

		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})
}

func TestBookingService_GetAll(t *testing.T) {
	f := newFixture(t)

	rows := []model.Booking{
		model.FromScheduling(timetableEvent("ev-1", "Monday", "09:00", "10:00")),
		model.FromScheduling(timetableEvent("ev-2", "Tuesday", "09:00", "10:00")),
	}

	params := gDto.QueryParams{Page: 1, Limit: 10}
	filter := gDto.FilterGroup{Filters: []any{gDto.Filter{Field: model.FieldDay, Operator: gDto.FilterOperatorEq, Value: "Monday"}}}

	assertScoped := func(group gDto.FilterGroup) {
		require.Len(t, group.Filters, 3)
		assert.Equal(t, gDto.FilterGroupOperatorAnd, group.Operator)
		assert.Equal(t, "timetable_event", group.Filters[0].(gDto.Filter).Value)
		assert.Equal(t, "class-7a", group.Filters[1].(gDto.Filter).Value)
	}

	f.repo.EXPECT().Count(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, group gDto.FilterGroup) (int, error) {
		assertScoped(group)

		return 2, nil
	})
	f.repo.EXPECT().GetAll(gomock.Any(), params, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ gDto.QueryParams, group gDto.FilterGroup, _ ...string) ([]model.Booking, error) {
			assertScoped(group)

			return rows, nil
		})

	res, err := f.svc.GetAll(context.Background(), dto.ClassScope("class-7a"), params, filter)

	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalData)
	assert.Equal(t, 1, res.TotalPage)
	require.Len(t, res.Bookings, 2)
	assert.Equal(t, "class-7a", res.Bookings[0].ClassID)
}

func TestBookingService_Export(t *testing.T) {
	f := newFixture(t,
		timetableEvent("ev-3", "Wednesday", "08:00", "09:00"),
		timetableEvent("ev-2", "Monday", "13:00", "14:00"),
		timetableEvent("ev-1", "Monday", "09:00", "10:00"),
		examSlot("slot-1", "Hall A", "staff-1", "09:00", "10:30"),
	)

	var uploaded []byte

	f.s3.EXPECT().UploadFileBytes(gomock.Any(), "exports/timetable_event", gomock.Any(), constant.ContentTypeCSV, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, fileName, _ string, data []byte) (string, error) {
			assert.True(t, strings.HasPrefix(fileName, "class-7a-"))
			assert.True(t, strings.HasSuffix(fileName, ".csv"))

			uploaded = data

			return "https://cdn.example.com/exports/timetable_event/" + fileName, nil
		})

	res, err := f.svc.Export(context.Background(), dto.ClassScope("class-7a"))

	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Contains(t, res.URL, res.FileName)

	records, err := csv.NewReader(strings.NewReader(string(uploaded))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, []string{"ev-1", "ev-2", "ev-3"}, []string{records[1][0], records[2][0], records[3][0]})
	assert.Empty(t, records[1][8])
}
