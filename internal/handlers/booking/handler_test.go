package booking_test

import (
	otelMocks "campus/infras/otel/mocks"
	"campus/internal/domains/booking/mocks"
	"campus/internal/domains/booking/model/dto"
	"campus/internal/handlers/booking"
	"campus/internal/scheduling"
	gDto "campus/shared/dto"
	"campus/shared/failure"
	"campus/transport/http/response"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newServer(t *testing.T) (*mocks.MockService, http.Handler) {
	t.Helper()

	svc := mocks.NewMockService(gomock.NewController(t))
	handler := booking.New(svc, otelMocks.NewOtel())

	router := chi.NewRouter()
	handler.Router(router)

	return svc, router
}

func do(t *testing.T, server http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	return rec
}

func decodeRejection(t *testing.T, rec *httptest.ResponseRecorder) response.Rejection {
	t.Helper()

	var body response.Rejection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func TestHandler_Validate(t *testing.T) {
	body := `{"exam_id":"exam-1","subject":"Physics","date":"2023-10-15","start_time":"09:30","end_time":"10:00","room":"hall a","invigilator_id":"staff-2","capacity":20}`

	t.Run("admissible candidate", func(t *testing.T) {
		svc, server := newServer(t)

		svc.EXPECT().Validate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req dto.ValidateRequest) (dto.ValidateResponse, error) {
			assert.Equal(t, "exam-1", req.ExamID)
			assert.Nil(t, req.Existing)

			res := dto.ValidateResponse{OK: true}
			res.Booking.FromBooking(req.ToCandidate())

			return res, nil
		})

		rec := do(t, server, http.MethodPost, "/scheduling/validate", body)

		require.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			OK      bool                `json:"ok"`
			Booking dto.BookingResponse `json:"booking"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.True(t, got.OK)
		assert.Equal(t, "exam-1", got.Booking.ExamID)
		assert.Equal(t, "hall a", got.Booking.Room)
	})

	t.Run("room conflict", func(t *testing.T) {
		svc, server := newServer(t)

		svc.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(dto.ValidateResponse{}, &scheduling.Conflict{
			Kind:          scheduling.ReasonRoom,
			Message:       "Room Hall A is already booked 09:00-10:30",
			ConflictingID: "slot-1",
		})

		rec := do(t, server, http.MethodPost, "/scheduling/validate", body)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, response.Rejection{
			Kind:          "room",
			Message:       "Room Hall A is already booked 09:00-10:30",
			ConflictingID: "slot-1",
		}, decodeRejection(t, rec))
	})

	t.Run("field rejections are conflicts here too", func(t *testing.T) {
		svc, server := newServer(t)

		svc.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(dto.ValidateResponse{}, &scheduling.ValidationError{
			Kind:    scheduling.ReasonField,
			Rule:    scheduling.RuleRequired,
			Field:   "room",
			Message: "room is required",
		})

		rec := do(t, server, http.MethodPost, "/scheduling/validate", `{"exam_id":"exam-1"}`)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "field", decodeRejection(t, rec).Kind)
	})

	t.Run("needs exactly one scope", func(t *testing.T) {
		_, server := newServer(t)

		rec := do(t, server, http.MethodPost, "/scheduling/validate", `{"exam_id":"exam-1","class_id":"class-7a"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_CreateExamSlot(t *testing.T) {
	body := `{"subject":"Mathematics","date":"2023-10-15","start_time":"09:00","end_time":"10:30","room":"Hall A","invigilator_id":"staff-1","capacity":30}`

	t.Run("books the slot under the exam", func(t *testing.T) {
		svc, server := newServer(t)

		svc.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, candidate scheduling.Booking) (dto.BookingResponse, error) {
			assert.Equal(t, scheduling.KindExamSlot, candidate.Kind)
			assert.Equal(t, "exam-1", candidate.ScopeID)
			assert.Equal(t, "staff-1", candidate.StaffID)

			candidate.ID = "slot-1"
			candidate.Version = 1

			var res dto.BookingResponse
			res.FromBooking(candidate)

			return res, nil
		})

		rec := do(t, server, http.MethodPost, "/exams/exam-1/slots", body)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"id":"slot-1"`)
	})

	t.Run("double booking answers 409", func(t *testing.T) {
		svc, server := newServer(t)

		svc.EXPECT().Create(gomock.Any(), gomock.Any()).Return(dto.BookingResponse{}, &scheduling.Conflict{
			Kind:          scheduling.ReasonStaff,
			Message:       "Invigilator staff-1 is already assigned 09:00-10:30",
			ConflictingID: "slot-0",
		})

		rec := do(t, server, http.MethodPost, "/exams/exam-1/slots", body)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "staff", decodeRejection(t, rec).Kind)
	})

	t.Run("outside business hours answers 400", func(t *testing.T) {
		svc, server := newServer(t)

		svc.EXPECT().Create(gomock.Any(), gomock.Any()).Return(dto.BookingResponse{}, &scheduling.ValidationError{
			Kind:    scheduling.ReasonTimeRange,
			Rule:    scheduling.RuleBusinessHours,
			Field:   "end_time",
			Message: "end time must be at or before 17:00",
		})

		rec := do(t, server, http.MethodPost, "/exams/exam-1/slots", body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "time_range", decodeRejection(t, rec).Kind)
	})

	t.Run("malformed clock never reaches the service", func(t *testing.T) {
		_, server := newServer(t)

		rec := do(t, server, http.MethodPost, "/exams/exam-1/slots", strings.Replace(body, `"09:00"`, `"9am"`, 1))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_GetTimetableEvents(t *testing.T) {
	svc, server := newServer(t)

	svc.EXPECT().GetAll(gomock.Any(), dto.ClassScope("class-7a"), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ dto.Scope, params gDto.QueryParams, filter gDto.FilterGroup) (dto.GetBookingsResponse, error) {
			assert.Equal(t, "start_time", params.SortBy)
			assert.Equal(t, gDto.SortDirAsc, params.SortDir)
			require.Len(t, filter.Filters, 2)
			assert.Equal(t, "Monday", filter.Filters[0].(gDto.Filter).Value)
			assert.Equal(t, gDto.FilterOperatorEqFold, filter.Filters[1].(gDto.Filter).Operator)

			return dto.GetBookingsResponse{TotalData: 0, Bookings: []dto.BookingResponse{}}, nil
		})

	rec := do(t, server, http.MethodGet, "/classes/class-7a/timetable?day=Monday&room=lab%202&sort_by=password", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_UpdateTimetableEvent(t *testing.T) {
	t.Run("passes the patch and version", func(t *testing.T) {
		svc, server := newServer(t)

		svc.EXPECT().Update(gomock.Any(), dto.ClassScope("class-7a"), "ev-1", gomock.Any(), 3).DoAndReturn(
			func(_ context.Context, _ dto.Scope, _ string, patch scheduling.Patch, _ int) (dto.BookingResponse, error) {
				require.NotNil(t, patch.Day)
				assert.Equal(t, "Tuesday", *patch.Day)
				assert.Nil(t, patch.Room)

				return dto.BookingResponse{ID: "ev-1", Version: 4}, nil
			})

		rec := do(t, server, http.MethodPatch, "/classes/class-7a/timetable/ev-1", `{"day":"Tuesday","version":3}`)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("stale version", func(t *testing.T) {
		svc, server := newServer(t)

		svc.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(dto.BookingResponse{}, failure.Conflict("booking was modified by someone else"))

		rec := do(t, server, http.MethodPatch, "/classes/class-7a/timetable/ev-1", `{"day":"Tuesday","version":1}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"booking was modified by someone else"}`, rec.Body.String())
	})

	t.Run("unknown weekday", func(t *testing.T) {
		_, server := newServer(t)

		rec := do(t, server, http.MethodPatch, "/classes/class-7a/timetable/ev-1", `{"day":"Funday"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_DeleteExamSlot(t *testing.T) {
	svc, server := newServer(t)

	svc.EXPECT().Delete(gomock.Any(), dto.ExamScope("exam-1"), "slot-1").Return(nil)
	svc.EXPECT().Delete(gomock.Any(), dto.ExamScope("exam-1"), "slot-2").Return(failure.NotFound("booking not found"))

	assert.Equal(t, http.StatusOK, do(t, server, http.MethodDelete, "/exams/exam-1/slots/slot-1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, server, http.MethodDelete, "/exams/exam-1/slots/slot-2", "").Code)
}

func TestHandler_ExportExamSlots(t *testing.T) {
	svc, server := newServer(t)

	svc.EXPECT().Export(gomock.Any(), dto.ExamScope("exam-1")).
		Return(dto.ExportResponse{URL: "https://cdn.example.com/exports/exam_slot/exam-1.csv", FileName: "exam-1.csv", Total: 2}, nil)

	rec := do(t, server, http.MethodPost, "/exams/exam-1/slots/export", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":2`)
}
