package dto_test

import (
	"campus/internal/domains/booking/model/dto"
	"campus/internal/scheduling"
	"campus/shared/validator"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest_ToCandidate(t *testing.T) {
	t.Run("exam slot", func(t *testing.T) {
		req := dto.ValidateRequest{
			ExamID:        "exam-1",
			ExcludeID:     "slot-9",
			Subject:       " Physics ",
			Date:          "2023-10-15",
			StartTime:     "09:00",
			EndTime:       "10:30",
			Room:          " Hall A",
			InvigilatorID: "staff-1",
			TeacherID:     "ignored",
			Capacity:      40,
		}

		got := req.ToCandidate()

		assert.Equal(t, scheduling.Booking{
			ID:        "slot-9",
			Kind:      scheduling.KindExamSlot,
			ScopeID:   "exam-1",
			Title:     "Physics",
			Date:      "2023-10-15",
			StartTime: "09:00",
			EndTime:   "10:30",
			Room:      "Hall A",
			StaffID:   "staff-1",
			Capacity:  40,
		}, got)
	})

	t.Run("timetable event", func(t *testing.T) {
		req := dto.ValidateRequest{
			ClassID:   "class-7a",
			Title:     "Biology",
			Day:       "Monday",
			StartTime: "09:00",
			EndTime:   "10:00",
			TeacherID: "teacher-1",
			Capacity:  12,
		}

		got := req.ToCandidate()

		assert.Equal(t, scheduling.KindTimetableEvent, got.Kind)
		assert.Equal(t, "class-7a", got.ClassID)
		assert.Equal(t, "teacher-1", got.StaffID)
		assert.Zero(t, got.Capacity)
	})
}

func TestValidateRequest_ExistingBookings(t *testing.T) {
	req := dto.ValidateRequest{ClassID: "class-7a"}
	assert.Nil(t, req.ExistingBookings())

	req.Existing = []dto.ExistingBooking{{ID: "ev-1", Day: "Monday", StartTime: "09:00", EndTime: "10:00", Room: "Lab 2"}}

	got := req.ExistingBookings()

	require.Len(t, got, 1)
	assert.Equal(t, scheduling.KindTimetableEvent, got[0].Kind)
	assert.Equal(t, "Lab 2", got[0].Room)
}

func TestValidateRequest_Shape(t *testing.T) {
	tests := []struct {
		name    string
		req     dto.ValidateRequest
		wantErr bool
	}{
		{name: "exam scope", req: dto.ValidateRequest{ExamID: "exam-1"}},
		{name: "class scope", req: dto.ValidateRequest{ClassID: "class-7a"}},
		{name: "no scope", req: dto.ValidateRequest{}, wantErr: true},
		{name: "both scopes", req: dto.ValidateRequest{ExamID: "exam-1", ClassID: "class-7a"}, wantErr: true},
		{
			name: "existing entry without id",
			req: dto.ValidateRequest{
				ClassID:  "class-7a",
				Existing: []dto.ExistingBooking{{Day: "Monday", StartTime: "09:00", EndTime: "10:00"}},
			},
			wantErr: true,
		},
		{
			name: "existing entry with a bad clock",
			req: dto.ValidateRequest{
				ClassID:  "class-7a",
				Existing: []dto.ExistingBooking{{ID: "ev-1", Day: "Monday", StartTime: "9:00", EndTime: "10:00"}},
			},
			wantErr: true,
		},
		{
			name: "existing entry with both date and day",
			req: dto.ValidateRequest{
				ExamID:   "exam-1",
				Existing: []dto.ExistingBooking{{ID: "s-1", Date: "2023-10-15", Day: "Monday", StartTime: "09:00", EndTime: "10:00"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateStruct(&tt.req)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBookingResponse_FromBooking(t *testing.T) {
	var exam dto.BookingResponse
	exam.FromBooking(scheduling.Booking{ID: "s-1", Kind: scheduling.KindExamSlot, ScopeID: "exam-1"})

	assert.Equal(t, "exam_slot", exam.Kind)
	assert.Equal(t, "exam-1", exam.ExamID)
	assert.Empty(t, exam.ClassID)

	var event dto.BookingResponse
	event.FromBooking(scheduling.Booking{ID: "e-1", Kind: scheduling.KindTimetableEvent, ScopeID: "class-7a"})

	assert.Equal(t, "class-7a", event.ClassID)
	assert.Empty(t, event.ExamID)
}

func TestScope_Contains(t *testing.T) {
	scope := dto.ExamScope("exam-1")

	assert.True(t, scope.Contains(scheduling.Booking{Kind: scheduling.KindExamSlot, ScopeID: "exam-1"}))
	assert.False(t, scope.Contains(scheduling.Booking{Kind: scheduling.KindExamSlot, ScopeID: "exam-2"}))
	assert.False(t, scope.Contains(scheduling.Booking{Kind: scheduling.KindTimetableEvent, ScopeID: "exam-1"}))
}
