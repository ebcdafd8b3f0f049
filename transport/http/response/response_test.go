package response_test

import (
	"campus/internal/scheduling"
	"campus/shared/failure"
	"campus/transport/http/response"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithError(t *testing.T) {
	rec := httptest.NewRecorder()

	response.WithError(rec, failure.NotFound("booking not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"booking not found"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestWithRejection(t *testing.T) {
	tests := []struct {
		name      string
		rejection scheduling.Rejection
		want      response.Rejection
	}{
		{
			name: "room conflict",
			rejection: &scheduling.Conflict{
				Kind:          scheduling.ReasonRoom,
				Message:       "Room Hall A is already booked 09:00-10:30",
				ConflictingID: "slot-1",
			},
			want: response.Rejection{Kind: "room", Message: "Room Hall A is already booked 09:00-10:30", ConflictingID: "slot-1"},
		},
		{
			name:      "capacity",
			rejection: scheduling.CapacityError("Hall A", 40, 30),
			want:      response.Rejection{Kind: "capacity", Message: "Hall A seats 30, capacity 40 requested"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			response.WithRejection(rec, http.StatusConflict, tt.rejection)

			var got response.Rejection
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithValidation(t *testing.T) {
	rec := httptest.NewRecorder()

	response.WithValidation(rec, map[string]string{"id": "slot-1"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"booking":{"id":"slot-1"}}`, rec.Body.String())
}
