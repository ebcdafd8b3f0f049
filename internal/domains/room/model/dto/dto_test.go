package dto_test

import (
	"campus/internal/domains/room/model"
	"campus/internal/domains/room/model/dto"
	gModel "campus/shared/model"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCreateRoomRequest_ToModel(t *testing.T) {
	inactive := false

	tests := []struct {
		name       string
		req        dto.CreateRoomRequest
		wantActive bool
	}{
		{name: "defaults to active", req: dto.CreateRoomRequest{Name: "  Hall A ", Building: "Main", Capacity: 120}, wantActive: true},
		{name: "explicitly inactive", req: dto.CreateRoomRequest{Name: "Lab 2", Capacity: 24, Active: &inactive}, wantActive: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := tt.req.ToModel("admin-1")

			assert.NotEmpty(t, room.ID)
			assert.Equal(t, strings.TrimSpace(tt.req.Name), room.Name)
			assert.Equal(t, tt.req.Capacity, room.Capacity)
			assert.Equal(t, tt.wantActive, room.Active)
			assert.Equal(t, "admin-1", room.CreatedBy)
			assert.Equal(t, room.CreatedAt, room.ModifiedAt)
		})
	}
}

func TestGetRoomsResponse_FromModels(t *testing.T) {
	created := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	rooms := []model.Room{
		{ID: "r1", Name: "Hall A", Capacity: 120, Active: true, Metadata: gModel.Metadata{CreatedAt: created}},
		{ID: "r2", Name: "Lab 2", Capacity: 24},
	}

	var res dto.GetRoomsResponse
	res.FromModels(rooms, 21, 10)

	assert.Equal(t, 21, res.TotalData)
	assert.Equal(t, 3, res.TotalPage)
	assert.Len(t, res.Rooms, 2)
	assert.Equal(t, "Hall A", res.Rooms[0].Name)
	assert.NotEmpty(t, res.Rooms[0].CreatedAt)
}
