package failure_test

import (
	"campus/shared/failure"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{name: "bad request", err: failure.BadRequest(errors.New("capacity missing")), code: http.StatusBadRequest, msg: "capacity missing"},
		{name: "bad request from string", err: failure.BadRequestFromString("empty patch"), code: http.StatusBadRequest, msg: "empty patch"},
		{name: "unauthorized", err: failure.Unauthorized("token expired"), code: http.StatusUnauthorized, msg: "token expired"},
		{name: "forbidden", err: failure.Forbidden("staff only"), code: http.StatusForbidden, msg: "staff only"},
		{name: "not found", err: failure.NotFound("booking not found"), code: http.StatusNotFound, msg: "booking not found"},
		{name: "conflict", err: failure.Conflict("booking was modified"), code: http.StatusConflict, msg: "booking was modified"},
		{name: "internal", err: failure.InternalError(errors.New("db down")), code: http.StatusInternalServerError, msg: "db down"},
		{name: "unimplemented", err: failure.Unimplemented("Export"), code: http.StatusNotImplemented, msg: "Export"},
		{name: "custom", err: failure.New(http.StatusTooManyRequests, "slow down"), code: http.StatusTooManyRequests, msg: "slow down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fail *failure.Failure

			assert.ErrorAs(t, tt.err, &fail)
			assert.Equal(t, tt.code, fail.Code)
			assert.Equal(t, tt.msg, tt.err.Error())
		})
	}
}

func TestNilInputs(t *testing.T) {
	assert.NoError(t, failure.BadRequest(nil))
	assert.NoError(t, failure.InternalError(nil))
}

func TestPredefined(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, failure.InvalidPageParam.Code)
	assert.Equal(t, http.StatusBadRequest, failure.InvalidLimitParam.Code)
	assert.Equal(t, http.StatusForbidden, failure.ForbiddenError.Code)
	assert.Equal(t, http.StatusForbidden, failure.ResourceRestrictedError.Code)
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, failure.GetCode(failure.NotFound("room")))
	assert.Equal(t, http.StatusConflict, failure.GetCode(fmt.Errorf("reschedule: %w", failure.Conflict("stale"))))
	assert.Equal(t, http.StatusInternalServerError, failure.GetCode(errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, failure.GetCode(nil))
}
