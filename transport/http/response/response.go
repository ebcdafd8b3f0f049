package response

import (
	"campus/internal/scheduling"
	"campus/shared/constant"
	"campus/shared/failure"
	"campus/shared/logger"
	"encoding/json"
	"net/http"
)

type Data[T any] struct {
	Data *T `json:"data,omitempty"`
}

type Error struct {
	Error *string `json:"error,omitempty"`
}

type Message struct {
	Message *string `json:"message,omitempty"`
}

// Rejection is the body returned when a booking candidate is refused.
type Rejection struct {
	OK            bool   `json:"ok"`
	Kind          string `json:"kind"`
	Message       string `json:"message"`
	ConflictingID string `json:"conflicting_id,omitempty"`
}

// Validation is the body returned when a booking candidate is admissible.
type Validation[T any] struct {
	OK      bool `json:"ok"`
	Booking T    `json:"booking"`
}

// WithMessage sends a response with a simple text message
func WithMessage(writer http.ResponseWriter, code int, message string) {
	response(writer, code, Message{Message: &message})
}

// WithJSON sends a response containing a JSON object
func WithJSON(writer http.ResponseWriter, code int, jsonPayload interface{}) {
	response(writer, code, Data[any]{Data: &jsonPayload})
}

// WithError sends a response with an error message
func WithError(writer http.ResponseWriter, err error) {
	code := failure.GetCode(err)
	errMsg := err.Error()

	response(writer, code, Error{Error: &errMsg})
}

// WithRejection sends the reason a booking candidate was refused.
func WithRejection(writer http.ResponseWriter, code int, rejection scheduling.Rejection) {
	response(writer, code, Rejection{
		Kind:          rejection.Reason().String(),
		Message:       rejection.Error(),
		ConflictingID: rejection.BlockingID(),
	})
}

// WithValidation sends an admissible booking candidate back to the caller.
func WithValidation[T any](writer http.ResponseWriter, booking T) {
	response(writer, http.StatusOK, Validation[T]{OK: true, Booking: booking})
}

// WithRequestLimitExceeded sends a default response for when the request limit is exceeded
func WithRequestLimitExceeded(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusTooManyRequests, constant.ResponseErrorRequestLimitExceeded)
}

// WithPreparingShutdown sends a default response for when the server is preparing to shut down
func WithPreparingShutdown(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusServiceUnavailable, constant.ResponseErrorPrepareShutdown)
}

// WithUnhealthy sends a default response for when the server is unhealthy
func WithUnhealthy(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusServiceUnavailable, constant.ResponseErrorUnhealthy)
}

func response(writer http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorWithStack(err)

		return
	}

	writer.Header().Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	writer.WriteHeader(code)
	_, err = writer.Write(response)

	if err != nil {
		logger.ErrorWithStack(err)
	}
}
