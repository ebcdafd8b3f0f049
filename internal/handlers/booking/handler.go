package booking

import (
	"campus/infras/otel"
	"campus/internal/domains/booking/model"
	"campus/internal/domains/booking/model/dto"
	"campus/internal/domains/booking/service"
	"campus/internal/scheduling"
	"campus/shared/constant"
	gDto "campus/shared/dto"
	"campus/shared/validator"
	"campus/transport/http/response"
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

var sortableFields = []string{
	model.FieldStartTime,
	model.FieldDate,
	model.FieldDay,
	model.FieldRoom,
	model.FieldTitle,
	constant.FieldCreatedAt,
}

type Handler struct {
	service service.Booking
	otel    otel.Otel
}

func New(service service.Booking, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Post("/scheduling/validate", handler.Validate)

	router.Route("/exams/{"+constant.RequestParamExamID+"}/slots", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateExamSlot)
		routerGroup.Get("/", handler.GetExamSlots)
		routerGroup.Post("/export", handler.ExportExamSlots)
		routerGroup.Get("/{id}", handler.GetExamSlot)
		routerGroup.Patch("/{id}", handler.UpdateExamSlot)
		routerGroup.Delete("/{id}", handler.DeleteExamSlot)
	})

	router.Route("/classes/{"+constant.RequestParamClassID+"}/timetable", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateTimetableEvent)
		routerGroup.Get("/", handler.GetTimetableEvents)
		routerGroup.Post("/export", handler.ExportTimetable)
		routerGroup.Get("/{id}", handler.GetTimetableEvent)
		routerGroup.Patch("/{id}", handler.UpdateTimetableEvent)
		routerGroup.Delete("/{id}", handler.DeleteTimetableEvent)
	})
}

// Validate checks a candidate booking without saving it.
// @Summary Validate a candidate booking
// @Description Run field, business-hours, capacity and conflict checks for an exam slot (exam_id) or a timetable event (class_id). When existing is omitted the stored bookings are used.
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param request body dto.ValidateRequest true "Candidate booking"
// @Success 200 {object} response.Validation[dto.BookingResponse]
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Rejection
// @Failure 500 {object} response.Error
// @Router /v1/scheduling/validate [post]
// @Security BearerAuth
func (handler *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Validate")
	defer scope.End()

	req := dto.ValidateRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(w, err)

		return
	}

	res, err := handler.service.Validate(ctx, req)
	if err != nil {
		if rejection, ok := scheduling.AsRejection(err); ok {
			scope.SetAttribute("rejection.kind", rejection.Reason().String())

			response.WithRejection(w, http.StatusConflict, rejection)

			return
		}

		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate booking")

		response.WithError(w, err)

		return
	}

	response.WithValidation(w, res.Booking)
}

// CreateExamSlot books an exam slot.
// @Summary Book an exam slot
// @Tags Exam Slot
// @Accept json
// @Produce json
// @Param examId path string true "Exam ID"
// @Param request body dto.CreateExamSlotRequest true "Exam slot"
// @Success 201 {object} response.Data[dto.BookingResponse]
// @Failure 400 {object} response.Rejection
// @Failure 409 {object} response.Rejection
// @Failure 500 {object} response.Error
// @Router /v1/exams/{examId}/slots [post]
// @Security BearerAuth
func (handler *Handler) CreateExamSlot(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateExamSlot")
	defer scope.End()

	req := dto.CreateExamSlotRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(w, err)

		return
	}

	handler.create(ctx, w, req.ToBooking(chi.URLParam(r, constant.RequestParamExamID)))
}

// CreateTimetableEvent books a timetable event for a class.
// @Summary Book a timetable event
// @Tags Timetable
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param request body dto.CreateTimetableEventRequest true "Timetable event"
// @Success 201 {object} response.Data[dto.BookingResponse]
// @Failure 400 {object} response.Rejection
// @Failure 409 {object} response.Rejection
// @Failure 500 {object} response.Error
// @Router /v1/classes/{classId}/timetable [post]
// @Security BearerAuth
func (handler *Handler) CreateTimetableEvent(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateTimetableEvent")
	defer scope.End()

	req := dto.CreateTimetableEventRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(w, err)

		return
	}

	handler.create(ctx, w, req.ToBooking(chi.URLParam(r, constant.RequestParamClassID)))
}

// GetExamSlots lists the slots of an exam.
// @Summary List exam slots
// @Tags Exam Slot
// @Produce json
// @Param examId path string true "Exam ID"
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param room query string false "Filter by room"
// @Param staff_id query string false "Filter by invigilator"
// @Success 200 {object} response.Data[dto.GetBookingsResponse]
// @Failure 500 {object} response.Error
// @Router /v1/exams/{examId}/slots [get]
// @Security BearerAuth
func (handler *Handler) GetExamSlots(w http.ResponseWriter, r *http.Request) {
	handler.list(w, r, examScope(r))
}

// GetTimetableEvents lists the timetable of a class.
// @Summary List timetable events
// @Tags Timetable
// @Produce json
// @Param classId path string true "Class ID"
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param day query string false "Filter by weekday"
// @Param room query string false "Filter by room"
// @Param staff_id query string false "Filter by teacher"
// @Success 200 {object} response.Data[dto.GetBookingsResponse]
// @Failure 500 {object} response.Error
// @Router /v1/classes/{classId}/timetable [get]
// @Security BearerAuth
func (handler *Handler) GetTimetableEvents(w http.ResponseWriter, r *http.Request) {
	handler.list(w, r, classScope(r))
}

// GetExamSlot returns one exam slot.
// @Summary Get an exam slot
// @Tags Exam Slot
// @Produce json
// @Param examId path string true "Exam ID"
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Data[dto.BookingResponse]
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/exams/{examId}/slots/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetExamSlot(w http.ResponseWriter, r *http.Request) {
	handler.get(w, r, examScope(r))
}

// GetTimetableEvent returns one timetable event.
// @Summary Get a timetable event
// @Tags Timetable
// @Produce json
// @Param classId path string true "Class ID"
// @Param id path string true "Event ID"
// @Success 200 {object} response.Data[dto.BookingResponse]
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/classes/{classId}/timetable/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetTimetableEvent(w http.ResponseWriter, r *http.Request) {
	handler.get(w, r, classScope(r))
}

// UpdateExamSlot reschedules an exam slot.
// @Summary Reschedule an exam slot
// @Tags Exam Slot
// @Accept json
// @Produce json
// @Param examId path string true "Exam ID"
// @Param id path string true "Slot ID"
// @Param request body dto.UpdateExamSlotRequest true "Changed fields"
// @Success 200 {object} response.Data[dto.BookingResponse]
// @Failure 400 {object} response.Rejection
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Rejection
// @Failure 500 {object} response.Error
// @Router /v1/exams/{examId}/slots/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateExamSlot(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateExamSlot")
	defer scope.End()

	req := dto.UpdateExamSlotRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(w, err)

		return
	}

	handler.update(ctx, w, examScope(r), chi.URLParam(r, constant.RequestParamID), req.ToPatch(), req.Version)
}

// UpdateTimetableEvent moves a timetable event.
// @Summary Reschedule a timetable event
// @Tags Timetable
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param id path string true "Event ID"
// @Param request body dto.UpdateTimetableEventRequest true "Changed fields"
// @Success 200 {object} response.Data[dto.BookingResponse]
// @Failure 400 {object} response.Rejection
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Rejection
// @Failure 500 {object} response.Error
// @Router /v1/classes/{classId}/timetable/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateTimetableEvent(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateTimetableEvent")
	defer scope.End()

	req := dto.UpdateTimetableEventRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(w, err)

		return
	}

	handler.update(ctx, w, classScope(r), chi.URLParam(r, constant.RequestParamID), req.ToPatch(), req.Version)
}

// DeleteExamSlot cancels an exam slot.
// @Summary Cancel an exam slot
// @Tags Exam Slot
// @Produce json
// @Param examId path string true "Exam ID"
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Message
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/exams/{examId}/slots/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteExamSlot(w http.ResponseWriter, r *http.Request) {
	handler.delete(w, r, examScope(r))
}

// DeleteTimetableEvent cancels a timetable event.
// @Summary Cancel a timetable event
// @Tags Timetable
// @Produce json
// @Param classId path string true "Class ID"
// @Param id path string true "Event ID"
// @Success 200 {object} response.Message
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/classes/{classId}/timetable/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteTimetableEvent(w http.ResponseWriter, r *http.Request) {
	handler.delete(w, r, classScope(r))
}

// ExportExamSlots uploads the exam timetable as CSV.
// @Summary Export exam slots
// @Tags Exam Slot
// @Produce json
// @Param examId path string true "Exam ID"
// @Success 200 {object} response.Data[dto.ExportResponse]
// @Failure 500 {object} response.Error
// @Router /v1/exams/{examId}/slots/export [post]
// @Security BearerAuth
func (handler *Handler) ExportExamSlots(w http.ResponseWriter, r *http.Request) {
	handler.export(w, r, examScope(r))
}

// ExportTimetable uploads the class timetable as CSV.
// @Summary Export a class timetable
// @Tags Timetable
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Data[dto.ExportResponse]
// @Failure 500 {object} response.Error
// @Router /v1/classes/{classId}/timetable/export [post]
// @Security BearerAuth
func (handler *Handler) ExportTimetable(w http.ResponseWriter, r *http.Request) {
	handler.export(w, r, classScope(r))
}

func (handler *Handler) create(ctx context.Context, w http.ResponseWriter, candidate scheduling.Booking) {
	res, err := handler.service.Create(ctx, candidate)
	if err != nil {
		writeError(w, err, "failed to create booking")

		return
	}

	response.WithJSON(w, http.StatusCreated, res)
}

func (handler *Handler) list(w http.ResponseWriter, r *http.Request, bookingScope dto.Scope) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookings")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)
	queryParams.RestrictSort(model.FieldStartTime, sortableFields...)

	bookings, err := handler.service.GetAll(ctx, bookingScope, queryParams, listFilter(r))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get bookings")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, bookings)
}

func (handler *Handler) get(w http.ResponseWriter, r *http.Request, bookingScope dto.Scope) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBooking")
	defer scope.End()

	booking, err := handler.service.Get(ctx, bookingScope, chi.URLParam(r, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get booking")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, booking)
}

func (handler *Handler) update(ctx context.Context, w http.ResponseWriter, bookingScope dto.Scope, id string, patch scheduling.Patch, version int) {
	res, err := handler.service.Update(ctx, bookingScope, id, patch, version)
	if err != nil {
		writeError(w, err, "failed to update booking")

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

func (handler *Handler) delete(w http.ResponseWriter, r *http.Request, bookingScope dto.Scope) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteBooking")
	defer scope.End()

	if err := handler.service.Delete(ctx, bookingScope, chi.URLParam(r, constant.RequestParamID)); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete booking")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Booking cancelled by user " + user)

	response.WithMessage(w, http.StatusOK, "Booking cancelled successfully")
}

func (handler *Handler) export(w http.ResponseWriter, r *http.Request, bookingScope dto.Scope) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ExportBookings")
	defer scope.End()

	res, err := handler.service.Export(ctx, bookingScope)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to export bookings")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// writeError answers rejections with their typed body: 409 for double bookings and 400 for
// invalid candidates. Anything else goes through the failure code.
func writeError(w http.ResponseWriter, err error, msg string) {
	if rejection, ok := scheduling.AsRejection(err); ok {
		code := http.StatusBadRequest
		if rejection.Reason().IsResourceConflict() {
			code = http.StatusConflict
		}

		response.WithRejection(w, code, rejection)

		return
	}

	log.Error().Err(err).Msg(msg)

	response.WithError(w, err)
}

func examScope(r *http.Request) dto.Scope {
	return dto.ExamScope(chi.URLParam(r, constant.RequestParamExamID))
}

func classScope(r *http.Request) dto.Scope {
	return dto.ClassScope(chi.URLParam(r, constant.RequestParamClassID))
}

func listFilter(r *http.Request) gDto.FilterGroup {
	query := r.URL.Query()
	group := gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd}

	add := func(field, operator string) {
		if value := query.Get(field); value != constant.Empty {
			group.Filters = append(group.Filters, gDto.Filter{
				Field:    field,
				Operator: operator,
				Value:    value,
				Table:    model.TableName,
			})
		}
	}

	add(model.FieldDate, gDto.FilterOperatorEq)
	add(model.FieldDay, gDto.FilterOperatorEq)
	add(model.FieldRoom, gDto.FilterOperatorEqFold)
	add(model.FieldStaffID, gDto.FilterOperatorEq)

	return group
}
