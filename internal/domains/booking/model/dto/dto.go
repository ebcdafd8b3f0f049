package dto

import (
	"campus/internal/domains/booking/model"
	"campus/internal/scheduling"
	"campus/shared"
	gDto "campus/shared/dto"
	"strings"
)

// Scope is the exam or class a booking belongs to.
type Scope struct {
	Kind scheduling.Kind
	ID   string
}

func ExamScope(examID string) Scope {
	return Scope{Kind: scheduling.KindExamSlot, ID: examID}
}

func ClassScope(classID string) Scope {
	return Scope{Kind: scheduling.KindTimetableEvent, ID: classID}
}

// Filter selects the rows of this scope.
func (s Scope) Filter() gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldKind, Operator: gDto.FilterOperatorEq, Value: s.Kind.String(), Table: model.TableName},
			gDto.Filter{Field: model.FieldScopeID, Operator: gDto.FilterOperatorEq, Value: s.ID, Table: model.TableName},
		},
	}
}

func (s Scope) Contains(b scheduling.Booking) bool {
	return b.Kind == s.Kind && b.ScopeID == s.ID
}

type CreateExamSlotRequest struct {
	Subject       string `json:"subject"        validate:"required,max=200"`
	Date          string `json:"date"           validate:"required,datetime=2006-01-02"`
	StartTime     string `json:"start_time"     validate:"required,hhmm"`
	EndTime       string `json:"end_time"       validate:"required,hhmm"`
	Room          string `json:"room"           validate:"required,max=100"`
	InvigilatorID string `json:"invigilator_id" validate:"required,max=64"`
	Capacity      int    `json:"capacity"       validate:"required,gte=1"`
}

func (r *CreateExamSlotRequest) ToBooking(examID string) scheduling.Booking {
	return scheduling.Booking{
		Kind:      scheduling.KindExamSlot,
		ScopeID:   examID,
		Title:     strings.TrimSpace(r.Subject),
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Room:      strings.TrimSpace(r.Room),
		StaffID:   strings.TrimSpace(r.InvigilatorID),
		Capacity:  r.Capacity,
	}
}

type CreateTimetableEventRequest struct {
	Title     string `json:"title"      validate:"required,max=200"`
	Day       string `json:"day"        validate:"required,weekday"`
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time"   validate:"required,hhmm"`
	Room      string `json:"room"       validate:"omitempty,max=100"`
	TeacherID string `json:"teacher_id" validate:"omitempty,max=64"`
}

func (r *CreateTimetableEventRequest) ToBooking(classID string) scheduling.Booking {
	return scheduling.Booking{
		Kind:      scheduling.KindTimetableEvent,
		ScopeID:   classID,
		ClassID:   classID,
		Title:     strings.TrimSpace(r.Title),
		Day:       r.Day,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Room:      strings.TrimSpace(r.Room),
		StaffID:   strings.TrimSpace(r.TeacherID),
	}
}

// UpdateExamSlotRequest reschedules an exam slot. A non-zero Version must match the
// stored version or the update is refused.
type UpdateExamSlotRequest struct {
	Subject       *string `json:"subject"        validate:"omitempty,min=1,max=200"`
	Date          *string `json:"date"           validate:"omitempty,datetime=2006-01-02"`
	StartTime     *string `json:"start_time"     validate:"omitempty,hhmm"`
	EndTime       *string `json:"end_time"       validate:"omitempty,hhmm"`
	Room          *string `json:"room"           validate:"omitempty,min=1,max=100"`
	InvigilatorID *string `json:"invigilator_id" validate:"omitempty,min=1,max=64"`
	Capacity      *int    `json:"capacity"       validate:"omitempty,gte=1"`
	Version       int     `json:"version"        validate:"gte=0"`
}

func (r *UpdateExamSlotRequest) ToPatch() scheduling.Patch {
	return scheduling.Patch{
		Title:     r.Subject,
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Room:      r.Room,
		StaffID:   r.InvigilatorID,
		Capacity:  r.Capacity,
	}
}

// UpdateTimetableEventRequest moves a timetable event. An empty room or teacher clears it.
type UpdateTimetableEventRequest struct {
	Title     *string `json:"title"      validate:"omitempty,min=1,max=200"`
	Day       *string `json:"day"        validate:"omitempty,weekday"`
	StartTime *string `json:"start_time" validate:"omitempty,hhmm"`
	EndTime   *string `json:"end_time"   validate:"omitempty,hhmm"`
	Room      *string `json:"room"       validate:"omitempty,max=100"`
	TeacherID *string `json:"teacher_id" validate:"omitempty,max=64"`
	Version   int     `json:"version"    validate:"gte=0"`
}

func (r *UpdateTimetableEventRequest) ToPatch() scheduling.Patch {
	return scheduling.Patch{
		Title:     r.Title,
		Day:       r.Day,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Room:      r.Room,
		StaffID:   r.TeacherID,
	}
}

// ExistingBooking is a caller-supplied booking the candidate is checked against instead of
// the stored ones.
type ExistingBooking struct {
	ID        string `json:"id"         validate:"required"`
	Title     string `json:"title"`
	Date      string `json:"date"       validate:"required_without=Day,excluded_with=Day,omitempty,datetime=2006-01-02"`
	Day       string `json:"day"        validate:"omitempty,weekday"`
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time"   validate:"required,hhmm"`
	Room      string `json:"room"`
	StaffID   string `json:"staff_id"`
	ClassID   string `json:"class_id"`
}

// ValidateRequest asks whether a candidate could be booked without writing anything. Exactly
// one of ExamID and ClassID selects the kind. When Existing is nil the stored bookings are used.
type ValidateRequest struct {
	ExamID        string            `json:"exam_id"        validate:"required_without=ClassID,excluded_with=ClassID"`
	ClassID       string            `json:"class_id"       validate:"required_without=ExamID"`
	ExcludeID     string            `json:"exclude_id"`
	Subject       string            `json:"subject"`
	Title         string            `json:"title"`
	Date          string            `json:"date"`
	Day           string            `json:"day"`
	StartTime     string            `json:"start_time"`
	EndTime       string            `json:"end_time"`
	Room          string            `json:"room"`
	InvigilatorID string            `json:"invigilator_id"`
	TeacherID     string            `json:"teacher_id"`
	Capacity      int               `json:"capacity"`
	Existing      []ExistingBooking `json:"existing"       validate:"omitempty,dive"`
}

func (r *ValidateRequest) Scope() Scope {
	if r.ExamID != "" {
		return ExamScope(r.ExamID)
	}

	return ClassScope(r.ClassID)
}

// ToCandidate builds the booking to check. Field rules are left to the scheduling pipeline
// so the caller receives them as rejections.
func (r *ValidateRequest) ToCandidate() scheduling.Booking {
	scope := r.Scope()

	candidate := scheduling.Booking{
		ID:        r.ExcludeID,
		Kind:      scope.Kind,
		ScopeID:   scope.ID,
		Date:      strings.TrimSpace(r.Date),
		Day:       strings.TrimSpace(r.Day),
		StartTime: strings.TrimSpace(r.StartTime),
		EndTime:   strings.TrimSpace(r.EndTime),
		Room:      strings.TrimSpace(r.Room),
	}

	if scope.Kind == scheduling.KindExamSlot {
		candidate.Title = strings.TrimSpace(firstNonEmpty(r.Subject, r.Title))
		candidate.StaffID = strings.TrimSpace(r.InvigilatorID)
		candidate.Capacity = r.Capacity
	} else {
		candidate.Title = strings.TrimSpace(firstNonEmpty(r.Title, r.Subject))
		candidate.StaffID = strings.TrimSpace(r.TeacherID)
		candidate.ClassID = scope.ID
	}

	return candidate
}

// ExistingBookings returns the supplied list as bookings of the candidate's kind, or nil
// when the caller did not send one.
func (r *ValidateRequest) ExistingBookings() []scheduling.Booking {
	if r.Existing == nil {
		return nil
	}

	kind := r.Scope().Kind
	bookings := make([]scheduling.Booking, len(r.Existing))

	for i, e := range r.Existing {
		bookings[i] = scheduling.Booking{
			ID:        e.ID,
			Kind:      kind,
			Title:     e.Title,
			Date:      e.Date,
			Day:       e.Day,
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
			Room:      e.Room,
			StaffID:   e.StaffID,
			ClassID:   e.ClassID,
		}
	}

	return bookings
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}

	return ""
}

type BookingResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	ExamID    string `json:"exam_id,omitempty"`
	ClassID   string `json:"class_id,omitempty"`
	Title     string `json:"title"`
	Date      string `json:"date,omitempty"`
	Day       string `json:"day,omitempty"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Room      string `json:"room,omitempty"`
	StaffID   string `json:"staff_id,omitempty"`
	Capacity  int    `json:"capacity,omitempty"`
	Version   int    `json:"version,omitempty"`
	gDto.Metadata
}

func (r *BookingResponse) FromBooking(b scheduling.Booking) {
	r.ID = b.ID
	r.Kind = b.Kind.String()
	r.Title = b.Title
	r.Date = b.Date
	r.Day = b.Day
	r.StartTime = b.StartTime
	r.EndTime = b.EndTime
	r.Room = b.Room
	r.StaffID = b.StaffID
	r.Capacity = b.Capacity
	r.Version = b.Version

	if b.Kind == scheduling.KindExamSlot {
		r.ExamID = b.ScopeID
	} else {
		r.ClassID = b.ScopeID
	}
}

func (r *BookingResponse) FromModel(m model.Booking) {
	r.FromBooking(m.ToScheduling())
	r.Metadata.FromModel(m.Metadata)
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}

type ValidateResponse struct {
	OK      bool            `json:"ok"`
	Booking BookingResponse `json:"booking"`
}

type ExportResponse struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	Total    int    `json:"total"`
}

const (
	EventBookingCreated     = "booking.created"
	EventBookingRescheduled = "booking.rescheduled"
	EventBookingCancelled   = "booking.cancelled"
)

// BookingEvent is published after every committed write.
type BookingEvent struct {
	Type       string          `json:"type"`
	Booking    BookingResponse `json:"booking"`
	ActorID    string          `json:"actor_id,omitempty"`
	OccurredAt string          `json:"occurred_at"`
}
