package repository

import (
	"campus/internal/domains/booking/model"
	"campus/internal/scheduling"
	"campus/shared"
	"campus/shared/constant"
	gDto "campus/shared/dto"
	gModel "campus/shared/model"
	"campus/shared/timezone"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const argExpectedVersion = "expected_version"

// Store adapts the bookings table to scheduling.Store. A Store handed to an Atomically
// callback runs every statement on the locked transaction.
type Store struct {
	repo Booking
	tx   *sqlx.Tx
}

func NewStore(repo Booking) *Store {
	return &Store{repo: repo}
}

var _ scheduling.Store = (*Store)(nil)

func (s *Store) List(ctx context.Context, filter scheduling.Filter) ([]scheduling.Booking, error) {
	params := gDto.QueryParams{SortBy: model.FieldStartTime, SortDir: "ASC"}

	var (
		rows []model.Booking
		err  error
	)

	if s.tx != nil {
		rows, err = s.repo.GetAllTx(ctx, s.tx, params, ListFilter(filter))
	} else {
		rows, err = s.repo.GetAll(ctx, params, ListFilter(filter))
	}

	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	bookings := make([]scheduling.Booking, len(rows))
	for i, row := range rows {
		bookings[i] = row.ToScheduling()
	}

	return bookings, nil
}

func (s *Store) Get(ctx context.Context, id string) (scheduling.Booking, error) {
	row, err := s.get(ctx, id)
	if err != nil {
		return scheduling.Booking{}, err
	}

	if row.ID == constant.Empty {
		return scheduling.Booking{}, scheduling.ErrNotFound
	}

	return row.ToScheduling(), nil
}

func (s *Store) Insert(ctx context.Context, booking scheduling.Booking) (scheduling.Booking, error) {
	if booking.ID == constant.Empty {
		booking.ID = uuid.NewString()
	}

	booking.Version = 1

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	now := timezone.Now()

	row := model.FromScheduling(booking)
	row.Metadata = gModel.Metadata{
		CreatedAt:  now,
		ModifiedAt: now,
		CreatedBy:  user,
		ModifiedBy: user,
	}

	var err error
	if s.tx != nil {
		err = s.repo.InsertTx(ctx, s.tx, row)
	} else {
		err = s.repo.Insert(ctx, row)
	}

	if err != nil {
		return scheduling.Booking{}, translate(err, booking)
	}

	return booking, nil
}

// Update writes booking over id when the stored version still equals booking.Version.
func (s *Store) Update(ctx context.Context, id string, booking scheduling.Booking) (scheduling.Booking, error) {
	if s.tx == nil {
		var updated scheduling.Booking

		err := s.Atomically(ctx, booking.LockKey(), func(ctx context.Context, tx scheduling.Store) error {
			var err error
			updated, err = tx.Update(ctx, id, booking)

			return err
		})

		return updated, err
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	fields := map[string]any{
		model.FieldTitle:         booking.Title,
		model.FieldDate:          booking.Date,
		model.FieldDay:           booking.Day,
		model.FieldStartTime:     booking.StartTime,
		model.FieldEndTime:       booking.EndTime,
		model.FieldRoom:          booking.Room,
		model.FieldStaffID:       booking.StaffID,
		model.FieldCapacity:      booking.Capacity,
		model.FieldVersion:       booking.Version + 1,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: user,
	}

	filter := shared.FilterByID(id, model.FieldID, model.TableName)
	filter.Filters = append(filter.Filters, gDto.Filter{
		ArgName:  argExpectedVersion,
		Field:    model.FieldVersion,
		Operator: gDto.FilterOperatorEq,
		Value:    booking.Version,
		Table:    model.TableName,
	})

	affected, err := s.repo.UpdateTx(ctx, s.tx, fields, filter)
	if err != nil {
		return scheduling.Booking{}, translate(err, booking)
	}

	if affected == 0 {
		current, err := s.get(ctx, id)
		if err != nil {
			return scheduling.Booking{}, err
		}

		if current.ID == constant.Empty {
			return scheduling.Booking{}, scheduling.ErrNotFound
		}

		return scheduling.Booking{}, scheduling.ErrStaleVersion
	}

	booking.ID = id
	booking.Version++

	return booking, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	row, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if row.ID == constant.Empty {
		return scheduling.ErrNotFound
	}

	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	if s.tx != nil {
		err = s.repo.DeleteTx(ctx, s.tx, filter)
	} else {
		err = s.repo.Delete(ctx, filter)
	}

	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}

	return nil
}

// Atomically locks key for the duration of fn. Nested calls reuse the open transaction.
func (s *Store) Atomically(ctx context.Context, key string, fn func(ctx context.Context, tx scheduling.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}

	return s.repo.WithLock(ctx, key, func(ctx context.Context, sqltx *sqlx.Tx) error { //nolint:wrapcheck
		return fn(ctx, &Store{repo: s.repo, tx: sqltx})
	})
}

func (s *Store) get(ctx context.Context, id string) (model.Booking, error) {
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	var (
		row model.Booking
		err error
	)

	if s.tx != nil {
		row, err = s.repo.GetTx(ctx, s.tx, filter)
	} else {
		row, err = s.repo.Get(ctx, filter)
	}

	if err != nil {
		return row, fmt.Errorf("get booking: %w", err)
	}

	return row, nil
}

// ListFilter converts a scheduling filter into the repository's where-clause form.
func ListFilter(filter scheduling.Filter) gDto.FilterGroup {
	group := gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd}

	add := func(field string, value any) {
		group.Filters = append(group.Filters, gDto.Filter{
			Field:    field,
			Operator: gDto.FilterOperatorEq,
			Value:    value,
			Table:    model.TableName,
		})
	}

	if filter.Kind != 0 {
		add(model.FieldKind, filter.Kind.String())
	}

	if filter.ScopeID != constant.Empty {
		add(model.FieldScopeID, filter.ScopeID)
	}

	if filter.Date != constant.Empty {
		add(model.FieldDate, filter.Date)
	}

	if filter.Day != constant.Empty {
		add(model.FieldDay, filter.Day)
	}

	return group
}

// translate turns a unique-index violation into the conflict a concurrent writer caused.
func translate(err error, booking scheduling.Booking) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != constant.PqErrorCodeUniqueViolation {
		return fmt.Errorf("write booking: %w", err)
	}

	window := booking.StartTime + "-" + booking.EndTime

	switch pqErr.Constraint {
	case model.ConstraintStaffSlot:
		return &scheduling.Conflict{
			Kind:      scheduling.ReasonStaff,
			Message:   fmt.Sprintf("Staff %s is already assigned at %s", booking.StaffID, window),
			Resource:  booking.StaffID,
			StartTime: booking.StartTime,
			EndTime:   booking.EndTime,
		}
	case model.ConstraintClassSlot:
		return &scheduling.Conflict{
			Kind:      scheduling.ReasonClass,
			Message:   fmt.Sprintf("Class %s already has a lesson at %s", booking.ClassID, window),
			Resource:  booking.ClassID,
			StartTime: booking.StartTime,
			EndTime:   booking.EndTime,
		}
	default:
		return &scheduling.Conflict{
			Kind:      scheduling.ReasonRoom,
			Message:   fmt.Sprintf("%s is already booked at %s", scheduling.RoomLabel(booking.Room), window),
			Resource:  booking.Room,
			StartTime: booking.StartTime,
			EndTime:   booking.EndTime,
		}
	}
}
