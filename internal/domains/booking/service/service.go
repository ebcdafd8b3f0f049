package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Booking=MockService

import (
	"bytes"
	"campus/config"
	"campus/infras/kafka"
	"campus/infras/otel"
	"campus/infras/s3"
	"campus/internal/domains/booking/model"
	"campus/internal/domains/booking/model/dto"
	"campus/internal/domains/booking/repository"
	roomModel "campus/internal/domains/room/model"
	roomRepository "campus/internal/domains/room/repository"
	"campus/internal/scheduling"
	"campus/shared"
	"campus/shared/cache"
	"campus/shared/constant"
	gDto "campus/shared/dto"
	"campus/shared/failure"
	"campus/shared/timezone"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
)

const (
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:gets"
	cacheCountBooking  = "booking:count"

	exportTimestampLayout = "20060102150405"
)

var exportHeader = []string{"id", "title", "date", "day", "start_time", "end_time", "room", "staff_id", "capacity"}

type Booking interface {
	Validate(ctx context.Context, req dto.ValidateRequest) (dto.ValidateResponse, error)
	Create(ctx context.Context, candidate scheduling.Booking) (dto.BookingResponse, error)
	GetAll(ctx context.Context, scope dto.Scope, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetBookingsResponse, error)
	Count(ctx context.Context, scope dto.Scope, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, scope dto.Scope, id string) (dto.BookingResponse, error)
	Update(ctx context.Context, scope dto.Scope, id string, patch scheduling.Patch, version int) (dto.BookingResponse, error)
	Delete(ctx context.Context, scope dto.Scope, id string) error
	Export(ctx context.Context, scope dto.Scope) (dto.ExportResponse, error)
}

type serviceImpl struct {
	repo      repository.Booking
	roomRepo  roomRepository.Room
	store     scheduling.Store
	scheduler *scheduling.Scheduler
	cfg       *config.Config
	cache     cache.RedisCache
	kafka     kafka.Client
	s3        s3.S3
	otel      otel.Otel
}

func New(
	repo repository.Booking,
	roomRepo roomRepository.Room,
	cfg *config.Config,
	cache cache.RedisCache,
	kafka kafka.Client,
	s3 s3.S3,
	otel otel.Otel,
) Booking {
	return NewWithStore(repository.NewStore(repo), repo, roomRepo, cfg, cache, kafka, s3, otel)
}

// NewWithStore builds the service on an arbitrary scheduling.Store. Writes go through the
// store; paginated reads go through repo.
func NewWithStore(
	store scheduling.Store,
	repo repository.Booking,
	roomRepo roomRepository.Room,
	cfg *config.Config,
	cache cache.RedisCache,
	kafka kafka.Client,
	s3 s3.S3,
	otel otel.Otel,
) Booking {
	s := &serviceImpl{
		repo:     repo,
		roomRepo: roomRepo,
		store:    store,
		cfg:      cfg,
		cache:    cache,
		kafka:    kafka,
		s3:       s3,
		otel:     otel,
	}

	policy, err := policyFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid scheduling hours")
	}

	s.scheduler = scheduling.NewScheduler(store, policy, s.roomCapacity)

	return s
}

func policyFromConfig(cfg *config.Config) (scheduling.Policy, error) {
	policy := scheduling.Policy{
		OpeningTime:      cfg.Scheduling.OpeningTime,
		ClosingTime:      cfg.Scheduling.ClosingTime,
		EnforceExamHours: cfg.Scheduling.EnforceExamHours,
	}

	if err := policy.Check(); err != nil {
		return policy, fmt.Errorf("scheduling config: %w", err)
	}

	return policy, nil
}

// Validate runs the booking pipeline without writing. A refused candidate is returned as a
// scheduling.Rejection.
func (s *serviceImpl) Validate(ctx context.Context, req dto.ValidateRequest) (res dto.ValidateResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Validate")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	candidate := req.ToCandidate()
	scheduler := s.scheduler

	if existing := req.ExistingBookings(); existing != nil {
		for _, b := range existing {
			if b.StartTime >= b.EndTime {
				return res, failure.BadRequestFromString(fmt.Sprintf("existing booking %s must end after it starts", b.ID)) // nolint:wrapcheck
			}
		}

		scheduler = scheduler.WithStore(scheduling.NewMemoryStore(existing...))
	}

	if err = scheduler.Check(ctx, candidate, req.ExcludeID); err != nil {
		return res, s.translate(err, "validate")
	}

	res.OK = true
	res.Booking.FromBooking(candidate)

	return res, nil
}

func (s *serviceImpl) Create(ctx context.Context, candidate scheduling.Booking) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	booked, err := s.scheduler.Book(ctx, candidate)
	if err != nil {
		return res, s.translate(err, "create")
	}

	res.FromBooking(booked)

	s.invalidate(ctx, constant.Empty)
	s.publish(ctx, dto.EventBookingCreated, res)

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, bookingScope dto.Scope, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.GetAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	filter = withScope(bookingScope, filter)
	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, req, filter)

	if s.cache.Get(ctx, cacheKey, &res) == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	total, err := s.count(ctx, req, filter)
	if err != nil {
		return res, err
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		if err := s.cache.Save(context.WithoutCancel(ctx), cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, bookingScope dto.Scope, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Count")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	return s.count(ctx, req, withScope(bookingScope, filter))
}

func (s *serviceImpl) count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountBooking, req, filter)

	if s.cache.Get(ctx, cacheKey, &res) == nil {
		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	go func() {
		if err := s.cache.Save(context.WithoutCancel(ctx), cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, bookingScope dto.Scope, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	res, err = s.get(ctx, id)
	if err != nil {
		return res, err
	}

	if !owns(bookingScope, res) {
		return dto.BookingResponse{}, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	return res, nil
}

func (s *serviceImpl) get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	if s.cache.Get(ctx, cacheKey, &res) == nil {
		return res, nil
	}

	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	res.FromModel(booking)

	go func() {
		if err := s.cache.Save(context.WithoutCancel(ctx), cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking to cache")
		}
	}()

	return res, nil
}

// Update reschedules booking id. A non-zero version must match the stored one.
func (s *serviceImpl) Update(ctx context.Context, bookingScope dto.Scope, id string, patch scheduling.Patch, version int) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Update")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if patch.IsEmpty() {
		return res, failure.BadRequestFromString("update request cannot be empty") // nolint:wrapcheck
	}

	if err = s.ensureInScope(ctx, bookingScope, id); err != nil {
		return res, err
	}

	updated, err := s.scheduler.Reschedule(ctx, id, patch, version)
	if err != nil {
		return res, s.translate(err, "update")
	}

	res.FromBooking(updated)

	s.invalidate(ctx, id)
	s.publish(ctx, dto.EventBookingRescheduled, res)

	return res, nil
}

func (s *serviceImpl) Delete(ctx context.Context, bookingScope dto.Scope, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Delete")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return s.translate(err, "delete")
	}

	if !bookingScope.Contains(current) {
		return failure.NotFound("booking not found") // nolint:wrapcheck
	}

	if err = s.scheduler.Cancel(ctx, id); err != nil {
		return s.translate(err, "delete")
	}

	var res dto.BookingResponse
	res.FromBooking(current)

	s.invalidate(ctx, id)
	s.publish(ctx, dto.EventBookingCancelled, res)

	return nil
}

// Export writes every booking of the scope as CSV to object storage, ordered by date or
// weekday and then start time.
func (s *serviceImpl) Export(ctx context.Context, bookingScope dto.Scope) (res dto.ExportResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Export")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	bookings, err := s.store.List(ctx, scheduling.Filter{Kind: bookingScope.Kind, ScopeID: bookingScope.ID})
	if err != nil {
		log.Error().Err(err).Msg("failed to list bookings for export")

		return res, fmt.Errorf("failed to list bookings for export: %w", err)
	}

	sortForExport(bookings)

	data, err := encodeCSV(bookings)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode bookings")

		return res, fmt.Errorf("failed to encode bookings: %w", err)
	}

	directory := s.cfg.Scheduling.ExportDirectory + "/" + bookingScope.Kind.String()
	fileName := fmt.Sprintf("%s-%s.csv", bookingScope.ID, timezone.Now().Format(exportTimestampLayout))

	url, err := s.s3.UploadFileBytes(ctx, directory, fileName, constant.ContentTypeCSV, data)
	if err != nil {
		log.Error().Err(err).Msg("failed to upload export")

		return res, fmt.Errorf("failed to upload export: %w", err)
	}

	res.URL = url
	res.FileName = fileName
	res.Total = len(bookings)

	return res, nil
}

// roomCapacity refuses an exam slot seating more candidates than its registered room.
// Rooms missing from the registry, or registered without a capacity, are not checked.
func (s *serviceImpl) roomCapacity(ctx context.Context, candidate scheduling.Booking) error {
	if candidate.Kind != scheduling.KindExamSlot || candidate.Room == constant.Empty {
		return nil
	}

	filter := roomRepository.ByName(candidate.Room)
	filter.Operator = gDto.FilterGroupOperatorAnd
	filter.Filters = append(filter.Filters, gDto.Filter{
		Field:    roomModel.FieldActive,
		Operator: gDto.FilterOperatorEq,
		Value:    true,
		Table:    roomModel.TableName,
	})

	room, err := s.roomRepo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to look up room")

		return fmt.Errorf("failed to look up room: %w", err)
	}

	if room.ID == constant.Empty || room.Capacity <= 0 {
		return nil
	}

	if candidate.Capacity > room.Capacity {
		return scheduling.CapacityError(room.Name, candidate.Capacity, room.Capacity)
	}

	return nil
}

func (s *serviceImpl) ensureInScope(ctx context.Context, bookingScope dto.Scope, id string) error {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return s.translate(err, "get")
	}

	if !bookingScope.Contains(current) {
		return failure.NotFound("booking not found") // nolint:wrapcheck
	}

	return nil
}

// translate keeps rejections and failures intact and maps store sentinels to failures.
func (s *serviceImpl) translate(err error, action string) error {
	if _, ok := scheduling.AsRejection(err); ok {
		return err
	}

	var f *failure.Failure
	if errors.As(err, &f) {
		return err
	}

	switch {
	case errors.Is(err, scheduling.ErrNotFound):
		return failure.NotFound("booking not found") // nolint:wrapcheck
	case errors.Is(err, scheduling.ErrStaleVersion):
		return failure.Conflict(scheduling.ErrStaleVersion.Error()) // nolint:wrapcheck
	}

	log.Error().Err(err).Msgf("failed to %s booking", action)

	return fmt.Errorf("failed to %s booking: %w", action, err)
}

func (s *serviceImpl) invalidate(ctx context.Context, id string) {
	go func() {
		c := context.WithoutCancel(ctx)

		if id != constant.Empty {
			if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetBooking, id)); err != nil {
				log.Error().Err(err).Msg("failed to delete booking from cache")
			}
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
		shared.InvalidateCaches(c, s.cache, cacheCountBooking)
	}()
}

func (s *serviceImpl) publish(ctx context.Context, eventType string, booking dto.BookingResponse) {
	actor, _ := ctx.Value(constant.ContextKeyUserID).(string)

	event := dto.BookingEvent{
		Type:       eventType,
		Booking:    booking,
		ActorID:    actor,
		OccurredAt: timezone.Format(timezone.Now(), constant.DateFormat),
	}

	go func() {
		msg := kafka.Message{Key: booking.ID, Value: event}

		if err := s.kafka.SendMessages(context.WithoutCancel(ctx), s.cfg.Kafka.Topics.Bookings, msg); err != nil {
			log.Error().Err(err).Str("event", eventType).Str("booking", booking.ID).Msg("failed to publish booking event")
		}
	}()
}

func withScope(scope dto.Scope, filter gDto.FilterGroup) gDto.FilterGroup {
	scoped := scope.Filter()

	if len(filter.Filters) > 0 {
		scoped.Filters = append(scoped.Filters, filter)
	}

	return scoped
}

func owns(scope dto.Scope, res dto.BookingResponse) bool {
	if res.Kind != scope.Kind.String() {
		return false
	}

	if scope.Kind == scheduling.KindExamSlot {
		return res.ExamID == scope.ID
	}

	return res.ClassID == scope.ID
}

func sortForExport(bookings []scheduling.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		a, b := bookings[i], bookings[j]

		if a.Date != b.Date {
			return a.Date < b.Date
		}

		if a.Day != b.Day {
			return scheduling.WeekdayIndex(a.Day) < scheduling.WeekdayIndex(b.Day)
		}

		return a.StartTime < b.StartTime
	})
}

func encodeCSV(bookings []scheduling.Booking) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for _, b := range bookings {
		capacity := constant.Empty
		if b.Capacity > 0 {
			capacity = strconv.Itoa(b.Capacity)
		}

		row := []string{b.ID, b.Title, b.Date, b.Day, b.StartTime, b.EndTime, b.Room, b.StaffID, capacity}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	return buf.Bytes(), nil
}
