package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"campus/infras/otel"
	"campus/infras/postgres"
	"campus/internal/domains/booking/model"
	"campus/shared/constant"
	gDto "campus/shared/dto"
	gRepo "campus/shared/repository"
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const advisoryLockQuery = "SELECT pg_advisory_xact_lock(hashtext($1))"

type Booking interface {
	Insert(ctx context.Context, model model.Booking) error
	InsertTx(ctx context.Context, sqltx *sqlx.Tx, model model.Booking) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error)
	GetAllTx(ctx context.Context, sqltx *sqlx.Tx, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	UpdateTx(ctx context.Context, sqltx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) (int64, error)
	Delete(ctx context.Context, filter gDto.FilterGroup) error
	DeleteTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup) error
	WithLock(ctx context.Context, key string, fn func(ctx context.Context, sqltx *sqlx.Tx) error) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel),
		otel:       otel,
	}
}

// WithLock runs fn in a transaction holding a Postgres advisory lock on key. The lock is
// released when the transaction ends, so writers on the same key are serialized.
func (r *repositoryImpl) WithLock(ctx context.Context, key string, fn func(ctx context.Context, sqltx *sqlx.Tx) error) error {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.WithLock")
	defer scope.End()

	scope.SetAttribute("lock.key", key)

	return r.Transaction(ctx, func(ctx context.Context, sqltx *sqlx.Tx) error {
		if _, err := sqltx.ExecContext(ctx, advisoryLockQuery, key); err != nil {
			scope.TraceError(err)

			return fmt.Errorf("failed to acquire lock %q: %w", key, err)
		}

		return fn(ctx, sqltx)
	})
}
