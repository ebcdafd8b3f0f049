//go:build wireinject
// +build wireinject

package di

import (
	"campus/config"
	"campus/infras/jwt"
	"campus/infras/kafka"
	"campus/infras/otel"
	"campus/infras/postgres"
	"campus/infras/redis"
	"campus/infras/s3"
	bookingRepository "campus/internal/domains/booking/repository"
	bookingService "campus/internal/domains/booking/service"
	roomRepository "campus/internal/domains/room/repository"
	roomService "campus/internal/domains/room/service"
	bookingHandler "campus/internal/handlers/booking"
	roomHandler "campus/internal/handlers/room"
	"campus/permissions"
	"campus/shared/cache"
	"campus/transport/http"
	"campus/transport/http/middleware"
	"campus/transport/http/router"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	s3.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
)

var roomDomain = wire.NewSet(
	roomRepository.New,
	roomService.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingService.New,
)

var domains = wire.NewSet(
	roomDomain,
	bookingDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	roomHandler.New,
	bookingHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}
