package main

import (
	"campus/config"
	"campus/di"
	"campus/helper"
	"campus/shared/logger"

	"github.com/rs/zerolog/log"
)

// @title Campus Scheduling API
// @version 1.0
// @description Exam slot and timetable booking with room, staff and class conflict detection.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Get()

	logger.InitLogger()
	logger.Configure(cfg)

	if cfg.DB.Postgres.AutoMigrate {
		if err := helper.Up(cfg); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	http := di.InitializeService()
	http.Serve()
}
