package app

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"service-availability/internal/cache"
	"service-availability/internal/config"
	transport "service-availability/internal/http"
	"service-availability/internal/http/handlers"
	"service-availability/internal/repository"
	"service-availability/internal/service"
)

type App struct {
	router *echo.Echo
}

func New(db *sql.DB, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	dayCache, err := cache.NewDayCache(cfg.DayCacheSize)
	if err != nil {
		return nil, err
	}

	txManager := repository.NewPostgresTxManager(db)
	directory := service.NewDirectoryHTTPClient(cfg.DirectoryBaseURL, service.DefaultDirectoryHTTPClient())
	availabilityService := service.NewAvailabilityService(
		txManager,
		directory,
		dayCache,
		logger,
		cfg.MaxRangeDays,
		cfg.StoreTimeout,
	)

	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService)
	router := transport.NewRouter(logger, availabilityHandler)

	return &App{router: router}, nil
}

func (a *App) Handler() http.Handler {
	return a.router
}
