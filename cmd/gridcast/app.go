package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/gridcast/internal/artifact"
	"github.com/yourusername/gridcast/internal/config"
	"github.com/yourusername/gridcast/internal/database"
	"github.com/yourusername/gridcast/internal/datasource"
	"github.com/yourusername/gridcast/internal/repository"
	"github.com/yourusername/gridcast/internal/service"
)

// app holds the dependencies shared by every command.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	writer *artifact.AtomicWriter
	db     *database.DB
	repos  *repository.Repositories
}

func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log, writer: artifact.NewAtomicWriter()}
	if !cfg.UsesPostgres() {
		return a, nil
	}

	db, err := database.Initialize(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.db, a.repos = db, repos
	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

// feeds builds a fresh feed set. CSV feeds cache their rows, so each run
// that must observe new data gets its own set.
func (a *app) feeds() (*datasource.Feeds, error) {
	factory := datasource.NewFactory(a.cfg, a.logger)
	if a.repos != nil {
		factory = factory.WithMatchStore(a.repos.Match)
	}
	return factory.Build()
}

func (a *app) forecastService(feeds *datasource.Feeds) *service.ForecastService {
	return service.NewForecastService(a.cfg, feeds, a.writer, a.logger)
}

func (a *app) validationService(feeds *datasource.Feeds) (*service.ValidationService, error) {
	var store repository.ValidationRepository
	if a.repos != nil && a.cfg.Storage.Driver == "postgres" {
		store = a.repos.Validation
	}
	return service.NewValidationService(a.cfg, feeds, a.writer, store, a.logger)
}

// predictNext forecasts the next week with fixtures inside the horizon.
func (a *app) predictNext(ctx context.Context) (*service.ForecastResult, error) {
	feeds, err := a.feeds()
	if err != nil {
		return nil, err
	}
	defer feeds.Close()

	svc := a.forecastService(feeds)
	season, week, ok, err := svc.NextWeek(ctx, horizon(a.cfg))
	if err != nil {
		return nil, err
	}
	if !ok {
		a.logger.Info("No upcoming fixtures inside the horizon")
		return nil, nil
	}
	return svc.Run(ctx, season, week)
}

// validatePending validates the latest finished week that has not been validated yet.
func (a *app) validatePending(ctx context.Context) error {
	feeds, err := a.feeds()
	if err != nil {
		return err
	}
	defer feeds.Close()

	svc, err := a.validationService(feeds)
	if err != nil {
		return err
	}
	season, week, ok, err := svc.PendingWeek(ctx)
	if err != nil {
		return err
	}
	if !ok {
		a.logger.Info("No finished week awaiting validation")
		return nil
	}
	_, err = svc.Run(ctx, "", season, week)
	return err
}
