package main

import (
	"context"
	"time"

	"github.com/huangang/taskpulse/backend/internal/config"
	"github.com/huangang/taskpulse/backend/internal/handlers"
	"github.com/huangang/taskpulse/backend/internal/membership"
	"github.com/huangang/taskpulse/backend/internal/services"
	"github.com/huangang/taskpulse/backend/internal/store"
	"github.com/huangang/taskpulse/backend/internal/utils"
	"github.com/huangang/taskpulse/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	store       store.Store
	taskQueue   services.TaskQueue
	worker      *services.Worker
	reaper      *services.Reaper
	rateLimiter interface{ Stop() }

	healthHandler    *handlers.HealthHandler
	projectHandler   *handlers.ProjectHandler
	taskHandler      *handlers.TaskHandler
	userHandler      *handlers.UserHandler
	dashboardHandler *handlers.DashboardHandler
}

// bootstrap initializes all application dependencies: store, services, queue, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.Auth.Secret)
	utils.SetJWTIssuer(cfg.Auth.Issuer)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := store.Open(ctx, cfg.Store)
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	logger.Info().Str("driver", cfg.Store.Driver).Str("table", cfg.Store.Table).Msg("Store ready")

	directory := membership.NewDirectory(s)
	users := services.NewUserService(s)
	purger := services.NewPurger(s, directory)

	// Purge queue (uses Redis if enabled, otherwise in-process)
	taskQueue := services.NewTaskQueue(&cfg.Redis, purger.Process)

	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(purger.Process)
			if err := worker.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start purge worker")
			}
		}
	}

	var reaper *services.Reaper
	if cfg.Reaper.Enabled {
		reaper = services.NewReaper(purger, cfg.Reaper.Schedule)
		reaper.SetLocker(services.NewLocker(s))
		if err := reaper.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start reaper")
			reaper = nil
		}
	}

	if err := users.EnsureAdmin(ctx, cfg.Admin); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		store:            s,
		taskQueue:        taskQueue,
		worker:           worker,
		reaper:           reaper,
		healthHandler:    handlers.NewHealthHandler(s, taskQueue),
		projectHandler:   handlers.NewProjectHandler(services.NewProjectService(s, directory, users, purger, taskQueue)),
		taskHandler:      handlers.NewTaskHandler(services.NewTaskService(s, directory)),
		userHandler:      handlers.NewUserHandler(users),
		dashboardHandler: handlers.NewDashboardHandler(services.NewDashboardService(s, directory)),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	if s.reaper != nil {
		s.reaper.Stop()
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	if err := s.store.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close store")
	}
}
