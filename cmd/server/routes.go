package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskpulse/backend/internal/config"
	"github.com/huangang/taskpulse/backend/internal/handlers"
	"github.com/huangang/taskpulse/backend/internal/middleware"
	"github.com/huangang/taskpulse/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.ServerConfig, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(cfg.CORSOrigin))

	r.NoRoute(handlers.NoRoute)
	r.GET("/health", svc.healthHandler.CheckHealth)

	api := r.Group("/api")
	if cfg.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
		svc.rateLimiter = limiter
		api.Use(limiter.Middleware())
	}
	api.Use(middleware.AuthRequired(), middleware.AuditLog())
	{
		// Projects
		api.GET("/projects", svc.projectHandler.List)
		api.POST("/projects", svc.projectHandler.Create)
		api.GET("/projects/:projectId", svc.projectHandler.Get)
		api.PUT("/projects/:projectId", svc.projectHandler.Update)
		api.DELETE("/projects/:projectId", svc.projectHandler.Delete)

		// Members
		api.GET("/projects/:projectId/members", svc.projectHandler.ListMembers)
		api.POST("/projects/:projectId/members", svc.projectHandler.AddMember)
		api.PUT("/projects/:projectId/members/:email", svc.projectHandler.SetMemberRole)
		api.DELETE("/projects/:projectId/members/:email", svc.projectHandler.RemoveMember)

		// Tasks
		api.GET("/projects/:projectId/tasks", svc.taskHandler.List)
		api.POST("/projects/:projectId/tasks", svc.taskHandler.Create)
		api.GET("/projects/:projectId/tasks/:taskId", svc.taskHandler.Get)
		api.PUT("/projects/:projectId/tasks/:taskId", svc.taskHandler.Update)
		api.DELETE("/projects/:projectId/tasks/:taskId", svc.taskHandler.Delete)
		api.GET("/tasks/mine", svc.taskHandler.Mine)

		// Users (writes are admin only)
		api.GET("/users", svc.userHandler.List)
		api.POST("/users", svc.userHandler.Create)
		api.PUT("/users/:email", svc.userHandler.Update)
		api.DELETE("/users/:email", svc.userHandler.Delete)

		// Dashboard
		dashboard := api.Group("/dashboard")
		dashboard.GET("/overview", svc.dashboardHandler.Overview)
		dashboard.GET("/progress", svc.dashboardHandler.Progress)
		dashboard.GET("/projects-summary", svc.dashboardHandler.ProjectsSummary)
		dashboard.GET("/today-tasks", svc.dashboardHandler.TodayTasks)
		dashboard.GET("/workload", svc.dashboardHandler.Workload)
		dashboard.GET("/team-resources", svc.dashboardHandler.TeamResources)
	}
}
