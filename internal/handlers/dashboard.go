package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskpulse/backend/internal/services"
	"github.com/huangang/taskpulse/backend/pkg/response"
)

// DashboardHandler serves the derived metrics of the caller's projects.
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Overview GET /api/dashboard/overview?period=1month
func (h *DashboardHandler) Overview(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	resp, err := h.dashboardService.Overview(c.Request.Context(), identity, c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// Progress GET /api/dashboard/progress
func (h *DashboardHandler) Progress(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	resp, err := h.dashboardService.Progress(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// ProjectsSummary GET /api/dashboard/projects-summary
func (h *DashboardHandler) ProjectsSummary(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	resp, err := h.dashboardService.ProjectsSummary(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// TodayTasks GET /api/dashboard/today-tasks
func (h *DashboardHandler) TodayTasks(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	resp, err := h.dashboardService.TodayTasks(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// Workload GET /api/dashboard/workload?period=1month
func (h *DashboardHandler) Workload(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	resp, err := h.dashboardService.Workload(c.Request.Context(), identity, c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// TeamResources GET /api/dashboard/team-resources?period=1month
func (h *DashboardHandler) TeamResources(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	resp, err := h.dashboardService.TeamResources(c.Request.Context(), identity, c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}
