package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskpulse/backend/internal/services"
	"github.com/huangang/taskpulse/backend/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// List returns the caller's projects, one page at a time
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	resp, err := h.projectService.List(c.Request.Context(), identity, pageRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// Create creates a project owned by the caller
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req services.CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), identity, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, project)
}

// Get returns a project with its tasks
// GET /api/projects/:projectId
func (h *ProjectHandler) Get(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	detail, err := h.projectService.Get(c.Request.Context(), identity, c.Param("projectId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, detail)
}

// Update updates a project
// PUT /api/projects/:projectId
func (h *ProjectHandler) Update(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req services.UpdateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), identity, c.Param("projectId"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// Delete deletes a project with its tasks and memberships
// DELETE /api/projects/:projectId
func (h *ProjectHandler) Delete(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), identity, c.Param("projectId")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Project deleted"})
}
