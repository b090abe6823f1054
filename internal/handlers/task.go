package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskpulse/backend/internal/services"
	"github.com/huangang/taskpulse/backend/pkg/response"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// List returns the tasks of a project
// GET /api/projects/:projectId/tasks
func (h *TaskHandler) List(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	resp, err := h.taskService.List(c.Request.Context(), identity, c.Param("projectId"), pageRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// Mine returns the tasks assigned to the caller across projects
// GET /api/tasks/mine
func (h *TaskHandler) Mine(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	resp, err := h.taskService.Mine(c.Request.Context(), identity, pageRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// Create creates a task
// POST /api/projects/:projectId/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req services.CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), identity, c.Param("projectId"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, task)
}

// Get returns one task
// GET /api/projects/:projectId/tasks/:taskId
func (h *TaskHandler) Get(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	task, err := h.taskService.Get(c.Request.Context(), identity, c.Param("projectId"), c.Param("taskId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Update updates a task
// PUT /api/projects/:projectId/tasks/:taskId
func (h *TaskHandler) Update(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req services.UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), identity, c.Param("projectId"), c.Param("taskId"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Delete deletes a task
// DELETE /api/projects/:projectId/tasks/:taskId
func (h *TaskHandler) Delete(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), identity, c.Param("projectId"), c.Param("taskId")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Task deleted"})
}
