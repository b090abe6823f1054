package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskpulse/backend/internal/services"
	"github.com/huangang/taskpulse/backend/pkg/response"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// List returns user profiles. Without ?all=true only project managers and
// admins are listed, which is what the manager picker needs.
// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	if _, ok := caller(c); !ok {
		return
	}
	all, _ := strconv.ParseBool(c.DefaultQuery("all", "false"))

	users, err := h.userService.List(c.Request.Context(), all)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"users": users})
}

// admin answers 401/403 unless the caller is a stored admin.
func (h *UserHandler) admin(c *gin.Context) bool {
	identity, ok := caller(c)
	if !ok {
		return false
	}
	if err := h.userService.RequireAdmin(c.Request.Context(), identity); err != nil {
		response.Error(c, err)
		return false
	}
	return true
}

// Create creates a user
// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	if !h.admin(c) {
		return
	}
	var req services.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user)
}

// Update updates a user's name or role
// PUT /api/users/:email
func (h *UserHandler) Update(c *gin.Context) {
	if !h.admin(c) {
		return
	}
	var req services.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Update(c.Request.Context(), c.Param("email"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// Delete deletes a user
// DELETE /api/users/:email
func (h *UserHandler) Delete(c *gin.Context) {
	if !h.admin(c) {
		return
	}
	identity, _ := caller(c)

	if err := h.userService.Delete(c.Request.Context(), identity, c.Param("email")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "User deleted"})
}
