package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskpulse/backend/internal/services"
	"github.com/huangang/taskpulse/backend/pkg/response"
)

// ListMembers returns the membership records of a project
// GET /api/projects/:projectId/members
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	members, err := h.projectService.ListMembers(c.Request.Context(), identity, c.Param("projectId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"members": members})
}

// AddMember adds a user to a project
// POST /api/projects/:projectId/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req services.AddMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.projectService.AddMember(c.Request.Context(), identity, c.Param("projectId"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, member)
}

// SetMemberRole changes a member's project role
// PUT /api/projects/:projectId/members/:email
func (h *ProjectHandler) SetMemberRole(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req services.SetMemberRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.projectService.SetMemberRole(c.Request.Context(), identity, c.Param("projectId"), c.Param("email"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, member)
}

// RemoveMember revokes a membership
// DELETE /api/projects/:projectId/members/:email
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	if err := h.projectService.RemoveMember(c.Request.Context(), identity, c.Param("projectId"), c.Param("email")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Member removed"})
}
