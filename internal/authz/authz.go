// Package authz decides whether a caller may perform an action.
//
// Project-scoped permissions come from a flat capability table keyed by
// action; there is no ordering between roles.
package authz

import (
	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/huangang/taskpulse/backend/pkg/response"
)

// Identity is the already-verified caller of a request.
type Identity struct {
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
}

// Action is a project-scoped operation.
type Action string

const (
	ViewProject    Action = "view_project"
	EditProject    Action = "edit_project"
	DeleteProject  Action = "delete_project"
	ManageMembers  Action = "manage_members"
	CreateTask     Action = "create_task"
	EditTask       Action = "edit_task"
	ApproveTask    Action = "approve_task"
	DeleteTask     Action = "delete_task"
	ViewDashboards Action = "view_dashboards"
)

var (
	everyone = []models.MemberRole{models.MemberOwner, models.MemberProjectManager, models.MemberMember}
	managers = []models.MemberRole{models.MemberOwner, models.MemberProjectManager}
	owner    = []models.MemberRole{models.MemberOwner}
)

var capabilities = map[Action][]models.MemberRole{
	ViewProject:    everyone,
	CreateTask:     everyone,
	EditTask:       everyone,
	DeleteTask:     everyone,
	ViewDashboards: everyone,
	EditProject:    managers,
	ManageMembers:  managers,
	ApproveTask:    managers,
	DeleteProject:  owner,
}

var denials = map[Action]string{
	EditProject:   "Only the project owner or a project manager can edit this project",
	ManageMembers: "Only the project owner or a project manager can manage members",
	ApproveTask:   "Only the project owner or a project manager can approve tasks",
	DeleteProject: "Only the project owner can delete this project",
}

// Allowed returns the member roles permitted to perform action.
func Allowed(action Action) []models.MemberRole {
	return capabilities[action]
}

// Can reports whether role may perform action. Unknown actions are denied.
func Can(role models.MemberRole, action Action) bool {
	for _, r := range Allowed(action) {
		if r == role {
			return true
		}
	}
	return false
}

// Require fails with Forbidden unless role may perform action.
func Require(role models.MemberRole, action Action) error {
	if Can(role, action) {
		return nil
	}
	msg, ok := denials[action]
	if !ok {
		msg = "Insufficient permissions"
	}
	return response.NewForbidden(msg)
}

// RequireRole fails with Forbidden unless actual is one of allowed.
func RequireRole(actual models.MemberRole, allowed ...models.MemberRole) error {
	for _, r := range allowed {
		if r == actual {
			return nil
		}
	}
	return response.NewForbidden("Insufficient permissions")
}

// RequireAdmin fails with Forbidden unless the stored user record is an admin.
func RequireAdmin(user *models.User) error {
	if user == nil || user.Role != models.RoleAdmin {
		return response.NewForbidden("Admin access required")
	}
	return nil
}
