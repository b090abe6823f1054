// Package models defines the tracker entities and how each one is laid out
// in the entity table.
package models

import "strings"

// Role is a system-wide user role.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleProjectManager Role = "project_manager"
	RoleMember         Role = "member"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProjectManager, RoleMember:
		return true
	}
	return false
}

// MemberRole is a user's role inside one project.
type MemberRole string

const (
	MemberOwner          MemberRole = "owner"
	MemberProjectManager MemberRole = "project_manager"
	MemberMember         MemberRole = "member"
)

func (r MemberRole) Valid() bool {
	switch r {
	case MemberOwner, MemberProjectManager, MemberMember:
		return true
	}
	return false
}

// Assignable reports whether r may be granted after project creation.
// Ownership is only ever assigned to the creator.
func (r MemberRole) Assignable() bool {
	return r == MemberProjectManager || r == MemberMember
}

type ProjectStatus string

const (
	ProjectActive ProjectStatus = "active"
	ProjectPaused ProjectStatus = "paused"
)

func (s ProjectStatus) Valid() bool {
	return s == ProjectActive || s == ProjectPaused
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskInReview   TaskStatus = "in_review"
	TaskApproved   TaskStatus = "approved"
	TaskCompleted  TaskStatus = "completed"
)

// TaskStatuses lists every status in workflow order.
var TaskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskInReview, TaskApproved, TaskCompleted}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Category string

const (
	CategoryImportant Category = "important"
	CategoryLink      Category = "link"
	CategoryNotes     Category = "notes"
)

// Categories lists every task category.
var Categories = []Category{CategoryImportant, CategoryLink, CategoryNotes}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Date layout of dueDate attributes.
const DateLayout = "2006-01-02"

// NormalizeEmail lower-cases and trims an address so it can be used in keys.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
