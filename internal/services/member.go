package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangang/taskpulse/backend/internal/authz"
	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/huangang/taskpulse/backend/internal/store"
	"github.com/huangang/taskpulse/backend/pkg/response"
)

type AddMemberRequest struct {
	Email string            `json:"email" binding:"required,email"`
	Role  models.MemberRole `json:"role"`
}

type SetMemberRoleRequest struct {
	Role models.MemberRole `json:"role" binding:"required"`
}

// manageMembers resolves the caller's right to change the member list of a
// live project.
func (s *ProjectService) manageMembers(ctx context.Context, caller authz.Identity, projectID string) (*models.Project, error) {
	if err := s.canManageMembers(ctx, caller, projectID); err != nil {
		return nil, err
	}
	return getProject(ctx, s.store, projectID)
}

func (s *ProjectService) canManageMembers(ctx context.Context, caller authz.Identity, projectID string) error {
	m, err := s.directory.VerifyMembership(ctx, caller.Email, projectID)
	if err != nil {
		return err
	}
	return authz.Require(m.MemberRole, authz.ManageMembers)
}

func (s *ProjectService) ListMembers(ctx context.Context, caller authz.Identity, projectID string) ([]models.Membership, error) {
	if _, err := s.directory.VerifyMembership(ctx, caller.Email, projectID); err != nil {
		return nil, err
	}
	if _, err := getProject(ctx, s.store, projectID); err != nil {
		return nil, err
	}
	return s.directory.ProjectMembers(ctx, projectID)
}

// AddMember gives an existing user a role in the project.
func (s *ProjectService) AddMember(ctx context.Context, caller authz.Identity, projectID string, req *AddMemberRequest) (*models.Membership, error) {
	if _, err := s.manageMembers(ctx, caller, projectID); err != nil {
		return nil, err
	}

	if req.Role == "" {
		req.Role = models.MemberMember
	}
	if !req.Role.Valid() {
		return nil, response.NewBadRequest("Invalid member role")
	}
	if !req.Role.Assignable() {
		return nil, response.NewForbidden("Ownership cannot be transferred")
	}

	user, err := s.users.Get(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	m := &models.Membership{
		ProjectID:  projectID,
		Email:      user.Email,
		Name:       user.Name,
		MemberRole: req.Role,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.directory.Add(ctx, m); err != nil {
		return nil, err
	}
	if err := s.refreshMembers(ctx, projectID); err != nil {
		return nil, err
	}
	return m, nil
}

// RemoveMember revokes a membership. The owner is never removable and the
// current manager must be reassigned first.
func (s *ProjectService) RemoveMember(ctx context.Context, caller authz.Identity, projectID, email string) error {
	if err := s.canManageMembers(ctx, caller, projectID); err != nil {
		return err
	}

	email = models.NormalizeEmail(email)
	target, err := s.directory.Lookup(ctx, email, projectID)
	if err != nil {
		return err
	}
	if target == nil {
		return response.NewNotFound("Member not found")
	}
	// owner protection applies in every project state
	if target.MemberRole == models.MemberOwner {
		return response.NewForbidden("The project owner cannot be removed")
	}

	project, err := getProject(ctx, s.store, projectID)
	if err != nil {
		return err
	}
	if project.ManagerID == email {
		return response.NewBadRequest("Reassign the project manager before removing them")
	}

	if _, err := s.directory.Remove(ctx, email, projectID); err != nil {
		return err
	}
	return s.refreshMembers(ctx, projectID)
}

// SetMemberRole switches a member between project_manager and member.
func (s *ProjectService) SetMemberRole(ctx context.Context, caller authz.Identity, projectID, email string, req *SetMemberRoleRequest) (*models.Membership, error) {
	if _, err := s.manageMembers(ctx, caller, projectID); err != nil {
		return nil, err
	}
	m, err := s.directory.SetRole(ctx, models.NormalizeEmail(email), projectID, req.Role)
	if err != nil {
		return nil, err
	}
	if err := s.refreshMembers(ctx, projectID); err != nil {
		return nil, err
	}
	return m, nil
}

// refreshMembers rewrites the members[] display copy from the membership records.
func (s *ProjectService) refreshMembers(ctx context.Context, projectID string) error {
	memberships, err := s.directory.ProjectMembers(ctx, projectID)
	if err != nil {
		return err
	}
	members := make([]any, 0, len(memberships))
	for _, m := range memberships {
		members = append(members, map[string]any{
			"email": m.Email,
			"name":  m.Name,
			"role":  string(m.MemberRole),
		})
	}

	_, err = s.store.Update(ctx, models.ProjectKey(projectID), map[string]any{
		"members":   members,
		"updatedAt": timestamp(s.now()),
	}, store.MustExist)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return response.NewNotFound("Project not found")
	}
	if err != nil {
		return fmt.Errorf("refresh members of %s: %w", projectID, err)
	}
	return nil
}
