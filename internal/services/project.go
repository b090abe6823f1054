package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangang/taskpulse/backend/internal/authz"
	"github.com/huangang/taskpulse/backend/internal/membership"
	"github.com/huangang/taskpulse/backend/internal/metrics"
	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/huangang/taskpulse/backend/internal/store"
	"github.com/huangang/taskpulse/backend/pkg/logger"
	"github.com/huangang/taskpulse/backend/pkg/response"
)

type ProjectService struct {
	store     store.Store
	directory *membership.Directory
	users     *UserService
	purger    *Purger
	queue     TaskQueue
	now       func() time.Time
}

func NewProjectService(s store.Store, directory *membership.Directory, users *UserService, purger *Purger, queue TaskQueue) *ProjectService {
	return &ProjectService{
		store:     s,
		directory: directory,
		users:     users,
		purger:    purger,
		queue:     queue,
		now:       time.Now,
	}
}

type CreateProjectRequest struct {
	Name        string               `json:"name" binding:"required,max=100"`
	Description string               `json:"description" binding:"max=500"`
	Status      models.ProjectStatus `json:"status"`
	ManagerID   string               `json:"managerId"`
	DueDate     string               `json:"dueDate" binding:"required"`
}

type UpdateProjectRequest struct {
	Name        *string               `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string               `json:"description" binding:"omitempty,max=500"`
	Status      *models.ProjectStatus `json:"status"`
	ManagerID   *string               `json:"managerId"`
	DueDate     *string               `json:"dueDate"`
}

// ProjectView is a project with the figures derived from its tasks.
type ProjectView struct {
	models.Project
	MemberRole        models.MemberRole `json:"memberRole,omitempty"`
	TotalTasks        int               `json:"totalTasks"`
	CompletedTasks    int               `json:"completedTasks"`
	TotalHours        float64           `json:"totalHours"`
	CompletedHours    float64           `json:"completedHours"`
	CompletionPercent int               `json:"completionPercent"`
	Health            metrics.Health    `json:"health"`
}

type ProjectListResponse struct {
	Projects []ProjectView `json:"projects"`
	NextKey  string        `json:"nextKey,omitempty"`
}

type ProjectDetail struct {
	Project ProjectView   `json:"project"`
	Tasks   []models.Task `json:"tasks"`
}

func (s *ProjectService) view(p *models.Project, tasks []models.Task, role models.MemberRole) ProjectView {
	sum := metrics.SummarizeProject(p, tasks, s.now())
	return ProjectView{
		Project:           *p,
		MemberRole:        role,
		TotalTasks:        sum.TotalTasks,
		CompletedTasks:    sum.CompletedTasks,
		TotalHours:        sum.TotalHours,
		CompletedHours:    sum.CompletedHours,
		CompletionPercent: sum.CompletionPercent,
		Health:            sum.Progress,
	}
}

// Create stores a new project owned by the caller. A manager other than the
// caller must be an existing user and joins as project manager.
func (s *ProjectService) Create(ctx context.Context, caller authz.Identity, req *CreateProjectRequest) (*ProjectView, error) {
	if req.Status == "" {
		req.Status = models.ProjectActive
	}
	if !req.Status.Valid() {
		return nil, response.NewBadRequest("Status must be active or paused")
	}
	if !validDate(req.DueDate) {
		return nil, response.NewBadRequest("Due date must be a valid date (YYYY-MM-DD)")
	}

	ownerEmail := models.NormalizeEmail(caller.Email)
	now := s.now().UTC()
	project := &models.Project{
		ProjectID:   uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		ManagerID:   ownerEmail,
		ManagerName: caller.Name,
		DueDate:     req.DueDate,
		CreatedBy:   ownerEmail,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	memberships := []*models.Membership{{
		ProjectID:  project.ProjectID,
		Email:      ownerEmail,
		Name:       caller.Name,
		MemberRole: models.MemberOwner,
		CreatedAt:  now,
	}}

	if managerID := models.NormalizeEmail(req.ManagerID); managerID != "" && managerID != ownerEmail {
		manager, err := s.users.Get(ctx, managerID)
		if response.IsNotFound(err) {
			return nil, response.NewBadRequest("Manager must be an existing user")
		}
		if err != nil {
			return nil, err
		}
		project.ManagerID = manager.Email
		project.ManagerName = manager.Name
		memberships = append(memberships, &models.Membership{
			ProjectID:  project.ProjectID,
			Email:      manager.Email,
			Name:       manager.Name,
			MemberRole: models.MemberProjectManager,
			CreatedAt:  now,
		})
	}

	for _, m := range memberships {
		project.Members = append(project.Members, m.Summary())
	}

	item, err := project.Item()
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, item, store.MustNotExist); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	for _, m := range memberships {
		if err := s.directory.Add(ctx, m); err != nil {
			if perr := s.purger.Purge(ctx, project.ProjectID); perr != nil {
				logger.Errorf("[Projects] Rollback of %s failed: %v", project.ProjectID, perr)
			}
			return nil, fmt.Errorf("add %s to project: %w", m.Email, err)
		}
	}

	v := s.view(project, nil, models.MemberOwner)
	return &v, nil
}

// List returns one page of the caller's projects.
func (s *ProjectService) List(ctx context.Context, caller authz.Identity, page PageRequest) (*ProjectListResponse, error) {
	limit, start, err := page.resolve()
	if err != nil {
		return nil, err
	}

	memberships, last, err := s.directory.UserMembershipsPage(ctx, caller.Email, limit, start)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(memberships))
	roles := make(map[string]models.MemberRole, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.ProjectID)
		roles[m.ProjectID] = m.MemberRole
	}

	projects, err := loadProjects(ctx, s.store, ids)
	if err != nil {
		return nil, err
	}
	tasks, err := loadTasks(ctx, s.store, projects)
	if err != nil {
		return nil, err
	}

	resp := &ProjectListResponse{
		Projects: make([]ProjectView, 0, len(projects)),
		NextKey:  store.EncodeCursor(last),
	}
	for i := range projects {
		resp.Projects = append(resp.Projects, s.view(&projects[i], tasks[i], roles[projects[i].ProjectID]))
	}
	return resp, nil
}

func (s *ProjectService) Get(ctx context.Context, caller authz.Identity, projectID string) (*ProjectDetail, error) {
	m, err := s.directory.VerifyMembership(ctx, caller.Email, projectID)
	if err != nil {
		return nil, err
	}
	project, err := getProject(ctx, s.store, projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := projectTasks(ctx, s.store, projectID)
	if err != nil {
		return nil, err
	}
	return &ProjectDetail{Project: s.view(project, tasks, m.MemberRole), Tasks: tasks}, nil
}

// Update edits the project. A new manager must already be a member.
func (s *ProjectService) Update(ctx context.Context, caller authz.Identity, projectID string, req *UpdateProjectRequest) (*models.Project, error) {
	m, err := s.directory.VerifyMembership(ctx, caller.Email, projectID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(m.MemberRole, authz.EditProject); err != nil {
		return nil, err
	}
	if _, err := getProject(ctx, s.store, projectID); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, response.NewBadRequest("Status must be active or paused")
		}
		fields["status"] = string(*req.Status)
	}
	if req.DueDate != nil {
		if !validDate(*req.DueDate) {
			return nil, response.NewBadRequest("Due date must be a valid date (YYYY-MM-DD)")
		}
		fields["dueDate"] = *req.DueDate
	}
	if req.ManagerID != nil {
		manager, err := s.directory.Lookup(ctx, models.NormalizeEmail(*req.ManagerID), projectID)
		if err != nil {
			return nil, err
		}
		if manager == nil {
			return nil, response.NewBadRequest("Manager must be a member of this project")
		}
		fields["managerId"] = manager.Email
		fields["managerName"] = manager.Name
	}
	if len(fields) == 0 {
		return nil, response.NewBadRequest("No fields to update")
	}
	fields["updatedAt"] = timestamp(s.now())

	item, err := s.store.Update(ctx, models.ProjectKey(projectID), fields, store.MustExist)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return nil, response.NewNotFound("Project not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return models.ProjectFromItem(item)
}

// Delete tombstones the project and purges its records. A purge that fails
// is handed to the queue; the tombstone already hides the project.
func (s *ProjectService) Delete(ctx context.Context, caller authz.Identity, projectID string) error {
	m, err := s.directory.VerifyMembership(ctx, caller.Email, projectID)
	if err != nil {
		return err
	}
	if err := authz.Require(m.MemberRole, authz.DeleteProject); err != nil {
		return err
	}
	if _, err := getProject(ctx, s.store, projectID); err != nil {
		return err
	}

	markedAt := s.now().UTC()
	_, err = s.store.Update(ctx, models.ProjectKey(projectID), map[string]any{"deletedAt": timestamp(markedAt)}, store.MustExist)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return response.NewNotFound("Project not found")
	}
	if err != nil {
		return fmt.Errorf("mark project %s deleted: %w", projectID, err)
	}

	if err := s.purger.Purge(ctx, projectID); err != nil {
		logger.Warnf("[Projects] Purge of %s deferred: %v", projectID, err)
		if qerr := s.queue.Enqueue(&PurgeTask{ProjectID: projectID, MarkedAt: markedAt}); qerr != nil {
			logger.Errorf("[Projects] Enqueue purge of %s failed, left to the reaper: %v", projectID, qerr)
		}
	}
	return nil
}
