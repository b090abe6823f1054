package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangang/taskpulse/backend/internal/authz"
	"github.com/huangang/taskpulse/backend/internal/membership"
	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/huangang/taskpulse/backend/internal/store"
	"github.com/huangang/taskpulse/backend/pkg/response"
)

type TaskService struct {
	store     store.Store
	directory *membership.Directory
	now       func() time.Time
}

func NewTaskService(s store.Store, directory *membership.Directory) *TaskService {
	return &TaskService{store: s, directory: directory, now: time.Now}
}

type CreateTaskRequest struct {
	Title          string            `json:"title" binding:"required,max=150"`
	Description    string            `json:"description" binding:"max=500"`
	Status         models.TaskStatus `json:"status"`
	Priority       models.Priority   `json:"priority"`
	Category       models.Category   `json:"category"`
	AssigneeID     string            `json:"assigneeId"`
	EstimatedHours float64           `json:"estimatedHours" binding:"min=0"`
	DueDate        string            `json:"dueDate"`
}

// UpdateTaskRequest edits a task. An empty assigneeId unassigns it.
type UpdateTaskRequest struct {
	Title          *string            `json:"title" binding:"omitempty,min=1,max=150"`
	Description    *string            `json:"description" binding:"omitempty,max=500"`
	Status         *models.TaskStatus `json:"status"`
	Priority       *models.Priority   `json:"priority"`
	Category       *models.Category   `json:"category"`
	AssigneeID     *string            `json:"assigneeId"`
	EstimatedHours *float64           `json:"estimatedHours" binding:"omitempty,min=0"`
	DueDate        *string            `json:"dueDate"`
}

type TaskListResponse struct {
	Tasks   []models.Task `json:"tasks"`
	NextKey string        `json:"nextKey,omitempty"`
}

// access verifies membership and the permission for action on a live project.
func (s *TaskService) access(ctx context.Context, caller authz.Identity, projectID string, action authz.Action) (*models.Membership, *models.Project, error) {
	m, err := s.directory.VerifyMembership(ctx, caller.Email, projectID)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.Require(m.MemberRole, action); err != nil {
		return nil, nil, err
	}
	p, err := getProject(ctx, s.store, projectID)
	if err != nil {
		return nil, nil, err
	}
	return m, p, nil
}

// assignee resolves a prospective assignee, who must be a member of the project.
func (s *TaskService) assignee(ctx context.Context, email, projectID string) (*models.Membership, error) {
	m, err := s.directory.Lookup(ctx, models.NormalizeEmail(email), projectID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, response.NewBadRequest("Assignee must be a member of this project")
	}
	return m, nil
}

func checkTaskFields(status *models.TaskStatus, priority *models.Priority, category *models.Category, dueDate *string) error {
	if status != nil && !status.Valid() {
		return response.NewBadRequest("Status must be todo, in_progress, in_review, approved or completed")
	}
	if priority != nil && !priority.Valid() {
		return response.NewBadRequest("Priority must be low, medium, high or urgent")
	}
	if category != nil && *category != "" && !category.Valid() {
		return response.NewBadRequest("Category must be important, link or notes")
	}
	if dueDate != nil && *dueDate != "" && !validDate(*dueDate) {
		return response.NewBadRequest("Due date must be a valid date (YYYY-MM-DD)")
	}
	return nil
}

func (s *TaskService) Create(ctx context.Context, caller authz.Identity, projectID string, req *CreateTaskRequest) (*models.Task, error) {
	m, project, err := s.access(ctx, caller, projectID, authz.CreateTask)
	if err != nil {
		return nil, err
	}

	if req.Status == "" {
		req.Status = models.TaskTodo
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if err := checkTaskFields(&req.Status, &req.Priority, &req.Category, &req.DueDate); err != nil {
		return nil, err
	}
	if req.Status == models.TaskApproved {
		if err := authz.Require(m.MemberRole, authz.ApproveTask); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	task := &models.Task{
		TaskID:         uuid.NewString(),
		ProjectID:      projectID,
		ProjectName:    project.Name,
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		Category:       req.Category,
		EstimatedHours: req.EstimatedHours,
		DueDate:        req.DueDate,
		CreatedBy:      models.NormalizeEmail(caller.Email),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.AssigneeID != "" {
		a, err := s.assignee(ctx, req.AssigneeID, projectID)
		if err != nil {
			return nil, err
		}
		task.AssigneeID = a.Email
		task.AssigneeName = a.Name
	}

	item, err := task.Item()
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, item, store.MustNotExist); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// List returns one page of a project's tasks.
func (s *TaskService) List(ctx context.Context, caller authz.Identity, projectID string, page PageRequest) (*TaskListResponse, error) {
	limit, start, err := page.resolve()
	if err != nil {
		return nil, err
	}
	if _, _, err := s.access(ctx, caller, projectID, authz.ViewProject); err != nil {
		return nil, err
	}

	q := models.ProjectTasksQuery(projectID)
	q.Limit = limit
	q.StartKey = start
	return s.page(ctx, q, false)
}

// Mine returns one page of the tasks assigned to the caller.
func (s *TaskService) Mine(ctx context.Context, caller authz.Identity, page PageRequest) (*TaskListResponse, error) {
	limit, start, err := page.resolve()
	if err != nil {
		return nil, err
	}
	q := models.AssigneeTasksQuery(models.NormalizeEmail(caller.Email))
	q.Limit = limit
	q.StartKey = start
	return s.page(ctx, q, true)
}

// page runs q. When hideDeleted is set, tasks of tombstoned projects are
// dropped from the page.
func (s *TaskService) page(ctx context.Context, q store.Query, hideDeleted bool) (*TaskListResponse, error) {
	p, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks, err := models.TasksFromItems(p.Items)
	if err != nil {
		return nil, err
	}

	if hideDeleted && len(tasks) > 0 {
		seen := map[string]bool{}
		var ids []string
		for _, t := range tasks {
			if !seen[t.ProjectID] {
				seen[t.ProjectID] = true
				ids = append(ids, t.ProjectID)
			}
		}
		live, err := loadProjects(ctx, s.store, ids)
		if err != nil {
			return nil, err
		}
		alive := make(map[string]bool, len(live))
		for _, p := range live {
			alive[p.ProjectID] = true
		}
		kept := tasks[:0]
		for _, t := range tasks {
			if alive[t.ProjectID] {
				kept = append(kept, t)
			}
		}
		tasks = kept
	}

	return &TaskListResponse{Tasks: tasks, NextKey: store.EncodeCursor(p.LastKey)}, nil
}

func (s *TaskService) Get(ctx context.Context, caller authz.Identity, projectID, taskID string) (*models.Task, error) {
	if _, _, err := s.access(ctx, caller, projectID, authz.ViewProject); err != nil {
		return nil, err
	}
	item, err := s.store.Get(ctx, models.TaskKey(projectID, taskID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, response.NewNotFound("Task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return models.TaskFromItem(item)
}

// Update edits a task. Moving it to approved takes a manager; reassigning it
// moves its index entry to the new assignee.
func (s *TaskService) Update(ctx context.Context, caller authz.Identity, projectID, taskID string, req *UpdateTaskRequest) (*models.Task, error) {
	m, _, err := s.access(ctx, caller, projectID, authz.EditTask)
	if err != nil {
		return nil, err
	}
	if err := checkTaskFields(req.Status, req.Priority, req.Category, req.DueDate); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Status != nil {
		if *req.Status == models.TaskApproved {
			if err := authz.Require(m.MemberRole, authz.ApproveTask); err != nil {
				return nil, err
			}
		}
		fields["status"] = string(*req.Status)
	}
	if req.Priority != nil {
		fields["priority"] = string(*req.Priority)
	}
	if req.Category != nil {
		if *req.Category == "" {
			fields["category"] = nil
		} else {
			fields["category"] = string(*req.Category)
		}
	}
	if req.EstimatedHours != nil {
		fields["estimatedHours"] = *req.EstimatedHours
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			fields["dueDate"] = nil
		} else {
			fields["dueDate"] = *req.DueDate
		}
	}
	if req.AssigneeID != nil {
		if *req.AssigneeID == "" {
			fields["assigneeId"] = nil
			fields["assigneeName"] = nil
			fields[store.AttrGSI1PK] = nil
			fields[store.AttrGSI1SK] = nil
		} else {
			a, err := s.assignee(ctx, *req.AssigneeID, projectID)
			if err != nil {
				return nil, err
			}
			fields["assigneeId"] = a.Email
			fields["assigneeName"] = a.Name
			fields[store.AttrGSI1PK] = models.PrefixAssignee + a.Email
			fields[store.AttrGSI1SK] = models.PrefixTask + taskID
		}
	}
	if len(fields) == 0 {
		return nil, response.NewBadRequest("No fields to update")
	}
	fields["updatedAt"] = timestamp(s.now())

	item, err := s.store.Update(ctx, models.TaskKey(projectID, taskID), fields, store.MustExist)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return nil, response.NewNotFound("Task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return models.TaskFromItem(item)
}

func (s *TaskService) Delete(ctx context.Context, caller authz.Identity, projectID, taskID string) error {
	if _, _, err := s.access(ctx, caller, projectID, authz.DeleteTask); err != nil {
		return err
	}
	err := s.store.Delete(ctx, models.TaskKey(projectID, taskID), store.MustExist)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return response.NewNotFound("Task not found")
	}
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
