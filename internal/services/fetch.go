package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/huangang/taskpulse/backend/internal/store"
	"github.com/huangang/taskpulse/backend/pkg/response"
	"golang.org/x/sync/errgroup"
)

// taskFetchConcurrency bounds the parallel task queries of one request.
const taskFetchConcurrency = 8

// PageRequest carries the client pagination parameters of a list call.
type PageRequest struct {
	Limit   int
	NextKey string
}

func (r PageRequest) resolve() (int, *store.Key, error) {
	start, err := store.DecodeCursor(r.NextKey)
	if err != nil {
		return 0, nil, response.NewBadRequest("Invalid pagination cursor")
	}
	limit := r.Limit
	if limit <= 0 {
		limit = store.DefaultPageLimit
	}
	if limit > store.MaxPageLimit {
		limit = store.MaxPageLimit
	}
	return limit, start, nil
}

// getProject loads a live project. Tombstoned projects read as absent.
func getProject(ctx context.Context, s store.Store, projectID string) (*models.Project, error) {
	item, err := s.Get(ctx, models.ProjectKey(projectID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, response.NewNotFound("Project not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", projectID, err)
	}
	p, err := models.ProjectFromItem(item)
	if err != nil {
		return nil, err
	}
	if p.Deleted() {
		return nil, response.NewNotFound("Project not found")
	}
	return p, nil
}

// loadProjects batch-reads the META records of ids and returns the live ones
// in the order of ids.
func loadProjects(ctx context.Context, s store.Store, ids []string) ([]models.Project, error) {
	if len(ids) == 0 {
		return []models.Project{}, nil
	}
	keys := make([]store.Key, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, models.ProjectKey(id))
	}
	items, err := s.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	byID := make(map[string]*models.Project, len(items))
	for _, item := range items {
		p, err := models.ProjectFromItem(item)
		if err != nil {
			return nil, err
		}
		if !p.Deleted() {
			byID[p.ProjectID] = p
		}
	}

	projects := make([]models.Project, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			projects = append(projects, *p)
		}
	}
	return projects, nil
}

// projectTasks reads every task of one project.
func projectTasks(ctx context.Context, s store.Store, projectID string) ([]models.Task, error) {
	items, err := store.QueryAll(ctx, s, models.ProjectTasksQuery(projectID))
	if err != nil {
		return nil, fmt.Errorf("list tasks of %s: %w", projectID, err)
	}
	return models.TasksFromItems(items)
}

// loadTasks reads the tasks of every project in parallel. The result is
// indexed like projects.
func loadTasks(ctx context.Context, s store.Store, projects []models.Project) ([][]models.Task, error) {
	out := make([][]models.Task, len(projects))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(taskFetchConcurrency)
	for i := range projects {
		i := i
		g.Go(func() error {
			tasks, err := projectTasks(ctx, s, projects[i].ProjectID)
			if err != nil {
				return err
			}
			out[i] = tasks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(groups [][]models.Task) []models.Task {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	all := make([]models.Task, 0, n)
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func validDate(s string) bool {
	_, err := time.Parse(models.DateLayout, s)
	return err == nil
}
