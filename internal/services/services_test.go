package services

import (
	"context"
	"sync"
	"testing"

	"github.com/huangang/taskpulse/backend/internal/authz"
	"github.com/huangang/taskpulse/backend/internal/membership"
	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/huangang/taskpulse/backend/internal/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// recordingQueue keeps enqueued purges instead of running them.
type recordingQueue struct {
	mu    sync.Mutex
	tasks []*PurgeTask
}

func (q *recordingQueue) Enqueue(task *PurgeTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *recordingQueue) IsAsync() bool { return false }
func (q *recordingQueue) Close() error  { return nil }

type fixture struct {
	store     store.Store
	directory *membership.Directory
	users     *UserService
	projects  *ProjectService
	tasks     *TaskService
	dashboard *DashboardService
	purger    *Purger
	queue     *recordingQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	dir := membership.NewDirectory(s)
	users := NewUserService(s)
	users.cost = bcrypt.MinCost
	purger := NewPurger(s, dir)
	queue := &recordingQueue{}

	return &fixture{
		store:     s,
		directory: dir,
		users:     users,
		projects:  NewProjectService(s, dir, users, purger, queue),
		tasks:     NewTaskService(s, dir),
		dashboard: NewDashboardService(s, dir),
		purger:    purger,
		queue:     queue,
	}
}

// user registers an account and returns the identity a verified token would carry.
func (f *fixture) user(t *testing.T, email, name string, role models.Role) authz.Identity {
	t.Helper()
	_, err := f.users.Create(context.Background(), &CreateUserRequest{
		Email: email, Name: name, Role: role, Password: "secret1",
	})
	require.NoError(t, err)
	return authz.Identity{Email: email, Name: name, Role: role}
}

func (f *fixture) project(t *testing.T, owner authz.Identity, name, dueDate string) *ProjectView {
	t.Helper()
	p, err := f.projects.Create(context.Background(), owner, &CreateProjectRequest{Name: name, DueDate: dueDate})
	require.NoError(t, err)
	return p
}

func (f *fixture) member(t *testing.T, owner authz.Identity, projectID, email string, role models.MemberRole) {
	t.Helper()
	_, err := f.projects.AddMember(context.Background(), owner, projectID, &AddMemberRequest{Email: email, Role: role})
	require.NoError(t, err)
}

func (f *fixture) task(t *testing.T, caller authz.Identity, projectID string, req CreateTaskRequest) *models.Task {
	t.Helper()
	task, err := f.tasks.Create(context.Background(), caller, projectID, &req)
	require.NoError(t, err)
	return task
}

func ptr[T any](v T) *T { return &v }
