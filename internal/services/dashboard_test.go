package services

import (
	"context"
	"testing"
	"time"

	"github.com/huangang/taskpulse/backend/internal/metrics"
	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_FreshProjectIsOnTrack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "ana@x.io", "Ana", models.RoleMember)
	due := metrics.Today(time.Now().AddDate(0, 0, 30))
	p := f.project(t, ana, "Launch", due)

	for _, s := range []models.TaskStatus{models.TaskTodo, models.TaskInProgress, models.TaskInReview} {
		f.task(t, ana, p.ProjectID, CreateTaskRequest{Title: string(s), Status: s})
	}
	f.task(t, ana, p.ProjectID, CreateTaskRequest{Title: "done", Status: models.TaskCompleted})

	summary, err := f.dashboard.ProjectsSummary(ctx, ana)
	require.NoError(t, err)
	require.Len(t, summary.Projects, 1)
	assert.Equal(t, 44, summary.Projects[0].CompletionPercent)
	assert.Equal(t, metrics.OnTrack, summary.Projects[0].Progress)
	assert.Equal(t, 1, summary.Projects[0].CompletedTasks)
}

func TestDashboardService_OverdueProjectIsDelayed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "ana@x.io", "Ana", models.RoleMember)
	p := f.project(t, ana, "Late", "2000-01-01")
	f.task(t, ana, p.ProjectID, CreateTaskRequest{Title: "a"})
	f.task(t, ana, p.ProjectID, CreateTaskRequest{Title: "b"})
	f.project(t, ana, "Empty", "2099-01-01")

	report, err := f.dashboard.Progress(ctx, ana)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalProjects)
	assert.Equal(t, 2, report.ProjectsHealth.Delayed)
	assert.Equal(t, 0, report.CompletedPercent)
}

func TestDashboardService_ScopedToCaller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "ana@x.io", "Ana", models.RoleMember)
	bo := f.user(t, "bo@x.io", "Bo", models.RoleMember)
	mine := f.project(t, ana, "Mine", "2030-01-01")
	theirs := f.project(t, bo, "Theirs", "2030-01-01")
	f.task(t, ana, mine.ProjectID, CreateTaskRequest{Title: "a", AssigneeID: "ana@x.io", EstimatedHours: 8})
	f.task(t, bo, theirs.ProjectID, CreateTaskRequest{Title: "b", AssigneeID: "bo@x.io", EstimatedHours: 100})

	overview, err := f.dashboard.Overview(ctx, ana, "bogus")
	require.NoError(t, err)
	assert.Equal(t, metrics.Period1Month, overview.Period)
	assert.Equal(t, 1, overview.TotalProjects)
	assert.Equal(t, 1, overview.TotalTasks)
	assert.Equal(t, 1, overview.TeamResourcesCount)
	assert.Equal(t, float64(8), overview.Growth.HoursLogged.Current)
	assert.Equal(t, float64(100), overview.Growth.HoursLogged.Percent)
	assert.Equal(t, float64(1), overview.Growth.ProjectsCreated.Current)
	require.Len(t, overview.RecentTasks, 1)
	assert.Equal(t, "a", overview.RecentTasks[0].Title)
}

func TestDashboardService_TodayTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "ana@x.io", "Ana", models.RoleMember)
	p := f.project(t, ana, "Launch", "2030-01-01")
	today := metrics.Today(time.Now())
	f.task(t, ana, p.ProjectID, CreateTaskRequest{Title: "a", DueDate: today, Category: models.CategoryImportant})
	f.task(t, ana, p.ProjectID, CreateTaskRequest{Title: "b", DueDate: today, Category: models.CategoryNotes})
	f.task(t, ana, p.ProjectID, CreateTaskRequest{Title: "c", DueDate: today, Status: models.TaskCompleted})
	f.task(t, ana, p.ProjectID, CreateTaskRequest{Title: "d", DueDate: "2099-01-01"})

	resp, err := f.dashboard.TodayTasks(ctx, ana)
	require.NoError(t, err)
	assert.Equal(t, today, resp.Date)
	assert.Len(t, resp.Tasks, 2)
	assert.Equal(t, map[string]int{"all": 2, "important": 1, "notes": 1}, resp.CategoryCounts)
}

func TestDashboardService_WorkloadAndResources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "ana@x.io", "Ana", models.RoleMember)
	f.user(t, "bo@x.io", "Bo", models.RoleMember)
	p := f.project(t, ana, "Launch", "2030-01-01")
	f.member(t, ana, p.ProjectID, "bo@x.io", models.MemberMember)
	f.task(t, ana, p.ProjectID, CreateTaskRequest{Title: "a", AssigneeID: "bo@x.io", EstimatedHours: 150})
	f.task(t, ana, p.ProjectID, CreateTaskRequest{Title: "b", AssigneeID: "bo@x.io", EstimatedHours: 50})
	f.task(t, ana, p.ProjectID, CreateTaskRequest{Title: "c", AssigneeID: "ana@x.io", EstimatedHours: 40})
	f.task(t, ana, p.ProjectID, CreateTaskRequest{Title: "d"})

	workload, err := f.dashboard.Workload(ctx, ana, "7days")
	require.NoError(t, err)
	assert.Equal(t, metrics.Period7Days, workload.Period)
	counts := map[string]int{}
	for _, l := range workload.Workload {
		counts[l.AssigneeID] = l.TaskCount
	}
	assert.Equal(t, map[string]int{"bo@x.io": 2, "ana@x.io": 1}, counts)
	require.Len(t, workload.ByProject, 1)
	assert.Len(t, workload.ByProject[0].Members, 2)

	resources, err := f.dashboard.TeamResources(ctx, ana, "1month")
	require.NoError(t, err)
	assert.Equal(t, float64(160), resources.Capacity)
	require.Len(t, resources.Resources, 2)
	byID := map[string]metrics.Resource{}
	for _, r := range resources.Resources {
		byID[r.AssigneeID] = r
	}
	bo := byID["bo@x.io"]
	assert.Equal(t, float64(200), bo.TotalHours)
	assert.Equal(t, float64(0), bo.AvailableHours)
	assert.Equal(t, 100, bo.UtilizationPercent)
	anaRes := byID["ana@x.io"]
	assert.Equal(t, float64(120), anaRes.AvailableHours)
	assert.Equal(t, 25, anaRes.UtilizationPercent)
}
