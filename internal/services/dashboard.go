package services

import (
	"context"
	"time"

	"github.com/huangang/taskpulse/backend/internal/authz"
	"github.com/huangang/taskpulse/backend/internal/membership"
	"github.com/huangang/taskpulse/backend/internal/metrics"
	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/huangang/taskpulse/backend/internal/store"
)

// recentTaskCount is the length of the overview's recent task list.
const recentTaskCount = 10

// DashboardService derives every dashboard from the projects the caller
// belongs to. Nothing it returns is stored.
type DashboardService struct {
	store     store.Store
	directory *membership.Directory
	now       func() time.Time
}

func NewDashboardService(s store.Store, directory *membership.Directory) *DashboardService {
	return &DashboardService{store: s, directory: directory, now: time.Now}
}

type OverviewResponse struct {
	Period             metrics.Period          `json:"period"`
	TotalProjects      int                     `json:"totalProjects"`
	TotalTasks         int                     `json:"totalTasks"`
	TeamResourcesCount int                     `json:"teamResourcesCount"`
	Growth             metrics.DashboardGrowth `json:"growth"`
	TaskMetrics        metrics.TaskMetrics     `json:"taskMetrics"`
	RecentTasks        []models.Task           `json:"recentTasks"`
}

type ProjectsSummaryResponse struct {
	Projects []metrics.ProjectSummary `json:"projects"`
}

type TodayTasksResponse struct {
	Date           string              `json:"date"`
	Tasks          []metrics.TodayTask `json:"tasks"`
	CategoryCounts map[string]int      `json:"categoryCounts"`
}

type WorkloadResponse struct {
	Period    metrics.Period            `json:"period"`
	Workload  []metrics.AssigneeLoad    `json:"workload"`
	ByProject []metrics.ProjectWorkload `json:"byProject"`
}

type TeamResourcesResponse struct {
	Period        metrics.Period     `json:"period"`
	Months        float64            `json:"months"`
	HoursPerMonth int                `json:"hoursPerMonth"`
	Capacity      float64            `json:"capacity"`
	Resources     []metrics.Resource `json:"resources"`
}

// snapshot is the caller's live projects and their tasks, grouped per project.
type snapshot struct {
	projects []models.Project
	tasks    [][]models.Task
}

func (s *snapshot) allTasks() []models.Task {
	return flatten(s.tasks)
}

func (s *DashboardService) snapshot(ctx context.Context, caller authz.Identity) (*snapshot, error) {
	ids, err := s.directory.UserProjectIDs(ctx, models.NormalizeEmail(caller.Email))
	if err != nil {
		return nil, err
	}
	projects, err := loadProjects(ctx, s.store, ids)
	if err != nil {
		return nil, err
	}
	tasks, err := loadTasks(ctx, s.store, projects)
	if err != nil {
		return nil, err
	}
	return &snapshot{projects: projects, tasks: tasks}, nil
}

func (s *DashboardService) Overview(ctx context.Context, caller authz.Identity, period string) (*OverviewResponse, error) {
	snap, err := s.snapshot(ctx, caller)
	if err != nil {
		return nil, err
	}
	now := s.now()
	window := metrics.WindowFor(metrics.ParsePeriod(period), now)
	tasks := snap.allTasks()

	return &OverviewResponse{
		Period:             window.Period,
		TotalProjects:      len(snap.projects),
		TotalTasks:         len(tasks),
		TeamResourcesCount: metrics.UniqueAssignees(tasks),
		Growth:             metrics.ComputeGrowth(tasks, snap.projects, window),
		TaskMetrics:        metrics.CountTasks(tasks, metrics.Today(now)),
		RecentTasks:        metrics.RecentTasks(tasks, recentTaskCount),
	}, nil
}

func (s *DashboardService) summaries(snap *snapshot) []metrics.ProjectSummary {
	now := s.now()
	out := make([]metrics.ProjectSummary, 0, len(snap.projects))
	for i := range snap.projects {
		out = append(out, metrics.SummarizeProject(&snap.projects[i], snap.tasks[i], now))
	}
	return out
}

func (s *DashboardService) Progress(ctx context.Context, caller authz.Identity) (*metrics.ProgressReport, error) {
	snap, err := s.snapshot(ctx, caller)
	if err != nil {
		return nil, err
	}
	report := metrics.Progress(s.summaries(snap))
	return &report, nil
}

func (s *DashboardService) ProjectsSummary(ctx context.Context, caller authz.Identity) (*ProjectsSummaryResponse, error) {
	snap, err := s.snapshot(ctx, caller)
	if err != nil {
		return nil, err
	}
	return &ProjectsSummaryResponse{Projects: s.summaries(snap)}, nil
}

func (s *DashboardService) TodayTasks(ctx context.Context, caller authz.Identity) (*TodayTasksResponse, error) {
	snap, err := s.snapshot(ctx, caller)
	if err != nil {
		return nil, err
	}
	today := metrics.Today(s.now())
	tasks, counts := metrics.TodayTasks(snap.allTasks(), today)
	return &TodayTasksResponse{Date: today, Tasks: tasks, CategoryCounts: counts}, nil
}

// Workload counts tasks created inside the period per assignee, overall and
// per project.
func (s *DashboardService) Workload(ctx context.Context, caller authz.Identity, period string) (*WorkloadResponse, error) {
	snap, err := s.snapshot(ctx, caller)
	if err != nil {
		return nil, err
	}
	window := metrics.WindowFor(metrics.ParsePeriod(period), s.now())
	current, _ := window.TasksIn(snap.allTasks())

	return &WorkloadResponse{
		Period:    window.Period,
		Workload:  metrics.WorkloadByAssignee(current),
		ByProject: metrics.WorkloadByProject(current, snap.projects),
	}, nil
}

// TeamResources measures the hours of tasks created inside the period
// against each assignee's capacity for that period.
func (s *DashboardService) TeamResources(ctx context.Context, caller authz.Identity, period string) (*TeamResourcesResponse, error) {
	snap, err := s.snapshot(ctx, caller)
	if err != nil {
		return nil, err
	}
	window := metrics.WindowFor(metrics.ParsePeriod(period), s.now())
	current, _ := window.TasksIn(snap.allTasks())

	return &TeamResourcesResponse{
		Period:        window.Period,
		Months:        window.Months,
		HoursPerMonth: metrics.HoursPerMonth,
		Capacity:      metrics.Capacity(window.Months),
		Resources:     metrics.TeamResources(current, window.Months),
	}, nil
}
