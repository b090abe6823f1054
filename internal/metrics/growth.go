package metrics

import "github.com/huangang/taskpulse/backend/internal/models"

// Growth compares a figure across two consecutive windows.
type Growth struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Percent  float64 `json:"percent"`
}

// NewGrowth builds a Growth with its percent change.
func NewGrowth(current, previous float64) Growth {
	return Growth{Current: current, Previous: previous, Percent: GrowthPercent(current, previous)}
}

// GrowthPercent is the change from previous to current in percent, rounded to
// one decimal. From zero it is 100 when anything appeared and 0 otherwise.
func GrowthPercent(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return round((current-previous)/previous*1000) / 10
}

// DashboardGrowth groups the growth figures of the overview dashboard.
type DashboardGrowth struct {
	ProjectsCreated Growth `json:"projectsCreated"`
	TasksCreated    Growth `json:"tasksCreated"`
	TasksCompleted  Growth `json:"tasksCompleted"`
	HoursLogged     Growth `json:"hoursLogged"`
	TeamMembers     Growth `json:"teamMembers"`
}

// ComputeGrowth splits tasks and projects over w and compares the halves.
func ComputeGrowth(tasks []models.Task, projects []models.Project, w Window) DashboardGrowth {
	curTasks, prevTasks := w.TasksIn(tasks)
	curProjects, prevProjects := w.ProjectsIn(projects)

	return DashboardGrowth{
		ProjectsCreated: NewGrowth(float64(len(curProjects)), float64(len(prevProjects))),
		TasksCreated:    NewGrowth(float64(len(curTasks)), float64(len(prevTasks))),
		TasksCompleted:  NewGrowth(float64(countStatus(curTasks, models.TaskCompleted)), float64(countStatus(prevTasks, models.TaskCompleted))),
		HoursLogged:     NewGrowth(TotalHours(curTasks), TotalHours(prevTasks)),
		TeamMembers:     NewGrowth(float64(UniqueAssignees(curTasks)), float64(UniqueAssignees(prevTasks))),
	}
}

// UniqueAssignees counts distinct assignees among tasks.
func UniqueAssignees(tasks []models.Task) int {
	seen := make(map[string]struct{})
	for _, t := range tasks {
		if t.AssigneeID != "" {
			seen[t.AssigneeID] = struct{}{}
		}
	}
	return len(seen)
}

// TotalHours sums estimated hours.
func TotalHours(tasks []models.Task) float64 {
	var sum float64
	for _, t := range tasks {
		sum += t.EstimatedHours
	}
	return sum
}

func countStatus(tasks []models.Task, s models.TaskStatus) int {
	n := 0
	for _, t := range tasks {
		if t.Status == s {
			n++
		}
	}
	return n
}
