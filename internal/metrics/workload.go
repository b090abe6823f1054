package metrics

import (
	"math"

	"github.com/huangang/taskpulse/backend/internal/models"
)

// HoursPerMonth is the working capacity of one person per month.
const HoursPerMonth = 160

// AssigneeLoad is the number of tasks held by one assignee.
type AssigneeLoad struct {
	AssigneeID   string `json:"assigneeId"`
	AssigneeName string `json:"assigneeName"`
	TaskCount    int    `json:"taskCount"`
}

// WorkloadByAssignee counts tasks per assignee in order of first appearance.
// Unassigned tasks are skipped.
func WorkloadByAssignee(tasks []models.Task) []AssigneeLoad {
	loads := []AssigneeLoad{}
	index := make(map[string]int)
	for _, t := range tasks {
		if t.AssigneeID == "" {
			continue
		}
		i, ok := index[t.AssigneeID]
		if !ok {
			i = len(loads)
			index[t.AssigneeID] = i
			loads = append(loads, AssigneeLoad{AssigneeID: t.AssigneeID, AssigneeName: t.AssigneeName})
		}
		loads[i].TaskCount++
	}
	return loads
}

// Resource is one assignee's hours against capacity.
type Resource struct {
	AssigneeID         string  `json:"assigneeId"`
	AssigneeName       string  `json:"assigneeName"`
	TotalHours         float64 `json:"totalHours"`
	TaskCount          int     `json:"taskCount"`
	CompletedCount     int     `json:"completedCount"`
	AvailableHours     float64 `json:"availableHours"`
	UtilizationPercent int     `json:"utilizationPercent"`
}

// Capacity is the hours one person has over months; zero months count as one.
func Capacity(months float64) float64 {
	if months <= 0 {
		months = 1
	}
	return HoursPerMonth * months
}

// TeamResources sums estimated hours per assignee and measures them against
// capacity for months.
func TeamResources(tasks []models.Task, months float64) []Resource {
	resources := []Resource{}
	index := make(map[string]int)
	for _, t := range tasks {
		if t.AssigneeID == "" {
			continue
		}
		i, ok := index[t.AssigneeID]
		if !ok {
			i = len(resources)
			index[t.AssigneeID] = i
			resources = append(resources, Resource{AssigneeID: t.AssigneeID, AssigneeName: t.AssigneeName})
		}
		r := &resources[i]
		r.TotalHours += t.EstimatedHours
		r.TaskCount++
		if t.Status == models.TaskCompleted {
			r.CompletedCount++
		}
	}

	capacity := Capacity(months)
	for i := range resources {
		r := &resources[i]
		r.AvailableHours = math.Max(0, capacity-r.TotalHours)
		r.UtilizationPercent = int(math.Min(100, round(r.TotalHours/capacity*100)))
	}
	return resources
}

// ProjectWorkload is the per-assignee task count inside one project.
type ProjectWorkload struct {
	ProjectID   string         `json:"projectId"`
	ProjectName string         `json:"projectName"`
	Members     []AssigneeLoad `json:"members"`
}

// WorkloadByProject groups assignee workload by project, in the order of
// projects. Tasks of unknown projects are skipped.
func WorkloadByProject(tasks []models.Task, projects []models.Project) []ProjectWorkload {
	byProject := make(map[string][]models.Task, len(projects))
	for _, t := range tasks {
		byProject[t.ProjectID] = append(byProject[t.ProjectID], t)
	}

	out := make([]ProjectWorkload, 0, len(projects))
	for _, p := range projects {
		out = append(out, ProjectWorkload{
			ProjectID:   p.ProjectID,
			ProjectName: p.Name,
			Members:     WorkloadByAssignee(byProject[p.ProjectID]),
		})
	}
	return out
}
