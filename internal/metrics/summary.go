package metrics

import (
	"sort"
	"time"

	"github.com/huangang/taskpulse/backend/internal/models"
)

// TaskMetrics counts tasks per status plus overdue ones.
type TaskMetrics struct {
	TotalTasks      int `json:"totalTasks"`
	TodoTasks       int `json:"todoTasks"`
	InProgressTasks int `json:"inProgressTasks"`
	InReviewTasks   int `json:"inReviewTasks"`
	ApprovedTasks   int `json:"approvedTasks"`
	CompletedTasks  int `json:"completedTasks"`
	OverdueTasks    int `json:"overdueTasks"`
}

// CountTasks tallies tasks. A task is overdue when it is not completed and
// its due date is before today.
func CountTasks(tasks []models.Task, today string) TaskMetrics {
	m := TaskMetrics{TotalTasks: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case models.TaskTodo:
			m.TodoTasks++
		case models.TaskInProgress:
			m.InProgressTasks++
		case models.TaskInReview:
			m.InReviewTasks++
		case models.TaskApproved:
			m.ApprovedTasks++
		case models.TaskCompleted:
			m.CompletedTasks++
		}
		if t.Status != models.TaskCompleted && t.DueDate != "" && t.DueDate < today {
			m.OverdueTasks++
		}
	}
	return m
}

// HealthCounts tallies projects per health class.
type HealthCounts struct {
	OnTrack   int `json:"on_track"`
	AtRisk    int `json:"at_risk"`
	Delayed   int `json:"delayed"`
	Completed int `json:"completed"`
}

func (h *HealthCounts) add(health Health) {
	switch health {
	case OnTrack:
		h.OnTrack++
	case AtRisk:
		h.AtRisk++
	case Delayed:
		h.Delayed++
	case Completed:
		h.Completed++
	}
}

// ProjectSummary is the derived state of one project.
type ProjectSummary struct {
	ProjectID         string               `json:"projectId"`
	Name              string               `json:"name"`
	Status            models.ProjectStatus `json:"status"`
	Progress          Health               `json:"progress"`
	DueDate           string               `json:"dueDate,omitempty"`
	ManagerName       string               `json:"managerName"`
	TotalTasks        int                  `json:"totalTasks"`
	CompletedTasks    int                  `json:"completedTasks"`
	TotalHours        float64              `json:"totalHours"`
	CompletedHours    float64              `json:"completedHours"`
	CompletionPercent int                  `json:"completionPercent"`
}

// SummarizeProject derives health and completion for p from its tasks.
func SummarizeProject(p *models.Project, tasks []models.Task, now time.Time) ProjectSummary {
	s := ProjectSummary{
		ProjectID:         p.ProjectID,
		Name:              p.Name,
		Status:            p.Status,
		Progress:          ClassifyHealth(tasks, p.DueDate, p.CreatedAt, now),
		DueDate:           p.DueDate,
		ManagerName:       p.ManagerName,
		TotalTasks:        len(tasks),
		CompletionPercent: WeightedProgress(tasks),
	}
	for _, t := range tasks {
		s.TotalHours += t.EstimatedHours
		if t.Status == models.TaskCompleted {
			s.CompletedTasks++
			s.CompletedHours += t.EstimatedHours
		}
	}
	return s
}

// ProgressReport is the health distribution across projects.
type ProgressReport struct {
	TotalProjects    int          `json:"totalProjects"`
	CompletedPercent int          `json:"completedPercent"`
	ProjectsHealth   HealthCounts `json:"projectsHealth"`
}

// Progress classifies every summary and reports the share completed.
func Progress(summaries []ProjectSummary) ProgressReport {
	r := ProgressReport{TotalProjects: len(summaries)}
	for _, s := range summaries {
		r.ProjectsHealth.add(s.Progress)
	}
	if r.TotalProjects > 0 {
		r.CompletedPercent = int(round(float64(r.ProjectsHealth.Completed) / float64(r.TotalProjects) * 100))
	}
	return r
}

// TodayTask is a task due today that is still open.
type TodayTask struct {
	TaskID         string            `json:"taskId"`
	Title          string            `json:"title"`
	ProjectID      string            `json:"projectId"`
	ProjectName    string            `json:"projectName"`
	Status         models.TaskStatus `json:"status"`
	Priority       models.Priority   `json:"priority"`
	Category       models.Category   `json:"category,omitempty"`
	AssigneeName   string            `json:"assigneeName,omitempty"`
	EstimatedHours float64           `json:"estimatedHours"`
	DueDate        string            `json:"dueDate"`
	IsCompleted    bool              `json:"isCompleted"`
}

// TodayTasks selects tasks due today that are not completed and counts them
// per category. The "all" count covers every selected task.
func TodayTasks(tasks []models.Task, today string) ([]TodayTask, map[string]int) {
	out := []TodayTask{}
	counts := map[string]int{"all": 0}
	for _, t := range tasks {
		if t.DueDate != today || t.Status == models.TaskCompleted {
			continue
		}
		out = append(out, TodayTask{
			TaskID:         t.TaskID,
			Title:          t.Title,
			ProjectID:      t.ProjectID,
			ProjectName:    t.ProjectName,
			Status:         t.Status,
			Priority:       t.Priority,
			Category:       t.Category,
			AssigneeName:   t.AssigneeName,
			EstimatedHours: t.EstimatedHours,
			DueDate:        t.DueDate,
			IsCompleted:    t.Status == models.TaskApproved,
		})
		counts["all"]++
		if t.Category != "" {
			counts[string(t.Category)]++
		}
	}
	return out, counts
}

// RecentTasks returns the n most recently created tasks, newest first.
func RecentTasks(tasks []models.Task, n int) []models.Task {
	sorted := make([]models.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
