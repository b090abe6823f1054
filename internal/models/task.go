package models

import (
	"time"

	"github.com/huangang/taskpulse/backend/internal/store"
)

// Task is a unit of work inside a project, optionally assigned to a member.
type Task struct {
	TaskID         string     `json:"taskId"`
	ProjectID      string     `json:"projectId"`
	ProjectName    string     `json:"projectName"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         TaskStatus `json:"status"`
	Priority       Priority   `json:"priority"`
	Category       Category   `json:"category,omitempty"`
	AssigneeID     string     `json:"assigneeId,omitempty"`
	AssigneeName   string     `json:"assigneeName,omitempty"`
	EstimatedHours float64    `json:"estimatedHours"`
	DueDate        string     `json:"dueDate,omitempty"`
	CreatedBy      string     `json:"createdBy"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (t *Task) Key() store.Key { return TaskKey(t.ProjectID, t.TaskID) }

// Item lays the task out under its project and, when assigned, indexes it
// under the assignee.
func (t *Task) Item() (store.Item, error) {
	keys := store.Item{
		store.AttrPK: PrefixProject + t.ProjectID,
		store.AttrSK: PrefixTask + t.TaskID,
	}
	if t.AssigneeID != "" {
		keys[store.AttrGSI1PK] = PrefixAssignee + t.AssigneeID
		keys[store.AttrGSI1SK] = PrefixTask + t.TaskID
	}
	return toItem(t, EntityTask, keys)
}

func TaskFromItem(item store.Item) (*Task, error) {
	var t Task
	if err := fromItem(item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// TasksFromItems decodes a page of task items.
func TasksFromItems(items []store.Item) ([]Task, error) {
	tasks := make([]Task, 0, len(items))
	for _, item := range items {
		t, err := TaskFromItem(item)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, nil
}
