package models

import (
	"time"

	"github.com/huangang/taskpulse/backend/internal/store"
)

// MemberSummary is one entry of the members[] display cache on a project.
type MemberSummary struct {
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  MemberRole `json:"role"`
}

// Project is the META record of a project. Members is a copy of the
// membership records kept for display; authorization never reads it.
type Project struct {
	ProjectID   string          `json:"projectId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      ProjectStatus   `json:"status"`
	ManagerID   string          `json:"managerId"`
	ManagerName string          `json:"managerName"`
	DueDate     string          `json:"dueDate,omitempty"`
	Members     []MemberSummary `json:"members"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	// DeletedAt marks a project whose cascade delete has started.
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func (p *Project) Key() store.Key { return ProjectKey(p.ProjectID) }

// Deleted reports whether the project is tombstoned.
func (p *Project) Deleted() bool { return p.DeletedAt != nil }

func (p *Project) Item() (store.Item, error) {
	return toItem(p, EntityProject, store.Item{
		store.AttrPK: PrefixProject + p.ProjectID,
		store.AttrSK: SKMeta,
	})
}

func ProjectFromItem(item store.Item) (*Project, error) {
	var p Project
	if err := fromItem(item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
