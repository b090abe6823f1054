package models

import (
	"time"

	"github.com/huangang/taskpulse/backend/internal/store"
)

// Membership grants one user a role in one project. It is the source of
// truth for authorization.
type Membership struct {
	ProjectID  string     `json:"projectId"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	MemberRole MemberRole `json:"memberRole"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (m *Membership) Key() store.Key { return MembershipKey(m.Email, m.ProjectID) }

func (m *Membership) Summary() MemberSummary {
	return MemberSummary{Email: m.Email, Name: m.Name, Role: m.MemberRole}
}

// Item lays the membership out under the user and indexes it under the project.
func (m *Membership) Item() (store.Item, error) {
	return toItem(m, EntityMembership, store.Item{
		store.AttrPK:     PrefixUser + m.Email,
		store.AttrSK:     PrefixMember + m.ProjectID,
		store.AttrGSI1PK: PrefixProject + m.ProjectID,
		store.AttrGSI1SK: PrefixMember + m.Email,
	})
}

func MembershipFromItem(item store.Item) (*Membership, error) {
	var m Membership
	if err := fromItem(item, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
