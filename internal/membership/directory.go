// Package membership answers who belongs to which project, in which role.
package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/huangang/taskpulse/backend/internal/store"
	"github.com/huangang/taskpulse/backend/pkg/response"
)

// Directory reads and writes membership records.
type Directory struct {
	store store.Store
}

func NewDirectory(s store.Store) *Directory {
	return &Directory{store: s}
}

// UserProjectIDs lists every project the user belongs to.
func (d *Directory) UserProjectIDs(ctx context.Context, email string) ([]string, error) {
	memberships, err := d.UserMemberships(ctx, email)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.ProjectID)
	}
	return ids, nil
}

// UserMemberships lists every membership the user holds.
func (d *Directory) UserMemberships(ctx context.Context, email string) ([]models.Membership, error) {
	items, err := store.QueryAll(ctx, d.store, models.UserMembershipsQuery(email))
	if err != nil {
		return nil, fmt.Errorf("list memberships of %s: %w", email, err)
	}
	return decodeAll(items)
}

// UserMembershipsPage reads one page of the user's memberships.
func (d *Directory) UserMembershipsPage(ctx context.Context, email string, limit int, start *store.Key) ([]models.Membership, *store.Key, error) {
	q := models.UserMembershipsQuery(email)
	q.Limit = limit
	q.StartKey = start
	page, err := d.store.Query(ctx, q)
	if err != nil {
		return nil, nil, fmt.Errorf("list memberships of %s: %w", email, err)
	}
	memberships, err := decodeAll(page.Items)
	if err != nil {
		return nil, nil, err
	}
	return memberships, page.LastKey, nil
}

// Lookup returns the membership or nil when the user is not a member.
func (d *Directory) Lookup(ctx context.Context, email, projectID string) (*models.Membership, error) {
	item, err := d.store.Get(ctx, models.MembershipKey(email, projectID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup membership: %w", err)
	}
	return models.MembershipFromItem(item)
}

// VerifyMembership returns the caller's membership. A missing membership is
// Forbidden, never NotFound, so project existence is not disclosed.
func (d *Directory) VerifyMembership(ctx context.Context, email, projectID string) (*models.Membership, error) {
	m, err := d.Lookup(ctx, email, projectID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, response.NewForbidden("Access denied: you are not a member of this project")
	}
	return m, nil
}

// ProjectMembers lists the memberships of a project through GSI1.
func (d *Directory) ProjectMembers(ctx context.Context, projectID string) ([]models.Membership, error) {
	items, err := store.QueryAll(ctx, d.store, models.ProjectMembersQuery(projectID))
	if err != nil {
		return nil, fmt.Errorf("list members of %s: %w", projectID, err)
	}
	return decodeAll(items)
}

// Add writes a new membership. An existing one is a validation error.
func (d *Directory) Add(ctx context.Context, m *models.Membership) error {
	item, err := m.Item()
	if err != nil {
		return err
	}
	err = d.store.Put(ctx, item, store.MustNotExist)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return response.NewBadRequest("User is already a member of this project")
	}
	return err
}

// Remove deletes a membership. The owner can never be removed.
func (d *Directory) Remove(ctx context.Context, email, projectID string) (*models.Membership, error) {
	m, err := d.Lookup(ctx, email, projectID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, response.NewNotFound("Member not found")
	}
	if m.MemberRole == models.MemberOwner {
		return nil, response.NewForbidden("The project owner cannot be removed")
	}

	err = d.store.Delete(ctx, m.Key(), store.MustExist)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return nil, response.NewNotFound("Member not found")
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SetRole changes a member's role. Ownership can be neither granted nor taken.
func (d *Directory) SetRole(ctx context.Context, email, projectID string, role models.MemberRole) (*models.Membership, error) {
	if !role.Valid() {
		return nil, response.NewBadRequest("Invalid member role")
	}
	m, err := d.Lookup(ctx, email, projectID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, response.NewNotFound("Member not found")
	}
	if m.MemberRole == models.MemberOwner {
		return nil, response.NewForbidden("The project owner cannot be demoted")
	}
	if !role.Assignable() {
		return nil, response.NewForbidden("Ownership cannot be transferred")
	}

	item, err := d.store.Update(ctx, m.Key(), map[string]any{"memberRole": string(role)}, store.MustExist)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return nil, response.NewNotFound("Member not found")
	}
	if err != nil {
		return nil, err
	}
	return models.MembershipFromItem(item)
}

// DeleteAll removes every membership of a project in batches.
func (d *Directory) DeleteAll(ctx context.Context, projectID string) (int, error) {
	members, err := d.ProjectMembers(ctx, projectID)
	if err != nil {
		return 0, err
	}
	keys := make([]store.Item, 0, len(members))
	for _, m := range members {
		k := m.Key()
		keys = append(keys, store.Item{store.AttrPK: k.PK, store.AttrSK: k.SK})
	}
	if err := d.store.BatchWrite(ctx, keys, store.WriteDelete); err != nil {
		return 0, err
	}
	return len(keys), nil
}

func decodeAll(items []store.Item) ([]models.Membership, error) {
	out := make([]models.Membership, 0, len(items))
	for _, item := range items {
		m, err := models.MembershipFromItem(item)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}
