package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangang/taskpulse/backend/internal/authz"
	"github.com/huangang/taskpulse/backend/internal/config"
	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/huangang/taskpulse/backend/internal/store"
	"github.com/huangang/taskpulse/backend/pkg/logger"
	"github.com/huangang/taskpulse/backend/pkg/response"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	store store.Store
	cost  int
	now   func() time.Time
}

func NewUserService(s store.Store) *UserService {
	return &UserService{store: s, cost: bcrypt.DefaultCost, now: time.Now}
}

type CreateUserRequest struct {
	Email    string      `json:"email" binding:"required,email"`
	Name     string      `json:"name" binding:"required,max=100"`
	Role     models.Role `json:"role"`
	Password string      `json:"password" binding:"required,min=6"`
}

type UpdateUserRequest struct {
	Name *string      `json:"name" binding:"omitempty,min=1,max=100"`
	Role *models.Role `json:"role"`
}

// Get returns the stored user record.
func (s *UserService) Get(ctx context.Context, email string) (*models.User, error) {
	item, err := s.store.Get(ctx, models.UserKey(models.NormalizeEmail(email)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, response.NewNotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return models.UserFromItem(item)
}

// RequireAdmin checks the caller's stored role, not the token claim.
func (s *UserService) RequireAdmin(ctx context.Context, caller authz.Identity) error {
	user, err := s.Get(ctx, caller.Email)
	if response.IsNotFound(err) {
		return authz.RequireAdmin(nil)
	}
	if err != nil {
		return err
	}
	return authz.RequireAdmin(user)
}

// List returns the user directory. Without all only project managers and
// admins are listed, which is what manager pickers need.
func (s *UserService) List(ctx context.Context, all bool) ([]models.UserProfile, error) {
	items, err := store.QueryAll(ctx, s.store, models.UsersQuery())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]models.UserProfile, 0, len(items))
	for _, item := range items {
		u, err := models.UserFromItem(item)
		if err != nil {
			return nil, err
		}
		if !all && u.Role != models.RoleProjectManager && u.Role != models.RoleAdmin {
			continue
		}
		users = append(users, u.Profile())
	}
	return users, nil
}

func (s *UserService) Create(ctx context.Context, req *CreateUserRequest) (*models.UserProfile, error) {
	if req.Role == "" {
		req.Role = models.RoleMember
	}
	if !req.Role.Valid() {
		return nil, response.NewBadRequest("Role must be admin, project_manager or member")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		Email:        models.NormalizeEmail(req.Email),
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	item, err := user.Item()
	if err != nil {
		return nil, err
	}
	err = s.store.Put(ctx, item, store.MustNotExist)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return nil, response.NewBadRequest("A user with this email already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	profile := user.Profile()
	return &profile, nil
}

func (s *UserService) Update(ctx context.Context, email string, req *UpdateUserRequest) (*models.UserProfile, error) {
	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, response.NewBadRequest("Role must be admin, project_manager or member")
		}
		fields["role"] = string(*req.Role)
	}
	if len(fields) == 0 {
		return nil, response.NewBadRequest("No fields to update")
	}
	fields["updatedAt"] = timestamp(s.now())

	item, err := s.store.Update(ctx, models.UserKey(models.NormalizeEmail(email)), fields, store.MustExist)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return nil, response.NewNotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	user, err := models.UserFromItem(item)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

// Delete removes a user account. Memberships and assignments are left as
// they are.
func (s *UserService) Delete(ctx context.Context, caller authz.Identity, email string) error {
	email = models.NormalizeEmail(email)
	if email == models.NormalizeEmail(caller.Email) {
		return response.NewBadRequest("Cannot delete your own account")
	}
	err := s.store.Delete(ctx, models.UserKey(email), store.MustExist)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return response.NewNotFound("User not found")
	}
	return err
}

// EnsureAdmin creates the configured admin account when it does not exist yet.
func (s *UserService) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	if cfg.Email == "" {
		return nil
	}
	if cfg.Password == "" {
		return fmt.Errorf("admin password is required to bootstrap %s", cfg.Email)
	}
	name := cfg.Name
	if name == "" {
		name = "Administrator"
	}

	_, err := s.Create(ctx, &CreateUserRequest{
		Email:    cfg.Email,
		Name:     name,
		Role:     models.RoleAdmin,
		Password: cfg.Password,
	})
	if response.IsBadRequest(err) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.Infof("[Users] Bootstrapped admin account %s", models.NormalizeEmail(cfg.Email))
	return nil
}
