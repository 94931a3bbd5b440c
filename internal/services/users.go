package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/servicehub/backoffice/internal/audit"
	"github.com/servicehub/backoffice/internal/auth"
	"github.com/servicehub/backoffice/internal/db/models"
)

// UserStore persists users
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error
}

// CreateUserRequest is the payload for creating an account
type CreateUserRequest struct {
	Username  string   `json:"username" binding:"required,min=3,max=255"`
	Email     string   `json:"email" binding:"required,email"`
	Firstname string   `json:"firstname"`
	Lastname  string   `json:"lastname"`
	Password  string   `json:"password" binding:"required,min=8"`
	Roles     []string `json:"roles"`
}

// UpdateUserRequest is a partial update; nil fields are left unchanged
type UpdateUserRequest struct {
	Username  *string  `json:"username" binding:"omitempty,min=3,max=255"`
	Email     *string  `json:"email" binding:"omitempty,email"`
	Firstname *string  `json:"firstname"`
	Lastname  *string  `json:"lastname"`
	Password  *string  `json:"password" binding:"omitempty,min=8"`
	Roles     []string `json:"roles"`
}

// UserService manages accounts
type UserService struct {
	store   UserStore
	auditor Auditor
}

// NewUserService creates a UserService
func NewUserService(store UserStore, auditor Auditor) *UserService {
	return &UserService{store: store, auditor: auditor}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create adds an account. Roles default to customer.
func (s *UserService) Create(ctx context.Context, actorID *string, req CreateUserRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, invalid("username is required")
	}
	roles := req.Roles
	if len(roles) == 0 {
		roles = []string{models.RoleCustomer}
	}
	if err := auth.ValidateRoles(roles); err != nil {
		return nil, invalid("%v", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, invalid("%v", err)
	}

	user := &models.User{
		Username:     username,
		Email:        normalizeEmail(req.Email),
		Firstname:    req.Firstname,
		Lastname:     req.Lastname,
		PasswordHash: hash,
		Roles:        roles,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, storeError("create user", err)
	}

	s.auditor.Record(ctx, audit.Mutation{
		Table:    tableUsers,
		Action:   audit.ActionInsert,
		RecordID: user.ID,
		NewState: audit.SnapshotOf(user),
		ActorID:  actorID,
	})
	return user, nil
}

// Get returns one account
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// List returns a page of accounts and the total count
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	limit, offset = NormalizePage(limit, offset)
	users, total, err := s.store.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// Update applies a partial update and records the changed fields
func (s *UserService) Update(ctx context.Context, actorID *string, id string, req UpdateUserRequest) (*models.User, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := audit.SnapshotOf(existing)

	updated := *existing
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return nil, invalid("username cannot be empty")
		}
		updated.Username = username
	}
	if req.Email != nil {
		updated.Email = normalizeEmail(*req.Email)
	}
	if req.Firstname != nil {
		updated.Firstname = *req.Firstname
	}
	if req.Lastname != nil {
		updated.Lastname = *req.Lastname
	}
	if req.Roles != nil {
		if err := auth.ValidateRoles(req.Roles); err != nil {
			return nil, invalid("%v", err)
		}
		updated.Roles = append([]string(nil), req.Roles...)
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, invalid("%v", err)
		}
		updated.PasswordHash = hash
	}

	if err := s.store.UpdateUser(ctx, &updated); err != nil {
		return nil, storeError("update user", err)
	}

	s.auditor.Record(ctx, audit.Mutation{
		Table:    tableUsers,
		Action:   audit.ActionUpdate,
		RecordID: updated.ID,
		OldState: before,
		NewState: audit.SnapshotOf(&updated),
		ActorID:  actorID,
	})
	return &updated, nil
}

// Delete removes an account and records its last state
func (s *UserService) Delete(ctx context.Context, actorID *string, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}

	s.auditor.Record(ctx, audit.Mutation{
		Table:    tableUsers,
		Action:   audit.ActionDelete,
		RecordID: id,
		OldState: audit.SnapshotOf(existing),
		ActorID:  actorID,
	})
	return nil
}
