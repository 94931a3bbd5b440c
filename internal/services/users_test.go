package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicehub/backoffice/internal/auth"
	"github.com/servicehub/backoffice/internal/db/models"
)

func seededUser() *models.User {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &models.User{
		ID:        uuid.New().String(),
		Username:  "jdoe",
		Email:     "a@x.com",
		Firstname: "Jane",
		Lastname:  "Doe",
		Roles:     pq.StringArray{"helper"},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestUserService_UpdateRecordsOnlyChangedFields(t *testing.T) {
	user := seededUser()
	auditor, logs := newAuditor()
	svc := NewUserService(newMemUsers(user), auditor)
	actor := strPtr(uuid.New().String())

	updated, err := svc.Update(context.Background(), actor, user.ID, UpdateUserRequest{
		Email: strPtr("a@x.com"),
		Roles: []string{"admin", "helper"},
	})
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"admin", "helper"}, updated.Roles)

	require.Len(t, logs.logs, 1)
	entry := logs.logs[0]
	assert.Equal(t, "users", entry.TableName)
	assert.Equal(t, "update", entry.Action)
	assert.Equal(t, user.ID, entry.RecordID)
	assert.Equal(t, actor, entry.UserID)
	assert.Equal(t, models.JSONMap{"roles": []any{"admin", "helper"}}, entry.ChangedFields)
}

func TestUserService_UpdateWithNoChangeWritesNothing(t *testing.T) {
	user := seededUser()
	auditor, logs := newAuditor()
	svc := NewUserService(newMemUsers(user), auditor)

	_, err := svc.Update(context.Background(), nil, user.ID, UpdateUserRequest{Firstname: strPtr("Jane")})
	require.NoError(t, err)
	assert.Empty(t, logs.logs)
}

func TestUserService_PasswordChangeIsNotAudited(t *testing.T) {
	user := seededUser()
	auditor, logs := newAuditor()
	store := newMemUsers(user)
	svc := NewUserService(store, auditor)

	_, err := svc.Update(context.Background(), nil, user.ID, UpdateUserRequest{Password: strPtr("new-password-1")})
	require.NoError(t, err)

	assert.NoError(t, auth.CheckPassword(store.rows[user.ID].PasswordHash, "new-password-1"))
	assert.Empty(t, logs.logs)
}

func TestUserService_Create(t *testing.T) {
	auditor, logs := newAuditor()
	store := newMemUsers()
	svc := NewUserService(store, auditor)
	actor := strPtr(uuid.New().String())

	user, err := svc.Create(context.Background(), actor, CreateUserRequest{
		Username: " newbie ",
		Email:    "New@Example.COM",
		Password: "long-enough-pw",
	})
	require.NoError(t, err)

	assert.Equal(t, "newbie", user.Username)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, pq.StringArray{"customer"}, user.Roles)
	assert.NoError(t, auth.CheckPassword(user.PasswordHash, "long-enough-pw"))

	require.Len(t, logs.logs, 1)
	entry := logs.logs[0]
	assert.Equal(t, "insert", entry.Action)
	assert.Equal(t, user.ID, entry.RecordID)
	assert.Equal(t, "new@example.com", entry.ChangedFields["email"])
	assert.NotContains(t, entry.ChangedFields, "password_hash")
	assert.NotContains(t, entry.ChangedFields, "created_at")
}

func TestUserService_CreateRejects(t *testing.T) {
	tests := []struct {
		name string
		req  CreateUserRequest
	}{
		{"unknown role", CreateUserRequest{Username: "x1x", Email: "x@y.z", Password: "long-enough", Roles: []string{"root"}}},
		{"short password", CreateUserRequest{Username: "x1x", Email: "x@y.z", Password: "short"}},
		{"blank username", CreateUserRequest{Username: "   ", Email: "x@y.z", Password: "long-enough"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auditor, logs := newAuditor()
			svc := NewUserService(newMemUsers(), auditor)

			_, err := svc.Create(context.Background(), nil, tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, logs.logs)
		})
	}
}

func TestUserService_CreateConflict(t *testing.T) {
	auditor, logs := newAuditor()
	store := newMemUsers()
	store.createErr = uniqueViolation()
	svc := NewUserService(store, auditor)

	_, err := svc.Create(context.Background(), nil, CreateUserRequest{Username: "dup", Email: "d@x.com", Password: "long-enough"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, logs.logs)
}

func TestUserService_UpdateConflict(t *testing.T) {
	user := seededUser()
	auditor, _ := newAuditor()
	store := newMemUsers(user)
	store.updateErr = uniqueViolation()
	svc := NewUserService(store, auditor)

	_, err := svc.Update(context.Background(), nil, user.ID, UpdateUserRequest{Email: strPtr("taken@x.com")})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserService_AuditFailureDoesNotFailMutation(t *testing.T) {
	user := seededUser()
	auditor, logs := newAuditor()
	logs.err = errStore
	store := newMemUsers(user)
	svc := NewUserService(store, auditor)

	updated, err := svc.Update(context.Background(), nil, user.ID, UpdateUserRequest{Lastname: strPtr("Smith")})
	require.NoError(t, err)
	assert.Equal(t, "Smith", updated.Lastname)
	assert.Equal(t, "Smith", store.rows[user.ID].Lastname)
}

func TestUserService_Delete(t *testing.T) {
	user := seededUser()
	auditor, logs := newAuditor()
	store := newMemUsers(user)
	svc := NewUserService(store, auditor)

	require.NoError(t, svc.Delete(context.Background(), nil, user.ID))
	assert.NotContains(t, store.rows, user.ID)

	require.Len(t, logs.logs, 1)
	entry := logs.logs[0]
	assert.Equal(t, "delete", entry.Action)
	assert.Equal(t, "jdoe", entry.ChangedFields["username"])
	assert.NotContains(t, entry.ChangedFields, "updated_at")
}

func TestUserService_NotFound(t *testing.T) {
	auditor, _ := newAuditor()
	svc := NewUserService(newMemUsers(), auditor)
	ctx := context.Background()

	for _, id := range []string{uuid.New().String(), "not-a-uuid"} {
		_, err := svc.Get(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = svc.Update(ctx, nil, id, UpdateUserRequest{})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, svc.Delete(ctx, nil, id), ErrNotFound)
	}
}
