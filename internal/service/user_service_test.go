package service

import (
	"context"
	"testing"

	"agora/internal/models"
	"agora/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserService_SignupAndAuthenticate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db)).WithHashCost(bcrypt.MinCost)
	ctx := context.Background()

	user, err := svc.Signup(ctx, SignupInput{Name: " alice ", Email: " Alice@Example.com ", Password: "Secret123"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "Secret123", user.Password)

	_, err = svc.Signup(ctx, SignupInput{Name: "alice", Email: "other@example.com", Password: "Secret123"})
	assertCode(t, err, models.CodeConflict)

	_, err = svc.Signup(ctx, SignupInput{Name: "bob", Email: "bob@example.com", Password: "weak"})
	assertValidationError(t, err)
	_, err = svc.Signup(ctx, SignupInput{Name: "bobby", Email: "nope", Password: "Secret123"})
	assertValidationError(t, err)

	authed, err := svc.Authenticate(ctx, "ALICE@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = svc.Authenticate(ctx, "alice@example.com", "Wrong1234")
	assertCode(t, err, models.CodeUnauthorized)
	_, err = svc.Authenticate(ctx, "ghost@example.com", "Secret123")
	assertCode(t, err, models.CodeUnauthorized)

	users, err := svc.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
