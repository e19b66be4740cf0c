package services

import (
	"context"
	"testing"

	"github.com/bookx-exchange/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegistration() Registration {
	return Registration{
		Username:    "alice",
		Password:    "password",
		FirstName:   "Alice",
		LastName:    "Johnson",
		Email:       "alice@example.com",
		DateOfBirth: "1990-05-17",
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	user, err := e.userService.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, types.UserTypeRegular, user.UserType)
	assert.NotEqual(t, "password", user.PasswordHash)
	require.NotNil(t, user.DateOfBirth)
	assert.Equal(t, "1990-05-17", user.DateOfBirth.Format(dateOfBirthLayout))

	authed, err := e.userService.Authenticate(ctx, "alice", "password")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = e.userService.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = e.userService.Authenticate(ctx, "nobody", "password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	_, err := e.userService.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, err = e.userService.Register(ctx, validRegistration())
	assert.ErrorIs(t, err, ErrConflict)

	reg := validRegistration()
	reg.Username = "alice2"
	reg.Email = "ALICE@example.com"
	_, err = e.userService.Register(ctx, reg)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	reg := validRegistration()
	reg.DateOfBirth = "17/05/1990"
	_, err := e.userService.Register(ctx, reg)
	assert.ErrorIs(t, err, ErrInvalidInput)

	reg = validRegistration()
	reg.Password = ""
	_, err = e.userService.Register(ctx, reg)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	reg := Registration{Username: "admin", Password: "admin", FirstName: "Admin", LastName: "User", Email: "admin@bookx.local"}

	first, created, err := e.userService.EnsureUser(ctx, reg, types.UserTypeAdmin)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, first.IsAdmin())

	second, created, err := e.userService.EnsureUser(ctx, reg, types.UserTypeAdmin)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}
