package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/testutil"
	"growthTrackerAPI/internal/user"
)

func TestUpsertFromClerkLinksExistingEmail(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewUserService(db)
	ctx := context.Background()

	local := &user.User{Name: "Amina", Email: "amina@example.com"}
	require.NoError(t, db.Create(local).Error)

	linked, err := s.UpsertFromClerk(ctx, &user.ClerkProfile{ClerkID: "user_123", Email: "AMINA@example.com", EmailVerified: true})
	require.NoError(t, err)
	assert.Equal(t, local.ID, linked.ID)
	assert.Equal(t, "Amina", linked.Name, "an empty name does not overwrite")
	assert.True(t, linked.EmailVerified)

	id, err := s.ResolveClerkID(ctx, "user_123")
	require.NoError(t, err)
	assert.Equal(t, local.ID, id)
}

func TestUpsertFromClerkCreatesUser(t *testing.T) {
	s := NewUserService(testutil.NewDB(t))
	ctx := context.Background()

	created, err := s.UpsertFromClerk(ctx, &user.ClerkProfile{ClerkID: "user_new", Email: "new@example.com", Name: "New"})
	require.NoError(t, err)

	again, err := s.UpsertFromClerk(ctx, &user.ClerkProfile{ClerkID: "user_new", Email: "new@example.com", Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Renamed", again.Name)
}

func TestResolveClerkIDProvisionsOnce(t *testing.T) {
	s := NewUserService(testutil.NewDB(t))
	ctx := context.Background()

	first, err := s.ResolveClerkID(ctx, "user_fresh")
	require.NoError(t, err)
	second, err := s.ResolveClerkID(ctx, "user_fresh")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDeleteUserByClerkID(t *testing.T) {
	s := NewUserService(testutil.NewDB(t))
	ctx := context.Background()

	_, err := s.UpsertFromClerk(ctx, &user.ClerkProfile{ClerkID: "user_gone", Email: "gone@example.com"})
	require.NoError(t, err)
	require.NoError(t, s.DeleteUserByClerkID(ctx, "user_gone"))

	err = s.DeleteUserByClerkID(ctx, "user_gone")
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewUserService(db)
	u := &user.User{Name: "Old", Email: "profile@example.com"}
	require.NoError(t, db.Create(u).Error)

	updated, err := s.UpdateProfile(context.Background(), u.ID, &user.UpdateProfileRequest{Name: "  New  "})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)

	_, err = s.UpdateProfile(context.Background(), u.ID, &user.UpdateProfileRequest{ImageURL: "not a url"})
	require.ErrorIs(t, err, apperror.ErrValidationFailed)
}
