package repository_test

import (
	"context"
	"testing"
	"time"

	"vividly/internal/entity"
	"vividly/internal/repository"
	"vividly/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_FindIncludesInactive(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewUserRepository(db)
	user := createUser(t, db, "alice@example.com")

	require.NoError(t, repo.SetActive(ctx, user.ID, false))

	found, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.False(t, found.IsActive)

	missing, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_DuplicateEmailRejected(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewUserRepository(db)
	createUser(t, db, "alice@example.com")

	err := repo.Create(ctx, &entity.User{Email: "alice@example.com", PasswordHash: "hash"})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&entity.User{}).Where("email = ?", "alice@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserRepository_SearchMatchesWildcardsLiterally(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewUserRepository(db)
	createUser(t, db, "alice@example.com")
	createUser(t, db, "snake_case@example.com")

	found, err := repo.Search(ctx, "_", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "snake_case@example.com", found[0].Email)

	found, err = repo.Search(ctx, "%", 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestUserRepository_ListSearchStats(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewUserRepository(db)

	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")
	createUser(t, db, "carol@example.com")
	require.NoError(t, repo.VerifyEmail(ctx, alice.ID))
	require.NoError(t, repo.SetActive(ctx, bob.ID, false))
	require.NoError(t, repo.TouchLastLogin(ctx, alice.ID, time.Now()))

	users, total, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, users, 2)

	found, err := repo.Search(ctx, "BOB", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, bob.ID, found[0].ID)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Active)
	assert.Equal(t, int64(1), stats.Inactive)
	assert.Equal(t, int64(1), stats.VerifiedEmails)
	assert.Zero(t, stats.TwoFactorEnabled)

	reloaded, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.EmailVerified)
	assert.NotNil(t, reloaded.LastLoginAt)
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	users := repository.NewUserRepository(db)
	projects := repository.NewProjectRepository(db)
	user := createUser(t, db, "alice@example.com")

	require.NoError(t, projects.Create(ctx, &entity.Project{
		UserID:          user.ID,
		Name:            "Site",
		Slug:            "site",
		VibeDescription: "a calm minimal portfolio",
	}))

	require.NoError(t, users.Delete(ctx, user.ID))

	list, total, err := projects.ListByUser(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}
