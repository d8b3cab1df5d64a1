package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/copal/internal/repository"
)

func TestAllExist(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedUsers(t, dbase, "a", "b")
	repo := repository.NewUserRepository(dbase)

	ok, err := repo.AllExist(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AllExist(ctx, "a", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AllExist(ctx, "a", "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	users, err := repo.GetByIDs(ctx, []string{"a", "ghost"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, "name-a", users["a"].Name)
}
