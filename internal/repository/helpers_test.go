package repository_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/copal/internal/db"
)

// setupTestDB opens an in-memory SQLite DB with the production gorm config,
// on a single connection so concurrent callers queue instead of seeing
// "database is locked".
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), db.GormConfig("warn"))
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

func seedUsers(t *testing.T, database *gorm.DB, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, database.Create(&db.User{ID: id, Name: "name-" + id, Email: id + "@test.com"}).Error)
	}
}
