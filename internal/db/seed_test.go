package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/copal/internal/db"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(database))
	return database
}

func TestCanonicalPair(t *testing.T) {
	a, b := db.CanonicalPair("b", "a")
	assert.Equal(t, "a", a)
	assert.Equal(t, "b", b)

	a, b = db.CanonicalPair("1", "current-user-id")
	assert.Equal(t, "1", a)
	assert.Equal(t, "current-user-id", b)
}

func TestSeedTestData_Idempotent(t *testing.T) {
	database := openTestDB(t)

	require.NoError(t, db.SeedTestData(database))
	require.NoError(t, db.SeedTestData(database))

	var users, likes, matches, convs int64
	database.Model(&db.User{}).Count(&users)
	database.Model(&db.Like{}).Count(&likes)
	database.Model(&db.Match{}).Count(&matches)
	database.Model(&db.Conversation{}).Count(&convs)

	assert.Equal(t, int64(len(db.DemoUsers)), users)
	assert.Equal(t, int64(4), likes)
	assert.Equal(t, int64(1), matches)
	assert.Equal(t, int64(1), convs)
}

func TestSeedMinimalTestData(t *testing.T) {
	database := openTestDB(t)
	require.NoError(t, db.SeedMinimalTestData(database))

	var m db.Match
	require.NoError(t, database.First(&m).Error)
	assert.Equal(t, "u1", m.UserID1)
	assert.Equal(t, "u2", m.UserID2)

	var passes int64
	database.Model(&db.Pass{}).Count(&passes)
	assert.Equal(t, int64(1), passes)
}
