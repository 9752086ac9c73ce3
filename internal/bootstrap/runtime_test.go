package bootstrap

import (
	"path/filepath"
	"testing"

	"agora/internal/cache"
	"agora/internal/config"
	"agora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:            "test",
		DBDriver:       "sqlite",
		SQLitePath:     filepath.Join(t.TempDir(), "agora.db"),
		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,
		RedisURL:       "127.0.0.1:1",
	}
}

func TestInitRuntime_SeedsEmptyDatabaseOnce(t *testing.T) {
	t.Cleanup(func() { cache.SetClient(nil) })
	cfg := testConfig(t)

	db, rdb, err := InitRuntime(cfg, Options{SeedDemo: true})
	require.NoError(t, err)
	assert.Nil(t, rdb, "unreachable redis must leave the client nil")

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Positive(t, users)

	// A second seed pass leaves existing data alone.
	require.NoError(t, seedIfEmpty(db))
	var again int64
	require.NoError(t, db.Model(&models.User{}).Count(&again).Error)
	assert.Equal(t, users, again)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestInitRuntime_NoSeed(t *testing.T) {
	t.Cleanup(func() { cache.SetClient(nil) })

	db, _, err := InitRuntime(testConfig(t), Options{})
	require.NoError(t, err)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}
