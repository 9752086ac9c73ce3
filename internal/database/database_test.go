package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"agora/internal/config"
	"agora/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOpenSQLite_MigratesAllModels(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestConnect_SQLite(t *testing.T) {
	cfg := &config.Config{Env: "test", DBDriver: "sqlite", SQLitePath: ":memory:"}
	db, err := Connect(cfg)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", db.Dialector.Name())
	assert.Same(t, db, DB)
	assert.True(t, db.Migrator().HasTable(&models.Discussion{}))
}

func TestConfigurePool(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)

	require.NoError(t, configurePool(db, &config.Config{DBMaxOpenConns: 10}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestIsUniqueViolation(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Create(&models.User{Name: "ada", Email: "ada@example.com", Password: "x"}).Error)
	dupErr := db.Create(&models.User{Name: "ada", Email: "other@example.com", Password: "x"}).Error
	require.Error(t, dupErr)
	assert.True(t, IsUniqueViolation(dupErr))

	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsTransient(t *testing.T) {
	t.Parallel()
	assert.True(t, IsTransient(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsTransient(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, IsTransient(errors.New("database is locked")))
	assert.False(t, IsTransient(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsTransient(errors.New("syntax error")))
	assert.False(t, IsTransient(nil))
}

func TestRetryTransient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("retries once then succeeds", func(t *testing.T) {
		calls, retries := 0, 0
		err := RetryTransient(ctx, 1, func() error {
			calls++
			if calls == 1 {
				return &pgconn.PgError{Code: "40001"}
			}
			return nil
		}, func(int, error) { retries++ })
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 1, retries)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		calls := 0
		err := RetryTransient(ctx, 1, func() error {
			calls++
			return &pgconn.PgError{Code: "40P01"}
		}, nil)
		assert.True(t, IsTransient(err))
		assert.Equal(t, 2, calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := RetryTransient(ctx, 3, func() error {
			calls++
			return boom
		}, nil)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})
}
