package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"agora/internal/cache"
	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret-that-is-at-least-32-chars"

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	redis  *redis.Client
	mr     *miniredis.Miniredis
}

type envOption func(*testing.T, *testEnv)

// withRedis backs the server with miniredis for tickets, revocation and pub/sub.
func withRedis() envOption {
	return func(t *testing.T, env *testEnv) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		env.mr = mr
		env.redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() {
			_ = env.redis.Close()
			mr.Close()
		})
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	cache.SetClient(nil)

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	env := &testEnv{db: db}
	for _, opt := range opts {
		opt(t, env)
	}

	cfg := &config.Config{JWTSecret: testSecret, Env: "test", Port: "0"}
	s, err := NewServerWithDeps(cfg, db, env.redis)
	require.NoError(t, err)
	s.userService.WithHashCost(bcrypt.MinCost)

	env.server = s
	env.app = s.NewApp()
	return env
}

// seedUser inserts a user and returns it with a valid bearer token.
func (env *testEnv) seedUser(t *testing.T, name string) (*models.User, string) {
	t.Helper()
	u := &models.User{Name: name, Email: fmt.Sprintf("%s@example.com", name), Password: "hash"}
	require.NoError(t, env.db.Create(u).Error)
	token, err := env.server.generateToken(u.ID)
	require.NoError(t, err)
	return u, token
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	return decode[models.ErrorResponse](t, resp).Code
}
