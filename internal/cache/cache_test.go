package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
		mr.Close()
	})
	return mr
}

type payload struct {
	Name string `json:"name"`
}

func TestAside_FetchesOnceThenServesFromCache(t *testing.T) {
	withMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *payload) func() error {
		return func() error {
			calls++
			dest.Name = "ada"
			return nil
		}
	}

	var first payload
	require.NoError(t, Aside(ctx, UserKey(1), &first, UserTTL, fetch(&first)))
	var second payload
	require.NoError(t, Aside(ctx, UserKey(1), &second, UserTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "ada", second.Name)

	InvalidateUser(ctx, 1)
	var third payload
	require.NoError(t, Aside(ctx, UserKey(1), &third, UserTTL, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := withMiniredis(t)
	boom := errors.New("boom")

	var dest payload
	err := Aside(context.Background(), UserKey(2), &dest, UserTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(UserKey(2)))
}

func TestAside_WithoutRedisAlwaysFetches(t *testing.T) {
	SetClient(nil)
	calls := 0
	for i := 0; i < 2; i++ {
		var dest payload
		require.NoError(t, Aside(context.Background(), UserKey(3), &dest, UserTTL, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestDiscussionListKey_ChangesAfterInvalidation(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	before := DiscussionListKey(ctx, "", 10, 0)
	assert.Equal(t, "discussions:list:g0:all:10:0", before)

	InvalidateDiscussionLists(ctx)
	after := DiscussionListKey(ctx, "tech", 10, 0)
	assert.Equal(t, "discussions:list:g1:tech:10:0", after)

	require.NoError(t, SetJSON(ctx, after, payload{Name: "x"}, DiscussionListTTL))
	ttl := mr.TTL(after)
	assert.True(t, ttl > 0 && ttl <= DiscussionListTTL)
}
