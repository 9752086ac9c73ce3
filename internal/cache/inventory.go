package cache

import (
	"context"
	"fmt"
	"time"
)

// Key formats. Unread counts are deliberately absent: they are always read from the store.
const (
	UserKeyPrefix            = "user:%d"
	DiscussionListGenKey     = "discussions:gen"
	DiscussionListKeyPattern = "discussions:list:g%d:%s:%d:%d"
	BlacklistKeyPrefix       = "blacklist:%s"
	WSTicketKeyPrefix        = "ws_ticket:%s"
)

const (
	UserTTL           = 5 * time.Minute
	DiscussionListTTL = 30 * time.Second
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// DiscussionListKey builds the key of one listing page under the current generation.
func DiscussionListKey(ctx context.Context, category string, limit, offset int) string {
	if category == "" {
		category = "all"
	}
	return fmt.Sprintf(DiscussionListKeyPattern, discussionListGeneration(ctx), category, limit, offset)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketKeyPrefix, ticket)
}

func discussionListGeneration(ctx context.Context) int64 {
	if client == nil {
		return 0
	}
	gen, err := client.Get(ctx, DiscussionListGenKey).Int64()
	if err != nil {
		return 0
	}
	return gen
}

// Invalidate deletes key, ignoring errors.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateDiscussionLists retires every cached listing page by bumping the generation.
// Stale pages expire on their own TTL.
func InvalidateDiscussionLists(ctx context.Context) {
	if client != nil {
		client.Incr(ctx, DiscussionListGenKey)
	}
}
