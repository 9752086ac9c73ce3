package service

import (
	"context"
	"strings"
	"testing"

	"agora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDiscussion(userID uint) CreateDiscussionInput {
	return CreateDiscussionInput{
		UserID:   userID,
		Title:    "How do I profile Go code?",
		Content:  "pprof looks useful but where do I start?",
		Category: models.CategoryHelp,
	}
}

func TestDiscussionService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := seedUser(t, f.db, "alice")

	tests := []struct {
		name    string
		mutate  func(*CreateDiscussionInput)
		wantErr bool
	}{
		{"Valid", func(*CreateDiscussionInput) {}, false},
		{"Content Length 9", func(in *CreateDiscussionInput) { in.Content = "123456789" }, true},
		{"Content Length 10", func(in *CreateDiscussionInput) { in.Content = "1234567890" }, false},
		{"Content Padded To 10", func(in *CreateDiscussionInput) { in.Content = "   123456789   " }, true},
		{"Blank Title", func(in *CreateDiscussionInput) { in.Title = "   " }, true},
		{"Title 255", func(in *CreateDiscussionInput) { in.Title = strings.Repeat("t", 255) }, false},
		{"Title 256", func(in *CreateDiscussionInput) { in.Title = strings.Repeat("t", 256) }, true},
		{"Unknown Category", func(in *CreateDiscussionInput) { in.Category = "random" }, true},
		{"Missing Category", func(in *CreateDiscussionInput) { in.Category = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validDiscussion(author.ID)
			tt.mutate(&in)
			d, err := f.discussions.Create(ctx, in)
			if tt.wantErr {
				assertValidationError(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, d.ID)
			require.NotNil(t, d.User)
			assert.Equal(t, "alice", d.User.Name)
		})
	}
}

func TestDiscussionService_ShowCountsEveryView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := seedUser(t, f.db, "alice")
	d, err := f.discussions.Create(ctx, validDiscussion(author.ID))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.discussions.Show(ctx, d.ID)
		require.NoError(t, err)
	}
	shown, err := f.discussions.Show(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), shown.ViewsCount)

	_, err = f.discussions.Show(ctx, 9999)
	assertCode(t, err, models.CodeNotFound)
}

func TestDiscussionService_AuthorOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := seedUser(t, f.db, "alice")
	other := seedUser(t, f.db, "bobby")
	d, err := f.discussions.Create(ctx, validDiscussion(author.ID))
	require.NoError(t, err)

	edit := UpdateDiscussionInput{
		UserID:       other.ID,
		DiscussionID: d.ID,
		Title:        "hijacked",
		Content:      "this content is long enough",
		Category:     models.CategoryTech,
	}
	_, err = f.discussions.Update(ctx, edit)
	assertCode(t, err, models.CodeForbidden)

	err = f.discussions.Delete(ctx, other.ID, d.ID)
	assertCode(t, err, models.CodeForbidden)

	edit.UserID = author.ID
	edit.Content = "short"
	_, err = f.discussions.Update(ctx, edit)
	assertValidationError(t, err)

	edit.Content = "this content is long enough"
	updated, err := f.discussions.Update(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, "hijacked", updated.Title)
	assert.Equal(t, models.CategoryTech, updated.Category)

	require.NoError(t, f.discussions.Delete(ctx, author.ID, d.ID))
	_, err = f.discussions.Show(ctx, d.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestDiscussionService_ModerateAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := seedUser(t, f.db, "alice")
	admin := seedUser(t, f.db, "admin")
	require.NoError(t, f.db.Model(admin).Update("is_admin", true).Error)

	first, err := f.discussions.Create(ctx, validDiscussion(author.ID))
	require.NoError(t, err)
	second, err := f.discussions.Create(ctx, validDiscussion(author.ID))
	require.NoError(t, err)

	pin := true
	_, err = f.discussions.Moderate(ctx, ModerateDiscussionInput{UserID: author.ID, DiscussionID: first.ID, IsPinned: &pin})
	assertCode(t, err, models.CodeForbidden)

	_, err = f.discussions.Moderate(ctx, ModerateDiscussionInput{UserID: admin.ID, DiscussionID: first.ID})
	assertValidationError(t, err)

	moderated, err := f.discussions.Moderate(ctx, ModerateDiscussionInput{UserID: admin.ID, DiscussionID: first.ID, IsPinned: &pin})
	require.NoError(t, err)
	assert.True(t, moderated.IsPinned)
	assert.False(t, moderated.IsLocked)

	page, err := f.discussions.List(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, first.ID, page.Items[0].ID, "pinned first")
	assert.Equal(t, second.ID, page.Items[1].ID)

	_, err = f.discussions.List(ctx, "nonsense", 10, 0)
	assertValidationError(t, err)

	empty, err := f.discussions.List(ctx, models.CategoryTech, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.NotNil(t, empty.Items)
}

func TestClampPage(t *testing.T) {
	t.Parallel()
	limit, offset := ClampPage(0, -5)
	assert.Equal(t, DefaultPageSize, limit)
	assert.Zero(t, offset)

	limit, _ = ClampPage(1000, 0)
	assert.Equal(t, MaxPageSize, limit)
}
