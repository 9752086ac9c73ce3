package repository

import (
	"context"
	"testing"
	"time"

	"agora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func solutionIDs(t *testing.T, db *gorm.DB, discussionID uint) []uint {
	t.Helper()
	var ids []uint
	require.NoError(t, db.Model(&models.Comment{}).
		Where("discussion_id = ? AND is_solution = ?", discussionID, true).
		Pluck("id", &ids).Error)
	return ids
}

func TestCommentRepository_CreateAndEdit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	ada := createUser(t, db, "ada")
	d := createDiscussion(t, db, ada, "topic", models.CategoryHelp, time.Now().UTC())

	c := &models.Comment{DiscussionID: d.ID, UserID: ada.ID, Content: "hello"}
	require.NoError(t, repo.Create(ctx, c))
	assert.NotZero(t, c.ID)
	require.NotNil(t, c.User)
	assert.Equal(t, "ada", c.User.Name)

	require.NoError(t, repo.UpdateContent(ctx, c.ID, "edited"))
	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)

	list, err := repo.ListByDiscussion(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = repo.GetByID(ctx, 999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestCommentRepository_DeleteWithReplies(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	ada := createUser(t, db, "ada")
	d := createDiscussion(t, db, ada, "topic", models.CategoryHelp, time.Now().UTC())

	root := &models.Comment{DiscussionID: d.ID, UserID: ada.ID, Content: "root"}
	require.NoError(t, repo.Create(ctx, root))
	child := &models.Comment{DiscussionID: d.ID, UserID: ada.ID, Content: "child", ParentID: &root.ID}
	require.NoError(t, repo.Create(ctx, child))
	grandchild := &models.Comment{DiscussionID: d.ID, UserID: ada.ID, Content: "grandchild", ParentID: &child.ID}
	require.NoError(t, repo.Create(ctx, grandchild))
	sibling := &models.Comment{DiscussionID: d.ID, UserID: ada.ID, Content: "sibling"}
	require.NoError(t, repo.Create(ctx, sibling))

	deleted, err := repo.DeleteWithReplies(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	remaining, err := repo.ListByDiscussion(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, sibling.ID, remaining[0].ID)

	_, err = repo.DeleteWithReplies(ctx, root.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestCommentRepository_MarkSolution(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	ada := createUser(t, db, "ada")
	d := createDiscussion(t, db, ada, "topic", models.CategoryHelp, time.Now().UTC())
	other := createDiscussion(t, db, ada, "elsewhere", models.CategoryHelp, time.Now().UTC())

	c1 := &models.Comment{DiscussionID: d.ID, UserID: ada.ID, Content: "c1"}
	c2 := &models.Comment{DiscussionID: d.ID, UserID: ada.ID, Content: "c2"}
	foreign := &models.Comment{DiscussionID: other.ID, UserID: ada.ID, Content: "foreign"}
	require.NoError(t, repo.Create(ctx, c1))
	require.NoError(t, repo.Create(ctx, c2))
	require.NoError(t, repo.Create(ctx, foreign))

	require.NoError(t, repo.MarkSolution(ctx, d.ID, c1.ID))
	assert.Equal(t, []uint{c1.ID}, solutionIDs(t, db, d.ID))

	require.NoError(t, repo.MarkSolution(ctx, d.ID, c2.ID))
	assert.Equal(t, []uint{c2.ID}, solutionIDs(t, db, d.ID))

	require.NoError(t, repo.MarkSolution(ctx, d.ID, c2.ID))
	assert.Equal(t, []uint{c2.ID}, solutionIDs(t, db, d.ID))

	err := repo.MarkSolution(ctx, d.ID, foreign.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.Equal(t, []uint{c2.ID}, solutionIDs(t, db, d.ID), "rejected call leaves state untouched")

	err = repo.MarkSolution(ctx, 999, c1.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
