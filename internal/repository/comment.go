package repository

import (
	"context"

	"agora/internal/cache"
	"agora/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByDiscussion(ctx context.Context, discussionID uint) ([]*models.Comment, error)
	UpdateContent(ctx context.Context, id uint, content string) error
	DeleteWithReplies(ctx context.Context, id uint) (int64, error)
	MarkSolution(ctx context.Context, discussionID, commentID uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateDiscussionLists(ctx)

	var author models.User
	if err := r.db.WithContext(ctx).First(&author, comment.UserID).Error; err != nil {
		return notFoundOr(err, "User", comment.UserID)
	}
	comment.User = &author
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return nil, notFoundOr(err, "Comment", id)
	}
	return &comment, nil
}

func (r *commentRepository) ListByDiscussion(ctx context.Context, discussionID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("discussion_id = ?", discussionID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

// DeleteWithReplies removes the comment and every reply beneath it, returning how many
// rows were deleted.
func (r *commentRepository) DeleteWithReplies(ctx context.Context, id uint) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := []uint{id}
		frontier := []uint{id}
		for len(frontier) > 0 {
			var children []uint
			if err := tx.Model(&models.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return err
			}
			ids = append(ids, children...)
			frontier = children
		}

		res := tx.Where("id IN ?", ids).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Comment", id)
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, storeErr(err)
	}
	cache.InvalidateDiscussionLists(ctx)
	return deleted, nil
}

// MarkSolution makes commentID the only solution of discussionID. The discussion row is
// locked first so concurrent calls on the same discussion run one after another.
func (r *commentRepository) MarkSolution(ctx context.Context, discussionID, commentID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock := tx.Select("id")
		if isPostgres(tx) {
			lock = lock.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var discussion models.Discussion
		if err := lock.First(&discussion, discussionID).Error; err != nil {
			return notFoundOr(err, "Discussion", discussionID)
		}

		var target models.Comment
		if err := tx.Select("id").
			Where("id = ? AND discussion_id = ?", commentID, discussionID).
			First(&target).Error; err != nil {
			return notFoundOr(err, "Comment", commentID)
		}

		if err := tx.Model(&models.Comment{}).
			Where("discussion_id = ? AND id <> ? AND is_solution = ?", discussionID, commentID, true).
			Update("is_solution", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.Comment{}).
			Where("id = ?", commentID).
			Update("is_solution", true).Error
	})
	return storeErr(err)
}
