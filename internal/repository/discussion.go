package repository

import (
	"context"

	"agora/internal/cache"
	"agora/internal/models"

	"gorm.io/gorm"
)

// DiscussionPage is one page of a discussion listing.
type DiscussionPage struct {
	Items []*models.Discussion `json:"items"`
	Total int64                `json:"total"`
}

// DiscussionRepository defines persistence operations for discussions.
type DiscussionRepository interface {
	List(ctx context.Context, category string, limit, offset int) (*DiscussionPage, error)
	GetByID(ctx context.Context, id uint) (*models.Discussion, error)
	GetWithComments(ctx context.Context, id uint) (*models.Discussion, error)
	Create(ctx context.Context, discussion *models.Discussion) error
	Update(ctx context.Context, discussion *models.Discussion) error
	UpdateFlags(ctx context.Context, id uint, pinned, locked *bool) error
	Delete(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) error
}

type discussionRepository struct {
	db *gorm.DB
}

// NewDiscussionRepository creates a new DiscussionRepository
func NewDiscussionRepository(db *gorm.DB) DiscussionRepository {
	return &discussionRepository{db: db}
}

// List returns pinned discussions first, then newest first. Pages are cached briefly;
// any write to discussions or comments retires them.
func (r *discussionRepository) List(ctx context.Context, category string, limit, offset int) (*DiscussionPage, error) {
	var page DiscussionPage
	key := cache.DiscussionListKey(ctx, category, limit, offset)

	err := cache.Aside(ctx, key, &page, cache.DiscussionListTTL, func() error {
		scoped := func() *gorm.DB {
			q := r.db.WithContext(ctx).Model(&models.Discussion{})
			if category != "" {
				q = q.Where("category = ?", category)
			}
			return q
		}
		if err := scoped().Count(&page.Total).Error; err != nil {
			return models.NewInternalError(err)
		}

		if err := scoped().Preload("User").
			Order("is_pinned DESC, created_at DESC, id DESC").
			Limit(limit).
			Offset(offset).
			Find(&page.Items).Error; err != nil {
			return models.NewInternalError(err)
		}
		return r.attachCommentCounts(ctx, page.Items)
	})
	if err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []*models.Discussion{}
	}
	return &page, nil
}

func (r *discussionRepository) attachCommentCounts(ctx context.Context, discussions []*models.Discussion) error {
	if len(discussions) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(discussions))
	for _, d := range discussions {
		ids = append(ids, d.ID)
	}

	var rows []struct {
		DiscussionID uint
		Total        int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("discussion_id, COUNT(*) AS total").
		Where("discussion_id IN ?", ids).
		Group("discussion_id").
		Scan(&rows).Error; err != nil {
		return models.NewInternalError(err)
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.DiscussionID] = row.Total
	}
	for _, d := range discussions {
		d.CommentsCount = counts[d.ID]
	}
	return nil
}

func (r *discussionRepository) GetByID(ctx context.Context, id uint) (*models.Discussion, error) {
	var discussion models.Discussion
	if err := r.db.WithContext(ctx).Preload("User").First(&discussion, id).Error; err != nil {
		return nil, notFoundOr(err, "Discussion", id)
	}
	return &discussion, nil
}

// GetWithComments loads the discussion with its comments in thread order and all authors.
func (r *discussionRepository) GetWithComments(ctx context.Context, id uint) (*models.Discussion, error) {
	var discussion models.Discussion
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Comments.User").
		First(&discussion, id).Error
	if err != nil {
		return nil, notFoundOr(err, "Discussion", id)
	}
	discussion.CommentsCount = int64(len(discussion.Comments))
	return &discussion, nil
}

func (r *discussionRepository) Create(ctx context.Context, discussion *models.Discussion) error {
	if err := r.db.WithContext(ctx).Omit("User", "Comments").Create(discussion).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateDiscussionLists(ctx)
	return nil
}

// Update writes title, content and category.
func (r *discussionRepository) Update(ctx context.Context, discussion *models.Discussion) error {
	res := r.db.WithContext(ctx).Model(&models.Discussion{}).
		Where("id = ?", discussion.ID).
		Updates(map[string]interface{}{
			"title":    discussion.Title,
			"content":  discussion.Content,
			"category": discussion.Category,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Discussion", discussion.ID)
	}
	cache.InvalidateDiscussionLists(ctx)
	return nil
}

// UpdateFlags sets is_pinned and/or is_locked; nil leaves a flag unchanged.
func (r *discussionRepository) UpdateFlags(ctx context.Context, id uint, pinned, locked *bool) error {
	updates := map[string]interface{}{}
	if pinned != nil {
		updates["is_pinned"] = *pinned
	}
	if locked != nil {
		updates["is_locked"] = *locked
	}
	if len(updates) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&models.Discussion{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Discussion", id)
	}
	cache.InvalidateDiscussionLists(ctx)
	return nil
}

// Delete removes the discussion and all of its comments.
func (r *discussionRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("discussion_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Discussion{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Discussion", id)
		}
		return nil
	})
	if err != nil {
		return storeErr(err)
	}
	cache.InvalidateDiscussionLists(ctx)
	return nil
}

// IncrementViews bumps views_count in place without touching updated_at.
func (r *discussionRepository) IncrementViews(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Discussion{}).
		Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + ?", 1))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Discussion", id)
	}
	return nil
}
