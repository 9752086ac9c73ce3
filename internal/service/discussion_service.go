package service

import (
	"context"
	"strings"

	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/validation"
)

// Listing page size bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// DiscussionService provides discussion business logic.
type DiscussionService struct {
	discussionRepo repository.DiscussionRepository
	userRepo       repository.UserRepository
}

// CreateDiscussionInput is the input for creating a discussion.
type CreateDiscussionInput struct {
	UserID   uint   `json:"-"`
	Title    string `json:"title" validate:"notblank,max=255"`
	Content  string `json:"content" validate:"min=10"`
	Category string `json:"category" validate:"oneof=general tech help offtopic"`
}

// UpdateDiscussionInput is the input for editing a discussion. All fields are revalidated.
type UpdateDiscussionInput struct {
	UserID       uint   `json:"-"`
	DiscussionID uint   `json:"-"`
	Title        string `json:"title" validate:"notblank,max=255"`
	Content      string `json:"content" validate:"min=10"`
	Category     string `json:"category" validate:"oneof=general tech help offtopic"`
}

// ModerateDiscussionInput toggles pin/lock flags. Nil fields are left unchanged.
type ModerateDiscussionInput struct {
	UserID       uint  `json:"-"`
	DiscussionID uint  `json:"-"`
	IsPinned     *bool `json:"is_pinned"`
	IsLocked     *bool `json:"is_locked"`
}

// NewDiscussionService returns a new DiscussionService.
func NewDiscussionService(discussionRepo repository.DiscussionRepository, userRepo repository.UserRepository) *DiscussionService {
	return &DiscussionService{discussionRepo: discussionRepo, userRepo: userRepo}
}

// ClampPage applies the default and maximum page size and floors offset at zero.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func validCategory(category string) bool {
	for _, c := range models.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// List returns a page of discussions, pinned first then newest first.
func (s *DiscussionService) List(ctx context.Context, category string, limit, offset int) (*repository.DiscussionPage, error) {
	category = strings.TrimSpace(category)
	if category != "" && !validCategory(category) {
		return nil, models.NewValidationError("category must be one of: " + strings.Join(models.Categories, ", "))
	}
	limit, offset = ClampPage(limit, offset)
	return s.discussionRepo.List(ctx, category, limit, offset)
}

// Create validates and stores a new discussion authored by in.UserID.
func (s *DiscussionService) Create(ctx context.Context, in CreateDiscussionInput) (*models.Discussion, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Category = strings.TrimSpace(in.Category)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	discussion := &models.Discussion{
		Title:    in.Title,
		Content:  in.Content,
		Category: in.Category,
		UserID:   in.UserID,
	}
	if err := s.discussionRepo.Create(ctx, discussion); err != nil {
		return nil, err
	}
	return s.discussionRepo.GetByID(ctx, discussion.ID)
}

// Show counts a view and returns the discussion with its comments.
func (s *DiscussionService) Show(ctx context.Context, id uint) (*models.Discussion, error) {
	if err := s.discussionRepo.IncrementViews(ctx, id); err != nil {
		return nil, err
	}
	return s.discussionRepo.GetWithComments(ctx, id)
}

// Update edits a discussion. Only its author may do so.
func (s *DiscussionService) Update(ctx context.Context, in UpdateDiscussionInput) (*models.Discussion, error) {
	discussion, err := s.discussionRepo.GetByID(ctx, in.DiscussionID)
	if err != nil {
		return nil, err
	}
	if discussion.UserID != in.UserID {
		return nil, models.NewForbiddenError("Only the author can edit this discussion")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Category = strings.TrimSpace(in.Category)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	discussion.Title = in.Title
	discussion.Content = in.Content
	discussion.Category = in.Category
	if err := s.discussionRepo.Update(ctx, discussion); err != nil {
		return nil, err
	}
	return s.discussionRepo.GetByID(ctx, discussion.ID)
}

// Delete removes a discussion and its comments. Only its author may do so.
func (s *DiscussionService) Delete(ctx context.Context, userID, id uint) error {
	discussion, err := s.discussionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if discussion.UserID != userID {
		return models.NewForbiddenError("Only the author can delete this discussion")
	}
	return s.discussionRepo.Delete(ctx, id)
}

// Moderate pins/unpins or locks/unlocks a discussion. Admin only.
func (s *DiscussionService) Moderate(ctx context.Context, in ModerateDiscussionInput) (*models.Discussion, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, models.NewForbiddenError("Admin access required")
	}
	if in.IsPinned == nil && in.IsLocked == nil {
		return nil, models.NewValidationError("is_pinned or is_locked is required")
	}
	if err := s.discussionRepo.UpdateFlags(ctx, in.DiscussionID, in.IsPinned, in.IsLocked); err != nil {
		return nil, err
	}
	return s.discussionRepo.GetByID(ctx, in.DiscussionID)
}
