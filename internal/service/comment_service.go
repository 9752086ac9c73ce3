package service

import (
	"context"
	"log/slog"
	"strings"

	"agora/internal/database"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
	"agora/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// CommentService provides comment business logic, including solution marking.
type CommentService struct {
	commentRepo    repository.CommentRepository
	discussionRepo repository.DiscussionRepository
}

// AddCommentInput is the input for commenting on a discussion.
type AddCommentInput struct {
	UserID       uint   `json:"-"`
	DiscussionID uint   `json:"-"`
	ParentID     *uint  `json:"parent_id"`
	Content      string `json:"content" validate:"notblank,max=10000"`
}

// EditCommentInput is the input for editing a comment.
type EditCommentInput struct {
	UserID    uint   `json:"-"`
	CommentID uint   `json:"-"`
	Content   string `json:"content" validate:"notblank,max=10000"`
}

// NewCommentService returns a new CommentService.
func NewCommentService(commentRepo repository.CommentRepository, discussionRepo repository.DiscussionRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo, discussionRepo: discussionRepo}
}

// Add creates a comment, optionally replying to another comment of the same discussion.
func (s *CommentService) Add(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	discussion, err := s.discussionRepo.GetByID(ctx, in.DiscussionID)
	if err != nil {
		return nil, err
	}
	if discussion.IsLocked {
		return nil, models.NewForbiddenError("Discussion is locked")
	}

	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.DiscussionID != discussion.ID {
			return nil, models.NewValidationError("Parent comment belongs to a different discussion")
		}
	}

	comment := &models.Comment{
		DiscussionID: discussion.ID,
		ParentID:     in.ParentID,
		UserID:       in.UserID,
		Content:      in.Content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// List returns a discussion's comments in thread order.
func (s *CommentService) List(ctx context.Context, discussionID uint) ([]*models.Comment, error) {
	if _, err := s.discussionRepo.GetByID(ctx, discussionID); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByDiscussion(ctx, discussionID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return comments, nil
}

// Edit replaces a comment's content. Only its author may do so.
func (s *CommentService) Edit(ctx context.Context, in EditCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != in.UserID {
		return nil, models.NewForbiddenError("Only the author can edit this comment")
	}

	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := s.commentRepo.UpdateContent(ctx, comment.ID, in.Content); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID)
}

// Delete removes a comment and its replies. Only its author may do so.
func (s *CommentService) Delete(ctx context.Context, userID, commentID uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, models.NewForbiddenError("Only the author can delete this comment")
	}
	if _, err := s.commentRepo.DeleteWithReplies(ctx, commentID); err != nil {
		return nil, err
	}
	return comment, nil
}

// MarkSolution makes the comment the single accepted answer of its discussion. Only the
// discussion's author may mark, whoever wrote the comment.
func (s *CommentService) MarkSolution(ctx context.Context, userID, commentID uint) (comment *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "comment", "mark_solution",
		attribute.Int64("comment.id", int64(commentID)))
	defer func() { observability.EndSpan(span, err) }()

	comment, err = s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	discussion, err := s.discussionRepo.GetByID(ctx, comment.DiscussionID)
	if err != nil {
		return nil, err
	}
	if discussion.UserID != userID {
		return nil, models.NewForbiddenError("Only the discussion author can mark a solution")
	}

	err = retryTransient(ctx, "mark_solution", func() error {
		return s.commentRepo.MarkSolution(ctx, discussion.ID, comment.ID)
	})
	if database.IsTransient(err) {
		middleware.Logger.WarnContext(ctx, "solution marking still conflicting after retry",
			slog.Uint64("comment_id", uint64(comment.ID)),
			slog.String("error", err.Error()),
		)
		return nil, models.NewConflictError("Solution was updated concurrently, please retry", nil)
	}
	if err != nil {
		return nil, err
	}
	observability.SolutionsMarked.Inc()
	comment.IsSolution = true
	return comment, nil
}
