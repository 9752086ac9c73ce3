package server

import (
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/discussions/:id/comments
// @Summary List comments
// @Description Comments of a discussion in creation order
// @Tags comments
// @Produce json
// @Param id path int true "Discussion ID"
// @Success 200 {array} models.Comment
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	discussionID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comments, err := s.commentService.List(c.UserContext(), discussionID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/discussions/:id/comments. parent_id makes it a reply.
// @Summary Create comment
// @Description Comment on a discussion, or reply when parent_id is set
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Discussion ID"
// @Param request body object{content=string,parent_id=integer} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	discussionID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.AddCommentInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.UserID = currentUserID(c)
	req.DiscussionID = discussionID

	comment, err := s.commentService.Add(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	s.notifyCommentCreated(c.UserContext(), comment)
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment handles PUT /api/comments/:id
// @Summary Update comment
// @Description Edit the content of your comment
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body object{content=string} true "Comment"
// @Success 200 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /comments/{id} [put]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.EditCommentInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.UserID = currentUserID(c)
	req.CommentID = commentID

	comment, err := s.commentService.Edit(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id. Replies are removed with it.
// @Summary Delete comment
// @Description Delete a comment and its replies
// @Tags comments
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.commentService.Delete(c.UserContext(), currentUserID(c), commentID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted successfully"})
}

// MarkSolution handles POST /api/comments/:id/mark-solution
// @Summary Mark solution
// @Description Mark a comment as the accepted solution of its discussion
// @Tags comments
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} models.Comment
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /comments/{id}/mark-solution [post]
func (s *Server) MarkSolution(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comment, err := s.commentService.MarkSolution(c.UserContext(), currentUserID(c), commentID)
	if err != nil {
		return respondServiceError(c, err)
	}
	s.notifySolutionMarked(c.UserContext(), comment)
	return c.JSON(comment)
}
