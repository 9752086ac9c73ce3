package server

import (
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetDiscussions handles GET /api/discussions?category=&limit=&offset=
// @Summary List discussions
// @Description Pinned first, then newest
// @Tags discussions
// @Produce json
// @Param category query string false "Filter by category"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} object{discussions=[]models.Discussion,total=integer,limit=integer,offset=integer}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions [get]
func (s *Server) GetDiscussions(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)
	result, err := s.discussionService.List(c.UserContext(), c.Query("category"), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"discussions": result.Items,
		"total":       result.Total,
		"limit":       page.Limit,
		"offset":      page.Offset,
	})
}

// CreateDiscussion handles POST /api/discussions
// @Summary Create discussion
// @Description Start a new discussion
// @Tags discussions
// @Accept json
// @Produce json
// @Param request body object{title=string,content=string,category=string} true "Discussion"
// @Success 201 {object} models.Discussion
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions [post]
func (s *Server) CreateDiscussion(c *fiber.Ctx) error {
	var req service.CreateDiscussionInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.UserID = currentUserID(c)

	discussion, err := s.discussionService.Create(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(discussion)
}

// GetDiscussion handles GET /api/discussions/:id. Each call counts as a view.
// @Summary Get discussion
// @Description Discussion by ID; counts as a view
// @Tags discussions
// @Produce json
// @Param id path int true "Discussion ID"
// @Success 200 {object} models.Discussion
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions/{id} [get]
func (s *Server) GetDiscussion(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	discussion, err := s.discussionService.Show(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(discussion)
}

// UpdateDiscussion handles PUT /api/discussions/:id
// @Summary Update discussion
// @Description Edit your discussion
// @Tags discussions
// @Accept json
// @Produce json
// @Param id path int true "Discussion ID"
// @Param request body object{title=string,content=string,category=string} true "Discussion"
// @Success 200 {object} models.Discussion
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions/{id} [put]
func (s *Server) UpdateDiscussion(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.UpdateDiscussionInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.UserID = currentUserID(c)
	req.DiscussionID = id

	discussion, err := s.discussionService.Update(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(discussion)
}

// DeleteDiscussion handles DELETE /api/discussions/:id
// @Summary Delete discussion
// @Description Delete a discussion and its comments
// @Tags discussions
// @Produce json
// @Param id path int true "Discussion ID"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions/{id} [delete]
func (s *Server) DeleteDiscussion(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.discussionService.Delete(c.UserContext(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Discussion deleted successfully"})
}

// ModerateDiscussion handles PATCH /api/discussions/:id/moderation (admin only).
// @Summary Moderate discussion
// @Description Pin or lock a discussion (admin only)
// @Tags discussions
// @Accept json
// @Produce json
// @Param id path int true "Discussion ID"
// @Param request body object{is_pinned=boolean,is_locked=boolean} true "Moderation flags"
// @Success 200 {object} models.Discussion
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions/{id}/moderation [patch]
func (s *Server) ModerateDiscussion(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.ModerateDiscussionInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.UserID = currentUserID(c)
	req.DiscussionID = id

	discussion, err := s.discussionService.Moderate(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(discussion)
}
