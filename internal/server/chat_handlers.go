package server

import (
	"time"

	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetConversations handles GET /api/conversations
// @Summary List conversations
// @Description Conversations the caller belongs to, with last message and unread count
// @Tags chat
// @Produce json
// @Success 200 {array} models.Conversation
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations [get]
func (s *Server) GetConversations(c *fiber.Ctx) error {
	convs, err := s.chatService.ListForUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(convs)
}

// CreateConversation handles POST /api/conversations. A body with user_id finds or
// creates the direct conversation with that user; name and member_ids create a group.
// @Summary Create conversation
// @Description user_id finds or creates a direct conversation; name and member_ids create a group
// @Tags chat
// @Accept json
// @Produce json
// @Param request body object{user_id=integer,name=string,member_ids=[]integer} true "Direct or group conversation"
// @Success 201 {object} models.Conversation
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations [post]
func (s *Server) CreateConversation(c *fiber.Ctx) error {
	var req struct {
		UserID    uint   `json:"user_id"`
		Name      string `json:"name"`
		MemberIDs []uint `json:"member_ids"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	ctx := c.UserContext()
	userID := currentUserID(c)

	if req.UserID != 0 || (req.Name == "" && len(req.MemberIDs) == 0) {
		conv, created, err := s.chatService.FindOrCreateDirect(ctx, userID, req.UserID)
		if err != nil {
			return respondServiceError(c, err)
		}
		if !created {
			return c.JSON(conv)
		}
		s.notifyConversationCreated(ctx, conv)
		return c.Status(fiber.StatusCreated).JSON(conv)
	}

	conv, err := s.chatService.CreateGroup(ctx, service.CreateGroupInput{
		CreatorID: userID,
		Name:      req.Name,
		MemberIDs: req.MemberIDs,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	s.notifyConversationCreated(ctx, conv)
	return c.Status(fiber.StatusCreated).JSON(conv)
}

// GetConversation handles GET /api/conversations/:id
// @Summary Get conversation
// @Description Conversation with its members
// @Tags chat
// @Produce json
// @Param id path int true "Conversation ID"
// @Success 200 {object} models.Conversation
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/{id} [get]
func (s *Server) GetConversation(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	conv, err := s.chatService.GetConversation(c.UserContext(), convID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(conv)
}

// GetMessages handles GET /api/conversations/:id/messages?since_id=
// @Summary List messages
// @Description Messages oldest first, optionally only those after since_id
// @Tags chat
// @Produce json
// @Param id path int true "Conversation ID"
// @Param since_id query int false "Only messages with a greater ID"
// @Success 200 {array} models.Message
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/{id}/messages [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	sinceID := c.QueryInt("since_id", 0)
	if sinceID < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("since_id must not be negative"))
	}

	msgs, err := s.chatService.ListSince(c.UserContext(), convID, currentUserID(c), uint(sinceID))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(msgs)
}

// SendMessage handles POST /api/conversations/:id/messages
// @Summary Send message
// @Description Post a message to a conversation
// @Tags chat
// @Accept json
// @Produce json
// @Param id path int true "Conversation ID"
// @Param request body object{content=string} true "Message"
// @Success 201 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/{id}/messages [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.AppendMessageInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.UserID = currentUserID(c)
	req.ConversationID = convID

	msg, err := s.chatService.Append(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	s.notifyMessageCreated(c.UserContext(), msg)
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// MarkConversationRead handles POST /api/conversations/:id/mark-read
// @Summary Mark conversation read
// @Description Mark every message from other members as read
// @Tags chat
// @Produce json
// @Param id path int true "Conversation ID"
// @Success 200 {object} object{conversation_id=integer,marked=integer}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/{id}/mark-read [post]
func (s *Server) MarkConversationRead(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)

	marked, err := s.chatService.MarkRead(c.UserContext(), convID, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if marked > 0 {
		s.notifyConversationRead(c.UserContext(), convID, userID, time.Now().UTC())
	}
	return c.JSON(fiber.Map{
		"conversation_id": convID,
		"marked":          marked,
	})
}

// GetUnreadCount handles GET /api/conversations/:id/unread-count
// @Summary Conversation unread count
// @Description Unread messages in one conversation
// @Tags chat
// @Produce json
// @Param id path int true "Conversation ID"
// @Success 200 {object} object{conversation_id=integer,unread_count=integer}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/{id}/unread-count [get]
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	count, err := s.chatService.UnreadCount(c.UserContext(), convID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"conversation_id": convID,
		"unread_count":    count,
	})
}

// GetTotalUnread handles GET /api/conversations/unread-count
// @Summary Total unread count
// @Description Unread messages across all conversations
// @Tags chat
// @Produce json
// @Success 200 {object} object{unread_count=integer}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/unread-count [get]
func (s *Server) GetTotalUnread(c *fiber.Ctx) error {
	count, err := s.chatService.TotalUnread(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": count})
}
