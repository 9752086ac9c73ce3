package server

import (
	"context"
	"log/slog"
	"time"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

// Events are delivered through Redis when it is configured, so every instance (this one
// included, via StartWiring) forwards them exactly once. Without Redis they go straight
// to the local hub.

func (s *Server) publishUserEvent(ctx context.Context, userID uint, eventType string, payload any) {
	message, err := notifications.Encode(eventType, payload)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode event",
			slog.String("type", eventType), slog.String("error", err.Error()))
		return
	}
	if s.notifier.Enabled() {
		if err := s.notifier.PublishUser(ctx, userID, message); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish user event",
				slog.String("type", eventType),
				slog.Uint64("recipient_id", uint64(userID)),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	s.hub.SendToUser(userID, message)
}

func (s *Server) publishBroadcastEvent(ctx context.Context, eventType string, payload any) {
	message, err := notifications.Encode(eventType, payload)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode event",
			slog.String("type", eventType), slog.String("error", err.Error()))
		return
	}
	if s.notifier.Enabled() {
		if err := s.notifier.PublishBroadcast(ctx, message); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish broadcast event",
				slog.String("type", eventType), slog.String("error", err.Error()))
		}
		return
	}
	s.hub.SendToAll(message)
}

// publishToMembers sends the event to every member except skipUserID (0 skips nobody).
func (s *Server) publishToMembers(ctx context.Context, memberIDs []uint, skipUserID uint, eventType string, payload any) {
	for _, id := range memberIDs {
		if id == skipUserID {
			continue
		}
		s.publishUserEvent(ctx, id, eventType, payload)
	}
}

func (s *Server) memberIDs(ctx context.Context, convID uint) []uint {
	conv, err := s.chatRepo.GetConversation(ctx, convID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load conversation members for event",
			slog.Uint64("conversation_id", uint64(convID)), slog.String("error", err.Error()))
		return nil
	}
	return conv.MemberIDs()
}

// Event publication must outlive the request; handlers pass a detached context.
func eventContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (s *Server) notifyMessageCreated(ctx context.Context, msg *models.Message) {
	ctx = eventContext(ctx)
	s.publishToMembers(ctx, s.memberIDs(ctx, msg.ConversationID), 0, notifications.EventMessageCreated, msg)
}

func (s *Server) notifyConversationCreated(ctx context.Context, conv *models.Conversation) {
	ctx = eventContext(ctx)
	payload := struct {
		ID      uint   `json:"id"`
		IsGroup bool   `json:"is_group"`
		Name    string `json:"name,omitempty"`
		Members []uint `json:"member_ids"`
	}{ID: conv.ID, IsGroup: conv.IsGroup, Name: conv.Name, Members: conv.MemberIDs()}
	s.publishToMembers(ctx, payload.Members, conv.CreatedBy, notifications.EventConversationNew, payload)
}

func (s *Server) notifyConversationRead(ctx context.Context, convID, readerID uint, readAt time.Time) {
	ctx = eventContext(ctx)
	payload := fiber.Map{
		"conversation_id": convID,
		"user_id":         readerID,
		"read_at":         readAt,
	}
	s.publishToMembers(ctx, s.memberIDs(ctx, convID), readerID, notifications.EventConversationRead, payload)
}

func (s *Server) notifyCommentCreated(ctx context.Context, comment *models.Comment) {
	s.publishBroadcastEvent(eventContext(ctx), notifications.EventCommentCreated, comment)
}

func (s *Server) notifySolutionMarked(ctx context.Context, comment *models.Comment) {
	s.publishBroadcastEvent(eventContext(ctx), notifications.EventSolutionMarked, fiber.Map{
		"discussion_id": comment.DiscussionID,
		"comment_id":    comment.ID,
	})
}
