package service

import (
	"context"
	"strings"
	"time"

	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
	"agora/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// ChatService provides conversation membership, message and read-state logic.
type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	now      func() time.Time
}

// CreateGroupInput is the input for creating a group conversation.
type CreateGroupInput struct {
	CreatorID uint   `json:"-"`
	Name      string `json:"name" validate:"notblank,max=255"`
	MemberIDs []uint `json:"member_ids" validate:"min=1"`
}

// AppendMessageInput is the input for sending a message.
type AppendMessageInput struct {
	UserID         uint   `json:"-"`
	ConversationID uint   `json:"-"`
	Content        string `json:"content" validate:"notblank,max=1000"`
}

// NewChatService returns a new ChatService.
func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		userRepo: userRepo,
		now:      utcNow,
	}
}

// FindOrCreateDirect returns the direct conversation between userID and otherID, creating it
// when it does not exist yet. created reports whether this call created it.
func (s *ChatService) FindOrCreateDirect(ctx context.Context, userID, otherID uint) (conv *models.Conversation, created bool, err error) {
	ctx, span := observability.StartSpan(ctx, "chat", "find_or_create_direct",
		attribute.Int64("user.id", int64(userID)), attribute.Int64("other.id", int64(otherID)))
	defer func() { observability.EndSpan(span, err) }()

	if otherID == 0 {
		return nil, false, models.NewValidationError("user_id is required")
	}
	if userID == otherID {
		return nil, false, models.NewValidationError("Cannot start a conversation with yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, otherID); err != nil {
		return nil, false, err
	}

	key := models.DirectKeyFor(userID, otherID)
	existing, err := s.chatRepo.FindDirect(ctx, key)
	switch {
	case err == nil:
		existing.ResolveDisplayName(userID)
		return existing, false, nil
	case !models.HasCode(err, models.CodeNotFound):
		return nil, false, err
	}

	var fresh *models.Conversation
	err = retryTransient(ctx, "create_direct", func() error {
		now := s.now()
		fresh = &models.Conversation{CreatedBy: userID, DirectKey: &key}
		members := []models.ConversationMember{
			{UserID: userID, JoinedAt: now},
			{UserID: otherID, JoinedAt: now},
		}
		return s.chatRepo.CreateConversation(ctx, fresh, members)
	})
	if models.HasCode(err, models.CodeConflict) {
		// Lost the race to a concurrent creator; the unique key guarantees one row.
		existing, err := s.chatRepo.FindDirect(ctx, key)
		if err != nil {
			return nil, false, err
		}
		existing.ResolveDisplayName(userID)
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	conv, err = s.chatRepo.GetConversation(ctx, fresh.ID)
	if err != nil {
		return nil, false, err
	}
	conv.ResolveDisplayName(userID)
	return conv, true, nil
}

// CreateGroup creates a group conversation with the creator as its admin.
func (s *ChatService) CreateGroup(ctx context.Context, in CreateGroupInput) (*models.Conversation, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	seen := map[uint]bool{in.CreatorID: true}
	others := make([]uint, 0, len(in.MemberIDs))
	for _, id := range in.MemberIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		others = append(others, id)
	}
	if len(others) == 0 {
		return nil, models.NewValidationError("A group needs at least one other member")
	}
	for _, id := range others {
		if _, err := s.userRepo.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}

	var conv *models.Conversation
	err := retryTransient(ctx, "create_group", func() error {
		now := s.now()
		conv = &models.Conversation{Name: in.Name, IsGroup: true, CreatedBy: in.CreatorID}
		members := make([]models.ConversationMember, 0, len(others)+1)
		members = append(members, models.ConversationMember{UserID: in.CreatorID, IsAdmin: true, JoinedAt: now})
		for _, id := range others {
			members = append(members, models.ConversationMember{UserID: id, JoinedAt: now})
		}
		return s.chatRepo.CreateConversation(ctx, conv, members)
	})
	if err != nil {
		return nil, err
	}

	created, err := s.chatRepo.GetConversation(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	created.ResolveDisplayName(in.CreatorID)
	return created, nil
}

// ListForUser returns the user's conversations, most recently active first, each with its
// display name, last message and unread count.
func (s *ChatService) ListForUser(ctx context.Context, userID uint) ([]*models.Conversation, error) {
	convs, err := s.chatRepo.ListUserConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return []*models.Conversation{}, nil
	}

	ids := make([]uint, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	last, err := s.chatRepo.LastMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	unread, err := s.chatRepo.UnreadCounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, c := range convs {
		c.ResolveDisplayName(userID)
		c.LastMessage = last[c.ID]
		c.UnreadCount = unread[c.ID]
	}
	return convs, nil
}

// AssertMember fails with NotFound for an unknown conversation and Forbidden when userID is
// not one of its members.
func (s *ChatService) AssertMember(ctx context.Context, convID, userID uint) error {
	exists, err := s.chatRepo.ConversationExists(ctx, convID)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFoundError("Conversation", convID)
	}
	member, err := s.chatRepo.IsMember(ctx, convID, userID)
	if err != nil {
		return err
	}
	if !member {
		return models.NewForbiddenError("You are not a member of this conversation")
	}
	return nil
}

// GetConversation returns a conversation with its members, as seen by userID. The
// membership check runs on the loaded members.
func (s *ChatService) GetConversation(ctx context.Context, convID, userID uint) (*models.Conversation, error) {
	conv, err := s.chatRepo.GetConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(userID) {
		return nil, models.NewForbiddenError("You are not a member of this conversation")
	}
	last, err := s.chatRepo.LastMessages(ctx, []uint{convID})
	if err != nil {
		return nil, err
	}
	unread, err := s.chatRepo.UnreadCount(ctx, convID, userID)
	if err != nil {
		return nil, err
	}
	conv.ResolveDisplayName(userID)
	conv.LastMessage = last[convID]
	conv.UnreadCount = unread
	return conv, nil
}

// Append stores a new message from a member. It never moves anyone's read cursor.
func (s *ChatService) Append(ctx context.Context, in AppendMessageInput) (msg *models.Message, err error) {
	ctx, span := observability.StartSpan(ctx, "chat", "append",
		attribute.Int64("conversation.id", int64(in.ConversationID)))
	defer func() { observability.EndSpan(span, err) }()

	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := s.AssertMember(ctx, in.ConversationID, in.UserID); err != nil {
		return nil, err
	}

	err = retryTransient(ctx, "append_message", func() error {
		msg = &models.Message{
			ConversationID: in.ConversationID,
			UserID:         in.UserID,
			Content:        in.Content,
			Type:           models.MessageTypeText,
			CreatedAt:      s.now(),
		}
		return s.chatRepo.CreateMessage(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	observability.MessagesAppended.WithLabelValues(msg.Type).Inc()
	return msg, nil
}

// ListSince returns the conversation's messages in ascending order. A non-zero sinceID
// returns only messages newer than that id.
func (s *ChatService) ListSince(ctx context.Context, convID, userID, sinceID uint) ([]*models.Message, error) {
	if err := s.AssertMember(ctx, convID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.chatRepo.ListMessages(ctx, convID, sinceID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	return msgs, nil
}

// MarkRead moves userID's read cursor to now and marks other members' unread messages as
// read. It returns how many messages changed; repeating the call returns 0.
func (s *ChatService) MarkRead(ctx context.Context, convID, userID uint) (marked int64, err error) {
	ctx, span := observability.StartSpan(ctx, "chat", "mark_read",
		attribute.Int64("conversation.id", int64(convID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := s.AssertMember(ctx, convID, userID); err != nil {
		return 0, err
	}
	err = retryTransient(ctx, "mark_read", func() error {
		var markErr error
		marked, markErr = s.chatRepo.MarkRead(ctx, convID, userID, s.now())
		return markErr
	})
	if err != nil {
		return 0, err
	}
	observability.MessagesMarkedRead.Add(float64(marked))
	return marked, nil
}

// UnreadCount counts messages from other members newer than userID's read cursor.
func (s *ChatService) UnreadCount(ctx context.Context, convID, userID uint) (int64, error) {
	if err := s.AssertMember(ctx, convID, userID); err != nil {
		return 0, err
	}
	return s.chatRepo.UnreadCount(ctx, convID, userID)
}

// TotalUnread sums the unread counts of all of userID's conversations.
func (s *ChatService) TotalUnread(ctx context.Context, userID uint) (int64, error) {
	counts, err := s.chatRepo.UnreadCounts(ctx, userID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	return total, nil
}
