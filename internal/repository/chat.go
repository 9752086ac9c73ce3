package repository

import (
	"context"
	"time"

	"agora/internal/database"
	"agora/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the interface for conversation, membership and message data.
type ChatRepository interface {
	CreateConversation(ctx context.Context, conv *models.Conversation, members []models.ConversationMember) error
	GetConversation(ctx context.Context, id uint) (*models.Conversation, error)
	FindDirect(ctx context.Context, directKey string) (*models.Conversation, error)
	ConversationExists(ctx context.Context, id uint) (bool, error)
	IsMember(ctx context.Context, convID, userID uint) (bool, error)
	ListUserConversations(ctx context.Context, userID uint) ([]*models.Conversation, error)
	LastMessages(ctx context.Context, convIDs []uint) (map[uint]*models.Message, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, convID, afterID uint) ([]*models.Message, error)
	MarkRead(ctx context.Context, convID, userID uint, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, convID, userID uint) (int64, error)
	UnreadCounts(ctx context.Context, userID uint) (map[uint]int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// unreadCondition selects messages by other authors newer than the member's last read.
// It expects messages aliased as m and the member row joined as cm.
const unreadCondition = "m.user_id <> cm.user_id AND (cm.last_read_at IS NULL OR m.created_at > cm.last_read_at)"

// CreateConversation inserts conv and its members atomically. A direct_key collision is
// reported as a Conflict so callers can re-read the existing conversation.
func (r *chatRepository) CreateConversation(ctx context.Context, conv *models.Conversation, members []models.ConversationMember) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(conv).Error; err != nil {
			return err
		}
		for i := range members {
			members[i].ConversationID = conv.ID
		}
		return tx.Omit(clause.Associations).Create(&members).Error
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.NewConflictError("Conversation already exists", err)
		}
		return models.NewInternalError(err)
	}
	conv.Members = members
	return nil
}

func (r *chatRepository) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC, user_id ASC")
		}).
		Preload("Members.User").
		First(&conv, id).Error
	if err != nil {
		return nil, notFoundOr(err, "Conversation", id)
	}
	return &conv, nil
}

func (r *chatRepository) FindDirect(ctx context.Context, directKey string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Members.User").
		Where("direct_key = ?", directKey).
		First(&conv).Error
	if err != nil {
		return nil, notFoundOr(err, "Conversation", directKey)
	}
	return &conv, nil
}

func (r *chatRepository) ConversationExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Conversation{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *chatRepository) IsMember(ctx context.Context, convID, userID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

// ListUserConversations returns the user's conversations, most recently active first.
func (r *chatRepository) ListUserConversations(ctx context.Context, userID uint) ([]*models.Conversation, error) {
	var convs []*models.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_members cm ON cm.conversation_id = conversations.id AND cm.user_id = ?", userID).
		Preload("Members.User").
		Order("COALESCE((SELECT MAX(m.created_at) FROM messages m WHERE m.conversation_id = conversations.id), conversations.created_at) DESC").
		Order("conversations.id DESC").
		Find(&convs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return convs, nil
}

// LastMessages returns the newest message of each conversation, keyed by conversation id.
func (r *chatRepository) LastMessages(ctx context.Context, convIDs []uint) (map[uint]*models.Message, error) {
	out := make(map[uint]*models.Message, len(convIDs))
	if len(convIDs) == 0 {
		return out, nil
	}

	latest := r.db.Model(&models.Message{}).
		Select("MAX(id)").
		Where("conversation_id IN ?", convIDs).
		Group("conversation_id")

	var msgs []*models.Message
	if err := r.db.WithContext(ctx).Preload("User").Where("id IN (?)", latest).Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, m := range msgs {
		out[m.ConversationID] = m
	}
	return out, nil
}

// CreateMessage appends msg and touches the conversation's updated_at in one transaction.
// The author is loaded onto msg afterwards.
func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			UpdateColumn("updated_at", msg.CreatedAt).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}

	var author models.User
	if err := r.db.WithContext(ctx).First(&author, msg.UserID).Error; err != nil {
		return notFoundOr(err, "User", msg.UserID)
	}
	msg.User = &author
	return nil
}

// ListMessages returns messages in ascending order. afterID > 0 limits the result to
// messages with a larger id.
func (r *chatRepository) ListMessages(ctx context.Context, convID, afterID uint) ([]*models.Message, error) {
	var msgs []*models.Message
	q := r.db.WithContext(ctx).Preload("User").Where("conversation_id = ?", convID)
	if afterID > 0 {
		q = q.Where("id > ?", afterID)
	}
	if err := q.Order("created_at ASC, id ASC").Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

// MarkRead moves the member's read cursor to at and flags every unread message from other
// authors as read. It returns how many messages changed state.
func (r *chatRepository) MarkRead(ctx context.Context, convID, userID uint, at time.Time) (int64, error) {
	var marked int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ConversationMember{}).
			Where("conversation_id = ? AND user_id = ?", convID, userID).
			UpdateColumn("last_read_at", at).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Message{}).
			Where("conversation_id = ? AND user_id <> ? AND is_read = ?", convID, userID, false).
			Updates(map[string]interface{}{"is_read": true, "read_at": at})
		if res.Error != nil {
			return res.Error
		}
		marked = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return marked, nil
}

func (r *chatRepository) UnreadCount(ctx context.Context, convID, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Table("messages m").
		Joins("JOIN conversation_members cm ON cm.conversation_id = m.conversation_id AND cm.user_id = ?", userID).
		Where("m.conversation_id = ?", convID).
		Where(unreadCondition).
		Count(&n).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

// UnreadCounts returns the unread count of every conversation of userID that has any.
func (r *chatRepository) UnreadCounts(ctx context.Context, userID uint) (map[uint]int64, error) {
	var rows []struct {
		ConversationID uint
		Unread         int64
	}
	err := r.db.WithContext(ctx).Table("messages m").
		Select("m.conversation_id AS conversation_id, COUNT(*) AS unread").
		Joins("JOIN conversation_members cm ON cm.conversation_id = m.conversation_id AND cm.user_id = ?", userID).
		Where(unreadCondition).
		Group("m.conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	out := make(map[uint]int64, len(rows))
	for _, row := range rows {
		out[row.ConversationID] = row.Unread
	}
	return out, nil
}
