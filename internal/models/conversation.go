package models

import (
	"fmt"
	"time"
)

// MessageTypeText is the only message type produced by the API.
const MessageTypeText = "text"

// MaxMessageLength is the maximum message length in characters.
const MaxMessageLength = 1000

// Conversation is a direct (two-member) or group chat.
type Conversation struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"size:255" json:"name,omitempty"`
	IsGroup   bool   `gorm:"default:false;not null" json:"is_group"`
	CreatedBy uint   `gorm:"not null;index" json:"created_by"`
	// DirectKey is "<minUserID>:<maxUserID>" for direct conversations and NULL for groups.
	// Its unique index is what makes findOrCreateDirect race-free.
	DirectKey *string   `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Members []ConversationMember `gorm:"foreignKey:ConversationID" json:"members,omitempty"`

	// Computed per requester, never stored.
	DisplayName string   `gorm:"-" json:"display_name,omitempty"`
	LastMessage *Message `gorm:"-" json:"last_message,omitempty"`
	UnreadCount int64    `gorm:"-" json:"unread_count"`
}

// DirectKeyFor returns the canonical key for the unordered pair (a, b).
func DirectKeyFor(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// HasMember reports whether userID is among the loaded members.
func (c *Conversation) HasMember(userID uint) bool {
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns the user ids of the loaded members.
func (c *Conversation) MemberIDs() []uint {
	ids := make([]uint, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// ResolveDisplayName fills DisplayName for the viewer: the other member's name for
// direct conversations, the conversation name for groups.
func (c *Conversation) ResolveDisplayName(viewerID uint) {
	if c.IsGroup {
		c.DisplayName = c.Name
		return
	}
	for _, m := range c.Members {
		if m.UserID != viewerID && m.User != nil {
			c.DisplayName = m.User.Name
			return
		}
	}
	c.DisplayName = c.Name
}

// ConversationMember links a user to a conversation and tracks what they have read.
type ConversationMember struct {
	ConversationID uint `gorm:"primaryKey;autoIncrement:false" json:"conversation_id"`
	UserID         uint `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	IsAdmin        bool `gorm:"default:false;not null" json:"is_admin"`
	// LastReadAt is nil until the member first marks the conversation read.
	LastReadAt *time.Time `json:"last_read_at"`
	JoinedAt   time.Time  `gorm:"not null" json:"joined_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Message is an append-only chat message.
type Message struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ConversationID uint       `gorm:"not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	Content        string     `gorm:"type:text;not null" json:"content"`
	Type           string     `gorm:"size:20;default:text;not null" json:"type"`
	IsRead         bool       `gorm:"default:false;not null" json:"is_read"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `gorm:"index:idx_messages_conversation_created,priority:2" json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
