package models

import "time"

// Discussion categories accepted on create and edit.
const (
	CategoryGeneral  = "general"
	CategoryTech     = "tech"
	CategoryHelp     = "help"
	CategoryOfftopic = "offtopic"
)

// Categories lists every accepted discussion category.
var Categories = []string{CategoryGeneral, CategoryTech, CategoryHelp, CategoryOfftopic}

// Discussion is a forum thread.
type Discussion struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Category   string    `gorm:"size:20;not null;index" json:"category"`
	IsPinned   bool      `gorm:"default:false;not null" json:"is_pinned"`
	IsLocked   bool      `gorm:"default:false;not null" json:"is_locked"`
	ViewsCount int64     `gorm:"default:0;not null" json:"views_count"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Comments []Comment `gorm:"foreignKey:DiscussionID" json:"comments,omitempty"`

	CommentsCount int64 `gorm:"-" json:"comments_count"`
}

// Comment belongs to a discussion and optionally replies to another comment.
type Comment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DiscussionID uint      `gorm:"not null;index" json:"discussion_id"`
	ParentID     *uint     `gorm:"index" json:"parent_id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	IsSolution   bool      `gorm:"default:false;not null" json:"is_solution"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
