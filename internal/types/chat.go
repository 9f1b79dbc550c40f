package types

import (
	"time"

	"github.com/google/uuid"
)

// Chat is a conversation thread. The ID is supplied by the client and doubles
// as the primary key, so the same value also names the chat's media directory.
type Chat struct {
	ID        string    `gorm:"primaryKey;column:id" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Title     string    `gorm:"column:title" json:"title"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Chat) TableName() string {
	return "chat"
}

// ChatSummary is the list-chats row shape.
type ChatSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	LastActivity string `json:"last_activity"`
}
