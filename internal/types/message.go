package types

import (
	"github.com/google/uuid"
)

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Message is one turn in a chat. Timestamp is the client-supplied string the
// frontend sorts by; the server stores it verbatim and never rewrites it.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"-"`
	ChatID    string    `gorm:"index;not null;column:chat_id" json:"-"`
	Sender    string    `gorm:"column:sender" json:"sender"`
	Text      string    `gorm:"column:text" json:"text"`
	Media     string    `gorm:"column:media" json:"media,omitempty"`
	Timestamp string    `gorm:"column:timestamp;index" json:"timestamp"`
}

func (Message) TableName() string {
	return "message"
}

// MediaRef points at one uploaded file from the user's media listing.
type MediaRef struct {
	Name      string `json:"name"`
	ChatID    string `json:"chat_id"`
	Timestamp string `json:"timestamp"`
}
