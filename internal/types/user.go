package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string         `gorm:"not null;column:name" json:"name"`
	Email       string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	PhoneNumber string         `gorm:"column:phone_number" json:"phone_number,omitempty"`
	About       string         `gorm:"column:about" json:"about,omitempty"`
	DateOfBirth datatypes.Date `gorm:"column:date_of_birth" json:"date_of_birth"`
	Password    string         `gorm:"not null;column:password" json:"-"`

	// AboutOriginal/AboutSummary hold the last text run through the
	// summarize-about-me endpoint; empty until the user uses it.
	AboutOriginal string `gorm:"column:about_original" json:"-"`
	AboutSummary  string `gorm:"column:about_summary" json:"-"`

	AvatarPath string `gorm:"column:avatar_path" json:"avatar_path,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}
