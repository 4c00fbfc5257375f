package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a Streakify account. Passwords are stored as bcrypt hashes only;
// the GitHub OAuth token is stored to run authenticated contribution queries on
// the user's behalf and is never serialized into responses.
type User struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	Username       string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email          string `gorm:"size:255" json:"email"`
	PasswordHash   string `gorm:"size:255" json:"-"`
	GithubUsername string `gorm:"size:64;index" json:"github_username"`
	GithubToken    string `gorm:"size:255" json:"-"`
	TelegramChatID string `gorm:"size:32;index" json:"telegram_chat_id"`
	// IANA zone name used to decide what "today" means for this user.
	Timezone string `gorm:"size:64" json:"timezone"`
	// Local HH:MM at which the friendly reminder check fires.
	CheckTime         string         `gorm:"size:5" json:"check_time"`
	EmailReminders    bool           `gorm:"default:true" json:"email_reminders"`
	TelegramReminders bool           `gorm:"default:true" json:"telegram_reminders"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook assigns an ID and ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
