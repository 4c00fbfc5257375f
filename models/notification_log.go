package models

import "time"

// Notification log channel/kind values.
const (
	NotificationEmail       = "email"
	NotificationTelegram    = "telegram"
	NotificationStreakSaved = "streak_saved"
)

// NotificationLog records every reminder dispatched to a user, one row per
// send. streak_saved rows additionally feed the savedDays statistic.
type NotificationLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:36;index;not null" json:"user_id"`
	Type      string    `gorm:"size:16;not null" json:"type"`
	Date      string    `gorm:"size:10;index;not null" json:"date"`
	CreatedAt time.Time `json:"created_at"`
}
