package models

import "time"

// Contribution stores one synced calendar day of GitHub activity for a user.
// Dates are kept as YYYY-MM-DD strings so lookups never depend on the server
// timezone.
type Contribution struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:36;uniqueIndex:idx_user_date;not null" json:"user_id"`
	Date      string    `gorm:"size:10;uniqueIndex:idx_user_date;not null" json:"date"`
	Count     int       `gorm:"not null" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
