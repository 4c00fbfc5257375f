package jobs

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/streakify/backend/models"
	"github.com/streakify/backend/utils"
)

// GormUserDirectory lists reminder-eligible users from MySQL.
type GormUserDirectory struct {
	db *gorm.DB
}

func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{db: db}
}

func (d *GormUserDirectory) ActiveUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := d.db.WithContext(ctx).Where("github_username <> ''").Find(&users).Error
	return users, err
}

// GormContributionStore upserts synced contribution days.
type GormContributionStore struct {
	db *gorm.DB
}

func NewGormContributionStore(db *gorm.DB) *GormContributionStore {
	return &GormContributionStore{db: db}
}

func (s *GormContributionStore) UpsertDays(ctx context.Context, userID string, days []utils.ContributionDay) error {
	if len(days) == 0 {
		return nil
	}
	rows := make([]models.Contribution, 0, len(days))
	now := time.Now()
	for _, d := range days {
		rows = append(rows, models.Contribution{
			UserID:    userID,
			Date:      d.Date,
			Count:     d.Count,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"count", "updated_at"}),
	}).Create(&rows).Error
}

// GormNotificationLog appends reminder audit rows.
type GormNotificationLog struct {
	db *gorm.DB
}

func NewGormNotificationLog(db *gorm.DB) *GormNotificationLog {
	return &GormNotificationLog{db: db}
}

func (l *GormNotificationLog) Append(ctx context.Context, userID, kind, date string) error {
	return l.db.WithContext(ctx).Create(&models.NotificationLog{
		UserID: userID,
		Type:   kind,
		Date:   date,
	}).Error
}
