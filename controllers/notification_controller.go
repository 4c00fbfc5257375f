package controllers

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/streakify/backend/models"
	"github.com/streakify/backend/utils"
)

var checkTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// NotificationController manages reminder preferences and history.
type NotificationController struct {
	db *gorm.DB
}

// NewNotificationController creates a new controller instance.
func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{db: db}
}

// GetSettings returns the user's reminder configuration.
func (n *NotificationController) GetSettings(ctx *gin.Context) {
	user, ok := n.loadUser(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, gin.H{
		"timezone":           user.Timezone,
		"check_time":         user.CheckTime,
		"email_reminders":    user.EmailReminders,
		"telegram_reminders": user.TelegramReminders,
		"telegram_linked":    user.TelegramChatID != "",
	})
}

type updateSettingsRequest struct {
	Timezone          *string `json:"timezone"`
	CheckTime         *string `json:"check_time"`
	EmailReminders    *bool   `json:"email_reminders"`
	TelegramReminders *bool   `json:"telegram_reminders"`
}

// UpdateSettings updates reminder configuration. Timezone must be a valid
// IANA zone and check_time a 24h HH:MM.
func (n *NotificationController) UpdateSettings(ctx *gin.Context) {
	user, ok := n.loadUser(ctx)
	if !ok {
		return
	}

	var req updateSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	updates := map[string]interface{}{}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40030, "invalid timezone")
			return
		}
		updates["timezone"] = *req.Timezone
	}
	if req.CheckTime != nil {
		if !checkTimePattern.MatchString(*req.CheckTime) {
			utils.Error(ctx, http.StatusBadRequest, 40031, "check_time must be HH:MM")
			return
		}
		updates["check_time"] = *req.CheckTime
	}
	if req.EmailReminders != nil {
		updates["email_reminders"] = *req.EmailReminders
	}
	if req.TelegramReminders != nil {
		updates["telegram_reminders"] = *req.TelegramReminders
	}

	if len(updates) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40032, "nothing to update")
		return
	}

	if err := n.db.Model(user).Updates(updates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to update settings")
		return
	}
	utils.Success(ctx, gin.H{"message": "settings updated"})
}

// GetHistory returns the most recent reminder log entries for the user.
func (n *NotificationController) GetHistory(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var entries []models.NotificationLog
	if err := n.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(30).Find(&entries).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load history")
		return
	}
	utils.Success(ctx, gin.H{"items": entries})
}

// SendTest sends a test reminder email to the user's address to verify the
// SMTP configuration.
func (n *NotificationController) SendTest(ctx *gin.Context) {
	user, ok := n.loadUser(ctx)
	if !ok {
		return
	}
	if user.Email == "" {
		utils.Error(ctx, http.StatusBadRequest, 40033, "no email address on account")
		return
	}

	name := user.GithubUsername
	if name == "" {
		name = user.Username
	}
	subject := "🧪 Streakify Test Email"
	body := utils.ReminderBody(utils.ReminderFriendly, utils.Sanitize(name), 0)
	if err := utils.SendMail(user.Email, subject, body); err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50032, "failed to send test email")
		return
	}
	utils.Success(ctx, gin.H{"message": "test email sent"})
}

func (n *NotificationController) loadUser(ctx *gin.Context) (*models.User, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return nil, false
	}

	var user models.User
	if err := n.db.First(&user, "id = ?", userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return nil, false
	}
	return &user, true
}
