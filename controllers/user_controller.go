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

var githubUsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,37}[a-zA-Z0-9])?$`)

// UserController serves the account profile.
type UserController struct {
	db *gorm.DB
}

// NewUserController creates a new controller instance.
func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// GetProfile returns the authenticated user's account details.
func (u *UserController) GetProfile(ctx *gin.Context) {
	user, ok := u.loadUser(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, gin.H{
		"id":                 user.ID,
		"username":           user.Username,
		"email":              user.Email,
		"github_username":    user.GithubUsername,
		"telegram_linked":    user.TelegramChatID != "",
		"timezone":           user.Timezone,
		"check_time":         user.CheckTime,
		"email_reminders":    user.EmailReminders,
		"telegram_reminders": user.TelegramReminders,
		"created_at":         user.CreatedAt,
	})
}

type updateProfileRequest struct {
	GithubUsername *string `json:"github_username"`
	Email          *string `json:"email"`
	Timezone       *string `json:"timezone"`
	CheckTime      *string `json:"check_time"`
}

// UpdateProfile updates mutable account fields.
func (u *UserController) UpdateProfile(ctx *gin.Context) {
	user, ok := u.loadUser(ctx)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	updates := map[string]interface{}{}
	if req.GithubUsername != nil {
		name := utils.Sanitize(*req.GithubUsername)
		if name != "" && !githubUsernamePattern.MatchString(name) {
			utils.Error(ctx, http.StatusBadRequest, 40020, "invalid github username")
			return
		}
		updates["github_username"] = name
	}
	if req.Email != nil {
		updates["email"] = utils.Sanitize(*req.Email)
	}
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

	if len(updates) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40032, "nothing to update")
		return
	}

	if err := u.db.Model(user).Updates(updates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to update profile")
		return
	}
	utils.Success(ctx, gin.H{"message": "profile updated"})
}

func (u *UserController) loadUser(ctx *gin.Context) (*models.User, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return nil, false
	}

	var user models.User
	if err := u.db.First(&user, "id = ?", userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return nil, false
	}
	return &user, true
}
