package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/streakify/backend/config"
	"github.com/streakify/backend/jobs"
	"github.com/streakify/backend/models"
	"github.com/streakify/backend/utils"
)

// ContributionsController exposes the user's GitHub calendar and streak
// statistics.
type ContributionsController struct {
	db     *gorm.DB
	github *utils.GitHubClient
	store  *jobs.GormContributionStore
}

// NewContributionsController creates a new controller instance.
func NewContributionsController(db *gorm.DB, github *utils.GitHubClient) *ContributionsController {
	return &ContributionsController{
		db:     db,
		github: github,
		store:  jobs.NewGormContributionStore(db),
	}
}

// GetContributions returns the user's contribution heatmap data and stores
// today's count for tracking.
func (c *ContributionsController) GetContributions(ctx *gin.Context) {
	user, ok := c.loadGitHubUser(ctx)
	if !ok {
		return
	}

	days, err := c.github.Contributions(ctx.Request.Context(), user.GithubUsername, user.GithubToken)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50210, "failed to fetch contributions")
		return
	}

	today := c.userToday(user)
	for _, d := range days {
		if d.Date == today {
			if err := c.store.UpsertDays(ctx.Request.Context(), user.ID, []utils.ContributionDay{d}); err != nil {
				utils.Sugar.Warnf("storing today's contribution for %s failed: %v", user.ID, err)
			}
			break
		}
	}

	total := 0
	for _, d := range days {
		total += d.Count
	}

	utils.Success(ctx, gin.H{
		"contributions": days,
		"total":         total,
	})
}

// GetTodayStatus reports whether the user has contributed today in their
// timezone.
func (c *ContributionsController) GetTodayStatus(ctx *gin.Context) {
	user, ok := c.loadGitHubUser(ctx)
	if !ok {
		return
	}

	acted, err := c.github.HasContributedToday(ctx.Request.Context(), user.GithubUsername, user.GithubToken, userTimezone(user))
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50211, "failed to check today's status")
		return
	}

	utils.Success(ctx, gin.H{
		"date":            c.userToday(user),
		"has_contributed": acted,
	})
}

// GetStreakStats returns streak statistics. savedDays counts the days where
// a reminder was followed by a contribution.
func (c *ContributionsController) GetStreakStats(ctx *gin.Context) {
	user, ok := c.loadGitHubUser(ctx)
	if !ok {
		return
	}

	days, err := c.github.Contributions(ctx.Request.Context(), user.GithubUsername, user.GithubToken)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50210, "failed to fetch contributions")
		return
	}

	var savedDays int64
	if err := c.db.Model(&models.NotificationLog{}).
		Where("user_id = ? AND type = ?", user.ID, models.NotificationStreakSaved).
		Count(&savedDays).Error; err != nil {
		utils.Sugar.Warnf("counting saved days for %s failed: %v", user.ID, err)
	}

	stats := utils.CalculateStreakStats(days, int(savedDays), c.userNow(user))
	utils.Success(ctx, stats)
}

// SyncContributions force-syncs the recent contribution window to storage.
// The cached calendar is dropped first so the sync reflects commits made
// since the last fetch.
func (c *ContributionsController) SyncContributions(ctx *gin.Context) {
	user, ok := c.loadGitHubUser(ctx)
	if !ok {
		return
	}

	c.github.InvalidateCalendar(user.GithubUsername)
	days, err := c.github.Contributions(ctx.Request.Context(), user.GithubUsername, user.GithubToken)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50210, "failed to fetch contributions")
		return
	}

	window := days
	windowDays := config.Get().SyncWindowDays
	if len(window) > windowDays {
		window = window[len(window)-windowDays:]
	}

	if err := c.store.UpsertDays(ctx.Request.Context(), user.ID, window); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50212, "failed to persist contributions")
		return
	}

	utils.Success(ctx, gin.H{
		"message":     "contributions synced successfully",
		"synced_days": len(window),
	})
}

func (c *ContributionsController) loadGitHubUser(ctx *gin.Context) (*models.User, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return nil, false
	}

	var user models.User
	if err := c.db.First(&user, "id = ?", userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return nil, false
	}
	if user.GithubUsername == "" {
		utils.Error(ctx, http.StatusBadRequest, 40020, "github username not set")
		return nil, false
	}
	return &user, true
}

func (c *ContributionsController) userNow(user *models.User) time.Time {
	loc, err := time.LoadLocation(userTimezone(user))
	if err != nil {
		return time.Now()
	}
	return time.Now().In(loc)
}

func (c *ContributionsController) userToday(user *models.User) string {
	return c.userNow(user).Format(utils.DateLayout)
}

func userTimezone(user *models.User) string {
	if user.Timezone != "" {
		return user.Timezone
	}
	return config.Get().SchedulerTimezone
}
