package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/streakify/backend/config"
	"github.com/streakify/backend/controllers"
	"github.com/streakify/backend/middleware"
	"github.com/streakify/backend/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, github *utils.GitHubClient, tg *utils.TelegramClient, codes *utils.LinkCodeRegistry) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	userController := controllers.NewUserController(db)
	contributionsController := controllers.NewContributionsController(db, github)
	telegramController := controllers.NewTelegramController(db, tg, codes)
	notificationController := controllers.NewNotificationController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)

	// Telegram pushes updates here, no auth on the webhook itself
	api.POST("/telegram/webhook", telegramController.HandleWebhook)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.GET("/user", userController.GetProfile)
	protected.PUT("/user", userController.UpdateProfile)

	protected.GET("/contributions", contributionsController.GetContributions)
	protected.GET("/contributions/today", contributionsController.GetTodayStatus)
	protected.GET("/contributions/stats", contributionsController.GetStreakStats)
	protected.POST("/contributions/sync", contributionsController.SyncContributions)

	protected.GET("/telegram/link-code", telegramController.GenerateLinkCode)
	protected.POST("/telegram/set-webhook", telegramController.SetWebhook)
	protected.DELETE("/telegram/webhook", telegramController.DeleteWebhook)
	protected.GET("/telegram/webhook-info", telegramController.WebhookInfo)

	protected.GET("/notifications/settings", notificationController.GetSettings)
	protected.PUT("/notifications/settings", notificationController.UpdateSettings)
	protected.GET("/notifications/history", notificationController.GetHistory)
	protected.POST("/notifications/test", notificationController.SendTest)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
