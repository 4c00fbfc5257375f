package main

import (
	"context"

	"github.com/streakify/backend/config"
	"github.com/streakify/backend/jobs"
	"github.com/streakify/backend/models"
	"github.com/streakify/backend/routes"
	"github.com/streakify/backend/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Contribution{}, &models.NotificationLog{})

	github := utils.NewGitHubClient(cfg.GitHubDefaultToken)
	telegram := utils.NewTelegramClient(cfg.TelegramBotToken)
	codes := utils.NewLinkCodeRegistry()

	// Best-effort; link instructions fall back to a generic bot mention
	if err := telegram.RefreshBotUsername(context.Background()); err != nil {
		utils.Sugar.Warnf("could not resolve telegram bot username: %v", err)
	}

	scheduler, err := jobs.New(jobs.Config{
		ReferenceTimezone: cfg.SchedulerTimezone,
		UrgentCutoffHour:  cfg.UrgentCutoffHour,
		SyncWindowDays:    cfg.SyncWindowDays,
	}, jobs.Deps{
		Users:  jobs.NewGormUserDirectory(db),
		Source: github,
		Email:  jobs.EmailSenderFunc(utils.SendMail),
		Chat:   telegram,
		Store:  jobs.NewGormContributionStore(db),
		Log:    jobs.NewGormNotificationLog(db),
		State:  jobs.NewMemoryEscalationStore(),
		Codes:  codes,
	})
	if err != nil {
		utils.Sugar.Fatalf("scheduler init failed: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		utils.Sugar.Fatalf("scheduler start failed: %v", err)
	}
	defer scheduler.Stop()

	r := routes.SetupRouter(db, github, telegram, codes)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
