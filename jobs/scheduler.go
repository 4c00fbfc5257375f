package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/streakify/backend/models"
	"github.com/streakify/backend/utils"
)

// ContributionSource fetches GitHub activity for a user.
type ContributionSource interface {
	Contributions(ctx context.Context, username, token string) ([]utils.ContributionDay, error)
	HasContributedToday(ctx context.Context, username, token, timezone string) (bool, error)
}

// EmailSender delivers one HTML email.
type EmailSender interface {
	Send(to, subject, htmlBody string) error
}

// EmailSenderFunc adapts a plain function to EmailSender.
type EmailSenderFunc func(to, subject, htmlBody string) error

func (f EmailSenderFunc) Send(to, subject, htmlBody string) error { return f(to, subject, htmlBody) }

// ChatSender delivers one chat message to a linked channel.
type ChatSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// UserDirectory lists the accounts the scheduler works through each tick.
type UserDirectory interface {
	ActiveUsers(ctx context.Context) ([]models.User, error)
}

// ContributionStore persists synced contribution days.
type ContributionStore interface {
	UpsertDays(ctx context.Context, userID string, days []utils.ContributionDay) error
}

// NotificationLog appends audit rows for dispatched reminders.
type NotificationLog interface {
	Append(ctx context.Context, userID, kind, date string) error
}

// CodePurger drops expired link codes; satisfied by utils.LinkCodeRegistry.
type CodePurger interface {
	PurgeExpired() int
}

// Config carries the scheduler's reference-timezone settings.
type Config struct {
	// ReferenceTimezone anchors the urgent cutoff, the daily boundary and
	// the cleanup job, independent of any individual user's timezone.
	ReferenceTimezone string
	UrgentCutoffHour  int
	SyncWindowDays    int
}

// Deps are the scheduler's injected collaborators.
type Deps struct {
	Users  UserDirectory
	Source ContributionSource
	Email  EmailSender
	Chat   ChatSender
	Store  ContributionStore
	Log    NotificationLog
	State  EscalationStore
	Codes  CodePurger
}

// Scheduler drives the per-day reminder escalation: a per-minute due check,
// a fixed urgent cutoff, the daily boundary sync and a link-code cleanup.
// All four jobs run on one cron in the reference timezone so their ordering
// within a day can be reasoned about; overlapping runs of the same job are
// skipped. All escalation state lives in Deps.State and is only written
// here.
type Scheduler struct {
	cfg  Config
	deps Deps
	loc  *time.Location
	now  func() time.Time
	cron *cron.Cron
}

// New builds a Scheduler. It fails only when the reference timezone is
// unknown.
func New(cfg Config, deps Deps) (*Scheduler, error) {
	if cfg.ReferenceTimezone == "" {
		cfg.ReferenceTimezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.ReferenceTimezone)
	if err != nil {
		return nil, fmt.Errorf("load reference timezone %q: %w", cfg.ReferenceTimezone, err)
	}
	if cfg.UrgentCutoffHour <= 0 || cfg.UrgentCutoffHour > 23 {
		cfg.UrgentCutoffHour = 23
	}
	if cfg.SyncWindowDays <= 0 {
		cfg.SyncWindowDays = 30
	}
	return &Scheduler{
		cfg:  cfg,
		deps: deps,
		loc:  loc,
		now:  time.Now,
	}, nil
}

// Start registers the four jobs and starts the cron loop. It fails when a
// cron entry cannot be registered.
func (s *Scheduler) Start() error {
	logger := cronLogger{}
	s.cron = cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(logger), cron.Recover(logger)),
	)

	entries := []struct {
		spec string
		run  func(context.Context)
	}{
		{"* * * * *", s.RunDueCheck},
		{fmt.Sprintf("0 %d * * *", s.cfg.UrgentCutoffHour), s.RunUrgentCheck},
		{"5 0 * * *", s.RunDailySync},
		{"0 4 * * *", s.RunCleanup},
	}
	for _, e := range entries {
		run := e.run
		if _, err := s.cron.AddFunc(e.spec, func() { run(context.Background()) }); err != nil {
			return fmt.Errorf("register cron entry %q: %w", e.spec, err)
		}
	}

	s.cron.Start()
	if utils.Sugar != nil {
		utils.Sugar.Infow("notification scheduler started",
			"timezone", s.cfg.ReferenceTimezone,
			"urgent_cutoff", fmt.Sprintf("%02d:00", s.cfg.UrgentCutoffHour),
		)
	}
	return nil
}

// Stop halts the cron loop and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// RunDueCheck fires every minute: users whose local clock matches their
// configured check time and who have not contributed today get the friendly
// reminder, once per day.
func (s *Scheduler) RunDueCheck(ctx context.Context) {
	users, err := s.deps.Users.ActiveUsers(ctx)
	if err != nil {
		s.logf("due check: listing users failed: %v", err)
		return
	}

	now := s.now()
	for i := range users {
		u := &users[i]
		if u.CheckTime == "" || u.GithubUsername == "" {
			continue
		}
		loc, err := time.LoadLocation(u.Timezone)
		if err != nil {
			s.logf("due check: user %s has invalid timezone %q, skipping", u.ID, u.Timezone)
			continue
		}
		if now.In(loc).Format("15:04") != u.CheckTime {
			continue
		}
		if s.deps.State.Get(u.ID) != StateIdle {
			// already reminded today
			continue
		}

		acted, err := s.deps.Source.HasContributedToday(ctx, u.GithubUsername, u.GithubToken, u.Timezone)
		if err != nil {
			s.logf("due check: activity check for %s failed: %v", u.GithubUsername, err)
			continue
		}
		if acted {
			continue
		}

		s.sendFriendly(ctx, u, now.In(loc))
	}
}

// RunUrgentCheck fires once a day at the urgent cutoff and re-checks every
// user regardless of whether their due check ever fired. Still-inactive
// users get the urgent nudge on the chat channel only; email is not resent
// at this stage to avoid duplicate pressure.
func (s *Scheduler) RunUrgentCheck(ctx context.Context) {
	users, err := s.deps.Users.ActiveUsers(ctx)
	if err != nil {
		s.logf("urgent check: listing users failed: %v", err)
		return
	}

	for i := range users {
		u := &users[i]
		if u.GithubUsername == "" {
			continue
		}
		if u.Timezone == "" {
			s.logf("urgent check: user %s has no timezone, skipping", u.ID)
			continue
		}
		if s.deps.State.Get(u.ID) == StateUrgentSent {
			continue
		}

		acted, err := s.deps.Source.HasContributedToday(ctx, u.GithubUsername, u.GithubToken, u.Timezone)
		if err != nil {
			s.logf("urgent check: activity check for %s failed: %v", u.GithubUsername, err)
			continue
		}
		if acted {
			continue
		}

		if u.TelegramReminders && u.TelegramChatID != "" {
			streak := s.currentStreak(ctx, u)
			text := fmt.Sprintf("🚨 <b>URGENT:</b> Only 1 hour left! %s, make a commit NOW or lose your %d-day streak!", utils.Sanitize(u.GithubUsername), streak)
			if err := s.deps.Chat.SendMessage(ctx, u.TelegramChatID, text); err != nil {
				s.logf("urgent check: telegram send to %s failed: %v", u.ID, err)
			} else {
				s.appendLog(ctx, u.ID, models.NotificationTelegram)
			}
		}

		// The state records "was still at risk at the cutoff" even when no
		// chat channel is linked, so the boundary sync can detect a save.
		s.deps.State.Set(u.ID, StateUrgentSent)
	}
}

// RunDailySync fires shortly after the reference day rolls over: re-fetches
// every user's calendar, persists the recent window, celebrates users who
// were nudged and still contributed, then resets all escalation state for
// the new day.
func (s *Scheduler) RunDailySync(ctx context.Context) {
	users, err := s.deps.Users.ActiveUsers(ctx)
	if err != nil {
		s.logf("daily sync: listing users failed: %v", err)
		return
	}

	justCompleted := s.now().In(s.loc).AddDate(0, 0, -1).Format(utils.DateLayout)

	for i := range users {
		u := &users[i]
		if u.GithubUsername == "" {
			continue
		}

		days, err := s.deps.Source.Contributions(ctx, u.GithubUsername, u.GithubToken)
		if err != nil {
			s.logf("daily sync: fetch for %s failed: %v", u.GithubUsername, err)
			continue
		}

		window := days
		if len(window) > s.cfg.SyncWindowDays {
			window = window[len(window)-s.cfg.SyncWindowDays:]
		}
		if err := s.deps.Store.UpsertDays(ctx, u.ID, window); err != nil {
			s.logf("daily sync: persisting days for %s failed: %v", u.ID, err)
		}

		if s.deps.State.Get(u.ID) == StateUrgentSent && countOn(days, justCompleted) > 0 {
			// The audit row feeds the saved-days statistic, so it is written
			// on detection; the celebration message is best effort on top.
			if err := s.deps.Log.Append(ctx, u.ID, models.NotificationStreakSaved, justCompleted); err != nil {
				s.logf("daily sync: logging streak_saved for %s failed: %v", u.ID, err)
			}
			s.sendSaved(ctx, u, days)
		}
	}

	s.deps.State.Reset()
}

// RunCleanup drops expired unconsumed link codes once a day.
func (s *Scheduler) RunCleanup(ctx context.Context) {
	removed := s.deps.Codes.PurgeExpired()
	if removed > 0 {
		s.logf("cleanup: purged %d expired link codes", removed)
	}
}

func (s *Scheduler) sendFriendly(ctx context.Context, u *models.User, localNow time.Time) {
	streak := s.currentStreak(ctx, u)
	name := utils.Sanitize(u.GithubUsername)

	if u.EmailReminders && u.Email != "" && !s.deps.State.EmailSentToday(u.ID) {
		subject := utils.ReminderSubject(utils.ReminderFriendly, u.GithubUsername, streak)
		body := utils.ReminderBody(utils.ReminderFriendly, name, streak)
		if err := s.deps.Email.Send(u.Email, subject, body); err != nil {
			s.logf("due check: email to %s failed: %v", u.ID, err)
		} else {
			s.deps.State.MarkEmailSent(u.ID)
			s.appendLog(ctx, u.ID, models.NotificationEmail)
		}
	}

	if u.TelegramReminders && u.TelegramChatID != "" {
		text := fmt.Sprintf("⚠️ Hey %s! You haven't contributed today. Don't break your %d-day streak!", name, streak)
		if err := s.deps.Chat.SendMessage(ctx, u.TelegramChatID, text); err != nil {
			s.logf("due check: telegram send to %s failed: %v", u.ID, err)
		} else {
			s.appendLog(ctx, u.ID, models.NotificationTelegram)
		}
	}

	s.deps.State.Set(u.ID, StateFriendlySent)
}

func (s *Scheduler) sendSaved(ctx context.Context, u *models.User, days []utils.ContributionDay) {
	stats := utils.CalculateStreakStats(days, 0, s.userNow(u))
	name := utils.Sanitize(u.GithubUsername)

	if u.TelegramReminders && u.TelegramChatID != "" {
		text := fmt.Sprintf("🎉 <b>Streak saved!</b> Nice one %s — you contributed after the reminder and your streak lives on at %d days. 🔥", name, stats.CurrentStreak)
		if err := s.deps.Chat.SendMessage(ctx, u.TelegramChatID, text); err != nil {
			s.logf("daily sync: telegram send to %s failed: %v", u.ID, err)
		}
	} else if u.EmailReminders && u.Email != "" {
		subject := utils.ReminderSubject(utils.ReminderSaved, u.GithubUsername, stats.CurrentStreak-1)
		body := utils.ReminderBody(utils.ReminderSaved, name, stats.CurrentStreak-1)
		if err := s.deps.Email.Send(u.Email, subject, body); err != nil {
			s.logf("daily sync: email to %s failed: %v", u.ID, err)
		}
	}
}

// currentStreak fetches the user's calendar to embed the streak number in
// messages. Best effort: failures fall back to zero rather than blocking a
// reminder.
func (s *Scheduler) currentStreak(ctx context.Context, u *models.User) int {
	days, err := s.deps.Source.Contributions(ctx, u.GithubUsername, u.GithubToken)
	if err != nil {
		return 0
	}
	return utils.CalculateStreakStats(days, 0, s.userNow(u)).CurrentStreak
}

func (s *Scheduler) userNow(u *models.User) time.Time {
	if loc, err := time.LoadLocation(u.Timezone); err == nil {
		return s.now().In(loc)
	}
	return s.now().In(s.loc)
}

func (s *Scheduler) appendLog(ctx context.Context, userID, kind string) {
	date := s.now().In(s.loc).Format(utils.DateLayout)
	if err := s.deps.Log.Append(ctx, userID, kind, date); err != nil {
		s.logf("appending %s log for %s failed: %v", kind, userID, err)
	}
}

func (s *Scheduler) logf(format string, args ...any) {
	if utils.Sugar != nil {
		utils.Sugar.Warnf(format, args...)
	}
}

func countOn(days []utils.ContributionDay, date string) int {
	count := 0
	for _, d := range days {
		if d.Date == date {
			count = d.Count
		}
	}
	return count
}

// cronLogger adapts zap to robfig/cron's logger interface.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	if utils.Sugar != nil {
		utils.Sugar.Infow("cron: "+msg, kv...)
	}
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	if utils.Sugar != nil {
		utils.Sugar.Errorw("cron: "+msg, append(kv, "error", err)...)
	}
}
