package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/streakify/backend/models"
	"github.com/streakify/backend/utils"
)

type fakeDirectory struct {
	users []models.User
}

func (f *fakeDirectory) ActiveUsers(ctx context.Context) ([]models.User, error) {
	return f.users, nil
}

type fakeSource struct {
	contributed bool
	days        []utils.ContributionDay
	err         error
}

func (f *fakeSource) Contributions(ctx context.Context, username, token string) ([]utils.ContributionDay, error) {
	return f.days, f.err
}

func (f *fakeSource) HasContributedToday(ctx context.Context, username, token, timezone string) (bool, error) {
	return f.contributed, f.err
}

type sentEmail struct {
	to      string
	subject string
}

type fakeEmail struct {
	sent []sentEmail
	err  error
}

func (f *fakeEmail) Send(to, subject, htmlBody string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{to: to, subject: subject})
	return nil
}

type sentChat struct {
	chatID string
	text   string
}

type fakeChat struct {
	sent []sentChat
	err  error
}

func (f *fakeChat) SendMessage(ctx context.Context, chatID, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentChat{chatID: chatID, text: text})
	return nil
}

type fakeStore struct {
	upserts map[string][]utils.ContributionDay
}

func (f *fakeStore) UpsertDays(ctx context.Context, userID string, days []utils.ContributionDay) error {
	if f.upserts == nil {
		f.upserts = map[string][]utils.ContributionDay{}
	}
	f.upserts[userID] = days
	return nil
}

type logEntry struct {
	userID string
	kind   string
	date   string
}

type fakeLog struct {
	entries []logEntry
}

func (f *fakeLog) Append(ctx context.Context, userID, kind, date string) error {
	f.entries = append(f.entries, logEntry{userID: userID, kind: kind, date: date})
	return nil
}

func (f *fakeLog) countKind(kind string) int {
	n := 0
	for _, e := range f.entries {
		if e.kind == kind {
			n++
		}
	}
	return n
}

type fakePurger struct {
	calls int
}

func (f *fakePurger) PurgeExpired() int {
	f.calls++
	return 2
}

type fixture struct {
	scheduler *Scheduler
	users     *fakeDirectory
	source    *fakeSource
	email     *fakeEmail
	chat      *fakeChat
	store     *fakeStore
	log       *fakeLog
	state     *MemoryEscalationStore
	purger    *fakePurger
}

func newFixture(t *testing.T, now time.Time, users ...models.User) *fixture {
	t.Helper()

	f := &fixture{
		users:  &fakeDirectory{users: users},
		source: &fakeSource{},
		email:  &fakeEmail{},
		chat:   &fakeChat{},
		store:  &fakeStore{},
		log:    &fakeLog{},
		state:  NewMemoryEscalationStore(),
		purger: &fakePurger{},
	}

	s, err := New(Config{ReferenceTimezone: "UTC", UrgentCutoffHour: 23, SyncWindowDays: 30}, Deps{
		Users:  f.users,
		Source: f.source,
		Email:  f.email,
		Chat:   f.chat,
		Store:  f.store,
		Log:    f.log,
		State:  f.state,
		Codes:  f.purger,
	})
	if err != nil {
		t.Fatalf("scheduler init: %v", err)
	}
	s.now = func() time.Time { return now }
	f.scheduler = s
	return f
}

func testUser() models.User {
	return models.User{
		ID:                "u1",
		Username:          "alice",
		Email:             "alice@example.com",
		GithubUsername:    "alice-gh",
		Timezone:          "UTC",
		CheckTime:         "21:00",
		TelegramChatID:    "111",
		EmailReminders:    true,
		TelegramReminders: true,
	}
}

func TestNew_InvalidTimezone(t *testing.T) {
	if _, err := New(Config{ReferenceTimezone: "Not/AZone"}, Deps{}); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestRunDueCheck_SendsFriendlyReminder(t *testing.T) {
	now := time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)
	f := newFixture(t, now, testUser())
	f.source.contributed = false

	f.scheduler.RunDueCheck(context.Background())

	if len(f.email.sent) != 1 {
		t.Fatalf("emails sent = %d, want 1", len(f.email.sent))
	}
	if f.email.sent[0].to != "alice@example.com" {
		t.Errorf("email to = %q", f.email.sent[0].to)
	}
	if len(f.chat.sent) != 1 {
		t.Fatalf("chat messages sent = %d, want 1", len(f.chat.sent))
	}
	if f.chat.sent[0].chatID != "111" {
		t.Errorf("chat id = %q", f.chat.sent[0].chatID)
	}
	if got := f.state.Get("u1"); got != StateFriendlySent {
		t.Errorf("state = %v, want friendly_sent", got)
	}
	if f.log.countKind(models.NotificationEmail) != 1 || f.log.countKind(models.NotificationTelegram) != 1 {
		t.Errorf("log entries = %+v", f.log.entries)
	}
}

func TestRunDueCheck_SkipsActiveUser(t *testing.T) {
	now := time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)
	f := newFixture(t, now, testUser())
	f.source.contributed = true

	f.scheduler.RunDueCheck(context.Background())

	if len(f.email.sent) != 0 || len(f.chat.sent) != 0 {
		t.Errorf("no reminders expected, got %d emails %d chats", len(f.email.sent), len(f.chat.sent))
	}
	if got := f.state.Get("u1"); got != StateIdle {
		t.Errorf("state = %v, want idle", got)
	}
}

func TestRunDueCheck_OncePerDay(t *testing.T) {
	now := time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)
	f := newFixture(t, now, testUser())

	f.scheduler.RunDueCheck(context.Background())
	f.scheduler.RunDueCheck(context.Background())

	if len(f.email.sent) != 1 {
		t.Errorf("emails sent = %d, want 1", len(f.email.sent))
	}
	if len(f.chat.sent) != 1 {
		t.Errorf("chat messages sent = %d, want 1", len(f.chat.sent))
	}
}

func TestRunDueCheck_OutsideCheckTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 20, 59, 0, 0, time.UTC)
	f := newFixture(t, now, testUser())

	f.scheduler.RunDueCheck(context.Background())

	if len(f.email.sent) != 0 || len(f.chat.sent) != 0 {
		t.Errorf("no reminders expected before check time")
	}
}

func TestRunDueCheck_UserLocalTime(t *testing.T) {
	// 15:30 UTC is 21:00 in Asia/Kolkata
	now := time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)
	u := testUser()
	u.Timezone = "Asia/Kolkata"
	f := newFixture(t, now, u)

	f.scheduler.RunDueCheck(context.Background())

	if len(f.chat.sent) != 1 {
		t.Errorf("expected reminder at user-local check time, got %d", len(f.chat.sent))
	}
}

func TestRunDueCheck_EmailFailureDoesNotMarkSent(t *testing.T) {
	now := time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)
	f := newFixture(t, now, testUser())
	f.email.err = errors.New("smtp down")

	f.scheduler.RunDueCheck(context.Background())

	if f.state.EmailSentToday("u1") {
		t.Error("failed email must not count as sent")
	}
	if f.log.countKind(models.NotificationEmail) != 0 {
		t.Error("failed email must not be logged")
	}
	// Telegram still goes out and the day still escalates
	if len(f.chat.sent) != 1 {
		t.Errorf("chat messages sent = %d, want 1", len(f.chat.sent))
	}
	if got := f.state.Get("u1"); got != StateFriendlySent {
		t.Errorf("state = %v, want friendly_sent", got)
	}
}

func TestRunUrgentCheck_TelegramOnly(t *testing.T) {
	now := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	f := newFixture(t, now, testUser())
	f.state.Set("u1", StateFriendlySent)

	f.scheduler.RunUrgentCheck(context.Background())

	if len(f.email.sent) != 0 {
		t.Errorf("urgent stage must not email, sent %d", len(f.email.sent))
	}
	if len(f.chat.sent) != 1 {
		t.Fatalf("chat messages sent = %d, want 1", len(f.chat.sent))
	}
	if !strings.Contains(f.chat.sent[0].text, "URGENT") {
		t.Errorf("message %q should be the urgent nudge", f.chat.sent[0].text)
	}
	if got := f.state.Get("u1"); got != StateUrgentSent {
		t.Errorf("state = %v, want urgent_sent", got)
	}
}

func TestRunUrgentCheck_FiresEvenWhenDueCheckNeverRan(t *testing.T) {
	now := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	f := newFixture(t, now, testUser())
	// state still idle

	f.scheduler.RunUrgentCheck(context.Background())

	if len(f.chat.sent) != 1 {
		t.Errorf("chat messages sent = %d, want 1", len(f.chat.sent))
	}
	if got := f.state.Get("u1"); got != StateUrgentSent {
		t.Errorf("state = %v, want urgent_sent", got)
	}
}

func TestRunUrgentCheck_MarksStateWithoutChatChannel(t *testing.T) {
	now := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	u := testUser()
	u.TelegramChatID = ""
	f := newFixture(t, now, u)

	f.scheduler.RunUrgentCheck(context.Background())

	if len(f.chat.sent) != 0 {
		t.Errorf("no chat expected without linked channel")
	}
	if got := f.state.Get("u1"); got != StateUrgentSent {
		t.Errorf("state = %v, want urgent_sent so the sync can detect a save", got)
	}
}

func TestRunUrgentCheck_Idempotent(t *testing.T) {
	now := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	f := newFixture(t, now, testUser())

	f.scheduler.RunUrgentCheck(context.Background())
	f.scheduler.RunUrgentCheck(context.Background())

	if len(f.chat.sent) != 1 {
		t.Errorf("chat messages sent = %d, want 1", len(f.chat.sent))
	}
}

func TestRunUrgentCheck_SkipsActiveUser(t *testing.T) {
	now := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	f := newFixture(t, now, testUser())
	f.source.contributed = true

	f.scheduler.RunUrgentCheck(context.Background())

	if len(f.chat.sent) != 0 {
		t.Errorf("active user must not be nudged")
	}
	if got := f.state.Get("u1"); got != StateIdle {
		t.Errorf("state = %v, want idle", got)
	}
}

func TestRunDailySync_PersistsWindowAndResets(t *testing.T) {
	now := time.Date(2024, 6, 2, 0, 5, 0, 0, time.UTC)
	f := newFixture(t, now, testUser())
	f.state.Set("u1", StateFriendlySent)
	f.source.days = []utils.ContributionDay{
		{Date: "2024-05-31", Count: 1},
		{Date: "2024-06-01", Count: 0},
	}

	f.scheduler.RunDailySync(context.Background())

	if got := f.store.upserts["u1"]; len(got) != 2 {
		t.Errorf("upserted %d days, want 2", len(got))
	}
	if got := f.state.Get("u1"); got != StateIdle {
		t.Errorf("state = %v, want idle after boundary reset", got)
	}
	if f.log.countKind(models.NotificationStreakSaved) != 0 {
		t.Error("no save celebration without an urgent nudge")
	}
}

func TestRunDailySync_CelebratesSavedStreak(t *testing.T) {
	now := time.Date(2024, 6, 2, 0, 5, 0, 0, time.UTC)
	f := newFixture(t, now, testUser())
	f.state.Set("u1", StateUrgentSent)
	f.source.days = []utils.ContributionDay{
		{Date: "2024-05-31", Count: 2},
		{Date: "2024-06-01", Count: 1},
	}

	f.scheduler.RunDailySync(context.Background())

	if f.log.countKind(models.NotificationStreakSaved) != 1 {
		t.Fatalf("streak_saved logged %d times, want 1", f.log.countKind(models.NotificationStreakSaved))
	}
	found := false
	for _, m := range f.chat.sent {
		if strings.Contains(m.text, "Streak saved") {
			found = true
		}
	}
	if !found {
		t.Error("expected a streak saved chat message")
	}
	if got := f.state.Get("u1"); got != StateIdle {
		t.Errorf("state = %v, want idle after boundary reset", got)
	}
}

func TestRunDailySync_NoCelebrationWhenDayStayedEmpty(t *testing.T) {
	now := time.Date(2024, 6, 2, 0, 5, 0, 0, time.UTC)
	f := newFixture(t, now, testUser())
	f.state.Set("u1", StateUrgentSent)
	f.source.days = []utils.ContributionDay{
		{Date: "2024-06-01", Count: 0},
	}

	f.scheduler.RunDailySync(context.Background())

	if f.log.countKind(models.NotificationStreakSaved) != 0 {
		t.Error("empty completed day must not celebrate")
	}
	if got := f.state.Get("u1"); got != StateIdle {
		t.Errorf("state = %v, want idle after boundary reset", got)
	}
}

func TestRunDailySync_RecordsSaveWhenSendsFail(t *testing.T) {
	now := time.Date(2024, 6, 2, 0, 5, 0, 0, time.UTC)
	f := newFixture(t, now, testUser())
	f.state.Set("u1", StateUrgentSent)
	f.chat.err = errors.New("telegram down")
	f.email.err = errors.New("smtp down")
	f.source.days = []utils.ContributionDay{
		{Date: "2024-06-01", Count: 1},
	}

	f.scheduler.RunDailySync(context.Background())

	if f.log.countKind(models.NotificationStreakSaved) != 1 {
		t.Errorf("streak_saved logged %d times, want 1; the record must not depend on delivery", f.log.countKind(models.NotificationStreakSaved))
	}
}

func TestRunDailySync_RecordsSaveWithoutChannels(t *testing.T) {
	now := time.Date(2024, 6, 2, 0, 5, 0, 0, time.UTC)
	u := testUser()
	u.TelegramChatID = ""
	u.EmailReminders = false
	u.TelegramReminders = false
	f := newFixture(t, now, u)
	f.state.Set("u1", StateUrgentSent)
	f.source.days = []utils.ContributionDay{
		{Date: "2024-06-01", Count: 1},
	}

	f.scheduler.RunDailySync(context.Background())

	if len(f.chat.sent) != 0 || len(f.email.sent) != 0 {
		t.Errorf("no messages expected, got %d chats %d emails", len(f.chat.sent), len(f.email.sent))
	}
	if f.log.countKind(models.NotificationStreakSaved) != 1 {
		t.Errorf("streak_saved logged %d times, want 1 even with all channels off", f.log.countKind(models.NotificationStreakSaved))
	}
}

func TestRunDailySync_SavedFallsBackToEmail(t *testing.T) {
	now := time.Date(2024, 6, 2, 0, 5, 0, 0, time.UTC)
	u := testUser()
	u.TelegramChatID = ""
	f := newFixture(t, now, u)
	f.state.Set("u1", StateUrgentSent)
	f.source.days = []utils.ContributionDay{
		{Date: "2024-06-01", Count: 1},
	}

	f.scheduler.RunDailySync(context.Background())

	if len(f.email.sent) != 1 {
		t.Fatalf("emails sent = %d, want 1", len(f.email.sent))
	}
	if f.log.countKind(models.NotificationStreakSaved) != 1 {
		t.Errorf("streak_saved logged %d times, want 1", f.log.countKind(models.NotificationStreakSaved))
	}
}

func TestRunDailySync_FullEscalationCycle(t *testing.T) {
	// Day one: miss the check time reminder, get the urgent nudge, then
	// commit before midnight. Day two starts idle again.
	checkTime := time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)
	f := newFixture(t, checkTime, testUser())

	f.scheduler.RunDueCheck(context.Background())
	if f.state.Get("u1") != StateFriendlySent {
		t.Fatal("expected friendly stage after due check")
	}

	f.scheduler.now = func() time.Time { return time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC) }
	f.scheduler.RunUrgentCheck(context.Background())
	if f.state.Get("u1") != StateUrgentSent {
		t.Fatal("expected urgent stage after cutoff")
	}

	f.source.days = []utils.ContributionDay{{Date: "2024-06-01", Count: 3}}
	f.scheduler.now = func() time.Time { return time.Date(2024, 6, 2, 0, 5, 0, 0, time.UTC) }
	f.scheduler.RunDailySync(context.Background())

	if f.log.countKind(models.NotificationStreakSaved) != 1 {
		t.Errorf("streak_saved logged %d times, want 1", f.log.countKind(models.NotificationStreakSaved))
	}
	if f.state.Get("u1") != StateIdle {
		t.Error("new day must start idle")
	}
	if f.state.EmailSentToday("u1") {
		t.Error("email dedup must clear at the boundary")
	}
}

func TestRunUrgentCheck_LogsUserWithoutTimezone(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	prev := utils.Sugar
	utils.Sugar = zap.New(core).Sugar()
	defer func() { utils.Sugar = prev }()

	now := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	u := testUser()
	u.Timezone = ""
	f := newFixture(t, now, u)

	f.scheduler.RunUrgentCheck(context.Background())

	if len(f.chat.sent) != 0 {
		t.Errorf("user without timezone must be skipped, got %d messages", len(f.chat.sent))
	}
	if got := f.state.Get("u1"); got != StateIdle {
		t.Errorf("state = %v, want idle", got)
	}
	if logs.FilterMessageSnippet("no timezone").Len() != 1 {
		t.Errorf("expected one skip log entry, got %d", logs.FilterMessageSnippet("no timezone").Len())
	}
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	if err := f.scheduler.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.scheduler.Stop()
}

func TestRunCleanup(t *testing.T) {
	f := newFixture(t, time.Date(2024, 6, 1, 4, 0, 0, 0, time.UTC))
	f.scheduler.RunCleanup(context.Background())
	if f.purger.calls != 1 {
		t.Errorf("purger calls = %d, want 1", f.purger.calls)
	}
}

func TestMemoryEscalationStore(t *testing.T) {
	s := NewMemoryEscalationStore()

	if got := s.Get("x"); got != StateIdle {
		t.Errorf("unknown user state = %v, want idle", got)
	}

	s.Set("x", StateUrgentSent)
	s.MarkEmailSent("x")
	if s.Get("x") != StateUrgentSent || !s.EmailSentToday("x") {
		t.Error("set/mark did not stick")
	}

	s.Reset()
	if s.Get("x") != StateIdle || s.EmailSentToday("x") {
		t.Error("reset must clear state and dedup")
	}
}
