package utils

import "fmt"

// ReminderKind selects the tone of a reminder email or chat message.
type ReminderKind string

const (
	ReminderFriendly ReminderKind = "friendly"
	ReminderUrgent   ReminderKind = "urgent"
	ReminderSaved    ReminderKind = "saved"
)

// ReminderSubject returns the subject line for a reminder email.
func ReminderSubject(kind ReminderKind, username string, currentStreak int) string {
	switch kind {
	case ReminderUrgent:
		return fmt.Sprintf("⚠️ URGENT: Your %d-day streak is about to break!", currentStreak)
	case ReminderSaved:
		return fmt.Sprintf("🎉 Streak saved! You're now at %d days!", currentStreak+1)
	default:
		return fmt.Sprintf("🔥 Hey %s, don't forget to code today!", username)
	}
}

// ReminderBody renders the HTML body for a reminder email.
func ReminderBody(kind ReminderKind, username string, currentStreak int) string {
	switch kind {
	case ReminderUrgent:
		return emailLayout(
			fmt.Sprintf("⏰ Time is running out, %s!", username),
			fmt.Sprintf(`Your <strong style="color:#f0f6fc;">%d-day streak</strong> ends at midnight. One commit, one issue, one review — anything counts.`, currentStreak),
			currentStreak,
			"#f85149",
		)
	case ReminderSaved:
		return emailLayout(
			fmt.Sprintf("🎉 You did it, %s!", username),
			fmt.Sprintf(`You contributed after the reminder and kept the fire alive. You're now at <strong style="color:#f0f6fc;">%d days</strong>.`, currentStreak+1),
			currentStreak+1,
			"#3fb950",
		)
	default:
		return emailLayout(
			fmt.Sprintf("Hey %s! 👋", username),
			fmt.Sprintf(`Just a friendly reminder — we haven't seen any GitHub contributions from you today yet. Your current streak is <strong style="color:#f0f6fc;">%d days</strong>. Even a small commit counts. 💪`, currentStreak),
			currentStreak,
			"#f78166",
		)
	}
}

// emailLayout wraps content in the shared dark-theme table layout used by all
// reminder emails.
func emailLayout(heading, paragraph string, streak int, accent string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Streakify</title>
</head>
<body style="margin:0;padding:0;background-color:#0d1117;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;">
  <table width="100%%" cellpadding="0" cellspacing="0" style="background-color:#0d1117;padding:40px 20px;">
    <tr><td align="center">
      <table width="600" cellpadding="0" cellspacing="0" style="background-color:#161b22;border-radius:12px;border:1px solid #30363d;">
        <tr><td style="padding:40px 40px 20px 40px;text-align:center;">
          <h1 style="color:#58a6ff;margin:0;font-size:28px;">🔥 Streakify</h1>
        </td></tr>
        <tr><td style="padding:20px 40px;">
          <h2 style="color:#f0f6fc;margin:0 0 20px 0;font-size:24px;">%s</h2>
          <p style="color:#8b949e;font-size:16px;line-height:1.6;margin:0 0 30px 0;">%s</p>
        </td></tr>
        <tr><td style="padding:0 40px 30px 40px;">
          <table width="100%%" cellpadding="0" cellspacing="0" style="background-color:#21262d;border-radius:8px;border:1px solid #30363d;">
            <tr><td style="padding:25px;text-align:center;">
              <p style="color:#8b949e;margin:0 0 10px 0;font-size:14px;text-transform:uppercase;letter-spacing:1px;">Current Streak</p>
              <p style="color:%s;margin:0;font-size:48px;font-weight:bold;">%d 🔥</p>
              <p style="color:#8b949e;margin:10px 0 0 0;font-size:14px;">consecutive days</p>
            </td></tr>
          </table>
        </td></tr>
        <tr><td style="padding:0 40px 40px 40px;text-align:center;">
          <p style="color:#484f58;font-size:12px;margin:0;">You receive these reminders because you enabled them in Streakify. Adjust them any time in your notification settings.</p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`, heading, paragraph, accent, streak)
}
