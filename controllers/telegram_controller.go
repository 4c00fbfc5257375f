package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/streakify/backend/models"
	"github.com/streakify/backend/utils"
)

// TelegramController receives bot webhook updates and manages the link-code
// handshake that binds a chat to an account.
type TelegramController struct {
	db    *gorm.DB
	tg    *utils.TelegramClient
	codes *utils.LinkCodeRegistry
}

// NewTelegramController creates a new controller instance.
func NewTelegramController(db *gorm.DB, tg *utils.TelegramClient, codes *utils.LinkCodeRegistry) *TelegramController {
	return &TelegramController{db: db, tg: tg, codes: codes}
}

// HandleWebhook receives updates from Telegram. It acknowledges immediately
// so Telegram does not retry, then processes the message in the background.
func (t *TelegramController) HandleWebhook(ctx *gin.Context) {
	var update utils.TelegramUpdate
	if err := ctx.ShouldBindJSON(&update); err != nil {
		ctx.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true})

	if update.Message == nil || update.Message.Text == "" {
		return
	}
	go t.processMessage(update)
}

func (t *TelegramController) processMessage(update utils.TelegramUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
	text := strings.TrimSpace(update.Message.Text)
	firstName := utils.Sanitize(update.Message.From.FirstName)

	switch {
	case strings.HasPrefix(text, "/start"):
		t.handleStart(ctx, chatID, firstName, text)
	case text == "/status":
		t.handleStatus(ctx, chatID)
	case text == "/unlink":
		t.handleUnlink(ctx, chatID)
	case text == "/help":
		t.reply(ctx, chatID,
			"🤖 <b>Streakify Bot Commands</b>\n\n"+
				"/start CODE - Link your account\n"+
				"/status - Check link status\n"+
				"/unlink - Unlink your account\n"+
				"/help - Show this message")
	default:
		t.reply(ctx, chatID, "I don't understand that command.\n\nSend /help to see available commands.")
	}
}

func (t *TelegramController) handleStart(ctx context.Context, chatID, firstName, text string) {
	parts := strings.Fields(text)
	if len(parts) == 1 {
		t.reply(ctx, chatID,
			fmt.Sprintf("👋 Welcome to <b>Streakify</b>, %s!\n\n", firstName)+
				"To link your account, please use the link code from the website.\n\n"+
				"Send: <code>/start YOUR_CODE</code>")
		return
	}

	userID, ok := t.codes.Validate(parts[1])
	if !ok {
		t.reply(ctx, chatID, "❌ Invalid or expired link code.\n\nPlease generate a new code from the Streakify website.")
		return
	}

	if err := t.db.Model(&models.User{}).Where("id = ?", userID).
		Update("telegram_chat_id", chatID).Error; err != nil {
		utils.Sugar.Errorf("linking telegram chat %s to user %s failed: %v", chatID, userID, err)
		t.reply(ctx, chatID, "❌ Something went wrong. Please try again later.")
		return
	}

	t.reply(ctx, chatID,
		"✅ <b>Successfully linked!</b>\n\n"+
			fmt.Sprintf("You'll now receive streak reminders here, %s.\n\n", firstName)+
			"Keep coding and maintain your streak! 🔥")
}

func (t *TelegramController) handleStatus(ctx context.Context, chatID string) {
	var user models.User
	err := t.db.Where("telegram_chat_id = ?", chatID).First(&user).Error
	if err != nil {
		t.reply(ctx, chatID, "❌ This chat is not linked to any Streakify account.\n\nUse <code>/start YOUR_CODE</code> to link.")
		return
	}
	t.reply(ctx, chatID,
		"✅ Your account is linked!\n\n"+
			fmt.Sprintf("GitHub: <b>%s</b>\n\n", utils.Sanitize(user.GithubUsername))+
			"You'll receive reminders if you haven't contributed.")
}

func (t *TelegramController) handleUnlink(ctx context.Context, chatID string) {
	res := t.db.Model(&models.User{}).Where("telegram_chat_id = ?", chatID).
		Update("telegram_chat_id", "")
	if res.Error != nil || res.RowsAffected == 0 {
		t.reply(ctx, chatID, "❌ This chat is not linked to any account.")
		return
	}
	t.reply(ctx, chatID, "✅ Account unlinked successfully.\n\nYou won't receive reminders anymore.")
}

func (t *TelegramController) reply(ctx context.Context, chatID, text string) {
	if err := t.tg.SendMessage(ctx, chatID, text); err != nil {
		utils.Sugar.Warnf("telegram reply to chat %s failed: %v", chatID, err)
	}
}

// GenerateLinkCode issues a fresh single-use code for the authenticated user.
func (t *TelegramController) GenerateLinkCode(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	code := t.codes.Generate(userID)
	utils.Success(ctx, gin.H{
		"code":         code,
		"expires_in":   "10 minutes",
		"instructions": fmt.Sprintf("Send this message to @%s on Telegram:\n/start %s", t.tg.BotUsername(), code),
	})
}

type setWebhookRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// SetWebhook points the bot at the given webhook URL (setup endpoint).
func (t *TelegramController) SetWebhook(ctx *gin.Context) {
	var req setWebhookRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "webhook url is required")
		return
	}

	if err := t.tg.SetWebhook(ctx.Request.Context(), req.URL); err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50240, "failed to set webhook")
		return
	}
	utils.Success(ctx, gin.H{"message": "webhook set successfully", "url": req.URL})
}

// DeleteWebhook removes the bot's webhook (setup endpoint, used to switch a
// local environment back to polling).
func (t *TelegramController) DeleteWebhook(ctx *gin.Context) {
	if err := t.tg.DeleteWebhook(ctx.Request.Context()); err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50242, "failed to delete webhook")
		return
	}
	utils.Success(ctx, gin.H{"message": "webhook deleted successfully"})
}

// WebhookInfo returns the bot's current webhook configuration.
func (t *TelegramController) WebhookInfo(ctx *gin.Context) {
	info, err := t.tg.WebhookInfo(ctx.Request.Context())
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50241, "failed to get webhook info")
		return
	}
	ctx.Data(http.StatusOK, "application/json", info)
}
