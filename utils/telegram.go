package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const telegramAPIBase = "https://api.telegram.org/bot"

// TelegramClient talks to the Telegram Bot HTTP API.
type TelegramClient struct {
	apiURL      string
	httpClient  *http.Client
	botUsername string
}

// TelegramUpdate is the webhook payload delivered by Telegram.
type TelegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64 `json:"message_id"`
		From      struct {
			ID        int64  `json:"id"`
			FirstName string `json:"first_name"`
			Username  string `json:"username"`
		} `json:"from"`
		Chat struct {
			ID   int64  `json:"id"`
			Type string `json:"type"`
		} `json:"chat"`
		Text string `json:"text"`
		Date int64  `json:"date"`
	} `json:"message"`
}

type telegramResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// NewTelegramClient creates a client for the given bot token.
func NewTelegramClient(token string) *TelegramClient {
	return NewTelegramClientWithURL(telegramAPIBase+token, "streakify_bot")
}

// NewTelegramClientWithURL creates a client against a custom endpoint, used in tests.
func NewTelegramClientWithURL(apiURL, fallbackBotUsername string) *TelegramClient {
	return &TelegramClient{
		apiURL:      apiURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		botUsername: fallbackBotUsername,
	}
}

// BotUsername returns the bot's @name, refreshed by RefreshBotUsername.
func (c *TelegramClient) BotUsername() string {
	return c.botUsername
}

// RefreshBotUsername queries getMe and stores the bot's username for use in
// link instructions. Failure keeps the configured fallback.
func (c *TelegramClient) RefreshBotUsername(ctx context.Context) error {
	var result struct {
		Username string `json:"username"`
	}
	if err := c.call(ctx, "getMe", nil, &result); err != nil {
		return err
	}
	if result.Username != "" {
		c.botUsername = result.Username
	}
	return nil
}

// SendMessage delivers an HTML-formatted message to a chat.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID, text string) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	return c.call(ctx, "sendMessage", payload, nil)
}

// SetWebhook points the bot's webhook at the given URL.
func (c *TelegramClient) SetWebhook(ctx context.Context, webhookURL string) error {
	return c.call(ctx, "setWebhook", map[string]any{"url": webhookURL}, nil)
}

// DeleteWebhook removes the webhook, useful for local development with polling.
func (c *TelegramClient) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", nil, nil)
}

// WebhookInfo returns the raw getWebhookInfo payload.
func (c *TelegramClient) WebhookInfo(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "getWebhookInfo", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *TelegramClient) call(ctx context.Context, method string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode telegram payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/"+method, body)
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var parsed telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode telegram %s response: %w", method, err)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram %s failed: %s", method, parsed.Description)
	}
	if out != nil && parsed.Result != nil {
		if err := json.Unmarshal(parsed.Result, out); err != nil {
			return fmt.Errorf("decode telegram %s result: %w", method, err)
		}
	}
	return nil
}
