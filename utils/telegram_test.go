package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotPayload)
		fmt.Fprint(w, `{"ok":true,"result":{}}`)
	}))
	defer srv.Close()

	client := NewTelegramClientWithURL(srv.URL, "testbot")
	if err := client.SendMessage(context.Background(), "12345", "<b>hi</b>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasSuffix(gotPath, "/sendMessage") {
		t.Errorf("path = %q, want .../sendMessage", gotPath)
	}
	if gotPayload["chat_id"] != "12345" {
		t.Errorf("chat_id = %v, want 12345", gotPayload["chat_id"])
	}
	if gotPayload["parse_mode"] != "HTML" {
		t.Errorf("parse_mode = %v, want HTML", gotPayload["parse_mode"])
	}
}

func TestSendMessage_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"description":"Forbidden: bot was blocked by the user"}`)
	}))
	defer srv.Close()

	client := NewTelegramClientWithURL(srv.URL, "testbot")
	err := client.SendMessage(context.Background(), "12345", "hi")
	if err == nil {
		t.Fatal("expected error when ok=false")
	}
	if !strings.Contains(err.Error(), "blocked") {
		t.Errorf("error should carry the API description, got %v", err)
	}
}

func TestRefreshBotUsername(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"username":"real_bot"}}`)
	}))
	defer srv.Close()

	client := NewTelegramClientWithURL(srv.URL, "fallback_bot")
	if err := client.RefreshBotUsername(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.BotUsername() != "real_bot" {
		t.Errorf("bot username = %q, want real_bot", client.BotUsername())
	}
}

func TestRefreshBotUsername_FailureKeepsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"description":"Unauthorized"}`)
	}))
	defer srv.Close()

	client := NewTelegramClientWithURL(srv.URL, "fallback_bot")
	if err := client.RefreshBotUsername(context.Background()); err == nil {
		t.Fatal("expected error for unauthorized getMe")
	}
	if client.BotUsername() != "fallback_bot" {
		t.Errorf("bot username = %q, want fallback_bot", client.BotUsername())
	}
}

func TestSetWebhook(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotPayload)
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}))
	defer srv.Close()

	client := NewTelegramClientWithURL(srv.URL, "testbot")
	if err := client.SetWebhook(context.Background(), "https://example.com/hook"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPayload["url"] != "https://example.com/hook" {
		t.Errorf("url = %v", gotPayload["url"])
	}
}

func TestDeleteWebhook(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}))
	defer srv.Close()

	client := NewTelegramClientWithURL(srv.URL, "testbot")
	if err := client.DeleteWebhook(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/deleteWebhook") {
		t.Errorf("path = %q, want .../deleteWebhook", gotPath)
	}
}

func TestWebhookInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"result":{"url":"https://example.com/hook","pending_update_count":0}}`)
	}))
	defer srv.Close()

	client := NewTelegramClientWithURL(srv.URL, "testbot")
	raw, err := client.WebhookInfo(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var info struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.URL != "https://example.com/hook" {
		t.Errorf("url = %q", info.URL)
	}
}
