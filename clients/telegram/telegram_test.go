package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hlradar/clients/notifier"
	"hlradar/config"

	"go.uber.org/zap"
)

func TestNewTelegramClient_NoToken(t *testing.T) {
	cfg := config.Defaults()
	cfg.Telegram.ChatID = "chat-123"

	client := NewTelegramClient(zap.NewNop(), cfg)

	if client.botToken != "" {
		t.Error("expected empty token")
	}
	if client.chatID != "chat-123" {
		t.Errorf("unexpected chat ID: %s", client.chatID)
	}
	if client.Enabled() {
		t.Error("expected client disabled without token")
	}
}

func TestNewTelegramClient_WithToken(t *testing.T) {
	cfg := config.Defaults()
	cfg.Telegram.BotToken = "test-token"
	cfg.Telegram.ChatID = "chat-123"

	client := NewTelegramClient(zap.NewNop(), cfg)

	if client.botToken != "test-token" {
		t.Errorf("unexpected token: %s", client.botToken)
	}
	if client.client == nil {
		t.Error("expected http client to be set")
	}
	if !client.Enabled() {
		t.Error("expected client enabled")
	}
}

func TestSendConsensusAlert_NotConfigured(t *testing.T) {
	client := &TelegramClient{
		logger:  zap.NewNop(),
		apiBase: defaultAPIBase,
	}

	alert := notifier.ConsensusAlert{Asset: "BTC", Side: "LONG"}

	// Should not panic
	client.SendConsensusAlert(alert)
}

func TestSendConsensusAlert_SendsHTML(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := &TelegramClient{
		logger:   zap.NewNop(),
		botToken: "tok",
		chatID:   "chat-123",
		apiBase:  server.URL,
		client:   server.Client(),
	}

	client.SendConsensusAlert(notifier.ConsensusAlert{
		Asset:     "BTC",
		Side:      "SHORT",
		Count:     3,
		Threshold: 3,
		Wallets: []notifier.WalletStake{
			{Address: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Notional: 50000, EntryPrice: 64000, UnrealizedPnl: -1200},
		},
		TotalNotional: 50000,
		TotalPnl:      -1200,
		DetectedAt:    time.Now(),
	})

	if received == nil {
		t.Fatal("expected message to be sent")
	}
	if received["parse_mode"] != "HTML" {
		t.Errorf("unexpected parse mode: %v", received["parse_mode"])
	}
	text, _ := received["text"].(string)
	if !strings.Contains(text, "3/3 wallets SHORT BTC") {
		t.Errorf("unexpected message text: %s", text)
	}
	if !strings.Contains(text, "0xaaaa") {
		t.Errorf("expected short address in message: %s", text)
	}
}

func TestGetUpdates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/getUpdates") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("offset") != "42" {
			t.Errorf("unexpected offset: %s", r.URL.Query().Get("offset"))
		}
		w.Write([]byte(`{"ok": true, "result": [
			{"update_id": 43, "message": {"message_id": 1, "text": "/status", "chat": {"id": 99}}}
		]}`))
	}))
	defer server.Close()

	client := &TelegramClient{
		logger:   zap.NewNop(),
		botToken: "tok",
		apiBase:  server.URL,
		client:   server.Client(),
	}

	updates, err := client.GetUpdates(context.Background(), 42, 30*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	if updates[0].UpdateID != 43 {
		t.Errorf("unexpected update ID: %d", updates[0].UpdateID)
	}
	if updates[0].Message.Text != "/status" {
		t.Errorf("unexpected text: %s", updates[0].Message.Text)
	}
	if updates[0].Message.Chat.ID != 99 {
		t.Errorf("unexpected chat ID: %d", updates[0].Message.Chat.ID)
	}
}

func TestGetUpdates_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok": false}`))
	}))
	defer server.Close()

	client := &TelegramClient{
		logger:   zap.NewNop(),
		botToken: "bad",
		apiBase:  server.URL,
		client:   server.Client(),
	}

	if _, err := client.GetUpdates(context.Background(), 0, time.Second); err == nil {
		t.Error("expected error on 401")
	}
}

func TestShortAddress(t *testing.T) {
	addr := "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	short := shortAddress(addr)
	if short != "0xaaaa…aaaaaa" {
		t.Errorf("unexpected short address: %s", short)
	}
	if shortAddress("0xabc") != "0xabc" {
		t.Error("short inputs must pass through unchanged")
	}
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{500, "500"},
		{12500, "12.5K"},
		{2_400_000, "2.40M"},
	}
	for _, tt := range tests {
		if got := formatUSD(tt.in); got != tt.want {
			t.Errorf("formatUSD(%f) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestBuildAlertMessage_ChangedKind(t *testing.T) {
	msg := buildAlertMessage(notifier.ConsensusAlert{
		Asset: "ETH", Side: "LONG", Count: 2, Threshold: 2,
		Kind: notifier.SignalKindChanged,
	})
	if !strings.Contains(msg, "Consensus Update") {
		t.Errorf("expected update title, got: %s", msg)
	}
}
