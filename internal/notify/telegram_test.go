package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dc-purchase-api/internal/config"
)

func TestFormatAlert(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	got := FormatAlert("order held", map[string]string{
		"stage":    "usdc_verified",
		"order_id": "a-b",
		"empty":    "",
	}, at)

	if !strings.HasPrefix(got, "*order held*\n") {
		t.Errorf("missing title: %q", got)
	}
	if strings.Contains(got, "empty") {
		t.Errorf("empty field rendered: %q", got)
	}
	if i, j := strings.Index(got, "order\\_id"), strings.Index(got, "stage"); i < 0 || j < 0 || i > j {
		t.Errorf("fields not sorted or not escaped: %q", got)
	}
	if !strings.Contains(got, "`a\\-b`") {
		t.Errorf("value not escaped: %q", got)
	}
}

func TestTelegramAlert(t *testing.T) {
	var got TelegramMessage
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, "tok", "chat-1", srv.Client())
	if err := tg.Alert(context.Background(), "held", map[string]string{"code": "swap_failed"}); err != nil {
		t.Fatal(err)
	}
	if path != "/bottok/sendMessage" {
		t.Errorf("path %s", path)
	}
	if got.ChatID != "chat-1" || got.Parse != "MarkdownV2" || !strings.Contains(got.Text, "swap\\_failed") {
		t.Errorf("message %+v", got)
	}
}

func TestNewWithoutCredentials(t *testing.T) {
	if _, ok := New(config.AlertCfg{TelegramBotToken: "x"}).(Nop); !ok {
		t.Error("expected Nop without chat id")
	}
}
