package notify

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"dc-purchase-api/internal/config"
	"dc-purchase-api/internal/utils"
	"dc-purchase-api/internal/utils/timeutil"
)

// Alerter 运维告警：订单挂起、迭代上限等需要人工介入的情况
type Alerter interface {
	Alert(ctx context.Context, title string, fields map[string]string) error
}

type Nop struct{}

func (Nop) Alert(context.Context, string, map[string]string) error { return nil }

// New 未配置 bot token 或 chat id 时返回 Nop
func New(c config.AlertCfg) Alerter {
	if c.TelegramBotToken == "" || c.TelegramChatID == "" {
		return Nop{}
	}
	return NewTelegram("https://api.telegram.org", c.TelegramBotToken, c.TelegramChatID, nil)
}

type TelegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
	Parse  string `json:"parse_mode"`
}

type Telegram struct {
	apiBase  string
	botToken string
	chatID   string
	http     *http.Client
}

func NewTelegram(apiBase, botToken, chatID string, hc *http.Client) *Telegram {
	if hc == nil {
		hc = utils.DefaultHTTPClient
	}
	return &Telegram{apiBase: strings.TrimRight(apiBase, "/"), botToken: botToken, chatID: chatID, http: hc}
}

func (t *Telegram) Alert(ctx context.Context, title string, fields map[string]string) error {
	msg := TelegramMessage{ChatID: t.chatID, Text: FormatAlert(title, fields, timeutil.NowUTC()), Parse: "MarkdownV2"}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	_, err := utils.DoJSON(ctx, t.http, http.MethodPost, url, nil, msg, nil)
	return err
}

// FormatAlert 标题加按 key 排序的字段，空值跳过
func FormatAlert(title string, fields map[string]string, at time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%s*\n", escapeMarkdown(title)))
	sb.WriteString(fmt.Sprintf("*时间:* %s\n", escapeMarkdown(timeutil.FormatISO8601(at))))

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := fields[k]; v != "" {
			sb.WriteString(fmt.Sprintf("%s: `%s`\n", escapeMarkdown(k), escapeMarkdown(v)))
		}
	}
	return sb.String()
}

// Async 异步发送，失败只记日志
func Async(a Alerter, title string, fields map[string]string) {
	if a == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Alert(ctx, title, fields); err != nil {
			log.Printf("[Alert] send failed: %v", err)
		}
	}()
}

// escapeMarkdown 转义 Telegram MarkdownV2 特殊字符
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"~", "\\~",
		"`", "\\`",
		">", "\\>",
		"#", "\\#",
		"+", "\\+",
		"-", "\\-",
		"=", "\\=",
		"|", "\\|",
		"{", "\\{",
		"}", "\\}",
		".", "\\.",
		"!", "\\!",
	)
	return replacer.Replace(s)
}
