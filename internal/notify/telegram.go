package notify

import (
	"context"
	"html"
	"strings"
)

// DefaultTelegramAPI is the Telegram Bot API root.
const DefaultTelegramAPI = "https://api.telegram.org"

// telegramTextLimit is the sendMessage text limit after entity parsing.
const telegramTextLimit = 4096

// TelegramSender posts alerts to one chat through a bot.
type TelegramSender struct {
	webhook
	endpoint string
	chatID   string
}

// NewTelegramSender creates a TelegramSender. An empty apiBase uses
// DefaultTelegramAPI.
func NewTelegramSender(apiBase, token, chatID string) *TelegramSender {
	if apiBase == "" {
		apiBase = DefaultTelegramAPI
	}
	return &TelegramSender{
		webhook:  newWebhook("telegram"),
		endpoint: strings.TrimRight(apiBase, "/") + "/bot" + token + "/sendMessage",
		chatID:   chatID,
	}
}

// Send posts the alert as HTML. Market questions and tickers are escaped, so
// quotes and underscores in them reach the chat verbatim.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	body := truncate(message, telegramTextLimit-len([]rune(title))-1)
	text := "<b>" + html.EscapeString(title) + "</b>\n" + html.EscapeString(body)
	return t.post(ctx, t.endpoint, map[string]any{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
}

// Name returns "telegram".
func (t *TelegramSender) Name() string { return t.name }
