package notify

import "context"

// Discord embed limits.
const (
	discordTitleLimit       = 256
	discordDescriptionLimit = 4096
)

// DiscordSender posts alerts to a channel webhook as a single embed.
type DiscordSender struct {
	webhook
	url string
}

// NewDiscordSender creates a DiscordSender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{webhook: newWebhook("discord"), url: webhookURL}
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Send posts the title and message as one embed, each cut to Discord's limit.
// The webhook answers 204 on success.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	return d.post(ctx, d.url, map[string][]discordEmbed{
		"embeds": {{
			Title:       truncate(title, discordTitleLimit),
			Description: truncate(message, discordDescriptionLimit),
		}},
	})
}

// Name returns "discord".
func (d *DiscordSender) Name() string { return d.name }
