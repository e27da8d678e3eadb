package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

const maxMessageLength = 4000

// Notify sends an alert to the admin chat without markup, since log lines
// are full of MarkdownV2 reserved characters. It satisfies logger.Notifier.
func (t *TgBot) Notify(text string) error {
	if t.config.AdminChatID == 0 {
		return nil
	}
	for _, part := range splitMessage(text, maxMessageLength) {
		if _, err := t.sender.SendMessage(t.config.AdminChatID, part, &tgbotapi.SendMessageOpts{}); err != nil {
			return fmt.Errorf("notify admin chat: %w", err)
		}
	}
	return nil
}

func timeUntil(deadline time.Time) time.Duration {
	d := time.Until(deadline)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}
