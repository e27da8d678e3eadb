package bot

import (
	"log/slog"
	"strings"

	"beatwise/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// plainResponse sends MarkdownV2 text and falls back to plain text when
// Telegram rejects the markup.
func (t *TgBot) plainResponse(chatId int64, text string) error {
	if text == "" {
		t.log.With("id", chatId).Debug("empty message")
		return nil
	}

	_, err := t.sender.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
		_, err = t.sender.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending safe message", sl.Err(err))
			return err
		}
	}
	return nil
}

func Sanitize(input string) string {
	reservedChars := "\\_*[]()~`>#+-=|{}.!"
	var b strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// Try to split at newline
		cutAt := maxLen
		nlIdx := strings.LastIndex(text[:maxLen], "\n")
		if nlIdx > 0 {
			cutAt = nlIdx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}
