package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"beatwise/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// VerifyMembership reports whether the Telegram user is in the configured
// group. Owners, administrators and members count; restricted users count
// only while they are still in the chat.
func (t *TgBot) VerifyMembership(ctx context.Context, platformUserID string) (bool, error) {
	userId, err := strconv.ParseInt(strings.TrimSpace(platformUserID), 10, 64)
	if err != nil {
		return false, fmt.Errorf("telegram user id %q: %w", platformUserID, err)
	}
	if t.config.GroupID == 0 {
		return false, fmt.Errorf("telegram group is not configured")
	}

	opts := &tgbotapi.GetChatMemberOpts{}
	if deadline, ok := ctx.Deadline(); ok {
		opts.RequestOpts = &tgbotapi.RequestOpts{Timeout: timeUntil(deadline)}
	}
	member, err := t.members.GetChatMember(t.config.GroupID, userId, opts)
	if err != nil {
		t.log.With(slog.Int64("user", userId)).Warn("get chat member", sl.Err(err))
		return false, fmt.Errorf("get chat member: %w", err)
	}

	switch member.GetStatus() {
	case "creator", "administrator", "member":
		return true, nil
	case "restricted":
		switch m := member.(type) {
		case tgbotapi.ChatMemberRestricted:
			return m.IsMember, nil
		case *tgbotapi.ChatMemberRestricted:
			return m.IsMember, nil
		}
	}
	return false, nil
}
