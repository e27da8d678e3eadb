package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"beatwise/entity"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

const (
	commandTimeout = 5 * time.Second
	topSize        = 10
)

func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	text := fmt.Sprintf("Welcome to BeatWise\\!\n\nYour Telegram id is `%d`\\. Link it in the app to complete Telegram quests\\.\n\nUse /help to see the commands\\.",
		ctx.EffectiveUser.Id)
	return t.plainResponse(ctx.EffectiveChat.Id, text)
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	var b strings.Builder
	b.WriteString("*Commands*\n")
	for _, cmd := range defaultCommands {
		b.WriteString(fmt.Sprintf("/%s \\- %s\n", cmd.Command, Sanitize(cmd.Description)))
	}
	return t.plainResponse(ctx.EffectiveChat.Id, b.String())
}

func (t *TgBot) id(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return t.plainResponse(ctx.EffectiveChat.Id, fmt.Sprintf("`%d`", ctx.EffectiveUser.Id))
}

// /rank <wallet> [scope]
func (t *TgBot) rank(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveChat.Id
	if t.core == nil {
		return nil
	}
	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 2 {
		return t.plainResponse(chatId, "Usage: /rank \\<wallet\\> \\[scope\\]")
	}
	scope, err := scopeArg(args, 2)
	if err != nil {
		return t.plainResponse(chatId, Sanitize(err.Error()))
	}

	c, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	pos, err := t.core.Rank(c, args[1], scope)
	if err != nil {
		return t.plainResponse(chatId, Sanitize(err.Error()))
	}
	return t.plainResponse(chatId, formatPosition(pos.WalletAddress, string(pos.Scope), pos.Rank, pos.TotalAccounts, pos.Score))
}

// /top [scope]
func (t *TgBot) top(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveChat.Id
	if t.core == nil {
		return nil
	}
	scope, err := scopeArg(strings.Fields(ctx.EffectiveMessage.Text), 1)
	if err != nil {
		return t.plainResponse(chatId, Sanitize(err.Error()))
	}

	c, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	page, err := t.core.TopN(c, scope, 1, topSize)
	if err != nil {
		return t.plainResponse(chatId, Sanitize(err.Error()))
	}
	if len(page.Entries) == 0 {
		return t.plainResponse(chatId, "Leaderboard is empty")
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("*Top %d \\- %s*\n", len(page.Entries), Sanitize(string(page.Scope))))
	for _, e := range page.Entries {
		b.WriteString(fmt.Sprintf("%d\\. `%s` %d\n", e.Rank, shortWallet(e.WalletAddress), e.Score))
	}
	return t.plainResponse(chatId, b.String())
}

func scopeArg(args []string, i int) (entity.Scope, error) {
	if len(args) <= i {
		return entity.ScopeTotal, nil
	}
	return entity.ParseScope(args[i])
}

func formatPosition(wallet, scope string, rank, total, score int64) string {
	return fmt.Sprintf("`%s`\n%s: rank *%d* of %d, score %d", shortWallet(wallet), Sanitize(scope), rank, total, score)
}

func shortWallet(wallet string) string {
	if len(wallet) < 12 {
		return wallet
	}
	return wallet[:6] + "…" + wallet[len(wallet)-4:]
}
