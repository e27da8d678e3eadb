// Package bot is the Telegram side of the service.
//
//   - tgbot.go      TgBot struct and lifecycle (Start/Stop)
//   - membership.go group membership checks for the telegram_join_group task
//   - messaging.go  alerts to the admin chat, used by the log handler
//   - commands.go   /start, /help, /id, /rank, /top
//   - helpers.go    Sanitize, plainResponse, splitMessage
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"beatwise/entity"
	"beatwise/impl/ranking"
	"beatwise/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
)

// Core is the read side the chat commands use.
type Core interface {
	Rank(ctx context.Context, wallet string, scope entity.Scope) (*ranking.Position, error)
	TopN(ctx context.Context, scope entity.Scope, page, size int) (*ranking.Page, error)
}

type memberAPI interface {
	GetChatMember(chatId int64, userId int64, opts *tgbotapi.GetChatMemberOpts) (tgbotapi.ChatMember, error)
}

type senderAPI interface {
	SendMessage(chatId int64, text string, opts *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error)
}

type BotConfig struct {
	GroupID     int64
	AdminChatID int64
}

type TgBot struct {
	log     *slog.Logger
	api     *tgbotapi.Bot
	members memberAPI
	sender  senderAPI
	core    Core
	updater *ext.Updater
	config  BotConfig
}

func NewTgBot(apiKey string, log *slog.Logger, cfg BotConfig) (*TgBot, error) {
	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	return &TgBot{
		log:     log.With(sl.Module("tgbot")),
		api:     api,
		members: api,
		sender:  api,
		config:  cfg,
	}, nil
}

func (t *TgBot) SetCore(core Core) {
	t.core = core
}

// Start polls for updates and blocks until Stop.
func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))
	dispatcher.AddHandler(handlers.NewCommand("id", t.id))
	dispatcher.AddHandler(handlers.NewCommand("rank", t.rank))
	dispatcher.AddHandler(handlers.NewCommand("top", t.top))

	t.setDefaultCommands()

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}

var defaultCommands = []tgbotapi.BotCommand{
	{Command: "start", Description: "About this bot"},
	{Command: "id", Description: "Show your Telegram user id"},
	{Command: "rank", Description: "Rank of a wallet: /rank <wallet> [scope]"},
	{Command: "top", Description: "Leaderboard: /top [scope]"},
	{Command: "help", Description: "Show available commands"},
}

func (t *TgBot) setDefaultCommands() {
	_, err := t.api.SetMyCommands(defaultCommands, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeDefault{},
	})
	if err != nil {
		t.log.Warn("setting default commands", sl.Err(err))
	}
}
