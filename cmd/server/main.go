package main

import (
	"context"
	"flag"
	"log/slog"
	"path/filepath"
	"time"

	"beatwise/bot"
	"beatwise/entity"
	"beatwise/impl/account"
	"beatwise/impl/auth"
	"beatwise/impl/core"
	"beatwise/impl/ledger"
	"beatwise/impl/quest"
	"beatwise/impl/quota"
	"beatwise/impl/ranking"
	"beatwise/impl/referral"
	"beatwise/internal/cache"
	"beatwise/internal/config"
	"beatwise/internal/database"
	"beatwise/internal/http-server/api"
	"beatwise/internal/metrics"
	"beatwise/internal/verifier"
	"beatwise/lib/clock"
	"beatwise/lib/logger"
	"beatwise/lib/sl"
)

const logFileName = "beatwise.log"

// accountStore is what every service reads and the ledger writes.
type accountStore interface {
	ledger.Store
	account.Store
	referral.Store
	ranking.Store
}

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	log.Info("starting beatwise", slog.String("config", *configPath), slog.String("env", conf.Env))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var tg *bot.TgBot
	if conf.Telegram.Enabled {
		var err error
		tg, err = bot.NewTgBot(conf.Telegram.ApiKey, log, bot.BotConfig{
			GroupID:     conf.Telegram.GroupID,
			AdminChatID: conf.Telegram.AdminChatID,
		})
		if err != nil {
			log.Error("telegram bot", sl.Err(err))
			return
		}
		log = logger.WithNotifier(log, tg, slog.LevelError)
	}

	var store accountStore
	mongo, err := database.NewMongoClient(ctx, conf)
	if err != nil {
		log.Error("mongo client", sl.Err(err))
		return
	}
	if mongo != nil {
		log.With(
			slog.String("host", conf.Mongo.Host),
			slog.String("port", conf.Mongo.Port),
			slog.String("user", conf.Mongo.User),
			slog.String("database", conf.Mongo.Database),
		).Info("mongo client initialized")
		defer mongo.Close(context.Background())
		store = mongo
	} else {
		log.Warn("mongo disabled, accounts are kept in memory")
		store = database.NewMemory()
	}

	m := metrics.New()
	sysClock := clock.System()

	l := ledger.New(store, ledger.Config{
		MaxAttempts: conf.Ledger.MaxAttempts,
		RetryDelay:  conf.Ledger.RetryDelay,
	}, log)
	l.SetMetrics(m)

	accounts := account.New(store, l, sysClock, log)

	quests := quest.New(store, l, quest.Config{
		Rewards:       conf.Rewards.Tasks,
		VerifyTimeout: conf.Verifier.Timeout,
	}, sysClock, log)
	quests.SetMetrics(m)
	for _, p := range []entity.Platform{entity.PlatformX, entity.PlatformSpotify, entity.PlatformEmail, entity.PlatformTelegram, entity.PlatformDiscord} {
		quests.SetVerifier(p, verifier.Trusted{})
	}
	if tg != nil {
		quests.SetTaskVerifier(entity.TaskTelegramJoinGroup, tg)
	} else {
		log.Warn("telegram disabled, group join cannot be verified")
		quests.SetTaskVerifier(entity.TaskTelegramJoinGroup, verifier.Func(unverifiable))
	}
	if conf.Discord.Enabled {
		quests.SetTaskVerifier(entity.TaskDiscordJoinServer, verifier.NewDiscord(conf.Discord, log))
	} else {
		log.Warn("discord disabled, server join cannot be verified")
		quests.SetTaskVerifier(entity.TaskDiscordJoinServer, verifier.Func(unverifiable))
	}

	tracker := quota.New(store, l, sysClock, log)
	tracker.SetMetrics(m)

	referrals := referral.New(store, l, conf.Rewards.Referral, log)
	referrals.SetMetrics(m)

	ranks := ranking.New(store, log)

	handler := core.New(core.Services{
		Ledger:   l,
		Accounts: accounts,
		Auth:     auth.New(accounts, sysClock, log),
		Quests:   quests,
		Quota:    tracker,
		Referral: referrals,
		Ranking:  ranks,
	}, log)
	handler.SetAdminToken(conf.AdminToken)
	if conf.AdminToken == "" {
		log.Warn("admin token not set, admin routes are disabled")
	}

	rdb, err := cache.NewRedisClient(ctx, conf)
	if err != nil {
		log.Error("redis client", sl.Err(err))
		return
	}
	if rdb != nil {
		defer rdb.Close()
		pages := cache.NewLeaderboard(rdb, conf.Redis.TTL, log)
		pages.SetMetrics(m)
		ranks.SetCache(pages)
		handler.SetPageCache(pages)
		log.With(slog.String("addr", conf.Redis.Addr)).Info("leaderboard cache enabled")
	}

	if tg != nil {
		tg.SetCore(handler)
		go func() {
			if err := tg.Start(); err != nil {
				log.Error("starting telegram bot", sl.Err(err))
			}
		}()
		defer tg.Stop()
	}

	if err = api.New(conf, log, handler, m.Handler()); err != nil {
		log.Error("server error", sl.Err(err))
	}

	log.Error("service stopped")
}

func unverifiable(_ context.Context, _ string) (bool, error) {
	return false, nil
}
