package core

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"beatwise/entity"
	"beatwise/impl/account"
	"beatwise/impl/auth"
	"beatwise/impl/ledger"
	"beatwise/impl/quest"
	"beatwise/impl/quota"
	"beatwise/impl/ranking"
	"beatwise/impl/referral"
	"beatwise/lib/sl"
)

// PageCache is flushed after administrative changes to the leaderboard.
type PageCache interface {
	Flush(ctx context.Context) error
}

type Services struct {
	Ledger   *ledger.Ledger
	Accounts *account.Service
	Auth     *auth.Auth
	Quests   *quest.Engine
	Quota    *quota.Tracker
	Referral *referral.Service
	Ranking  *ranking.Engine
}

type Core struct {
	Services
	cache      PageCache
	adminToken string
	log        *slog.Logger
}

func New(s Services, log *slog.Logger) *Core {
	if s.Ledger == nil || s.Accounts == nil {
		panic("ledger and account services are required")
	}
	return &Core{
		Services: s,
		log:      log.With(sl.Module("core")),
	}
}

func (c *Core) SetAdminToken(token string) {
	c.adminToken = token
}

func (c *Core) SetPageCache(pc PageCache) {
	c.cache = pc
}

// AuthenticateAdmin compares a bearer token with the configured admin
// token. An empty configured token disables the admin routes.
func (c *Core) AuthenticateAdmin(token string) bool {
	if c.adminToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(c.adminToken)) == 1
}

func (c *Core) AuthMessage(wallet string) (*auth.Message, error) {
	if c.Auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.Auth.AuthMessage(wallet)
}

func (c *Core) Authenticate(ctx context.Context, wallet, message, signature string) (*auth.Session, error) {
	if c.Auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.Auth.Authenticate(ctx, wallet, message, signature)
}

func (c *Core) Account(ctx context.Context, wallet string) (*entity.AccountView, error) {
	acc, err := c.Accounts.Get(ctx, wallet)
	if err != nil {
		return nil, err
	}
	view := acc.View()
	return &view, nil
}

func (c *Core) LinkIdentity(ctx context.Context, wallet string, platform entity.Platform, identity entity.Identity) (*entity.AccountView, error) {
	acc, err := c.Accounts.LinkIdentity(ctx, wallet, platform, identity)
	if err != nil {
		return nil, err
	}
	view := acc.View()
	return &view, nil
}

func (c *Core) CanPlay(ctx context.Context, wallet string) (*quota.Status, error) {
	if c.Quota == nil {
		return nil, fmt.Errorf("quota service not connected")
	}
	return c.Quota.CanPlay(ctx, wallet)
}

func (c *Core) RecordPlay(ctx context.Context, wallet string) (*quota.Status, error) {
	if c.Quota == nil {
		return nil, fmt.Errorf("quota service not connected")
	}
	return c.Quota.RecordPlay(ctx, wallet)
}

func (c *Core) RecordGameResult(ctx context.Context, wallet string, points int64) (*ledger.GameResult, error) {
	return c.Ledger.RecordGameResult(ctx, wallet, points)
}

func (c *Core) Tasks(ctx context.Context, wallet string) ([]entity.TaskState, error) {
	if c.Quests == nil {
		return nil, fmt.Errorf("quest service not connected")
	}
	return c.Quests.Tasks(ctx, wallet)
}

func (c *Core) CompleteSocialTask(ctx context.Context, wallet string, kind entity.TaskKind, platformUserID string, identity *entity.Identity) (*quest.Completion, error) {
	if c.Quests == nil {
		return nil, fmt.Errorf("quest service not connected")
	}
	return c.Quests.CompleteSocialTask(ctx, wallet, kind, platformUserID, identity)
}

func (c *Core) ApplyReferral(ctx context.Context, wallet, code string) (*referral.Result, error) {
	if c.Referral == nil {
		return nil, fmt.Errorf("referral service not connected")
	}
	return c.Referral.ApplyReferral(ctx, wallet, code)
}

func (c *Core) ReferralInfo(ctx context.Context, wallet string) (*referral.Info, error) {
	if c.Referral == nil {
		return nil, fmt.Errorf("referral service not connected")
	}
	return c.Referral.Info(ctx, wallet)
}

func (c *Core) TopN(ctx context.Context, scope entity.Scope, page, size int) (*ranking.Page, error) {
	if c.Ranking == nil {
		return nil, fmt.Errorf("ranking service not connected")
	}
	return c.Ranking.TopN(ctx, scope, page, size)
}

func (c *Core) Rank(ctx context.Context, wallet string, scope entity.Scope) (*ranking.Position, error) {
	if c.Ranking == nil {
		return nil, fmt.Errorf("ranking service not connected")
	}
	return c.Ranking.Rank(ctx, wallet, scope)
}

func (c *Core) Credit(ctx context.Context, wallet string, category entity.Category, amount int64) (int64, error) {
	total, err := c.Ledger.Credit(ctx, wallet, category, amount)
	if err != nil {
		return 0, err
	}
	c.flushPages(ctx)
	return total, nil
}

func (c *Core) ResetGamePoints(ctx context.Context, wallet string) (*ledger.GameReset, error) {
	reset, err := c.Ledger.ResetGamePoints(ctx, wallet)
	if err != nil {
		return nil, err
	}
	c.flushPages(ctx)
	return reset, nil
}

// flushPages drops cached leaderboard pages after an admin change.
func (c *Core) flushPages(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Flush(ctx); err != nil {
		c.log.Warn("flush leaderboard cache", sl.Err(err))
	}
}
