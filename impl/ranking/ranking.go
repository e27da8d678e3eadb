// Package ranking computes leaderboard pages and the rank of one account.
// Reads are snapshots; concurrent credits may shift a page between calls.
package ranking

import (
	"context"
	"log/slog"
	"math"

	"beatwise/entity"
	"beatwise/lib/sl"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Store interface {
	AccountByWallet(ctx context.Context, wallet string) (*entity.Account, error)
	CountAccounts(ctx context.Context) (int64, error)
	CountAbove(ctx context.Context, scope entity.Scope, score int64) (int64, error)
	TopAccounts(ctx context.Context, scope entity.Scope, skip, limit int64) ([]*entity.Account, error)
}

// Cache keeps rendered pages for a short time. A miss or any cache
// failure is reported as false and the page is read from the store.
type Cache interface {
	Load(ctx context.Context, scope entity.Scope, page, size int, dst interface{}) bool
	Store(ctx context.Context, scope entity.Scope, page, size int, v interface{})
}

type Position struct {
	WalletAddress string       `json:"wallet_address"`
	Scope         entity.Scope `json:"scope"`
	Rank          int64        `json:"rank"`
	Score         int64        `json:"score"`
	TotalAccounts int64        `json:"total_accounts"`
}

type Entry struct {
	Rank           int64  `json:"rank"`
	WalletAddress  string `json:"wallet_address"`
	Score          int64  `json:"score"`
	GamePoints     int64  `json:"game_points"`
	ReferralPoints int64  `json:"referral_points"`
	SocialPoints   int64  `json:"social_points"`
	TotalPoints    int64  `json:"total_points"`
	HighScore      int64  `json:"high_score"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

type Page struct {
	Scope      entity.Scope `json:"scope"`
	Entries    []Entry      `json:"entries"`
	Pagination Pagination   `json:"pagination"`
}

type Engine struct {
	store Store
	cache Cache
	log   *slog.Logger
}

func New(store Store, log *slog.Logger) *Engine {
	return &Engine{
		store: store,
		log:   log.With(sl.Module("ranking")),
	}
}

func (e *Engine) SetCache(c Cache) {
	e.cache = c
}

// Rank is one plus the number of accounts scoring strictly higher, so
// equal scores share a rank.
func (e *Engine) Rank(ctx context.Context, wallet string, scope entity.Scope) (*Position, error) {
	scope, err := entity.ParseScope(string(scope))
	if err != nil {
		return nil, err
	}
	acc, err := e.store.AccountByWallet(ctx, entity.NormalizeWallet(wallet))
	if err != nil {
		return nil, err
	}
	score := acc.Score(scope)
	above, err := e.store.CountAbove(ctx, scope, score)
	if err != nil {
		return nil, err
	}
	total, err := e.store.CountAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return &Position{
		WalletAddress: acc.WalletAddress,
		Scope:         scope,
		Rank:          above + 1,
		Score:         score,
		TotalAccounts: total,
	}, nil
}

// TopN returns one page of the leaderboard. Sizes above MaxPageSize are
// clamped.
func (e *Engine) TopN(ctx context.Context, scope entity.Scope, page, size int) (*Page, error) {
	scope, err := entity.ParseScope(string(scope))
	if err != nil {
		return nil, err
	}
	page, size, err = normalizePage(page, size)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		var cached Page
		if e.cache.Load(ctx, scope, page, size, &cached) {
			return &cached, nil
		}
	}

	total, err := e.store.CountAccounts(ctx)
	if err != nil {
		return nil, err
	}
	offset := int64(page-1) * int64(size)
	accounts, err := e.store.TopAccounts(ctx, scope, offset, int64(size))
	if err != nil {
		return nil, err
	}

	result := &Page{
		Scope:   scope,
		Entries: make([]Entry, 0, len(accounts)),
		Pagination: Pagination{
			Page:       page,
			Limit:      size,
			Total:      total,
			TotalPages: (total + int64(size) - 1) / int64(size),
		},
	}
	for i, acc := range accounts {
		result.Entries = append(result.Entries, Entry{
			Rank:           offset + int64(i) + 1,
			WalletAddress:  acc.WalletAddress,
			Score:          acc.Score(scope),
			GamePoints:     acc.GamePoints,
			ReferralPoints: acc.ReferralPoints,
			SocialPoints:   acc.SocialPoints,
			TotalPoints:    acc.TotalPoints(),
			HighScore:      acc.HighScore,
		})
	}

	if e.cache != nil {
		e.cache.Store(ctx, scope, page, size, result)
	}
	e.log.With(
		slog.String("scope", string(scope)),
		slog.Int("page", page),
		slog.Int("size", size),
		slog.Int("entries", len(result.Entries)),
	).Debug("leaderboard page")
	return result, nil
}

func normalizePage(page, size int) (int, int, error) {
	if page < 1 {
		return 0, 0, entity.Errorf(entity.KindInvalidPage, "page must be at least 1, got %d", page)
	}
	if size < 1 {
		return 0, 0, entity.Errorf(entity.KindInvalidPage, "page size must be at least 1, got %d", size)
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if int64(page-1) > math.MaxInt64/int64(size) {
		return 0, 0, entity.Errorf(entity.KindInvalidPage, "page %d is out of range", page)
	}
	return page, size, nil
}
