// Package quota limits how many games an account may start per UTC day.
package quota

import (
	"context"
	"log/slog"
	"time"

	"beatwise/entity"
	"beatwise/lib/clock"
	"beatwise/lib/sl"
)

const MaxGamesPerDay = 5

type Store interface {
	AccountByWallet(ctx context.Context, wallet string) (*entity.Account, error)
}

type Mutator interface {
	Mutate(ctx context.Context, wallet string, fn func(acc *entity.Account) error) (*entity.Account, error)
}

type Metrics interface {
	GamePlayed()
}

type Status struct {
	WalletAddress string     `json:"wallet_address"`
	CanPlay       bool       `json:"can_play"`
	Played        int        `json:"played"`
	Remaining     int        `json:"remaining"`
	Max           int        `json:"max"`
	LastGameDate  *time.Time `json:"last_game_date"`
}

type Tracker struct {
	store   Store
	ledger  Mutator
	clock   clock.Clock
	metrics Metrics
	log     *slog.Logger
}

func New(store Store, ledger Mutator, c clock.Clock, log *slog.Logger) *Tracker {
	if c == nil {
		c = clock.System()
	}
	return &Tracker{
		store:  store,
		ledger: ledger,
		clock:  c,
		log:    log.With(sl.Module("quota")),
	}
}

func (t *Tracker) SetMetrics(m Metrics) {
	t.metrics = m
}

// CanPlay reports the quota for today. The daily reset is applied to a
// copy only; nothing is written.
func (t *Tracker) CanPlay(ctx context.Context, wallet string) (*Status, error) {
	acc, err := t.store.AccountByWallet(ctx, entity.NormalizeWallet(wallet))
	if err != nil {
		return nil, err
	}
	resetIfNewDay(acc, clock.Today(t.clock))
	return status(acc), nil
}

// RecordPlay counts one game against today's quota.
func (t *Tracker) RecordPlay(ctx context.Context, wallet string) (*Status, error) {
	today := clock.Today(t.clock)
	acc, err := t.ledger.Mutate(ctx, wallet, func(acc *entity.Account) error {
		resetIfNewDay(acc, today)
		if acc.DailyGamesPlayed >= MaxGamesPerDay {
			return entity.ErrQuotaExceeded
		}
		acc.DailyGamesPlayed++
		return nil
	})
	if err != nil {
		return nil, err
	}
	if t.metrics != nil {
		t.metrics.GamePlayed()
	}
	t.log.With(
		sl.Wallet(acc.WalletAddress),
		slog.Int("played", acc.DailyGamesPlayed),
	).Debug("game play recorded")
	return status(acc), nil
}

// resetIfNewDay zeroes the counter when the last game was on an earlier
// day, or never happened.
func resetIfNewDay(acc *entity.Account, today time.Time) {
	if acc.LastGameDate == nil || clock.Day(*acc.LastGameDate).Before(today) {
		acc.DailyGamesPlayed = 0
		acc.LastGameDate = &today
	}
}

func status(acc *entity.Account) *Status {
	played := acc.DailyGamesPlayed
	remaining := MaxGamesPerDay - played
	if remaining < 0 {
		remaining = 0
	}
	return &Status{
		WalletAddress: acc.WalletAddress,
		CanPlay:       remaining > 0,
		Played:        played,
		Remaining:     remaining,
		Max:           MaxGamesPerDay,
		LastGameDate:  acc.LastGameDate,
	}
}
