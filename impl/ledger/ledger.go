// Package ledger owns every point mutation. All writes are
// read-modify-write cycles against one account document, saved with a
// version check and retried on conflict.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"beatwise/entity"
	"beatwise/lib/sl"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

const defaultMaxAttempts = 3

type Store interface {
	AccountByWallet(ctx context.Context, wallet string) (*entity.Account, error)
	SaveAccount(ctx context.Context, acc *entity.Account) error
}

type Metrics interface {
	Credited(category entity.Category, amount int64)
	Conflict()
}

type Config struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

type Ledger struct {
	store    Store
	executor failsafe.Executor[*entity.Account]
	metrics  Metrics
	log      *slog.Logger
}

func New(store Store, conf Config, log *slog.Logger) *Ledger {
	if store == nil {
		panic("ledger store is nil")
	}
	if conf.MaxAttempts < 1 {
		conf.MaxAttempts = defaultMaxAttempts
	}

	builder := retrypolicy.NewBuilder[*entity.Account]().
		HandleIf(func(_ *entity.Account, err error) bool {
			return errors.Is(err, entity.ErrVersionConflict)
		}).
		WithMaxRetries(conf.MaxAttempts - 1)
	if conf.RetryDelay > 0 {
		builder = builder.WithBackoff(conf.RetryDelay, 8*conf.RetryDelay).WithJitterFactor(0.1)
	}

	return &Ledger{
		store:    store,
		executor: failsafe.With[*entity.Account](builder.Build()),
		log:      log.With(sl.Module("ledger")),
	}
}

func (l *Ledger) SetMetrics(m Metrics) {
	l.metrics = m
}

// Mutate loads the account, applies fn and saves the result as one
// version-checked write. An error from fn aborts without saving. Version
// conflicts are retried; when attempts run out ErrConflict is returned.
func (l *Ledger) Mutate(ctx context.Context, wallet string, fn func(acc *entity.Account) error) (*entity.Account, error) {
	wallet = entity.NormalizeWallet(wallet)
	var lastErr error

	acc, err := l.executor.WithContext(ctx).Get(func() (*entity.Account, error) {
		acc, err := l.store.AccountByWallet(ctx, wallet)
		if err != nil {
			lastErr = err
			return nil, err
		}
		if err = fn(acc); err != nil {
			lastErr = err
			return nil, err
		}
		if err = l.store.SaveAccount(ctx, acc); err != nil {
			if errors.Is(err, entity.ErrVersionConflict) && l.metrics != nil {
				l.metrics.Conflict()
			}
			lastErr = err
			return nil, err
		}
		lastErr = nil
		return acc, nil
	})
	if err != nil {
		if errors.Is(lastErr, entity.ErrVersionConflict) {
			l.log.With(sl.Wallet(wallet)).Warn("version conflict retries exhausted")
			return nil, entity.ErrConflict
		}
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return acc, nil
}

// Credit adds amount to one counter and returns the new total.
func (l *Ledger) Credit(ctx context.Context, wallet string, category entity.Category, amount int64) (int64, error) {
	if err := checkCredit(category, amount); err != nil {
		return 0, err
	}
	acc, err := l.Mutate(ctx, wallet, func(acc *entity.Account) error {
		return ApplyCredit(acc, category, amount)
	})
	if err != nil {
		return 0, err
	}
	l.Credited(category, amount)
	l.log.With(
		sl.Wallet(acc.WalletAddress),
		slog.String("category", string(category)),
		slog.Int64("amount", amount),
		slog.Int64("total", acc.TotalPoints()),
	).Info("points credited")
	return acc.TotalPoints(), nil
}

// Credited records a credit applied through Mutate by another component.
func (l *Ledger) Credited(category entity.Category, amount int64) {
	if l.metrics != nil {
		l.metrics.Credited(category, amount)
	}
}

// ApplyCredit is the in-memory half of Credit, for use inside Mutate so a
// credit and other field changes land in the same save.
func ApplyCredit(acc *entity.Account, category entity.Category, amount int64) error {
	if err := checkCredit(category, amount); err != nil {
		return err
	}
	if acc.Points(category) > math.MaxInt64-amount || acc.TotalPoints() > math.MaxInt64-amount {
		return entity.Errorf(entity.KindInvalidAmount, "amount %d overflows the %s balance", amount, category)
	}
	switch category {
	case entity.CategoryGame:
		acc.GamePoints += amount
	case entity.CategoryReferral:
		acc.ReferralPoints += amount
	case entity.CategorySocial:
		acc.SocialPoints += amount
	}
	return nil
}

func checkCredit(category entity.Category, amount int64) error {
	if !category.IsValid() {
		return entity.Errorf(entity.KindInvalidCategory, "invalid point category %q: use game, referral or social", category)
	}
	if amount <= 0 {
		return entity.Errorf(entity.KindInvalidAmount, "amount must be a positive integer, got %d", amount)
	}
	return nil
}
