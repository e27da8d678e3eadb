package ledger

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"beatwise/entity"
	"beatwise/internal/database"
	"beatwise/lib/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallet = "0x00000000000000000000000000000000000000a1"

func newLedger(t *testing.T, conf Config) (*Ledger, *database.Memory) {
	t.Helper()
	store := database.NewMemory()
	require.NoError(t, store.CreateAccount(context.Background(), entity.NewAccount(wallet, "AAAA1111", time.Now())))
	return New(store, conf, logger.Discard()), store
}

// conflictStore fails the first `conflicts` saves with a version conflict.
type conflictStore struct {
	*database.Memory
	conflicts int32
	saves     int32
}

func (s *conflictStore) SaveAccount(ctx context.Context, acc *entity.Account) error {
	n := atomic.AddInt32(&s.saves, 1)
	if n <= s.conflicts {
		return entity.ErrVersionConflict
	}
	return s.Memory.SaveAccount(ctx, acc)
}

func TestCreditCategories(t *testing.T) {
	l, store := newLedger(t, Config{})
	ctx := context.Background()

	total, err := l.Credit(ctx, wallet, entity.CategoryGame, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)

	total, err = l.Credit(ctx, wallet, entity.CategoryReferral, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(30), total)

	total, err = l.Credit(ctx, mixedCase(wallet), entity.CategorySocial, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(35), total)

	acc, err := store.AccountByWallet(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, int64(10), acc.GamePoints)
	assert.Equal(t, int64(20), acc.ReferralPoints)
	assert.Equal(t, int64(5), acc.SocialPoints)
	assert.Equal(t, acc.GamePoints+acc.ReferralPoints+acc.SocialPoints, acc.TotalPoints())
}

// mixedCase returns the wallet in mixed case to exercise normalization.
func mixedCase(w string) string {
	return "  0X" + w[2:] + " "
}

func TestCreditRejectsInvalidInput(t *testing.T) {
	l, store := newLedger(t, Config{})
	ctx := context.Background()

	for _, amount := range []int64{0, -1, -500} {
		_, err := l.Credit(ctx, wallet, entity.CategoryGame, amount)
		assert.ErrorIs(t, err, entity.ErrInvalidAmount, "amount %d", amount)
	}

	_, err := l.Credit(ctx, wallet, entity.Category("airdrop"), 10)
	assert.ErrorIs(t, err, entity.ErrInvalidCategory)

	acc, err := store.AccountByWallet(ctx, wallet)
	require.NoError(t, err)
	assert.Zero(t, acc.TotalPoints())
	assert.Equal(t, int64(1), acc.Version, "rejected credits must not save")
}

func TestCreditUnknownAccount(t *testing.T) {
	l, _ := newLedger(t, Config{})
	_, err := l.Credit(context.Background(), "0x00000000000000000000000000000000000000ff", entity.CategoryGame, 1)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestMutateRetriesVersionConflict(t *testing.T) {
	memory := database.NewMemory()
	require.NoError(t, memory.CreateAccount(context.Background(), entity.NewAccount(wallet, "AAAA1111", time.Now())))
	store := &conflictStore{Memory: memory, conflicts: 2}
	l := New(store, Config{MaxAttempts: 3, RetryDelay: time.Millisecond}, logger.Discard())

	total, err := l.Credit(context.Background(), wallet, entity.CategorySocial, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Equal(t, int32(3), atomic.LoadInt32(&store.saves))
}

func TestMutateConflictExhausted(t *testing.T) {
	memory := database.NewMemory()
	require.NoError(t, memory.CreateAccount(context.Background(), entity.NewAccount(wallet, "AAAA1111", time.Now())))
	store := &conflictStore{Memory: memory, conflicts: 100}
	l := New(store, Config{MaxAttempts: 3}, logger.Discard())

	_, err := l.Credit(context.Background(), wallet, entity.CategorySocial, 7)
	assert.ErrorIs(t, err, entity.ErrConflict)
	assert.NotErrorIs(t, err, entity.ErrVersionConflict)
	assert.Equal(t, int32(3), atomic.LoadInt32(&store.saves))

	acc, err := memory.AccountByWallet(context.Background(), wallet)
	require.NoError(t, err)
	assert.Zero(t, acc.SocialPoints)
}

func TestMutateAbortDoesNotRetry(t *testing.T) {
	memory := database.NewMemory()
	require.NoError(t, memory.CreateAccount(context.Background(), entity.NewAccount(wallet, "AAAA1111", time.Now())))
	store := &conflictStore{Memory: memory}
	l := New(store, Config{MaxAttempts: 3}, logger.Discard())

	calls := 0
	_, err := l.Mutate(context.Background(), wallet, func(acc *entity.Account) error {
		calls++
		return entity.ErrQuotaExceeded
	})
	assert.ErrorIs(t, err, entity.ErrQuotaExceeded)
	assert.Equal(t, 1, calls)
	assert.Zero(t, atomic.LoadInt32(&store.saves))
}

func TestConcurrentCreditsNeverDrift(t *testing.T) {
	l, store := newLedger(t, Config{MaxAttempts: 200})
	ctx := context.Background()

	const workers = 40
	var ok int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			category := []entity.Category{entity.CategoryGame, entity.CategoryReferral, entity.CategorySocial}[i%3]
			if _, err := l.Credit(ctx, wallet, category, 10); err == nil {
				atomic.AddInt64(&ok, 1)
			}
		}(i)
	}
	wg.Wait()

	acc, err := store.AccountByWallet(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, ok*10, acc.TotalPoints())
	assert.Equal(t, acc.GamePoints+acc.ReferralPoints+acc.SocialPoints, acc.TotalPoints())
}

func TestRecordGameResult(t *testing.T) {
	l, _ := newLedger(t, Config{})
	ctx := context.Background()

	res, err := l.RecordGameResult(ctx, wallet, 120)
	require.NoError(t, err)
	assert.True(t, res.IsNewHighScore)
	assert.Equal(t, int64(120), res.HighScore)
	assert.Equal(t, int64(120), res.GamePoints)

	res, err = l.RecordGameResult(ctx, wallet, 80)
	require.NoError(t, err)
	assert.False(t, res.IsNewHighScore)
	assert.Equal(t, int64(120), res.HighScore)
	assert.Equal(t, int64(120), res.PreviousGamePoints)
	assert.Equal(t, int64(200), res.GamePoints)

	_, err = l.RecordGameResult(ctx, wallet, 0)
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)
}

func TestResetGamePointsKeepsHighScore(t *testing.T) {
	l, store := newLedger(t, Config{})
	ctx := context.Background()

	_, err := l.RecordGameResult(ctx, wallet, 300)
	require.NoError(t, err)
	_, err = l.Credit(ctx, wallet, entity.CategorySocial, 50)
	require.NoError(t, err)

	reset, err := l.ResetGamePoints(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, int64(300), reset.PreviousGamePoints)
	assert.Zero(t, reset.GamePoints)
	assert.Equal(t, int64(300), reset.HighScore)
	assert.Equal(t, int64(50), reset.TotalPoints)

	acc, err := store.AccountByWallet(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, int64(300), acc.HighScore)
	assert.Zero(t, acc.GamePoints)
}

func TestCreditRejectsOverflow(t *testing.T) {
	l, store := newLedger(t, Config{})
	ctx := context.Background()

	_, err := l.RecordGameResult(ctx, wallet, math.MaxInt64)
	require.NoError(t, err)

	_, err = l.RecordGameResult(ctx, wallet, math.MaxInt64)
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)
	_, err = l.Credit(ctx, wallet, entity.CategorySocial, 1)
	assert.ErrorIs(t, err, entity.ErrInvalidAmount, "total would overflow")

	acc, err := store.AccountByWallet(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), acc.GamePoints)
	assert.Equal(t, int64(math.MaxInt64), acc.TotalPoints())
	assert.Zero(t, acc.SocialPoints)
}
