package referral

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"beatwise/entity"
	"beatwise/impl/ledger"
	"beatwise/internal/database"
	"beatwise/lib/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	walletA = "0x000000000000000000000000000000000000000a"
	walletB = "0x000000000000000000000000000000000000000b"
	walletC = "0x000000000000000000000000000000000000000c"
	codeA   = "AAAAAAAA"
	codeB   = "BBBBBBBB"
	codeC   = "CCCCCCCC"
)

// flakyLedger fails the next Mutate on one wallet.
type flakyLedger struct {
	*ledger.Ledger
	failWallet string
}

func (f *flakyLedger) Mutate(ctx context.Context, wallet string, fn func(acc *entity.Account) error) (*entity.Account, error) {
	if f.failWallet != "" && entity.NormalizeWallet(wallet) == f.failWallet {
		f.failWallet = ""
		return nil, errors.New("store unavailable")
	}
	return f.Ledger.Mutate(ctx, wallet, fn)
}

func newService(t *testing.T) (*Service, *flakyLedger, *database.Memory) {
	t.Helper()
	store := database.NewMemory()
	ctx := context.Background()
	for wallet, code := range map[string]string{walletA: codeA, walletB: codeB, walletC: codeC} {
		require.NoError(t, store.CreateAccount(ctx, entity.NewAccount(wallet, code, time.Now())))
	}
	fl := &flakyLedger{Ledger: ledger.New(store, ledger.Config{}, logger.Discard())}
	return New(store, fl, 0, logger.Discard()), fl, store
}

func TestApplyReferral(t *testing.T) {
	s, _, store := newService(t)
	ctx := context.Background()

	res, err := s.ApplyReferral(ctx, walletA, " bbbbbbbb ")
	require.NoError(t, err)
	assert.Equal(t, walletB, res.InvitedBy)
	assert.Equal(t, DefaultReward, res.Reward)

	a, err := store.AccountByWallet(ctx, walletA)
	require.NoError(t, err)
	assert.Equal(t, walletB, a.InvitedBy)
	assert.Zero(t, a.ReferralPoints)

	b, err := store.AccountByWallet(ctx, walletB)
	require.NoError(t, err)
	assert.Equal(t, []string{walletA}, b.InvitedUsers)
	assert.Equal(t, DefaultReward, b.ReferralPoints)
}

func TestSecondReferralRejected(t *testing.T) {
	s, _, store := newService(t)
	ctx := context.Background()

	_, err := s.ApplyReferral(ctx, walletA, codeB)
	require.NoError(t, err)

	_, err = s.ApplyReferral(ctx, walletA, codeC)
	assert.ErrorIs(t, err, entity.ErrAlreadyReferred)
	_, err = s.ApplyReferral(ctx, walletA, codeB)
	assert.ErrorIs(t, err, entity.ErrAlreadyReferred)

	a, err := store.AccountByWallet(ctx, walletA)
	require.NoError(t, err)
	assert.Equal(t, walletB, a.InvitedBy)

	b, err := store.AccountByWallet(ctx, walletB)
	require.NoError(t, err)
	assert.Equal(t, []string{walletA}, b.InvitedUsers)
	assert.Equal(t, DefaultReward, b.ReferralPoints)

	c, err := store.AccountByWallet(ctx, walletC)
	require.NoError(t, err)
	assert.Empty(t, c.InvitedUsers)
	assert.Zero(t, c.ReferralPoints)
}

func TestSelfReferral(t *testing.T) {
	s, _, store := newService(t)
	_, err := s.ApplyReferral(context.Background(), walletA, codeA)
	assert.ErrorIs(t, err, entity.ErrSelfReferral)

	a, err := store.AccountByWallet(context.Background(), walletA)
	require.NoError(t, err)
	assert.Empty(t, a.InvitedBy)
}

func TestInvalidCode(t *testing.T) {
	s, _, _ := newService(t)
	_, err := s.ApplyReferral(context.Background(), walletA, "ZZZZZZZZ")
	assert.ErrorIs(t, err, entity.ErrInvalidCode)
	_, err = s.ApplyReferral(context.Background(), walletA, "  ")
	assert.ErrorIs(t, err, entity.ErrInvalidCode)
}

func TestReferralResumesAfterPartialFailure(t *testing.T) {
	s, fl, store := newService(t)
	ctx := context.Background()

	fl.failWallet = walletB
	_, err := s.ApplyReferral(ctx, walletA, codeB)
	require.ErrorIs(t, err, entity.ErrReferralIncomplete)

	a, err := store.AccountByWallet(ctx, walletA)
	require.NoError(t, err)
	assert.Equal(t, walletB, a.InvitedBy)
	b, err := store.AccountByWallet(ctx, walletB)
	require.NoError(t, err)
	assert.Empty(t, b.InvitedUsers)

	res, err := s.ApplyReferral(ctx, walletA, codeB)
	require.NoError(t, err)
	assert.True(t, res.Resumed)
	assert.Equal(t, DefaultReward, res.Reward)

	b, err = store.AccountByWallet(ctx, walletB)
	require.NoError(t, err)
	assert.Equal(t, []string{walletA}, b.InvitedUsers)
	assert.Equal(t, DefaultReward, b.ReferralPoints)

	_, err = s.ApplyReferral(ctx, walletA, codeB)
	assert.ErrorIs(t, err, entity.ErrAlreadyReferred)
}

func TestResumeWithOtherCodeFinishesButRejects(t *testing.T) {
	s, fl, store := newService(t)
	ctx := context.Background()

	fl.failWallet = walletB
	_, err := s.ApplyReferral(ctx, walletA, codeB)
	require.ErrorIs(t, err, entity.ErrReferralIncomplete)

	_, err = s.ApplyReferral(ctx, walletA, codeC)
	assert.ErrorIs(t, err, entity.ErrAlreadyReferred)

	b, err := store.AccountByWallet(ctx, walletB)
	require.NoError(t, err)
	assert.Equal(t, []string{walletA}, b.InvitedUsers)
	assert.Equal(t, DefaultReward, b.ReferralPoints)
}

func TestInfo(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	_, err := s.ApplyReferral(ctx, walletA, codeB)
	require.NoError(t, err)
	_, err = s.ApplyReferral(ctx, walletC, codeB)
	require.NoError(t, err)

	info, err := s.Info(ctx, walletB)
	require.NoError(t, err)
	assert.Equal(t, codeB, info.InviteCode)
	assert.Equal(t, 2, info.InvitedCount)
	assert.Equal(t, []string{walletA, walletC}, info.InvitedUsers)
	assert.Equal(t, 2*DefaultReward, info.ReferralPoints)
	assert.Equal(t, 2*DefaultReward, info.TotalPoints)
}

func TestConcurrentReferralsCreditOnce(t *testing.T) {
	store := database.NewMemory()
	ctx := context.Background()
	for wallet, code := range map[string]string{walletA: codeA, walletB: codeB, walletC: codeC} {
		require.NoError(t, store.CreateAccount(ctx, entity.NewAccount(wallet, code, time.Now())))
	}
	s := New(store, ledger.New(store, ledger.Config{MaxAttempts: 200}, logger.Discard()), 0, logger.Discard())

	const callers = 10
	results := make([]*Result, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		code := codeB
		if i%2 == 1 {
			code = codeC
		}
		wg.Add(1)
		go func(i int, code string) {
			defer wg.Done()
			results[i], errs[i] = s.ApplyReferral(ctx, walletA, code)
		}(i, code)
	}
	wg.Wait()

	var rewarded int64
	for i, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, entity.ErrAlreadyReferred)
			continue
		}
		rewarded += results[i].Reward
	}
	assert.Equal(t, DefaultReward, rewarded)

	a, err := store.AccountByWallet(ctx, walletA)
	require.NoError(t, err)
	require.Contains(t, []string{walletB, walletC}, a.InvitedBy)

	b, err := store.AccountByWallet(ctx, walletB)
	require.NoError(t, err)
	c, err := store.AccountByWallet(ctx, walletC)
	require.NoError(t, err)
	assert.Equal(t, DefaultReward, b.ReferralPoints+c.ReferralPoints)

	winner := b
	if a.InvitedBy == walletC {
		winner = c
	}
	assert.Equal(t, []string{walletA}, winner.InvitedUsers)
	assert.Equal(t, DefaultReward, winner.ReferralPoints)
}
