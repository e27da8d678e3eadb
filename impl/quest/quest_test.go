package quest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"beatwise/entity"
	"beatwise/impl/ledger"
	"beatwise/internal/database"
	"beatwise/internal/verifier"
	"beatwise/lib/clock"
	"beatwise/lib/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallet = "0x00000000000000000000000000000000000000d4"

type counters struct {
	mu        sync.Mutex
	completed map[entity.TaskKind]int
	failed    map[entity.Platform]int
}

func (c *counters) TaskCompleted(kind entity.TaskKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed[kind]++
}

func (c *counters) VerificationFailed(platform entity.Platform) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed[platform]++
}

func newEngine(t *testing.T, conf Config) (*Engine, *database.Memory, *counters) {
	t.Helper()
	store := database.NewMemory()
	require.NoError(t, store.CreateAccount(context.Background(), entity.NewAccount(wallet, "QUEST001", time.Now())))
	l := ledger.New(store, ledger.Config{}, logger.Discard())
	c := &clock.Fixed{T: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)}
	e := New(store, l, conf, c, logger.Discard())
	for _, p := range []entity.Platform{entity.PlatformX, entity.PlatformTelegram, entity.PlatformDiscord, entity.PlatformSpotify, entity.PlatformEmail} {
		e.SetVerifier(p, verifier.Trusted{})
	}
	m := &counters{completed: map[entity.TaskKind]int{}, failed: map[entity.Platform]int{}}
	e.SetMetrics(m)
	return e, store, m
}

func TestCompleteTaskCreditsOnce(t *testing.T) {
	e, store, m := newEngine(t, Config{})
	ctx := context.Background()

	res, err := e.CompleteSocialTask(ctx, wallet, entity.TaskXConnect, "x-1", &entity.Identity{ID: "x-1", Username: "beat"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Reward)
	assert.Equal(t, int64(100), res.SocialPoints)
	assert.Equal(t, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), res.CompletedAt)

	_, err = e.CompleteSocialTask(ctx, wallet, entity.TaskXConnect, "x-1", nil)
	assert.ErrorIs(t, err, entity.ErrAlreadyCompleted)

	acc, err := store.AccountByWallet(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, int64(100), acc.SocialPoints)
	assert.True(t, acc.HasCompleted(entity.TaskXConnect))
	assert.Equal(t, "beat", acc.Identities[entity.PlatformX].Username)
	assert.Equal(t, 1, m.completed[entity.TaskXConnect])
}

func TestPrerequisite(t *testing.T) {
	e, store, _ := newEngine(t, Config{})
	ctx := context.Background()

	_, err := e.CompleteSocialTask(ctx, wallet, entity.TaskXFollow, "x-1", nil)
	assert.ErrorIs(t, err, entity.ErrPrerequisiteNotMet)

	_, err = e.CompleteSocialTask(ctx, wallet, entity.TaskXConnect, "x-1", nil)
	require.NoError(t, err)
	res, err := e.CompleteSocialTask(ctx, wallet, entity.TaskXFollow, "x-1", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(200), res.Reward)

	acc, err := store.AccountByWallet(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, int64(300), acc.SocialPoints)
}

func TestUnknownTask(t *testing.T) {
	e, _, _ := newEngine(t, Config{})
	_, err := e.CompleteSocialTask(context.Background(), wallet, entity.TaskKind("tiktok_follow"), "1", nil)
	assert.ErrorIs(t, err, entity.ErrUnknownTask)
}

func TestVerificationFailureLeavesStateUntouched(t *testing.T) {
	e, store, m := newEngine(t, Config{})
	ctx := context.Background()

	_, err := e.CompleteSocialTask(ctx, wallet, entity.TaskTelegramConnect, "42", nil)
	require.NoError(t, err)

	cases := map[string]verifier.Func{
		"not a member": func(ctx context.Context, id string) (bool, error) { return false, nil },
		"error":        func(ctx context.Context, id string) (bool, error) { return false, errors.New("telegram down") },
	}
	for name, v := range cases {
		e.SetVerifier(entity.PlatformTelegram, v)
		_, err = e.CompleteSocialTask(ctx, wallet, entity.TaskTelegramJoinGroup, "42", nil)
		assert.ErrorIs(t, err, entity.ErrVerificationFailed, name)
	}

	acc, err := store.AccountByWallet(ctx, wallet)
	require.NoError(t, err)
	assert.False(t, acc.HasCompleted(entity.TaskTelegramJoinGroup))
	assert.Equal(t, int64(100), acc.SocialPoints)
	assert.Equal(t, 2, m.failed[entity.PlatformTelegram])
}

func TestVerifierTimeout(t *testing.T) {
	e, store, _ := newEngine(t, Config{VerifyTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	_, err := e.CompleteSocialTask(ctx, wallet, entity.TaskDiscordConnect, "d-1", nil)
	require.NoError(t, err)

	release := make(chan struct{})
	defer close(release)
	e.SetVerifier(entity.PlatformDiscord, verifier.Func(func(ctx context.Context, id string) (bool, error) {
		<-release
		return true, nil
	}))

	start := time.Now()
	_, err = e.CompleteSocialTask(ctx, wallet, entity.TaskDiscordJoinServer, "d-1", nil)
	assert.ErrorIs(t, err, entity.ErrVerificationFailed)
	assert.Less(t, time.Since(start), 2*time.Second)

	acc, err := store.AccountByWallet(ctx, wallet)
	require.NoError(t, err)
	assert.False(t, acc.HasCompleted(entity.TaskDiscordJoinServer))
}

func TestMissingVerifier(t *testing.T) {
	store := database.NewMemory()
	require.NoError(t, store.CreateAccount(context.Background(), entity.NewAccount(wallet, "QUEST001", time.Now())))
	e := New(store, ledger.New(store, ledger.Config{}, logger.Discard()), Config{}, nil, logger.Discard())

	_, err := e.CompleteSocialTask(context.Background(), wallet, entity.TaskSpotifyConnect, "s-1", nil)
	assert.ErrorIs(t, err, entity.ErrVerificationFailed)
}

func TestRewardOverride(t *testing.T) {
	e, _, _ := newEngine(t, Config{Rewards: map[string]int64{"spotify_connect": 75, "x_connect": -1}})

	task, err := e.Task(entity.TaskSpotifyConnect)
	require.NoError(t, err)
	assert.Equal(t, int64(75), task.Reward)
	task, err = e.Task(entity.TaskXConnect)
	require.NoError(t, err)
	assert.Equal(t, int64(100), task.Reward)
}

func TestParallelCompletionCreditsOnce(t *testing.T) {
	e, store, _ := newEngine(t, Config{})
	ctx := context.Background()

	const workers = 16
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.CompleteSocialTask(ctx, wallet, entity.TaskSpotifyConnect, "s-1", nil)
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range errs {
		if err == nil {
			success++
			continue
		}
		assert.ErrorIs(t, err, entity.ErrAlreadyCompleted)
	}
	assert.Equal(t, 1, success)

	acc, err := store.AccountByWallet(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, int64(50), acc.SocialPoints)
}

func TestTasksListing(t *testing.T) {
	e, _, _ := newEngine(t, Config{})
	ctx := context.Background()

	_, err := e.CompleteSocialTask(ctx, wallet, entity.TaskXConnect, "x-1", nil)
	require.NoError(t, err)

	states, err := e.Tasks(ctx, wallet)
	require.NoError(t, err)
	require.Len(t, states, len(entity.DefaultTasks()))

	byKind := make(map[entity.TaskKind]entity.TaskState)
	for _, s := range states {
		byKind[s.Kind] = s
	}
	assert.True(t, byKind[entity.TaskXConnect].Completed)
	assert.False(t, byKind[entity.TaskXConnect].Available)
	assert.True(t, byKind[entity.TaskXFollow].Available)
	assert.False(t, byKind[entity.TaskTelegramJoinGroup].Available)
	assert.True(t, byKind[entity.TaskTelegramConnect].Available)
	assert.True(t, byKind[entity.TaskEmailConnect].Available)
	assert.Equal(t, entity.TaskXConnect, states[0].Kind)
	assert.Equal(t, entity.TaskEmailConnect, states[len(states)-1].Kind)
}

func TestTaskVerifierOverridesPlatform(t *testing.T) {
	e, _, _ := newEngine(t, Config{})
	ctx := context.Background()

	var joinChecks int
	e.SetTaskVerifier(entity.TaskDiscordJoinServer, verifier.Func(func(ctx context.Context, id string) (bool, error) {
		joinChecks++
		return id == "77", nil
	}))

	_, err := e.CompleteSocialTask(ctx, wallet, entity.TaskDiscordConnect, "78", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, joinChecks)

	_, err = e.CompleteSocialTask(ctx, wallet, entity.TaskDiscordJoinServer, "78", nil)
	assert.ErrorIs(t, err, entity.ErrVerificationFailed)
	_, err = e.CompleteSocialTask(ctx, wallet, entity.TaskDiscordJoinServer, "77", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, joinChecks)
}

func TestEmailConnectStoresIdentity(t *testing.T) {
	e, store, _ := newEngine(t, Config{})
	ctx := context.Background()

	task, err := e.Task(entity.TaskEmailConnect)
	require.NoError(t, err)
	assert.Equal(t, entity.PlatformEmail, task.Platform)
	assert.Empty(t, task.Prerequisite)

	google := &entity.Identity{ID: "g-123", DisplayName: "Beat Maker", Email: "beat@example.com", EmailVerified: true}
	res, err := e.CompleteSocialTask(ctx, wallet, entity.TaskEmailConnect, "g-123", google)
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Reward)

	acc, err := store.AccountByWallet(ctx, wallet)
	require.NoError(t, err)
	assert.True(t, acc.HasCompleted(entity.TaskEmailConnect))
	assert.Equal(t, "beat@example.com", acc.Identities[entity.PlatformEmail].Email)
	assert.True(t, acc.Identities[entity.PlatformEmail].EmailVerified)

	_, err = e.CompleteSocialTask(ctx, wallet, entity.TaskEmailConnect, "g-123", nil)
	assert.ErrorIs(t, err, entity.ErrAlreadyCompleted)
}
