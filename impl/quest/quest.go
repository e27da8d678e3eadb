// Package quest completes one-time social tasks. Each task is rewarded at
// most once per account, only after its prerequisite, and only when the
// platform verifier confirms it within the configured timeout.
package quest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"beatwise/entity"
	"beatwise/impl/ledger"
	"beatwise/lib/clock"
	"beatwise/lib/sl"
)

const defaultVerifyTimeout = 5 * time.Second

type Store interface {
	AccountByWallet(ctx context.Context, wallet string) (*entity.Account, error)
}

type Ledger interface {
	Mutate(ctx context.Context, wallet string, fn func(acc *entity.Account) error) (*entity.Account, error)
	Credited(category entity.Category, amount int64)
}

type Verifier interface {
	VerifyMembership(ctx context.Context, platformUserID string) (bool, error)
}

type Metrics interface {
	TaskCompleted(kind entity.TaskKind)
	VerificationFailed(platform entity.Platform)
}

type Config struct {
	// Rewards overrides the default reward of a task by kind.
	Rewards       map[string]int64
	VerifyTimeout time.Duration
}

type Completion struct {
	WalletAddress string          `json:"wallet_address"`
	Task          entity.TaskKind `json:"task"`
	Reward        int64           `json:"reward"`
	SocialPoints  int64           `json:"social_points"`
	TotalPoints   int64           `json:"total_points"`
	CompletedAt   time.Time       `json:"completed_at"`
}

type Engine struct {
	store     Store
	ledger    Ledger
	tasks     map[entity.TaskKind]entity.Task
	order     []entity.TaskKind
	verifiers map[entity.Platform]Verifier
	byTask    map[entity.TaskKind]Verifier
	timeout   time.Duration
	clock     clock.Clock
	metrics   Metrics
	log       *slog.Logger
}

func New(store Store, l Ledger, conf Config, c clock.Clock, log *slog.Logger) *Engine {
	if c == nil {
		c = clock.System()
	}
	if conf.VerifyTimeout <= 0 {
		conf.VerifyTimeout = defaultVerifyTimeout
	}
	e := &Engine{
		store:     store,
		ledger:    l,
		tasks:     make(map[entity.TaskKind]entity.Task),
		verifiers: make(map[entity.Platform]Verifier),
		byTask:    make(map[entity.TaskKind]Verifier),
		timeout:   conf.VerifyTimeout,
		clock:     c,
		log:       log.With(sl.Module("quest")),
	}
	for _, task := range entity.DefaultTasks() {
		if reward, ok := conf.Rewards[string(task.Kind)]; ok && reward > 0 {
			task.Reward = reward
		}
		e.tasks[task.Kind] = task
		e.order = append(e.order, task.Kind)
	}
	return e
}

// SetVerifier registers the membership check for a platform. Tasks of a
// platform without a verifier always fail verification.
func (e *Engine) SetVerifier(platform entity.Platform, v Verifier) {
	e.verifiers[platform] = v
}

// SetTaskVerifier overrides the platform verifier for one task, e.g. a
// group join check where the connect task of the same platform needs none.
func (e *Engine) SetTaskVerifier(kind entity.TaskKind, v Verifier) {
	e.byTask[kind] = v
}

func (e *Engine) SetMetrics(m Metrics) {
	e.metrics = m
}

func (e *Engine) Task(kind entity.TaskKind) (entity.Task, error) {
	task, ok := e.tasks[kind]
	if !ok {
		return entity.Task{}, entity.Errorf(entity.KindUnknownTask, "unknown task %q", kind)
	}
	return task, nil
}

// Tasks lists every task with the account's progress, in table order.
func (e *Engine) Tasks(ctx context.Context, wallet string) ([]entity.TaskState, error) {
	acc, err := e.store.AccountByWallet(ctx, entity.NormalizeWallet(wallet))
	if err != nil {
		return nil, err
	}
	states := make([]entity.TaskState, 0, len(e.order))
	for _, kind := range e.order {
		task := e.tasks[kind]
		completed := acc.HasCompleted(kind)
		states = append(states, entity.TaskState{
			Task:      task,
			Completed: completed,
			Available: !completed && (task.Prerequisite == "" || acc.HasCompleted(task.Prerequisite)),
		})
	}
	return states, nil
}

// CompleteSocialTask verifies and rewards one task. The identity, when
// given, replaces the stored profile for the task's platform in the same
// save as the credit.
func (e *Engine) CompleteSocialTask(ctx context.Context, wallet string, kind entity.TaskKind, platformUserID string, identity *entity.Identity) (*Completion, error) {
	task, err := e.Task(kind)
	if err != nil {
		return nil, err
	}
	wallet = entity.NormalizeWallet(wallet)
	log := e.log.With(sl.Wallet(wallet), slog.String("task", string(kind)))

	acc, err := e.store.AccountByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if err = checkTask(acc, task); err != nil {
		return nil, err
	}

	if err = e.verify(ctx, task, platformUserID); err != nil {
		log.With(slog.String("platform_user", platformUserID)).Warn("verification failed", sl.Err(err))
		if e.metrics != nil {
			e.metrics.VerificationFailed(task.Platform)
		}
		return nil, entity.Errorf(entity.KindVerificationFailed, "%s not verified: %s", task.Title, err)
	}

	now := e.clock.Now()
	acc, err = e.ledger.Mutate(ctx, wallet, func(acc *entity.Account) error {
		if err := checkTask(acc, task); err != nil {
			return err
		}
		if acc.CompletedTasks == nil {
			acc.CompletedTasks = make(map[entity.TaskKind]time.Time)
		}
		acc.CompletedTasks[task.Kind] = now
		if identity != nil {
			if acc.Identities == nil {
				acc.Identities = make(map[entity.Platform]entity.Identity)
			}
			acc.Identities[task.Platform] = *identity
		}
		return ledger.ApplyCredit(acc, entity.CategorySocial, task.Reward)
	})
	if err != nil {
		return nil, err
	}

	e.ledger.Credited(entity.CategorySocial, task.Reward)
	if e.metrics != nil {
		e.metrics.TaskCompleted(task.Kind)
	}
	log.With(slog.Int64("reward", task.Reward)).Info("task completed")
	return &Completion{
		WalletAddress: acc.WalletAddress,
		Task:          task.Kind,
		Reward:        task.Reward,
		SocialPoints:  acc.SocialPoints,
		TotalPoints:   acc.TotalPoints(),
		CompletedAt:   now,
	}, nil
}

func checkTask(acc *entity.Account, task entity.Task) error {
	if acc.HasCompleted(task.Kind) {
		return entity.Errorf(entity.KindAlreadyCompleted, "task %s already completed", task.Kind)
	}
	if task.Prerequisite != "" && !acc.HasCompleted(task.Prerequisite) {
		return entity.Errorf(entity.KindPrerequisiteNotMet, "task %s requires %s", task.Kind, task.Prerequisite)
	}
	return nil
}

type verifyResult struct {
	ok  bool
	err error
}

// verify runs the platform check under the timeout. A verifier that never
// returns is abandoned; its result is dropped.
func (e *Engine) verify(ctx context.Context, task entity.Task, platformUserID string) error {
	v, ok := e.byTask[task.Kind]
	if !ok {
		v, ok = e.verifiers[task.Platform]
	}
	if !ok {
		return fmt.Errorf("no verifier for %s", task.Platform)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan verifyResult, 1)
	go func() {
		ok, err := v.VerifyMembership(ctx, platformUserID)
		done <- verifyResult{ok: ok, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return r.err
		}
		if !r.ok {
			return errors.New("membership not confirmed")
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("verifier: %w", ctx.Err())
	}
}
