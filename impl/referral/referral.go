// Package referral links a referred account to the owner of an invite code
// and credits the referrer once per distinct referred account.
//
// A referral is two saves: the referred account records invited_by first,
// then the referrer appends the wallet and is credited. When the second save
// fails the first is kept, and a retry of the same request finishes it.
package referral

import (
	"context"
	"errors"
	"log/slog"

	"beatwise/entity"
	"beatwise/impl/ledger"
	"beatwise/lib/sl"
)

const DefaultReward int64 = 100

type Store interface {
	AccountByWallet(ctx context.Context, wallet string) (*entity.Account, error)
	AccountByInviteCode(ctx context.Context, code string) (*entity.Account, error)
}

type Ledger interface {
	Mutate(ctx context.Context, wallet string, fn func(acc *entity.Account) error) (*entity.Account, error)
	Credited(category entity.Category, amount int64)
}

type Metrics interface {
	Referred()
}

type Result struct {
	WalletAddress  string `json:"wallet_address"`
	InvitedBy      string `json:"invited_by"`
	Reward         int64  `json:"reward"`
	ReferrerPoints int64  `json:"referrer_points"`
	Resumed        bool   `json:"resumed,omitempty"`
}

type Info struct {
	WalletAddress  string   `json:"wallet_address"`
	InviteCode     string   `json:"invite_code"`
	InvitedBy      string   `json:"invited_by"`
	InvitedCount   int      `json:"invited_count"`
	InvitedUsers   []string `json:"invited_users"`
	ReferralPoints int64    `json:"referral_points"`
	TotalPoints    int64    `json:"total_points"`
}

type Service struct {
	store   Store
	ledger  Ledger
	reward  int64
	metrics Metrics
	log     *slog.Logger
}

func New(store Store, l Ledger, reward int64, log *slog.Logger) *Service {
	if reward <= 0 {
		reward = DefaultReward
	}
	return &Service{
		store:  store,
		ledger: l,
		reward: reward,
		log:    log.With(sl.Module("referral")),
	}
}

func (s *Service) SetMetrics(m Metrics) {
	s.metrics = m
}

func (s *Service) ApplyReferral(ctx context.Context, referredWallet, code string) (*Result, error) {
	referredWallet = entity.NormalizeWallet(referredWallet)
	code = entity.NormalizeInviteCode(code)
	log := s.log.With(sl.Wallet(referredWallet), slog.String("code", code))

	referred, err := s.store.AccountByWallet(ctx, referredWallet)
	if err != nil {
		return nil, err
	}
	if referred.InvitedBy != "" {
		return s.resume(ctx, referred, code)
	}

	if code == "" {
		return nil, entity.ErrInvalidCode
	}
	referrer, err := s.store.AccountByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, entity.Errorf(entity.KindInvalidCode, "no account owns referral code %s", code)
		}
		return nil, err
	}
	if referrer.WalletAddress == referredWallet {
		return nil, entity.ErrSelfReferral
	}

	_, err = s.ledger.Mutate(ctx, referredWallet, func(acc *entity.Account) error {
		if acc.InvitedBy != "" {
			return entity.ErrAlreadyReferred
		}
		acc.InvitedBy = referrer.WalletAddress
		return nil
	})
	if err != nil {
		return nil, err
	}

	result, err := s.creditReferrer(ctx, referrer.WalletAddress, referredWallet)
	if err != nil {
		log.With(slog.String("referrer", referrer.WalletAddress)).Error("referrer update failed", sl.Err(err))
		return nil, entity.ErrReferralIncomplete
	}
	log.With(slog.String("referrer", referrer.WalletAddress)).Info("referral applied")
	return result, nil
}

// resume handles an account whose invited_by is already set. If the
// recorded referrer has not listed the account yet, that step is finished.
// Success is reported only when the code is the recorded referrer's and
// the referrer step was still pending.
func (s *Service) resume(ctx context.Context, referred *entity.Account, code string) (*Result, error) {
	referrer, err := s.store.AccountByWallet(ctx, referred.InvitedBy)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, entity.ErrAlreadyReferred
		}
		return nil, err
	}
	if referrer.HasInvited(referred.WalletAddress) {
		return nil, entity.ErrAlreadyReferred
	}

	result, err := s.creditReferrer(ctx, referrer.WalletAddress, referred.WalletAddress)
	if err != nil {
		s.log.With(
			sl.Wallet(referred.WalletAddress),
			slog.String("referrer", referrer.WalletAddress),
		).Error("referral resume failed", sl.Err(err))
		return nil, entity.ErrReferralIncomplete
	}
	s.log.With(
		sl.Wallet(referred.WalletAddress),
		slog.String("referrer", referrer.WalletAddress),
	).Info("referral resumed")

	if code != referrer.InviteCode {
		return nil, entity.ErrAlreadyReferred
	}
	result.Resumed = true
	return result, nil
}

// creditReferrer appends the referred wallet and credits the reward in one
// save; a wallet already listed earns nothing.
func (s *Service) creditReferrer(ctx context.Context, referrerWallet, referredWallet string) (*Result, error) {
	credited := false
	acc, err := s.ledger.Mutate(ctx, referrerWallet, func(acc *entity.Account) error {
		credited = false
		if acc.HasInvited(referredWallet) {
			return nil
		}
		acc.InvitedUsers = append(acc.InvitedUsers, referredWallet)
		credited = true
		return ledger.ApplyCredit(acc, entity.CategoryReferral, s.reward)
	})
	if err != nil {
		return nil, err
	}
	result := &Result{
		WalletAddress:  referredWallet,
		InvitedBy:      referrerWallet,
		ReferrerPoints: acc.ReferralPoints,
	}
	if credited {
		result.Reward = s.reward
		s.ledger.Credited(entity.CategoryReferral, s.reward)
		if s.metrics != nil {
			s.metrics.Referred()
		}
	}
	return result, nil
}

func (s *Service) Info(ctx context.Context, wallet string) (*Info, error) {
	acc, err := s.store.AccountByWallet(ctx, entity.NormalizeWallet(wallet))
	if err != nil {
		return nil, err
	}
	invited := acc.InvitedUsers
	if invited == nil {
		invited = []string{}
	}
	return &Info{
		WalletAddress:  acc.WalletAddress,
		InviteCode:     acc.InviteCode,
		InvitedBy:      acc.InvitedBy,
		InvitedCount:   len(invited),
		InvitedUsers:   invited,
		ReferralPoints: acc.ReferralPoints,
		TotalPoints:    acc.TotalPoints(),
	}, nil
}
