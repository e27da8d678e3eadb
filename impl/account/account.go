package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"beatwise/entity"
	"beatwise/lib/clock"
	"beatwise/lib/sl"
	"beatwise/lib/validate"
)

const inviteCodeAttempts = 5

type Store interface {
	AccountByWallet(ctx context.Context, wallet string) (*entity.Account, error)
	CreateAccount(ctx context.Context, acc *entity.Account) error
}

type Mutator interface {
	Mutate(ctx context.Context, wallet string, fn func(acc *entity.Account) error) (*entity.Account, error)
}

type Service struct {
	store  Store
	ledger Mutator
	clock  clock.Clock
	log    *slog.Logger
}

func New(store Store, ledger Mutator, c clock.Clock, log *slog.Logger) *Service {
	if c == nil {
		c = clock.System()
	}
	return &Service{
		store:  store,
		ledger: ledger,
		clock:  c,
		log:    log.With(sl.Module("account")),
	}
}

func (s *Service) Get(ctx context.Context, wallet string) (*entity.Account, error) {
	if !validate.IsWallet(wallet) {
		return nil, entity.ErrInvalidAddress
	}
	return s.store.AccountByWallet(ctx, entity.NormalizeWallet(wallet))
}

// FindOrCreate returns the account of a wallet, creating it on first use.
// Concurrent first calls for one wallet all return the same document: the
// losers of the insert race read the winner's.
func (s *Service) FindOrCreate(ctx context.Context, wallet string) (*entity.Account, bool, error) {
	if !validate.IsWallet(wallet) {
		return nil, false, entity.ErrInvalidAddress
	}
	wallet = entity.NormalizeWallet(wallet)

	acc, err := s.store.AccountByWallet(ctx, wallet)
	if err == nil {
		return acc, false, nil
	}
	if !errors.Is(err, entity.ErrNotFound) {
		return nil, false, err
	}

	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		code, err := entity.NewInviteCode()
		if err != nil {
			return nil, false, err
		}
		acc = entity.NewAccount(wallet, code, s.clock.Now())
		err = s.store.CreateAccount(ctx, acc)
		if err == nil {
			s.log.With(sl.Wallet(wallet), slog.String("code", code)).Info("account created")
			return acc, true, nil
		}
		if !errors.Is(err, entity.ErrDuplicate) {
			return nil, false, err
		}
		if !strings.Contains(err.Error(), "invite_code") {
			acc, err = s.store.AccountByWallet(ctx, wallet)
			if err != nil {
				return nil, false, err
			}
			return acc, false, nil
		}
		s.log.With(sl.Wallet(wallet), slog.String("code", code)).Debug("invite code collision")
	}
	s.log.With(sl.Wallet(wallet)).Error("invite code attempts exhausted")
	return nil, false, entity.ErrConflict
}

// LinkIdentity stores the profile a platform reported for a wallet,
// creating the account if this is its first contact. No points are awarded.
func (s *Service) LinkIdentity(ctx context.Context, wallet string, platform entity.Platform, identity entity.Identity) (*entity.Account, error) {
	if !platform.IsValid() {
		return nil, entity.Errorf(entity.KindInvalidPlatform, "unsupported platform %q", platform)
	}
	if err := validate.Struct(identity); err != nil {
		return nil, entity.Errorf(entity.KindInvalidRequest, "identity: %s", err)
	}
	if _, _, err := s.FindOrCreate(ctx, wallet); err != nil {
		return nil, err
	}
	acc, err := s.ledger.Mutate(ctx, wallet, func(acc *entity.Account) error {
		if acc.Identities == nil {
			acc.Identities = make(map[entity.Platform]entity.Identity)
		}
		acc.Identities[platform] = identity
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.With(
		sl.Wallet(acc.WalletAddress),
		slog.String("platform", string(platform)),
		slog.String("platform_id", identity.ID),
	).Info("identity linked")
	return acc, nil
}
