package auth

import (
	"context"
	"fmt"
	"log/slog"

	"beatwise/entity"
	"beatwise/lib/clock"
	"beatwise/lib/sl"
	"beatwise/lib/validate"

	"github.com/google/uuid"
)

type Accounts interface {
	FindOrCreate(ctx context.Context, wallet string) (*entity.Account, bool, error)
}

type Message struct {
	WalletAddress string `json:"wallet_address"`
	Message       string `json:"message"`
	Nonce         string `json:"nonce"`
	Timestamp     int64  `json:"timestamp"`
}

type Session struct {
	Account   entity.AccountView `json:"account"`
	IsNewUser bool               `json:"is_new_user"`
}

type Auth struct {
	accounts Accounts
	clock    clock.Clock
	log      *slog.Logger
}

func New(accounts Accounts, c clock.Clock, log *slog.Logger) *Auth {
	if c == nil {
		c = clock.System()
	}
	return &Auth{
		accounts: accounts,
		clock:    c,
		log:      log.With(sl.Module("auth")),
	}
}

// AuthMessage returns the text a wallet signs to log in.
func (a *Auth) AuthMessage(wallet string) (*Message, error) {
	if !validate.IsWallet(wallet) {
		return nil, entity.ErrInvalidAddress
	}
	wallet = entity.NormalizeWallet(wallet)
	nonce := uuid.NewString()
	ts := a.clock.Now().UnixMilli()
	return &Message{
		WalletAddress: wallet,
		Message: fmt.Sprintf("Sign this message to authenticate with BeatWise.\n\nWallet: %s\nTimestamp: %d\nNonce: %s\n\nThis signature will be used to verify your wallet ownership.",
			wallet, ts, nonce),
		Nonce:     nonce,
		Timestamp: ts,
	}, nil
}

// Authenticate checks the signature and returns the wallet's account,
// creating it on first login.
func (a *Auth) Authenticate(ctx context.Context, wallet, message, signature string) (*Session, error) {
	if !validate.IsWallet(wallet) {
		return nil, entity.ErrInvalidAddress
	}
	log := a.log.With(sl.Wallet(entity.NormalizeWallet(wallet)))

	if !VerifySignature(wallet, message, signature) {
		log.Warn("signature rejected")
		return nil, entity.ErrInvalidSignature
	}

	acc, created, err := a.accounts.FindOrCreate(ctx, wallet)
	if err != nil {
		log.Error("find or create account", sl.Err(err))
		return nil, err
	}
	log.With(slog.Bool("new", created)).Info("wallet authenticated")
	return &Session{
		Account:   acc.View(),
		IsNewUser: created,
	}, nil
}
