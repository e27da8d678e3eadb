package entity

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category is one of the independently mutable point counters.
type Category string

const (
	CategoryGame     Category = "game"
	CategoryReferral Category = "referral"
	CategorySocial   Category = "social"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryGame, CategoryReferral, CategorySocial:
		return true
	}
	return false
}

// Platform is an external social platform an account can link.
type Platform string

const (
	PlatformX        Platform = "x"
	PlatformTelegram Platform = "telegram"
	PlatformDiscord  Platform = "discord"
	PlatformSpotify  Platform = "spotify"
	PlatformEmail    Platform = "email"
)

func (p Platform) IsValid() bool {
	switch p {
	case PlatformX, PlatformTelegram, PlatformDiscord, PlatformSpotify, PlatformEmail:
		return true
	}
	return false
}

// Identity is descriptive profile data received from a platform.
// It is never used to decide rewards and may be overwritten at any time.
type Identity struct {
	ID            string `json:"id" bson:"id" validate:"required"`
	Username      string `json:"username,omitempty" bson:"username"`
	DisplayName   string `json:"display_name,omitempty" bson:"display_name"`
	PhotoURL      string `json:"photo_url,omitempty" bson:"photo_url"`
	Email         string `json:"email,omitempty" bson:"email"`
	EmailVerified bool   `json:"email_verified,omitempty" bson:"email_verified"`
}

// Account is the single document held per wallet address.
// TotalPoints is derived from the three counters and is never stored.
// Version is bumped by the store on every successful save.
type Account struct {
	ID               primitive.ObjectID     `json:"-" bson:"_id,omitempty"`
	WalletAddress    string                 `json:"wallet_address" bson:"wallet_address"`
	GamePoints       int64                  `json:"game_points" bson:"game_points"`
	ReferralPoints   int64                  `json:"referral_points" bson:"referral_points"`
	SocialPoints     int64                  `json:"social_points" bson:"social_points"`
	HighScore        int64                  `json:"high_score" bson:"high_score"`
	DailyGamesPlayed int                    `json:"daily_games_played" bson:"daily_games_played"`
	LastGameDate     *time.Time             `json:"last_game_date" bson:"last_game_date"`
	CompletedTasks   map[TaskKind]time.Time `json:"completed_tasks" bson:"completed_tasks"`
	Identities       map[Platform]Identity  `json:"identities" bson:"identities"`
	InviteCode       string                 `json:"invite_code" bson:"invite_code"`
	InvitedBy        string                 `json:"invited_by" bson:"invited_by"`
	InvitedUsers     []string               `json:"invited_users" bson:"invited_users"`
	IsWhitelisted    bool                   `json:"is_whitelisted" bson:"is_whitelisted"`
	Airdropped       int64                  `json:"airdropped" bson:"airdropped"`
	Version          int64                  `json:"-" bson:"version"`
	CreatedAt        time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at" bson:"updated_at"`
}

// NewAccount returns a zeroed account for a normalized wallet address.
func NewAccount(wallet, inviteCode string, now time.Time) *Account {
	return &Account{
		WalletAddress:  NormalizeWallet(wallet),
		CompletedTasks: make(map[TaskKind]time.Time),
		Identities:     make(map[Platform]Identity),
		InviteCode:     inviteCode,
		InvitedUsers:   []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NormalizeWallet is the lookup form of a wallet address.
func NormalizeWallet(wallet string) string {
	return strings.ToLower(strings.TrimSpace(wallet))
}

func (a *Account) TotalPoints() int64 {
	return a.GamePoints + a.ReferralPoints + a.SocialPoints
}

// Points returns the counter for a category.
func (a *Account) Points(c Category) int64 {
	switch c {
	case CategoryGame:
		return a.GamePoints
	case CategoryReferral:
		return a.ReferralPoints
	case CategorySocial:
		return a.SocialPoints
	}
	return 0
}

// Score returns the value an account is ranked by within a scope.
func (a *Account) Score(s Scope) int64 {
	switch s {
	case ScopeGame:
		return a.GamePoints
	case ScopeReferral:
		return a.ReferralPoints
	case ScopeSocial:
		return a.SocialPoints
	case ScopeHighScore:
		return a.HighScore
	}
	return a.TotalPoints()
}

func (a *Account) HasCompleted(kind TaskKind) bool {
	_, ok := a.CompletedTasks[kind]
	return ok
}

func (a *Account) HasInvited(wallet string) bool {
	for _, w := range a.InvitedUsers {
		if w == wallet {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so a stored document never shares maps or
// slices with a caller.
func (a *Account) Clone() *Account {
	c := *a
	if a.LastGameDate != nil {
		d := *a.LastGameDate
		c.LastGameDate = &d
	}
	c.CompletedTasks = make(map[TaskKind]time.Time, len(a.CompletedTasks))
	for k, v := range a.CompletedTasks {
		c.CompletedTasks[k] = v
	}
	c.Identities = make(map[Platform]Identity, len(a.Identities))
	for k, v := range a.Identities {
		c.Identities[k] = v
	}
	c.InvitedUsers = append([]string{}, a.InvitedUsers...)
	return &c
}

// AccountView is the public JSON form, with the derived total included.
type AccountView struct {
	*Account
	TotalPoints int64 `json:"total_points"`
}

func (a *Account) View() AccountView {
	return AccountView{Account: a, TotalPoints: a.TotalPoints()}
}
