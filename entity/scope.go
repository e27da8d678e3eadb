package entity

import "strings"

// Scope selects the score a leaderboard is ordered by.
type Scope string

const (
	ScopeGame      Scope = "game"
	ScopeReferral  Scope = "referral"
	ScopeSocial    Scope = "social"
	ScopeTotal     Scope = "total"
	ScopeHighScore Scope = "high_score"
)

var allScopes = []Scope{
	ScopeGame,
	ScopeReferral,
	ScopeSocial,
	ScopeTotal,
	ScopeHighScore,
}

func AllScopes() []Scope {
	result := make([]Scope, len(allScopes))
	copy(result, allScopes)
	return result
}

func ParseScope(s string) (Scope, error) {
	scope := Scope(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range allScopes {
		if scope == valid {
			return scope, nil
		}
	}
	return "", Errorf(KindInvalidScope, "invalid scope %q: use game, referral, social, total or high_score", s)
}
