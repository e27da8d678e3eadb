package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"beatwise/entity"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is a process-local account store with the same versioning and
// ordering rules as MongoDB. Used when mongo is disabled, and by tests.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]*entity.Account
	codes    map[string]string
	order    map[string]int64
	seq      int64
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]*entity.Account),
		codes:    make(map[string]string),
		order:    make(map[string]int64),
	}
}

func (m *Memory) AccountByWallet(_ context.Context, wallet string) (*entity.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[entity.NormalizeWallet(wallet)]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return acc.Clone(), nil
}

func (m *Memory) AccountByInviteCode(_ context.Context, code string) (*entity.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wallet, ok := m.codes[entity.NormalizeInviteCode(code)]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return m.accounts[wallet].Clone(), nil
}

func (m *Memory) CreateAccount(_ context.Context, acc *entity.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[acc.WalletAddress]; ok {
		return entity.Errorf(entity.KindDuplicate, "duplicate wallet_address")
	}
	if acc.InviteCode != "" {
		if _, ok := m.codes[acc.InviteCode]; ok {
			return entity.Errorf(entity.KindDuplicate, "duplicate invite_code")
		}
	}
	if acc.ID.IsZero() {
		acc.ID = primitive.NewObjectID()
	}
	acc.Version = 1
	m.accounts[acc.WalletAddress] = acc.Clone()
	if acc.InviteCode != "" {
		m.codes[acc.InviteCode] = acc.WalletAddress
	}
	m.seq++
	m.order[acc.WalletAddress] = m.seq
	return nil
}

func (m *Memory) SaveAccount(_ context.Context, acc *entity.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.accounts[acc.WalletAddress]
	if !ok || stored.Version != acc.Version {
		return entity.ErrVersionConflict
	}
	acc.Version++
	acc.UpdatedAt = time.Now().UTC()
	if stored.InviteCode != acc.InviteCode {
		delete(m.codes, stored.InviteCode)
		if acc.InviteCode != "" {
			m.codes[acc.InviteCode] = acc.WalletAddress
		}
	}
	m.accounts[acc.WalletAddress] = acc.Clone()
	return nil
}

func (m *Memory) CountAccounts(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.accounts)), nil
}

func (m *Memory) CountAbove(_ context.Context, scope entity.Scope, score int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, acc := range m.accounts {
		if acc.Score(scope) > score {
			n++
		}
	}
	return n, nil
}

func (m *Memory) TopAccounts(_ context.Context, scope entity.Scope, skip, limit int64) ([]*entity.Account, error) {
	if skip < 0 || limit < 1 {
		return nil, entity.Errorf(entity.KindInvalidPage, "invalid window skip=%d limit=%d", skip, limit)
	}
	m.mu.RLock()
	all := make([]*entity.Account, 0, len(m.accounts))
	for _, acc := range m.accounts {
		all = append(all, acc.Clone())
	}
	order := make(map[string]int64, len(m.order))
	for k, v := range m.order {
		order[k] = v
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		si, sj := all[i].Score(scope), all[j].Score(scope)
		if si != sj {
			return si > sj
		}
		return order[all[i].WalletAddress] < order[all[j].WalletAddress]
	})

	if skip >= int64(len(all)) {
		return []*entity.Account{}, nil
	}
	end := skip + limit
	if end > int64(len(all)) {
		end = int64(len(all))
	}
	return all[skip:end], nil
}
