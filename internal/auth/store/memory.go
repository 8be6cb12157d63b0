package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"rifa/internal/auth"
	pkgerrors "rifa/pkg/domain-errors"
)

// MemoryUsers is the in-process user store.
type MemoryUsers struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]auth.User
	byName map[string]uuid.UUID
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		byID:   make(map[uuid.UUID]auth.User),
		byName: make(map[string]uuid.UUID),
	}
}

func (m *MemoryUsers) Insert(_ context.Context, u auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[u.Username]; exists {
		return pkgerrors.Newf(pkgerrors.CodeConflict, "username %q already taken", u.Username)
	}
	m.byID[u.ID] = u
	m.byName[u.Username] = u.ID
	return nil
}

func (m *MemoryUsers) GetByUsername(_ context.Context, username string) (auth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[username]
	if !ok {
		return auth.User{}, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return m.byID[id], nil
}

func (m *MemoryUsers) GetByID(_ context.Context, id uuid.UUID) (auth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return auth.User{}, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return u, nil
}

// MemoryRevocations tracks revoked token ids in process.
type MemoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{revoked: make(map[string]time.Time)}
}

func (m *MemoryRevocations) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = time.Now().Add(ttl)
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.revoked[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		delete(m.revoked, jti)
		return false, nil
	}
	return true, nil
}
