package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"rifa/internal/raffle"
	pkgerrors "rifa/pkg/domain-errors"
)

// Memory is the in-process raffle store used by unit tests and local
// development.
type Memory struct {
	mu      sync.RWMutex
	raffles map[uuid.UUID]raffle.Raffle
	byShort map[string]uuid.UUID
}

func NewMemory() *Memory {
	return &Memory{
		raffles: make(map[uuid.UUID]raffle.Raffle),
		byShort: make(map[string]uuid.UUID),
	}
}

func (m *Memory) Insert(_ context.Context, r raffle.Raffle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byShort[r.ShortID]; exists {
		return pkgerrors.Newf(pkgerrors.CodeConflict, "short id %q already in use", r.ShortID)
	}
	m.raffles[r.ID] = r
	m.byShort[r.ShortID] = r.ID
	return nil
}

func (m *Memory) Update(_ context.Context, r raffle.Raffle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.raffles[r.ID]; !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "raffle not found")
	}
	m.raffles[r.ID] = r
	return nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (raffle.Raffle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.raffles[id]
	if !ok {
		return raffle.Raffle{}, pkgerrors.New(pkgerrors.CodeNotFound, "raffle not found")
	}
	return r, nil
}

func (m *Memory) GetByShortID(_ context.Context, shortID string) (raffle.Raffle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byShort[shortID]
	if !ok {
		return raffle.Raffle{}, pkgerrors.New(pkgerrors.CodeNotFound, "raffle not found")
	}
	return m.raffles[id], nil
}

func (m *Memory) List(_ context.Context) ([]raffle.Raffle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]raffle.Raffle, 0, len(m.raffles))
	for _, r := range m.raffles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (m *Memory) ShortIDExists(_ context.Context, shortID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byShort[shortID]
	return ok, nil
}

// Snapshot clones the store state for memory transaction runners.
func (m *Memory) Snapshot() map[uuid.UUID]raffle.Raffle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[uuid.UUID]raffle.Raffle, len(m.raffles))
	for id, r := range m.raffles {
		snap[id] = r
	}
	return snap
}

// Restore replaces the store state with a snapshot.
func (m *Memory) Restore(snap map[uuid.UUID]raffle.Raffle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raffles = make(map[uuid.UUID]raffle.Raffle, len(snap))
	m.byShort = make(map[string]uuid.UUID, len(snap))
	for id, r := range snap {
		m.raffles[id] = r
		m.byShort[r.ShortID] = id
	}
}
