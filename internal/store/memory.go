package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pricelock/ledger-engine/internal/model"
)

type posKey struct {
	marketID uint64
	account  model.AccountID
}

// MemoryStore implements Store with in-memory maps. Authoritative in local
// single-node mode and used throughout the tests.
type MemoryStore struct {
	mu        sync.RWMutex
	markets   map[uint64]*model.Market
	positions map[posKey]*model.Position
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		markets:   make(map[uint64]*model.Market),
		positions: make(map[posKey]*model.Position),
	}
}

func (s *MemoryStore) CreateMarket(_ context.Context, m *model.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(m)
}

func (s *MemoryStore) CreateMarkets(_ context.Context, ms []*model.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range ms {
		if _, ok := s.markets[m.ID]; ok {
			return fmt.Errorf("market %d already exists", m.ID)
		}
	}
	for _, m := range ms {
		if err := s.createLocked(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) createLocked(m *model.Market) error {
	if _, ok := s.markets[m.ID]; ok {
		return fmt.Errorf("market %d already exists", m.ID)
	}
	// Store a copy to avoid external mutation.
	cp := *m
	s.markets[m.ID] = &cp
	return nil
}

func (s *MemoryStore) GetMarket(_ context.Context, id uint64) (*model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[id]
	if !ok {
		return nil, fmt.Errorf("%w: market %d", ErrNotFound, id)
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) ListMarkets(_ context.Context) ([]model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	markets := make([]model.Market, 0, len(s.markets))
	for _, m := range s.markets {
		markets = append(markets, *m)
	}
	sort.Slice(markets, func(i, j int) bool { return markets[i].ID < markets[j].ID })
	return markets, nil
}

func (s *MemoryStore) MaxMarketID(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max uint64
	for id := range s.markets {
		if id > max {
			max = id
		}
	}
	return max, nil
}

func (s *MemoryStore) GetPosition(_ context.Context, marketID uint64, account model.AccountID) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.positions[posKey{marketID, account}]; ok {
		cp := *p
		return &cp, nil
	}
	// Absent positions read as zero-valued, unclaimed.
	return &model.Position{MarketID: marketID, Account: account}, nil
}

func (s *MemoryStore) CommitBets(_ context.Context, markets []*model.Market, positions []*model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range markets {
		if _, ok := s.markets[m.ID]; !ok {
			return fmt.Errorf("%w: market %d", ErrNotFound, m.ID)
		}
	}
	for _, m := range markets {
		cp := *m
		s.markets[m.ID] = &cp
	}
	for _, p := range positions {
		cp := *p
		s.positions[posKey{p.MarketID, p.Account}] = &cp
	}
	return nil
}

func (s *MemoryStore) SetResolved(_ context.Context, m *model.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.markets[m.ID]; !ok {
		return fmt.Errorf("%w: market %d", ErrNotFound, m.ID)
	}
	cp := *m
	s.markets[m.ID] = &cp
	return nil
}

func (s *MemoryStore) SetClaimed(_ context.Context, p *model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.positions[posKey{p.MarketID, p.Account}] = &cp
	return nil
}
