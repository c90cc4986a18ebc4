package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pricelock/ledger-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateMarket(ctx context.Context, m *model.Market) error {
	if err := s.primary.CreateMarket(ctx, m); err != nil {
		return err
	}
	s.cacheMarket(ctx, m)
	return nil
}

func (s *CachedStore) CreateMarkets(ctx context.Context, ms []*model.Market) error {
	if err := s.primary.CreateMarkets(ctx, ms); err != nil {
		return err
	}
	for _, m := range ms {
		s.cacheMarket(ctx, m)
	}
	return nil
}

func (s *CachedStore) CommitBets(ctx context.Context, markets []*model.Market, positions []*model.Position) error {
	if err := s.primary.CommitBets(ctx, markets, positions); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	for _, m := range markets {
		s.rdb.Del(ctx, marketKey(m.ID))
	}
	for _, p := range positions {
		s.rdb.Del(ctx, positionKey(p.MarketID, p.Account))
	}
	return nil
}

func (s *CachedStore) SetResolved(ctx context.Context, m *model.Market) error {
	if err := s.primary.SetResolved(ctx, m); err != nil {
		return err
	}
	s.rdb.Del(ctx, marketKey(m.ID))
	return nil
}

func (s *CachedStore) SetClaimed(ctx context.Context, p *model.Position) error {
	if err := s.primary.SetClaimed(ctx, p); err != nil {
		return err
	}
	s.rdb.Del(ctx, positionKey(p.MarketID, p.Account))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetMarket(ctx context.Context, id uint64) (*model.Market, error) {
	data, err := s.rdb.Get(ctx, marketKey(id)).Bytes()
	if err == nil {
		var m model.Market
		if json.Unmarshal(data, &m) == nil {
			return &m, nil
		}
	}

	m, err := s.primary.GetMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheMarket(ctx, m)
	return m, nil
}

func (s *CachedStore) GetPosition(ctx context.Context, marketID uint64, account model.AccountID) (*model.Position, error) {
	data, err := s.rdb.Get(ctx, positionKey(marketID, account)).Bytes()
	if err == nil {
		var p model.Position
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	p, err := s.primary.GetPosition(ctx, marketID, account)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, positionKey(marketID, account), data, s.ttl)
	}
	return p, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	return s.primary.ListMarkets(ctx)
}

func (s *CachedStore) MaxMarketID(ctx context.Context) (uint64, error) {
	return s.primary.MaxMarketID(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) cacheMarket(ctx context.Context, m *model.Market) {
	if data, err := json.Marshal(m); err == nil {
		s.rdb.Set(ctx, marketKey(m.ID), data, s.ttl)
	}
}

func marketKey(id uint64) string { return fmt.Sprintf("market:%d", id) }

func positionKey(marketID uint64, account model.AccountID) string {
	return fmt.Sprintf("position:%d:%s", marketID, account)
}
