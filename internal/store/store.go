// Package store defines persistence for markets and positions.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (authoritative in local mode, and for testing).
//
// Both record kinds are append-only: totals grow until resolution freezes
// them, claims flip a flag, and nothing is ever deleted. Multi-record
// commits go through a single call so implementations can apply them
// transactionally.
package store

import (
	"context"
	"errors"

	"github.com/pricelock/ledger-engine/internal/model"
)

// ErrNotFound is returned when a requested market does not exist.
// Positions are never "not found": absent entries read as zero-valued.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface for the ledger.
type Store interface {
	// CreateMarket persists a new market record.
	CreateMarket(ctx context.Context, m *model.Market) error

	// CreateMarkets persists a batch of markets atomically.
	CreateMarkets(ctx context.Context, ms []*model.Market) error

	// GetMarket retrieves a market by id, or ErrNotFound.
	GetMarket(ctx context.Context, id uint64) (*model.Market, error)

	// ListMarkets returns all markets ordered by id.
	ListMarkets(ctx context.Context) ([]model.Market, error)

	// MaxMarketID returns the highest assigned market id, 0 if none.
	// Used to rehydrate the market counter at startup.
	MaxMarketID(ctx context.Context) (uint64, error)

	// GetPosition retrieves the (market, account) position, returning a
	// zero-valued record when no stake has been placed.
	GetPosition(ctx context.Context, marketID uint64, account model.AccountID) (*model.Position, error)

	// CommitBets writes updated market totals and positions atomically.
	CommitBets(ctx context.Context, markets []*model.Market, positions []*model.Position) error

	// SetResolved freezes a market with its outcome and resolution price.
	SetResolved(ctx context.Context, m *model.Market) error

	// SetClaimed marks a position's winnings as claimed.
	SetClaimed(ctx context.Context, p *model.Position) error
}
