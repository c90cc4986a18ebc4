// Package model defines the core domain types shared across the ledger
// engine. All stake amounts are uint64 in the smallest value unit — never
// float64 for money.
package model

// AccountID is a verified account identity supplied by the caller-identity
// substrate. The engine treats it as opaque.
type AccountID string

// Side is the outcome a bettor stakes on.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Valid reports whether s is one of the two supported sides.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Market is a single binary-outcome proposition. Records are append-only:
// totals grow until resolution freezes them, and nothing is ever deleted.
type Market struct {
	ID              uint64    `json:"id" db:"id"`
	Creator         AccountID `json:"creator" db:"creator"`
	Question        string    `json:"question" db:"question"`
	TargetPrice     uint64    `json:"target_price" db:"target_price"`
	ExpiryHeight    uint64    `json:"expiry_height" db:"expiry_height"`
	CreatedHeight   uint64    `json:"created_height" db:"created_height"`
	TotalYes        uint64    `json:"total_yes" db:"total_yes"`
	TotalNo         uint64    `json:"total_no" db:"total_no"`
	Resolved        bool      `json:"resolved" db:"resolved"`
	Outcome         *bool     `json:"outcome,omitempty" db:"outcome"`
	ResolutionPrice *uint64   `json:"resolution_price,omitempty" db:"resolution_price"`
}

// Open reports whether the market still accepts bets at the given height.
func (m *Market) Open(height uint64) bool {
	return !m.Resolved && height <= m.ExpiryHeight
}

// WinningSide returns the side that won a resolved market.
// Only meaningful when Resolved is true.
func (m *Market) WinningSide() Side {
	if m.Outcome != nil && *m.Outcome {
		return SideYes
	}
	return SideNo
}

// Pools returns the winning and losing pools of a resolved market.
func (m *Market) Pools() (winning, losing uint64) {
	if m.WinningSide() == SideYes {
		return m.TotalYes, m.TotalNo
	}
	return m.TotalNo, m.TotalYes
}

// Position is one account's accumulated stake within one market. A position
// conceptually exists with zero amounts for every (market, account) pair;
// stores return this default rather than "not found".
type Position struct {
	MarketID  uint64    `json:"market_id" db:"market_id"`
	Account   AccountID `json:"account" db:"account"`
	YesAmount uint64    `json:"yes_amount" db:"yes_amount"`
	NoAmount  uint64    `json:"no_amount" db:"no_amount"`
	Claimed   bool      `json:"claimed" db:"claimed"`
}

// AmountOn returns the stake held on the given side.
func (p *Position) AmountOn(side Side) uint64 {
	if side == SideYes {
		return p.YesAmount
	}
	return p.NoAmount
}

// Empty reports whether the position carries no stake on either side.
func (p *Position) Empty() bool {
	return p.YesAmount == 0 && p.NoAmount == 0
}

// Reputation tracks per-oracle resolution counts. Decoupled from the single
// active oracle address used for resolution.
type Reputation struct {
	Account               AccountID `json:"account"`
	SuccessfulResolutions uint32    `json:"successful_resolutions"`
	TotalResolutions      uint32    `json:"total_resolutions"`
}
