package ledger

import "github.com/pricelock/ledger-engine/internal/model"

// Event types published after successful mutations.
const (
	EventMarketCreated   = "market_created"
	EventBetPlaced       = "bet_placed"
	EventMarketResolved  = "market_resolved"
	EventWinningsClaimed = "winnings_claimed"
)

// Event describes one committed ledger mutation.
type Event struct {
	Type     string          `json:"type"`
	MarketID uint64          `json:"market_id"`
	Account  model.AccountID `json:"account,omitempty"`
	Side     model.Side      `json:"side,omitempty"`
	Amount   uint64          `json:"amount,omitempty"`
	Outcome  *bool           `json:"outcome,omitempty"`
}

// EventSink receives events after commit. Publish must not block;
// the WebSocket hub drops on a full buffer.
type EventSink interface {
	Publish(Event)
}
