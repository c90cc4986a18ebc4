package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pricelock/ledger-engine/internal/model"
	"github.com/pricelock/ledger-engine/internal/payout"
)

// Market returns the market record, or ErrMarketNotFound.
func (e *Engine) Market(ctx context.Context, id uint64) (*model.Market, error) {
	m, err := e.store.GetMarket(ctx, id)
	if err != nil {
		return nil, translateStoreErr(err, id)
	}
	return m, nil
}

// Markets lists all markets, optionally filtered by status
// ("open" or "resolved").
func (e *Engine) Markets(ctx context.Context, status string) ([]model.Market, error) {
	markets, err := e.store.ListMarkets(ctx)
	if err != nil {
		return nil, err
	}
	if markets == nil {
		markets = []model.Market{}
	}
	switch status {
	case "":
		return markets, nil
	case "open", "resolved":
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidAmount, status)
	}

	filtered := []model.Market{}
	for _, m := range markets {
		if m.Resolved == (status == "resolved") {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// Position returns the account's position on a market. Absent positions
// read as zero-valued; only an absent market is an error.
func (e *Engine) Position(ctx context.Context, marketID uint64, account model.AccountID) (*model.Position, error) {
	if _, err := e.store.GetMarket(ctx, marketID); err != nil {
		return nil, translateStoreErr(err, marketID)
	}
	return e.store.GetPosition(ctx, marketID, account)
}

// MarketCounter returns the id of the most recently created market.
func (e *Engine) MarketCounter() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counter
}

// Paused reports the pause flag.
func (e *Engine) Paused() bool { return e.guard.IsPaused() }

// Emergency reports whether emergency mode is active.
func (e *Engine) Emergency() bool { return e.guard.IsEmergency() }

// TrustedOracles returns a copy of the trusted-oracle set.
func (e *Engine) TrustedOracles() []model.AccountID {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.AccountID, len(e.trusted))
	copy(out, e.trusted)
	return out
}

// OracleReputation returns resolution counts for an oracle, zero-valued if
// the account never resolved anything.
func (e *Engine) OracleReputation(account model.AccountID) model.Reputation {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rep, ok := e.reputation[account]; ok {
		return *rep
	}
	return model.Reputation{Account: account}
}

// StateSummary is the global-state view exposed to callers.
type StateSummary struct {
	MarketCounter uint64          `json:"market_counter"`
	Paused        bool            `json:"paused"`
	Emergency     bool            `json:"emergency"`
	Owner         model.AccountID `json:"owner"`
	Oracle        model.AccountID `json:"oracle"`
	FeeRecipient  model.AccountID `json:"fee_recipient"`
}

// State returns the global-state summary.
func (e *Engine) State() StateSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return StateSummary{
		MarketCounter: e.counter,
		Paused:        e.guard.IsPaused(),
		Emergency:     e.guard.IsEmergency(),
		Owner:         e.owner,
		Oracle:        e.oracle,
		FeeRecipient:  e.feeRecipient,
	}
}

// PayoutPreview answers "what would I get": the settled amount on a
// resolved market, or both hypothetical outcomes on an open one.
type PayoutPreview struct {
	MarketID uint64          `json:"market_id"`
	Account  model.AccountID `json:"account"`
	Resolved bool            `json:"resolved"`
	Claimed  bool            `json:"claimed"`
	Payout   uint64          `json:"payout,omitempty"`
	IfYes    uint64          `json:"if_yes,omitempty"`
	IfNo     uint64          `json:"if_no,omitempty"`
}

// PotentialPayout computes a speculative settlement for the account's
// position using the same pure calculator as actual claims.
func (e *Engine) PotentialPayout(ctx context.Context, marketID uint64, account model.AccountID) (*PayoutPreview, error) {
	market, err := e.store.GetMarket(ctx, marketID)
	if err != nil {
		return nil, translateStoreErr(err, marketID)
	}
	position, err := e.store.GetPosition(ctx, marketID, account)
	if err != nil {
		return nil, err
	}

	preview := &PayoutPreview{
		MarketID: marketID,
		Account:  account,
		Resolved: market.Resolved,
		Claimed:  position.Claimed,
	}
	if market.Resolved {
		winningPool, losingPool := market.Pools()
		preview.Payout, err = payout.Calculate(position.AmountOn(market.WinningSide()), winningPool, losingPool)
		if err != nil {
			return nil, err
		}
		return preview, nil
	}

	if preview.IfYes, err = payout.Calculate(position.YesAmount, market.TotalYes, market.TotalNo); err != nil {
		return nil, err
	}
	if preview.IfNo, err = payout.Calculate(position.NoAmount, market.TotalNo, market.TotalYes); err != nil {
		return nil, err
	}
	return preview, nil
}

// OddsView reports the stake-implied probability of each outcome. Display
// math only; ledger arithmetic never goes through decimals.
type OddsView struct {
	MarketID       uint64          `json:"market_id"`
	YesProbability decimal.Decimal `json:"yes_probability"`
	NoProbability  decimal.Decimal `json:"no_probability"`
	FeeRate        decimal.Decimal `json:"fee_rate"`
}

// Odds derives implied probabilities from the current pools. An empty
// market reads as even odds.
func (e *Engine) Odds(ctx context.Context, marketID uint64) (*OddsView, error) {
	market, err := e.store.GetMarket(ctx, marketID)
	if err != nil {
		return nil, translateStoreErr(err, marketID)
	}

	feeRate := decimal.NewFromInt(payout.FeeBps).Div(decimal.NewFromInt(10_000))
	view := &OddsView{MarketID: marketID, FeeRate: feeRate}

	yes := decimal.NewFromUint64(market.TotalYes)
	no := decimal.NewFromUint64(market.TotalNo)
	total := yes.Add(no)
	if total.IsZero() {
		half := decimal.NewFromFloat(0.5)
		view.YesProbability = half
		view.NoProbability = half
		return view, nil
	}

	view.YesProbability = yes.Div(total).Round(6)
	view.NoProbability = no.Div(total).Round(6)
	return view, nil
}
