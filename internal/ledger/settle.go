package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pricelock/ledger-engine/internal/metrics"
	"github.com/pricelock/ledger-engine/internal/model"
	"github.com/pricelock/ledger-engine/internal/payout"
)

// ResolveMarket records a market's outcome from the oracle-observed price.
// The Open→Resolved transition is terminal: there is no re-resolution or
// correction path. Returns the outcome (true when observedPrice reached the
// target).
func (e *Engine) ResolveMarket(ctx context.Context, caller model.AccountID, marketID, observedPrice uint64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkHalted(); err != nil {
		return false, err
	}
	if caller != e.oracle {
		return false, fmt.Errorf("%w: only the active oracle may resolve", ErrUnauthorized)
	}
	if observedPrice == 0 {
		return false, fmt.Errorf("%w: observed price must be positive", ErrInvalidPrice)
	}

	market, err := e.store.GetMarket(ctx, marketID)
	if err != nil {
		return false, translateStoreErr(err, marketID)
	}
	height := e.clk.Height()
	if height <= market.ExpiryHeight {
		return false, fmt.Errorf("%w: market %d expires at height %d, now %d",
			ErrNotExpired, marketID, market.ExpiryHeight, height)
	}
	if market.Resolved {
		return false, fmt.Errorf("%w: market %d", ErrAlreadyResolved, marketID)
	}

	outcome := observedPrice >= market.TargetPrice
	market.Resolved = true
	market.Outcome = &outcome
	market.ResolutionPrice = &observedPrice

	if err := e.store.SetResolved(ctx, market); err != nil {
		return false, err
	}
	e.bumpReputation(caller)

	metrics.MarketsResolved.WithLabelValues(string(market.WinningSide())).Inc()
	slog.Info("market resolved",
		"market", marketID,
		"oracle", caller,
		"observed_price", observedPrice,
		"target_price", market.TargetPrice,
		"outcome", outcome,
	)
	e.publish(Event{Type: EventMarketResolved, MarketID: marketID, Account: caller, Outcome: &outcome})
	return outcome, nil
}

// ClaimWinnings settles the caller's position on a resolved market: stake
// back in full plus the proportional share of the losing pool net of fee.
// Exactly one successful claim per (market, account). Returns the amount
// released from custody.
func (e *Engine) ClaimWinnings(ctx context.Context, caller model.AccountID, marketID uint64) (uint64, error) {
	ctx, err := e.acquire(ctx)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkHalted(); err != nil {
		return 0, err
	}

	market, err := e.store.GetMarket(ctx, marketID)
	if err != nil {
		return 0, translateStoreErr(err, marketID)
	}
	// An unresolved market has nothing to claim against; it surfaces the
	// same way as an absent one.
	if !market.Resolved {
		return 0, fmt.Errorf("%w: market %d not resolved", ErrMarketNotFound, marketID)
	}

	position, err := e.store.GetPosition(ctx, marketID, caller)
	if err != nil {
		return 0, err
	}
	if position.Claimed {
		return 0, fmt.Errorf("%w: market %d account %s", ErrAlreadyClaimed, marketID, caller)
	}

	winning := position.AmountOn(market.WinningSide())
	if winning == 0 {
		return 0, fmt.Errorf("%w: market %d account %s", ErrNoPosition, marketID, caller)
	}

	winningPool, losingPool := market.Pools()
	amount, err := payout.Calculate(winning, winningPool, losingPool)
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, fmt.Errorf("%w: computed payout is zero", ErrInvalidAmount)
	}

	// The credit runs on the marked context, so a transfer-triggered
	// re-entry cannot observe the still-unclaimed position.
	if _, err := e.bank.Credit(ctx, caller, amount); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	position.Claimed = true
	if err := e.store.SetClaimed(ctx, position); err != nil {
		if _, derr := e.bank.Debit(ctx, caller, amount); derr != nil {
			slog.Error("claw-back after failed claim commit failed",
				"account", caller, "amount", amount, "err", derr)
		}
		return 0, err
	}

	metrics.ClaimsTotal.Inc()
	metrics.ClaimValue.Add(float64(amount))
	slog.Info("winnings claimed",
		"market", marketID,
		"account", caller,
		"side", market.WinningSide(),
		"stake", winning,
		"payout", amount,
	)
	e.publish(Event{Type: EventWinningsClaimed, MarketID: marketID, Account: caller, Side: market.WinningSide(), Amount: amount})
	return amount, nil
}
