// Package payout computes settlement amounts for resolved markets. It is
// pure: no state, no side effects, callable for actual claims and for
// speculative queries alike.
//
// Winners get their stake back in full plus a proportional share of the
// losing pool net of the platform fee. Integer floor division throughout;
// cumulative rounding loss stays inside custody, as does the fee itself
// (there is deliberately no fee sweep).
package payout

import (
	"github.com/pricelock/ledger-engine/internal/safemath"
)

const (
	// FeeBps is the platform fee on the losing pool, in basis points.
	FeeBps = 500

	// bpsDenominator converts basis points to a fraction.
	bpsDenominator = 10_000
)

// Calculate maps (stake on the winning side, winning pool, losing pool) to
// the settlement amount. Returns 0 when the winning pool or the stake is
// zero.
func Calculate(winningAmount, winningPool, losingPool uint64) (uint64, error) {
	if winningPool == 0 || winningAmount == 0 {
		return 0, nil
	}

	fee, err := safemath.MulDiv(losingPool, FeeBps, bpsDenominator)
	if err != nil {
		return 0, err
	}
	distributable, err := safemath.Sub(losingPool, fee)
	if err != nil {
		return 0, err
	}
	share, err := safemath.MulDiv(winningAmount, distributable, winningPool)
	if err != nil {
		return 0, err
	}
	return safemath.Add(winningAmount, share)
}

// Fee returns the platform fee withheld from a losing pool.
func Fee(losingPool uint64) (uint64, error) {
	return safemath.MulDiv(losingPool, FeeBps, bpsDenominator)
}
