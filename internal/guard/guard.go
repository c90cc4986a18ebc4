// Package guard implements the cross-cutting checks wrapping every mutating
// ledger operation: the pause flag, the emergency circuit breaker with
// height-based auto-expiry, per-account rate limiting, reentrancy exclusion,
// and input validation.
package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pricelock/ledger-engine/internal/clock"
	"github.com/pricelock/ledger-engine/internal/model"
)

const (
	// EmergencyDuration is how many heights emergency mode stays active
	// before the first subsequent call self-heals it.
	EmergencyDuration = 1440

	// RateWindow is the height span of one rate-limit bucket.
	RateWindow = 10

	// MaxOpsPerWindow caps mutating operations per account per window.
	MaxOpsPerWindow = 5

	// MaxQuestionBytes bounds market question length.
	MaxQuestionBytes = 256
)

var (
	// ErrPaused is returned while the pause flag or emergency mode blocks
	// mutating operations.
	ErrPaused = errors.New("guard: contract paused")

	// ErrRateLimited is returned when an account exhausts its per-window
	// operation quota.
	ErrRateLimited = errors.New("guard: rate limited")

	// ErrReentrancy is returned when a mutating operation is entered while
	// another is still in flight within the same call tree.
	ErrReentrancy = errors.New("guard: reentrant call rejected")

	// ErrAlreadyPaused / ErrNotPaused reject no-op pause transitions.
	ErrAlreadyPaused = errors.New("guard: already paused")
	ErrNotPaused     = errors.New("guard: not paused")

	// ErrInvalidAmount is returned for empty or oversized question text.
	ErrInvalidAmount = errors.New("guard: invalid amount")

	// ErrInvalidPrice is returned for a target price below the floor.
	ErrInvalidPrice = errors.New("guard: invalid price")
)

type rateState struct {
	lastHeight uint64
	ops        uint32
}

// Guard holds the circuit-breaker and rate-limit state for the ledger.
// Construct one per engine instance; never share across engines so tests
// stay independent.
type Guard struct {
	clk clock.Clock

	minTargetPrice uint64

	mu             sync.Mutex
	paused         bool
	emergency      bool
	emergencyStart uint64
	rates          map[model.AccountID]*rateState
}

// New creates a guard bound to the given height clock. minTargetPrice is
// the floor below which ValidatePrice rejects.
func New(clk clock.Clock, minTargetPrice uint64) *Guard {
	return &Guard{
		clk:            clk,
		minTargetPrice: minTargetPrice,
		rates:          make(map[model.AccountID]*rateState),
	}
}

// CheckHalted runs the emergency check then the pause check, in that order.
// When emergency mode has outlived EmergencyDuration, the call clears both
// the emergency flag and the pause flag and succeeds: the first call past
// the window both observes and lifts the freeze.
func (g *Guard) CheckHalted() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.emergency {
		if g.clk.Height()-g.emergencyStart > EmergencyDuration {
			g.emergency = false
			g.paused = false
		} else {
			return ErrPaused
		}
	}
	if g.paused {
		return ErrPaused
	}
	return nil
}

// CheckRateLimit consumes one unit of the account's per-window quota, or
// fails with ErrRateLimited. Quotas are per-account; accounts never contend
// with each other.
func (g *Guard) CheckRateLimit(account model.AccountID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	h := g.clk.Height()
	st, ok := g.rates[account]
	if !ok {
		st = &rateState{}
		g.rates[account] = st
	}

	if h-st.lastHeight >= RateWindow {
		st.lastHeight = h
		st.ops = 1
		return nil
	}
	if st.ops < MaxOpsPerWindow {
		st.ops++
		return nil
	}
	return fmt.Errorf("%w: account %s at height %d", ErrRateLimited, account, h)
}

type exclusiveKey struct{}

// Acquire marks ctx as inside a stake-mutating critical section and
// returns the derived context. A context already carrying the mark is a
// re-entry from the same call tree (a transfer side effect calling back
// into the ledger) and fails with ErrReentrancy. The mark ends with the
// call tree, so it cannot leak on any exit path; independent call trees
// carry independent contexts and never contend.
func (g *Guard) Acquire(ctx context.Context) (context.Context, error) {
	if ctx.Value(exclusiveKey{}) != nil {
		return nil, ErrReentrancy
	}
	return context.WithValue(ctx, exclusiveKey{}, struct{}{}), nil
}

// Pause sets the pause flag. Fails if already paused.
func (g *Guard) Pause() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		return ErrAlreadyPaused
	}
	g.paused = true
	return nil
}

// Unpause clears the pause flag. Fails if not paused.
func (g *Guard) Unpause() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		return ErrNotPaused
	}
	g.paused = false
	return nil
}

// EnableEmergency activates emergency mode and pauses the ledger. The
// freeze self-heals after EmergencyDuration heights.
func (g *Guard) EnableEmergency() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emergency = true
	g.emergencyStart = g.clk.Height()
	g.paused = true
}

// DisableEmergency clears emergency mode and the pause flag.
func (g *Guard) DisableEmergency() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emergency = false
	g.paused = false
}

// IsPaused reports the pause flag.
func (g *Guard) IsPaused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// IsEmergency reports whether emergency mode is active.
func (g *Guard) IsEmergency() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.emergency
}

// ValidateQuestion rejects empty or oversized question text.
func (g *Guard) ValidateQuestion(q string) error {
	if len(q) == 0 {
		return fmt.Errorf("%w: question must be non-empty", ErrInvalidAmount)
	}
	if len(q) > MaxQuestionBytes {
		return fmt.Errorf("%w: question exceeds %d bytes", ErrInvalidAmount, MaxQuestionBytes)
	}
	return nil
}

// ValidatePrice rejects a target price below the configured floor.
func (g *Guard) ValidatePrice(p uint64) error {
	if p < g.minTargetPrice {
		return fmt.Errorf("%w: target price %d below floor %d", ErrInvalidPrice, p, g.minTargetPrice)
	}
	return nil
}
