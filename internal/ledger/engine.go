// Package ledger implements the prediction-market ledger: market registry,
// position ledger, betting engine, oracle-gated resolution, and winner
// settlement. Every mutating operation enters through the guard layer and
// orders all fallible steps (validation, checked arithmetic, custody
// transfer) before its first write, so an abort never leaves partial state.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pricelock/ledger-engine/internal/clock"
	"github.com/pricelock/ledger-engine/internal/custody"
	"github.com/pricelock/ledger-engine/internal/guard"
	"github.com/pricelock/ledger-engine/internal/metrics"
	"github.com/pricelock/ledger-engine/internal/model"
	"github.com/pricelock/ledger-engine/internal/store"
)

const (
	// MinBet and MaxBet bound a single stake.
	MinBet uint64 = 1_000
	MaxBet uint64 = 1_000_000_000_000

	// MinTargetPrice is the floor for market target prices.
	MinTargetPrice uint64 = 1_000

	// MaxBatchCreate and MaxBatchBets cap batch operation sizes.
	MaxBatchCreate = 10
	MaxBatchBets   = 20

	// MaxTrustedOracles caps the trusted-oracle set.
	MaxTrustedOracles = 10
)

// Config holds the privileged accounts fixed at deployment.
type Config struct {
	Owner        model.AccountID
	Oracle       model.AccountID
	FeeRecipient model.AccountID
}

// Engine owns all ledger state and serializes mutating calls, mirroring a
// host that runs each call atomically to completion. Construct independent
// engines for independent ledgers; nothing is ambient.
type Engine struct {
	store  store.Store
	bank   custody.Bank
	clk    clock.Clock
	guard  *guard.Guard
	events EventSink // optional

	mu           sync.Mutex
	counter      uint64
	owner        model.AccountID
	oracle       model.AccountID
	feeRecipient model.AccountID
	trusted      []model.AccountID
	reputation   map[model.AccountID]*model.Reputation
}

// NewEngine creates an engine over the given collaborators and rehydrates
// the market counter from the store. Pass nil for events if no sink is
// wired.
func NewEngine(ctx context.Context, st store.Store, bank custody.Bank, clk clock.Clock, g *guard.Guard, cfg Config, events EventSink) (*Engine, error) {
	counter, err := st.MaxMarketID(ctx)
	if err != nil {
		return nil, fmt.Errorf("rehydrate market counter: %w", err)
	}
	return &Engine{
		store:        st,
		bank:         bank,
		clk:          clk,
		guard:        g,
		events:       events,
		counter:      counter,
		owner:        cfg.Owner,
		oracle:       cfg.Oracle,
		feeRecipient: cfg.FeeRecipient,
		reputation:   make(map[model.AccountID]*model.Reputation),
	}, nil
}

// checkHalted wraps the guard's pause/emergency check with rejection
// accounting.
func (e *Engine) checkHalted() error {
	if err := e.guard.CheckHalted(); err != nil {
		metrics.GuardRejections.WithLabelValues("paused").Inc()
		return err
	}
	return nil
}

func (e *Engine) checkRateLimit(account model.AccountID) error {
	if err := e.guard.CheckRateLimit(account); err != nil {
		metrics.GuardRejections.WithLabelValues("rate_limited").Inc()
		return err
	}
	return nil
}

// acquire marks ctx as inside a stake-mutating section. It must run before
// e.mu is taken: a transfer callback re-entering the engine arrives on the
// marked context and is rejected here, instead of deadlocking on the mutex
// the outer call still holds.
func (e *Engine) acquire(ctx context.Context) (context.Context, error) {
	ctx, err := e.guard.Acquire(ctx)
	if err != nil {
		metrics.GuardRejections.WithLabelValues("reentrancy").Inc()
		return nil, err
	}
	return ctx, nil
}

func (e *Engine) publish(evt Event) {
	if e.events != nil {
		e.events.Publish(evt)
	}
}

func (e *Engine) requireOwner(caller model.AccountID) error {
	if caller != e.owner {
		return fmt.Errorf("%w: owner-only operation", ErrUnauthorized)
	}
	return nil
}

// --- Owner controls ---

// Pause blocks all mutating operations until Unpause. Owner only.
func (e *Engine) Pause(caller model.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if err := e.guard.Pause(); err != nil {
		return err
	}
	slog.Info("ledger paused", "by", caller)
	return nil
}

// Unpause lifts a pause set by Pause. Owner only.
func (e *Engine) Unpause(caller model.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if err := e.guard.Unpause(); err != nil {
		return err
	}
	slog.Info("ledger unpaused", "by", caller)
	return nil
}

// EnableEmergency freezes the ledger; the freeze self-heals after the
// emergency window. Owner only.
func (e *Engine) EnableEmergency(caller model.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.guard.EnableEmergency()
	slog.Warn("emergency mode enabled", "by", caller, "height", e.clk.Height())
	return nil
}

// DisableEmergency lifts emergency mode before its window elapses. Owner only.
func (e *Engine) DisableEmergency(caller model.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.guard.DisableEmergency()
	slog.Info("emergency mode disabled", "by", caller)
	return nil
}

// SetOracleAddress changes the single account authorized to resolve
// markets. Owner only. Independent of trusted-set membership.
func (e *Engine) SetOracleAddress(caller, oracle model.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.oracle = oracle
	slog.Info("oracle address set", "oracle", oracle)
	return nil
}

// SetFeeRecipient changes the recorded fee recipient. Owner only. No
// operation sweeps fees to it; withheld fees stay in custody.
func (e *Engine) SetFeeRecipient(caller, recipient model.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.feeRecipient = recipient
	slog.Info("fee recipient set", "recipient", recipient)
	return nil
}

// --- Oracle registry ---

// AddTrustedOracle adds an account to the trusted-oracle set. Owner only.
// Membership does not authorize resolution; only SetOracleAddress does.
func (e *Engine) AddTrustedOracle(caller, oracle model.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	for _, a := range e.trusted {
		if a == oracle {
			return fmt.Errorf("%w: %s", ErrOracleExists, oracle)
		}
	}
	if len(e.trusted) >= MaxTrustedOracles {
		return fmt.Errorf("%w: limit %d", ErrTooManyOracles, MaxTrustedOracles)
	}
	e.trusted = append(e.trusted, oracle)
	if _, ok := e.reputation[oracle]; !ok {
		e.reputation[oracle] = &model.Reputation{Account: oracle}
	}
	slog.Info("trusted oracle added", "oracle", oracle)
	return nil
}

// RemoveTrustedOracle removes an account from the trusted-oracle set.
// Owner only. Reputation history is retained.
func (e *Engine) RemoveTrustedOracle(caller, oracle model.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	for i, a := range e.trusted {
		if a == oracle {
			e.trusted = append(e.trusted[:i], e.trusted[i+1:]...)
			slog.Info("trusted oracle removed", "oracle", oracle)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrOracleAbsent, oracle)
}

// bumpReputation increments totalResolutions for a resolving oracle,
// creating the record if the oracle was never in the trusted set.
func (e *Engine) bumpReputation(oracle model.AccountID) {
	rep, ok := e.reputation[oracle]
	if !ok {
		rep = &model.Reputation{Account: oracle}
		e.reputation[oracle] = rep
	}
	rep.TotalResolutions++
}

// translateStoreErr maps store-level not-found onto the ledger taxonomy.
func translateStoreErr(err error, marketID uint64) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrMarketNotFound, marketID)
	}
	return err
}
