// Package custody defines the value-transfer collaborator that moves stake
// between bettor accounts and the ledger's custody vault. The engine only
// depends on the Bank interface; any failure aborts the calling operation.
package custody

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pricelock/ledger-engine/internal/model"
)

var (
	// ErrInsufficientFunds is returned when an account cannot cover a debit.
	ErrInsufficientFunds = errors.New("custody: insufficient funds")

	// ErrVaultShort is returned when the vault cannot cover a credit.
	// Seen only if value was created outside the ledger's accounting.
	ErrVaultShort = errors.New("custody: vault balance short")
)

// Receipt records one completed transfer leg.
type Receipt struct {
	ID        string          `json:"id"`
	Account   model.AccountID `json:"account"`
	Amount    uint64          `json:"amount"`
	Direction string          `json:"direction"` // "debit" or "credit"
}

// Bank moves value atomically between an account and custody.
// Debit pulls stake into custody; Credit releases winnings back out.
type Bank interface {
	Debit(ctx context.Context, account model.AccountID, amount uint64) (*Receipt, error)
	Credit(ctx context.Context, account model.AccountID, amount uint64) (*Receipt, error)
}

// MemoryBank implements Bank with in-memory balances. Used for testing and
// local single-node mode.
type MemoryBank struct {
	mu       sync.Mutex
	balances map[model.AccountID]uint64
	vault    uint64
	journal  []Receipt
}

// NewMemoryBank creates an empty in-memory bank.
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{
		balances: make(map[model.AccountID]uint64),
	}
}

// Seed credits an account balance directly, outside custody accounting.
func (b *MemoryBank) Seed(account model.AccountID, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] += amount
}

func (b *MemoryBank) Debit(_ context.Context, account model.AccountID, amount uint64) (*Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.balances[account] < amount {
		return nil, fmt.Errorf("%w: account %s needs %d", ErrInsufficientFunds, account, amount)
	}
	b.balances[account] -= amount
	b.vault += amount

	r := Receipt{ID: uuid.New().String(), Account: account, Amount: amount, Direction: "debit"}
	b.journal = append(b.journal, r)
	return &r, nil
}

func (b *MemoryBank) Credit(_ context.Context, account model.AccountID, amount uint64) (*Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.vault < amount {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrVaultShort, amount, b.vault)
	}
	b.vault -= amount
	b.balances[account] += amount

	r := Receipt{ID: uuid.New().String(), Account: account, Amount: amount, Direction: "credit"}
	b.journal = append(b.journal, r)
	return &r, nil
}

// Balance returns an account's free balance.
func (b *MemoryBank) Balance(account model.AccountID) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account]
}

// VaultBalance returns the value currently held in custody.
func (b *MemoryBank) VaultBalance() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.vault
}

// Journal returns a copy of all transfer receipts in order.
func (b *MemoryBank) Journal() []Receipt {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Receipt, len(b.journal))
	copy(out, b.journal)
	return out
}
