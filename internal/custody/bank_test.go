package custody_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pricelock/ledger-engine/internal/custody"
)

func TestMemoryBank_DebitCredit(t *testing.T) {
	b := custody.NewMemoryBank()
	b.Seed("alice", 1000)

	r, err := b.Debit(context.Background(), "alice", 400)
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if r.ID == "" || r.Direction != "debit" {
		t.Errorf("bad receipt: %+v", r)
	}
	if got := b.Balance("alice"); got != 600 {
		t.Errorf("balance = %d, want 600", got)
	}
	if got := b.VaultBalance(); got != 400 {
		t.Errorf("vault = %d, want 400", got)
	}

	if _, err := b.Credit(context.Background(), "alice", 400); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if got := b.Balance("alice"); got != 1000 {
		t.Errorf("balance = %d, want 1000", got)
	}
	if got := b.VaultBalance(); got != 0 {
		t.Errorf("vault = %d, want 0", got)
	}
	if got := len(b.Journal()); got != 2 {
		t.Errorf("journal length = %d, want 2", got)
	}
}

func TestMemoryBank_InsufficientFunds(t *testing.T) {
	b := custody.NewMemoryBank()
	b.Seed("bob", 100)

	if _, err := b.Debit(context.Background(), "bob", 101); !errors.Is(err, custody.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := b.Balance("bob"); got != 100 {
		t.Errorf("failed debit should not move funds, balance = %d", got)
	}
}

func TestMemoryBank_VaultShort(t *testing.T) {
	b := custody.NewMemoryBank()

	if _, err := b.Credit(context.Background(), "carol", 1); !errors.Is(err, custody.ErrVaultShort) {
		t.Errorf("expected ErrVaultShort, got %v", err)
	}
}
