package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pricelock/ledger-engine/internal/model"
	"github.com/pricelock/ledger-engine/internal/store"
)

func TestMemoryStore_Markets(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	m := &model.Market{ID: 1, Creator: "alice", Question: "up?", TargetPrice: 5000, ExpiryHeight: 100}
	if err := ms.CreateMarket(ctx, m); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := ms.CreateMarket(ctx, m); err == nil {
		t.Error("duplicate id should fail")
	}

	got, err := ms.GetMarket(ctx, 1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Question != "up?" {
		t.Errorf("question = %q", got.Question)
	}

	// Mutating the returned copy must not touch the stored record.
	got.TotalYes = 999
	again, _ := ms.GetMarket(ctx, 1)
	if again.TotalYes != 0 {
		t.Error("store returned aliased market")
	}

	if _, err := ms.GetMarket(ctx, 42); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("absent market: got %v, want ErrNotFound", err)
	}

	max, _ := ms.MaxMarketID(ctx)
	if max != 1 {
		t.Errorf("max id = %d, want 1", max)
	}
}

func TestMemoryStore_PositionsDefaultToZero(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	p, err := ms.GetPosition(ctx, 7, "nobody")
	if err != nil {
		t.Fatalf("get position failed: %v", err)
	}
	if p.MarketID != 7 || p.Account != "nobody" || !p.Empty() || p.Claimed {
		t.Errorf("absent position should read zero-valued, got %+v", p)
	}
}

func TestMemoryStore_CommitBets(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	m := &model.Market{ID: 1, Question: "q", TargetPrice: 5000, ExpiryHeight: 100}
	if err := ms.CreateMarket(ctx, m); err != nil {
		t.Fatal(err)
	}

	m.TotalYes = 500
	p := &model.Position{MarketID: 1, Account: "alice", YesAmount: 500}
	if err := ms.CommitBets(ctx, []*model.Market{m}, []*model.Position{p}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	gotM, _ := ms.GetMarket(ctx, 1)
	if gotM.TotalYes != 500 {
		t.Errorf("total yes = %d, want 500", gotM.TotalYes)
	}
	gotP, _ := ms.GetPosition(ctx, 1, "alice")
	if gotP.YesAmount != 500 {
		t.Errorf("yes amount = %d, want 500", gotP.YesAmount)
	}

	// Commit referencing an absent market rejects without partial writes.
	bad := &model.Market{ID: 99, TotalYes: 1}
	err := ms.CommitBets(ctx, []*model.Market{bad, m}, []*model.Position{p})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ListOrdered(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	for _, id := range []uint64{3, 1, 2} {
		if err := ms.CreateMarket(ctx, &model.Market{ID: id, Question: "q"}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := ms.ListMarkets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i, m := range list {
		if m.ID != uint64(i+1) {
			t.Errorf("list[%d].ID = %d, want %d", i, m.ID, i+1)
		}
	}
}
