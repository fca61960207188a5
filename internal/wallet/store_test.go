package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func newTestWallet(t *testing.T, store Store, balance int64) Wallet {
	t.Helper()
	svc := NewService(store)
	w, err := svc.Create(context.Background(), CreateInput{CustomerID: fmt.Sprintf("cust-%p", &store)})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if balance > 0 {
		if w, err = store.Apply(context.Background(), w.ID, balance, EntryCredit, "seed", ""); err != nil {
			t.Fatalf("seed balance: %v", err)
		}
	}
	return w
}

func ledgerSum(t *testing.T, store Store, walletID string) int64 {
	t.Helper()
	entries, err := store.Entries(context.Background(), walletID, 1000, 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	var sum int64
	for _, e := range entries {
		sum += e.Signed()
	}
	return sum
}

func TestApplyCreditAndDebit(t *testing.T) {
	store := NewMemoryStore()
	w := newTestWallet(t, store, 0)
	ctx := context.Background()

	w, err := store.Apply(ctx, w.ID, 5_000, EntryCredit, "top up", "")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if w.Balance != 5_000 {
		t.Fatalf("expected balance 5000, got %d", w.Balance)
	}

	w, err = store.Apply(ctx, w.ID, 1_500, EntryDebit, "payment", "charge-1")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if w.Balance != 3_500 {
		t.Fatalf("expected balance 3500, got %d", w.Balance)
	}

	if got := ledgerSum(t, store, w.ID); got != w.Balance {
		t.Fatalf("balance %d drifted from ledger sum %d", w.Balance, got)
	}
}

func TestDebitInsufficientFundsLeavesBalance(t *testing.T) {
	store := NewMemoryStore()
	w := newTestWallet(t, store, 1_000)
	ctx := context.Background()

	if _, err := store.Apply(ctx, w.ID, 1_001, EntryDebit, "too much", ""); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	got, err := store.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Balance != 1_000 {
		t.Fatalf("balance changed after failed debit: %d", got.Balance)
	}
	if sum := ledgerSum(t, store, w.ID); sum != 1_000 {
		t.Fatalf("ledger sum changed after failed debit: %d", sum)
	}
}

func TestDebitAvailablePartial(t *testing.T) {
	store := NewMemoryStore()
	w := newTestWallet(t, store, 4_000)
	ctx := context.Background()

	debited, updated, err := store.DebitAvailable(ctx, w.ID, 10_000, "payment", "partial payment", "charge-2")
	if err != nil {
		t.Fatalf("debit available: %v", err)
	}
	if debited != 4_000 {
		t.Fatalf("expected debit of 4000, got %d", debited)
	}
	if updated.Balance != 0 {
		t.Fatalf("expected empty wallet, got %d", updated.Balance)
	}

	// drained wallet debits nothing and appends nothing
	debited, _, err = store.DebitAvailable(ctx, w.ID, 10_000, "payment", "partial payment", "charge-3")
	if err != nil {
		t.Fatalf("second debit available: %v", err)
	}
	if debited != 0 {
		t.Fatalf("expected no debit from empty wallet, got %d", debited)
	}

	entries, err := store.Entries(ctx, w.ID, 100, 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 { // seed credit + one debit
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}
	if entries[0].BalanceBefore != 4_000 || entries[0].BalanceAfter != 0 {
		t.Fatalf("unexpected before/after on debit entry: %+v", entries[0])
	}
	// a capped debit carries the partial wording
	if entries[0].Description != "partial payment" {
		t.Fatalf("expected partial description, got %q", entries[0].Description)
	}
}

func TestDebitAvailableCapsAtRequested(t *testing.T) {
	store := NewMemoryStore()
	w := newTestWallet(t, store, 9_000)

	debited, updated, err := store.DebitAvailable(context.Background(), w.ID, 2_500, "payment", "partial payment", "charge-4")
	if err != nil {
		t.Fatalf("debit available: %v", err)
	}
	if debited != 2_500 || updated.Balance != 6_500 {
		t.Fatalf("unexpected result debited=%d balance=%d", debited, updated.Balance)
	}

	// a fully covered debit keeps the plain wording
	entries, err := store.Entries(context.Background(), w.ID, 1, 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Description != "payment" {
		t.Fatalf("expected plain description, got %+v", entries)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	store := NewMemoryStore()
	w := newTestWallet(t, store, 10_000)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _ = store.DebitAvailable(ctx, w.ID, 1_000, "payment", "partial payment", fmt.Sprintf("charge-%d", i))
		}(i)
	}
	wg.Wait()

	got, err := store.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Balance < 0 {
		t.Fatalf("wallet overdrawn: %d", got.Balance)
	}
	if sum := ledgerSum(t, store, w.ID); sum != got.Balance {
		t.Fatalf("balance %d drifted from ledger sum %d", got.Balance, sum)
	}
}

func TestServiceCreditUnknownCustomer(t *testing.T) {
	svc := NewService(NewMemoryStore())
	if _, err := svc.Credit(context.Background(), "nobody", 100, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
