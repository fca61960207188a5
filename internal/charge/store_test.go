package charge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMarkStatusTerminalGuard(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c := Charge{
		ID:         uuid.NewString(),
		CustomerID: "cust-1",
		Amount:     10_000,
		Currency:   "USD",
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := store.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := store.MarkStatus(ctx, c.ID, StatusSucceeded, MethodWallet, "")
	if err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}
	if updated.Status != StatusSucceeded || updated.PaymentMethod != MethodWallet {
		t.Fatalf("unexpected charge %+v", updated)
	}

	// terminal outcome must survive a later retry
	if _, err := store.MarkStatus(ctx, c.ID, StatusFailed, MethodExternal, "ext-1"); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected terminal guard, got %v", err)
	}

	got, err := store.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusSucceeded {
		t.Fatalf("terminal status overwritten: %s", got.Status)
	}
}

func TestMarkStatusNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.MarkStatus(context.Background(), uuid.NewString(), StatusFailed, "", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i, status := range []string{StatusPending, StatusSucceeded, StatusPending} {
		c := Charge{
			ID:         uuid.NewString(),
			CustomerID: "cust-1",
			Amount:     1_000,
			Currency:   "USD",
			Status:     status,
			CreatedAt:  time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := store.Create(ctx, c); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	pending, err := store.List(ctx, Filter{CustomerID: "cust-1", Status: StatusPending})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending charges, got %d", len(pending))
	}

	none, err := store.List(ctx, Filter{CustomerID: "other"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no charges for other customer, got %d", len(none))
	}
}
