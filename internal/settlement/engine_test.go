package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/splitdue/splitdue/internal/charge"
	"github.com/splitdue/splitdue/internal/installment"
	"github.com/splitdue/splitdue/internal/jobs"
	"github.com/splitdue/splitdue/internal/logging"
	"github.com/splitdue/splitdue/internal/processor"
	"github.com/splitdue/splitdue/internal/wallet"
	"github.com/splitdue/splitdue/internal/webhook"
)

type fakeProcessor struct {
	calls    []processor.Request
	declines bool
}

func (p *fakeProcessor) Charge(_ context.Context, req processor.Request) (processor.Receipt, error) {
	p.calls = append(p.calls, req)
	if p.declines {
		return processor.Receipt{}, &processor.Error{Code: "card_declined", Message: "card declined"}
	}
	return processor.Receipt{Reference: "ext-" + uuid.NewString()}, nil
}

type fixture struct {
	wallets      wallet.Store
	charges      charge.Store
	installments installment.Store
	proc         *fakeProcessor
	queue        *jobs.MemoryQueue
	engine       *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		wallets:      wallet.NewMemoryStore(),
		charges:      charge.NewMemoryStore(),
		installments: installment.NewMemoryStore(),
		proc:         &fakeProcessor{},
		queue:        jobs.NewMemoryQueue(16),
	}
	f.engine = NewEngine(f.wallets, f.charges, f.installments, f.proc, f.queue, logging.Discard())
	return f
}

func (f *fixture) seedWallet(t *testing.T, customerID string, balance int64) wallet.Wallet {
	t.Helper()
	w := wallet.Wallet{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Currency:   "USD",
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := f.wallets.Create(context.Background(), w); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if balance > 0 {
		var err error
		if w, err = f.wallets.Apply(context.Background(), w.ID, balance, wallet.EntryCredit, "seed", ""); err != nil {
			t.Fatalf("seed wallet: %v", err)
		}
	}
	return w
}

func (f *fixture) seedCharge(t *testing.T, customerID string, amount int64) charge.Charge {
	t.Helper()
	c := charge.Charge{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Amount:     amount,
		Currency:   "USD",
		Status:     charge.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := f.charges.Create(context.Background(), c); err != nil {
		t.Fatalf("create charge: %v", err)
	}
	return c
}

func (f *fixture) drainEvents(t *testing.T) []jobs.Job {
	t.Helper()
	var out []jobs.Job
	for f.queue.Len() > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		job, err := f.queue.Dequeue(ctx)
		cancel()
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		out = append(out, job)
	}
	return out
}

func (f *fixture) ledgerEntries(t *testing.T, walletID string) []wallet.LedgerEntry {
	t.Helper()
	entries, err := f.wallets.Entries(context.Background(), walletID, 100, 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	// drop the seed credit
	var out []wallet.LedgerEntry
	for _, e := range entries {
		if e.Description != "seed" {
			out = append(out, e)
		}
	}
	return out
}

func TestSettleWalletCoversEntireCharge(t *testing.T) {
	f := newFixture(t)
	w := f.seedWallet(t, "cust-1", 15_000)
	c := f.seedCharge(t, "cust-1", 10_000)

	out, err := f.engine.Settle(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if out.Status != charge.StatusSucceeded || out.PaymentMethod != charge.MethodWallet {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.WalletDebited != 10_000 {
		t.Fatalf("expected debit of 10000, got %d", out.WalletDebited)
	}
	if len(f.proc.calls) != 0 {
		t.Fatalf("external processor must not be called, got %d calls", len(f.proc.calls))
	}

	got, _ := f.wallets.Get(context.Background(), w.ID)
	if got.Balance != 5_000 {
		t.Fatalf("expected balance 5000, got %d", got.Balance)
	}
	entries := f.ledgerEntries(t, w.ID)
	if len(entries) != 1 || entries[0].Description != "Payment for charge "+c.ID {
		t.Fatalf("expected a full-payment debit entry, got %+v", entries)
	}

	events := f.drainEvents(t)
	if len(events) != 1 || events[0].Kind != jobs.KindSendWebhook || events[0].EventType != webhook.EventChargeSucceeded {
		t.Fatalf("expected one charge.succeeded event, got %+v", events)
	}
}

func TestSettlePartialWalletThenExternalSuccess(t *testing.T) {
	f := newFixture(t)
	w := f.seedWallet(t, "cust-1", 4_000)
	c := f.seedCharge(t, "cust-1", 10_000)

	out, err := f.engine.Settle(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if out.Status != charge.StatusSucceeded || out.PaymentMethod != charge.MethodExternal {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.WalletDebited != 4_000 || out.ExternalAmount != 6_000 {
		t.Fatalf("unexpected amounts %+v", out)
	}
	if len(f.proc.calls) != 1 || f.proc.calls[0].Amount != 6_000 {
		t.Fatalf("expected one external call for 6000, got %+v", f.proc.calls)
	}
	if f.proc.calls[0].Metadata["charge_id"] != c.ID {
		t.Fatalf("missing charge correlation metadata: %+v", f.proc.calls[0].Metadata)
	}

	got, _ := f.wallets.Get(context.Background(), w.ID)
	if got.Balance != 0 {
		t.Fatalf("expected drained wallet, got %d", got.Balance)
	}
	entries := f.ledgerEntries(t, w.ID)
	if len(entries) != 1 || entries[0].Type != wallet.EntryDebit || entries[0].Amount != 4_000 {
		t.Fatalf("expected a single debit entry of 4000, got %+v", entries)
	}
	if want := "Partial payment for charge " + c.ID; entries[0].Description != want {
		t.Fatalf("expected description %q, got %q", want, entries[0].Description)
	}

	settled, _ := f.charges.Get(context.Background(), c.ID)
	if settled.ExternalChargeID == "" {
		t.Fatal("expected external reference to be stored")
	}
}

func TestSettlePartialWalletExternalFailureCompensates(t *testing.T) {
	f := newFixture(t)
	w := f.seedWallet(t, "cust-1", 4_000)
	c := f.seedCharge(t, "cust-1", 10_000)
	f.proc.declines = true

	out, err := f.engine.Settle(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if out.Status != charge.StatusFailed || out.PaymentMethod != charge.MethodExternal {
		t.Fatalf("unexpected outcome %+v", out)
	}

	// balance restored to its pre-debit value
	got, _ := f.wallets.Get(context.Background(), w.ID)
	if got.Balance != 4_000 {
		t.Fatalf("expected restored balance 4000, got %d", got.Balance)
	}

	// debit then compensating credit, both referencing the charge
	entries := f.ledgerEntries(t, w.ID)
	if len(entries) != 2 {
		t.Fatalf("expected debit + refund entries, got %+v", entries)
	}
	var net int64
	for _, e := range entries {
		if e.ReferenceID != c.ID {
			t.Fatalf("entry missing charge reference: %+v", e)
		}
		net += e.Signed()
	}
	if net != 0 {
		t.Fatalf("compensation did not net to zero: %d", net)
	}

	events := f.drainEvents(t)
	if len(events) != 1 || events[0].EventType != webhook.EventChargeFailed {
		t.Fatalf("expected charge.failed event, got %+v", events)
	}
}

func TestSettleNoWalletGoesFullyExternal(t *testing.T) {
	f := newFixture(t)
	c := f.seedCharge(t, "cust-no-wallet", 10_000)

	out, err := f.engine.Settle(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if out.Status != charge.StatusSucceeded || out.PaymentMethod != charge.MethodExternal {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(f.proc.calls) != 1 || f.proc.calls[0].Amount != 10_000 {
		t.Fatalf("expected external call for full amount, got %+v", f.proc.calls)
	}
}

func TestSettleEmptyWalletNoCompensationOnFailure(t *testing.T) {
	f := newFixture(t)
	w := f.seedWallet(t, "cust-1", 0)
	c := f.seedCharge(t, "cust-1", 10_000)
	f.proc.declines = true

	out, err := f.engine.Settle(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if out.Status != charge.StatusFailed {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if entries := f.ledgerEntries(t, w.ID); len(entries) != 0 {
		t.Fatalf("no ledger entries expected without a debit, got %+v", entries)
	}
}

func TestSettleTerminalChargeIsNoOp(t *testing.T) {
	f := newFixture(t)
	w := f.seedWallet(t, "cust-1", 15_000)
	c := f.seedCharge(t, "cust-1", 10_000)

	if _, err := f.engine.Settle(context.Background(), c.ID); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	f.drainEvents(t)
	first, _ := f.wallets.Get(context.Background(), w.ID)

	out, err := f.engine.Settle(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if !out.AlreadySettled {
		t.Fatalf("expected already-settled outcome, got %+v", out)
	}

	// no additional ledger entries, no additional external calls, no events
	second, _ := f.wallets.Get(context.Background(), w.ID)
	if second.Balance != first.Balance {
		t.Fatalf("balance changed on no-op settle: %d -> %d", first.Balance, second.Balance)
	}
	if len(f.proc.calls) != 0 {
		t.Fatalf("external processor called on no-op settle")
	}
	if events := f.drainEvents(t); len(events) != 0 {
		t.Fatalf("events emitted on no-op settle: %+v", events)
	}
}

func TestSettleUnknownChargeReturnsError(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.Settle(context.Background(), uuid.NewString()); err == nil {
		t.Fatal("expected error for unknown charge")
	}
}

func TestSettleTransitionsInstallmentAndOrder(t *testing.T) {
	f := newFixture(t)
	f.seedWallet(t, "cust-1", 50_000)

	now := time.Now().UTC()
	order := installment.Order{
		ID:                uuid.NewString(),
		CustomerID:        "cust-1",
		Amount:            20_000,
		Currency:          "USD",
		InstallmentCount:  2,
		InstallmentAmount: 10_000,
		Status:            installment.OrderStatusActive,
		CreatedAt:         now,
	}
	insts := []installment.Installment{
		{ID: uuid.NewString(), OrderID: order.ID, Number: 1, Amount: 10_000, DueDate: now, Status: installment.StatusProcessing, CreatedAt: now},
		{ID: uuid.NewString(), OrderID: order.ID, Number: 2, Amount: 10_000, DueDate: now.AddDate(0, 0, 30), Status: installment.StatusProcessing, CreatedAt: now},
	}
	if err := f.installments.CreateOrder(context.Background(), order, insts); err != nil {
		t.Fatalf("create order: %v", err)
	}

	for _, inst := range insts {
		c := charge.Charge{
			ID:            uuid.NewString(),
			CustomerID:    "cust-1",
			Amount:        inst.Amount,
			Currency:      "USD",
			Status:        charge.StatusPending,
			InstallmentID: inst.ID,
			OrderID:       order.ID,
			CreatedAt:     time.Now().UTC(),
		}
		if err := f.charges.Create(context.Background(), c); err != nil {
			t.Fatalf("create charge: %v", err)
		}
		if _, err := f.engine.Settle(context.Background(), c.ID); err != nil {
			t.Fatalf("settle: %v", err)
		}
	}

	for _, inst := range insts {
		got, err := f.installments.GetInstallment(context.Background(), inst.ID)
		if err != nil {
			t.Fatalf("get installment: %v", err)
		}
		if got.Status != installment.StatusPaid {
			t.Fatalf("installment %d not paid: %s", inst.Number, got.Status)
		}
	}

	gotOrder, err := f.installments.GetOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if gotOrder.Status != installment.OrderStatusCompleted {
		t.Fatalf("expected completed order, got %s", gotOrder.Status)
	}
}
