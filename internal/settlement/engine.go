package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/splitdue/splitdue/internal/charge"
	"github.com/splitdue/splitdue/internal/installment"
	"github.com/splitdue/splitdue/internal/jobs"
	"github.com/splitdue/splitdue/internal/metrics"
	"github.com/splitdue/splitdue/internal/processor"
	"github.com/splitdue/splitdue/internal/wallet"
	"github.com/splitdue/splitdue/internal/webhook"
)

// Outcome describes how a settlement attempt resolved.
type Outcome struct {
	ChargeID       string
	Status         string
	PaymentMethod  string
	WalletDebited  int64
	ExternalAmount int64
	ExternalRef    string
	AlreadySettled bool
	FailureReason  string
}

// Engine resolves a pending charge to a terminal status by running the
// payment waterfall: wallet funds first, the external processor for any
// shortfall, and a compensating wallet refund when the external leg fails
// after a partial debit.
type Engine struct {
	wallets      wallet.Store
	charges      charge.Store
	installments installment.Store
	processor    processor.Client
	queue        jobs.Queue
	logger       *slog.Logger
}

// NewEngine constructs a settlement engine.
func NewEngine(wallets wallet.Store, charges charge.Store, installments installment.Store, proc processor.Client, queue jobs.Queue, logger *slog.Logger) *Engine {
	return &Engine{
		wallets:      wallets,
		charges:      charges,
		installments: installments,
		processor:    proc,
		queue:        queue,
		logger:       logger,
	}
}

// Settle runs the waterfall for the given charge id. Expected payment
// failures (insufficient wallet funds, processor declines) resolve to a
// terminal charge status and an emitted event, never to a returned error;
// only unexpected store failures surface as errors.
func (e *Engine) Settle(ctx context.Context, chargeID string) (Outcome, error) {
	c, err := e.charges.Get(ctx, chargeID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load charge %s: %w", chargeID, err)
	}

	// settling a settled charge is a no-op: no ledger entries, no external call
	if c.Terminal() {
		return Outcome{ChargeID: c.ID, Status: c.Status, PaymentMethod: c.PaymentMethod, AlreadySettled: true}, nil
	}

	out := Outcome{ChargeID: c.ID}
	remaining := c.Amount

	w, err := e.wallets.GetByCustomer(ctx, c.CustomerID)
	switch {
	case err == nil && w.Active:
		debited, _, debitErr := e.wallets.DebitAvailable(ctx, w.ID, remaining,
			fmt.Sprintf("Payment for charge %s", c.ID),
			fmt.Sprintf("Partial payment for charge %s", c.ID),
			c.ID)
		if debitErr != nil {
			return Outcome{}, fmt.Errorf("debit wallet %s: %w", w.ID, debitErr)
		}
		out.WalletDebited = debited
		remaining -= debited
	case errors.Is(err, wallet.ErrNotFound):
		// no wallet: the whole amount goes to the external processor
	case err != nil:
		return Outcome{}, fmt.Errorf("look up wallet for customer %s: %w", c.CustomerID, err)
	}

	if remaining == 0 {
		return e.finish(ctx, c, out, charge.StatusSucceeded, charge.MethodWallet, "")
	}

	out.ExternalAmount = remaining
	receipt, procErr := e.processor.Charge(ctx, processor.Request{
		Amount:      remaining,
		Currency:    c.Currency,
		CustomerID:  c.CustomerID,
		Description: fmt.Sprintf("Installment payment - Charge %s", c.ID),
		Metadata: map[string]string{
			"charge_id":            c.ID,
			"installment_id":       c.InstallmentID,
			"installment_order_id": c.OrderID,
		},
	})
	if procErr != nil {
		out.FailureReason = procErr.Error()
		if out.WalletDebited > 0 {
			if compErr := e.compensate(ctx, w.ID, out.WalletDebited, c.ID); compErr != nil {
				// the debit is committed; surface the error so the job retries
				// the refund rather than burying a drifted balance
				return Outcome{}, compErr
			}
		}
		return e.finish(ctx, c, out, charge.StatusFailed, charge.MethodExternal, "")
	}

	out.ExternalRef = receipt.Reference
	return e.finish(ctx, c, out, charge.StatusSucceeded, charge.MethodExternal, receipt.Reference)
}

// compensate returns a partial wallet debit after the external leg failed.
func (e *Engine) compensate(ctx context.Context, walletID string, amount int64, chargeID string) error {
	_, err := e.wallets.Apply(ctx, walletID, amount, wallet.EntryCredit,
		fmt.Sprintf("Refund for failed charge %s", chargeID), chargeID)
	if err != nil {
		return fmt.Errorf("refund wallet %s for charge %s: %w", walletID, chargeID, err)
	}
	metrics.RecordCompensation()
	return nil
}

// finish records the terminal status, transitions the installment and its
// order, and emits the outcome event.
func (e *Engine) finish(ctx context.Context, c charge.Charge, out Outcome, status, method, externalRef string) (Outcome, error) {
	updated, err := e.charges.MarkStatus(ctx, c.ID, status, method, externalRef)
	if err != nil {
		if errors.Is(err, charge.ErrTerminal) {
			// lost the race against a concurrent retry; its outcome stands
			out.Status = updated.Status
			out.PaymentMethod = updated.PaymentMethod
			out.AlreadySettled = true
			return out, nil
		}
		return Outcome{}, fmt.Errorf("mark charge %s %s: %w", c.ID, status, err)
	}

	out.Status = status
	out.PaymentMethod = method
	metrics.RecordSettlement(status, method)

	if c.InstallmentID != "" {
		e.transitionInstallment(ctx, c, status)
	}

	event := webhook.EventChargeSucceeded
	if status == charge.StatusFailed {
		event = webhook.EventChargeFailed
	}
	if err := e.queue.Enqueue(ctx, jobs.SendWebhook(event, c.ID)); err != nil {
		// notification loss is logged, never fails the settlement
		e.logger.Error("enqueue webhook event", "event", event, "charge_id", c.ID, "error", err)
	}

	e.logger.Info("charge settled",
		"charge_id", c.ID,
		"status", status,
		"payment_method", method,
		"wallet_debited", out.WalletDebited,
		"external_amount", out.ExternalAmount,
	)
	return out, nil
}

// transitionInstallment moves the claimed installment to its terminal status
// and completes or fails the owning order.
func (e *Engine) transitionInstallment(ctx context.Context, c charge.Charge, status string) {
	instStatus := installment.StatusPaid
	if status == charge.StatusFailed {
		instStatus = installment.StatusFailed
	}
	if _, err := e.installments.MarkInstallment(ctx, c.InstallmentID, instStatus); err != nil {
		e.logger.Error("mark installment", "installment_id", c.InstallmentID, "status", instStatus, "error", err)
		return
	}

	if c.OrderID == "" {
		return
	}
	if instStatus == installment.StatusFailed {
		if _, err := e.installments.SetOrderStatus(ctx, c.OrderID, installment.OrderStatusFailed); err != nil {
			e.logger.Error("mark order failed", "order_id", c.OrderID, "error", err)
		}
		return
	}

	unpaid, err := e.installments.UnpaidCount(ctx, c.OrderID)
	if err != nil {
		e.logger.Error("count unpaid installments", "order_id", c.OrderID, "error", err)
		return
	}
	if unpaid == 0 {
		if _, err := e.installments.SetOrderStatus(ctx, c.OrderID, installment.OrderStatusCompleted); err != nil {
			e.logger.Error("complete order", "order_id", c.OrderID, "error", err)
		}
	}
}
