package charge

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/splitdue/splitdue/internal/jobs"
)

// Handler exposes charge HTTP endpoints. Creation only records the charge and
// enqueues it; settlement happens in the worker.
type Handler struct {
	store Store
	queue jobs.Queue
}

// NewHandler builds a charge HTTP handler.
func NewHandler(store Store, queue jobs.Queue) *Handler {
	return &Handler{store: store, queue: queue}
}

type createRequest struct {
	CustomerID        string          `json:"customer_id"`
	Amount            int64           `json:"amount"`
	Currency          string          `json:"currency"`
	SplitInstructions json.RawMessage `json:"split_instructions"`
}

type chargeResponse struct {
	ID                string          `json:"id"`
	CustomerID        string          `json:"customer_id"`
	Amount            int64           `json:"amount"`
	Currency          string          `json:"currency"`
	Status            string          `json:"status"`
	PaymentMethod     string          `json:"payment_method,omitempty"`
	ExternalChargeID  string          `json:"external_charge_id,omitempty"`
	InstallmentID     string          `json:"installment_id,omitempty"`
	OrderID           string          `json:"installment_order_id,omitempty"`
	SplitInstructions json.RawMessage `json:"split_instructions,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

func toChargeResponse(c Charge) chargeResponse {
	return chargeResponse{
		ID:                c.ID,
		CustomerID:        c.CustomerID,
		Amount:            c.Amount,
		Currency:          c.Currency,
		Status:            c.Status,
		PaymentMethod:     c.PaymentMethod,
		ExternalChargeID:  c.ExternalChargeID,
		InstallmentID:     c.InstallmentID,
		OrderID:           c.OrderID,
		SplitInstructions: c.SplitInstructions,
		CreatedAt:         c.CreatedAt,
	}
}

// Create records a pending charge and enqueues it for settlement.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.CustomerID == "" {
		return fiber.NewError(http.StatusBadRequest, "customer_id is required")
	}
	if req.Amount <= 0 {
		return fiber.NewError(http.StatusBadRequest, "amount must be positive")
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	record := Charge{
		ID:                uuid.NewString(),
		CustomerID:        req.CustomerID,
		Amount:            req.Amount,
		Currency:          currency,
		Status:            StatusPending,
		SplitInstructions: req.SplitInstructions,
		CreatedAt:         time.Now().UTC(),
	}
	if err := h.store.Create(c.UserContext(), record); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if err := h.queue.Enqueue(c.UserContext(), jobs.SettleCharge(record.ID)); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "charge recorded but not queued: "+err.Error())
	}
	return c.Status(http.StatusAccepted).JSON(toChargeResponse(record))
}

// Get returns a single charge.
func (h *Handler) Get(c *fiber.Ctx) error {
	record, err := h.store.Get(c.UserContext(), c.Params("chargeId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toChargeResponse(record))
}

// List lists charges filtered by customer and status.
func (h *Handler) List(c *fiber.Ctx) error {
	f := Filter{
		CustomerID: c.Query("customer_id"),
		Status:     c.Query("status"),
		Limit:      c.QueryInt("limit", 50),
		Offset:     c.QueryInt("offset", 0),
	}
	charges, err := h.store.List(c.UserContext(), f)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]chargeResponse, 0, len(charges))
	for _, record := range charges {
		out = append(out, toChargeResponse(record))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"charges": out})
}
