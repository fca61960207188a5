package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	CustomerID string `json:"customer_id"`
	Currency   string `json:"currency"`
}

type creditRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type walletResponse struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Balance    int64     `json:"balance"`
	Currency   string    `json:"currency"`
	Active     bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type ledgerEntryResponse struct {
	ID            string    `json:"id"`
	Type          string    `json:"entry_type"`
	Amount        int64     `json:"amount"`
	Description   string    `json:"description,omitempty"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	CreatedAt     time.Time `json:"created_at"`
}

func toWalletResponse(w Wallet) walletResponse {
	return walletResponse{
		ID:         w.ID,
		CustomerID: w.CustomerID,
		Balance:    w.Balance,
		Currency:   w.Currency,
		Active:     w.Active,
		CreatedAt:  w.CreatedAt,
	}
}

// Create provisions a wallet for a customer.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.CustomerID == "" {
		return fiber.NewError(http.StatusBadRequest, "customer_id is required")
	}
	w, err := h.service.Create(c.UserContext(), CreateInput{CustomerID: req.CustomerID, Currency: req.Currency})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toWalletResponse(w))
}

// Get returns a customer's wallet.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.service.GetByCustomer(c.UserContext(), c.Params("customerId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toWalletResponse(w))
}

// Credit adds funds to a customer's wallet.
func (h *Handler) Credit(c *fiber.Ctx) error {
	var req creditRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Amount <= 0 {
		return fiber.NewError(http.StatusBadRequest, "amount must be positive")
	}
	w, err := h.service.Credit(c.UserContext(), c.Params("customerId"), req.Amount, req.Description)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toWalletResponse(w))
}

// Ledger lists a customer's ledger entries, newest first.
func (h *Handler) Ledger(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	entries, err := h.service.Ledger(c.UserContext(), c.Params("customerId"), limit, offset)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]ledgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ledgerEntryResponse{
			ID:            e.ID,
			Type:          e.Type,
			Amount:        e.Amount,
			Description:   e.Description,
			ReferenceID:   e.ReferenceID,
			BalanceBefore: e.BalanceBefore,
			BalanceAfter:  e.BalanceAfter,
			CreatedAt:     e.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"entries": out})
}
