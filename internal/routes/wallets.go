package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/splitdue/splitdue/internal/wallet"
)

// RegisterWalletRoutes wires wallet endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets/:customerId", h.Get)
	r.Get("/wallets/:customerId/ledger", h.Ledger)
	r.Post("/wallets/:customerId/credit", h.Credit)
}
