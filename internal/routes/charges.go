package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/splitdue/splitdue/internal/charge"
)

// RegisterChargeRoutes wires charge endpoints.
func RegisterChargeRoutes(r fiber.Router, h *charge.Handler) {
	r.Post("/charges", h.Create)
	r.Get("/charges", h.List)
	r.Get("/charges/:chargeId", h.Get)
}
