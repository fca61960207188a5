package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/splitdue/splitdue/internal/installment"
)

// RegisterOrderRoutes wires installment-order endpoints.
func RegisterOrderRoutes(r fiber.Router, h *installment.Handler) {
	r.Post("/orders", h.CreateOrder)
	r.Get("/orders", h.ListOrders)
	r.Get("/orders/:orderId", h.GetOrder)
	r.Get("/orders/:orderId/installments", h.Installments)
	r.Post("/orders/:orderId/activate", h.Activate)
	r.Get("/due-installments", h.Due)
}
