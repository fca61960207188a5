package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/splitdue/splitdue/internal/webhook"
)

// RegisterWebhookRoutes wires webhook audit endpoints.
func RegisterWebhookRoutes(r fiber.Router, h *webhook.Handler) {
	r.Get("/webhooks", h.List)
	r.Get("/webhooks/:webhookId", h.Get)
}
