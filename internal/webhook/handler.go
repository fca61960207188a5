package webhook

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes read-only webhook audit endpoints.
type Handler struct {
	store Store
}

// NewHandler builds a webhook HTTP handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type logResponse struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	Payload      json.RawMessage `json:"payload"`
	Status       string          `json:"status"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type deliveryResponse struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	StatusCode   int       `json:"status_code"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toLogResponse(l Log) logResponse {
	return logResponse{
		ID:           l.ID,
		EventType:    l.EventType,
		Payload:      l.Payload,
		Status:       l.Status,
		ProcessedAt:  l.ProcessedAt,
		ErrorMessage: l.ErrorMessage,
		CreatedAt:    l.CreatedAt,
	}
}

// List returns webhook logs, newest first.
func (h *Handler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	logs, err := h.store.ListLogs(c.UserContext(), limit, offset)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]logResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, toLogResponse(l))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"webhooks": out})
}

// Get returns one webhook log with its per-destination delivery attempts.
func (h *Handler) Get(c *fiber.Ctx) error {
	id := c.Params("webhookId")
	l, err := h.store.GetLog(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	deliveries, err := h.store.Deliveries(c.UserContext(), id)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]deliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		out = append(out, deliveryResponse{
			ID:           d.ID,
			URL:          d.URL,
			StatusCode:   d.StatusCode,
			ErrorMessage: d.ErrorMessage,
			CreatedAt:    d.CreatedAt,
		})
	}

	resp := struct {
		logResponse
		Deliveries []deliveryResponse `json:"deliveries"`
	}{toLogResponse(l), out}
	return c.Status(http.StatusOK).JSON(resp)
}
