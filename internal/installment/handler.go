package installment

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// Handler exposes installment-order HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an installment HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createOrderRequest struct {
	CustomerID        string `json:"customer_id" validate:"required"`
	Amount            int64  `json:"amount" validate:"required,gt=0"`
	Currency          string `json:"currency" validate:"omitempty,len=3"`
	InstallmentCount  int    `json:"installment_count" validate:"required,min=1,max=24"`
	InstallmentAmount int64  `json:"installment_amount" validate:"omitempty,gt=0"`
}

type orderResponse struct {
	ID                string    `json:"id"`
	CustomerID        string    `json:"customer_id"`
	Amount            int64     `json:"total_amount"`
	Currency          string    `json:"currency"`
	InstallmentCount  int       `json:"installment_count"`
	InstallmentAmount int64     `json:"installment_amount"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

type installmentResponse struct {
	ID      string    `json:"id"`
	OrderID string    `json:"order_id"`
	Number  int       `json:"installment_number"`
	Amount  int64     `json:"amount"`
	DueDate time.Time `json:"due_date"`
	Status  string    `json:"status"`
}

func toOrderResponse(o Order) orderResponse {
	return orderResponse{
		ID:                o.ID,
		CustomerID:        o.CustomerID,
		Amount:            o.Amount,
		Currency:          o.Currency,
		InstallmentCount:  o.InstallmentCount,
		InstallmentAmount: o.InstallmentAmount,
		Status:            o.Status,
		CreatedAt:         o.CreatedAt,
	}
}

func toInstallmentResponses(installments []Installment) []installmentResponse {
	out := make([]installmentResponse, 0, len(installments))
	for _, inst := range installments {
		out = append(out, installmentResponse{
			ID:      inst.ID,
			OrderID: inst.OrderID,
			Number:  inst.Number,
			Amount:  inst.Amount,
			DueDate: inst.DueDate,
			Status:  inst.Status,
		})
	}
	return out
}

// CreateOrder opens a payment plan and returns it with its schedule.
func (h *Handler) CreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	}

	o, schedule, err := h.service.CreateOrder(c.UserContext(), CreateOrderInput{
		CustomerID:        req.CustomerID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		InstallmentCount:  req.InstallmentCount,
		InstallmentAmount: req.InstallmentAmount,
	})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return fiber.NewError(http.StatusUnprocessableEntity, verr.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	resp := struct {
		orderResponse
		Installments []installmentResponse `json:"installments"`
	}{toOrderResponse(o), toInstallmentResponses(schedule)}
	return c.Status(http.StatusCreated).JSON(resp)
}

// GetOrder returns a single order.
func (h *Handler) GetOrder(c *fiber.Ctx) error {
	o, err := h.service.GetOrder(c.UserContext(), c.Params("orderId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toOrderResponse(o))
}

// ListOrders lists orders filtered by customer and status.
func (h *Handler) ListOrders(c *fiber.Ctx) error {
	f := OrderFilter{
		CustomerID: c.Query("customer_id"),
		Status:     c.Query("status"),
		Limit:      c.QueryInt("limit", 50),
		Offset:     c.QueryInt("offset", 0),
	}
	orders, err := h.service.ListOrders(c.UserContext(), f)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"orders": out})
}

// Installments returns an order's schedule.
func (h *Handler) Installments(c *fiber.Ctx) error {
	installments, err := h.service.Installments(c.UserContext(), c.Params("orderId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"installments": toInstallmentResponses(installments)})
}

// Activate moves a pending order to active.
func (h *Handler) Activate(c *fiber.Ctx) error {
	o, err := h.service.ActivateOrder(c.UserContext(), c.Params("orderId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		var verr *ValidationError
		if errors.As(err, &verr) {
			return fiber.NewError(http.StatusConflict, verr.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toOrderResponse(o))
}

// Due lists pending installments past their due date.
func (h *Handler) Due(c *fiber.Ctx) error {
	installments, err := h.service.Due(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"installments": toInstallmentResponses(installments)})
}
