package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/stylelane/orders-service/internal/domain"
	"github.com/stylelane/orders-service/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	actor, err := actorFromHeaders(c)
	if err != nil {
		return UnauthorizedResponse(c, "missing or invalid actor headers")
	}

	var request domain.CreateOrderRequest
	if err := c.BodyParser(&request); err != nil {
		return BadRequestResponse(c, "invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	order, err := h.orderService.CreateOrder(c.UserContext(), actor, request)
	if err != nil {
		return BusinessErrorResponse(c, err)
	}
	return CreatedResponse(c, "Order created successfully", mapOrder(order))
}

func (h *OrderHandler) GetOrderByID(c *fiber.Ctx) error {
	actor, err := actorFromHeaders(c)
	if err != nil {
		return UnauthorizedResponse(c, "missing or invalid actor headers")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequestResponse(c, "invalid order ID", map[string]interface{}{
			"order_id": c.Params("id"),
		})
	}

	order, err := h.orderService.GetOrder(c.UserContext(), actor, orderID)
	if err != nil {
		return BusinessErrorResponse(c, err)
	}
	return SuccessResponse(c, "Order retrieved successfully", mapOrder(order))
}

func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	actor, err := actorFromHeaders(c)
	if err != nil {
		return UnauthorizedResponse(c, "missing or invalid actor headers")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequestResponse(c, "invalid order ID", map[string]interface{}{
			"order_id": c.Params("id"),
		})
	}

	var request UpdateStatusRequest
	if err := c.BodyParser(&request); err != nil {
		return BadRequestResponse(c, "invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	status := domain.OrderStatus(request.Status)
	if !status.Valid() {
		return BadRequestResponse(c, "unknown order status", map[string]interface{}{
			"status": request.Status,
		})
	}

	order, err := h.orderService.UpdateOrderStatus(c.UserContext(), actor, orderID, status, request.Note)
	if err != nil {
		return BusinessErrorResponse(c, err)
	}
	return SuccessResponse(c, "Order status updated successfully", mapOrder(order))
}

func (h *OrderHandler) GetOrdersByShopID(c *fiber.Ctx) error {
	actor, err := actorFromHeaders(c)
	if err != nil {
		return UnauthorizedResponse(c, "missing or invalid actor headers")
	}

	shopID, err := uuid.Parse(c.Params("shop_id"))
	if err != nil {
		return BadRequestResponse(c, "invalid shop ID", map[string]interface{}{
			"shop_id": c.Params("shop_id"),
		})
	}

	var statusFilter *domain.OrderStatus
	if raw := c.Query("status"); raw != "" {
		status := domain.OrderStatus(raw)
		if !status.Valid() {
			return BadRequestResponse(c, "unknown order status", map[string]interface{}{
				"status": raw,
			})
		}
		statusFilter = &status
	}

	orders, err := h.orderService.ListShopOrders(c.UserContext(), actor, shopID, statusFilter)
	if err != nil {
		return BusinessErrorResponse(c, err)
	}
	return SuccessResponse(c, "Orders retrieved successfully", mapOrders(orders))
}

func (h *OrderHandler) GetOrdersByCustomerID(c *fiber.Ctx) error {
	actor, err := actorFromHeaders(c)
	if err != nil {
		return UnauthorizedResponse(c, "missing or invalid actor headers")
	}

	customerID, err := uuid.Parse(c.Params("customer_id"))
	if err != nil {
		return BadRequestResponse(c, "invalid customer ID", map[string]interface{}{
			"customer_id": c.Params("customer_id"),
		})
	}

	orders, err := h.orderService.ListCustomerOrders(c.UserContext(), actor, customerID)
	if err != nil {
		return BusinessErrorResponse(c, err)
	}
	return SuccessResponse(c, "Orders retrieved successfully", mapOrders(orders))
}

func (h *OrderHandler) HealthCheck(c *fiber.Ctx) error {
	return SuccessResponse(c, "Service is healthy", map[string]interface{}{
		"service": "orders-service",
		"status":  "healthy",
	})
}
