package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/stylelane/orders-service/internal/domain"
	"github.com/stylelane/orders-service/internal/service"
)

type ReturnHandler struct {
	returnService *service.ReturnService
}

func NewReturnHandler(returnService *service.ReturnService) *ReturnHandler {
	return &ReturnHandler{returnService: returnService}
}

func (h *ReturnHandler) CreateReturn(c *fiber.Ctx) error {
	actor, err := actorFromHeaders(c)
	if err != nil {
		return UnauthorizedResponse(c, "missing or invalid actor headers")
	}

	var request domain.CreateReturnRequest
	if err := c.BodyParser(&request); err != nil {
		return BadRequestResponse(c, "invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	ret, err := h.returnService.CreateReturn(c.UserContext(), actor, request)
	if err != nil {
		return BusinessErrorResponse(c, err)
	}
	return CreatedResponse(c, "Return created successfully", mapReturn(ret))
}

func (h *ReturnHandler) GetReturnByID(c *fiber.Ctx) error {
	actor, err := actorFromHeaders(c)
	if err != nil {
		return UnauthorizedResponse(c, "missing or invalid actor headers")
	}

	returnID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequestResponse(c, "invalid return ID", map[string]interface{}{
			"return_id": c.Params("id"),
		})
	}

	ret, err := h.returnService.GetReturn(c.UserContext(), actor, returnID)
	if err != nil {
		return BusinessErrorResponse(c, err)
	}
	return SuccessResponse(c, "Return retrieved successfully", mapReturn(ret))
}

func (h *ReturnHandler) UpdateReturnStatus(c *fiber.Ctx) error {
	actor, err := actorFromHeaders(c)
	if err != nil {
		return UnauthorizedResponse(c, "missing or invalid actor headers")
	}

	returnID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequestResponse(c, "invalid return ID", map[string]interface{}{
			"return_id": c.Params("id"),
		})
	}

	var request UpdateReturnStatusRequest
	if err := c.BodyParser(&request); err != nil {
		return BadRequestResponse(c, "invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	status := domain.ReturnStatus(request.Status)
	if !status.Valid() {
		return BadRequestResponse(c, "unknown return status", map[string]interface{}{
			"status": request.Status,
		})
	}

	ret, err := h.returnService.UpdateReturnStatus(c.UserContext(), actor, returnID, status, request.StatusNote())
	if err != nil {
		return BusinessErrorResponse(c, err)
	}
	return SuccessResponse(c, "Return status updated successfully", mapReturn(ret))
}

func (h *ReturnHandler) GetReturnsByShopID(c *fiber.Ctx) error {
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

	var statusFilter *domain.ReturnStatus
	if raw := c.Query("status"); raw != "" {
		status := domain.ReturnStatus(raw)
		if !status.Valid() {
			return BadRequestResponse(c, "unknown return status", map[string]interface{}{
				"status": raw,
			})
		}
		statusFilter = &status
	}

	returns, err := h.returnService.ListShopReturns(c.UserContext(), actor, shopID, statusFilter)
	if err != nil {
		return BusinessErrorResponse(c, err)
	}
	return SuccessResponse(c, "Returns retrieved successfully", mapReturns(returns))
}

func (h *ReturnHandler) GetReturnsByCustomerID(c *fiber.Ctx) error {
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

	returns, err := h.returnService.ListCustomerReturns(c.UserContext(), actor, customerID)
	if err != nil {
		return BusinessErrorResponse(c, err)
	}
	return SuccessResponse(c, "Returns retrieved successfully", mapReturns(returns))
}
