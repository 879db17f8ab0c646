package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds the fiber application with the full route table. Kept
// separate from main so handler tests can drive it with app.Test.
func NewApp(orderHandler *OrderHandler, returnHandler *ReturnHandler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "StyleLane Orders Service v1.0",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} - ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID,X-Actor-Id,X-Actor-Role,X-Actor-Shop",
	}))

	api := app.Group("/api/v1")
	api.Get("/health", orderHandler.HealthCheck)

	orders := api.Group("/orders")
	orders.Post("/", orderHandler.CreateOrder)
	orders.Get("/shop/:shop_id", orderHandler.GetOrdersByShopID)
	orders.Get("/customer/:customer_id", orderHandler.GetOrdersByCustomerID)
	orders.Get("/:id", orderHandler.GetOrderByID)
	orders.Put("/:id/status", orderHandler.UpdateOrderStatus)

	returns := api.Group("/returns")
	returns.Post("/", returnHandler.CreateReturn)
	returns.Get("/shop/:shop_id", returnHandler.GetReturnsByShopID)
	returns.Get("/customer/:customer_id", returnHandler.GetReturnsByCustomerID)
	returns.Get("/:id", returnHandler.GetReturnByID)
	returns.Put("/:id/status", returnHandler.UpdateReturnStatus)

	app.Use("*", func(c *fiber.Ctx) error {
		return errorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(APIResponse{
		Success:   false,
		Message:   message,
		Error:     &APIError{Code: "INTERNAL_ERROR", Message: message},
		RequestID: getRequestID(c),
	})
}
