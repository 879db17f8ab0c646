package handlers

import (
	"context"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stylelane/orders-service/internal/domain"
)

// deliverOrder walks an order to delivered through the status endpoint.
func (e *testEnv) deliverOrder(t *testing.T, orderID uuid.UUID) {
	t.Helper()
	for _, status := range []string{"confirmed", "processing", "shipped", "delivered"} {
		resp := e.request(t, &e.shop, fiber.MethodPut,
			fmt.Sprintf("/api/v1/orders/%s/status", orderID),
			map[string]interface{}{"status": status})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
}

func (e *testEnv) orderItemID(t *testing.T, orderID uuid.UUID) uuid.UUID {
	t.Helper()
	order, err := e.orders.Get(context.Background(), orderID)
	require.NoError(t, err)
	require.NotEmpty(t, order.Items)
	return order.Items[0].ID
}

func createReturnBody(orderID, orderItemID uuid.UUID, qty int, reason string) map[string]interface{} {
	return map[string]interface{}{
		"order_id": orderID,
		"items": []map[string]interface{}{
			{"order_item_id": orderItemID, "quantity": qty},
		},
		"reason": reason,
	}
}

func TestCreateReturnEndpoint(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(10, 5)
	orderID := env.placeOrder(t, product.ID, 3)
	env.deliverOrder(t, orderID)
	itemID := env.orderItemID(t, orderID)

	resp := env.request(t, &env.customer, fiber.MethodPost, "/api/v1/returns/",
		createReturnBody(orderID, itemID, 1, "defective"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeResponse(t, resp)
	assert.True(t, body.Success)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, 10.0, data["refund_amount"])
	assert.Equal(t, orderID.String(), data["order_id"])
}

func TestCreateReturnEndpoint_NotDelivered(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(10, 5)
	orderID := env.placeOrder(t, product.ID, 1)
	itemID := env.orderItemID(t, orderID)

	resp := env.request(t, &env.customer, fiber.MethodPost, "/api/v1/returns/",
		createReturnBody(orderID, itemID, 1, "defective"))
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	body := decodeResponse(t, resp)
	assert.Equal(t, "INVALID_TRANSITION", body.Error.Code)
}

func TestCreateReturnEndpoint_OverClaim(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(10, 5)
	orderID := env.placeOrder(t, product.ID, 2)
	env.deliverOrder(t, orderID)
	itemID := env.orderItemID(t, orderID)

	resp := env.request(t, &env.customer, fiber.MethodPost, "/api/v1/returns/",
		createReturnBody(orderID, itemID, 2, "changed_mind"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(t, &env.customer, fiber.MethodPost, "/api/v1/returns/",
		createReturnBody(orderID, itemID, 1, "defective"))
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	body := decodeResponse(t, resp)
	assert.Equal(t, "CONFLICT", body.Error.Code)
}

func TestCreateReturnEndpoint_BadReason(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(10, 5)
	orderID := env.placeOrder(t, product.ID, 1)
	env.deliverOrder(t, orderID)
	itemID := env.orderItemID(t, orderID)

	resp := env.request(t, &env.customer, fiber.MethodPost, "/api/v1/returns/",
		createReturnBody(orderID, itemID, 1, "because"))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUpdateReturnStatusEndpoint_FullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(10, 5)
	orderID := env.placeOrder(t, product.ID, 2)
	env.deliverOrder(t, orderID)
	itemID := env.orderItemID(t, orderID)

	resp := env.request(t, &env.customer, fiber.MethodPost, "/api/v1/returns/",
		createReturnBody(orderID, itemID, 1, "defective"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	created := decodeResponse(t, resp)
	returnID := created.Data.(map[string]interface{})["id"].(string)

	resp = env.request(t, &env.shop, fiber.MethodPut,
		fmt.Sprintf("/api/v1/returns/%s/status", returnID),
		map[string]interface{}{"status": "approved"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(t, &env.shop, fiber.MethodPut,
		fmt.Sprintf("/api/v1/returns/%s/status", returnID),
		map[string]interface{}{"status": "completed", "note": "received"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeResponse(t, resp)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, "completed", data["status"])
	assert.Len(t, data["history"].([]interface{}), 3)

	record, err := env.inv.GetRecord(context.Background(), domain.VariantRef{ProductID: product.ID})
	require.NoError(t, err)
	assert.Equal(t, 4, record.Available, "completed unit goes back to stock")
}

func TestUpdateReturnStatusEndpoint_CustomerForbidden(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(10, 5)
	orderID := env.placeOrder(t, product.ID, 1)
	env.deliverOrder(t, orderID)
	itemID := env.orderItemID(t, orderID)

	resp := env.request(t, &env.customer, fiber.MethodPost, "/api/v1/returns/",
		createReturnBody(orderID, itemID, 1, "defective"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	created := decodeResponse(t, resp)
	returnID := created.Data.(map[string]interface{})["id"].(string)

	resp = env.request(t, &env.customer, fiber.MethodPut,
		fmt.Sprintf("/api/v1/returns/%s/status", returnID),
		map[string]interface{}{"status": "approved"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestUpdateReturnStatusEndpoint_AdminNotesField(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(10, 5)
	orderID := env.placeOrder(t, product.ID, 1)
	env.deliverOrder(t, orderID)
	itemID := env.orderItemID(t, orderID)

	resp := env.request(t, &env.customer, fiber.MethodPost, "/api/v1/returns/",
		createReturnBody(orderID, itemID, 1, "defective"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	created := decodeResponse(t, resp)
	returnID := created.Data.(map[string]interface{})["id"].(string)

	resp = env.request(t, &env.shop, fiber.MethodPut,
		fmt.Sprintf("/api/v1/returns/%s/status", returnID),
		map[string]interface{}{"status": "rejected", "adminNotes": "visible wear"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeResponse(t, resp)
	history := body.Data.(map[string]interface{})["history"].([]interface{})
	require.Len(t, history, 2)
	last := history[1].(map[string]interface{})
	assert.Equal(t, "rejected", last["status"])
	assert.Equal(t, "visible wear", last["note"])
}

func TestShopReturnsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(10, 5)
	orderID := env.placeOrder(t, product.ID, 2)
	env.deliverOrder(t, orderID)
	itemID := env.orderItemID(t, orderID)

	resp := env.request(t, &env.customer, fiber.MethodPost, "/api/v1/returns/",
		createReturnBody(orderID, itemID, 1, "defective"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(t, &env.shop, fiber.MethodGet,
		fmt.Sprintf("/api/v1/returns/shop/%s?status=pending", env.shopID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeResponse(t, resp)
	assert.Len(t, body.Data.([]interface{}), 1)
}

func TestCustomerReturnsEndpoint_MissingHeaders(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, nil, fiber.MethodGet,
		fmt.Sprintf("/api/v1/returns/customer/%s", uuid.New()), nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
