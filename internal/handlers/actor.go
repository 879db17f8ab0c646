package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/stylelane/orders-service/internal/domain"
)

// Actor identity headers set by the gateway after authentication.
const (
	headerActorID   = "X-Actor-Id"
	headerActorRole = "X-Actor-Role"
	headerActorShop = "X-Actor-Shop"
)

// actorFromHeaders rebuilds the authenticated actor from the gateway
// headers. Shop staff must carry their shop id.
func actorFromHeaders(c *fiber.Ctx) (domain.Actor, error) {
	id, err := uuid.Parse(c.Get(headerActorID))
	if err != nil {
		return domain.Actor{}, fiber.ErrUnauthorized
	}

	role := domain.Role(c.Get(headerActorRole))
	if !role.Valid() {
		return domain.Actor{}, fiber.ErrUnauthorized
	}

	actor := domain.Actor{ID: id, Role: role}
	if role == domain.RoleShop {
		shopID, err := uuid.Parse(c.Get(headerActorShop))
		if err != nil {
			return domain.Actor{}, fiber.ErrUnauthorized
		}
		actor.ShopID = shopID
	}
	return actor, nil
}
