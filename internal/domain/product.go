package domain

import "github.com/google/uuid"

// Product is the catalog projection the order engine reads to snapshot
// line items. Price is the price shown to the client at purchase time;
// any discount is already folded in by the catalog.
type Product struct {
	ID          uuid.UUID `json:"id"`
	ShopID      uuid.UUID `json:"shop_id"`
	Name        string    `json:"name"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Price       float64   `json:"price"`
	Purchasable bool      `json:"purchasable"`
}
