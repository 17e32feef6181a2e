package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem references a catalog product. Product plus weight form the line
// identity: adding the same product at the same weight bumps the quantity
// instead of appending a new line.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Weight    float64 `json:"weight"`
	Image     string  `json:"image,omitempty"`
}

// Cart holds one user's pending line items. TotalAmount is a derived cache;
// authoritative totals are always recomputed from catalog prices. Revision is
// bumped on every mutation and guards the compare-and-clear during placement.
type Cart struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Items       []CartItem `json:"items"`
	TotalAmount float64    `json:"total_amount"`
	Revision    int64      `json:"revision"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FindItem returns the index of the line matching productID and weight, or -1.
func (c *Cart) FindItem(productID string, weight float64) int {
	for i, item := range c.Items {
		if item.ProductID == productID && item.Weight == weight {
			return i
		}
	}
	return -1
}
