package models

import (
	"time"

	"github.com/google/uuid"
)

// Order sides accepted by the backend.
const (
	OrderSideBuy  = "buy"
	OrderSideSell = "sell"
)

// -----------------------------------------------------------------------------

// MOrder represents a demo order. Orders are created via user submission and
// removed via bulk cancel; there is no modification path.
type MOrder struct {
	ID        int64     `json:"id,omitempty"`
	UserID    uuid.UUID `json:"user_id"`
	Side      string    `json:"side"`
	Asset     string    `json:"asset"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// -----------------------------------------------------------------------------

// ValidSide reports whether the order side is one of the accepted values.
func (o *MOrder) ValidSide() bool {
	return o.Side == OrderSideBuy || o.Side == OrderSideSell
}
