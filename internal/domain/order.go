package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus tracks the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusSimulated OrderStatus = "simulated"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFilled    OrderStatus = "filled"
)

// Order is a single leg of an arbitrage trade. ID is the venue-assigned
// order id (or a sim_ id in simulation mode).
type Order struct {
	ID           string
	MarketID     string
	OutcomeIndex int
	Side         OrderSide
	Price        float64
	Quantity     float64
	TotalCost    float64 // Price * Quantity
	Status       OrderStatus
	CreatedAt    time.Time
}

// OrderRequest is the signed payload submitted to the venue for one leg.
type OrderRequest struct {
	MarketID     string
	OutcomeIndex int
	Price        float64
	Quantity     float64
	Buy          bool
	Signer       string // signing address
	Signature    string // hex-encoded signature over the canonical payload
}
