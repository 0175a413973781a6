package outbox

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCompletedData is the event body published when checkout commits an order.
type OrderCompletedData struct {
	OrderID     uuid.UUID       `json:"orderId"`
	CustomerID  uuid.UUID       `json:"customerId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ItemCount   int             `json:"itemCount"`
}

// OrderCancelledData is the event body published when an order is cancelled.
type OrderCancelledData struct {
	OrderID    uuid.UUID  `json:"orderId"`
	CustomerID *uuid.UUID `json:"customerId,omitempty"`
}

// StockReleasedData records reservations returned to the ledger.
type StockReleasedData struct {
	OrderID  uuid.UUID `json:"orderId"`
	Products []ReleasedLine `json:"products"`
}

type ReleasedLine struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}
