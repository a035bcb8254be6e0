package model

import (
	"time"

	"main/internal/model/enum"
)

// Order is the local view of a single order's lifecycle. Id and
// ClientOrderID are assigned once at creation and immutable thereafter.
type Order struct {
	ID            int64
	ClientOrderID string
	AccountID     int64
	Symbol        string
	Side          enum.OrderSide
	Quantity      Quantity
	Type          enum.OrderType
	LimitPrice    *Money // present iff Type is limit
	TimeInForce   enum.OrderTimeInForce
	AllOrNone     bool
	CumQty        Quantity
	Status        enum.OrderStatus
	CreatedAt     time.Time
	Executions    []Execution // append-only, creation order
}

// Execution is an immutable fill record owned by its order.
type Execution struct {
	ID        string
	Quantity  Quantity
	Price     Money
	CreatedAt time.Time
}

// LeavesQty is the quantity still open on the order.
func (o *Order) LeavesQty() Quantity {
	left, err := o.Quantity.Sub(o.CumQty)
	if err != nil {
		return NewQuantity(0)
	}
	return left
}

// Account is the owning brokerage account of orders and holdings.
type Account struct {
	ID   int64
	Name string
	Cash Money
}

// Holding is one open lot of a security in an account: a discrete
// acquisition tracked individually for cost-basis and gain figures.
type Holding struct {
	ID         int64
	AccountID  int64
	Symbol     string
	Quantity   Quantity
	PricePaid  Money
	AcquiredAt time.Time
}
