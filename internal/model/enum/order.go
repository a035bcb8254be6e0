package enum

// OrderSide buy, sell
type OrderSide uint8

const (
	_order_side_beg OrderSide = iota
	OrderSideBuy
	OrderSideSell
	_order_side_end
)

func (s OrderSide) IsAvailable() bool {
	return s > _order_side_beg && s < _order_side_end
}

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "buy"
	case OrderSideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// OrderType market, limit
type OrderType uint8

const (
	_order_type_beg OrderType = iota
	OrderTypeMarket
	OrderTypeLimit
	_order_type_end
)

func (t OrderType) IsAvailable() bool {
	return t > _order_type_beg && t < _order_type_end
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "market"
	case OrderTypeLimit:
		return "limit"
	default:
		return "unknown"
	}
}

// OrderTimeInForce good-for-the-day, good-till-canceled, immediate-or-cancel
type OrderTimeInForce uint8

const (
	_order_tif_beg OrderTimeInForce = iota
	OrderTimeInForceGoodForTheDay
	OrderTimeInForceGoodTillCanceled
	OrderTimeInForceImmediateOrCancel
	_order_tif_end
)

func (f OrderTimeInForce) IsAvailable() bool {
	return f > _order_tif_beg && f < _order_tif_end
}

func (f OrderTimeInForce) String() string {
	switch f {
	case OrderTimeInForceGoodForTheDay:
		return "gfd"
	case OrderTimeInForceGoodTillCanceled:
		return "gtc"
	case OrderTimeInForceImmediateOrCancel:
		return "ioc"
	default:
		return "unknown"
	}
}

// OrderStatus lifecycle of an order from submission to a terminal state.
type OrderStatus uint8

const (
	_order_status_beg OrderStatus = iota
	OrderStatusPendingNew
	OrderStatusAccepted
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusPendingCancel
	OrderStatusCancelRejected
	OrderStatusCanceled
	OrderStatusDoneForDay
	_order_status_end
)

func (s OrderStatus) IsAvailable() bool {
	return s > _order_status_beg && s < _order_status_end
}

// IsTerminal reports whether no further transition can leave this status.
// CancelRejected is not terminal; a rejected cancel restores the prior
// working status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusDoneForDay:
		return true
	default:
		return false
	}
}

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPendingNew:
		return "pending_new"
	case OrderStatusAccepted:
		return "accepted"
	case OrderStatusPartiallyFilled:
		return "partially_filled"
	case OrderStatusFilled:
		return "filled"
	case OrderStatusPendingCancel:
		return "pending_cancel"
	case OrderStatusCancelRejected:
		return "cancel_rejected"
	case OrderStatusCanceled:
		return "canceled"
	case OrderStatusDoneForDay:
		return "done_for_day"
	default:
		return "unknown"
	}
}
