package position

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model"
)

// Positions are aggregation nodes built fresh on every summary request.
// They are never cached or persisted; aggregate fields are derived from
// children, not independently mutated.

// Lot is a single acquisition of a security with its own valuation.
type Lot struct {
	ID          int64
	AcquiredAt  time.Time
	Quantity    model.Quantity
	PricePaid   model.Money
	MarketValue model.Money
	Gain        model.Money
}

// InstrumentPosition aggregates the open lots of one symbol, FIFO by
// acquisition time.
type InstrumentPosition struct {
	Symbol           string
	Name             string
	LastTradePrice   model.Money
	Quantity         model.Quantity
	MarketValue      model.Money
	Gain             model.Money
	AverageCostBasis model.Money
	PercentOfTotal   decimal.Decimal
	Lots             []Lot
}

// CashPosition is the account's cash balance.
type CashPosition struct {
	Amount         model.Money
	PercentOfTotal decimal.Decimal
}

// BrokerageAccountSummary is the read-only projection of one account's
// cash and instrument positions with portfolio roll-ups.
type BrokerageAccountSummary struct {
	AccountID   int64
	AccountName string
	Cash        CashPosition
	Instruments []InstrumentPosition
	TotalValue  model.Money
	TotalGain   model.Money
}
