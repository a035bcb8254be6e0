package repository

import (
	"context"
	"errors"

	"main/internal/model"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrOversoldHolding = errors.New("holdings smaller than sold quantity")
)

// OrderStore persists orders and their executions.
type OrderStore interface {
	NextOrderID(ctx context.Context) (int64, error)
	SaveOrder(ctx context.Context, order model.Order) error
	Order(ctx context.Context, id int64) (model.Order, error)
	OpenOrders(ctx context.Context) ([]model.Order, error)
}

// HoldingStore persists the open lots of each account.
type HoldingStore interface {
	ListByAccount(ctx context.Context, accountID int64) ([]model.Holding, error)
	Append(ctx context.Context, holding model.Holding) (model.Holding, error)
	// ConsumeFIFO removes quantity from the oldest lots of the symbol,
	// deleting emptied lots and shrinking the last partially consumed one.
	// Fails with ErrOversoldHolding if the account holds less than qty.
	ConsumeFIFO(ctx context.Context, accountID int64, symbol string, qty model.Quantity) error
}

// AccountStore resolves accounts and settles cash.
type AccountStore interface {
	Account(ctx context.Context, accountID int64) (model.Account, error)
	// AdjustCash applies a settlement delta; negative deltas are debits.
	AdjustCash(ctx context.Context, accountID int64, delta model.Money) (model.Account, error)
}

// SeedStore loads bootstrap reference data at startup.
type SeedStore interface {
	UpsertAccount(ctx context.Context, account model.Account) error
	UpsertInstrument(ctx context.Context, instrument model.Instrument) error
	UpsertQuote(ctx context.Context, price model.MarketPrice) error
}
