package exception

import "errors"

var (
	ErrOrderUnknownSymbol    = errors.New("order: unknown symbol")
	ErrOrderInvalidQuantity  = errors.New("order: invalid quantity")
	ErrOrderBelowMinQuantity = errors.New("order: quantity below minimum")
	ErrOrderMissingLimit     = errors.New("order: limit order without limit price")
	ErrOrderUnexpectedLimit  = errors.New("order: market order with limit price")
	ErrOrderInvalidSide      = errors.New("order: unsupported side")
	ErrOrderInvalidType      = errors.New("order: unsupported type")
	ErrOrderInvalidTIF       = errors.New("order: unsupported time in force")
	ErrOrderUnknownAccount   = errors.New("order: unknown account")
)
