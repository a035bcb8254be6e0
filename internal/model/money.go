package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrCurrencyMismatch = errors.New("currency codes do not match")
	ErrNegativeQuantity = errors.New("quantity result is negative")
)

// MoneyScale is the fixed decimal scale for currency amounts.
const MoneyScale int32 = 2

// DefaultCurrency applies when a payload or config omits the currency.
const DefaultCurrency = "USD"

// Money is a fixed-scale currency amount with an ISO-4217 currency code.
// Arithmetic between two Money values requires matching currency codes.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney builds a Money normalized to MoneyScale.
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount.Round(MoneyScale), Currency: currency}
}

// MoneyFromString parses a decimal string into a Money.
func MoneyFromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, err
	}
	return NewMoney(d, currency), nil
}

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return NewMoney(m.Amount.Add(other.Amount), m.Currency), nil
}

func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return NewMoney(m.Amount.Sub(other.Amount), m.Currency), nil
}

// MulQuantity scales the amount by a share quantity.
func (m Money) MulQuantity(q Quantity) Money {
	return NewMoney(m.Amount.Mul(q.value), m.Currency)
}

// Cmp compares scale-normalized amounts. Currencies must match; callers
// compare only within one account's currency.
func (m Money) Cmp(other Money) (int, error) {
	if m.Currency != other.Currency {
		return 0, ErrCurrencyMismatch
	}
	return m.Amount.Cmp(other.Amount), nil
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(MoneyScale), m.Currency)
}

// Quantity is a whole-unit share count (decimal scale 0).
type Quantity struct {
	value decimal.Decimal
}

// NewQuantity builds a Quantity truncated to whole units.
func NewQuantity(units int64) Quantity {
	return Quantity{value: decimal.NewFromInt(units)}
}

// QuantityFromDecimal truncates a decimal to whole units.
func QuantityFromDecimal(d decimal.Decimal) Quantity {
	return Quantity{value: d.Round(0)}
}

// QuantityFromString parses a whole-unit quantity string.
func QuantityFromString(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{value: d.Round(0)}, nil
}

func (q Quantity) Add(other Quantity) Quantity {
	return Quantity{value: q.value.Add(other.value)}
}

// Sub rejects results below zero; domain invariants (a lot cannot be
// oversold) require non-negative quantities.
func (q Quantity) Sub(other Quantity) (Quantity, error) {
	next := q.value.Sub(other.value)
	if next.IsNegative() {
		return Quantity{}, ErrNegativeQuantity
	}
	return Quantity{value: next}, nil
}

func (q Quantity) Cmp(other Quantity) int {
	return q.value.Cmp(other.value)
}

func (q Quantity) IsZero() bool {
	return q.value.IsZero()
}

func (q Quantity) IsPositive() bool {
	return q.value.IsPositive()
}

// Decimal exposes the underlying value for aggregation math.
func (q Quantity) Decimal() decimal.Decimal {
	return q.value
}

func (q Quantity) String() string {
	return q.value.StringFixed(0)
}
