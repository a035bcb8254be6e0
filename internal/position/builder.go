package position

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"main/internal/model"
)

// InstrumentLookup resolves reference data for a symbol.
type InstrumentLookup interface {
	Lookup(symbol string) (model.Instrument, bool)
}

// PriceLookup resolves the last trade price for a symbol.
type PriceLookup interface {
	Price(symbol string) (model.MarketPrice, bool)
}

// Builder computes account summaries. It holds no mutable state; every
// request recomputes from the account's holdings and current prices.
type Builder struct {
	instruments InstrumentLookup
	prices      PriceLookup
}

// NewBuilder wires the builder to its reference and market data sources.
func NewBuilder(instruments InstrumentLookup, prices PriceLookup) *Builder {
	return &Builder{instruments: instruments, prices: prices}
}

// Summary builds the account projection. Instruments whose total quantity
// is zero are dropped rather than shown with an undefined average cost.
func (b *Builder) Summary(account model.Account, holdings []model.Holding) (BrokerageAccountSummary, error) {
	bySymbol := make(map[string][]model.Holding)
	symbols := make([]string, 0)
	for _, h := range holdings {
		if _, ok := bySymbol[h.Symbol]; !ok {
			symbols = append(symbols, h.Symbol)
		}
		bySymbol[h.Symbol] = append(bySymbol[h.Symbol], h)
	}
	sort.Strings(symbols)

	currency := account.Cash.Currency
	instruments := make([]InstrumentPosition, 0, len(symbols))
	for _, symbol := range symbols {
		pos, ok, err := b.buildInstrument(symbol, currency, bySymbol[symbol])
		if err != nil {
			return BrokerageAccountSummary{}, errors.Wrap(err, "build instrument position").With("symbol", symbol)
		}
		if ok {
			instruments = append(instruments, pos)
		}
	}

	total := account.Cash
	totalGain := model.NewMoney(decimal.Zero, currency)
	var err error
	for _, pos := range instruments {
		if total, err = total.Add(pos.MarketValue); err != nil {
			return BrokerageAccountSummary{}, err
		}
		if totalGain, err = totalGain.Add(pos.Gain); err != nil {
			return BrokerageAccountSummary{}, err
		}
	}

	for i := range instruments {
		instruments[i].PercentOfTotal = percentOf(instruments[i].MarketValue, total)
	}

	return BrokerageAccountSummary{
		AccountID:   account.ID,
		AccountName: account.Name,
		Cash: CashPosition{
			Amount:         account.Cash,
			PercentOfTotal: percentOf(account.Cash, total),
		},
		Instruments: instruments,
		TotalValue:  total,
		TotalGain:   totalGain,
	}, nil
}

func (b *Builder) buildInstrument(symbol, currency string, holdings []model.Holding) (InstrumentPosition, bool, error) {
	sort.SliceStable(holdings, func(i, j int) bool {
		return holdings[i].AcquiredAt.Before(holdings[j].AcquiredAt)
	})

	totalQty := model.NewQuantity(0)
	totalCost := decimal.Zero
	for _, h := range holdings {
		totalQty = totalQty.Add(h.Quantity)
		totalCost = totalCost.Add(h.PricePaid.Amount.Mul(h.Quantity.Decimal()))
	}
	if totalQty.IsZero() {
		return InstrumentPosition{}, false, nil
	}

	averageCost := model.NewMoney(totalCost.DivRound(totalQty.Decimal(), model.MoneyScale), currency)

	lastTrade := averageCost
	if quote, ok := b.prices.Price(symbol); ok {
		lastTrade = quote.Price
	}

	name := symbol
	if instrument, ok := b.instruments.Lookup(symbol); ok {
		name = instrument.Name
	}

	pos := InstrumentPosition{
		Symbol:           symbol,
		Name:             name,
		LastTradePrice:   lastTrade,
		Quantity:         totalQty,
		MarketValue:      model.NewMoney(decimal.Zero, currency),
		Gain:             model.NewMoney(decimal.Zero, currency),
		AverageCostBasis: averageCost,
		Lots:             make([]Lot, 0, len(holdings)),
	}

	for _, h := range holdings {
		marketValue := lastTrade.MulQuantity(h.Quantity)
		cost := h.PricePaid.MulQuantity(h.Quantity)
		gain, err := marketValue.Sub(cost)
		if err != nil {
			return InstrumentPosition{}, false, err
		}
		pos.Lots = append(pos.Lots, Lot{
			ID:          h.ID,
			AcquiredAt:  h.AcquiredAt,
			Quantity:    h.Quantity,
			PricePaid:   h.PricePaid,
			MarketValue: marketValue,
			Gain:        gain,
		})
		if pos.MarketValue, err = pos.MarketValue.Add(marketValue); err != nil {
			return InstrumentPosition{}, false, err
		}
		if pos.Gain, err = pos.Gain.Add(gain); err != nil {
			return InstrumentPosition{}, false, err
		}
	}
	return pos, true, nil
}

// percentOf returns value/total as a percentage, 0 when total is 0.
func percentOf(value, total model.Money) decimal.Decimal {
	if total.Amount.IsZero() {
		return decimal.Zero
	}
	return value.Amount.Mul(decimal.NewFromInt(100)).DivRound(total.Amount, 2)
}
