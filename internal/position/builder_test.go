package position

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
)

type stubInstruments map[string]model.Instrument

func (s stubInstruments) Lookup(symbol string) (model.Instrument, bool) {
	instrument, ok := s[symbol]
	return instrument, ok
}

type stubPrices map[string]model.MarketPrice

func (s stubPrices) Price(symbol string) (model.MarketPrice, bool) {
	price, ok := s[symbol]
	return price, ok
}

func usd(s string) model.Money {
	return model.NewMoney(decimal.RequireFromString(s), "USD")
}

func TestSummarySingleLotGain(t *testing.T) {
	builder := NewBuilder(
		stubInstruments{"AAPL": {Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ"}},
		stubPrices{"AAPL": {Symbol: "AAPL", Price: usd("20.00")}},
	)
	account := model.Account{ID: 1, Name: "cash account", Cash: usd("1000.00")}
	holdings := []model.Holding{
		{ID: 1, AccountID: 1, Symbol: "AAPL", Quantity: model.NewQuantity(100), PricePaid: usd("10.00"), AcquiredAt: time.Now()},
	}

	summary, err := builder.Summary(account, holdings)
	require.NoError(t, err)

	require.Len(t, summary.Instruments, 1)
	pos := summary.Instruments[0]
	assert.Equal(t, "Apple Inc.", pos.Name)
	assert.Equal(t, "2000.00 USD", pos.MarketValue.String())
	assert.Equal(t, "1000.00 USD", pos.Gain.String())
	assert.Equal(t, "10.00 USD", pos.AverageCostBasis.String())
	assert.Equal(t, "20.00 USD", pos.LastTradePrice.String())

	assert.Equal(t, "3000.00 USD", summary.TotalValue.String())
	assert.Equal(t, "1000.00 USD", summary.TotalGain.String())
	assert.Equal(t, "66.67", pos.PercentOfTotal.StringFixed(2))
	assert.Equal(t, "33.33", summary.Cash.PercentOfTotal.StringFixed(2))
}

func TestSummaryFIFOLotOrderAndAverageCost(t *testing.T) {
	builder := NewBuilder(stubInstruments{}, stubPrices{
		"AAPL": {Symbol: "AAPL", Price: usd("15.00")},
	})
	account := model.Account{ID: 1, Name: "acct", Cash: usd("0.00")}
	t0 := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	holdings := []model.Holding{
		// deliberately newest first; lots must come back oldest first
		{ID: 2, Symbol: "AAPL", Quantity: model.NewQuantity(50), PricePaid: usd("20.00"), AcquiredAt: t0.Add(time.Hour)},
		{ID: 1, Symbol: "AAPL", Quantity: model.NewQuantity(100), PricePaid: usd("10.00"), AcquiredAt: t0},
	}

	summary, err := builder.Summary(account, holdings)
	require.NoError(t, err)
	require.Len(t, summary.Instruments, 1)
	pos := summary.Instruments[0]

	require.Len(t, pos.Lots, 2)
	assert.Equal(t, int64(1), pos.Lots[0].ID)
	assert.Equal(t, int64(2), pos.Lots[1].ID)

	// (100*10 + 50*20) / 150 = 13.33
	assert.Equal(t, "13.33 USD", pos.AverageCostBasis.String())
	assert.Equal(t, "2250.00 USD", pos.MarketValue.String())
	// per-lot gains: 100*(15-10)=500, 50*(15-20)=-250
	assert.Equal(t, "500.00 USD", pos.Lots[0].Gain.String())
	assert.Equal(t, "-250.00 USD", pos.Lots[1].Gain.String())
	assert.Equal(t, "250.00 USD", pos.Gain.String())
}

func TestSummaryDropsZeroQuantityInstrument(t *testing.T) {
	builder := NewBuilder(stubInstruments{}, stubPrices{})
	account := model.Account{ID: 1, Name: "acct", Cash: usd("100.00")}
	holdings := []model.Holding{
		{ID: 1, Symbol: "AAPL", Quantity: model.NewQuantity(0), PricePaid: usd("10.00")},
	}

	summary, err := builder.Summary(account, holdings)
	require.NoError(t, err)
	assert.Empty(t, summary.Instruments)
	assert.Equal(t, "100.00 USD", summary.TotalValue.String())
}

func TestSummaryFallsBackToAverageCostWithoutQuote(t *testing.T) {
	builder := NewBuilder(stubInstruments{}, stubPrices{})
	account := model.Account{ID: 1, Name: "acct", Cash: usd("0.00")}
	holdings := []model.Holding{
		{ID: 1, Symbol: "NOQUOTE", Quantity: model.NewQuantity(10), PricePaid: usd("12.00")},
	}

	summary, err := builder.Summary(account, holdings)
	require.NoError(t, err)
	require.Len(t, summary.Instruments, 1)
	pos := summary.Instruments[0]
	assert.Equal(t, "12.00 USD", pos.LastTradePrice.String())
	assert.Equal(t, "NOQUOTE", pos.Name)
	assert.True(t, pos.Gain.IsZero())
}

func TestSummaryInstrumentsSortedBySymbol(t *testing.T) {
	builder := NewBuilder(stubInstruments{}, stubPrices{})
	account := model.Account{ID: 1, Name: "acct", Cash: usd("0.00")}
	holdings := []model.Holding{
		{ID: 1, Symbol: "MSFT", Quantity: model.NewQuantity(1), PricePaid: usd("1.00")},
		{ID: 2, Symbol: "AAPL", Quantity: model.NewQuantity(1), PricePaid: usd("1.00")},
	}

	summary, err := builder.Summary(account, holdings)
	require.NoError(t, err)
	require.Len(t, summary.Instruments, 2)
	assert.Equal(t, "AAPL", summary.Instruments[0].Symbol)
	assert.Equal(t, "MSFT", summary.Instruments[1].Symbol)
}
