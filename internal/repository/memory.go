package repository

import (
	"context"
	"sort"
	"sync"

	"main/internal/model"
)

// Memory is an in-process store used by tests and by the default wiring
// when no database is configured.
type Memory struct {
	mu            sync.Mutex
	nextOrderID   int64
	nextHoldingID int64
	orders        map[int64]model.Order
	holdings      map[int64][]model.Holding
	accounts      map[int64]model.Account
	instruments   map[string]model.Instrument
	quotes        map[string]model.MarketPrice
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		orders:      make(map[int64]model.Order),
		holdings:    make(map[int64][]model.Holding),
		accounts:    make(map[int64]model.Account),
		instruments: make(map[string]model.Instrument),
		quotes:      make(map[string]model.MarketPrice),
	}
}

// SeedAccount registers an account.
func (m *Memory) SeedAccount(account model.Account) {
	_ = m.UpsertAccount(context.Background(), account)
}

func (m *Memory) UpsertAccount(_ context.Context, account model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *Memory) UpsertInstrument(_ context.Context, instrument model.Instrument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instruments[instrument.Symbol] = instrument
	return nil
}

func (m *Memory) UpsertQuote(_ context.Context, price model.MarketPrice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[price.Symbol] = price
	return nil
}

// FetchInstruments serves the reference-data cache.
func (m *Memory) FetchInstruments(context.Context) ([]model.Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Instrument, 0, len(m.instruments))
	for _, instrument := range m.instruments {
		out = append(out, instrument)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

// FetchPrices serves the market-data cache's initial population.
func (m *Memory) FetchPrices(context.Context) ([]model.MarketPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.MarketPrice, 0, len(m.quotes))
	for _, price := range m.quotes {
		out = append(out, price)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *Memory) NextOrderID(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextOrderID++
	return m.nextOrderID, nil
}

func (m *Memory) SaveOrder(_ context.Context, order model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order.Executions = append([]model.Execution(nil), order.Executions...)
	m.orders[order.ID] = order
	return nil
}

func (m *Memory) Order(_ context.Context, id int64) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return model.Order{}, ErrOrderNotFound
	}
	order.Executions = append([]model.Execution(nil), order.Executions...)
	return order, nil
}

func (m *Memory) OpenOrders(context.Context) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Order, 0, len(m.orders))
	for _, order := range m.orders {
		if order.Status.IsTerminal() {
			continue
		}
		order.Executions = append([]model.Execution(nil), order.Executions...)
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListByAccount(_ context.Context, accountID int64) ([]model.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]model.Holding(nil), m.holdings[accountID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].AcquiredAt.Before(out[j].AcquiredAt) })
	return out, nil
}

func (m *Memory) Append(_ context.Context, holding model.Holding) (model.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if holding.ID == 0 {
		m.nextHoldingID++
		holding.ID = m.nextHoldingID
	}
	m.holdings[holding.AccountID] = append(m.holdings[holding.AccountID], holding)
	return holding, nil
}

func (m *Memory) ConsumeFIFO(_ context.Context, accountID int64, symbol string, qty model.Quantity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lots := m.holdings[accountID]
	sort.SliceStable(lots, func(i, j int) bool { return lots[i].AcquiredAt.Before(lots[j].AcquiredAt) })

	available := model.NewQuantity(0)
	for _, lot := range lots {
		if lot.Symbol == symbol {
			available = available.Add(lot.Quantity)
		}
	}
	if available.Cmp(qty) < 0 {
		return ErrOversoldHolding
	}

	remaining := qty
	next := lots[:0]
	for _, lot := range lots {
		if lot.Symbol != symbol || remaining.IsZero() {
			next = append(next, lot)
			continue
		}
		if lot.Quantity.Cmp(remaining) <= 0 {
			var err error
			if remaining, err = remaining.Sub(lot.Quantity); err != nil {
				return err
			}
			continue // lot fully consumed
		}
		shrunk, err := lot.Quantity.Sub(remaining)
		if err != nil {
			return err
		}
		lot.Quantity = shrunk
		remaining = model.NewQuantity(0)
		next = append(next, lot)
	}
	m.holdings[accountID] = next
	return nil
}

func (m *Memory) Account(_ context.Context, accountID int64) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return model.Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (m *Memory) AdjustCash(_ context.Context, accountID int64, delta model.Money) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return model.Account{}, ErrAccountNotFound
	}
	cash, err := account.Cash.Add(delta)
	if err != nil {
		return model.Account{}, err
	}
	account.Cash = cash
	m.accounts[accountID] = account
	return account, nil
}
