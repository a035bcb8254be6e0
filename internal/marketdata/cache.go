package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/pkg/exception"
)

// Source is the external quote provider used for the one-time bulk fetch.
type Source interface {
	FetchPrices(ctx context.Context) ([]model.MarketPrice, error)
}

// Cache maps symbol to last trade price. First access triggers a single
// bulk population; afterwards entries change only through Update, which
// overwrites the previous price and stamps a new effective time. Entries
// are never deleted.
type Cache struct {
	source Source

	gate sync.Mutex // serializes population; first caller wins, others wait

	mu        sync.RWMutex
	populated bool
	bySymbol  map[string]model.MarketPrice
	fetches   uint64
}

// NewCache creates an unpopulated cache.
func NewCache(source Source) *Cache {
	return &Cache{
		source:   source,
		bySymbol: make(map[string]model.MarketPrice),
	}
}

// Ensure runs the bulk population once. Concurrent callers block until the
// single population completes and then read the populated result.
func (c *Cache) Ensure(ctx context.Context) error {
	c.mu.RLock()
	populated := c.populated
	c.mu.RUnlock()
	if populated {
		return nil
	}

	c.gate.Lock()
	defer c.gate.Unlock()

	c.mu.RLock()
	populated = c.populated
	c.mu.RUnlock()
	if populated {
		return nil
	}

	if c.source == nil {
		return exception.ErrMarketDataNilSource
	}
	prices, err := c.source.FetchPrices(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch prices")
	}
	bySymbol := make(map[string]model.MarketPrice, len(prices))
	for _, price := range prices {
		bySymbol[price.Symbol] = price
	}

	c.mu.Lock()
	// Updates applied before the bulk fetch completed win over the snapshot.
	for symbol, price := range c.bySymbol {
		bySymbol[symbol] = price
	}
	c.bySymbol = bySymbol
	c.populated = true
	c.fetches++
	c.mu.Unlock()
	return nil
}

// GetPrice is the read path: it lazily populates, then looks up the symbol.
func (c *Cache) GetPrice(ctx context.Context, symbol string) (model.MarketPrice, bool, error) {
	if err := c.Ensure(ctx); err != nil {
		return model.MarketPrice{}, false, err
	}
	price, ok := c.Price(symbol)
	return price, ok, nil
}

// Price looks up the current entry without triggering population.
func (c *Cache) Price(symbol string) (model.MarketPrice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	price, ok := c.bySymbol[symbol]
	return price, ok
}

// Update overwrites the price for a symbol and stamps the effective time.
func (c *Cache) Update(symbol string, price model.Money, effective time.Time) model.MarketPrice {
	if effective.IsZero() {
		effective = time.Now()
	}
	entry := model.MarketPrice{Symbol: symbol, Price: price, Effective: effective}

	c.mu.Lock()
	c.bySymbol[symbol] = entry
	c.mu.Unlock()
	return entry
}

// Fetches reports how many bulk populations ran; used to assert the
// single-population guarantee.
func (c *Cache) Fetches() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetches
}
