package refdata

import (
	"context"
	"sort"
	"sync"

	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/pkg/exception"
)

// Source is the external reference-data provider used for the one-time
// bulk population.
type Source interface {
	FetchInstruments(ctx context.Context) ([]model.Instrument, error)
}

// Cache is a read-mostly symbol to instrument map. It is populated exactly
// once from its source on first use and read-only afterwards. Construct one
// at startup and hand it to dependents by reference.
type Cache struct {
	source Source

	gate sync.Mutex // serializes population; first caller wins, others wait

	mu        sync.RWMutex
	populated bool
	bySymbol  map[string]model.Instrument
}

// NewCache creates an unpopulated cache.
func NewCache(source Source) *Cache {
	return &Cache{
		source:   source,
		bySymbol: make(map[string]model.Instrument),
	}
}

// Ensure populates the cache if it has not been populated yet. Concurrent
// callers block until the single population completes, then read it.
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
		return exception.ErrNilInstance
	}
	instruments, err := c.source.FetchInstruments(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch instruments")
	}
	bySymbol := make(map[string]model.Instrument, len(instruments))
	for _, instrument := range instruments {
		bySymbol[instrument.Symbol] = instrument
	}

	c.mu.Lock()
	c.bySymbol = bySymbol
	c.populated = true
	c.mu.Unlock()
	return nil
}

// Lookup returns the instrument for a symbol. Unknown symbols are not an
// error; callers get ok=false.
func (c *Cache) Lookup(symbol string) (model.Instrument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	instrument, ok := c.bySymbol[symbol]
	return instrument, ok
}

// Instruments returns all instruments ordered by symbol.
func (c *Cache) Instruments() []model.Instrument {
	c.mu.RLock()
	out := make([]model.Instrument, 0, len(c.bySymbol))
	for _, instrument := range c.bySymbol {
		out = append(out, instrument)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
