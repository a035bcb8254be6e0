package model

import "time"

// Instrument is an immutable tradable security. Identity is the symbol;
// name and exchange are descriptive only.
type Instrument struct {
	Symbol   string
	Name     string
	Exchange string
}

// Less orders instruments by symbol.
func (i Instrument) Less(other Instrument) bool {
	return i.Symbol < other.Symbol
}

// MarketPrice is the last known trade price for a symbol. Entries are
// created once and overwritten by price-change events; never deleted.
type MarketPrice struct {
	Symbol    string
	Price     Money
	Effective time.Time
}
