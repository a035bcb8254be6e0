package codec

import (
	"time"

	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/pkg/exception"
)

// Market-price broadcasts use the bare property-list form without a type
// line; the topic itself identifies the payload.

// EncodeMarketPrice renders "symbol=..\nprice=..\ncurrency=..\neffective=..\n".
func EncodeMarketPrice(price model.MarketPrice) ([]byte, error) {
	e := &Envelope{fields: make(map[string]string)}
	e.Set("symbol", price.Symbol).
		Set("price", price.Price.Amount.StringFixed(model.MoneyScale)).
		Set("currency", price.Price.Currency).
		Set("effective", price.Effective.Format(time.RFC3339))
	return e.Encode()
}

// DecodeMarketPrice parses a market-price broadcast payload.
func DecodeMarketPrice(payload []byte) (model.MarketPrice, error) {
	e, err := parseFields(payload)
	if err != nil {
		return model.MarketPrice{}, err
	}

	symbol, err := e.Require("symbol")
	if err != nil {
		return model.MarketPrice{}, err
	}
	rawPrice, err := e.Require("price")
	if err != nil {
		return model.MarketPrice{}, err
	}
	currency, err := e.Require("currency")
	if err != nil {
		return model.MarketPrice{}, err
	}
	price, err := model.MoneyFromString(rawPrice, currency)
	if err != nil {
		return model.MarketPrice{}, errors.Wrap(exception.ErrInvalidPayload, "parse price").With("price", rawPrice)
	}

	rawEffective, err := e.Require("effective")
	if err != nil {
		return model.MarketPrice{}, err
	}
	effective, err := time.Parse(time.RFC3339, rawEffective)
	if err != nil {
		return model.MarketPrice{}, errors.Wrap(exception.ErrInvalidPayload, "parse effective").With("effective", rawEffective)
	}

	return model.MarketPrice{Symbol: symbol, Price: price, Effective: effective}, nil
}
