package exception

import "errors"

var ErrMarketDataNilSource = errors.New("market data: nil source")
