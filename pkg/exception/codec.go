package exception

import "errors"

// Wire protocol errors
var (
	ErrInvalidPayload       = errors.New("codec: invalid payload")
	ErrUnknownMessageType   = errors.New("codec: unknown message type")
	ErrInvalidClientOrderID = errors.New("codec: invalid client order id")
	ErrInvalidBrokerID      = errors.New("codec: invalid broker id")
)
