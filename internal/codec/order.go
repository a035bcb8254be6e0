package codec

import (
	"strconv"
	"time"

	"main/internal/model"
	"main/internal/model/enum"
)

// EncodeNewOrder serializes an outbound new-order command.
func EncodeNewOrder(brokerID string, order model.Order) ([]byte, error) {
	e := NewEnvelope(enum.MessageTypeNewOrder).
		Set("clordid", EncodeClientOrderID(brokerID, order.ID)).
		Set("symbol", order.Symbol).
		Set("side", order.Side.String()).
		Set("qty", order.Quantity.String()).
		Set("ordType", order.Type.String())
	if order.Type == enum.OrderTypeLimit && order.LimitPrice != nil {
		e.Set("price", order.LimitPrice.Amount.StringFixed(model.MoneyScale)).
			Set("currency", order.LimitPrice.Currency)
	}
	e.Set("tif", order.TimeInForce.String()).
		Set("allOrNone", strconv.FormatBool(order.AllOrNone)).
		Set("createdAt", order.CreatedAt.Format(time.RFC3339)).
		Set("status", order.Status.String())
	return e.Encode()
}

// EncodeCancelRequest serializes an outbound cancel command referencing the
// same client order id as the original order.
func EncodeCancelRequest(brokerID string, order model.Order) ([]byte, error) {
	return NewEnvelope(enum.MessageTypeCancelRequest).
		Set("clordid", EncodeClientOrderID(brokerID, order.ID)).
		Set("symbol", order.Symbol).
		Set("side", order.Side.String()).
		Set("qty", order.Quantity.String()).
		Set("createdAt", order.CreatedAt.Format(time.RFC3339)).
		Set("status", order.Status.String()).
		Encode()
}
