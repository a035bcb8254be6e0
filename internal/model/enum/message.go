package enum

// MessageType discriminates messages in the exchange protocol envelope.
type MessageType uint8

const (
	_message_type_beg MessageType = iota
	MessageTypeNewOrder
	MessageTypeCancelRequest
	MessageTypeOrderAck
	MessageTypeCancelConfirm
	MessageTypeCancelReject
	MessageTypeExecutionReport
	MessageTypeMarketPrice
	_message_type_end
)

func (t MessageType) IsAvailable() bool {
	return t > _message_type_beg && t < _message_type_end
}

func (t MessageType) String() string {
	switch t {
	case MessageTypeNewOrder:
		return "new_order"
	case MessageTypeCancelRequest:
		return "cancel_request"
	case MessageTypeOrderAck:
		return "order_ack"
	case MessageTypeCancelConfirm:
		return "cancel_confirm"
	case MessageTypeCancelReject:
		return "cancel_reject"
	case MessageTypeExecutionReport:
		return "execution_report"
	case MessageTypeMarketPrice:
		return "market_price"
	default:
		return "unknown"
	}
}

// ParseMessageType maps the wire discriminator back to a MessageType.
func ParseMessageType(s string) (MessageType, bool) {
	for t := _message_type_beg + 1; t < _message_type_end; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return _message_type_beg, false
}
