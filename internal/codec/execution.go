package codec

import (
	"time"

	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

// OrderEvent is an inbound acknowledgment, cancel confirmation or cancel
// reject; all three carry only the correlating client order id.
type OrderEvent struct {
	Type          enum.MessageType
	ClientOrderID string
}

// ExecutionReport is an inbound fill against a previously placed order.
type ExecutionReport struct {
	ExecID        string
	ClientOrderID string
	Quantity      model.Quantity
	Price         model.Money
	TransactAt    time.Time
}

// EncodeOrderEvent serializes an ack/cancel-confirm/cancel-reject message.
func EncodeOrderEvent(event OrderEvent) ([]byte, error) {
	if !event.Type.IsAvailable() {
		return nil, errors.Wrap(exception.ErrUnknownMessageType, "encode order event")
	}
	return NewEnvelope(event.Type).
		Set("clordid", event.ClientOrderID).
		Encode()
}

// DecodeOrderEvent reads the client order id out of a decoded envelope.
func DecodeOrderEvent(e *Envelope) (OrderEvent, error) {
	switch e.Type {
	case enum.MessageTypeOrderAck, enum.MessageTypeCancelConfirm, enum.MessageTypeCancelReject:
	default:
		return OrderEvent{}, errors.Wrap(exception.ErrUnknownMessageType, "decode order event").With("type", e.Type.String())
	}
	clordid, err := e.Require("clordid")
	if err != nil {
		return OrderEvent{}, err
	}
	return OrderEvent{Type: e.Type, ClientOrderID: clordid}, nil
}

// EncodeExecutionReport serializes a fill report.
func EncodeExecutionReport(report ExecutionReport) ([]byte, error) {
	return NewEnvelope(enum.MessageTypeExecutionReport).
		Set("execId", report.ExecID).
		Set("clordid", report.ClientOrderID).
		Set("qty", report.Quantity.String()).
		Set("price", report.Price.Amount.StringFixed(model.MoneyScale)).
		Set("currency", report.Price.Currency).
		Set("transactAt", report.TransactAt.Format(time.RFC3339)).
		Encode()
}

// DecodeExecutionReport parses a fill report from a decoded envelope.
func DecodeExecutionReport(e *Envelope) (ExecutionReport, error) {
	if e.Type != enum.MessageTypeExecutionReport {
		return ExecutionReport{}, errors.Wrap(exception.ErrUnknownMessageType, "decode execution report").With("type", e.Type.String())
	}

	var report ExecutionReport
	var err error
	if report.ExecID, err = e.Require("execId"); err != nil {
		return ExecutionReport{}, err
	}
	if report.ClientOrderID, err = e.Require("clordid"); err != nil {
		return ExecutionReport{}, err
	}

	rawQty, err := e.Require("qty")
	if err != nil {
		return ExecutionReport{}, err
	}
	if report.Quantity, err = model.QuantityFromString(rawQty); err != nil {
		return ExecutionReport{}, errors.Wrap(exception.ErrInvalidPayload, "parse qty").With("qty", rawQty)
	}
	if !report.Quantity.IsPositive() {
		return ExecutionReport{}, errors.Wrap(exception.ErrInvalidPayload, "non-positive qty").With("qty", rawQty)
	}

	rawPrice, err := e.Require("price")
	if err != nil {
		return ExecutionReport{}, err
	}
	currency, err := e.Require("currency")
	if err != nil {
		return ExecutionReport{}, err
	}
	if report.Price, err = model.MoneyFromString(rawPrice, currency); err != nil {
		return ExecutionReport{}, errors.Wrap(exception.ErrInvalidPayload, "parse price").With("price", rawPrice)
	}

	rawTs, err := e.Require("transactAt")
	if err != nil {
		return ExecutionReport{}, err
	}
	if report.TransactAt, err = time.Parse(time.RFC3339, rawTs); err != nil {
		return ExecutionReport{}, errors.Wrap(exception.ErrInvalidPayload, "parse transactAt").With("transactAt", rawTs)
	}
	return report, nil
}
