package brokerage

import (
	"context"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/bus"
	"main/internal/codec"
	"main/internal/marketdata"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/og"
	"main/internal/position"
	"main/internal/refdata"
	"main/internal/repository"
	"main/pkg/exception"
)

// Transport carries outbound protocol messages to the exchange. Sends may
// block on I/O; callers never hold an order's lock while sending.
type Transport interface {
	Send(ctx context.Context, m bus.Message) error
}

// QueueTransport backs the outbound path with a point-to-point queue.
type QueueTransport struct {
	queue *bus.Queue
}

// NewQueueTransport wraps the outbound queue.
func NewQueueTransport(queue *bus.Queue) *QueueTransport {
	return &QueueTransport{queue: queue}
}

func (t *QueueTransport) Send(ctx context.Context, m bus.Message) error {
	return t.queue.Publish(ctx, m)
}

// Config controls order validation and the client order id scheme.
type Config struct {
	BrokerID    string
	MinQuantity int64
}

// PlaceOrderRequest is the inbound order command from the presentation
// layer, before validation.
type PlaceOrderRequest struct {
	AccountID   int64
	Symbol      string
	Side        enum.OrderSide
	Quantity    model.Quantity
	Type        enum.OrderType
	LimitPrice  *model.Money
	TimeInForce enum.OrderTimeInForce
	AllOrNone   bool
}

// Usecase is the brokerage facade: order entry, cancellation and the query
// surface consumed by presentation-layer collaborators.
type Usecase struct {
	cfg         Config
	book        *og.Book
	orders      repository.OrderStore
	holdings    repository.HoldingStore
	accounts    repository.AccountStore
	instruments *refdata.Cache
	prices      *marketdata.Cache
	builder     *position.Builder
	outbound    Transport
}

// NewUsecase wires the facade.
func NewUsecase(
	cfg Config,
	book *og.Book,
	orders repository.OrderStore,
	holdings repository.HoldingStore,
	accounts repository.AccountStore,
	instruments *refdata.Cache,
	prices *marketdata.Cache,
	outbound Transport,
) *Usecase {
	if cfg.MinQuantity <= 0 {
		cfg.MinQuantity = 1
	}
	return &Usecase{
		cfg:         cfg,
		book:        book,
		orders:      orders,
		holdings:    holdings,
		accounts:    accounts,
		instruments: instruments,
		prices:      prices,
		builder:     position.NewBuilder(instruments, prices),
		outbound:    outbound,
	}
}

// PlaceOrder validates, registers and sends a new order. Validation
// failures reject synchronously and never reach the state machine. A send
// failure is returned to the caller as retryable; the order stays in
// PendingNew, which emits nothing until the exchange acknowledges.
func (use *Usecase) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (model.Order, error) {
	if err := use.validate(ctx, req); err != nil {
		return model.Order{}, err
	}

	id, err := use.orders.NextOrderID(ctx)
	if err != nil {
		return model.Order{}, errors.Wrap(err, "assign order id")
	}

	order := model.Order{
		ID:            id,
		ClientOrderID: codec.EncodeClientOrderID(use.cfg.BrokerID, id),
		AccountID:     req.AccountID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Quantity:      req.Quantity,
		Type:          req.Type,
		LimitPrice:    req.LimitPrice,
		TimeInForce:   req.TimeInForce,
		AllOrNone:     req.AllOrNone,
		CreatedAt:     time.Now(),
	}
	order, err = use.book.Create(order)
	if err != nil {
		return model.Order{}, errors.Wrap(err, "register order")
	}
	if err := use.orders.SaveOrder(ctx, order); err != nil {
		return model.Order{}, errors.Wrap(err, "persist order")
	}

	payload, err := codec.EncodeNewOrder(use.cfg.BrokerID, order)
	if err != nil {
		return model.Order{}, errors.Wrap(err, "encode new order")
	}
	if err := use.outbound.Send(ctx, bus.Message{
		Type:     enum.MessageTypeNewOrder,
		Payload:  payload,
		Received: time.Now(),
	}); err != nil {
		return order, errors.Wrap(err, "send new order").With("orderId", order.ID)
	}
	return order, nil
}

// CancelOrder requests cancellation at the exchange. The local transition
// to PendingCancel happens first (without holding the lock across the
// send); if the send fails the prior status is restored and the error is
// surfaced as retryable.
func (use *Usecase) CancelOrder(ctx context.Context, orderID int64) (model.Order, error) {
	order, err := use.book.RequestCancel(orderID)
	if err != nil {
		return model.Order{}, err
	}
	if err := use.orders.SaveOrder(ctx, order); err != nil {
		return model.Order{}, errors.Wrap(err, "persist order")
	}

	payload, err := codec.EncodeCancelRequest(use.cfg.BrokerID, order)
	if err != nil {
		return model.Order{}, errors.Wrap(err, "encode cancel request")
	}
	if err := use.outbound.Send(ctx, bus.Message{
		Type:     enum.MessageTypeCancelRequest,
		Payload:  payload,
		Received: time.Now(),
	}); err != nil {
		restored, _, restoreErr := use.book.RejectCancel(orderID)
		if restoreErr == nil {
			_ = use.orders.SaveOrder(ctx, restored)
		}
		return restored, errors.Wrap(err, "send cancel request").With("orderId", orderID)
	}
	return order, nil
}

// GetInstruments returns all known instruments ordered by symbol.
func (use *Usecase) GetInstruments(ctx context.Context) ([]model.Instrument, error) {
	if err := use.instruments.Ensure(ctx); err != nil {
		return nil, err
	}
	return use.instruments.Instruments(), nil
}

// Lookup resolves one symbol; unknown symbols return ok=false.
func (use *Usecase) Lookup(ctx context.Context, symbol string) (model.Instrument, bool, error) {
	if err := use.instruments.Ensure(ctx); err != nil {
		return model.Instrument{}, false, err
	}
	instrument, ok := use.instruments.Lookup(symbol)
	return instrument, ok, nil
}

// GetMarketPrice returns the last trade price for a symbol.
func (use *Usecase) GetMarketPrice(ctx context.Context, symbol string) (model.MarketPrice, bool, error) {
	return use.prices.GetPrice(ctx, symbol)
}

// GetBrokerageAccountSummary rebuilds the account projection from current
// holdings and prices.
func (use *Usecase) GetBrokerageAccountSummary(ctx context.Context, accountID int64) (position.BrokerageAccountSummary, error) {
	account, err := use.accounts.Account(ctx, accountID)
	if err != nil {
		return position.BrokerageAccountSummary{}, err
	}
	holdings, err := use.holdings.ListByAccount(ctx, accountID)
	if err != nil {
		return position.BrokerageAccountSummary{}, errors.Wrap(err, "load holdings")
	}
	if err := use.instruments.Ensure(ctx); err != nil {
		return position.BrokerageAccountSummary{}, err
	}
	if err := use.prices.Ensure(ctx); err != nil {
		return position.BrokerageAccountSummary{}, err
	}
	return use.builder.Summary(account, holdings)
}

func (use *Usecase) validate(ctx context.Context, req PlaceOrderRequest) error {
	if !req.Side.IsAvailable() {
		return exception.ErrOrderInvalidSide
	}
	if !req.Type.IsAvailable() {
		return exception.ErrOrderInvalidType
	}
	if !req.TimeInForce.IsAvailable() {
		return exception.ErrOrderInvalidTIF
	}
	if !req.Quantity.IsPositive() {
		return exception.ErrOrderInvalidQuantity
	}
	if req.Quantity.Cmp(model.NewQuantity(use.cfg.MinQuantity)) < 0 {
		return exception.ErrOrderBelowMinQuantity
	}
	if req.Type == enum.OrderTypeLimit && req.LimitPrice == nil {
		return exception.ErrOrderMissingLimit
	}
	if req.Type == enum.OrderTypeMarket && req.LimitPrice != nil {
		return exception.ErrOrderUnexpectedLimit
	}

	if err := use.instruments.Ensure(ctx); err != nil {
		return err
	}
	if _, ok := use.instruments.Lookup(req.Symbol); !ok {
		return errors.Wrap(exception.ErrOrderUnknownSymbol, "validate").With("symbol", req.Symbol)
	}
	if _, err := use.accounts.Account(ctx, req.AccountID); err != nil {
		return errors.Wrap(exception.ErrOrderUnknownAccount, "validate").With("accountId", req.AccountID)
	}
	return nil
}
