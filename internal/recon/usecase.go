package recon

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/bus"
	"main/internal/codec"
	"main/internal/marketdata"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/og"
	"main/internal/repository"
)

// OrderUpdate notifies downstream observers of an applied transition.
type OrderUpdate struct {
	Order model.Order
	Event enum.MessageType
}

// Config controls the reconciliation consumers.
type Config struct {
	BrokerID string
	Workers  int
}

// Usecase drains inbound exchange messages and applies them to local
// order, holding and price state. The transport is at-least-once; every
// handler is idempotent under redelivery, and a failing message is logged
// and consumed rather than retried forever.
type Usecase struct {
	cfg      Config
	book     *og.Book
	orders   repository.OrderStore
	holdings repository.HoldingStore
	accounts repository.AccountStore
	prices   *marketdata.Cache

	inbound    *bus.Queue
	priceTopic *bus.Topic[bus.Message]
	updates    *bus.Topic[OrderUpdate]
	metrics    *obs.Metrics

	running atomic.Bool
}

// NewUsecase wires the reconciliation layer.
func NewUsecase(
	cfg Config,
	book *og.Book,
	orders repository.OrderStore,
	holdings repository.HoldingStore,
	accounts repository.AccountStore,
	prices *marketdata.Cache,
	inbound *bus.Queue,
	priceTopic *bus.Topic[bus.Message],
	metrics *obs.Metrics,
) *Usecase {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Usecase{
		cfg:        cfg,
		book:       book,
		orders:     orders,
		holdings:   holdings,
		accounts:   accounts,
		prices:     prices,
		inbound:    inbound,
		priceTopic: priceTopic,
		updates:    bus.NewTopic[OrderUpdate](),
		metrics:    metrics,
	}
}

// Updates exposes the observer topic for applied order transitions.
func (use *Usecase) Updates() *bus.Topic[OrderUpdate] {
	return use.updates
}

// Run starts the queue workers and the price-topic consumer. Workers share
// the inbound queue; per-order serialization happens inside the book.
func (use *Usecase) Run(ctx context.Context) {
	if use.running.Swap(true) {
		return
	}

	for range use.cfg.Workers {
		go use.inbound.Run(ctx, func(m bus.Message) {
			use.consume(ctx, m)
		})
	}

	// subscribe before returning; a broadcast published right after Run
	// must already have a receiver attached
	ch, cancel := use.priceTopic.Subscribe(64)
	go use.consumePrices(ctx, ch, cancel)
}

// consume handles a single queue message. Nothing here may kill the
// worker: malformed payloads, unknown orders and invalid transitions are
// logged with context and the message is moved past.
func (use *Usecase) consume(ctx context.Context, m bus.Message) {
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("reconcile panic: %v, type %s, payload %q", r, m.Type, m.Payload)
		}
	}()

	envelope, err := codec.ParseEnvelope(m.Payload)
	if err != nil {
		use.metrics.ObserveProtocolError()
		logs.Warnf("drop unparseable message: %v, payload %q", err, m.Payload)
		return
	}
	use.metrics.ObserveMessage(envelope.Type)

	switch envelope.Type {
	case enum.MessageTypeOrderAck, enum.MessageTypeCancelConfirm, enum.MessageTypeCancelReject:
		use.consumeOrderEvent(ctx, envelope, m.Payload)
	case enum.MessageTypeExecutionReport:
		use.consumeExecutionReport(ctx, envelope, m.Payload)
	default:
		use.metrics.ObserveProtocolError()
		logs.Warnf("drop unexpected inbound type %s, payload %q", envelope.Type, m.Payload)
	}
}

func (use *Usecase) consumeOrderEvent(ctx context.Context, envelope *codec.Envelope, payload []byte) {
	event, err := codec.DecodeOrderEvent(envelope)
	if err != nil {
		use.metrics.ObserveProtocolError()
		logs.Warnf("drop malformed %s: %v, payload %q", envelope.Type, err, payload)
		return
	}
	orderID, ok := use.resolve(event.ClientOrderID, envelope.Type, payload)
	if !ok {
		return
	}

	var (
		order   model.Order
		changed bool
	)
	switch envelope.Type {
	case enum.MessageTypeOrderAck:
		order, changed, err = use.book.Accept(orderID)
	case enum.MessageTypeCancelConfirm:
		order, changed, err = use.book.ConfirmCancel(orderID)
	case enum.MessageTypeCancelReject:
		order, changed, err = use.book.RejectCancel(orderID)
	}
	if err != nil {
		use.observeTransitionError(err, orderID, envelope.Type, payload)
		return
	}
	if !changed {
		use.metrics.ObserveDuplicate()
		logs.Debugf("ignore replayed %s for order %d", envelope.Type, orderID)
		return
	}

	use.persist(ctx, order)
	use.publish(order, envelope.Type)
}

func (use *Usecase) consumeExecutionReport(ctx context.Context, envelope *codec.Envelope, payload []byte) {
	report, err := codec.DecodeExecutionReport(envelope)
	if err != nil {
		use.metrics.ObserveProtocolError()
		logs.Warnf("drop malformed execution report: %v, payload %q", err, payload)
		return
	}
	orderID, ok := use.resolve(report.ClientOrderID, envelope.Type, payload)
	if !ok {
		return
	}

	order, applied, err := use.book.ApplyExecution(orderID, model.Execution{
		ID:        report.ExecID,
		Quantity:  report.Quantity,
		Price:     report.Price,
		CreatedAt: report.TransactAt,
	})
	if err != nil {
		use.observeTransitionError(err, orderID, envelope.Type, payload)
		return
	}
	if !applied {
		use.metrics.ObserveDuplicate()
		logs.Debugf("ignore replayed execution %s for order %d", report.ExecID, orderID)
		return
	}

	use.settle(ctx, order, report)
	use.persist(ctx, order)
	use.publish(order, envelope.Type)
}

// settle mutates holdings and cash for an applied fill. A buy opens a new
// lot; a sell consumes the oldest lots of the symbol first.
func (use *Usecase) settle(ctx context.Context, order model.Order, report codec.ExecutionReport) {
	notional := report.Price.MulQuantity(report.Quantity)

	switch order.Side {
	case enum.OrderSideBuy:
		if _, err := use.holdings.Append(ctx, model.Holding{
			AccountID:  order.AccountID,
			Symbol:     order.Symbol,
			Quantity:   report.Quantity,
			PricePaid:  report.Price,
			AcquiredAt: report.TransactAt,
		}); err != nil {
			logs.Errorf("append lot failed: %v, order %d exec %s", err, order.ID, report.ExecID)
			return
		}
		debit := model.NewMoney(notional.Amount.Neg(), notional.Currency)
		if _, err := use.accounts.AdjustCash(ctx, order.AccountID, debit); err != nil {
			logs.Errorf("debit cash failed: %v, order %d exec %s", err, order.ID, report.ExecID)
		}
	case enum.OrderSideSell:
		if err := use.holdings.ConsumeFIFO(ctx, order.AccountID, order.Symbol, report.Quantity); err != nil {
			if errors.Is(err, repository.ErrOversoldHolding) {
				use.metrics.ObserveConsistencyError()
			}
			logs.Errorf("consume lots failed: %v, order %d exec %s", err, order.ID, report.ExecID)
			return
		}
		if _, err := use.accounts.AdjustCash(ctx, order.AccountID, notional); err != nil {
			logs.Errorf("credit cash failed: %v, order %d exec %s", err, order.ID, report.ExecID)
		}
	}
}

// consumePrices drains the market-price subscription into the price cache.
func (use *Usecase) consumePrices(ctx context.Context, ch <-chan bus.Message, cancel func()) {
	defer cancel()

	for {
		select {
		case <-sys.Shutdown():
			return
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			price, err := codec.DecodeMarketPrice(m.Payload)
			if err != nil {
				use.metrics.ObserveProtocolError()
				logs.Warnf("drop malformed market price: %v, payload %q", err, m.Payload)
				continue
			}
			use.metrics.ObserveMessage(enum.MessageTypeMarketPrice)
			use.prices.Update(price.Symbol, price.Price, price.Effective)
		}
	}
}

// resolve maps a client order id to the local order id, dropping messages
// for other brokers or unknown orders.
func (use *Usecase) resolve(clientOrderID string, msgType enum.MessageType, payload []byte) (int64, bool) {
	brokerID, orderID, err := codec.DecodeClientOrderID(clientOrderID)
	if err != nil {
		use.metrics.ObserveProtocolError()
		logs.Warnf("drop %s with bad client order id: %v, payload %q", msgType, err, payload)
		return 0, false
	}
	if use.cfg.BrokerID != "" && brokerID != use.cfg.BrokerID {
		use.metrics.ObserveUnknownOrder()
		logs.Warnf("drop %s for foreign broker %s, payload %q", msgType, brokerID, payload)
		return 0, false
	}
	return orderID, true
}

func (use *Usecase) observeTransitionError(err error, orderID int64, msgType enum.MessageType, payload []byte) {
	switch {
	case errors.Is(err, og.ErrUnknownOrder):
		use.metrics.ObserveUnknownOrder()
	default:
		use.metrics.ObserveConsistencyError()
	}
	logs.Warnf("drop %s for order %d: %v, payload %q", msgType, orderID, err, payload)
}

func (use *Usecase) persist(ctx context.Context, order model.Order) {
	if err := use.orders.SaveOrder(ctx, order); err != nil {
		logs.Errorf("persist order %d failed: %v", order.ID, err)
	}
}

func (use *Usecase) publish(order model.Order, event enum.MessageType) {
	if err := use.updates.TryPublish(OrderUpdate{Order: order, Event: event}); err != nil {
		logs.Debugf("order update not published: %v", err)
	}
}
