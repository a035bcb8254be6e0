package og

import (
	"errors"
	"sync"
	"time"

	"main/internal/model"
	"main/internal/model/enum"
)

var (
	ErrDuplicateOrder    = errors.New("order already exists")
	ErrUnknownOrder      = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order state transition")
	ErrInvalidExecution  = errors.New("execution exceeds ordered quantity")
)

// managedOrder serializes all mutations of a single order. Different orders
// transition fully in parallel.
type managedOrder struct {
	mu      sync.Mutex
	order   model.Order
	prior   enum.OrderStatus    // status held immediately before PendingCancel
	applied map[string]struct{} // exchange execution ids already applied
}

// Book tracks the lifecycle of live orders and enforces transition rules.
type Book struct {
	mu     sync.RWMutex
	orders map[int64]*managedOrder
}

// NewBook creates an empty order book.
func NewBook() *Book {
	return &Book{orders: make(map[int64]*managedOrder)}
}

// Create registers an order in PendingNew with zero cumulative fill.
func (b *Book) Create(order model.Order) (model.Order, error) {
	if order.ID == 0 {
		return model.Order{}, ErrUnknownOrder
	}

	order.Status = enum.OrderStatusPendingNew
	order.CumQty = model.NewQuantity(0)
	order.Executions = nil
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orders[order.ID]; ok {
		return model.Order{}, ErrDuplicateOrder
	}
	b.orders[order.ID] = &managedOrder{
		order:   order,
		applied: make(map[string]struct{}),
	}
	return order, nil
}

// Restore re-registers a persisted order with its status, cumulative fill
// and execution history, e.g. when rebuilding the book at startup.
func (b *Book) Restore(order model.Order) error {
	if order.ID == 0 {
		return ErrUnknownOrder
	}
	applied := make(map[string]struct{}, len(order.Executions))
	for _, exec := range order.Executions {
		applied[exec.ID] = struct{}{}
	}
	prior := enum.OrderStatusAccepted
	if order.Status == enum.OrderStatusPendingCancel && !order.CumQty.IsZero() {
		prior = enum.OrderStatusPartiallyFilled
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orders[order.ID]; ok {
		return ErrDuplicateOrder
	}
	b.orders[order.ID] = &managedOrder{
		order:   cloneOrder(order),
		prior:   prior,
		applied: applied,
	}
	return nil
}

// Order returns a copy of the current order state.
func (b *Book) Order(id int64) (model.Order, bool) {
	mo := b.lookup(id)
	if mo == nil {
		return model.Order{}, false
	}
	mo.mu.Lock()
	defer mo.mu.Unlock()
	return cloneOrder(mo.order), true
}

// IDs returns a snapshot of all tracked order ids.
func (b *Book) IDs() []int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]int64, 0, len(b.orders))
	for id := range b.orders {
		out = append(out, id)
	}
	return out
}

// Accept moves PendingNew to Accepted. A duplicate acknowledgment on any
// other state is an idempotent no-op, not an error; redelivery is expected
// from an at-least-once transport.
func (b *Book) Accept(id int64) (model.Order, bool, error) {
	mo := b.lookup(id)
	if mo == nil {
		return model.Order{}, false, ErrUnknownOrder
	}
	mo.mu.Lock()
	defer mo.mu.Unlock()

	if mo.order.Status != enum.OrderStatusPendingNew {
		return cloneOrder(mo.order), false, nil
	}
	mo.order.Status = enum.OrderStatusAccepted
	return cloneOrder(mo.order), true, nil
}

// ApplyExecution adds a fill to an order in Accepted or PartiallyFilled.
// The exchange execution id is the idempotency key: a replayed id returns
// applied=false and leaves the order untouched. An overfill fails with
// ErrInvalidExecution and leaves state unchanged.
func (b *Book) ApplyExecution(id int64, exec model.Execution) (model.Order, bool, error) {
	mo := b.lookup(id)
	if mo == nil {
		return model.Order{}, false, ErrUnknownOrder
	}
	mo.mu.Lock()
	defer mo.mu.Unlock()

	if _, seen := mo.applied[exec.ID]; seen {
		return cloneOrder(mo.order), false, nil
	}

	switch mo.order.Status {
	case enum.OrderStatusAccepted, enum.OrderStatusPartiallyFilled:
	default:
		return cloneOrder(mo.order), false, ErrInvalidTransition
	}

	if !exec.Quantity.IsPositive() {
		return cloneOrder(mo.order), false, ErrInvalidExecution
	}
	cum := mo.order.CumQty.Add(exec.Quantity)
	if cum.Cmp(mo.order.Quantity) > 0 {
		return cloneOrder(mo.order), false, ErrInvalidExecution
	}

	if exec.CreatedAt.IsZero() {
		exec.CreatedAt = time.Now()
	}
	mo.order.CumQty = cum
	mo.order.Executions = append(mo.order.Executions, exec)
	if cum.Cmp(mo.order.Quantity) == 0 {
		mo.order.Status = enum.OrderStatusFilled
	} else {
		mo.order.Status = enum.OrderStatusPartiallyFilled
	}
	mo.applied[exec.ID] = struct{}{}
	return cloneOrder(mo.order), true, nil
}

// RequestCancel moves Accepted or PartiallyFilled to PendingCancel,
// remembering the prior status for a possible cancel reject.
func (b *Book) RequestCancel(id int64) (model.Order, error) {
	mo := b.lookup(id)
	if mo == nil {
		return model.Order{}, ErrUnknownOrder
	}
	mo.mu.Lock()
	defer mo.mu.Unlock()

	switch mo.order.Status {
	case enum.OrderStatusAccepted, enum.OrderStatusPartiallyFilled:
		mo.prior = mo.order.Status
		mo.order.Status = enum.OrderStatusPendingCancel
		return cloneOrder(mo.order), nil
	default:
		return cloneOrder(mo.order), ErrInvalidTransition
	}
}

// ConfirmCancel moves PendingCancel to Canceled. A redelivered confirmation
// on an already-canceled order is a no-op.
func (b *Book) ConfirmCancel(id int64) (model.Order, bool, error) {
	mo := b.lookup(id)
	if mo == nil {
		return model.Order{}, false, ErrUnknownOrder
	}
	mo.mu.Lock()
	defer mo.mu.Unlock()

	switch mo.order.Status {
	case enum.OrderStatusPendingCancel:
		mo.order.Status = enum.OrderStatusCanceled
		return cloneOrder(mo.order), true, nil
	case enum.OrderStatusCanceled:
		return cloneOrder(mo.order), false, nil
	default:
		return cloneOrder(mo.order), false, ErrInvalidTransition
	}
}

// RejectCancel reverts PendingCancel to the status held before the cancel
// request. On any other state it is a no-op; the reject may arrive after a
// racing fill already resolved the order.
func (b *Book) RejectCancel(id int64) (model.Order, bool, error) {
	mo := b.lookup(id)
	if mo == nil {
		return model.Order{}, false, ErrUnknownOrder
	}
	mo.mu.Lock()
	defer mo.mu.Unlock()

	if mo.order.Status != enum.OrderStatusPendingCancel {
		return cloneOrder(mo.order), false, nil
	}
	mo.order.Status = mo.prior
	return cloneOrder(mo.order), true, nil
}

// DoneForDay marks a non-terminal order DoneForDay at session close.
// Terminality is re-checked under the order lock so that an order racing
// into Filled stays Filled.
func (b *Book) DoneForDay(id int64) (model.Order, bool, error) {
	mo := b.lookup(id)
	if mo == nil {
		return model.Order{}, false, ErrUnknownOrder
	}
	mo.mu.Lock()
	defer mo.mu.Unlock()

	if mo.order.Status.IsTerminal() {
		return cloneOrder(mo.order), false, nil
	}
	mo.order.Status = enum.OrderStatusDoneForDay
	return cloneOrder(mo.order), true, nil
}

// DoneForDaySweep transitions every non-terminal order and returns the
// affected orders. It may run concurrently with live reconciliation.
func (b *Book) DoneForDaySweep() []model.Order {
	ids := b.IDs()
	swept := make([]model.Order, 0, len(ids))
	for _, id := range ids {
		order, changed, err := b.DoneForDay(id)
		if err != nil || !changed {
			continue
		}
		swept = append(swept, order)
	}
	return swept
}

func (b *Book) lookup(id int64) *managedOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.orders[id]
}

func cloneOrder(o model.Order) model.Order {
	out := o
	if len(o.Executions) > 0 {
		out.Executions = append([]model.Execution(nil), o.Executions...)
	}
	return out
}
