package og

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

func newBuyLimit(id int64, qty int64) model.Order {
	limit := model.NewMoney(decimal.RequireFromString("25.50"), "USD")
	return model.Order{
		ID:            id,
		ClientOrderID: "JVEE-300",
		AccountID:     1,
		Symbol:        "AAPL",
		Side:          enum.OrderSideBuy,
		Quantity:      model.NewQuantity(qty),
		Type:          enum.OrderTypeLimit,
		LimitPrice:    &limit,
		TimeInForce:   enum.OrderTimeInForceGoodForTheDay,
	}
}

func exec(id string, qty int64, price string) model.Execution {
	return model.Execution{
		ID:        id,
		Quantity:  model.NewQuantity(qty),
		Price:     model.NewMoney(decimal.RequireFromString(price), "USD"),
		CreatedAt: time.Now(),
	}
}

func TestCreateForcesPendingNew(t *testing.T) {
	book := NewBook()
	in := newBuyLimit(300, 100)
	in.Status = enum.OrderStatusFilled
	in.CumQty = model.NewQuantity(100)

	order, err := book.Create(in)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusPendingNew, order.Status)
	assert.True(t, order.CumQty.IsZero())

	_, err = book.Create(in)
	require.ErrorIs(t, err, ErrDuplicateOrder)
}

func TestFillAccumulationToFilled(t *testing.T) {
	book := NewBook()
	_, err := book.Create(newBuyLimit(300, 100))
	require.NoError(t, err)

	_, changed, err := book.Accept(300)
	require.NoError(t, err)
	require.True(t, changed)

	order, applied, err := book.ApplyExecution(300, exec("E1", 40, "25.40"))
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, enum.OrderStatusPartiallyFilled, order.Status)
	assert.Zero(t, order.CumQty.Cmp(model.NewQuantity(40)))
	assert.Zero(t, order.LeavesQty().Cmp(model.NewQuantity(60)))

	order, applied, err = book.ApplyExecution(300, exec("E2", 60, "25.45"))
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, enum.OrderStatusFilled, order.Status)
	assert.True(t, order.LeavesQty().IsZero())
	assert.Len(t, order.Executions, 2)

	// terminal orders accept no further fills
	_, _, err = book.ApplyExecution(300, exec("E3", 1, "25.45"))
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestExecutionReplayAppliedOnce(t *testing.T) {
	book := NewBook()
	_, err := book.Create(newBuyLimit(300, 100))
	require.NoError(t, err)
	_, _, err = book.Accept(300)
	require.NoError(t, err)

	first := exec("E1", 40, "25.40")
	_, applied, err := book.ApplyExecution(300, first)
	require.NoError(t, err)
	require.True(t, applied)

	order, applied, err := book.ApplyExecution(300, first)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Zero(t, order.CumQty.Cmp(model.NewQuantity(40)))
	assert.Len(t, order.Executions, 1)
}

func TestOverfillRejected(t *testing.T) {
	book := NewBook()
	_, err := book.Create(newBuyLimit(300, 100))
	require.NoError(t, err)
	_, _, err = book.Accept(300)
	require.NoError(t, err)

	_, _, err = book.ApplyExecution(300, exec("E1", 150, "25.40"))
	require.ErrorIs(t, err, ErrInvalidExecution)

	order, ok := book.Order(300)
	require.True(t, ok)
	assert.Equal(t, enum.OrderStatusAccepted, order.Status)
	assert.True(t, order.CumQty.IsZero())

	// a rejected execution id is not consumed
	_, applied, err := book.ApplyExecution(300, exec("E1", 100, "25.40"))
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestAcceptIdempotent(t *testing.T) {
	book := NewBook()
	_, err := book.Create(newBuyLimit(300, 100))
	require.NoError(t, err)

	_, changed, err := book.Accept(300)
	require.NoError(t, err)
	require.True(t, changed)

	order, changed, err := book.Accept(300)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, enum.OrderStatusAccepted, order.Status)

	_, _, err = book.Accept(999)
	require.ErrorIs(t, err, ErrUnknownOrder)
}

func TestCancelRejectRestoresPriorStatus(t *testing.T) {
	book := NewBook()
	_, err := book.Create(newBuyLimit(300, 100))
	require.NoError(t, err)
	_, _, err = book.Accept(300)
	require.NoError(t, err)
	_, _, err = book.ApplyExecution(300, exec("E1", 40, "25.40"))
	require.NoError(t, err)

	order, err := book.RequestCancel(300)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusPendingCancel, order.Status)

	order, changed, err := book.RejectCancel(300)
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, enum.OrderStatusPartiallyFilled, order.Status)

	// a reject outside PendingCancel is a no-op
	order, changed, err = book.RejectCancel(300)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, enum.OrderStatusPartiallyFilled, order.Status)
}

func TestConfirmCancelIdempotent(t *testing.T) {
	book := NewBook()
	_, err := book.Create(newBuyLimit(300, 100))
	require.NoError(t, err)
	_, _, err = book.Accept(300)
	require.NoError(t, err)
	_, err = book.RequestCancel(300)
	require.NoError(t, err)

	order, changed, err := book.ConfirmCancel(300)
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, enum.OrderStatusCanceled, order.Status)

	order, changed, err = book.ConfirmCancel(300)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, enum.OrderStatusCanceled, order.Status)

	_, err = book.RequestCancel(300)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRequestCancelRequiresWorkingOrder(t *testing.T) {
	book := NewBook()
	_, err := book.Create(newBuyLimit(300, 100))
	require.NoError(t, err)

	_, err = book.RequestCancel(300)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDoneForDaySweep(t *testing.T) {
	book := NewBook()
	for id := int64(1); id <= 3; id++ {
		_, err := book.Create(newBuyLimit(id, 100))
		require.NoError(t, err)
		_, _, err = book.Accept(id)
		require.NoError(t, err)
	}
	_, _, err := book.ApplyExecution(2, exec("E1", 100, "25.40"))
	require.NoError(t, err)

	swept := book.DoneForDaySweep()
	assert.Len(t, swept, 2)

	order, ok := book.Order(2)
	require.True(t, ok)
	assert.Equal(t, enum.OrderStatusFilled, order.Status)
	for _, id := range []int64{1, 3} {
		order, ok := book.Order(id)
		require.True(t, ok)
		assert.Equal(t, enum.OrderStatusDoneForDay, order.Status)
	}
}

func TestDoneForDayRacesWithFills(t *testing.T) {
	book := NewBook()
	for id := int64(1); id <= 50; id++ {
		_, err := book.Create(newBuyLimit(id, 100))
		require.NoError(t, err)
		_, _, err = book.Accept(id)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for id := int64(1); id <= 50; id++ {
			_, _, _ = book.ApplyExecution(id, exec("E1", 100, "25.40"))
		}
	}()
	go func() {
		defer wg.Done()
		book.DoneForDaySweep()
	}()
	wg.Wait()

	// every order ends terminal, and a filled order is never overwritten
	for id := int64(1); id <= 50; id++ {
		order, ok := book.Order(id)
		require.True(t, ok)
		assert.True(t, order.Status.IsTerminal())
		if order.Status == enum.OrderStatusFilled {
			assert.Zero(t, order.CumQty.Cmp(model.NewQuantity(100)))
		} else {
			assert.Equal(t, enum.OrderStatusDoneForDay, order.Status)
		}
	}
}

func TestRestoreKeepsHistory(t *testing.T) {
	book := NewBook()
	persisted := newBuyLimit(300, 100)
	persisted.Status = enum.OrderStatusPartiallyFilled
	persisted.CumQty = model.NewQuantity(40)
	persisted.Executions = []model.Execution{exec("E1", 40, "25.40")}

	require.NoError(t, book.Restore(persisted))
	require.ErrorIs(t, book.Restore(persisted), ErrDuplicateOrder)

	// a replayed execution from before the restart is still a duplicate
	order, applied, err := book.ApplyExecution(300, exec("E1", 40, "25.40"))
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Zero(t, order.CumQty.Cmp(model.NewQuantity(40)))

	order, applied, err = book.ApplyExecution(300, exec("E2", 60, "25.45"))
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, enum.OrderStatusFilled, order.Status)
}
