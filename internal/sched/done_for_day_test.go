package sched

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/og"
	"main/internal/repository"
)

func TestDoneForDayJobSweepsAndPersists(t *testing.T) {
	mem := repository.NewMemory()
	book := og.NewBook()

	for id := int64(1); id <= 2; id++ {
		order := model.Order{
			ID:            id,
			ClientOrderID: "JVEE-1",
			AccountID:     1,
			Symbol:        "AAPL",
			Side:          enum.OrderSideBuy,
			Quantity:      model.NewQuantity(10),
			Type:          enum.OrderTypeMarket,
			TimeInForce:   enum.OrderTimeInForceGoodForTheDay,
		}
		created, err := book.Create(order)
		require.NoError(t, err)
		require.NoError(t, mem.SaveOrder(context.Background(), created))
	}
	_, _, err := book.Accept(1)
	require.NoError(t, err)

	var notified []int64
	job := NewDoneForDayJob(book, mem, func(order model.Order) {
		notified = append(notified, order.ID)
	})
	assert.Equal(t, "done-for-day", job.Name())
	require.NoError(t, job.Run())

	assert.Len(t, notified, 2)
	for id := int64(1); id <= 2; id++ {
		persisted, err := mem.Order(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, enum.OrderStatusDoneForDay, persisted.Status)
	}

	// a second sweep finds nothing left to close
	notified = nil
	require.NoError(t, job.Run())
	assert.Empty(t, notified)
}

func TestSchedulerRejectsBadCron(t *testing.T) {
	s := New()
	err := s.AddJob("not a cron expression", NewDoneForDayJob(og.NewBook(), repository.NewMemory(), nil))
	require.Error(t, err)
}
