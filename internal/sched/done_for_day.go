package sched

import (
	"context"

	"github.com/yanun0323/logs"

	"main/internal/model"
	"main/internal/og"
	"main/internal/repository"
)

// DoneForDayJob closes out every non-terminal order at session end.
type DoneForDayJob struct {
	book   *og.Book
	orders repository.OrderStore
	notify func(order model.Order)
}

// NewDoneForDayJob wires the sweep. notify may be nil.
func NewDoneForDayJob(book *og.Book, orders repository.OrderStore, notify func(order model.Order)) *DoneForDayJob {
	return &DoneForDayJob{book: book, orders: orders, notify: notify}
}

func (j *DoneForDayJob) Name() string { return "done-for-day" }

// Run sweeps the book, persists each swept order and notifies observers.
// The sweep may race live fills; orders that reach a terminal state first
// are left untouched.
func (j *DoneForDayJob) Run() error {
	ctx := context.Background()
	swept := j.book.DoneForDaySweep()
	for _, order := range swept {
		if err := j.orders.SaveOrder(ctx, order); err != nil {
			logs.Errorf("persist done-for-day order %d failed: %v", order.ID, err)
			continue
		}
		if j.notify != nil {
			j.notify(order)
		}
	}
	logs.Infof("done-for-day sweep closed %d orders", len(swept))
	return nil
}
