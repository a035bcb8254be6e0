package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model/enum"
)

func TestQueueTryPublishFull(t *testing.T) {
	q := NewQueue(2)
	require.NoError(t, q.TryPublish(Message{Type: enum.MessageTypeOrderAck}))
	require.NoError(t, q.TryPublish(Message{Type: enum.MessageTypeOrderAck}))
	require.ErrorIs(t, q.TryPublish(Message{Type: enum.MessageTypeOrderAck}), ErrQueueFull)
}

func TestQueuePublishBlocksUntilContextEnds(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Publish(t.Context(), Message{Type: enum.MessageTypeOrderAck}))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	err := q.Publish(ctx, Message{Type: enum.MessageTypeOrderAck})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueClosed(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	q.Close() // closing twice is safe
	require.ErrorIs(t, q.TryPublish(Message{}), ErrQueueClosed)
	require.ErrorIs(t, q.Publish(t.Context(), Message{}), ErrQueueClosed)
}

func TestQueueRunDrainsFIFO(t *testing.T) {
	q := NewQueue(8)
	for _, payload := range []string{"a", "b", "c"} {
		require.NoError(t, q.TryPublish(Message{
			Type:    enum.MessageTypeExecutionReport,
			Payload: []byte(payload),
		}))
	}
	q.Close()

	var got []string
	q.Run(t.Context(), func(m Message) {
		got = append(got, string(m.Payload))
	})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestQueuePublishUnblocksOnClose(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Publish(t.Context(), Message{Type: enum.MessageTypeOrderAck}))

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Publish(context.Background(), Message{Type: enum.MessageTypeOrderAck})
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()
	require.ErrorIs(t, <-errCh, ErrQueueClosed)
}

func TestQueueCloseRacesPublishers(t *testing.T) {
	q := NewQueue(4)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = q.TryPublish(Message{Type: enum.MessageTypeOrderAck})
		}
	}()

	q.Close()
	<-done // a publish racing Close must error, never panic
}

func TestTopicFanOut(t *testing.T) {
	topic := NewTopic[int]()
	a, cancelA := topic.Subscribe(4)
	b, cancelB := topic.Subscribe(4)
	defer cancelA()
	defer cancelB()

	require.NoError(t, topic.TryPublish(1))
	require.NoError(t, topic.TryPublish(2))

	for _, ch := range []<-chan int{a, b} {
		assert.Equal(t, 1, <-ch)
		assert.Equal(t, 2, <-ch)
	}
}

func TestTopicDropsForSlowSubscriber(t *testing.T) {
	topic := NewTopic[int]()
	_, cancel := topic.Subscribe(1)
	defer cancel()

	require.NoError(t, topic.TryPublish(1))
	require.NoError(t, topic.TryPublish(2))
	assert.Equal(t, uint64(1), topic.Dropped())
}

func TestTopicCancelAndClose(t *testing.T) {
	topic := NewTopic[int]()
	ch, cancel := topic.Subscribe(1)
	cancel()
	cancel() // double cancel is safe
	_, open := <-ch
	assert.False(t, open)

	topic.Close()
	require.ErrorIs(t, topic.TryPublish(1), ErrQueueClosed)

	late, _ := topic.Subscribe(1)
	_, open = <-late
	assert.False(t, open)
}
