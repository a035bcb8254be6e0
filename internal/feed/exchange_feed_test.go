package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/bus"
	"main/internal/model/enum"
	"main/internal/obs"
)

func newTestFeed(t *testing.T) (*ExchangeFeed, *bus.Queue, *bus.Topic[bus.Message], *obs.Metrics) {
	t.Helper()
	inbound := bus.NewQueue(4)
	prices := bus.NewTopic[bus.Message]()
	metrics := obs.NewMetrics()
	f := NewExchangeFeed(t.Context(), "wss://exchange.test/ws", inbound, prices, metrics)
	return f, inbound, prices, metrics
}

func TestRouteOrderFrameToInboundQueue(t *testing.T) {
	f, inbound, _, _ := newTestFeed(t)

	f.route(Frame{Type: "execution_report", Body: "type=execution_report\nclordid=JVEE-300\n"})
	inbound.Close()

	var got []bus.Message
	inbound.Run(t.Context(), func(m bus.Message) { got = append(got, m) })
	require.Len(t, got, 1)
	assert.Equal(t, enum.MessageTypeExecutionReport, got[0].Type)
	assert.Contains(t, string(got[0].Payload), "clordid=JVEE-300")
}

func TestRoutePriceFrameToTopic(t *testing.T) {
	f, _, prices, _ := newTestFeed(t)
	ch, cancel := prices.Subscribe(1)
	defer cancel()

	f.route(Frame{Type: "market_price", Body: "symbol=AAPL\nprice=25.55\ncurrency=USD\neffective=2026-03-02T14:32:00Z\n"})

	select {
	case m := <-ch:
		assert.Equal(t, enum.MessageTypeMarketPrice, m.Type)
	default:
		t.Fatal("expected a price message on the topic")
	}
}

func TestRouteUnknownFrameCountsProtocolError(t *testing.T) {
	f, _, _, metrics := newTestFeed(t)

	f.route(Frame{Type: "greeting", Body: "hello=world\n"})
	assert.Equal(t, uint64(1), metrics.Snapshot().ProtocolErrors)
}

func TestRouteFullQueueCountsDrop(t *testing.T) {
	f, inbound, _, metrics := newTestFeed(t)
	for range 4 {
		require.NoError(t, inbound.TryPublish(bus.Message{Type: enum.MessageTypeOrderAck}))
	}

	f.route(Frame{Type: "order_ack", Body: "type=order_ack\nclordid=JVEE-300\n"})
	assert.Equal(t, uint64(1), metrics.Snapshot().QueueDrops)
}
