package feed

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"main/internal/bus"
	"main/internal/model/enum"
	"main/internal/obs"
)

// Frame is the exchange websocket envelope. The body is the textual
// protocol payload; the type mirrors the payload's type line so frames
// can be routed without parsing the body.
type Frame struct {
	Type string `json:"type"`
	Body string `json:"body"`
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

type subscribeResponse struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

// ExchangeFeed is the websocket bridge to the exchange. Inbound order
// frames land on the reconciliation queue, price frames on the price
// topic, and outbound protocol messages are written as frames.
type ExchangeFeed struct {
	wss     *ws.WebSocket
	inbound *bus.Queue
	prices  *bus.Topic[bus.Message]
	metrics *obs.Metrics
}

// NewExchangeFeed prepares a feed against the given websocket endpoint.
func NewExchangeFeed(ctx context.Context, url string, inbound *bus.Queue, prices *bus.Topic[bus.Message], metrics *obs.Metrics) *ExchangeFeed {
	return &ExchangeFeed{
		wss:     ws.New(ctx, url),
		inbound: inbound,
		prices:  prices,
		metrics: metrics,
	}
}

// Start opens the websocket connection.
func (f *ExchangeFeed) Start(ctx context.Context) error {
	if err := f.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}
	return nil
}

// Close tears the connection down.
func (f *ExchangeFeed) Close() {
	f.wss.Close()
}

// SubscribePrices asks the exchange for streaming prices on the given
// symbols and waits for the subscription acknowledgment.
func (f *ExchangeFeed) SubscribePrices(ctx context.Context, symbols []string) error {
	appendIntoRegister := true
	if err := f.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, ws *ws.WebSocket) error {
			payload := subscribeRequest{
				Method: "SUBSCRIBE",
				Params: symbols,
				ID:     1,
			}
			if err := ws.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			var resp subscribeResponse
			if err := m.Unmarshal(&resp); err != nil || resp.ID != 1 {
				return false, nil
			}
			if resp.Result != nil {
				return false, errors.Errorf("subscribe rejected, err: %+v", resp.Result)
			}
			return true, nil
		},
	}, appendIntoRegister); err != nil {
		return errors.Wrap(err, "send and wait")
	}
	return nil
}

// Observe routes inbound frames until the context or the connection
// ends. Order frames that do not fit the queue are dropped and counted;
// the exchange redelivers them.
func (f *ExchangeFeed) Observe(ctx context.Context) (unsubscribe func()) {
	ch, cancel := f.wss.Subscribe()

	go func() {
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

				frame, ok := ws.ReadMessage[Frame](m)
				if !ok || len(frame.Body) == 0 {
					continue
				}
				f.route(frame)
			}
		}
	}()

	return cancel
}

func (f *ExchangeFeed) route(frame Frame) {
	if frame.Type == enum.MessageTypeMarketPrice.String() {
		if err := f.prices.TryPublish(bus.Message{
			Type:     enum.MessageTypeMarketPrice,
			Payload:  []byte(frame.Body),
			Received: time.Now(),
		}); err != nil {
			logs.Debugf("price frame not published: %v", err)
		}
		return
	}

	msgType, ok := enum.ParseMessageType(frame.Type)
	if !ok {
		f.metrics.ObserveProtocolError()
		logs.Warnf("drop frame with unknown type %q", frame.Type)
		return
	}
	if err := f.inbound.TryPublish(bus.Message{
		Type:     msgType,
		Payload:  []byte(frame.Body),
		Received: time.Now(),
	}); err != nil {
		f.metrics.ObserveQueueDrop()
		logs.Warnf("drop inbound %s frame: %v", msgType, err)
	}
}

// Send writes an outbound protocol message as a frame.
func (f *ExchangeFeed) Send(ctx context.Context, m bus.Message) error {
	if err := f.wss.WriteJSON(Frame{
		Type: m.Type.String(),
		Body: string(m.Payload),
	}); err != nil {
		return errors.Wrap(err, "write frame").With("type", m.Type)
	}
	return nil
}
