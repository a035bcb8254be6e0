package obs

import (
	"sync/atomic"

	"main/internal/model/enum"
)

const maxMessageType = int(enum.MessageTypeMarketPrice)

// Metrics collects lightweight counters for the reconciliation path.
type Metrics struct {
	messageCounts [maxMessageType + 1]uint64

	processed         uint64
	duplicates        uint64
	unknownOrders     uint64
	protocolErrors    uint64
	consistencyErrors uint64
	queueDrops        uint64
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	MessageCounts     map[enum.MessageType]uint64
	Processed         uint64
	Duplicates        uint64
	UnknownOrders     uint64
	ProtocolErrors    uint64
	ConsistencyErrors uint64
	QueueDrops        uint64
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveMessage counts one consumed message of the given type.
func (m *Metrics) ObserveMessage(t enum.MessageType) {
	if int(t) >= 0 && int(t) <= maxMessageType {
		atomic.AddUint64(&m.messageCounts[int(t)], 1)
	}
	atomic.AddUint64(&m.processed, 1)
}

// ObserveDuplicate counts a redelivered message discarded as already applied.
func (m *Metrics) ObserveDuplicate() {
	atomic.AddUint64(&m.duplicates, 1)
}

// ObserveUnknownOrder counts a message referencing no known order.
func (m *Metrics) ObserveUnknownOrder() {
	atomic.AddUint64(&m.unknownOrders, 1)
}

// ObserveProtocolError counts an unparseable message.
func (m *Metrics) ObserveProtocolError() {
	atomic.AddUint64(&m.protocolErrors, 1)
}

// ObserveConsistencyError counts an overfill or invalid transition.
func (m *Metrics) ObserveConsistencyError() {
	atomic.AddUint64(&m.consistencyErrors, 1)
}

// ObserveQueueDrop counts a failed publish to a full queue.
func (m *Metrics) ObserveQueueDrop() {
	atomic.AddUint64(&m.queueDrops, 1)
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() Snapshot {
	counts := make(map[enum.MessageType]uint64, maxMessageType)
	for i := 1; i <= maxMessageType; i++ {
		if v := atomic.LoadUint64(&m.messageCounts[i]); v != 0 {
			counts[enum.MessageType(i)] = v
		}
	}
	return Snapshot{
		MessageCounts:     counts,
		Processed:         atomic.LoadUint64(&m.processed),
		Duplicates:        atomic.LoadUint64(&m.duplicates),
		UnknownOrders:     atomic.LoadUint64(&m.unknownOrders),
		ProtocolErrors:    atomic.LoadUint64(&m.protocolErrors),
		ConsistencyErrors: atomic.LoadUint64(&m.consistencyErrors),
		QueueDrops:        atomic.LoadUint64(&m.queueDrops),
	}
}
