package obs

import (
	"sync/atomic"
)

// Metrics collects lightweight session counters. All methods are nil-safe
// so callers can leave instrumentation unwired.
type Metrics struct {
	messagesSent     uint64
	messagesReceived uint64
	cacheHits        uint64
	cacheDepth       int64
	timeouts         uint64

	ticksDelivered uint64
	barsDelivered  uint64

	tradesOpened uint64
	tradesClosed uint64
}

// Snapshot is a point-in-time view of the session counters.
type Snapshot struct {
	MessagesSent     uint64
	MessagesReceived uint64
	CacheHits        uint64
	CacheDepth       int64
	Timeouts         uint64
	TicksDelivered   uint64
	BarsDelivered    uint64
	TradesOpened     uint64
	TradesClosed     uint64
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncSent records one transmitted message.
func (m *Metrics) IncSent() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.messagesSent, 1)
}

// IncReceived records one received message.
func (m *Metrics) IncReceived() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.messagesReceived, 1)
}

// IncCacheHit records a receive served from the out-of-order cache.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.cacheHits, 1)
}

// AddCacheDepth tracks the number of cached out-of-order messages.
func (m *Metrics) AddCacheDepth(delta int64) {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.cacheDepth, delta)
}

// IncTimeout records a receive that expired without a match.
func (m *Metrics) IncTimeout() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.timeouts, 1)
}

// IncTick records one completed synchronization round.
func (m *Metrics) IncTick() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ticksDelivered, 1)
}

// AddBars records bars pushed to subscribers.
func (m *Metrics) AddBars(n uint64) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.barsDelivered, n)
}

// IncTradeOpened records one trade reaching the Open state.
func (m *Metrics) IncTradeOpened() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.tradesOpened, 1)
}

// IncTradeClosed records one trade reaching the Closed state.
func (m *Metrics) IncTradeClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.tradesClosed, 1)
}

// Snapshot captures the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		MessagesSent:     atomic.LoadUint64(&m.messagesSent),
		MessagesReceived: atomic.LoadUint64(&m.messagesReceived),
		CacheHits:        atomic.LoadUint64(&m.cacheHits),
		CacheDepth:       atomic.LoadInt64(&m.cacheDepth),
		Timeouts:         atomic.LoadUint64(&m.timeouts),
		TicksDelivered:   atomic.LoadUint64(&m.ticksDelivered),
		BarsDelivered:    atomic.LoadUint64(&m.barsDelivered),
		TradesOpened:     atomic.LoadUint64(&m.tradesOpened),
		TradesClosed:     atomic.LoadUint64(&m.tradesClosed),
	}
}
