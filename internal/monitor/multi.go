package monitor

import (
	"main/internal/schema"
	"main/internal/trade"
)

// Multi combines child monitors: a trade stays open only while every
// child agrees. Every child is consulted on every bar, even after one
// has already voted to close, so stateful children never miss a bar.
type Multi struct {
	children []TradeMonitor
}

// NewMulti creates a conjunction of monitors.
func NewMulti(children ...TradeMonitor) *Multi {
	return &Multi{children: children}
}

// NotifySingle polls every child and ANDs the verdicts.
func (m *Multi) NotifySingle(t *trade.Trade, bar schema.PriceBar) bool {
	keep := true
	for _, child := range m.children {
		if !child.NotifySingle(t, bar) {
			keep = false
		}
	}
	return keep
}

// NotifyMultiple forwards the book to every child.
func (m *Multi) NotifyMultiple(open, closed []*trade.Trade, bar schema.PriceBar) {
	for _, child := range m.children {
		child.NotifyMultiple(open, closed, bar)
	}
}
