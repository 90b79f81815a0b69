package monitor

import (
	"main/internal/schema"
	"main/internal/trade"
)

// TradeMonitor watches open trades bar by bar. NotifySingle is consulted
// once per open trade per bar and returns whether the trade may stay
// open; false requests a close. NotifyMultiple observes the whole book
// after the per-trade sweep, for monitors that track aggregates.
type TradeMonitor interface {
	NotifySingle(t *trade.Trade, bar schema.PriceBar) bool
	NotifyMultiple(open, closed []*trade.Trade, bar schema.PriceBar)
}

// Null keeps every trade open forever.
type Null struct{}

// NewNull creates a monitor that never closes anything.
func NewNull() *Null { return &Null{} }

func (*Null) NotifySingle(*trade.Trade, schema.PriceBar) bool { return true }

func (*Null) NotifyMultiple([]*trade.Trade, []*trade.Trade, schema.PriceBar) {}
