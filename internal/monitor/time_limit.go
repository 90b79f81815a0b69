package monitor

import (
	"time"

	"main/internal/schema"
	"main/internal/trade"
)

// TimeLimit closes a trade once it has been open for the configured
// duration, measured in bar time against the open fill.
type TimeLimit struct {
	limit time.Duration
}

// NewTimeLimit creates a holding-period monitor.
func NewTimeLimit(limit time.Duration) *TimeLimit {
	return &TimeLimit{limit: limit}
}

// NotifySingle compares the bar's timestamp against the trade's open
// time. Trades without an open fill yet are left alone.
func (m *TimeLimit) NotifySingle(t *trade.Trade, bar schema.PriceBar) bool {
	if t.OpenTime.IsZero() {
		return true
	}
	return bar.Time.Sub(t.OpenTime) < m.limit
}

func (*TimeLimit) NotifyMultiple([]*trade.Trade, []*trade.Trade, schema.PriceBar) {}
