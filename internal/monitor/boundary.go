package monitor

import (
	"main/internal/schema"
	"main/internal/trade"
)

// Boundary closes a trade when its signed excursion from the decision
// bar's close leaves the [-stopLoss, takeProfit] band. Both bounds are
// in basis points of the trade's reference price.
type Boundary struct {
	stopLoss   float64
	takeProfit float64
}

// NewBoundary creates a stop-loss/take-profit monitor.
func NewBoundary(stopLoss, takeProfit float64) *Boundary {
	return &Boundary{stopLoss: stopLoss, takeProfit: takeProfit}
}

// NotifySingle measures the bar's close against the trade's reference
// price, in the trade's direction.
func (m *Boundary) NotifySingle(t *trade.Trade, bar schema.PriceBar) bool {
	if t.ReferencePrice == 0 {
		return true
	}
	excursion := (bar.Close/t.ReferencePrice - 1) * 10000 * float64(t.Action)
	if -excursion > m.stopLoss {
		return false
	}
	if excursion > m.takeProfit {
		return false
	}
	return true
}

func (*Boundary) NotifyMultiple([]*trade.Trade, []*trade.Trade, schema.PriceBar) {}
