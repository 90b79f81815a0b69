package bars

import (
	"context"

	"main/internal/schema"
)

// Source loads the pending bar sequence for one symbol, earliest first.
// The backtest server stages the result in memory for the session.
type Source interface {
	DayBars(ctx context.Context, symbol string) ([]schema.PriceBar, error)
}
