package stock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"main/internal/monitor"
	"main/internal/obs"
	"main/internal/schema"
	"main/internal/trade"
	"main/pkg/exception"
)

// scriptedStrategy replays a fixed decision sequence, one per Decide.
type scriptedStrategy struct {
	decisions []int
	recorded  int
}

func (s *scriptedStrategy) AddRecord(schema.PriceBar) { s.recorded++ }

func (s *scriptedStrategy) Decide() int {
	if len(s.decisions) == 0 {
		return 0
	}
	d := s.decisions[0]
	s.decisions = s.decisions[1:]
	return d
}

// closeAfter votes to close every open trade once armed.
type closeAfter struct {
	armed bool
}

func (m *closeAfter) NotifySingle(*trade.Trade, schema.PriceBar) bool { return !m.armed }

func (m *closeAfter) NotifyMultiple([]*trade.Trade, []*trade.Trade, schema.PriceBar) {}

func bar(minute int, open, close float64) schema.PriceBar {
	return schema.PriceBar{
		Time:  time.Date(2024, 3, 15, 9, 30+minute, 0, 0, time.UTC),
		Open:  open,
		High:  close + 1,
		Low:   open - 1,
		Close: close,
	}
}

func advance(t *testing.T, s *Stock, b schema.PriceBar) {
	t.Helper()
	s.AddLiveBar(b)
	require.NoError(t, s.ProcessBar())
}

func TestOrderFillsAtNextBarOpen(t *testing.T) {
	strat := &scriptedStrategy{decisions: []int{1}}
	metrics := obs.NewMetrics()
	s := New(Config{Symbol: "X", TradeAmount: 1000, Strategy: strat, Metrics: metrics})

	// Decision bar: a buy order is created but nothing fills yet.
	advance(t, s, bar(0, 100, 100))
	assert.Empty(t, s.OpenTrades())
	assert.Equal(t, 1, s.PendingOrders())

	// Next bar: the order fills at this bar's open, not the decision close.
	advance(t, s, bar(1, 102, 103))
	require.Len(t, s.OpenTrades(), 1)
	assert.Equal(t, 0, s.PendingOrders())

	tr := s.OpenTrades()[0]
	assert.Equal(t, 102.0, tr.OpenPrice)
	assert.Equal(t, 100.0, tr.ReferencePrice)
	assert.Equal(t, int64(10), tr.Shares) // 1000 / 100
	assert.Equal(t, uint64(1), metrics.Snapshot().TradesOpened)
}

func TestCloseFillsAtNextBarOpen(t *testing.T) {
	strat := &scriptedStrategy{decisions: []int{1}}
	mon := &closeAfter{}
	s := New(Config{Symbol: "X", TradeAmount: 1000, Strategy: strat, Monitor: mon})

	advance(t, s, bar(0, 100, 100)) // order created
	advance(t, s, bar(1, 102, 103)) // open fill at 102
	require.Len(t, s.OpenTrades(), 1)

	mon.armed = true
	advance(t, s, bar(2, 104, 105)) // monitor requests close
	assert.Len(t, s.OpenTrades(), 1)
	assert.Equal(t, trade.StateClosing, s.OpenTrades()[0].State)

	advance(t, s, bar(3, 106, 107)) // close fills at this bar's open
	assert.Empty(t, s.OpenTrades())
	require.Len(t, s.ClosedTrades(), 1)

	tr := s.ClosedTrades()[0]
	assert.Equal(t, 102.0, tr.OpenPrice)
	assert.Equal(t, 106.0, tr.ClosePrice)
	assert.InDelta(t, 40, tr.Profit(), 1e-9) // (106-102)*10
}

func TestSameBarNeverFills(t *testing.T) {
	// A decision and a close vote on the same bar must still take two
	// further bars to resolve: order at N, open fill at N+1, close fill
	// at N+2 even when the monitor fires immediately.
	strat := &scriptedStrategy{decisions: []int{1}}
	mon := &closeAfter{armed: true}
	s := New(Config{Symbol: "X", TradeAmount: 1000, Strategy: strat, Monitor: mon})

	advance(t, s, bar(0, 100, 100))
	assert.Empty(t, s.ClosedTrades())
	advance(t, s, bar(1, 101, 101))
	assert.Empty(t, s.ClosedTrades())
	advance(t, s, bar(2, 102, 102))
	require.Len(t, s.ClosedTrades(), 1)
	assert.Equal(t, 101.0, s.ClosedTrades()[0].OpenPrice)
	assert.Equal(t, 102.0, s.ClosedTrades()[0].ClosePrice)
}

func TestResolveOrderUnknownID(t *testing.T) {
	s := New(Config{Symbol: "X", TradeAmount: 1000})
	s.AddLiveBar(bar(0, 100, 100))

	err := s.ResolveOrder(42, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrUnknownOrder))

	// Resolving the same unknown id again reports the same error.
	err = s.ResolveOrder(42, 100)
	assert.True(t, errors.Is(err, exception.ErrUnknownOrder))
}

func TestProcessBarWithoutBar(t *testing.T) {
	s := New(Config{Symbol: "X", TradeAmount: 1000})
	err := s.ProcessBar()
	assert.True(t, errors.Is(err, exception.ErrNoCurrentBar))
}

func TestCloseAllPositionsFlagsOpening(t *testing.T) {
	strat := &scriptedStrategy{decisions: []int{1}}
	s := New(Config{Symbol: "X", TradeAmount: 1000, Strategy: strat})

	advance(t, s, bar(0, 100, 100)) // pending open order
	s.CloseAllPositions(time.Date(2024, 3, 15, 9, 31, 0, 0, time.UTC))

	// The open fill lands, then the deferred close goes out and fills.
	advance(t, s, bar(1, 101, 101))
	require.Len(t, s.OpenTrades(), 1)
	assert.Equal(t, trade.StateClosing, s.OpenTrades()[0].State)

	advance(t, s, bar(2, 102, 102))
	assert.Empty(t, s.OpenTrades())
	assert.Len(t, s.ClosedTrades(), 1)
}

func TestShareSizing(t *testing.T) {
	strat := &scriptedStrategy{decisions: []int{1}}
	s := New(Config{Symbol: "X", TradeAmount: 1000, Strategy: strat})

	// 1000 / 333.4 = 2.99..., sized down to 2 shares.
	advance(t, s, bar(0, 333, 333.4))
	advance(t, s, bar(1, 334, 334))
	require.Len(t, s.OpenTrades(), 1)
	assert.Equal(t, int64(2), s.OpenTrades()[0].Shares)
}

func TestNoOrderWhenAmountTooSmall(t *testing.T) {
	strat := &scriptedStrategy{decisions: []int{1}}
	s := New(Config{Symbol: "X", TradeAmount: 50, Strategy: strat})

	advance(t, s, bar(0, 100, 100))
	assert.Equal(t, 0, s.PendingOrders())
}

func TestHistoricalBarsOnlyWarmUp(t *testing.T) {
	strat := &scriptedStrategy{decisions: []int{1}}
	s := New(Config{Symbol: "X", TradeAmount: 1000, Strategy: strat})

	s.AddHistoricalBars([]schema.PriceBar{bar(0, 99, 99), bar(1, 100, 100)})
	assert.Equal(t, 2, strat.recorded)
	assert.Equal(t, 0, s.PendingOrders())
}

func TestNilCollaboratorsDefaultToNull(t *testing.T) {
	s := New(Config{Symbol: "X", TradeAmount: 1000})
	advance(t, s, bar(0, 100, 100))
	assert.Equal(t, 0, s.PendingOrders())
	assert.IsType(t, &monitor.Null{}, s.cfg.Monitor)
}
