package stock

import (
	"sort"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/monitor"
	"main/internal/obs"
	"main/internal/schema"
	"main/internal/signal"
	"main/internal/strategy"
	"main/internal/trade"
	"main/pkg/exception"
)

// Config assembles one tradable stock. Nil collaborators default to
// their Null implementations.
type Config struct {
	Symbol   string
	Exchange string
	Currency string

	// TradeAmount is the cash target per opened position; shares are
	// sized as TradeAmount divided by the decision bar's close.
	TradeAmount float64

	Strategy  strategy.Strategy
	Monitor   monitor.TradeMonitor
	Signaller signal.Signaller
	Metrics   *obs.Metrics
}

func (cfg Config) withDefaults() Config {
	if cfg.Strategy == nil {
		cfg.Strategy = strategy.NewNull()
	}
	if cfg.Monitor == nil {
		cfg.Monitor = monitor.NewNull()
	}
	if cfg.Signaller == nil {
		cfg.Signaller = signal.NewNull()
	}
	return cfg
}

// Stock owns the full trade lifecycle for one symbol: it feeds bars to
// the strategy, turns decisions into pending orders, simulates fills at
// the next bar's open, and sweeps open trades past the monitor. Orders
// never fill on the bar that created them.
type Stock struct {
	cfg  Config
	info schema.StockInfo

	currentBar schema.PriceBar
	hasBar     bool

	nextOrderID  uint64
	pendingOpen  map[uint64]*trade.Trade
	pendingClose map[uint64]*trade.Trade
	open         []*trade.Trade
	closed       []*trade.Trade
}

// New creates a stock with an empty book.
func New(cfg Config) *Stock {
	return &Stock{
		cfg:          cfg.withDefaults(),
		nextOrderID:  1,
		pendingOpen:  make(map[uint64]*trade.Trade),
		pendingClose: make(map[uint64]*trade.Trade),
	}
}

// Symbol returns the stock's ticker symbol.
func (s *Stock) Symbol() string { return s.cfg.Symbol }

// Exchange returns the stock's listing exchange.
func (s *Stock) Exchange() string { return s.cfg.Exchange }

// Currency returns the stock's trading currency.
func (s *Stock) Currency() string { return s.cfg.Currency }

// SetInfo records the server's view of the prepared stock.
func (s *Stock) SetInfo(info schema.StockInfo) { s.info = info }

// AddHistoricalBars warms the strategy up without trading on the bars.
func (s *Stock) AddHistoricalBars(bars []schema.PriceBar) {
	for _, bar := range bars {
		s.cfg.Strategy.AddRecord(bar)
	}
}

// AddLiveBar records the bar and feeds the strategy. Trading happens in
// ProcessBar, which the caller invokes once the whole synchronized batch
// has arrived.
func (s *Stock) AddLiveBar(bar schema.PriceBar) {
	s.currentBar = bar
	s.hasBar = true
	s.cfg.Strategy.AddRecord(bar)
}

// ProcessBar advances the lifecycle one bar: pending orders fill at this
// bar's open, then the strategy decides, then the monitor sweeps the
// open book. Resolving before deciding is what delays every fill to the
// bar after its order.
func (s *Stock) ProcessBar() error {
	if !s.hasBar {
		return exception.ErrNoCurrentBar
	}

	for _, id := range s.pendingOrderIDs() {
		if err := s.ResolveOrder(id, s.currentBar.Open); err != nil {
			return err
		}
	}

	if decision := s.cfg.Strategy.Decide(); decision != 0 {
		s.startOrder(decision)
	}

	for _, t := range append([]*trade.Trade(nil), s.open...) {
		if t.State != trade.StateOpen {
			continue
		}
		if !s.cfg.Monitor.NotifySingle(t, s.currentBar) {
			s.requestClose(t)
		}
	}
	s.cfg.Monitor.NotifyMultiple(s.open, s.closed, s.currentBar)
	return nil
}

// ResolveOrder applies a fill to the pending order with the given id.
// Unknown ids are an error: a fill must never be dropped silently.
func (s *Stock) ResolveOrder(id uint64, price float64) error {
	if t, ok := s.pendingOpen[id]; ok {
		delete(s.pendingOpen, id)
		if err := t.Fill(price, s.currentBar.Time); err != nil {
			return err
		}
		s.open = append(s.open, t)
		s.cfg.Metrics.IncTradeOpened()
		if t.CloseASAP {
			s.requestClose(t)
		}
		return nil
	}
	if t, ok := s.pendingClose[id]; ok {
		delete(s.pendingClose, id)
		if err := t.Fill(price, s.currentBar.Time); err != nil {
			return err
		}
		s.removeOpen(t)
		s.closed = append(s.closed, t)
		s.cfg.Metrics.IncTradeClosed()
		logs.Infof("%s trade closed: return %.4f%% profit %.2f", s.cfg.Symbol, t.PercentReturn()*100, t.Profit())
		return nil
	}
	return errors.Wrapf(exception.ErrUnknownOrder, "order %d for %s", id, s.cfg.Symbol)
}

// CloseAllPositions requests a close for every non-terminal trade.
// Opening trades are flagged to close as soon as their open fill lands.
func (s *Stock) CloseAllPositions(at time.Time) {
	for _, t := range append([]*trade.Trade(nil), s.open...) {
		if t.State == trade.StateOpen {
			s.requestClose(t)
		}
	}
	for _, t := range s.pendingOpen {
		t.CloseASAP = true
	}
	s.cfg.Signaller.CloseAll(s.cfg.Symbol, at)
}

// OpenTrades returns the live book.
func (s *Stock) OpenTrades() []*trade.Trade { return s.open }

// ClosedTrades returns the completed round trips.
func (s *Stock) ClosedTrades() []*trade.Trade { return s.closed }

// PendingOrders returns the number of unresolved orders.
func (s *Stock) PendingOrders() int { return len(s.pendingOpen) + len(s.pendingClose) }

func (s *Stock) startOrder(decision int) {
	close := s.currentBar.Close
	if close <= 0 {
		return
	}
	shares := int64(s.cfg.TradeAmount*100) / int64(close*100)
	if shares <= 0 {
		return
	}

	t := trade.New(s.cfg.Symbol, shares, decision, close)
	id := s.nextOrderID
	s.nextOrderID++
	s.pendingOpen[id] = t
	s.cfg.Signaller.StartOrder(s.cfg.Symbol, t)
	logs.Infof("%s order %d: action %d shares %d reference %.4f", s.cfg.Symbol, id, decision, shares, close)
}

func (s *Stock) requestClose(t *trade.Trade) {
	if err := t.RequestClose(); err != nil {
		logs.Warnf("%s close request rejected, err: %v", s.cfg.Symbol, err)
		return
	}
	if t.State != trade.StateClosing {
		return // deferred via CloseASAP
	}
	id := s.nextOrderID
	s.nextOrderID++
	s.pendingClose[id] = t
	s.cfg.Signaller.CloseOrder(s.cfg.Symbol, t)
}

func (s *Stock) removeOpen(target *trade.Trade) {
	for i, t := range s.open {
		if t == target {
			s.open = append(s.open[:i], s.open[i+1:]...)
			return
		}
	}
}

func (s *Stock) pendingOrderIDs() []uint64 {
	ids := make([]uint64, 0, len(s.pendingOpen)+len(s.pendingClose))
	for id := range s.pendingOpen {
		ids = append(ids, id)
	}
	for id := range s.pendingClose {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
