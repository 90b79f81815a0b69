package backtest

import (
	"context"
	"sort"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/bars"
	"main/internal/obs"
	"main/internal/schema"
	"main/pkg/exception"
)

const (
	defaultSendTimeout = 5 * time.Second
	defaultPollTimeout = 200 * time.Millisecond

	backtestAccountID = "N/A"
)

// Config controls the backtest server's pacing.
type Config struct {
	// SendTimeout bounds every outbound frame.
	SendTimeout time.Duration
	// PollTimeout bounds each round-robin receive poll.
	PollTimeout time.Duration
	// BarrierTimeout bounds one readiness barrier round. Zero waits
	// forever, which is acceptable for a backtest but should be bounded
	// when the server paces anything resembling a live session.
	BarrierTimeout time.Duration

	Metrics *obs.Metrics
}

func (cfg Config) withDefaults() Config {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	return cfg
}

// clientConn is the server's view of one enrolled client channel.
// broker.Channel satisfies it.
type clientConn interface {
	Key() int
	Send(v any, timeout time.Duration) error
	Receive(timeout time.Duration) (schema.Envelope, error)
	Close()
}

// subscriber is one (channel, request) pair enrolled for a symbol's
// live bars.
type subscriber struct {
	channelKey int
	requestID  uint64
	exchange   string
}

// Server replays historical bars as live data, answering setup requests
// and delivering bars to all subscribed clients in chronological
// lockstep. The subscription registry grows only during setup and is
// never pruned mid-session.
type Server struct {
	cfg      Config
	channels map[int]clientConn
	keys     []int

	subscriptions map[string][]subscriber
	ready         map[int]uint64
	bars          map[string][]schema.PriceBar
}

// NewServer creates a server with no enrolled channels.
func NewServer(cfg Config) *Server {
	return &Server{
		cfg:           cfg.withDefaults(),
		channels:      make(map[int]clientConn),
		subscriptions: make(map[string][]subscriber),
		ready:         make(map[int]uint64),
		bars:          make(map[string][]schema.PriceBar),
	}
}

// AddChannel enrolls one client channel. Must happen before Run.
func (s *Server) AddChannel(ch clientConn) {
	s.channels[ch.Key()] = ch
	s.keys = append(s.keys, ch.Key())
	sort.Ints(s.keys)
}

// Symbols returns every subscribed symbol in ascending order.
func (s *Server) Symbols() []string {
	symbols := make([]string, 0, len(s.subscriptions))
	for symbol := range s.subscriptions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// LoadBars stages one symbol's pending bar sequence, earliest first.
func (s *Server) LoadBars(symbol string, pending []schema.PriceBar) {
	s.bars[symbol] = pending
}

// Run drives a full session: answer setup requests until every client
// has finalised, load day bars for each subscribed symbol, then replay
// them to exhaustion and shut down.
func (s *Server) Run(ctx context.Context, source bars.Source) error {
	if len(s.channels) == 0 {
		return errors.Wrap(exception.ErrInvalidArgument, "no enrolled channels")
	}
	if err := s.listenUntilReady(ctx, s.keys); err != nil {
		return err
	}
	for _, symbol := range s.Symbols() {
		logs.Infof("loading data for %s", symbol)
		dayBars, err := source.DayBars(ctx, symbol)
		if err != nil {
			return errors.Wrap(err, "load bars for "+symbol)
		}
		logs.Infof("loaded %d records for %s", len(dayBars), symbol)
		s.LoadBars(symbol, dayBars)
	}
	return s.sendBars(ctx)
}

// listenUntilReady polls the given channels round robin, dispatching
// requests, until each of them has signaled Finalise. This is the
// readiness barrier.
func (s *Server) listenUntilReady(ctx context.Context, keys []int) error {
	start := time.Now()
	for !s.allReady(keys) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.cfg.BarrierTimeout > 0 && time.Since(start) > s.cfg.BarrierTimeout {
			return errors.Wrap(exception.ErrTimeout, "readiness barrier")
		}
		for _, key := range keys {
			if _, done := s.ready[key]; done {
				continue
			}
			env, err := s.channels[key].Receive(s.cfg.PollTimeout)
			if err != nil {
				if errors.Is(err, exception.ErrTimeout) {
					continue
				}
				return errors.Wrap(err, "receive from channel")
			}
			s.dispatch(key, env)
		}
	}
	return nil
}

func (s *Server) allReady(keys []int) bool {
	for _, key := range keys {
		if _, ok := s.ready[key]; !ok {
			return false
		}
	}
	return true
}

// dispatch routes one client request to its handler. Unknown types get
// an explicit Fatal Error reply rather than silence.
func (s *Server) dispatch(key int, env schema.Envelope) {
	switch env.Type {
	case schema.TypeIsReady:
		s.handleIsReady(key, env)
	case schema.TypeRequestAccounts:
		s.handleAccounts(key, env)
	case schema.TypeRequestStock:
		s.handleStock(key, env)
	case schema.TypeRequestHistorical:
		s.handleHistorical(key, env)
	case schema.TypeRequestLiveData:
		s.handleLiveData(key, env)
	case schema.TypeFinalise:
		s.handleFinalise(key, env)
	default:
		message := "Unknown request '" + env.Type + "'"
		if schema.KnownType(env.Type) {
			message = "Unsupported request '" + env.Type + "'"
		}
		s.fatal(key, env.RequestID, message)
	}
}

// handleIsReady always confirms: the backtester has no upstream API to
// wait on.
func (s *Server) handleIsReady(key int, env schema.Envelope) {
	var req schema.IsReadyRequest
	if err := env.Decode(&req); err != nil {
		s.fatal(key, env.RequestID, err.Error())
		return
	}
	s.reply(key, schema.IsReadyResponse{
		Request: schema.Request{Type: schema.TypeIsReady, RequestID: req.RequestID},
		Ready:   true,
	})
}

// handleAccounts serves the placeholder account: simulated fills need no
// real account routing.
func (s *Server) handleAccounts(key int, env schema.Envelope) {
	s.reply(key, schema.AccountsResponse{
		Request:  schema.Request{Type: schema.TypeAccounts, RequestID: env.RequestID},
		Accounts: []schema.Account{{ID: backtestAccountID}},
	})
}

func (s *Server) handleStock(key int, env schema.Envelope) {
	var req schema.StockRequest
	if err := env.Decode(&req); err != nil {
		s.fatal(key, env.RequestID, err.Error())
		return
	}
	if req.Symbol == "" {
		s.fatal(key, req.RequestID, "Invalid input: must have field 'Symbol'")
		return
	}
	s.reply(key, schema.StockResponse{
		Request: schema.Request{Type: schema.TypeStockResponse, RequestID: req.RequestID},
		Stock: schema.StockInfo{
			Symbol:   req.Symbol,
			Exchange: req.Exchange,
			Currency: req.Currency,
		},
	})
}

// handleHistorical answers with an empty set: replayed bars arrive as
// live data, so there is no earlier history to catch up on.
func (s *Server) handleHistorical(key int, env schema.Envelope) {
	var req schema.HistoricalRequest
	if err := env.Decode(&req); err != nil {
		s.fatal(key, env.RequestID, err.Error())
		return
	}
	s.reply(key, schema.HistoricalBarsResponse{
		Request:  schema.Request{Type: schema.TypeHistoricalBars, RequestID: req.RequestID},
		Symbol:   req.Symbol,
		Exchange: req.Exchange,
		Bars:     []schema.WireBar{},
	})
}

// handleLiveData enrolls the (channel, request) pair for the symbol.
// There is no immediate reply. Resubscribing is not supported.
func (s *Server) handleLiveData(key int, env schema.Envelope) {
	var req schema.LiveDataRequest
	if err := env.Decode(&req); err != nil {
		s.fatal(key, env.RequestID, err.Error())
		return
	}
	if req.Symbol == "" {
		s.fatal(key, req.RequestID, "Invalid input: must have field 'Symbol'")
		return
	}
	s.subscriptions[req.Symbol] = append(s.subscriptions[req.Symbol], subscriber{
		channelKey: key,
		requestID:  req.RequestID,
		exchange:   req.Exchange,
	})
	logs.Infof("added %s subscription for channel %d request %d", req.Symbol, key, req.RequestID)
}

// handleFinalise records the channel's readiness. The request id becomes
// the channel's status id, echoed on every push.
func (s *Server) handleFinalise(key int, env schema.Envelope) {
	s.ready[key] = env.RequestID
}

func (s *Server) reply(key int, v any) {
	if err := s.channels[key].Send(v, s.cfg.SendTimeout); err != nil {
		logs.Errorf("reply to channel %d, err: %v", key, err)
	}
}

func (s *Server) fatal(key int, requestID uint64, message string) {
	s.reply(key, schema.FatalErrorResponse{
		Type:      schema.TypeFatalError,
		RequestID: requestID,
		Message:   message,
	})
}
