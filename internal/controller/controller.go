package controller

import (
	"context"
	"sort"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/gateway"
	"main/internal/schema"
	"main/internal/signal"
	"main/internal/stock"
	"main/pkg/exception"
)

// Reporter observes the session at its coarse milestones. NewBars fires
// after every processed batch, EndOfDay once the server has exited.
type Reporter interface {
	Initiate(stocks []*stock.Stock)
	NewBars(stocks []*stock.Stock)
	EndOfDay(stocks []*stock.Stock)
}

// NullReporter ignores every milestone.
type NullReporter struct{}

func (NullReporter) Initiate([]*stock.Stock) {}

func (NullReporter) NewBars([]*stock.Stock) {}

func (NullReporter) EndOfDay([]*stock.Stock) {}

// Config assembles a trading session.
type Config struct {
	Gateway *gateway.Gateway
	Stocks  []*stock.Stock

	// Signaller is the shared sink flushed once per processed batch. It
	// should be the same instance wired into the stocks.
	Signaller signal.Signaller

	// HistoryDays is the warm-up window requested per stock.
	HistoryDays int

	Reporter Reporter
}

// Controller drives the client side of a session: the setup phases in
// order, then the push loop that feeds synchronized batches through
// every stock's lifecycle.
type Controller struct {
	cfg    Config
	stocks map[string]*stock.Stock
}

// New creates a controller. At least one stock is required.
func New(cfg Config) (*Controller, error) {
	if cfg.Gateway == nil || len(cfg.Stocks) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "controller needs a gateway and stocks")
	}
	if cfg.Signaller == nil {
		cfg.Signaller = signal.NewNull()
	}
	if cfg.Reporter == nil {
		cfg.Reporter = NullReporter{}
	}

	stocks := make(map[string]*stock.Stock, len(cfg.Stocks))
	for _, st := range cfg.Stocks {
		if _, ok := stocks[st.Symbol()]; ok {
			return nil, errors.Wrap(exception.ErrInvalidArgument, "duplicate stock "+st.Symbol())
		}
		stocks[st.Symbol()] = st
	}
	return &Controller{cfg: cfg, stocks: stocks}, nil
}

// GoLive runs the whole session: setup phases, then the push loop until
// the server exits.
func (c *Controller) GoLive(ctx context.Context) error {
	if err := c.setup(); err != nil {
		return err
	}
	c.cfg.Reporter.Initiate(c.cfg.Stocks)
	return c.listen(ctx)
}

// setup walks the phases in strict order: readiness, account, signal
// sinks, stock preparation, history warm-up, subscriptions, finalise.
// Each phase completes for every stock before the next begins.
func (c *Controller) setup() error {
	if err := c.cfg.Gateway.WaitUntilReady("gateway"); err != nil {
		return err
	}
	account, err := c.cfg.Gateway.Accounts()
	if err != nil {
		return err
	}
	logs.Infof("trading with account %s", account)

	if err := c.cfg.Signaller.Initialise(); err != nil {
		return errors.Wrap(err, "initialise signallers")
	}

	for _, st := range c.cfg.Stocks {
		info, err := c.cfg.Gateway.Stock(st.Symbol(), st.Exchange(), st.Currency())
		if err != nil {
			return err
		}
		st.SetInfo(info)
	}
	for _, st := range c.cfg.Stocks {
		history, err := c.cfg.Gateway.History(st.Symbol(), st.Exchange(), c.cfg.HistoryDays)
		if err != nil {
			return err
		}
		logs.Infof("%s warmed up with %d historical bars", st.Symbol(), len(history))
		st.AddHistoricalBars(history)
	}
	for _, st := range c.cfg.Stocks {
		if _, err := c.cfg.Gateway.SubscribeMarketData(st.Symbol(), st.Exchange()); err != nil {
			return err
		}
	}
	return c.cfg.Gateway.Finalise()
}

// listen consumes the push stream batch by batch. Bars buffered between
// the prepare and end markers are applied together, stocks process in
// symbol order, and a fresh Finalise re-arms the server's barrier.
func (c *Controller) listen(ctx context.Context) error {
	newBars := make(map[string]schema.PriceBar)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		env, err := c.cfg.Gateway.Listen()
		if err != nil {
			return errors.Wrap(err, "listen for pushes")
		}

		switch env.Type {
		case schema.TypePrepareLiveBars:
			newBars = make(map[string]schema.PriceBar)

		case schema.TypeLiveBar:
			symbol, bar, err := c.decodeLiveBar(env)
			if err != nil {
				return err
			}
			newBars[symbol] = bar

		case schema.TypeEndOfLiveBars:
			if err := c.processBatch(newBars); err != nil {
				return err
			}
			if err := c.cfg.Gateway.Finalise(); err != nil {
				return err
			}

		case schema.TypeServerExit:
			logs.Info("server exited, session over")
			c.cfg.Reporter.EndOfDay(c.cfg.Stocks)
			return nil

		case schema.TypeFatalError:
			var fatal schema.FatalErrorResponse
			if err := env.Decode(&fatal); err != nil {
				return err
			}
			return errors.Wrap(exception.ErrFatalProtocol, fatal.Message)

		default:
			logs.Warnf("ignoring unexpected %s push", env.Type)
		}
	}
}

func (c *Controller) decodeLiveBar(env schema.Envelope) (string, schema.PriceBar, error) {
	var push schema.LiveBarPush
	if err := env.Decode(&push); err != nil {
		return "", schema.PriceBar{}, err
	}
	symbol, ok := c.cfg.Gateway.SymbolForRequest(env.RequestID)
	if !ok {
		symbol = push.Symbol
	}
	if _, ok := c.stocks[symbol]; !ok {
		return "", schema.PriceBar{}, errors.Wrap(exception.ErrUnknownChannel, "bar for unknown symbol "+symbol)
	}
	bar, err := push.Bar.Normalize()
	if err != nil {
		return "", schema.PriceBar{}, errors.Wrap(err, "normalize live bar for "+symbol)
	}
	return symbol, bar, nil
}

// processBatch applies the buffered bars in symbol order: every stock
// records its bar before any stock processes, so cross-symbol monitors
// see a consistent snapshot.
func (c *Controller) processBatch(newBars map[string]schema.PriceBar) error {
	symbols := make([]string, 0, len(newBars))
	for symbol := range newBars {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		c.stocks[symbol].AddLiveBar(newBars[symbol])
	}
	for _, symbol := range symbols {
		if err := c.stocks[symbol].ProcessBar(); err != nil {
			return errors.Wrap(err, "process bar for "+symbol)
		}
	}
	c.cfg.Signaller.Flush()
	c.cfg.Reporter.NewBars(c.cfg.Stocks)
	return nil
}
