package ops

import (
	"time"

	"github.com/yanun0323/errors"

	"main/internal/monitor"
	"main/internal/obs"
	"main/internal/signal"
	"main/internal/stock"
	"main/internal/strategy"
	"main/internal/transport"
	"main/pkg/exception"
)

// ClientConfig mirrors the trader's JSON config file.
type ClientConfig struct {
	Server      ServerEndpoint `json:"server"`
	HistoryDays int            `json:"historyDays"`
	Stocks      []StockConfig  `json:"stocks"`
}

// ServerEndpoint locates the backtest server's rendezvous port.
type ServerEndpoint struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	TimeoutMs int    `json:"timeoutMs"`
	Attempts  int    `json:"attempts"`
	BackoffMs int    `json:"backoffMs"`
}

// StockConfig assembles one tradable stock from declarative specs.
type StockConfig struct {
	Symbol      string  `json:"symbol"`
	Exchange    string  `json:"exchange"`
	Currency    string  `json:"currency"`
	TradeAmount float64 `json:"tradeAmount"`

	Strategy   *StrategySpec   `json:"strategy"`
	Monitors   []MonitorSpec   `json:"monitors"`
	Signallers []SignallerSpec `json:"signallers"`
}

// StrategySpec is a recursive strategy definition. Kinds: "null",
// "movingAverage", "vote".
type StrategySpec struct {
	Kind string `json:"kind"`

	SmallWindow int     `json:"smallWindow"`
	LargeWindow int     `json:"largeWindow"`
	Threshold   float64 `json:"threshold"`

	MinimalAgreement int            `json:"minimalAgreement"`
	Children         []StrategySpec `json:"children"`
}

// MonitorSpec is one monitor definition. Kinds: "boundary", "timeLimit".
type MonitorSpec struct {
	Kind string `json:"kind"`

	// Boundary bounds, in basis points of the reference price.
	StopLoss   float64 `json:"stopLoss"`
	TakeProfit float64 `json:"takeProfit"`

	LimitSeconds int `json:"limitSeconds"`
}

// SignallerSpec is one signal sink definition. Kinds: "log", "null".
type SignallerSpec struct {
	Kind string `json:"kind"`
}

// LoadClient reads and validates a trader config file.
func LoadClient(path string) (ClientConfig, error) {
	var cfg ClientConfig
	if err := loadJSON(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if err := cfg.validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func (cfg ClientConfig) validate() error {
	if len(cfg.Stocks) == 0 {
		return errors.Wrap(exception.ErrInvalidConfig, "at least one stock is required")
	}
	seen := make(map[string]struct{}, len(cfg.Stocks))
	for _, sc := range cfg.Stocks {
		if sc.Symbol == "" {
			return errors.Wrap(exception.ErrInvalidConfig, "stock without symbol")
		}
		if _, ok := seen[sc.Symbol]; ok {
			return errors.Wrap(exception.ErrInvalidConfig, "duplicate stock "+sc.Symbol)
		}
		seen[sc.Symbol] = struct{}{}
		if sc.TradeAmount <= 0 {
			return errors.Wrap(exception.ErrInvalidConfig, sc.Symbol+" needs a positive tradeAmount")
		}
	}
	return nil
}

// Connect builds the handshake settings for the configured endpoint.
func (cfg ClientConfig) Connect(metrics *obs.Metrics) transport.ConnectConfig {
	return transport.ConnectConfig{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		Timeout:  time.Duration(cfg.Server.TimeoutMs) * time.Millisecond,
		Attempts: cfg.Server.Attempts,
		Backoff:  time.Duration(cfg.Server.BackoffMs) * time.Millisecond,
		Metrics:  metrics,
	}
}

// BuildStocks assembles every configured stock plus the shared signaller
// the controller flushes once per batch.
func (cfg ClientConfig) BuildStocks(metrics *obs.Metrics) ([]*stock.Stock, signal.Signaller, error) {
	stocks := make([]*stock.Stock, 0, len(cfg.Stocks))
	sinks := make([]signal.Signaller, 0, len(cfg.Stocks))
	for _, sc := range cfg.Stocks {
		strat, err := BuildStrategy(sc.Strategy)
		if err != nil {
			return nil, nil, errors.Wrap(err, "strategy for "+sc.Symbol)
		}
		mon, err := BuildMonitor(sc.Monitors)
		if err != nil {
			return nil, nil, errors.Wrap(err, "monitors for "+sc.Symbol)
		}
		sink, err := BuildSignaller(sc.Signallers)
		if err != nil {
			return nil, nil, errors.Wrap(err, "signallers for "+sc.Symbol)
		}
		sinks = append(sinks, sink)
		stocks = append(stocks, stock.New(stock.Config{
			Symbol:      sc.Symbol,
			Exchange:    sc.Exchange,
			Currency:    sc.Currency,
			TradeAmount: sc.TradeAmount,
			Strategy:    strat,
			Monitor:     mon,
			Signaller:   sink,
			Metrics:     metrics,
		}))
	}
	return stocks, signal.NewMulti(sinks...), nil
}

// BuildStrategy resolves a strategy spec tree. A nil spec holds forever.
func BuildStrategy(spec *StrategySpec) (strategy.Strategy, error) {
	if spec == nil {
		return strategy.NewNull(), nil
	}
	switch spec.Kind {
	case "", "null":
		return strategy.NewNull(), nil
	case "movingAverage":
		if spec.SmallWindow <= 0 || spec.LargeWindow <= spec.SmallWindow {
			return nil, errors.Wrap(exception.ErrInvalidConfig, "movingAverage needs 0 < smallWindow < largeWindow")
		}
		return strategy.NewMovingAverage(spec.SmallWindow, spec.LargeWindow, spec.Threshold), nil
	case "vote":
		children := make([]strategy.Strategy, 0, len(spec.Children))
		for i := range spec.Children {
			child, err := BuildStrategy(&spec.Children[i])
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return strategy.NewMulti(spec.MinimalAgreement, children...), nil
	default:
		return nil, errors.Wrap(exception.ErrInvalidConfig, "unknown strategy kind '"+spec.Kind+"'")
	}
}

// BuildMonitor resolves a monitor list into a single conjunction.
func BuildMonitor(specs []MonitorSpec) (monitor.TradeMonitor, error) {
	if len(specs) == 0 {
		return monitor.NewNull(), nil
	}
	children := make([]monitor.TradeMonitor, 0, len(specs))
	for _, spec := range specs {
		switch spec.Kind {
		case "boundary":
			children = append(children, monitor.NewBoundary(spec.StopLoss, spec.TakeProfit))
		case "timeLimit":
			if spec.LimitSeconds <= 0 {
				return nil, errors.Wrap(exception.ErrInvalidConfig, "timeLimit needs positive limitSeconds")
			}
			children = append(children, monitor.NewTimeLimit(time.Duration(spec.LimitSeconds)*time.Second))
		default:
			return nil, errors.Wrap(exception.ErrInvalidConfig, "unknown monitor kind '"+spec.Kind+"'")
		}
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return monitor.NewMulti(children...), nil
}

// BuildSignaller resolves a signaller list into a single fan-out sink.
func BuildSignaller(specs []SignallerSpec) (signal.Signaller, error) {
	if len(specs) == 0 {
		return signal.NewNull(), nil
	}
	children := make([]signal.Signaller, 0, len(specs))
	for _, spec := range specs {
		switch spec.Kind {
		case "log":
			children = append(children, signal.NewLog())
		case "null":
			children = append(children, signal.NewNull())
		default:
			return nil, errors.Wrap(exception.ErrInvalidConfig, "unknown signaller kind '"+spec.Kind+"'")
		}
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return signal.NewMulti(children...), nil
}
