package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/controller"
	"main/internal/gateway"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/stock"
	"main/internal/transport"
)

func main() {
	configPath := flag.String("config", "config/trader.json", "Path to JSON config")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disabled)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sys.Shutdown()
		stop()
	}()

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trader",
			ServerAddress:   *pyroscopeAddr,
			Logger:          emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			logs.Errorf("start pyroscope, err: %v", err)
			os.Exit(1)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	if err := run(ctx, *configPath); err != nil {
		logs.Errorf("trader failed, err: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := ops.LoadClient(configPath)
	if err != nil {
		return err
	}

	metrics := obs.NewMetrics()
	stocks, sink, err := cfg.BuildStocks(metrics)
	if err != nil {
		return err
	}

	ch, err := transport.Connect(cfg.Connect(metrics))
	if err != nil {
		return err
	}
	g := gateway.New(ch)
	defer g.Close()

	ctrl, err := controller.New(controller.Config{
		Gateway:     g,
		Stocks:      stocks,
		Signaller:   sink,
		HistoryDays: cfg.HistoryDays,
		Reporter:    sessionReporter{},
	})
	if err != nil {
		return err
	}
	if err := ctrl.GoLive(ctx); err != nil {
		return err
	}

	snapshot := metrics.Snapshot()
	logs.Infof("session done: trades opened %d, closed %d, bars %d",
		snapshot.TradesOpened, snapshot.TradesClosed, snapshot.BarsDelivered)
	return nil
}

// sessionReporter summarizes the book at the end of the session.
type sessionReporter struct{}

func (sessionReporter) Initiate(stocks []*stock.Stock) {
	for _, st := range stocks {
		logs.Infof("trading %s", st.Symbol())
	}
}

func (sessionReporter) NewBars([]*stock.Stock) {}

func (sessionReporter) EndOfDay(stocks []*stock.Stock) {
	for _, st := range stocks {
		profit := 0.0
		for _, t := range st.ClosedTrades() {
			profit += t.Profit()
		}
		logs.Infof("%s: %d closed trades, %d still open, profit %.2f",
			st.Symbol(), len(st.ClosedTrades()), len(st.OpenTrades()), profit)
	}
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
