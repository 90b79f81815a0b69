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

	"main/internal/backtest"
	"main/internal/broker"
	"main/internal/obs"
	"main/internal/ops"
)

func main() {
	configPath := flag.String("config", "config/backtest.json", "Path to JSON config")
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
			ApplicationName: "backtest",
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
		logs.Errorf("backtest server failed, err: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := ops.LoadServer(configPath)
	if err != nil {
		return err
	}
	source, closeSource, err := cfg.BuildSource()
	if err != nil {
		return err
	}
	if closeSource != nil {
		defer closeSource()
	}

	metrics := obs.NewMetrics()
	b := broker.New(cfg.Broker())
	if err := b.ListenForConnectionRequests(ctx, cfg.ExpectedClients); err != nil {
		return err
	}
	defer b.CloseAll()

	server := backtest.NewServer(cfg.Backtest(metrics))
	for _, key := range b.Keys() {
		ch, _ := b.Channel(key)
		server.AddChannel(ch)
	}
	if err := server.Run(ctx, source); err != nil {
		return err
	}

	snapshot := metrics.Snapshot()
	logs.Infof("session done: ticks %d, bars %d, sent %d, received %d",
		snapshot.TicksDelivered, snapshot.BarsDelivered, snapshot.MessagesSent, snapshot.MessagesReceived)
	return nil
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
