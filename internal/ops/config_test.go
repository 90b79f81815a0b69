package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/strategy"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadServerCSV(t *testing.T) {
	path := writeConfig(t, `{
		"host": "127.0.0.1",
		"rendezvousPort": 29482,
		"expectedClients": 2,
		"barrierTimeoutMs": 30000,
		"source": {"kind": "csv", "dir": "./data"}
	}`)

	cfg, err := LoadServer(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.ExpectedClients)

	brokerCfg := cfg.Broker()
	assert.Equal(t, "127.0.0.1", brokerCfg.Host)
	assert.Equal(t, 29482, brokerCfg.RendezvousPort)

	backtestCfg := cfg.Backtest(nil)
	assert.Equal(t, 30*time.Second, backtestCfg.BarrierTimeout)

	source, closer, err := cfg.BuildSource()
	require.NoError(t, err)
	assert.NotNil(t, source)
	assert.Nil(t, closer)
}

func TestLoadServerRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no clients", `{"expectedClients": 0, "source": {"kind": "csv", "dir": "d"}}`},
		{"unknown source", `{"expectedClients": 1, "source": {"kind": "ftp"}}`},
		{"csv without dir", `{"expectedClients": 1, "source": {"kind": "csv"}}`},
		{"postgres without database", `{"expectedClients": 1, "source": {"kind": "postgres"}}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadServer(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadClientAndBuildStocks(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"host": "127.0.0.1", "port": 29482, "timeoutMs": 25000},
		"historyDays": 1,
		"stocks": [{
			"symbol": "AAPL",
			"exchange": "SMART",
			"currency": "USD",
			"tradeAmount": 10000,
			"strategy": {
				"kind": "vote",
				"minimalAgreement": 2,
				"children": [
					{"kind": "movingAverage", "smallWindow": 5, "largeWindow": 20, "threshold": 0.002},
					{"kind": "movingAverage", "smallWindow": 10, "largeWindow": 40, "threshold": 0.001}
				]
			},
			"monitors": [
				{"kind": "boundary", "stopLoss": 50, "takeProfit": 100},
				{"kind": "timeLimit", "limitSeconds": 3600}
			],
			"signallers": [{"kind": "log"}]
		}]
	}`)

	cfg, err := LoadClient(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.HistoryDays)

	connectCfg := cfg.Connect(nil)
	assert.Equal(t, "127.0.0.1", connectCfg.Host)
	assert.Equal(t, 25*time.Second, connectCfg.Timeout)

	stocks, sink, err := cfg.BuildStocks(nil)
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.Equal(t, "AAPL", stocks[0].Symbol())
	assert.NotNil(t, sink)
}

func TestLoadClientRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no stocks", `{"stocks": []}`},
		{"missing symbol", `{"stocks": [{"tradeAmount": 100}]}`},
		{"bad amount", `{"stocks": [{"symbol": "X", "tradeAmount": 0}]}`},
		{"duplicate symbol", `{"stocks": [
			{"symbol": "X", "tradeAmount": 100},
			{"symbol": "X", "tradeAmount": 100}
		]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadClient(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestBuildStrategyUnknownKind(t *testing.T) {
	_, err := BuildStrategy(&StrategySpec{Kind: "astrology"})
	assert.Error(t, err)
}

func TestBuildStrategyNilIsNull(t *testing.T) {
	s, err := BuildStrategy(nil)
	require.NoError(t, err)
	assert.IsType(t, &strategy.Null{}, s)
}

func TestBuildMonitorValidation(t *testing.T) {
	_, err := BuildMonitor([]MonitorSpec{{Kind: "timeLimit", LimitSeconds: 0}})
	assert.Error(t, err)

	_, err = BuildMonitor([]MonitorSpec{{Kind: "gremlin"}})
	assert.Error(t, err)
}

func TestBuildSignallerUnknownKind(t *testing.T) {
	_, err := BuildSignaller([]SignallerSpec{{Kind: "carrier-pigeon"}})
	assert.Error(t, err)
}
