package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/gateway"
	"main/internal/schema"
	"main/internal/stock"
	"main/internal/transport"
	"main/pkg/tcp"
)

// scriptedServer speaks the server side of the wire protocol over an
// in-memory pipe pair.
type scriptedServer struct {
	in  *bufio.Reader
	out net.Conn
}

func newPipeGateway(t *testing.T) (*gateway.Gateway, *scriptedServer) {
	t.Helper()
	clientOut, serverIn := net.Pipe()
	serverOut, clientIn := net.Pipe()
	ch := transport.NewChannel(tcp.NewConn(clientOut), tcp.NewConn(clientIn), transport.Config{Timeout: 2 * time.Second})
	g := gateway.New(ch)
	t.Cleanup(func() {
		g.Close()
		serverIn.Close()
		serverOut.Close()
	})
	return g, &scriptedServer{in: bufio.NewReader(serverIn), out: serverOut}
}

func (s *scriptedServer) read(t *testing.T) schema.Envelope {
	t.Helper()
	line, err := s.in.ReadBytes('\n')
	require.NoError(t, err)
	env, err := schema.ParseEnvelope(line[:len(line)-1])
	require.NoError(t, err)
	return env
}

func (s *scriptedServer) expect(t *testing.T, wantType string) schema.Envelope {
	t.Helper()
	env := s.read(t)
	require.Equal(t, wantType, env.Type)
	return env
}

func (s *scriptedServer) write(t *testing.T, v any) {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	_, err = s.out.Write(append(payload, '\n'))
	require.NoError(t, err)
}

func (s *scriptedServer) pushBar(t *testing.T, statusID, subID uint64, bar schema.WireBar) {
	s.write(t, schema.Marker{Type: schema.TypePrepareLiveBars, RequestID: statusID})
	s.write(t, schema.LiveBarPush{Type: schema.TypeLiveBar, RequestID: subID, Symbol: "AAPL", Bar: bar})
	s.write(t, schema.Marker{Type: schema.TypeEndOfLiveBars, RequestID: statusID})
}

type scriptedStrategy struct {
	decisions []int
}

func (s *scriptedStrategy) AddRecord(schema.PriceBar) {}

func (s *scriptedStrategy) Decide() int {
	if len(s.decisions) == 0 {
		return 0
	}
	d := s.decisions[0]
	s.decisions = s.decisions[1:]
	return d
}

// countingReporter tallies milestone calls.
type countingReporter struct {
	initiated int
	newBars   int
	endOfDay  int
}

func (r *countingReporter) Initiate([]*stock.Stock) { r.initiated++ }

func (r *countingReporter) NewBars([]*stock.Stock) { r.newBars++ }

func (r *countingReporter) EndOfDay([]*stock.Stock) { r.endOfDay++ }

func wireBar(minute int, open, close float64) schema.WireBar {
	return schema.WireBar{
		Time:  schema.FormatBarTime(time.Date(2024, 3, 15, 9, 30+minute, 0, 0, time.UTC)),
		Open:  open,
		High:  close + 1,
		Low:   open - 1,
		Close: close,
	}
}

func TestGoLiveFullSession(t *testing.T) {
	g, server := newPipeGateway(t)

	strat := &scriptedStrategy{decisions: []int{1}}
	st := stock.New(stock.Config{Symbol: "AAPL", Exchange: "SMART", Currency: "USD", TradeAmount: 1000, Strategy: strat})
	reporter := &countingReporter{}

	ctrl, err := New(Config{
		Gateway:     g,
		Stocks:      []*stock.Stock{st},
		HistoryDays: 1,
		Reporter:    reporter,
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- ctrl.GoLive(context.Background())
	}()

	// Setup phases, in strict order.
	env := server.expect(t, schema.TypeIsReady)
	server.write(t, schema.IsReadyResponse{
		Request: schema.Request{Type: schema.TypeIsReady, RequestID: env.RequestID},
		Ready:   true,
	})

	env = server.expect(t, schema.TypeRequestAccounts)
	server.write(t, schema.AccountsResponse{
		Request:  schema.Request{Type: schema.TypeAccounts, RequestID: env.RequestID},
		Accounts: []schema.Account{{ID: "N/A"}},
	})

	env = server.expect(t, schema.TypeRequestStock)
	var stockReq schema.StockRequest
	require.NoError(t, env.Decode(&stockReq))
	assert.Equal(t, "N/A", stockReq.AccountID)
	assert.Equal(t, "AAPL", stockReq.Symbol)
	server.write(t, schema.StockResponse{
		Request: schema.Request{Type: schema.TypeStockResponse, RequestID: env.RequestID},
		Stock:   schema.StockInfo{Symbol: "AAPL", Exchange: "SMART", Currency: "USD"},
	})

	env = server.expect(t, schema.TypeRequestHistorical)
	server.write(t, schema.HistoricalBarsResponse{
		Request: schema.Request{Type: schema.TypeHistoricalBars, RequestID: env.RequestID},
		Symbol:  "AAPL",
		Bars:    []schema.WireBar{wireBar(-1, 99, 99)},
	})

	subEnv := server.expect(t, schema.TypeRequestLiveData)
	finalEnv := server.expect(t, schema.TypeFinalise)

	// Two synchronized batches, re-armed by a Finalise each.
	server.pushBar(t, finalEnv.RequestID, subEnv.RequestID, wireBar(0, 100, 100))
	finalEnv = server.expect(t, schema.TypeFinalise)
	server.pushBar(t, finalEnv.RequestID, subEnv.RequestID, wireBar(1, 102, 103))
	finalEnv = server.expect(t, schema.TypeFinalise)
	server.write(t, schema.Marker{Type: schema.TypeServerExit, RequestID: finalEnv.RequestID})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}

	// The buy decided on the first live bar filled at the second's open.
	require.Len(t, st.OpenTrades(), 1)
	assert.Equal(t, 102.0, st.OpenTrades()[0].OpenPrice)

	assert.Equal(t, 1, reporter.initiated)
	assert.Equal(t, 2, reporter.newBars)
	assert.Equal(t, 1, reporter.endOfDay)
}

func TestNewRequiresGatewayAndStocks(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNewRejectsDuplicateStocks(t *testing.T) {
	g, _ := newPipeGateway(t)
	st := stock.New(stock.Config{Symbol: "AAPL", TradeAmount: 1000})
	dup := stock.New(stock.Config{Symbol: "AAPL", TradeAmount: 1000})
	_, err := New(Config{Gateway: g, Stocks: []*stock.Stock{st, dup}})
	assert.Error(t, err)
}
