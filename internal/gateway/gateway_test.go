package gateway

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
	"main/internal/transport"
	"main/pkg/tcp"
)

func newPipeGateway(t *testing.T) (*Gateway, *bufio.Reader, net.Conn) {
	t.Helper()
	clientOut, serverIn := net.Pipe()
	serverOut, clientIn := net.Pipe()
	ch := transport.NewChannel(tcp.NewConn(clientOut), tcp.NewConn(clientIn), transport.Config{Timeout: 2 * time.Second})
	g := New(ch)
	t.Cleanup(func() {
		g.Close()
		serverIn.Close()
		serverOut.Close()
	})
	return g, bufio.NewReader(serverIn), serverOut
}

func readEnvelope(t *testing.T, in *bufio.Reader) schema.Envelope {
	t.Helper()
	line, err := in.ReadBytes('\n')
	require.NoError(t, err)
	env, err := schema.ParseEnvelope(line[:len(line)-1])
	require.NoError(t, err)
	return env
}

func writeMessage(t *testing.T, out net.Conn, v any) {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	_, err = out.Write(append(payload, '\n'))
	require.NoError(t, err)
}

func TestWaitUntilReadyPollsUntilConfirmed(t *testing.T) {
	g, in, out := newPipeGateway(t)

	go func() {
		for i := 0; i < 2; i++ {
			env := readEnvelope(t, in)
			writeMessage(t, out, schema.IsReadyResponse{
				Request: schema.Request{Type: schema.TypeIsReady, RequestID: env.RequestID},
				Ready:   i == 1,
			})
		}
	}()

	require.NoError(t, g.WaitUntilReady("gateway"))
}

func TestAccountsPinsFirstAccount(t *testing.T) {
	g, in, out := newPipeGateway(t)

	go func() {
		env := readEnvelope(t, in)
		writeMessage(t, out, schema.AccountsResponse{
			Request:  schema.Request{Type: schema.TypeAccounts, RequestID: env.RequestID},
			Accounts: []schema.Account{{ID: "DU12345"}, {ID: "DU67890"}},
		})
	}()

	account, err := g.Accounts()
	require.NoError(t, err)
	assert.Equal(t, "DU12345", account)
}

func TestAccountsEmptyIsError(t *testing.T) {
	g, in, out := newPipeGateway(t)

	go func() {
		env := readEnvelope(t, in)
		writeMessage(t, out, schema.AccountsResponse{
			Request: schema.Request{Type: schema.TypeAccounts, RequestID: env.RequestID},
		})
	}()

	_, err := g.Accounts()
	assert.Error(t, err)
}

func TestSubscribeTracksRequestIDs(t *testing.T) {
	g, in, _ := newPipeGateway(t)

	drained := make(chan struct{})
	go func() {
		readEnvelope(t, in)
		readEnvelope(t, in)
		close(drained)
	}()

	first, err := g.SubscribeMarketData("AAPL", "SMART")
	require.NoError(t, err)
	second, err := g.SubscribeMarketData("MSFT", "SMART")
	require.NoError(t, err)
	<-drained

	symbol, ok := g.SymbolForRequest(first)
	require.True(t, ok)
	assert.Equal(t, "AAPL", symbol)

	symbol, ok = g.SymbolForRequest(second)
	require.True(t, ok)
	assert.Equal(t, "MSFT", symbol)

	_, ok = g.SymbolForRequest(999)
	assert.False(t, ok)
}

func TestHistoryNormalizesBars(t *testing.T) {
	g, in, out := newPipeGateway(t)

	go func() {
		env := readEnvelope(t, in)
		writeMessage(t, out, schema.HistoricalBarsResponse{
			Request: schema.Request{Type: schema.TypeHistoricalBars, RequestID: env.RequestID},
			Symbol:  "AAPL",
			Bars: []schema.WireBar{
				{Time: "20240315 09:30:00", Open: 100, High: 102, Low: 99, Close: 101, Volume: 3000},
			},
		})
	}()

	bars, err := g.History("AAPL", "SMART", 1)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC), bars[0].Time)
	assert.Equal(t, 101.0, bars[0].Close)
}
