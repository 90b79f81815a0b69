package gateway

import (
	"sort"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/schema"
	"main/internal/transport"
	"main/pkg/exception"
)

const readyPollInterval = time.Second

// Gateway is the client's typed view of the server: it issues the setup
// requests, tracks which request ids belong to market data
// subscriptions, and hands the push stream back to the caller envelope
// by envelope.
type Gateway struct {
	ch *transport.Channel

	account  string
	statusID uint64

	// subscriptions maps a live data request id to its symbol so pushes
	// can be routed without re-reading the payload.
	subscriptions map[uint64]string
	subIDs        []uint64
}

// New wraps an established channel.
func New(ch *transport.Channel) *Gateway {
	return &Gateway{
		ch:            ch,
		subscriptions: make(map[uint64]string),
	}
}

// WaitUntilReady polls IsReady for the named facility until the server
// confirms.
func (g *Gateway) WaitUntilReady(what string) error {
	for {
		env, err := g.ch.Request(schema.NewIsReadyRequest(what))
		if err != nil {
			return errors.Wrap(err, "poll readiness")
		}
		var resp schema.IsReadyResponse
		if err := env.Decode(&resp); err != nil {
			return err
		}
		if resp.Ready {
			return nil
		}
		logs.Infof("%s not ready, polling again", what)
		time.Sleep(readyPollInterval)
	}
}

// Accounts fetches the tradable accounts and pins the first one for all
// subsequent requests.
func (g *Gateway) Accounts() (string, error) {
	env, err := g.ch.Request(schema.NewAccountsRequest())
	if err != nil {
		return "", errors.Wrap(err, "request accounts")
	}
	var resp schema.AccountsResponse
	if err := env.Decode(&resp); err != nil {
		return "", err
	}
	if len(resp.Accounts) == 0 {
		return "", errors.Wrap(exception.ErrMissingField, "no accounts returned")
	}
	g.account = resp.Accounts[0].ID
	return g.account, nil
}

// Stock asks the server to prepare the symbol for trading.
func (g *Gateway) Stock(symbol, exchange, currency string) (schema.StockInfo, error) {
	env, err := g.ch.Request(schema.NewStockRequest(g.account, symbol, exchange, currency))
	if err != nil {
		return schema.StockInfo{}, errors.Wrap(err, "request stock "+symbol)
	}
	var resp schema.StockResponse
	if err := env.Decode(&resp); err != nil {
		return schema.StockInfo{}, err
	}
	return resp.Stock, nil
}

// History fetches past day bars for the symbol, normalized into price
// bars.
func (g *Gateway) History(symbol, exchange string, days int) ([]schema.PriceBar, error) {
	env, err := g.ch.Request(schema.NewHistoricalRequest(g.account, symbol, exchange, days))
	if err != nil {
		return nil, errors.Wrap(err, "request history "+symbol)
	}
	var resp schema.HistoricalBarsResponse
	if err := env.Decode(&resp); err != nil {
		return nil, err
	}
	out := make([]schema.PriceBar, 0, len(resp.Bars))
	for _, wire := range resp.Bars {
		bar, err := wire.Normalize()
		if err != nil {
			return nil, errors.Wrap(err, "normalize bar for "+symbol)
		}
		out = append(out, bar)
	}
	return out, nil
}

// SubscribeMarketData enrolls for the symbol's live bars. The server
// sends no acknowledgement; pushes carry this request id.
func (g *Gateway) SubscribeMarketData(symbol, exchange string) (uint64, error) {
	id, err := g.ch.Send(schema.NewLiveDataRequest(g.account, symbol, exchange))
	if err != nil {
		return 0, errors.Wrap(err, "subscribe "+symbol)
	}
	g.subscriptions[id] = symbol
	g.subIDs = append(g.subIDs, id)
	sort.Slice(g.subIDs, func(i, j int) bool { return g.subIDs[i] < g.subIDs[j] })
	return id, nil
}

// Finalise signals readiness for the next batch. Markers echo the
// Finalise request id, so Listen matches on it.
func (g *Gateway) Finalise() error {
	id, err := g.ch.Send(schema.NewFinaliseRequest())
	if err != nil {
		return errors.Wrap(err, "finalise")
	}
	g.statusID = id
	return nil
}

// Listen blocks for the next push on any subscription or the current
// status id.
func (g *Gateway) Listen() (schema.Envelope, error) {
	ids := make([]uint64, 0, len(g.subIDs)+1)
	ids = append(ids, g.subIDs...)
	if g.statusID != 0 {
		ids = append(ids, g.statusID)
	}
	return g.ch.Receive(ids, true)
}

// SymbolForRequest maps a push's request id back to its symbol.
func (g *Gateway) SymbolForRequest(id uint64) (string, bool) {
	symbol, ok := g.subscriptions[id]
	return symbol, ok
}

// Close shuts the underlying channel down.
func (g *Gateway) Close() error {
	return g.ch.Close()
}
