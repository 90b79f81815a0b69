package schema

//go:generate go run main/cmd/tools/schemagen -dir .

// Wire message types, the discriminator of every frame except the
// connection handshake response.
const (
	TypeConnect           = "Connect"
	TypeIsReady           = "IsReady"
	TypeRequestAccounts   = "Request Accounts"
	TypeRequestStock      = "Request Stock"
	TypeRequestHistorical = "Request Historical Data"
	TypeRequestLiveData   = "Request Live Data"
	TypeFinalise          = "Finalise"

	TypeAccounts        = "Accounts"
	TypeStockResponse   = "Stock Response"
	TypeHistoricalBars  = "HistoricalBars"
	TypePrepareLiveBars = "Prepare for Live Bars"
	TypeLiveBar         = "Live Bar"
	TypeEndOfLiveBars   = "End of Live Bars"
	TypeServerExit      = "Server Exit"
	TypeFatalError      = "Fatal Error"
)

// Message is any client request that carries a correlation id assigned
// by the sending channel.
type Message interface {
	MessageType() string
	SetRequestID(id uint64)
}

// Request is the common part of every correlated client request.
type Request struct {
	Type      string `json:"Type"`
	RequestID uint64 `json:"RequestID"`
}

// MessageType returns the wire discriminator.
func (r *Request) MessageType() string { return r.Type }

// SetRequestID stamps the correlation id before transmission.
func (r *Request) SetRequestID(id uint64) { r.RequestID = id }

// ConnectRequest is the handshake payload sent to the rendezvous port.
// It carries no RequestID: the handshake is a one-shot exchange.
type ConnectRequest struct {
	Type string `json:"Type"`
}

// NewConnectRequest builds the handshake payload.
func NewConnectRequest() ConnectRequest {
	return ConnectRequest{Type: TypeConnect}
}

// ConnectResponse answers the handshake with the allocated port pair.
// "In" is the port the server receives on, so the client sends there.
type ConnectResponse struct {
	In    int    `json:"In,omitempty"`
	Out   int    `json:"Out,omitempty"`
	Error string `json:"Error,omitempty"`
}

// IsReadyRequest polls whether the server can accept commands yet.
type IsReadyRequest struct {
	Request
	What string `json:"What"`
}

// NewIsReadyRequest builds an IsReady poll for the named facility.
func NewIsReadyRequest(what string) *IsReadyRequest {
	return &IsReadyRequest{Request: Request{Type: TypeIsReady}, What: what}
}

// IsReadyResponse reports server readiness.
type IsReadyResponse struct {
	Request
	Ready bool `json:"Ready"`
}

// AccountsRequest asks for the tradable accounts.
type AccountsRequest struct {
	Request
}

// NewAccountsRequest builds an account listing request.
func NewAccountsRequest() *AccountsRequest {
	return &AccountsRequest{Request: Request{Type: TypeRequestAccounts}}
}

// Account identifies one tradable account.
type Account struct {
	ID string `json:"ID"`
}

// AccountsResponse lists the tradable accounts.
type AccountsResponse struct {
	Request
	Accounts []Account `json:"Accounts"`
}

// StockRequest asks the server to prepare a stock for trading.
type StockRequest struct {
	Request
	AccountID string `json:"AccountID"`
	Symbol    string `json:"Symbol"`
	Exchange  string `json:"Exchange"`
	Currency  string `json:"Currency"`
}

// NewStockRequest builds a stock preparation request.
func NewStockRequest(accountID, symbol, exchange, currency string) *StockRequest {
	return &StockRequest{
		Request:   Request{Type: TypeRequestStock},
		AccountID: accountID,
		Symbol:    symbol,
		Exchange:  exchange,
		Currency:  currency,
	}
}

// StockInfo is the server's view of a prepared stock.
type StockInfo struct {
	Symbol   string `json:"Symbol"`
	Exchange string `json:"Exchange"`
	Currency string `json:"Currency"`
}

// StockResponse confirms a prepared stock.
type StockResponse struct {
	Request
	Stock StockInfo `json:"Stock"`
}

// HistoricalRequest asks for past bars covering Timespan days backwards.
type HistoricalRequest struct {
	Request
	AccountID string `json:"AccountID"`
	Symbol    string `json:"Symbol"`
	Exchange  string `json:"Exchange"`
	Timespan  int    `json:"Timespan"`
}

// NewHistoricalRequest builds a historical data request.
func NewHistoricalRequest(accountID, symbol, exchange string, days int) *HistoricalRequest {
	return &HistoricalRequest{
		Request:   Request{Type: TypeRequestHistorical},
		AccountID: accountID,
		Symbol:    symbol,
		Exchange:  exchange,
		Timespan:  days,
	}
}

// HistoricalBarsResponse carries past bars for one symbol.
type HistoricalBarsResponse struct {
	Request
	Symbol   string    `json:"Symbol"`
	Exchange string    `json:"Exchange"`
	Bars     []WireBar `json:"Bars"`
}

// LiveDataRequest enrolls the requesting channel for a symbol's live bars.
// It receives no immediate reply.
type LiveDataRequest struct {
	Request
	AccountID string `json:"AccountID"`
	Symbol    string `json:"Symbol"`
	Exchange  string `json:"Exchange"`
}

// NewLiveDataRequest builds a live data subscription request.
func NewLiveDataRequest(accountID, symbol, exchange string) *LiveDataRequest {
	return &LiveDataRequest{
		Request:   Request{Type: TypeRequestLiveData},
		AccountID: accountID,
		Symbol:    symbol,
		Exchange:  exchange,
	}
}

// FinaliseRequest signals the readiness barrier. Its RequestID becomes
// the channel's status id, echoed on every subsequent push.
type FinaliseRequest struct {
	Request
}

// NewFinaliseRequest builds a readiness signal.
func NewFinaliseRequest() *FinaliseRequest {
	return &FinaliseRequest{Request: Request{Type: TypeFinalise}}
}

// Marker is a push that carries only the discriminator and status id:
// Prepare for Live Bars, End of Live Bars, Server Exit.
type Marker struct {
	Type      string `json:"Type"`
	RequestID uint64 `json:"RequestID"`
}

// LiveBarPush delivers one synchronized bar for a subscribed symbol.
type LiveBarPush struct {
	Type      string  `json:"Type"`
	RequestID uint64  `json:"RequestID"`
	Exchange  string  `json:"Exchange"`
	Symbol    string  `json:"Symbol"`
	Bar       WireBar `json:"Bar"`
}

// FatalErrorResponse reports a request the server could not serve.
type FatalErrorResponse struct {
	Type      string `json:"Type"`
	RequestID uint64 `json:"RequestID"`
	Message   string `json:"Message"`
}
