package signal

import (
	"time"

	"main/internal/trade"
)

// Signaller receives trade lifecycle events for delivery to an external
// sink. Flush is called once per processed bar so batching sinks can
// drain.
type Signaller interface {
	Initialise() error
	StartOrder(symbol string, t *trade.Trade)
	CloseOrder(symbol string, t *trade.Trade)
	CloseAll(symbol string, at time.Time)
	Flush()
}

// Null discards every event.
type Null struct{}

// NewNull creates a signaller that does nothing.
func NewNull() *Null { return &Null{} }

func (*Null) Initialise() error { return nil }

func (*Null) StartOrder(string, *trade.Trade) {}

func (*Null) CloseOrder(string, *trade.Trade) {}

func (*Null) CloseAll(string, time.Time) {}

func (*Null) Flush() {}
