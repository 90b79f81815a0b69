package trade

import (
	"time"

	"github.com/yanun0323/errors"

	"main/pkg/exception"
)

// State is the lifecycle stage of one trade. Transitions only move
// forward: Opening -> Open -> Closing -> Closed, with Failed as the
// terminal error stage.
type State int

const (
	StateOpening State = iota
	StateOpen
	StateClosing
	StateClosed
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Trade directions.
const (
	ActionBuy  = 1
	ActionSell = -1
)

// Trade is one round trip: an opening order, a held position, and a
// closing order. ReferencePrice is the close of the decision bar and
// anchors relative monitors until the open fill lands.
type Trade struct {
	Symbol string
	Shares int64
	Action int
	State  State

	ReferencePrice float64
	OpenPrice      float64
	ClosePrice     float64
	OpenTime       time.Time
	CloseTime      time.Time

	// CloseASAP marks a trade whose close was requested before the
	// opening order filled. The close order goes out on the open fill.
	CloseASAP bool
}

// New creates a trade in the Opening state, anchored at the decision
// bar's close.
func New(symbol string, shares int64, action int, referencePrice float64) *Trade {
	return &Trade{
		Symbol:         symbol,
		Shares:         shares,
		Action:         action,
		State:          StateOpening,
		ReferencePrice: referencePrice,
	}
}

// Fill applies an order fill: an Opening trade becomes Open, a Closing
// trade becomes Closed. Any other state rejects the fill.
func (t *Trade) Fill(price float64, at time.Time) error {
	switch t.State {
	case StateOpening:
		t.State = StateOpen
		t.OpenPrice = price
		t.OpenTime = at
		return nil
	case StateClosing:
		t.State = StateClosed
		t.ClosePrice = price
		t.CloseTime = at
		return nil
	default:
		return errors.Wrap(exception.ErrInvalidTransition, "fill in state "+t.State.String())
	}
}

// RequestClose moves an Open trade to Closing. On an Opening trade it
// flags CloseASAP instead, deferring the close until the open fill.
// Requesting again while Closing is a no-op.
func (t *Trade) RequestClose() error {
	switch t.State {
	case StateOpen:
		t.State = StateClosing
		return nil
	case StateOpening:
		t.CloseASAP = true
		return nil
	case StateClosing:
		return nil
	default:
		return errors.Wrap(exception.ErrInvalidTransition, "close in state "+t.State.String())
	}
}

// Fail marks the trade as unrecoverable.
func (t *Trade) Fail() {
	t.State = StateFailed
}

// Done reports whether the trade has reached a terminal state.
func (t *Trade) Done() bool {
	return t.State == StateClosed || t.State == StateFailed
}

// PercentReturn is the signed fractional return of a closed trade.
func (t *Trade) PercentReturn() float64 {
	if t.OpenPrice == 0 {
		return 0
	}
	return (t.ClosePrice/t.OpenPrice - 1) * float64(t.Action)
}

// Profit is the signed monetary result of a closed trade.
func (t *Trade) Profit() float64 {
	return (t.ClosePrice - t.OpenPrice) * float64(t.Shares) * float64(t.Action)
}
