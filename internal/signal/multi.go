package signal

import (
	"time"

	"main/internal/trade"
)

// Multi fans every event out to all child signallers.
type Multi struct {
	children []Signaller
}

// NewMulti creates a fan-out signaller.
func NewMulti(children ...Signaller) *Multi {
	return &Multi{children: children}
}

// Initialise initialises every child, stopping at the first failure.
func (s *Multi) Initialise() error {
	for _, child := range s.children {
		if err := child.Initialise(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Multi) StartOrder(symbol string, t *trade.Trade) {
	for _, child := range s.children {
		child.StartOrder(symbol, t)
	}
}

func (s *Multi) CloseOrder(symbol string, t *trade.Trade) {
	for _, child := range s.children {
		child.CloseOrder(symbol, t)
	}
}

func (s *Multi) CloseAll(symbol string, at time.Time) {
	for _, child := range s.children {
		child.CloseAll(symbol, at)
	}
}

func (s *Multi) Flush() {
	for _, child := range s.children {
		child.Flush()
	}
}
