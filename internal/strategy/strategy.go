package strategy

import (
	"main/internal/schema"
)

// Decision directions returned by Decide.
const (
	Buy  = 1
	Hold = 0
	Sell = -1
)

// Strategy turns a bar history into trade decisions. AddRecord feeds
// every bar, historical and live; Decide is consulted once per live bar.
type Strategy interface {
	AddRecord(bar schema.PriceBar)
	Decide() int
}

// Null never trades.
type Null struct{}

// NewNull creates a strategy that always holds.
func NewNull() *Null { return &Null{} }

func (*Null) AddRecord(schema.PriceBar) {}

func (*Null) Decide() int { return Hold }
