package strategy

import (
	"main/internal/schema"
)

// Multi aggregates child strategies by vote. The summed decisions must
// reach minimalAgreement in magnitude before Multi commits to a
// direction; a split or weak vote holds.
type Multi struct {
	children         []Strategy
	minimalAgreement int
}

// NewMulti creates a voting strategy. A minimalAgreement below one is
// raised to one.
func NewMulti(minimalAgreement int, children ...Strategy) *Multi {
	if minimalAgreement < 1 {
		minimalAgreement = 1
	}
	return &Multi{children: children, minimalAgreement: minimalAgreement}
}

// AddRecord forwards the bar to every child.
func (s *Multi) AddRecord(bar schema.PriceBar) {
	for _, child := range s.children {
		child.AddRecord(bar)
	}
}

// Decide tallies the children's votes.
func (s *Multi) Decide() int {
	total := 0
	for _, child := range s.children {
		total += child.Decide()
	}
	switch {
	case total >= s.minimalAgreement:
		return Buy
	case total <= -s.minimalAgreement:
		return Sell
	default:
		return Hold
	}
}
