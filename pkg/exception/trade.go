package exception

import "github.com/yanun0323/errors"

// Trade lifecycle errors
var (
	ErrUnknownOrder      = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid trade state transition")
	ErrNoCurrentBar      = errors.New("no current price bar")
)
