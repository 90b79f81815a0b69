package exception

import "github.com/yanun0323/errors"

// Transport and broker errors
var (
	ErrConnection      = errors.New("connection failed")
	ErrConnectionClose = errors.New("connection closed")
	ErrTimeout         = errors.New("receive timeout")
	ErrFatalProtocol   = errors.New("fatal protocol error")
	ErrNoPortAvailable = errors.New("no port available")
	ErrUnknownChannel  = errors.New("unknown channel key")
	ErrMalformedFrame  = errors.New("malformed wire frame")
	ErrMissingField    = errors.New("missing required field")
)
