package tcp

import (
	"fmt"
	"net"
	"time"

	"main/pkg/exception"
)

// Client dials TCP endpoints using a precomputed address.
type Client struct {
	addr string
}

// NewClient creates a client for the provided host and port.
func NewClient(host string, port int) (*Client, error) {
	if host == "" {
		return nil, exception.ErrInvalidArgument
	}
	if port <= 0 || port > 65535 {
		return nil, exception.ErrInvalidArgument
	}
	return &Client{addr: fmt.Sprintf("%s:%d", host, port)}, nil
}

// Addr returns the configured address.
func (c *Client) Addr() string {
	if c == nil {
		return ""
	}
	return c.addr
}

// Dial opens a connection, waiting up to timeout.
// A timeout of zero uses the operating system default.
func (c *Client) Dial(timeout time.Duration) (*Conn, error) {
	if c == nil {
		return nil, exception.ErrNilInstance
	}
	conn, err := net.DialTimeout(tcpNetwork, c.addr, timeout)
	if err != nil {
		return nil, err
	}
	return NewConn(conn), nil
}
