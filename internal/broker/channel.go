package broker

import (
	"time"

	"github.com/yanun0323/errors"

	"main/internal/schema"
	"main/pkg/tcp"
)

// Channel is the server's side of one enrolled client: a send connection
// toward the client and a receive connection from it.
type Channel struct {
	key  int
	send *tcp.Conn
	recv *tcp.Conn
}

// Key returns the registry key issued at enrollment.
func (ch *Channel) Key() int {
	if ch == nil {
		return 0
	}
	return ch.key
}

// Send marshals and transmits one message to the client.
func (ch *Channel) Send(v any, timeout time.Duration) error {
	payload, err := schema.Encode(v)
	if err != nil {
		return err
	}
	if err := ch.send.WriteFrame(payload, timeout); err != nil {
		return errors.Wrap(err, "channel send")
	}
	return nil
}

// Receive waits up to timeout for one message from the client.
func (ch *Channel) Receive(timeout time.Duration) (schema.Envelope, error) {
	raw, err := ch.recv.ReadFrame(timeout)
	if err != nil {
		return schema.Envelope{}, err
	}
	return schema.ParseEnvelope(raw)
}

// Close shuts both directions down.
func (ch *Channel) Close() {
	if ch == nil {
		return
	}
	ch.send.Close()
	ch.recv.Close()
}
