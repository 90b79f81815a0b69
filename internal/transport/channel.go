package transport

import (
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/obs"
	"main/internal/schema"
	"main/pkg/exception"
	"main/pkg/tcp"
)

const defaultTimeout = 25 * time.Second

// Config controls a channel's polling behavior.
type Config struct {
	// Timeout bounds every send and every receive poll.
	Timeout time.Duration
	Metrics *obs.Metrics
}

// Channel is one client's framed request/response exchange over a
// dedicated pair of unidirectional connections. Every outbound message
// gets a fresh RequestID; responses are matched back by that id, with
// out-of-order arrivals parked in a cache until someone waits for them.
// Cache entries are removed as soon as they are consumed.
type Channel struct {
	out     *tcp.Conn
	in      *tcp.Conn
	timeout time.Duration
	metrics *obs.Metrics

	nextID uint64
	cache  map[uint64][]schema.Envelope
}

// NewChannel wraps an established connection pair. out carries requests
// to the peer, in carries the peer's messages back.
func NewChannel(out, in *tcp.Conn, cfg Config) *Channel {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Channel{
		out:     out,
		in:      in,
		timeout: timeout,
		metrics: cfg.Metrics,
		nextID:  1,
		cache:   make(map[uint64][]schema.Envelope),
	}
}

// Send stamps a fresh RequestID on the message and transmits it,
// returning the assigned id.
func (c *Channel) Send(msg schema.Message) (uint64, error) {
	if c == nil {
		return 0, exception.ErrNilInstance
	}
	id := c.nextID
	c.nextID++
	msg.SetRequestID(id)

	payload, err := schema.Encode(msg)
	if err != nil {
		return 0, err
	}
	if err := c.out.WriteFrame(payload, c.timeout); err != nil {
		return 0, errors.Wrap(err, "send "+msg.MessageType())
	}
	c.metrics.IncSent()
	return id, nil
}

// Receive returns the next message whose RequestID is in ids, first
// draining the out-of-order cache. A Fatal Error is returned no matter
// which id it carries. With ignoreTimeout set the poll blocks
// indefinitely, accepting unrelated pushes along the way; otherwise a poll
// that expires without a match fails with exception.ErrTimeout.
func (c *Channel) Receive(ids []uint64, ignoreTimeout bool) (schema.Envelope, error) {
	if c == nil {
		return schema.Envelope{}, exception.ErrNilInstance
	}
	for _, id := range ids {
		if pending := c.cache[id]; len(pending) > 0 {
			env := pending[0]
			if len(pending) == 1 {
				delete(c.cache, id)
			} else {
				c.cache[id] = pending[1:]
			}
			c.metrics.IncCacheHit()
			c.metrics.AddCacheDepth(-1)
			return env, nil
		}
	}

	timeout := c.timeout
	if ignoreTimeout {
		timeout = 0
	}
	for {
		raw, err := c.in.ReadFrame(timeout)
		if err != nil {
			if errors.Is(err, exception.ErrTimeout) {
				c.metrics.IncTimeout()
			}
			return schema.Envelope{}, err
		}
		env, err := schema.ParseEnvelope(raw)
		if err != nil {
			return schema.Envelope{}, err
		}
		c.metrics.IncReceived()

		if env.HasID && containsID(ids, env.RequestID) {
			return env, nil
		}
		// A fatal error ends the session whichever request it answers;
		// parking it would hide the desync from the caller.
		if env.Type == schema.TypeFatalError {
			return env, nil
		}
		if !env.HasID {
			logs.Warnf("dropping uncorrelated %s message", env.Type)
			continue
		}
		c.cache[env.RequestID] = append(c.cache[env.RequestID], env)
		c.metrics.AddCacheDepth(1)
	}
}

// Request sends a message and blocks for its correlated response. A
// Fatal Error response aborts the operation with
// exception.ErrFatalProtocol.
func (c *Channel) Request(msg schema.Message) (schema.Envelope, error) {
	id, err := c.Send(msg)
	if err != nil {
		return schema.Envelope{}, err
	}
	env, err := c.Receive([]uint64{id}, false)
	if err != nil {
		return schema.Envelope{}, err
	}
	if env.Type == schema.TypeFatalError {
		var fatal schema.FatalErrorResponse
		if decodeErr := env.Decode(&fatal); decodeErr != nil {
			return schema.Envelope{}, decodeErr
		}
		return schema.Envelope{}, errors.Wrap(exception.ErrFatalProtocol, fatal.Message)
	}
	return env, nil
}

// Close shuts both directions down.
func (c *Channel) Close() error {
	if c == nil {
		return nil
	}
	outErr := c.out.Close()
	inErr := c.in.Close()
	if outErr != nil {
		return outErr
	}
	return inErr
}

func containsID(ids []uint64, id uint64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
