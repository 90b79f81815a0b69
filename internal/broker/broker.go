package broker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/schema"
	"main/pkg/exception"
	"main/pkg/tcp"
)

const (
	// DefaultRendezvousPort is the well-known connection request port.
	DefaultRendezvousPort = 29482
	// DefaultInPortBase starts the probe range for client->server ports.
	DefaultInPortBase = 30141
	// DefaultOutPortBase starts the probe range for server->client ports.
	DefaultOutPortBase = 31141

	defaultProbeAttempts = 500
	defaultEnrollTimeout = 100 * time.Second
	defaultAcceptTimeout = 25 * time.Second
)

// Config controls enrollment and port allocation.
type Config struct {
	Host           string
	RendezvousPort int
	InPortBase     int
	OutPortBase    int
	// ProbeAttempts bounds sequential port probing per direction.
	ProbeAttempts int
	// EnrollTimeout bounds the wait for each expected handshake.
	EnrollTimeout time.Duration
	// AcceptTimeout bounds the wait for a client to dial its allocated ports.
	AcceptTimeout time.Duration
}

func (cfg Config) withDefaults() Config {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.RendezvousPort <= 0 {
		cfg.RendezvousPort = DefaultRendezvousPort
	}
	if cfg.InPortBase <= 0 {
		cfg.InPortBase = DefaultInPortBase
	}
	if cfg.OutPortBase <= 0 {
		cfg.OutPortBase = DefaultOutPortBase
	}
	if cfg.ProbeAttempts <= 0 {
		cfg.ProbeAttempts = defaultProbeAttempts
	}
	if cfg.EnrollTimeout <= 0 {
		cfg.EnrollTimeout = defaultEnrollTimeout
	}
	if cfg.AcceptTimeout <= 0 {
		cfg.AcceptTimeout = defaultAcceptTimeout
	}
	return cfg
}

// Broker allocates a dedicated channel per client on a fixed rendezvous
// port. Enrollment is one-shot: once the expected number of handshakes
// has been processed the broker never listens for new connections again,
// and the registry is read-only for the rest of the session.
type Broker struct {
	cfg      Config
	channels map[int]*Channel
	nextKey  int
}

// New creates a broker with an empty channel registry.
func New(cfg Config) *Broker {
	return &Broker{
		cfg:      cfg.withDefaults(),
		channels: make(map[int]*Channel),
	}
}

// ListenForConnectionRequests serves expected handshakes on the
// rendezvous port. A client whose port allocation fails gets an explicit
// error reply and is abandoned; the broker keeps serving the remaining
// handshakes.
func (b *Broker) ListenForConnectionRequests(ctx context.Context, expected int) error {
	if expected <= 0 {
		return errors.Wrap(exception.ErrInvalidArgument, "expected clients must be positive")
	}
	rendezvous, err := tcp.NewServer(b.cfg.Host, b.cfg.RendezvousPort)
	if err != nil {
		return err
	}
	if err := rendezvous.Listen(); err != nil {
		return errors.Wrap(err, "bind rendezvous port")
	}
	defer rendezvous.Close()

	for i := 0; i < expected; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		logs.Infof("listening for connection request %d/%d", i+1, expected)
		conn, err := rendezvous.Accept(b.cfg.EnrollTimeout)
		if err != nil {
			return errors.Wrap(err, "await connection request")
		}
		b.enroll(conn)
	}
	return nil
}

// enroll processes one handshake connection. Any payload triggers
// allocation; the content is not inspected.
func (b *Broker) enroll(conn *tcp.Conn) {
	defer conn.Close()
	if _, err := conn.ReadFrame(b.cfg.EnrollTimeout); err != nil {
		logs.Errorf("read connection request, err: %v", err)
		return
	}

	inSrv, err := b.allocatePort(b.cfg.InPortBase)
	if err != nil {
		b.refuse(conn, err)
		return
	}
	outSrv, err := b.allocatePort(b.cfg.OutPortBase)
	if err != nil {
		inSrv.Close()
		b.refuse(conn, err)
		return
	}

	resp, err := schema.Encode(schema.ConnectResponse{In: inSrv.Port(), Out: outSrv.Port()})
	if err != nil {
		inSrv.Close()
		outSrv.Close()
		logs.Errorf("encode connect response, err: %v", err)
		return
	}
	if err := conn.WriteFrame(resp, b.cfg.AcceptTimeout); err != nil {
		inSrv.Close()
		outSrv.Close()
		logs.Errorf("reply to connection request, err: %v", err)
		return
	}

	recv, err := inSrv.Accept(b.cfg.AcceptTimeout)
	inSrv.Close()
	if err != nil {
		outSrv.Close()
		logs.Errorf("await client on in port %d, err: %v", inSrv.Port(), err)
		return
	}
	send, err := outSrv.Accept(b.cfg.AcceptTimeout)
	outSrv.Close()
	if err != nil {
		recv.Close()
		logs.Errorf("await client on out port %d, err: %v", outSrv.Port(), err)
		return
	}

	key := b.nextKey + 1
	b.nextKey = key
	b.channels[key] = &Channel{key: key, send: send, recv: recv}
	logs.Infof("granted connection request, in port %d, out port %d, key %d", inSrv.Port(), outSrv.Port(), key)
}

// allocatePort probes sequential ports from base until one binds.
func (b *Broker) allocatePort(base int) (*tcp.Server, error) {
	var lastErr error
	for i := 0; i < b.cfg.ProbeAttempts; i++ {
		srv, err := tcp.NewServer(b.cfg.Host, base+i)
		if err != nil {
			lastErr = err
			continue
		}
		if err := srv.Listen(); err != nil {
			lastErr = err
			continue
		}
		return srv, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no bindable port in [%d, %d)", base, base+b.cfg.ProbeAttempts)
	}
	return nil, errors.Wrap(exception.ErrNoPortAvailable, lastErr.Error())
}

func (b *Broker) refuse(conn *tcp.Conn, cause error) {
	logs.Errorf("abandoning client, err: %v", cause)
	resp, err := schema.Encode(schema.ConnectResponse{Error: cause.Error()})
	if err != nil {
		return
	}
	if err := conn.WriteFrame(resp, b.cfg.AcceptTimeout); err != nil {
		logs.Errorf("send refusal, err: %v", err)
	}
}

// Channel returns the channel registered under key.
func (b *Broker) Channel(key int) (*Channel, bool) {
	ch, ok := b.channels[key]
	return ch, ok
}

// Keys returns every registered channel key in ascending order.
func (b *Broker) Keys() []int {
	keys := make([]int, 0, len(b.channels))
	for key := range b.channels {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}

// Size returns the number of enrolled channels.
func (b *Broker) Size() int {
	return len(b.channels)
}

// CloseAll shuts every registered channel down.
func (b *Broker) CloseAll() {
	for _, ch := range b.channels {
		ch.Close()
	}
}
