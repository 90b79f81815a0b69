package transport

import (
	"encoding/json"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/obs"
	"main/internal/schema"
	"main/pkg/exception"
	"main/pkg/tcp"
)

const (
	defaultConnectAttempts = 5
	defaultConnectBackoff  = 5 * time.Second
)

// ConnectConfig describes how to reach the rendezvous port.
type ConnectConfig struct {
	Host string
	Port int

	// Timeout bounds the handshake exchange and later channel polls.
	Timeout time.Duration
	// Attempts bounds handshake retries before giving up.
	Attempts int
	// Backoff is the fixed delay between handshake retries.
	Backoff time.Duration

	Metrics *obs.Metrics
}

func (cfg ConnectConfig) withDefaults() ConnectConfig {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultConnectAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultConnectBackoff
	}
	return cfg
}

// Connect performs the rendezvous handshake and dials the allocated port
// pair. The whole attempt, handshake and pair dial alike, is retried with
// fixed backoff up to cfg.Attempts times before the failure becomes fatal
// to the caller.
func Connect(cfg ConnectConfig) (*Channel, error) {
	cfg = cfg.withDefaults()
	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		ch, err := connectOnce(cfg)
		if err != nil {
			lastErr = err
			logs.Warnf("connection attempt %d/%d failed, err: %v", attempt, cfg.Attempts, err)
			if attempt < cfg.Attempts {
				time.Sleep(cfg.Backoff)
			}
			continue
		}
		return ch, nil
	}
	return nil, errors.Wrap(exception.ErrConnection, lastErr.Error())
}

// connectOnce runs one full enrollment. A pair dial failure discards the
// allocation and re-enrolls from scratch on the next attempt.
func connectOnce(cfg ConnectConfig) (*Channel, error) {
	ports, err := handshake(cfg)
	if err != nil {
		return nil, err
	}
	logs.Infof("connected, sending to port %d, receiving from port %d", ports.In, ports.Out)
	return dialChannel(cfg, ports)
}

func handshake(cfg ConnectConfig) (schema.ConnectResponse, error) {
	client, err := tcp.NewClient(cfg.Host, cfg.Port)
	if err != nil {
		return schema.ConnectResponse{}, err
	}
	conn, err := client.Dial(cfg.Timeout)
	if err != nil {
		return schema.ConnectResponse{}, err
	}
	defer conn.Close()

	payload, err := schema.Encode(schema.NewConnectRequest())
	if err != nil {
		return schema.ConnectResponse{}, err
	}
	if err := conn.WriteFrame(payload, cfg.Timeout); err != nil {
		return schema.ConnectResponse{}, err
	}
	raw, err := conn.ReadFrame(cfg.Timeout)
	if err != nil {
		return schema.ConnectResponse{}, err
	}
	var resp schema.ConnectResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return schema.ConnectResponse{}, errors.Wrap(exception.ErrMalformedFrame, err.Error())
	}
	if resp.Error != "" {
		return schema.ConnectResponse{}, errors.Wrap(exception.ErrConnection, resp.Error)
	}
	if resp.In == 0 || resp.Out == 0 {
		return schema.ConnectResponse{}, errors.Wrap(exception.ErrMissingField, "port pair")
	}
	return resp, nil
}

// dialChannel opens the allocated pair. The server's In port is where the
// client sends; its Out port is where the client receives.
func dialChannel(cfg ConnectConfig, ports schema.ConnectResponse) (*Channel, error) {
	outClient, err := tcp.NewClient(cfg.Host, ports.In)
	if err != nil {
		return nil, err
	}
	out, err := outClient.Dial(cfg.Timeout)
	if err != nil {
		return nil, err
	}
	inClient, err := tcp.NewClient(cfg.Host, ports.Out)
	if err != nil {
		out.Close()
		return nil, err
	}
	in, err := inClient.Dial(cfg.Timeout)
	if err != nil {
		out.Close()
		return nil, err
	}
	return NewChannel(out, in, Config{Timeout: cfg.Timeout, Metrics: cfg.Metrics}), nil
}
