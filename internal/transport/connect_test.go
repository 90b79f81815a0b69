package transport

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"main/internal/schema"
	"main/pkg/tcp"
)

func listenTCP(t *testing.T) *tcp.Server {
	t.Helper()
	srv, err := tcp.NewServer("127.0.0.1", 0)
	require.NoError(t, err)
	require.NoError(t, srv.Listen())
	return srv
}

// deadPort returns a loopback port with nothing listening on it.
func deadPort(t *testing.T) int {
	t.Helper()
	srv := listenTCP(t)
	port := srv.Port()
	require.NoError(t, srv.Close())
	return port
}

func serveHandshake(t *testing.T, rendezvous *tcp.Server, resp schema.ConnectResponse) {
	t.Helper()
	conn, err := rendezvous.Accept(2 * time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ReadFrame(2 * time.Second)
	require.NoError(t, err)

	payload, err := json.Marshal(resp)
	require.NoError(t, err)
	require.NoError(t, conn.WriteFrame(payload, 2*time.Second))
}

func TestConnectRetriesFailedPairDial(t *testing.T) {
	rendezvous := listenTCP(t)
	defer rendezvous.Close()
	in := listenTCP(t)
	defer in.Close()
	out := listenTCP(t)
	defer out.Close()

	bogus := deadPort(t)

	go func() {
		// The first enrollment hands out a dead pair, the second a
		// live one.
		serveHandshake(t, rendezvous, schema.ConnectResponse{In: bogus, Out: bogus})
		serveHandshake(t, rendezvous, schema.ConnectResponse{In: in.Port(), Out: out.Port()})
	}()

	ch, err := Connect(ConnectConfig{
		Host:     "127.0.0.1",
		Port:     rendezvous.Port(),
		Timeout:  time.Second,
		Attempts: 2,
		Backoff:  10 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, ch.Close())
}
