package tcp

import (
	"errors"
	"fmt"
	"net"
	"time"

	"main/pkg/exception"
)

const tcpNetwork = "tcp"

var (
	// ErrNilServer is returned when a nil server receiver is used.
	ErrNilServer = errors.New("tcp: nil server")
	// ErrAlreadyListening is returned when Listen is called twice.
	ErrAlreadyListening = errors.New("tcp: already listening")
	// ErrNotListening is returned when Accept is called before Listen.
	ErrNotListening = errors.New("tcp: not listening")
)

// Server listens for TCP connections on a single host:port.
type Server struct {
	host string
	port int
	ln   *net.TCPListener
}

// NewServer creates a server for the provided host and port.
func NewServer(host string, port int) (*Server, error) {
	if host == "" {
		return nil, exception.ErrInvalidArgument
	}
	if port < 0 || port > 65535 {
		return nil, exception.ErrInvalidArgument
	}
	return &Server{host: host, port: port}, nil
}

// Port returns the configured port. With port zero the listener picks an
// ephemeral port, reported here once Listen has bound it.
func (s *Server) Port() int {
	if s == nil {
		return 0
	}
	return s.port
}

// Listen starts listening on the configured address.
func (s *Server) Listen() error {
	if s == nil {
		return ErrNilServer
	}
	if s.ln != nil {
		return ErrAlreadyListening
	}
	addr, err := net.ResolveTCPAddr(tcpNetwork, fmt.Sprintf("%s:%d", s.host, s.port))
	if err != nil {
		return err
	}
	ln, err := net.ListenTCP(tcpNetwork, addr)
	if err != nil {
		return err
	}
	s.ln = ln
	if s.port == 0 {
		s.port = ln.Addr().(*net.TCPAddr).Port
	}
	return nil
}

// Accept waits up to timeout for the next incoming connection.
// A timeout of zero blocks until a connection arrives.
func (s *Server) Accept(timeout time.Duration) (*Conn, error) {
	if s == nil {
		return nil, ErrNilServer
	}
	if s.ln == nil {
		return nil, ErrNotListening
	}
	if timeout > 0 {
		if err := s.ln.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
	} else {
		if err := s.ln.SetDeadline(time.Time{}); err != nil {
			return nil, err
		}
	}
	conn, err := s.ln.AcceptTCP()
	if err != nil {
		if isTimeout(err) {
			return nil, exception.ErrTimeout
		}
		return nil, err
	}
	return NewConn(conn), nil
}

// Close stops the listener.
func (s *Server) Close() error {
	if s == nil {
		return ErrNilServer
	}
	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	s.ln = nil
	return err
}
