package tcp

import (
	"bufio"
	"io"
	"net"
	"time"

	"main/pkg/exception"
)

const frameDelim = '\n'

// Conn is a framed connection: one message per newline-terminated frame.
// A deadline firing mid-frame does not desync the stream: partially read
// and partially written frames are carried over to the next call.
type Conn struct {
	conn net.Conn
	rd   *bufio.Reader

	// rpending holds the head of an inbound frame consumed before a
	// read deadline fired.
	rpending []byte
	// wpending holds the unsent tail of an outbound frame after a
	// write deadline fired.
	wpending []byte
}

// NewConn wraps an established network connection.
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn, rd: bufio.NewReader(conn)}
}

// WriteFrame sends one frame, waiting up to timeout for the write to land.
// A timeout of zero blocks until the kernel accepts the frame.
func (c *Conn) WriteFrame(payload []byte, timeout time.Duration) error {
	if c == nil || c.conn == nil {
		return exception.ErrConnectionClose
	}
	if timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	} else {
		if err := c.conn.SetWriteDeadline(time.Time{}); err != nil {
			return err
		}
	}
	// A leftover tail from a timed-out write goes first, otherwise the
	// peer would see a torn frame followed by this one's head.
	buf := make([]byte, 0, len(c.wpending)+len(payload)+1)
	buf = append(buf, c.wpending...)
	buf = append(buf, payload...)
	buf = append(buf, frameDelim)
	n, err := c.conn.Write(buf)
	if err != nil {
		c.wpending = append([]byte(nil), buf[n:]...)
		if isTimeout(err) {
			return exception.ErrTimeout
		}
		return err
	}
	c.wpending = nil
	return nil
}

// ReadFrame receives one frame, waiting up to timeout.
// A timeout of zero blocks until a frame arrives or the peer closes.
func (c *Conn) ReadFrame(timeout time.Duration) ([]byte, error) {
	if c == nil || c.conn == nil {
		return nil, exception.ErrConnectionClose
	}
	if timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
	} else {
		if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
			return nil, err
		}
	}
	line, err := c.rd.ReadBytes(frameDelim)
	if err != nil {
		// ReadBytes hands back whatever it consumed before failing;
		// keep it so the frame resumes where it broke off.
		c.rpending = append(c.rpending, line...)
		if isTimeout(err) {
			return nil, exception.ErrTimeout
		}
		if err == io.EOF {
			return nil, exception.ErrConnectionClose
		}
		return nil, err
	}
	frame := line
	if len(c.rpending) > 0 {
		frame = append(c.rpending, line...)
		c.rpending = nil
	}
	return frame[:len(frame)-1], nil
}

// Close shuts the connection down.
func (c *Conn) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
