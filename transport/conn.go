package transport

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/go-i2p/go-samv3/wire"
)

// Conn wraps a single SAM command TCP connection: a line-oriented reader
// plus a raw net.Conn for writes. Every stateless or per-operation command
// channel in this library is one of these; the fsm packages never see it
// directly, they only ever see the command string it was asked to write and
// the Response it handed back.
type Conn struct {
	net.Conn
	r *bufio.Reader

	// PeerDestination is set by StreamAccept for a non-silent ACCEPT: the
	// connecting peer's destination line that precedes the data stream.
	// Empty for every other kind of Conn.
	PeerDestination string
}

// NewConn wraps an already-established net.Conn as a SAM command
// connection. Exported chiefly so tests can drive the engine over an
// in-memory net.Pipe instead of a real loopback TCP socket.
func NewConn(nc net.Conn) *Conn {
	return &Conn{Conn: nc, r: bufio.NewReader(nc)}
}

// DialTCP opens a new SAM command connection to addr (host:port), per spec
// §4.6: every stateless router operation and every stream operation opens
// its own fresh TCP.
func DialTCP(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		log.WithFields(logrus.Fields{"addr": addr}).WithError(err).Error("failed to dial SAM bridge")
		return nil, oops.Errorf("dialing SAM bridge at %s: %w", addr, err)
	}
	return NewConn(nc), nil
}

// Send writes a single already-terminated command string to the wire.
func (c *Conn) Send(cmd string) *wire.Error {
	if _, err := c.Conn.Write([]byte(cmd)); err != nil {
		return wire.IOError(oops.Errorf("writing SAM command: %w", err))
	}
	return nil
}

// Read implements net.Conn, shadowing the embedded net.Conn's Read. All
// reads go through c.r so that any bytes RecvLine (or the ACCEPT peer-line
// read) already pulled into the buffered reader's internal buffer are
// delivered to the caller instead of silently dropped - the adapter never
// reads past the first newline of each reply, but bufio may have buffered a
// few bytes of whatever followed it on the wire.
func (c *Conn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

// RecvLine reads one CRLF/LF-terminated reply line and parses it.
func (c *Conn) RecvLine() (wire.Response, *wire.Error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return wire.Response{}, wire.IOError(oops.Errorf("reading SAM reply: %w", err))
	}
	resp, perr := wire.Parse(line)
	if perr != nil {
		return wire.Response{}, perr
	}
	return resp, nil
}

// SetRoundTripDeadline is a thin convenience over the embedded net.Conn, used by
// callers that want a bounded round trip without plumbing a context.
func (c *Conn) SetRoundTripDeadline(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return c.Conn.SetDeadline(time.Now().Add(d))
}
