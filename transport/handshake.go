package transport

import (
	"context"
	"strings"

	"github.com/samber/oops"

	"github.com/go-i2p/go-samv3/fsm"
	"github.com/go-i2p/go-samv3/options"
	"github.com/go-i2p/go-samv3/wire"
)

// runRoundTrip writes cmd then reads and returns exactly one reply line.
func runRoundTrip(c *Conn, cmd string) (wire.Response, *wire.Error) {
	if err := c.Send(cmd); err != nil {
		return wire.Response{}, err
	}
	return c.RecvLine()
}

// HandshakeSession drives a Session through HELLO VERSION on an already
// dialed command connection.
func HandshakeSession(c *Conn, s *fsm.Session) *wire.Error {
	cmd, ferr := s.HandshakeSession()
	if ferr != nil {
		return ferr
	}
	resp, ferr := runRoundTrip(c, cmd)
	if ferr != nil {
		return ferr
	}
	return s.HandleResponse(resp)
}

// CreateSession drives SESSION CREATE to completion, leaving s Active on
// success.
func CreateSession(c *Conn, s *fsm.Session) *wire.Error {
	cmd, ferr := s.CreateSession()
	if ferr != nil {
		return ferr
	}
	resp, ferr := runRoundTrip(c, cmd)
	if ferr != nil {
		return ferr
	}
	return s.HandleResponse(resp)
}

// DialAndCreateSession opens the primary command connection, performs
// HELLO and SESSION CREATE, and returns the still-open connection. The
// caller owns the connection's lifetime afterwards: for a primary session
// this command channel is then reused for SESSION ADD subsession calls,
// and for stream/datagram/raw sessions it is simply held open for the life
// of the session per the SAMv3 bridge's own requirement.
func DialAndCreateSession(ctx context.Context, addr string, s *fsm.Session) (*Conn, *wire.Error) {
	c, err := DialTCP(ctx, addr)
	if err != nil {
		return nil, wire.IOError(err)
	}
	if ferr := HandshakeSession(c, s); ferr != nil {
		c.Close()
		return nil, ferr
	}
	if ferr := CreateSession(c, s); ferr != nil {
		c.Close()
		return nil, ferr
	}
	return c, nil
}

// CreateSubsession issues SESSION ADD on the primary's own command
// connection, per spec §4.4.
func CreateSubsession(c *Conn, parent *fsm.Session, childNickname string, childOpts *options.Options, childStyle options.Style) (*fsm.Session, *wire.Error) {
	cmd, ferr := parent.CreateSubsession(childNickname, childOpts, childStyle)
	if ferr != nil {
		return nil, ferr
	}
	resp, ferr := runRoundTrip(c, cmd)
	if ferr != nil {
		return nil, ferr
	}
	if ferr := parent.HandleResponse(resp); ferr != nil {
		return nil, ferr
	}
	return parent.NewSubsessionController(childNickname, childOpts, childStyle), nil
}

// StreamConnect opens a fresh stream command connection, handshakes, and
// issues STREAM CONNECT. On success the returned *Conn is the live data
// stream - no further commands are sent over it, per spec §4.3.
func StreamConnect(ctx context.Context, addr string, s *fsm.Session, destination string, fromPort, toPort int) (*Conn, *wire.Error) {
	c, err := DialTCP(ctx, addr)
	if err != nil {
		return nil, wire.IOError(err)
	}
	if ferr := streamHandshake(c, s); ferr != nil {
		c.Close()
		return nil, ferr
	}
	cmd, ferr := s.CreateStream(destination, fromPort, toPort)
	if ferr != nil {
		c.Close()
		return nil, ferr
	}
	resp, ferr := runRoundTrip(c, cmd)
	if ferr != nil {
		c.Close()
		return nil, ferr
	}
	if ferr := s.HandleResponse(resp); ferr != nil {
		c.Close()
		return nil, ferr
	}
	return c, nil
}

// StreamAccept opens a fresh stream command connection and blocks for one
// inbound STREAM ACCEPT reply. Per spec §4.7 the caller is expected to loop
// this to implement a restartable listener. The engine always issues
// SILENT=false, so per spec §4.3/§9 a successful ACCEPT is followed by one
// extra line carrying the connecting peer's destination before the data
// stream begins; that line is consumed here and stashed on the returned
// Conn rather than delivered to the caller as payload.
func StreamAccept(ctx context.Context, addr string, s *fsm.Session) (*Conn, *wire.Error) {
	c, err := DialTCP(ctx, addr)
	if err != nil {
		return nil, wire.IOError(err)
	}
	if ferr := streamHandshake(c, s); ferr != nil {
		c.Close()
		return nil, ferr
	}
	cmd, ferr := s.AcceptStream()
	if ferr != nil {
		c.Close()
		return nil, ferr
	}
	resp, ferr := runRoundTrip(c, cmd)
	if ferr != nil {
		c.Close()
		return nil, ferr
	}
	if ferr := s.HandleResponse(resp); ferr != nil {
		c.Close()
		return nil, ferr
	}
	peerLine, err := c.r.ReadString('\n')
	if err != nil {
		c.Close()
		return nil, wire.IOError(oops.Errorf("reading ACCEPT peer destination line: %w", err))
	}
	c.PeerDestination = strings.TrimRight(peerLine, "\r\n")
	return c, nil
}

// StreamForward opens a fresh stream command connection and issues STREAM
// FORWARD. Per spec §4.3/§5, forwarding is not fire-and-forget: the
// connection is the router's only signal that forwarding should continue,
// so on success it is returned live for the caller to park inside the
// session - closing it is what tells the router to stop forwarding.
func StreamForward(ctx context.Context, addr string, s *fsm.Session, port int, silent bool) (*Conn, *wire.Error) {
	c, err := DialTCP(ctx, addr)
	if err != nil {
		return nil, wire.IOError(err)
	}
	if ferr := streamHandshake(c, s); ferr != nil {
		c.Close()
		return nil, ferr
	}
	cmd, ferr := s.ForwardStream(port, silent)
	if ferr != nil {
		c.Close()
		return nil, ferr
	}
	resp, ferr := runRoundTrip(c, cmd)
	if ferr != nil {
		c.Close()
		return nil, ferr
	}
	if ferr := s.HandleResponse(resp); ferr != nil {
		c.Close()
		return nil, ferr
	}
	return c, nil
}

func streamHandshake(c *Conn, s *fsm.Session) *wire.Error {
	cmd, ferr := s.HandshakeStream()
	if ferr != nil {
		return ferr
	}
	resp, ferr := runRoundTrip(c, cmd)
	if ferr != nil {
		return ferr
	}
	return s.HandleResponse(resp)
}
