package session

import (
	"context"
	"net"
	"sync"

	"github.com/go-i2p/i2pkeys"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/go-i2p/go-samv3/fsm"
	"github.com/go-i2p/go-samv3/options"
	"github.com/go-i2p/go-samv3/router"
	"github.com/go-i2p/go-samv3/transport"
)

// StreamSession provides TCP-like reliable connections over I2P: Dial to
// open outbound streams, Listen/Accept for inbound ones, and Forward to
// register a local TCP port to receive forwarded connections.
type StreamSession struct {
	ctrl    *fsm.Session
	addr    string
	cmd     *transport.Conn
	forward *transport.Conn
	lookup  *router.Client

	mu     sync.RWMutex
	closed bool
}

// NewStreamSession dials the SAM bridge, performs HELLO and SESSION
// CREATE{STYLE=STREAM}, and returns the resulting session. SAMAddr is the
// bridge's host:port; opts configures the session per spec §3.
func NewStreamSession(ctx context.Context, samAddr string, nickname string, opts *options.Options, style options.StreamStyle) (*StreamSession, error) {
	ctrl := fsm.NewSession(nickname, opts, style)
	c, ferr := transport.DialAndCreateSession(ctx, samAddr, ctrl)
	if ferr != nil {
		return nil, ferr
	}
	log.WithFields(logrus.Fields{"id": nickname, "destination": ctrl.Destination()}).Debug("stream session created")
	return &StreamSession{
		ctrl:   ctrl,
		addr:   samAddr,
		cmd:    c,
		lookup: router.New(samAddr),
	}, nil
}

// Destination returns the session's own I2P destination.
func (s *StreamSession) Destination() (i2pkeys.I2PAddr, error) {
	return i2pkeys.NewI2PAddrFromString(s.ctrl.Destination())
}

// Dial resolves destination (a name or a raw base64 destination) and opens
// an outbound stream to it, equivalent to connect() with default ports.
func (s *StreamSession) Dial(ctx context.Context, destination string) (net.Conn, error) {
	return s.DialWithOptions(ctx, destination, 0, 0, false)
}

// DialWithOptions opens an outbound stream with explicit FROM_PORT/TO_PORT
// settings, equivalent to connect_with_options(). silent is not sent to the
// router: STREAM CONNECT is always issued with SILENT=false.
func (s *StreamSession) DialWithOptions(ctx context.Context, destination string, fromPort, toPort int, silent bool) (net.Conn, error) {
	dest, err := s.resolve(ctx, destination)
	if err != nil {
		return nil, err
	}
	c, ferr := transport.StreamConnect(ctx, s.addr, s.ctrl, dest, fromPort, toPort)
	if ferr != nil {
		return nil, ferr
	}
	return c, nil
}

// DialDetached opens an outbound stream the same way Dial does, but returns
// a plain net.Conn with no reference back to this StreamSession - useful
// for a caller that wants to hand the connection off to code that should
// not be able to reach the session's other operations.
func (s *StreamSession) DialDetached(ctx context.Context, destination string) (net.Conn, error) {
	conn, err := s.Dial(ctx, destination)
	if err != nil {
		return nil, err
	}
	return detachedConn{Conn: conn}, nil
}

// detachedConn is net.Conn with nothing else attached, the Go rendering of
// the original implementation's connect_detached().
type detachedConn struct{ net.Conn }

func (s *StreamSession) resolve(ctx context.Context, destination string) (string, error) {
	if looksLikeDestination(destination) {
		return destination, nil
	}
	dest, ferr := s.lookup.LookupName(ctx, destination)
	if ferr != nil {
		return "", ferr
	}
	return dest, nil
}

// looksLikeDestination is a cheap heuristic: SAMv3 base64 destinations are
// long (hundreds of characters); anything short is treated as a name to
// resolve via NAMING LOOKUP.
func looksLikeDestination(s string) bool {
	return len(s) > 256
}

// Listen returns a restartable Listener for inbound streams on this
// session. Per spec §4.7, Accept is lazy: no command connection is opened
// until the caller actually calls Accept.
func (s *StreamSession) Listen() *transport.Listener {
	return transport.NewListener(s.addr, s.ctrl)
}

// Accept is shorthand for Listen().Accept(ctx), for callers that only want
// a single inbound connection.
func (s *StreamSession) Accept(ctx context.Context) (net.Conn, error) {
	c, ferr := transport.StreamAccept(ctx, s.addr, s.ctrl)
	if ferr != nil {
		return nil, ferr
	}
	return c, nil
}

// Forward registers localPort to receive inbound I2P streams forwarded by
// the router, per spec §4.3. silent suppresses the connecting peer's
// destination line on the forwarded TCP connection. The connection that
// carries the FORWARD registration is parked inside the session for its
// remaining life: the router keeps forwarding only as long as that
// connection stays open, so it is torn down on Close, not here.
func (s *StreamSession) Forward(ctx context.Context, localPort int, silent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.forward
	c, ferr := transport.StreamForward(ctx, s.addr, s.ctrl, localPort, silent)
	if ferr != nil {
		return ferr
	}
	s.forward = c
	if prev != nil {
		prev.Close()
	}
	return nil
}

// Close releases the session's primary command connection and, if Forward
// was ever called, the parked forwarding connection as well - closing it is
// what signals the router to stop forwarding.
func (s *StreamSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var cmdErr, forwardErr error
	if s.cmd != nil {
		cmdErr = s.cmd.Close()
	}
	if s.forward != nil {
		forwardErr = s.forward.Close()
	}
	if cmdErr != nil {
		return oops.Errorf("closing stream session command connection: %w", cmdErr)
	}
	if forwardErr != nil {
		return oops.Errorf("closing stream session forwarding connection: %w", forwardErr)
	}
	return nil
}
