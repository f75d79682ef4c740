package session

import (
	"context"
	"sync"

	"github.com/go-i2p/i2pkeys"

	"github.com/go-i2p/go-samv3/fsm"
	"github.com/go-i2p/go-samv3/options"
	"github.com/go-i2p/go-samv3/router"
	"github.com/go-i2p/go-samv3/transport"
)

// AnonymousSession sends and receives RAW-style UDP messages: no sender
// identity is attached to inbound packets, trading repliability for the
// lowest possible per-datagram overhead.
type AnonymousSession struct {
	ctrl     *fsm.Session
	cmd      *transport.Conn
	udp      *transport.UDPConn
	lookup   *router.Client
	protocol int

	mu     sync.Mutex
	closed bool
}

// NewAnonymousSession dials the bridge, creates a RAW-style session, and
// binds the local UDP socket those datagrams flow over. protocol is the
// I2CP protocol number stamped on outbound packets (0 for unset); header
// controls whether the router prepends its own protocol header to inbound
// packets.
func NewAnonymousSession(ctx context.Context, samAddr, samUDPAddr string, nickname string, opts *options.Options, localUDPPort, protocol int, header bool) (*AnonymousSession, error) {
	style := options.NewAnonymousStyle("127.0.0.1", localUDPPort, protocol, header)
	ctrl := fsm.NewSession(nickname, opts, style)
	cmd, ferr := transport.DialAndCreateSession(ctx, samAddr, ctrl)
	if ferr != nil {
		return nil, ferr
	}
	udp, err := transport.DialUDP(ctx, samUDPAddr, localUDPPort, nickname)
	if err != nil {
		cmd.Close()
		return nil, err
	}
	return &AnonymousSession{ctrl: ctrl, cmd: cmd, udp: udp, lookup: router.New(samAddr), protocol: protocol}, nil
}

// Destination returns the session's own I2P destination.
func (s *AnonymousSession) Destination() (i2pkeys.I2PAddr, error) {
	return i2pkeys.NewI2PAddrFromString(s.ctrl.Destination())
}

// SendTo sends payload to destination (a name or raw destination) using
// the plain, unextended datagram header.
func (s *AnonymousSession) SendTo(ctx context.Context, destination string, payload []byte) error {
	dest, err := s.resolve(ctx, destination)
	if err != nil {
		return err
	}
	if ferr := s.udp.SendAnonymous(dest, payload); ferr != nil {
		return ferr
	}
	return nil
}

// SendToWithOptions sends payload to destination using explicit
// FROM_PORT/TO_PORT values, equivalent to send_to_with_options().
func (s *AnonymousSession) SendToWithOptions(ctx context.Context, destination string, payload []byte, fromPort, toPort int) error {
	dest, err := s.resolve(ctx, destination)
	if err != nil {
		return err
	}
	if ferr := s.udp.SendAnonymousWithOptions(dest, payload, fromPort, toPort, s.protocol); ferr != nil {
		return ferr
	}
	return nil
}

// Recv blocks for one inbound anonymous datagram and returns its payload.
// There is no sender address to report - that is the entire point of the
// RAW style.
func (s *AnonymousSession) Recv(buf []byte) (int, error) {
	payload, ferr := s.udp.RecvAnonymous(buf)
	if ferr != nil {
		return 0, ferr
	}
	return copy(buf, payload), nil
}

func (s *AnonymousSession) resolve(ctx context.Context, destination string) (string, error) {
	if looksLikeDestination(destination) {
		return destination, nil
	}
	return s.lookup.LookupName(ctx, destination)
}

// Close releases the session's command connection and local UDP socket.
func (s *AnonymousSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var cmdErr error
	if s.cmd != nil {
		cmdErr = s.cmd.Close()
	}
	udpErr := s.udp.Close()
	if cmdErr != nil {
		return cmdErr
	}
	return udpErr
}
