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

// RepliableSession sends and receives DATAGRAM-style (style 1) UDP
// messages: every inbound packet carries the sender's destination so the
// application can reply without a separate lookup.
type RepliableSession struct {
	ctrl   *fsm.Session
	cmd    *transport.Conn
	udp    *transport.UDPConn
	lookup *router.Client

	mu     sync.Mutex
	closed bool
}

// NewRepliableSession dials the bridge, creates a DATAGRAM-style session,
// and binds the local UDP socket those datagrams flow over.
func NewRepliableSession(ctx context.Context, samAddr, samUDPAddr string, nickname string, opts *options.Options, localUDPPort int) (*RepliableSession, error) {
	style := options.NewRepliableStyle("127.0.0.1", localUDPPort)
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
	return &RepliableSession{ctrl: ctrl, cmd: cmd, udp: udp, lookup: router.New(samAddr)}, nil
}

// Destination returns the session's own I2P destination.
func (s *RepliableSession) Destination() (i2pkeys.I2PAddr, error) {
	return i2pkeys.NewI2PAddrFromString(s.ctrl.Destination())
}

// SendTo sends payload to destination (a name or raw destination) using
// the plain, unextended datagram header.
func (s *RepliableSession) SendTo(ctx context.Context, destination string, payload []byte) error {
	dest, err := s.resolve(ctx, destination)
	if err != nil {
		return err
	}
	if ferr := s.udp.SendRepliable(dest, payload); ferr != nil {
		return ferr
	}
	return nil
}

// SendToWithOptions sends payload to destination using explicit
// FROM_PORT/TO_PORT values, equivalent to send_to_with_options().
func (s *RepliableSession) SendToWithOptions(ctx context.Context, destination string, payload []byte, fromPort, toPort int) error {
	dest, err := s.resolve(ctx, destination)
	if err != nil {
		return err
	}
	if ferr := s.udp.SendRepliableWithOptions(dest, payload, fromPort, toPort); ferr != nil {
		return ferr
	}
	return nil
}

// RecvFrom blocks for one inbound repliable datagram and returns its
// payload and sender.
func (s *RepliableSession) RecvFrom(buf []byte) (n int, from i2pkeys.I2PAddr, err error) {
	dg, ferr := s.udp.RecvRepliable(buf)
	if ferr != nil {
		return 0, i2pkeys.I2PAddr(""), ferr
	}
	from, err = i2pkeys.NewI2PAddrFromString(dg.Source)
	if err != nil {
		return 0, i2pkeys.I2PAddr(""), err
	}
	n = copy(buf, dg.Payload)
	return n, from, nil
}

func (s *RepliableSession) resolve(ctx context.Context, destination string) (string, error) {
	if looksLikeDestination(destination) {
		return destination, nil
	}
	return s.lookup.LookupName(ctx, destination)
}

// Close releases the session's command connection and local UDP socket.
func (s *RepliableSession) Close() error {
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
