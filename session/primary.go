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

// PrimarySession holds a single router-allocated destination and tunnel
// pool shared by any number of subsessions created against it, per spec
// §4.4. It carries no data operations of its own.
type PrimarySession struct {
	ctrl *fsm.Session
	addr string
	cmd  *transport.Conn

	mu     sync.Mutex
	closed bool
}

// NewPrimarySession dials the bridge and creates a PRIMARY-style session.
func NewPrimarySession(ctx context.Context, samAddr string, nickname string, opts *options.Options) (*PrimarySession, error) {
	ctrl := fsm.NewSession(nickname, opts, options.PrimaryStyle{})
	cmd, ferr := transport.DialAndCreateSession(ctx, samAddr, ctrl)
	if ferr != nil {
		return nil, ferr
	}
	return &PrimarySession{ctrl: ctrl, addr: samAddr, cmd: cmd}, nil
}

// Destination returns the destination shared by this primary and all of
// its subsessions.
func (p *PrimarySession) Destination() (i2pkeys.I2PAddr, error) {
	return i2pkeys.NewI2PAddrFromString(p.ctrl.Destination())
}

// CreateSubsessionStream adds a STREAM-style subsession under this
// primary, reusing the primary's own command connection for the SESSION
// ADD call per spec §4.4.
func (p *PrimarySession) CreateSubsessionStream(ctx context.Context, childNickname string, childOpts *options.Options, style options.StreamStyle) (*StreamSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	child, ferr := transport.CreateSubsession(p.cmd, p.ctrl, childNickname, childOpts, style)
	if ferr != nil {
		return nil, ferr
	}
	// A subsession has no command connection of its own: STREAM
	// CONNECT/ACCEPT/FORWARD each open a fresh TCP per spec §4.6 exactly
	// like a standalone StreamSession's do, keyed by the child's own nickname.
	return &StreamSession{ctrl: child, addr: p.addr, lookup: router.New(p.addr)}, nil
}

// CreateSubsessionRepliable adds a DATAGRAM-style subsession under this
// primary.
func (p *PrimarySession) CreateSubsessionRepliable(ctx context.Context, childNickname string, childOpts *options.Options, localUDPPort int, samUDPAddr string) (*RepliableSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	style := options.NewRepliableStyle("127.0.0.1", localUDPPort)
	child, ferr := transport.CreateSubsession(p.cmd, p.ctrl, childNickname, childOpts, style)
	if ferr != nil {
		return nil, ferr
	}
	udp, err := transport.DialUDP(ctx, samUDPAddr, localUDPPort, childNickname)
	if err != nil {
		return nil, err
	}
	return &RepliableSession{ctrl: child, udp: udp, lookup: router.New(p.addr)}, nil
}

// Close releases the primary's own command connection. Subsessions created
// from it hold independent connections and are unaffected.
func (p *PrimarySession) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.cmd.Close()
}
