package transport

import (
	"context"
	"net"

	"github.com/go-i2p/go-samv3/fsm"
	"github.com/go-i2p/go-samv3/wire"
)

// Listener implements the lazy, restartable accept sequence from spec §4.7:
// Accept only opens a command connection and issues STREAM ACCEPT when a
// caller actually asks for a connection, and a STREAM ACCEPT that fails with
// a router error does not tear the listener down - the next Accept call
// simply tries again on a fresh connection.
type Listener struct {
	addr    string
	session *fsm.Session
}

// NewListener builds a Listener bound to an Active session; it performs no
// I/O until the first Accept call.
func NewListener(addr string, session *fsm.Session) *Listener {
	return &Listener{addr: addr, session: session}
}

// Accept blocks until an inbound stream arrives, returning the live data
// connection. On a router-level failure (e.g. TIMEOUT) it returns the error
// but leaves the Listener usable for the next call.
func (l *Listener) Accept(ctx context.Context) (net.Conn, *wire.Error) {
	c, ferr := StreamAccept(ctx, l.addr, l.session)
	if ferr != nil {
		return nil, ferr
	}
	return c, nil
}
