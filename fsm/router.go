package fsm

import (
	"fmt"

	"github.com/go-i2p/go-samv3/wire"
)

// RouterOp is the stateless-session FSM from spec §4.5: every call opens a
// fresh TCP, handshakes, runs one request, reads one reply, closes. Because
// nothing is retained between calls there is no persistent state beyond
// "have we handshaked yet", tracked per call by the small internal phase.
type RouterOp struct {
	phase routerPhase
}

type routerPhase int

const (
	routerUninitialized routerPhase = iota
	routerHandshaking
	routerHandshaked
	routerRequestPending
)

// NewRouterOp starts a fresh stateless router operation.
func NewRouterOp() *RouterOp { return &RouterOp{} }

// Handshake emits `HELLO VERSION\n`.
func (r *RouterOp) Handshake() (string, *wire.Error) {
	if r.phase != routerUninitialized {
		return "", wire.InvalidStateError("router op: handshake called out of order")
	}
	r.phase = routerHandshaking
	return "HELLO VERSION\n", nil
}

// LookupName emits `NAMING LOOKUP NAME=<name>\n`, once handshaked.
func (r *RouterOp) LookupName(name string) (string, *wire.Error) {
	if r.phase != routerHandshaked {
		return "", wire.InvalidStateError("router op: lookup called before handshake completed")
	}
	r.phase = routerRequestPending
	return fmt.Sprintf("NAMING LOOKUP NAME=%s\n", name), nil
}

// GenerateDestination emits `DEST GENERATE SIGNATURE_TYPE=<n>\n`. Per spec
// §4.5, DEST GENERATE requires no prior HELLO handshake on the router's own
// wire grammar, but this engine still performs one for consistency with
// every other command TCP, matching the teacher's behaviour of always
// handshaking a fresh SAM connection before using it.
func (r *RouterOp) GenerateDestination(sigType int) (string, *wire.Error) {
	if r.phase != routerHandshaked {
		return "", wire.InvalidStateError("router op: generate called before handshake completed")
	}
	r.phase = routerRequestPending
	return fmt.Sprintf("DEST GENERATE SIGNATURE_TYPE=%d\n", sigType), nil
}

// HandleHello consumes the HELLO REPLY.
func (r *RouterOp) HandleHello(resp wire.Response) *wire.Error {
	if r.phase != routerHandshaking {
		return wire.InvalidStateError("router op: unexpected HELLO REPLY")
	}
	if resp.Kind != wire.KindHello {
		return wire.InvalidMessageError("router op: expected HELLO REPLY, got " + resp.Kind.String())
	}
	if resp.Hello.Err != nil {
		return wire.RouterErr(resp.Hello.Err)
	}
	r.phase = routerHandshaked
	return nil
}

// HandleLookup consumes a NAMING REPLY and returns the resolved destination.
func (r *RouterOp) HandleLookup(resp wire.Response) (string, *wire.Error) {
	if r.phase != routerRequestPending {
		return "", wire.InvalidStateError("router op: unexpected NAMING REPLY")
	}
	r.phase = routerHandshaked
	if resp.Kind != wire.KindNamingLookup {
		return "", wire.InvalidMessageError("router op: expected NAMING REPLY, got " + resp.Kind.String())
	}
	if resp.NamingLookup.Err != nil {
		return "", wire.RouterErr(resp.NamingLookup.Err)
	}
	return resp.NamingLookup.Destination, nil
}

// HandleDestGen consumes a DEST REPLY and returns (destination, privateKey).
func (r *RouterOp) HandleDestGen(resp wire.Response) (string, string, *wire.Error) {
	if r.phase != routerRequestPending {
		return "", "", wire.InvalidStateError("router op: unexpected DEST REPLY")
	}
	r.phase = routerHandshaked
	if resp.Kind != wire.KindDestGen {
		return "", "", wire.InvalidMessageError("router op: expected DEST REPLY, got " + resp.Kind.String())
	}
	return resp.DestGen.Destination, resp.DestGen.PrivateKey, nil
}
