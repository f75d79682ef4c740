package transport

import (
	"context"

	"github.com/go-i2p/go-samv3/fsm"
	"github.com/go-i2p/go-samv3/wire"
)

// LookupName runs one NAMING LOOKUP round trip over a fresh command
// connection, per spec §4.5: no state survives past the call. Callers that
// want to avoid repeated round trips for popular names should use a
// router.Client built with router.WithLookupCache rather than hold the
// connection open.
func LookupName(ctx context.Context, addr, name string) (string, *wire.Error) {
	c, err := DialTCP(ctx, addr)
	if err != nil {
		return "", wire.IOError(err)
	}
	defer c.Close()

	op := fsm.NewRouterOp()
	if ferr := routerHandshake(c, op); ferr != nil {
		return "", ferr
	}
	cmd, ferr := op.LookupName(name)
	if ferr != nil {
		return "", ferr
	}
	resp, ferr := runRoundTrip(c, cmd)
	if ferr != nil {
		return "", ferr
	}
	return op.HandleLookup(resp)
}

// GenerateDestination runs one DEST GENERATE round trip and returns the new
// (destination, privateKey) pair.
func GenerateDestination(ctx context.Context, addr string, sigType int) (string, string, *wire.Error) {
	c, err := DialTCP(ctx, addr)
	if err != nil {
		return "", "", wire.IOError(err)
	}
	defer c.Close()

	op := fsm.NewRouterOp()
	if ferr := routerHandshake(c, op); ferr != nil {
		return "", "", ferr
	}
	cmd, ferr := op.GenerateDestination(sigType)
	if ferr != nil {
		return "", "", ferr
	}
	resp, ferr := runRoundTrip(c, cmd)
	if ferr != nil {
		return "", "", ferr
	}
	return op.HandleDestGen(resp)
}

func routerHandshake(c *Conn, op *fsm.RouterOp) *wire.Error {
	cmd, ferr := op.Handshake()
	if ferr != nil {
		return ferr
	}
	resp, ferr := runRoundTrip(c, cmd)
	if ferr != nil {
		return ferr
	}
	return op.HandleHello(resp)
}
