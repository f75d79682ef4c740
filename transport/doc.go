// Package transport supplies the I/O adapters the pure fsm/wire engine is
// driven through: blocking goroutine-per-connection callers, and a
// cooperative flavour that bounds concurrent SAM connections with a
// semaphore for callers that want to drive many sessions from one
// goroutine pool. Neither flavour touches the fsm/wire state machines'
// internals - they only feed them command strings and parsed responses
// across a net.Conn.
package transport

import "github.com/go-i2p/logger"

var log = logger.GetGoI2PLogger()
