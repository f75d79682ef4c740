// Package fsm implements the pure SAMv3 protocol state machines: the
// session controller (handshake -> create -> active), the stream
// sub-state overlay for connect/accept/forward, the primary/subsession
// coordinator, and the stateless router-API operations (name lookup,
// destination generation).
//
// Every operation here is a pure function over a value: it either produces
// an outbound command string and advances state, or consumes a parsed
// wire.Response and validates/advances state. No socket is opened or read
// in this package; that is the transport package's job.
package fsm

import "github.com/go-i2p/logger"

var log = logger.GetGoI2PLogger()
