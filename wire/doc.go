// Package wire parses SAMv3 bridge reply lines into typed responses and
// classifies router error codes. It performs no I/O: callers hand it one
// line at a time and get back a Response or an Error.
package wire

import "github.com/go-i2p/logger"

var log = logger.GetGoI2PLogger()
