// Package router exposes the stateless SAMv3 router operations - NAMING
// LOOKUP and DEST GENERATE - as a small client, with an optional
// bounded cache in front of name resolution so a caller resolving the same
// few hostnames repeatedly doesn't pay a fresh TCP round trip every time.
package router

import "github.com/go-i2p/logger"

var log = logger.GetGoI2PLogger()
