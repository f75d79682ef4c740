// Package session is the public façade: the Session types an application
// actually imports. Each wraps a pure fsm.Session controller plus the
// transport calls needed to drive it - STREAM CONNECT/ACCEPT/FORWARD for
// StreamSession, UDP send/recv for RepliableSession and AnonymousSession,
// and SESSION ADD for PrimarySession's subsessions.
package session

import "github.com/go-i2p/logger"

var log = logger.GetGoI2PLogger()
