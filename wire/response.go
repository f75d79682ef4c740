package wire

import "fmt"

// Kind tags which SAMv3 reply shape a Response carries.
type Kind int

const (
	KindHello Kind = iota
	// KindSessionStatus covers both the "Session" and "Subsession" reply
	// variants described by the SAMv3 grammar: both arrive as a literal
	// `SESSION STATUS` line. The parser cannot tell a SESSION CREATE reply
	// from a SESSION ADD reply without knowing which command was in
	// flight, so it reports everything it can read off the line and lets
	// the session state machine interpret it against its own pending
	// operation.
	KindSessionStatus
	KindStream
	KindNamingLookup
	KindDestGen
)

func (k Kind) String() string {
	switch k {
	case KindHello:
		return "Hello"
	case KindSessionStatus:
		return "SessionStatus"
	case KindStream:
		return "Stream"
	case KindNamingLookup:
		return "NamingLookup"
	case KindDestGen:
		return "DestGen"
	default:
		return "Unknown"
	}
}

// HelloReply is `HELLO REPLY RESULT=OK VERSION=v` or an error reply.
type HelloReply struct {
	Version string
	Err     *RouterError
}

// SessionStatusReply is `SESSION STATUS ...`, shared by SESSION CREATE and
// SESSION ADD replies. Destination is set for a successful session create;
// SessionID is set (quotes stripped) for a successful sub-session add. Neither is set
// on error.
type SessionStatusReply struct {
	Destination string
	SessionID   string
	Err         *RouterError
}

// StreamReply is `STREAM STATUS RESULT=OK` or an error reply.
type StreamReply struct {
	Err *RouterError
}

// NamingLookupReply is `NAMING REPLY RESULT=OK VALUE=d` or an error reply.
type NamingLookupReply struct {
	Destination string
	Err         *RouterError
}

// DestGenReply is `DEST REPLY PUB=... PRIV=...`. It carries no RESULT field;
// absence of either key is a grammar failure, not a router error.
type DestGenReply struct {
	Destination string
	PrivateKey  string
}

// Response is the typed result of parsing one SAMv3 reply line.
type Response struct {
	Kind Kind

	Hello         *HelloReply
	SessionStatus *SessionStatusReply
	Stream        *StreamReply
	NamingLookup  *NamingLookupReply
	DestGen       *DestGenReply
}

// String renders the canonical wire form of r. It is the inverse of Parse
// for every Response the session/router state machines actually produce,
// satisfying the parse(serialise(R)) == R round-trip property.
func (r Response) String() string {
	switch r.Kind {
	case KindHello:
		if r.Hello.Err != nil {
			return formatError("HELLO REPLY", r.Hello.Err)
		}
		return fmt.Sprintf("HELLO REPLY RESULT=OK VERSION=%s\n", r.Hello.Version)
	case KindSessionStatus:
		s := r.SessionStatus
		if s.Err != nil {
			return formatError("SESSION STATUS", s.Err)
		}
		if s.Destination != "" {
			return fmt.Sprintf("SESSION STATUS RESULT=OK DESTINATION=%s\n", s.Destination)
		}
		return fmt.Sprintf("SESSION STATUS RESULT=OK ID=%q\n", s.SessionID)
	case KindStream:
		if r.Stream.Err != nil {
			return formatError("STREAM STATUS", r.Stream.Err)
		}
		return "STREAM STATUS RESULT=OK\n"
	case KindNamingLookup:
		if r.NamingLookup.Err != nil {
			return formatError("NAMING REPLY", r.NamingLookup.Err)
		}
		return fmt.Sprintf("NAMING REPLY RESULT=OK VALUE=%s\n", r.NamingLookup.Destination)
	case KindDestGen:
		return fmt.Sprintf("DEST REPLY PUB=%s PRIV=%s\n", r.DestGen.Destination, r.DestGen.PrivateKey)
	default:
		return ""
	}
}

func formatError(prefix string, re *RouterError) string {
	if re.Kind == I2PError && re.Message != "" {
		return fmt.Sprintf("%s RESULT=%s MESSAGE=%q\n", prefix, re.Kind, re.Message)
	}
	return fmt.Sprintf("%s RESULT=%s\n", prefix, re.Kind)
}
