package wire

import "fmt"

// RouterErrorKind is the closed set of error kinds a SAM bridge can report in
// a RESULT= field, per the SAMv3 reply grammar.
type RouterErrorKind int

const (
	CantReachPeer RouterErrorKind = iota
	DuplicatedDest
	I2PError
	InvalidKey
	KeyNotFound
	PeerNotFound
	Timeout
)

func (k RouterErrorKind) String() string {
	switch k {
	case CantReachPeer:
		return "CANT_REACH_PEER"
	case DuplicatedDest:
		return "DUPLICATED_DEST"
	case I2PError:
		return "I2P_ERROR"
	case InvalidKey:
		return "INVALID_KEY"
	case KeyNotFound:
		return "KEY_NOT_FOUND"
	case PeerNotFound:
		return "PEER_NOT_FOUND"
	case Timeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// RouterError is a well-formed router error reply: a RESULT= token this
// library recognises, plus the optional MESSAGE= text I2P_ERROR carries.
type RouterError struct {
	Kind    RouterErrorKind
	Message string
}

func (e *RouterError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

// classifyResult maps a RESULT= token to a RouterError. The second return
// value is false when the token is not in the closed taxonomy, in which case
// the caller must treat the line as InvalidMessage rather than invent a kind.
func classifyResult(result, message string) (*RouterError, bool) {
	switch result {
	case "CANT_REACH_PEER":
		return &RouterError{Kind: CantReachPeer}, true
	case "DUPLICATED_DEST":
		return &RouterError{Kind: DuplicatedDest}, true
	case "I2P_ERROR":
		return &RouterError{Kind: I2PError, Message: message}, true
	case "INVALID_KEY":
		return &RouterError{Kind: InvalidKey}, true
	case "KEY_NOT_FOUND":
		return &RouterError{Kind: KeyNotFound}, true
	case "PEER_NOT_FOUND":
		return &RouterError{Kind: PeerNotFound}, true
	case "TIMEOUT":
		return &RouterError{Kind: Timeout}, true
	default:
		return nil, false
	}
}

// ErrorKind is the top-level error taxonomy from the protocol engine, per
// the error handling design: Io, Malformed, and the three Protocol sub-kinds.
type ErrorKind int

const (
	ErrIO ErrorKind = iota
	ErrMalformed
	ErrInvalidState
	ErrInvalidMessage
	ErrRouter
)

func (k ErrorKind) String() string {
	switch k {
	case ErrIO:
		return "Io"
	case ErrMalformed:
		return "Malformed"
	case ErrInvalidState:
		return "Protocol::InvalidState"
	case ErrInvalidMessage:
		return "Protocol::InvalidMessage"
	case ErrRouter:
		return "Protocol::Router"
	default:
		return "Unknown"
	}
}

// Error is the single error type returned by every operation in the engine.
// Router is set for ErrRouter and Wrapped for ErrIO; the other kinds carry
// their detail in Msg.
type Error struct {
	Kind    ErrorKind
	Router  *RouterError
	Wrapped error
	Msg     string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrRouter:
		return fmt.Sprintf("%s: %s", e.Kind, e.Router.Error())
	case ErrIO, ErrMalformed:
		if e.Wrapped != nil {
			return fmt.Sprintf("%s: %s", e.Kind, e.Wrapped.Error())
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is reports whether target is an *Error with the same Kind (and, for
// Router errors, the same RouterErrorKind). Lets callers do
// errors.Is(err, wire.RouterErr(&wire.RouterError{Kind: wire.Timeout})) style
// checks via a sentinel,
// but most callers will type-assert and inspect Kind/Router directly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	if e.Kind == ErrRouter {
		return e.Router != nil && t.Router != nil && e.Router.Kind == t.Router.Kind
	}
	return true
}

func IOError(err error) *Error {
	return &Error{Kind: ErrIO, Wrapped: err}
}

func MalformedError(msg string) *Error {
	return &Error{Kind: ErrMalformed, Msg: msg}
}

func InvalidStateError(msg string) *Error {
	return &Error{Kind: ErrInvalidState, Msg: msg}
}

func InvalidMessageError(msg string) *Error {
	return &Error{Kind: ErrInvalidMessage, Msg: msg}
}

func RouterErr(re *RouterError) *Error {
	return &Error{Kind: ErrRouter, Router: re}
}
