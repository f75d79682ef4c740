package fsm

import (
	"fmt"

	"github.com/go-i2p/go-samv3/options"
	"github.com/go-i2p/go-samv3/wire"
)

// Session is the pure session-lifecycle state machine from spec §4.2,
// overlaid with the stream sub-state machine from spec §4.3 once Active.
// It never touches a socket: every exported method either returns the next
// outbound command and advances state, or consumes an already-parsed
// wire.Response and validates/advances state.
type Session struct {
	Nickname string
	Opts     *options.Options
	Style    options.Style

	state ControllerState
	sub   StreamSubState

	destination string

	// Mutual exclusion per spec §3 invariants: once Forward has been
	// issued (the router has confirmed it), Accept fails for the
	// lifetime of the session, and vice versa.
	forwardLocked bool
	acceptLocked  bool

	poisonReason string
}

// NewSession constructs a fresh Session in Uninitialized state.
func NewSession(nickname string, opts *options.Options, style options.Style) *Session {
	return &Session{Nickname: nickname, Opts: opts, Style: style}
}

// State returns the current controller state.
func (s *Session) State() ControllerState { return s.state }

// StreamState returns the current stream sub-state. Only meaningful when
// State() == Active.
func (s *Session) StreamState() StreamSubState { return s.sub }

// Destination returns the session's established I2P destination. It is
// only valid once State() == Active; the zero value means "not yet known".
func (s *Session) Destination() string { return s.destination }

func (s *Session) poison(reason string) *wire.Error {
	log.WithField("reason", reason).Error("session FSM observed an illegal transition; poisoning")
	s.state = Poisoned
	s.poisonReason = reason
	return wire.InvalidStateError(reason)
}

func (s *Session) requireState(want ControllerState, op string) *wire.Error {
	if s.state != want {
		return s.poison(fmt.Sprintf("%s: expected state %s, got %s", op, want, s.state))
	}
	return nil
}

func (s *Session) requireActiveSub(want StreamSubState, op string) *wire.Error {
	if s.state != Active {
		return s.poison(fmt.Sprintf("%s: expected Active session, got %s", op, s.state))
	}
	if s.sub != want {
		return s.poison(fmt.Sprintf("%s: expected stream sub-state %s, got %s", op, want, s.sub))
	}
	return nil
}

// HandshakeSession emits `HELLO VERSION\n` and advances Uninitialized ->
// Handshaking.
func (s *Session) HandshakeSession() (string, *wire.Error) {
	if err := s.requireState(Uninitialized, "handshake_session"); err != nil {
		return "", err
	}
	s.state = Handshaking
	return "HELLO VERSION\n", nil
}

// CreateSession emits `SESSION CREATE ...` and advances Handshaked ->
// SessionCreatePending.
func (s *Session) CreateSession() (string, *wire.Error) {
	if err := s.requireState(Handshaked, "create_session"); err != nil {
		return "", err
	}
	cmd := options.SessionCreateCommand(s.Nickname, s.Opts, s.Style)
	s.state = SessionCreatePending
	log.WithField("command", cmd).Debug("emitting SESSION CREATE")
	return cmd, nil
}

// HandshakeStream emits `HELLO VERSION\n` for a stream sub-operation,
// advancing Active{Uninitialized} -> Active{Handshaking}.
func (s *Session) HandshakeStream() (string, *wire.Error) {
	if err := s.requireActiveSub(SubUninitialized, "handshake_stream"); err != nil {
		return "", err
	}
	s.sub = SubHandshaking
	return "HELLO VERSION\n", nil
}

// CreateStream emits `STREAM CONNECT ...`, advancing Active{Handshaked} ->
// Active{Pending(Connect)}.
func (s *Session) CreateStream(destination string, fromPort, toPort int) (string, *wire.Error) {
	if err := s.requireActiveSub(SubHandshaked, "create_stream"); err != nil {
		return "", err
	}
	if s.forwardLocked {
		return "", s.poison("create_stream: session is locked into FORWARD mode")
	}
	cmd := fmt.Sprintf("STREAM CONNECT ID=%s DESTINATION=%s FROM_PORT=%d TO_PORT=%d SILENT=false\n",
		s.Nickname, destination, fromPort, toPort)
	s.sub = SubPendingConnect
	log.WithField("destination", truncateDestination(destination)).Debug("emitting STREAM CONNECT")
	return cmd, nil
}

// AcceptStream emits `STREAM ACCEPT ...`, advancing Active{Handshaked} ->
// Active{Pending(Accept)}.
func (s *Session) AcceptStream() (string, *wire.Error) {
	if err := s.requireActiveSub(SubHandshaked, "accept_stream"); err != nil {
		return "", err
	}
	if s.forwardLocked {
		return "", s.poison("accept_stream: FORWARD has already been issued on this session")
	}
	cmd := fmt.Sprintf("STREAM ACCEPT ID=%s SILENT=false\n", s.Nickname)
	s.sub = SubPendingAccept
	return cmd, nil
}

// ForwardStream emits `STREAM FORWARD ...`, advancing Active{Handshaked} ->
// Active{Pending(Forward)}.
func (s *Session) ForwardStream(port int, silent bool) (string, *wire.Error) {
	if err := s.requireActiveSub(SubHandshaked, "forward_stream"); err != nil {
		return "", err
	}
	if s.acceptLocked {
		return "", s.poison("forward_stream: ACCEPT has already been issued on this session")
	}
	cmd := fmt.Sprintf("STREAM FORWARD ID=%s PORT=%d SILENT=%t\n", s.Nickname, port, silent)
	s.sub = SubPendingForward
	return cmd, nil
}

// Handle parses a single reply line and feeds it to the FSM, validating it
// against the expected shape for the current state and advancing state on
// success. It is the single entry point the transport layer calls after
// reading one line.
func (s *Session) Handle(line string) *wire.Error {
	resp, perr := wire.Parse(line)
	if perr != nil {
		return s.poison(perr.Error())
	}
	return s.HandleResponse(resp)
}

// HandleResponse feeds an already-parsed Response to the FSM. Exposed
// separately from Handle so tests and alternate transports can construct
// Responses directly instead of round-tripping through wire text.
func (s *Session) HandleResponse(resp wire.Response) *wire.Error {
	switch s.state {
	case Handshaking:
		return s.handleSessionHello(resp)
	case SessionCreatePending:
		return s.handleSessionCreate(resp)
	case SubsessionCreatePending:
		return s.handleSubsessionCreate(resp)
	case Active:
		switch s.sub {
		case SubHandshaking:
			return s.handleStreamHello(resp)
		case SubPendingConnect, SubPendingAccept, SubPendingForward:
			return s.handleStreamReply(resp)
		default:
			return s.poison(fmt.Sprintf("unexpected response %s with stream sub-state %s", resp.Kind, s.sub))
		}
	default:
		return s.poison(fmt.Sprintf("unexpected response %s in state %s", resp.Kind, s.state))
	}
}

func (s *Session) handleSessionHello(resp wire.Response) *wire.Error {
	if resp.Kind != wire.KindHello {
		return s.poison("expected HELLO REPLY, got " + resp.Kind.String())
	}
	if resp.Hello.Err != nil {
		return wire.RouterErr(resp.Hello.Err)
	}
	s.state = Handshaked
	return nil
}

func (s *Session) handleSessionCreate(resp wire.Response) *wire.Error {
	if resp.Kind != wire.KindSessionStatus {
		return s.poison("expected SESSION STATUS, got " + resp.Kind.String())
	}
	ss := resp.SessionStatus
	if ss.Err != nil {
		// Router error bubbles up; the session never reaches Active so
		// there is nothing to reset - the caller must construct a new one.
		return wire.RouterErr(ss.Err)
	}
	if ss.Destination == "" {
		return s.poison("SESSION STATUS RESULT=OK missing DESTINATION for a create")
	}
	s.destination = ss.Destination
	s.state = Active
	s.sub = SubUninitialized
	return nil
}

// CreateSubsession emits `SESSION ADD ...` for a child session sharing this
// primary's destination and tunnel pool, advancing Active{Uninitialized}
// -> SubsessionCreatePending. Per spec §4.4 this command is issued on the
// primary's own command TCP; the transport layer is responsible for reusing
// that connection rather than opening a fresh one.
func (s *Session) CreateSubsession(childNickname string, childOpts *options.Options, childStyle options.Style) (string, *wire.Error) {
	if err := s.requireActiveSub(SubUninitialized, "create_subsession"); err != nil {
		return "", err
	}
	cmd := options.SessionAddCommand(childNickname, childOpts, childStyle)
	s.state = SubsessionCreatePending
	log.WithField("command", cmd).Debug("emitting SESSION ADD")
	return cmd, nil
}

func (s *Session) handleSubsessionCreate(resp wire.Response) *wire.Error {
	if resp.Kind != wire.KindSessionStatus {
		return s.poison("expected SESSION STATUS, got " + resp.Kind.String())
	}
	ss := resp.SessionStatus
	if ss.Err != nil {
		return wire.RouterErr(ss.Err)
	}
	// The parent reverts to Active{Uninitialized} regardless of whether the
	// reply happened to carry the child's SessionID - the parent's own
	// destination never changes.
	s.state = Active
	s.sub = SubUninitialized
	return nil
}

// NewSubsessionController builds the child's own controller by cloning the
// parent's destination, which per spec §4.4 a sub-session inherits and may
// never be Uninitialized for. The child's style-specific context (its own
// UDP socket, buffers, TCP) is entirely separate from the parent's.
func (s *Session) NewSubsessionController(childNickname string, childOpts *options.Options, childStyle options.Style) *Session {
	child := NewSession(childNickname, childOpts, childStyle)
	child.destination = s.destination
	child.state = Active
	child.sub = SubUninitialized
	return child
}

func (s *Session) handleStreamReply(resp wire.Response) *wire.Error {
	if resp.Kind != wire.KindStream {
		return s.poison("expected STREAM STATUS, got " + resp.Kind.String())
	}
	pending := s.sub
	// Per spec §4.2: a Pending(*) reply always resets to Uninitialized,
	// whether it succeeded or the router reported an error - this is what
	// makes a failed stream operation retry-friendly without tearing down
	// the session.
	s.sub = SubUninitialized
	if resp.Stream.Err != nil {
		return wire.RouterErr(resp.Stream.Err)
	}
	switch pending {
	case SubPendingAccept:
		s.acceptLocked = true
	case SubPendingForward:
		s.forwardLocked = true
	}
	return nil
}

func (s *Session) handleStreamHello(resp wire.Response) *wire.Error {
	if resp.Kind != wire.KindHello {
		return s.poison("expected HELLO REPLY, got " + resp.Kind.String())
	}
	if resp.Hello.Err != nil {
		s.sub = SubUninitialized
		return wire.RouterErr(resp.Hello.Err)
	}
	s.sub = SubHandshaked
	return nil
}

// truncateDestination implements spec §4.2's logging rule: only the first
// 10 characters of a remote destination are ever recorded, to keep logs
// readable. It never affects the wire command itself.
func truncateDestination(dest string) string {
	const n = 10
	if len(dest) <= n {
		return dest
	}
	return dest[:n]
}
