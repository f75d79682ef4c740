package fsm

import (
	"strings"
	"testing"

	"github.com/go-i2p/go-samv3/options"
	"github.com/go-i2p/go-samv3/wire"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	opts, err := options.New(options.WithNickname("N"))
	if err != nil {
		t.Fatalf("options.New: %v", err)
	}
	return NewSession("N", opts, options.StreamStyle{})
}

func driveToActive(t *testing.T, s *Session, dest string) {
	t.Helper()
	if _, err := s.HandshakeSession(); err != nil {
		t.Fatalf("handshake_session: %v", err)
	}
	if err := s.HandleResponse(wire.Response{Kind: wire.KindHello, Hello: &wire.HelloReply{Version: "3.3"}}); err != nil {
		t.Fatalf("handle hello: %v", err)
	}
	if s.State() != Handshaked {
		t.Fatalf("expected Handshaked, got %s", s.State())
	}
	if _, err := s.CreateSession(); err != nil {
		t.Fatalf("create_session: %v", err)
	}
	if err := s.HandleResponse(wire.Response{Kind: wire.KindSessionStatus, SessionStatus: &wire.SessionStatusReply{Destination: dest}}); err != nil {
		t.Fatalf("handle session status: %v", err)
	}
}

// S1 — session create (transient stream).
func TestS1SessionCreate(t *testing.T) {
	s := newTestSession(t)
	driveToActive(t, s, "AAA")
	if s.State() != Active {
		t.Fatalf("expected Active, got %s", s.State())
	}
	if s.Destination() != "AAA" {
		t.Fatalf("expected destination AAA, got %q", s.Destination())
	}
	if s.StreamState() != SubUninitialized {
		t.Fatalf("expected stream sub-state Uninitialized, got %s", s.StreamState())
	}
}

// S2 — outbound stream connect.
func TestS2StreamConnect(t *testing.T) {
	s := newTestSession(t)
	driveToActive(t, s, "AAA")

	if _, err := s.HandshakeStream(); err != nil {
		t.Fatalf("handshake_stream: %v", err)
	}
	if err := s.HandleResponse(wire.Response{Kind: wire.KindHello, Hello: &wire.HelloReply{Version: "3.3"}}); err != nil {
		t.Fatalf("handle stream hello: %v", err)
	}
	cmd, err := s.CreateStream("BBB", 0, 0)
	if err != nil {
		t.Fatalf("create_stream: %v", err)
	}
	want := "STREAM CONNECT ID=N DESTINATION=BBB FROM_PORT=0 TO_PORT=0 SILENT=false\n"
	if cmd != want {
		t.Fatalf("unexpected command: %q", cmd)
	}
	if err := s.HandleResponse(wire.Response{Kind: wire.KindStream, Stream: &wire.StreamReply{}}); err != nil {
		t.Fatalf("handle stream status: %v", err)
	}
	if s.StreamState() != SubUninitialized {
		t.Fatalf("expected stream sub-state to reset to Uninitialized, got %s", s.StreamState())
	}
}

// S3 — stream error, retry.
func TestS3StreamErrorThenRetry(t *testing.T) {
	s := newTestSession(t)
	driveToActive(t, s, "AAA")

	doHandshake := func() {
		if _, err := s.HandshakeStream(); err != nil {
			t.Fatalf("handshake_stream: %v", err)
		}
		if err := s.HandleResponse(wire.Response{Kind: wire.KindHello, Hello: &wire.HelloReply{Version: "3.3"}}); err != nil {
			t.Fatalf("handle hello: %v", err)
		}
	}

	doHandshake()
	if _, err := s.CreateStream("BBB", 0, 0); err != nil {
		t.Fatalf("create_stream: %v", err)
	}
	err := s.HandleResponse(wire.Response{Kind: wire.KindStream, Stream: &wire.StreamReply{
		Err: &wire.RouterError{Kind: wire.CantReachPeer},
	}})
	if err == nil || err.Kind != wire.ErrRouter || err.Router.Kind != wire.CantReachPeer {
		t.Fatalf("expected Router(CantReachPeer), got %v", err)
	}
	if s.StreamState() != SubUninitialized {
		t.Fatalf("expected reset to Uninitialized after error, got %s", s.StreamState())
	}

	// Retry succeeds without tearing down the session.
	doHandshake()
	if _, err := s.CreateStream("BBB", 0, 0); err != nil {
		t.Fatalf("create_stream retry: %v", err)
	}
	if err := s.HandleResponse(wire.Response{Kind: wire.KindStream, Stream: &wire.StreamReply{}}); err != nil {
		t.Fatalf("handle retry status: %v", err)
	}
	if s.State() != Active || s.StreamState() != SubUninitialized {
		t.Fatalf("expected session to remain usable after retry, got %s/%s", s.State(), s.StreamState())
	}
}

func TestForwardAndAcceptMutuallyExclusive(t *testing.T) {
	s := newTestSession(t)
	driveToActive(t, s, "AAA")

	if _, err := s.HandshakeStream(); err != nil {
		t.Fatalf("handshake_stream: %v", err)
	}
	if err := s.HandleResponse(wire.Response{Kind: wire.KindHello, Hello: &wire.HelloReply{Version: "3.3"}}); err != nil {
		t.Fatalf("handle hello: %v", err)
	}
	if _, err := s.ForwardStream(8080, false); err != nil {
		t.Fatalf("forward_stream: %v", err)
	}
	if err := s.HandleResponse(wire.Response{Kind: wire.KindStream, Stream: &wire.StreamReply{}}); err != nil {
		t.Fatalf("handle forward status: %v", err)
	}

	// A fresh session re-handshake attempt at the stream level, then Accept
	// must now be rejected client-side.
	if _, err := s.HandshakeStream(); err != nil {
		t.Fatalf("handshake_stream #2: %v", err)
	}
	if err := s.HandleResponse(wire.Response{Kind: wire.KindHello, Hello: &wire.HelloReply{Version: "3.3"}}); err != nil {
		t.Fatalf("handle hello #2: %v", err)
	}
	if _, err := s.AcceptStream(); err == nil {
		t.Fatalf("expected accept_stream to fail after forward_stream succeeded")
	}
}

// Invariant 1: unexpected response variant yields InvalidState/InvalidMessage
// and never mutates destination.
func TestUnexpectedResponseDoesNotMutateDestination(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.HandshakeSession(); err != nil {
		t.Fatalf("handshake_session: %v", err)
	}
	// Feed a STREAM STATUS where a HELLO REPLY is expected.
	err := s.HandleResponse(wire.Response{Kind: wire.KindStream, Stream: &wire.StreamReply{}})
	if err == nil {
		t.Fatalf("expected an error for wrong response shape")
	}
	if s.Destination() != "" {
		t.Fatalf("destination must not be mutated on an illegal transition")
	}
	if s.State() != Poisoned {
		t.Fatalf("expected session to be poisoned, got %s", s.State())
	}
}

// Invariant 3: publish=false adds i2cp.dontPublishLeaseSet=true; publish=true
// omits it.
func TestPublishFalseAddsDontPublishLeaseSet(t *testing.T) {
	opts, err := options.New(options.WithNickname("N"), options.WithPublish(false))
	if err != nil {
		t.Fatalf("options.New: %v", err)
	}
	s := NewSession("N", opts, options.StreamStyle{})
	cmd, ferr := s.HandshakeSession()
	if ferr != nil {
		t.Fatalf("handshake: %v", ferr)
	}
	_ = cmd
	if err := s.HandleResponse(wire.Response{Kind: wire.KindHello, Hello: &wire.HelloReply{Version: "3.3"}}); err != nil {
		t.Fatalf("handle hello: %v", err)
	}
	create, ferr := s.CreateSession()
	if ferr != nil {
		t.Fatalf("create_session: %v", ferr)
	}
	if !strings.Contains(create, "i2cp.dontPublishLeaseSet=true") {
		t.Fatalf("expected i2cp.dontPublishLeaseSet=true in %q", create)
	}
}

func TestPublishTrueOmitsDontPublishLeaseSet(t *testing.T) {
	opts, err := options.New(options.WithNickname("N"), options.WithPublish(true))
	if err != nil {
		t.Fatalf("options.New: %v", err)
	}
	s := NewSession("N", opts, options.StreamStyle{})
	if _, err := s.HandshakeSession(); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if err := s.HandleResponse(wire.Response{Kind: wire.KindHello, Hello: &wire.HelloReply{Version: "3.3"}}); err != nil {
		t.Fatalf("handle hello: %v", err)
	}
	create, ferr := s.CreateSession()
	if ferr != nil {
		t.Fatalf("create_session: %v", ferr)
	}
	if strings.Contains(create, "i2cp.dontPublishLeaseSet") {
		t.Fatalf("did not expect i2cp.dontPublishLeaseSet in %q", create)
	}
}

// S6 — primary + subsession composition.
func TestS6PrimarySubsession(t *testing.T) {
	opts, err := options.New(options.WithNickname("parent"))
	if err != nil {
		t.Fatalf("options.New: %v", err)
	}
	parent := NewSession("parent", opts, options.PrimaryStyle{})
	driveToActive(t, parent, "AAA")

	childOpts, err := options.New(options.WithNickname("child"))
	if err != nil {
		t.Fatalf("options.New: %v", err)
	}
	cmd, ferr := parent.CreateSubsession("child", childOpts, options.StreamStyle{})
	if ferr != nil {
		t.Fatalf("create_subsession: %v", ferr)
	}
	if !strings.Contains(cmd, "SESSION ADD") || !strings.Contains(cmd, "STYLE=STREAM") || !strings.Contains(cmd, "ID=child") {
		t.Fatalf("unexpected SESSION ADD command: %q", cmd)
	}
	if err := parent.HandleResponse(wire.Response{Kind: wire.KindSessionStatus, SessionStatus: &wire.SessionStatusReply{SessionID: "child"}}); err != nil {
		t.Fatalf("handle session add status: %v", err)
	}
	if parent.State() != Active || parent.StreamState() != SubUninitialized {
		t.Fatalf("expected parent back to Active{Uninitialized}, got %s/%s", parent.State(), parent.StreamState())
	}

	child := parent.NewSubsessionController("child", childOpts, options.StreamStyle{})
	if child.Destination() != parent.Destination() {
		t.Fatalf("child destination %q != parent destination %q", child.Destination(), parent.Destination())
	}
	if child.State() != Active {
		t.Fatalf("sub-session controller may never be Uninitialized, got %s", child.State())
	}
}
