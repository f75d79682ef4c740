package transport

import (
	"bufio"
	"net"
	"testing"

	"github.com/go-i2p/go-samv3/fsm"
	"github.com/go-i2p/go-samv3/options"
	"github.com/go-i2p/go-samv3/wire"
)

// fakeBridge plays a scripted SAM bridge on one end of a net.Pipe: for
// every line it reads, it writes back the next canned reply.
func fakeBridge(t *testing.T, conn net.Conn, replies []string) {
	t.Helper()
	go func() {
		r := bufio.NewReader(conn)
		for _, reply := range replies {
			if _, err := r.ReadString('\n'); err != nil {
				return
			}
			if _, err := conn.Write([]byte(reply)); err != nil {
				return
			}
		}
	}()
}

func TestHandshakeAndCreateSessionOverPipe(t *testing.T) {
	client, bridge := net.Pipe()
	defer client.Close()
	defer bridge.Close()

	fakeBridge(t, bridge, []string{
		"HELLO REPLY RESULT=OK VERSION=3.3\n",
		"SESSION STATUS RESULT=OK DESTINATION=AAAA\n",
	})

	c := NewConn(client)
	opts, err := options.New(options.WithNickname("test"))
	if err != nil {
		t.Fatalf("options.New: %v", err)
	}
	s := fsm.NewSession("test", opts, options.StreamStyle{})

	if ferr := HandshakeSession(c, s); ferr != nil {
		t.Fatalf("HandshakeSession: %v", ferr)
	}
	if ferr := CreateSession(c, s); ferr != nil {
		t.Fatalf("CreateSession: %v", ferr)
	}
	if s.State() != fsm.Active {
		t.Fatalf("expected Active, got %s", s.State())
	}
	if s.Destination() != "AAAA" {
		t.Fatalf("expected destination AAAA, got %q", s.Destination())
	}
}

func TestHandshakeSessionRouterError(t *testing.T) {
	client, bridge := net.Pipe()
	defer client.Close()
	defer bridge.Close()

	fakeBridge(t, bridge, []string{
		"HELLO REPLY RESULT=I2P_ERROR MESSAGE=\"router not ready\"\n",
	})

	c := NewConn(client)
	opts, err := options.New(options.WithNickname("test"))
	if err != nil {
		t.Fatalf("options.New: %v", err)
	}
	s := fsm.NewSession("test", opts, options.StreamStyle{})
	ferr := HandshakeSession(c, s)
	if ferr == nil || ferr.Kind != wire.ErrRouter || ferr.Router.Kind != wire.I2PError {
		t.Fatalf("expected Router(I2P_ERROR) from HandshakeSession, got %v", ferr)
	}
	// Still not handshaked: a direct CreateSession-before-Handshaked is rejected.
	if _, ferr := s.CreateSession(); ferr == nil {
		t.Fatalf("expected create_session before handshake to fail client-side")
	}
}
