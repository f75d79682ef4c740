package wire

import "testing"

func TestParseHelloOK(t *testing.T) {
	r, err := Parse("HELLO REPLY RESULT=OK VERSION=3.3\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Kind != KindHello || r.Hello.Version != "3.3" {
		t.Fatalf("unexpected response: %+v", r)
	}
}

func TestParseHelloMissingVersionIsInvalidMessage(t *testing.T) {
	_, err := Parse("HELLO REPLY RESULT=OK\n")
	if err == nil || err.Kind != ErrInvalidMessage {
		t.Fatalf("expected InvalidMessage, got %v", err)
	}
}

func TestParseSessionCreateOK(t *testing.T) {
	r, err := Parse("SESSION STATUS RESULT=OK DESTINATION=AAA\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Kind != KindSessionStatus || r.SessionStatus.Destination != "AAA" {
		t.Fatalf("unexpected response: %+v", r)
	}
}

func TestParseSubsessionOK(t *testing.T) {
	r, err := Parse(`SESSION STATUS RESULT=OK ID="child" MESSAGE="ADD child"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Kind != KindSessionStatus || r.SessionStatus.SessionID != "child" {
		t.Fatalf("unexpected response: %+v", r)
	}
}

func TestParseStreamError(t *testing.T) {
	r, err := Parse(`STREAM STATUS RESULT=CANT_REACH_PEER MESSAGE="Connection failed"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Stream.Err == nil || r.Stream.Err.Kind != CantReachPeer {
		t.Fatalf("unexpected response: %+v", r)
	}
}

func TestParseNamingLookup(t *testing.T) {
	r, err := Parse("NAMING REPLY RESULT=OK NAME=host.i2p VALUE=ZZZ\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.NamingLookup.Destination != "ZZZ" {
		t.Fatalf("unexpected response: %+v", r)
	}
}

func TestParseDestGen(t *testing.T) {
	r, err := Parse("DEST REPLY PUB=DDD PRIV=PPP\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.DestGen.Destination != "DDD" || r.DestGen.PrivateKey != "PPP" {
		t.Fatalf("unexpected response: %+v", r)
	}
}

func TestParseUnknownResultIsInvalidMessage(t *testing.T) {
	_, err := Parse("STREAM STATUS RESULT=DUPLICATED_ID\n")
	if err == nil || err.Kind != ErrInvalidMessage {
		t.Fatalf("expected InvalidMessage for unrecognised RESULT, got %v", err)
	}
}

func TestParseUnrecognisedVerb(t *testing.T) {
	_, err := Parse("PING REPLY RESULT=OK\n")
	if err == nil || err.Kind != ErrInvalidMessage {
		t.Fatalf("expected InvalidMessage, got %v", err)
	}
}

func TestParseUnterminatedQuote(t *testing.T) {
	_, err := Parse(`STREAM STATUS RESULT=I2P_ERROR MESSAGE="oops`)
	if err == nil || err.Kind != ErrInvalidMessage {
		t.Fatalf("expected InvalidMessage for unterminated quote, got %v", err)
	}
}

// TestRoundTrip verifies invariant 6: parse(serialise(R)) == R for every
// Response the engine itself produces.
func TestRoundTrip(t *testing.T) {
	cases := []Response{
		{Kind: KindHello, Hello: &HelloReply{Version: "3.3"}},
		{Kind: KindHello, Hello: &HelloReply{Err: &RouterError{Kind: Timeout}}},
		{Kind: KindSessionStatus, SessionStatus: &SessionStatusReply{Destination: "AAA"}},
		{Kind: KindSessionStatus, SessionStatus: &SessionStatusReply{SessionID: "child"}},
		{Kind: KindSessionStatus, SessionStatus: &SessionStatusReply{Err: &RouterError{Kind: DuplicatedDest}}},
		{Kind: KindStream, Stream: &StreamReply{}},
		{Kind: KindStream, Stream: &StreamReply{Err: &RouterError{Kind: CantReachPeer}}},
		{Kind: KindStream, Stream: &StreamReply{Err: &RouterError{Kind: I2PError, Message: "Connection failed"}}},
		{Kind: KindNamingLookup, NamingLookup: &NamingLookupReply{Destination: "ZZZ"}},
		{Kind: KindNamingLookup, NamingLookup: &NamingLookupReply{Err: &RouterError{Kind: KeyNotFound}}},
		{Kind: KindDestGen, DestGen: &DestGenReply{Destination: "D", PrivateKey: "P"}},
	}

	for _, want := range cases {
		line := want.String()
		got, err := Parse(line)
		if err != nil {
			t.Fatalf("round trip parse failed for %q: %v", line, err)
		}
		if got.String() != line {
			t.Fatalf("round trip mismatch: %q != %q", got.String(), line)
		}
	}
}
