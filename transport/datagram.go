package transport

import (
	"bytes"
	"context"
	"fmt"
	"net"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/go-i2p/go-samv3/wire"
)

// UDPConn wraps the local UDP socket a datagram/raw session sends and
// receives through, per spec §4.6's datagram framing invariant. Unlike the
// command Conn, this carries no line-oriented reply protocol of its own -
// every packet it writes is "<header>\n<payload>" addressed to the
// bridge's UDP port, and every packet it reads is either a repliable
// envelope ("<sender destination>\n<payload>") or, for an anonymous RAW
// session, the raw payload with no envelope at all.
type UDPConn struct {
	pc       net.PacketConn
	bridge   *net.UDPAddr
	nickname string
}

// DialUDP binds a local UDP socket (localPort, or 0 for an OS-assigned
// ephemeral port) and resolves the bridge's UDP address for outbound sends.
func DialUDP(ctx context.Context, bridgeAddr string, localPort int, nickname string) (*UDPConn, error) {
	bridge, err := net.ResolveUDPAddr("udp", bridgeAddr)
	if err != nil {
		return nil, oops.Errorf("resolving SAM UDP bridge address %s: %w", bridgeAddr, err)
	}
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", fmt.Sprintf("127.0.0.1:%d", localPort))
	if err != nil {
		return nil, oops.Errorf("binding local UDP socket: %w", err)
	}
	return &UDPConn{pc: pc, bridge: bridge, nickname: nickname}, nil
}

// SendRepliable sends payload to dest as a DATAGRAM-style (style 1) packet:
// the router attaches the sender's own destination for the recipient to
// reply to.
func (u *UDPConn) SendRepliable(dest string, payload []byte) *wire.Error {
	return u.send(dest, payload, "")
}

// SendAnonymous sends payload to dest as a RAW-style packet: the recipient
// gets the bytes with no sender identity attached.
func (u *UDPConn) SendAnonymous(dest string, payload []byte) *wire.Error {
	return u.send(dest, payload, "")
}

// SendRepliableWithOptions sends a DATAGRAM-style packet using the extended
// header form from spec §4.6: "<from> <to> <tags> <thr> <lease>", with no
// protocol field (repliable datagrams never carry one).
func (u *UDPConn) SendRepliableWithOptions(dest string, payload []byte, fromPort, toPort int) *wire.Error {
	ext := fmt.Sprintf("%d %d 0 0 0", fromPort, toPort)
	return u.send(dest, payload, ext)
}

// SendAnonymousWithOptions sends a RAW-style packet using the extended
// header form from spec §4.6: "<from> <to> <proto> <tags> <thr> <lease>".
func (u *UDPConn) SendAnonymousWithOptions(dest string, payload []byte, fromPort, toPort, protocol int) *wire.Error {
	ext := fmt.Sprintf("%d %d %d 0 0 0", fromPort, toPort, protocol)
	return u.send(dest, payload, ext)
}

// send writes one UDP datagram with header "3.0 <nickname> <dest>[
// <ext>]\n<payload>" per spec §4.6. ext, when non-empty, is the already
// formatted options extension (from/to/proto/tags/threshold/lease).
func (u *UDPConn) send(dest string, payload []byte, ext string) *wire.Error {
	header := "3.0 " + u.nickname + " " + dest
	if ext != "" {
		header += " " + ext
	}
	header += "\n"
	buf := append([]byte(header), payload...)
	log.WithFields(logrus.Fields{
		"destination": truncate(dest, 10),
		"size":        len(payload),
	}).Debug("sending UDP datagram to SAM bridge")
	if _, err := u.pc.WriteTo(buf, u.bridge); err != nil {
		return wire.IOError(oops.Errorf("writing UDP datagram: %w", err))
	}
	return nil
}

// RepliableDatagram is an inbound DATAGRAM-style packet: payload plus the
// sender's destination the router prepended.
type RepliableDatagram struct {
	Source  string
	Payload []byte
}

// RecvRepliable reads one inbound repliable datagram. The wire form is
// "<base64 destination>\n<payload bytes>": the destination is whatever
// precedes the first space up to the header's terminating newline, not a
// literal marker.
func (u *UDPConn) RecvRepliable(buf []byte) (RepliableDatagram, *wire.Error) {
	n, _, err := u.pc.ReadFrom(buf)
	if err != nil {
		return RepliableDatagram{}, wire.IOError(oops.Errorf("reading UDP datagram: %w", err))
	}
	nl := bytes.IndexByte(buf[:n], '\n')
	if nl < 0 {
		return RepliableDatagram{}, wire.MalformedError("repliable datagram header not newline-terminated")
	}
	header := buf[:nl]
	sp := bytes.IndexByte(header, ' ')
	src := string(header)
	if sp >= 0 {
		src = string(header[:sp])
	}
	payload := make([]byte, n-nl-1)
	copy(payload, buf[nl+1:n])
	return RepliableDatagram{Source: src, Payload: payload}, nil
}

// RecvAnonymous reads one inbound anonymous (RAW) datagram: the payload with
// no envelope at all, passed through verbatim.
func (u *UDPConn) RecvAnonymous(buf []byte) ([]byte, *wire.Error) {
	n, _, err := u.pc.ReadFrom(buf)
	if err != nil {
		return nil, wire.IOError(oops.Errorf("reading UDP datagram: %w", err))
	}
	payload := make([]byte, n)
	copy(payload, buf[:n])
	return payload, nil
}

// Close releases the local UDP socket.
func (u *UDPConn) Close() error { return u.pc.Close() }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
