package options

import "fmt"

// StyleName is the wire STYLE= token for a SESSION CREATE/ADD command.
type StyleName string

const (
	StyleStream    StyleName = "STREAM"
	StyleDatagram  StyleName = "DATAGRAM" // repliable
	StyleRaw       StyleName = "RAW"      // anonymous
	StylePrimary   StyleName = "PRIMARY"
)

// Style is the sealed capability set from spec §3/§9: each session style
// knows how to render its own SESSION CREATE/ADD fragment. Implemented as a
// closed set of concrete types rather than a generic phantom parameter,
// which is the idiomatic Go rendering of a sealed trait.
type Style interface {
	Name() StyleName
	// createKV returns the style-specific key/value fragment appended to
	// SESSION CREATE, beyond DESTINATION/SIGNATURE_TYPE/tunnel params
	// which every style shares.
	createKV(o *Options) []string
}

// StreamStyle is the connection-oriented virtual-stream session style.
type StreamStyle struct {
	FromPort int
	ToPort   int
}

func (StreamStyle) Name() StyleName { return StyleStream }

func (s StreamStyle) createKV(o *Options) []string {
	kv := []string{}
	if s.FromPort != 0 {
		kv = append(kv, kvInt("FROM_PORT", s.FromPort))
	}
	if s.ToPort != 0 {
		kv = append(kv, kvInt("TO_PORT", s.ToPort))
	}
	return kv
}

// DatagramStyle is shared by the repliable (DATAGRAM) and anonymous (RAW)
// styles, which differ only in the STYLE= token and whether the PROTOCOL=
// and HEADER= kv pairs are included.
type DatagramStyle struct {
	style        StyleName
	Host         string
	Port         int // local UDP bind port
	FromPort     int
	ToPort       int
	Protocol     int  // RAW only
	Header       bool // RAW only: whether the router prepends a header
	includeProto bool
}

// NewRepliableStyle is the DATAGRAM style: datagrams are delivered with the
// sender's destination attached so the receiver can reply.
func NewRepliableStyle(host string, port int) DatagramStyle {
	return DatagramStyle{style: StyleDatagram, Host: host, Port: port}
}

// NewAnonymousStyle is the RAW style: datagrams carry no sender identity.
func NewAnonymousStyle(host string, port int, protocol int, header bool) DatagramStyle {
	return DatagramStyle{style: StyleRaw, Host: host, Port: port, Protocol: protocol, Header: header, includeProto: true}
}

func (d DatagramStyle) Name() StyleName { return d.style }

func (d DatagramStyle) createKV(o *Options) []string {
	kv := []string{
		kvInt("PORT", d.Port),
		"HOST=" + d.Host,
	}
	if d.FromPort != 0 {
		kv = append(kv, kvInt("FROM_PORT", d.FromPort))
	}
	if d.ToPort != 0 {
		kv = append(kv, kvInt("TO_PORT", d.ToPort))
	}
	if d.includeProto {
		kv = append(kv, kvInt("PROTOCOL", d.Protocol))
		kv = append(kv, "HEADER="+fmt.Sprint(d.Header))
	}
	return kv
}

// PrimaryStyle carries no data operations itself; it is a parent for
// sub-sessions sharing its destination and tunnel pool.
type PrimaryStyle struct{}

func (PrimaryStyle) Name() StyleName { return StylePrimary }

func (PrimaryStyle) createKV(o *Options) []string { return nil }

// SessionCreateCommand renders the full `SESSION CREATE` wire command for
// style s under options o, per spec §4.2/§6.
func SessionCreateCommand(nickname string, o *Options, s Style) string {
	parts := []string{
		"SESSION CREATE",
		"STYLE=" + string(s.Name()),
		"ID=" + nickname,
		o.destinationKV(),
	}
	parts = append(parts, s.createKV(o)...)
	parts = append(parts, o.tunnelKV()...)
	parts = append(parts,
		kvInt("SIGNATURE_TYPE", o.SignatureType),
		kvInt("i2cp.leaseSetEncType", o.LeaseSetEncType))
	cmd := parts[0]
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		cmd += " " + p
	}
	return cmd + "\n"
}

// SessionAddCommand renders `SESSION ADD` for a sub-session under a primary,
// per spec §4.4.
func SessionAddCommand(nickname string, o *Options, s Style) string {
	parts := []string{
		"SESSION ADD",
		"STYLE=" + string(s.Name()),
		"ID=" + nickname,
	}
	parts = append(parts, s.createKV(o)...)
	cmd := parts[0]
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		cmd += " " + p
	}
	return cmd + "\n"
}
