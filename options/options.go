// Package options models SAMv3 session configuration: destination identity,
// tunnel parameters, idle policies, and the style-specific knobs each
// session style layers on top of SESSION CREATE/ADD.
package options

import (
	"fmt"
	"math/rand"
	"strconv"
)

// DestinationMode selects how a session's I2P identity is established.
type DestinationMode int

const (
	// Transient asks the router to generate a fresh identity.
	Transient DestinationMode = iota
	// Persistent reconstitutes a prior identity from a caller-supplied
	// base64 private key blob.
	Persistent
)

// Destination describes the session's identity configuration.
type Destination struct {
	Mode       DestinationMode
	PrivateKey string // base64 blob, only meaningful when Mode == Persistent
}

const (
	DefaultSAMTCPPort = 7656
	DefaultSAMUDPPort = 7655

	defaultSignatureType      = 7 // Ed25519
	defaultLeaseSetEncType    = 4 // ECIES-X25519
	defaultInboundLength      = 3
	defaultOutboundLength     = 3
	defaultInboundQuantity    = 2
	defaultOutboundQuantity   = 2
	nicknameAlphabet          = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	defaultNicknameLen        = 16
	defaultReduceIdleTime     = 300
	defaultReduceQuantity     = 1
	defaultCloseIdleTime      = 300
)

// Options is the full set of recognised session options from spec §3.
type Options struct {
	Nickname string

	Destination   Destination
	SignatureType int

	SAMHost    string
	SAMTCPPort int
	SAMUDPPort int

	DatagramPort int // local UDP bind port, 0 = OS-assigned

	Publish bool

	InboundLength     int
	InboundQuantity   int
	OutboundLength    int
	OutboundQuantity  int
	InboundVariance   int
	OutboundVariance  int
	InboundBackupQty  int
	OutboundBackupQty int
	IPRestriction     int
	TunnelNickname    string
	RandomKey         bool

	TagThreshold  int
	RatchetTags   int
	TagsToSend    int

	ReduceOnIdle   bool
	ReduceIdleTime int
	ReduceQuantity int
	CloseOnIdle    bool
	CloseIdleTime  int

	LeaseSetEncType    int
	LeaseSetAuthType   int
	LeaseSetBlindType  int
	LeaseSetKey        string
	LeaseSetSecret     string
	LeaseSetType       string

	SilentForward bool

	Username string
	Password string

	Gzip             bool
	SSL              bool
	DatagramHeader   bool
	DatagramProtocol int
}

// Option mutates an Options value during construction, matching the
// functional-option idiom used throughout the go-i2p stack.
type Option func(*Options) error

// New builds an Options value with the spec's defaults, then applies opts in
// order.
func New(opts ...Option) (*Options, error) {
	o := &Options{
		Nickname:         "",
		Destination:      Destination{Mode: Transient},
		SignatureType:    defaultSignatureType,
		SAMHost:          "127.0.0.1",
		SAMTCPPort:       DefaultSAMTCPPort,
		SAMUDPPort:       DefaultSAMUDPPort,
		Publish:          true,
		InboundLength:    defaultInboundLength,
		InboundQuantity:  defaultInboundQuantity,
		OutboundLength:   defaultOutboundLength,
		OutboundQuantity: defaultOutboundQuantity,
		ReduceIdleTime:   defaultReduceIdleTime,
		ReduceQuantity:   defaultReduceQuantity,
		CloseIdleTime:    defaultCloseIdleTime,
		LeaseSetEncType:  defaultLeaseSetEncType,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			log.WithError(err).Error("failed to apply session option")
			return nil, err
		}
	}
	if o.Nickname == "" {
		o.Nickname = randomNickname()
	}
	return o, nil
}

func randomNickname() string {
	b := make([]byte, defaultNicknameLen)
	r := rand.New(rand.NewSource(rand.Int63()))
	for i := range b {
		b[i] = nicknameAlphabet[r.Intn(len(nicknameAlphabet))]
	}
	return string(b)
}

// WithNickname sets an explicit session nickname instead of the random
// 16-char default.
func WithNickname(nick string) Option {
	return func(o *Options) error {
		o.Nickname = nick
		return nil
	}
}

// WithPersistentDestination reconstitutes a prior identity from a base64
// private key blob, e.g. one earlier obtained from DestGen or Session.
func WithPersistentDestination(privateKey string) Option {
	return func(o *Options) error {
		if privateKey == "" {
			return fmt.Errorf("persistent destination requires a non-empty private key")
		}
		o.Destination = Destination{Mode: Persistent, PrivateKey: privateKey}
		return nil
	}
}

// WithSAMAddress sets the bridge's loopback TCP and UDP ports.
func WithSAMAddress(host string, tcpPort, udpPort int) Option {
	return func(o *Options) error {
		o.SAMHost = host
		o.SAMTCPPort = tcpPort
		o.SAMUDPPort = udpPort
		return nil
	}
}

// WithPublish controls whether the router publishes this destination's
// lease set. Servers want true (the default); clients should disable it.
func WithPublish(publish bool) Option {
	return func(o *Options) error {
		o.Publish = publish
		return nil
	}
}

// WithTunnels sets the four core tunnel-pool parameters.
func WithTunnels(inboundLen, inboundQty, outboundLen, outboundQty int) Option {
	return func(o *Options) error {
		o.InboundLength = inboundLen
		o.InboundQuantity = inboundQty
		o.OutboundLength = outboundLen
		o.OutboundQuantity = outboundQty
		return nil
	}
}

// WithIdleReduction enables the reduce-on-idle tunnel policy.
func WithIdleReduction(idleTimeSeconds, reduceQuantity int) Option {
	return func(o *Options) error {
		o.ReduceOnIdle = true
		o.ReduceIdleTime = idleTimeSeconds
		o.ReduceQuantity = reduceQuantity
		return nil
	}
}

// WithCloseOnIdle enables the close-on-idle session policy.
func WithCloseOnIdle(idleTimeSeconds int) Option {
	return func(o *Options) error {
		o.CloseOnIdle = true
		o.CloseIdleTime = idleTimeSeconds
		return nil
	}
}

// WithAuth configures SAMv3.2+ username/password authentication.
func WithAuth(username, password string) Option {
	return func(o *Options) error {
		o.Username = username
		o.Password = password
		return nil
	}
}

// WithSilentForward controls whether STREAM FORWARD suppresses the
// connecting peer's destination line.
func WithSilentForward(silent bool) Option {
	return func(o *Options) error {
		o.SilentForward = silent
		return nil
	}
}

// WithDatagramPort sets the local UDP bind port for inbound datagrams.
func WithDatagramPort(port int) Option {
	return func(o *Options) error {
		o.DatagramPort = port
		return nil
	}
}

// SAMAddress returns the bridge's TCP address as "host:port".
func (o *Options) SAMAddress() string {
	return fmt.Sprintf("%s:%d", o.SAMHost, o.SAMTCPPort)
}

// SAMUDPAddress returns the bridge's UDP address as "host:port".
func (o *Options) SAMUDPAddress() string {
	return fmt.Sprintf("%s:%d", o.SAMHost, o.SAMUDPPort)
}

// destinationKV renders the DESTINATION= fragment of SESSION CREATE.
func (o *Options) destinationKV() string {
	if o.Destination.Mode == Persistent {
		return "DESTINATION=" + o.Destination.PrivateKey
	}
	return "DESTINATION=TRANSIENT"
}

// tunnelKV renders the shared tunnel-pool and idle-policy key/value pairs
// common to every SESSION CREATE, regardless of style.
func (o *Options) tunnelKV() []string {
	kv := []string{
		kvInt("inbound.length", o.InboundLength),
		kvInt("inbound.quantity", o.InboundQuantity),
		kvInt("outbound.length", o.OutboundLength),
		kvInt("outbound.quantity", o.OutboundQuantity),
	}
	if o.InboundVariance != 0 {
		kv = append(kv, kvInt("inbound.lengthVariance", o.InboundVariance))
	}
	if o.OutboundVariance != 0 {
		kv = append(kv, kvInt("outbound.lengthVariance", o.OutboundVariance))
	}
	if o.InboundBackupQty != 0 {
		kv = append(kv, kvInt("inbound.backupQuantity", o.InboundBackupQty))
	}
	if o.OutboundBackupQty != 0 {
		kv = append(kv, kvInt("outbound.backupQuantity", o.OutboundBackupQty))
	}
	if o.TunnelNickname != "" {
		kv = append(kv, "inbound.nickname="+o.TunnelNickname)
	}
	if o.IPRestriction != 0 {
		kv = append(kv, kvInt("outbound.IPRestriction", o.IPRestriction))
	}
	if o.RandomKey {
		kv = append(kv, "outbound.randomKey=true")
	}
	if !o.Publish {
		kv = append(kv, "i2cp.dontPublishLeaseSet=true")
	}
	if o.ReduceOnIdle {
		kv = append(kv,
			"i2cp.reduceOnIdle=true",
			kvInt("i2cp.reduceIdleTime", o.ReduceIdleTime*1000),
			kvInt("i2cp.reduceQuantity", o.ReduceQuantity))
	}
	if o.CloseOnIdle {
		kv = append(kv,
			"i2cp.closeOnIdle=true",
			kvInt("i2cp.closeIdleTime", o.CloseIdleTime*1000))
	}
	if o.LeaseSetAuthType != 0 {
		kv = append(kv, kvInt("i2cp.leaseSetAuthType", o.LeaseSetAuthType))
	}
	if o.LeaseSetBlindType != 0 {
		kv = append(kv, kvInt("i2cp.leaseSetBlindType", o.LeaseSetBlindType))
	}
	if o.LeaseSetKey != "" {
		kv = append(kv, "i2cp.leaseSetKey="+o.LeaseSetKey)
	}
	if o.LeaseSetSecret != "" {
		kv = append(kv, "i2cp.leaseSetSecret="+o.LeaseSetSecret)
	}
	if o.LeaseSetType != "" {
		kv = append(kv, "i2cp.leaseSetType="+o.LeaseSetType)
	}
	if o.TagThreshold != 0 {
		kv = append(kv, kvInt("crypto.lowTagThreshold", o.TagThreshold))
	}
	if o.Gzip {
		kv = append(kv, "i2cp.gzip=true")
	}
	return kv
}

func kvInt(key string, v int) string {
	return key + "=" + strconv.Itoa(v)
}

// AsList mirrors the teacher's Options.AsList convenience for callers who
// want a flat slice of key=value tokens (e.g. logging).
func (o *Options) AsList() []string {
	return append(o.tunnelKV(), o.destinationKV())
}
