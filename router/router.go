package router

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/go-i2p/go-samv3/transport"
	"github.com/go-i2p/go-samv3/wire"
)

// Client runs stateless router operations against a SAM bridge address.
// Every call opens its own fresh command connection per spec §4.5; Client
// itself holds no connection state, only configuration and an optional
// lookup cache.
type Client struct {
	addr  string
	cache *lru.Cache[string, string]
}

// Option configures a Client.
type Option func(*Client)

// WithLookupCache bounds the number of resolved names kept in memory. The
// special name "ME" (the caller's own current destination) is never cached,
// since it is meaningless to reuse across sessions.
func WithLookupCache(size int) Option {
	return func(c *Client) {
		cache, err := lru.New[string, string](size)
		if err != nil {
			log.WithError(err).Error("failed to build NAMING LOOKUP cache, proceeding uncached")
			return
		}
		c.cache = cache
	}
}

// New builds a Client targeting the SAM bridge at addr ("host:port").
func New(addr string, opts ...Option) *Client {
	c := &Client{addr: addr}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LookupName resolves name to a full destination, consulting the cache
// first when one is configured.
func (c *Client) LookupName(ctx context.Context, name string) (string, *wire.Error) {
	if c.cache != nil && name != "ME" {
		if dest, ok := c.cache.Get(name); ok {
			log.WithField("name", name).Debug("NAMING LOOKUP cache hit")
			return dest, nil
		}
	}
	dest, ferr := transport.LookupName(ctx, c.addr, name)
	if ferr != nil {
		return "", ferr
	}
	if c.cache != nil && name != "ME" {
		c.cache.Add(name, dest)
	}
	log.WithFields(logrus.Fields{"name": name, "cached": false}).Debug("resolved NAMING LOOKUP")
	return dest, nil
}

// GenerateDestination asks the router to mint a fresh (destination,
// privateKey) keypair of the given signature type.
func (c *Client) GenerateDestination(ctx context.Context, sigType int) (destination, privateKey string, ferr *wire.Error) {
	return transport.GenerateDestination(ctx, c.addr, sigType)
}
