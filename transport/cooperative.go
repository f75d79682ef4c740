package transport

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/go-i2p/go-samv3/wire"
)

// Pool bounds the number of concurrent SAM command connections a cooperative
// caller is allowed to hold open at once - useful for a primary session
// fanning out many subsessions, or a client resolving a batch of NAMING
// LOOKUPs without opening hundreds of simultaneous TCP connections to the
// loopback bridge.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool builds a Pool that admits at most maxConcurrent connections.
func NewPool(maxConcurrent int64) *Pool {
	return &Pool{sem: semaphore.NewWeighted(maxConcurrent)}
}

// LookupNames resolves every name in names concurrently, bounded by the
// pool's weight, and returns destinations in the same order as names. The
// first lookup failure cancels the remaining in-flight lookups and is
// returned; partial results up to that point are discarded, matching
// errgroup's fail-fast convention.
func (p *Pool) LookupNames(ctx context.Context, addr string, names []string) ([]string, *wire.Error) {
	results := make([]string, len(names))
	g, gctx := errgroup.WithContext(ctx)
	var acquireErr error

	for i, name := range names {
		i, name := i, name
		if err := p.sem.Acquire(gctx, 1); err != nil {
			acquireErr = err
			break
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			dest, ferr := LookupName(gctx, addr, name)
			if ferr != nil {
				return ferr
			}
			results[i] = dest
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ferr, ok := err.(*wire.Error); ok {
			return nil, ferr
		}
		return nil, wire.IOError(err)
	}
	if acquireErr != nil {
		return nil, wire.IOError(acquireErr)
	}
	return results, nil
}
