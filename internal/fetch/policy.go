package fetch

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Policy spaces out requests to one remote service. Every Wait first takes
// a token from the rate limiter and then sleeps a uniform random delay in
// [MinDelay, MaxDelay].
type Policy struct {
	MinDelay time.Duration
	MaxDelay time.Duration

	limiter *rate.Limiter
	mu      sync.Mutex
	rng     *rand.Rand
}

// NewPolicy creates a policy allowing perSecond requests (burst 1) with the
// given jitter. A non-positive perSecond disables the rate limit.
func NewPolicy(perSecond float64, minDelay, maxDelay time.Duration) *Policy {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	p := &Policy{
		MinDelay: minDelay,
		MaxDelay: maxDelay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if perSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return p
}

// NoDelay returns a policy that never waits.
func NoDelay() *Policy {
	return NewPolicy(0, 0, 0)
}

// Wait blocks until the next request may start or ctx is done.
func (p *Policy) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	d := p.jitter()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Policy) jitter() time.Duration {
	span := p.MaxDelay - p.MinDelay
	if span <= 0 {
		return p.MinDelay
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.MinDelay + time.Duration(p.rng.Int63n(int64(span)+1))
}
