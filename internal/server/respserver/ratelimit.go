package respserver

import (
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

type ipBucket struct {
	limiter *rate.Limiter
	conns   int
}

// ipLimiter applies a token bucket per client IP. Buckets live as long as
// the IP has at least one open connection.
type ipLimiter struct {
	rate    int
	buckets *xsync.MapOf[string, *ipBucket]
}

func newIPLimiter(perSecond int) *ipLimiter {
	return &ipLimiter{
		rate:    perSecond,
		buckets: xsync.NewMapOf[string, *ipBucket](),
	}
}

func (l *ipLimiter) enabled() bool {
	return l.rate > 0
}

func (l *ipLimiter) acquire(ip string) {
	if !l.enabled() {
		return
	}
	l.buckets.Compute(ip, func(b *ipBucket, loaded bool) (*ipBucket, bool) {
		if !loaded {
			b = &ipBucket{limiter: rate.NewLimiter(rate.Limit(l.rate), l.rate)}
		}
		b.conns++
		return b, false
	})
}

func (l *ipLimiter) release(ip string) {
	if !l.enabled() {
		return
	}
	l.buckets.Compute(ip, func(b *ipBucket, loaded bool) (*ipBucket, bool) {
		if !loaded {
			return nil, true
		}
		b.conns--
		return b, b.conns <= 0
	})
}

func (l *ipLimiter) allow(ip string) bool {
	if !l.enabled() {
		return true
	}
	b, ok := l.buckets.Load(ip)
	if !ok {
		return true
	}
	return b.limiter.Allow()
}

func (l *ipLimiter) size() int {
	return l.buckets.Size()
}
