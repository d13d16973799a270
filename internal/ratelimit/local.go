package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Local keeps one token bucket per key in process. Buckets refill at
// perMinute per minute with a burst of perMinute.
type Local struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	perMinute int
	now       func() time.Time
}

func NewLocal(perMinute int) *Local {
	if perMinute < 1 {
		perMinute = 1
	}
	return &Local{
		limiters:  make(map[string]*rate.Limiter),
		perMinute: perMinute,
		now:       time.Now,
	}
}

func (l *Local) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
		l.limiters[key] = lim
	}
	return lim
}

func (l *Local) Allow(ctx context.Context, key string) (time.Duration, bool, error) {
	now := l.now()
	r := l.limiter(key).ReserveN(now, 1)
	if !r.OK() {
		return time.Minute, false, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return ceilSeconds(delay), false, nil
	}
	return 0, true, nil
}
