package telegram

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultCooldown = 10 * time.Second

// cooldowns: одно открытие клавиатуры на пользователя за period.
type cooldowns struct {
	mu      sync.Mutex
	period  time.Duration
	buckets map[int64]*bucket
}

type bucket struct {
	lim  *rate.Limiter
	last time.Time
}

func newCooldowns(period time.Duration) *cooldowns {
	if period < 0 {
		period = 0
	}
	return &cooldowns{period: period, buckets: make(map[int64]*bucket)}
}

// take spends the user's token at now; a positive result is how long to wait instead.
func (c *cooldowns) take(userID int64, now time.Time) time.Duration {
	if c.period == 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buckets[userID]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(c.period), 1)}
		c.buckets[userID] = b
	}
	res := b.lim.ReserveN(now, 1)
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return d
	}
	b.last = now
	return 0
}

// sweep forgets users whose bucket has refilled.
func (c *cooldowns) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, b := range c.buckets {
		if now.Sub(b.last) >= c.period {
			delete(c.buckets, id)
		}
	}
}
