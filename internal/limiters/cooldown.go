// Package limiters enforces per-identity cooldowns on email-triggering
// actions. The reservation uses a conditional set, so two concurrent
// requests inside one window cannot both be granted.
package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Action names one cooldown-gated sensitive action.
type Action string

const (
	ActionVerify Action = "VERIFY"
	ActionLogin  Action = "LOGIN"
)

var ErrLimiterUnavailable = errors.New("cooldown limiter unavailable")

// CooldownError reports a rejection and how long the caller must wait.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, %s remaining", e.Remaining)
}

// Cooldown is a Redis-backed last-grant tracker keyed by (identity, action).
type Cooldown struct {
	redis  redis.UniversalClient
	window time.Duration
}

// NewCooldown returns a limiter with the given cooldown window.
func NewCooldown(redisClient redis.UniversalClient, window time.Duration) *Cooldown {
	return &Cooldown{redis: redisClient, window: window}
}

func (c *Cooldown) key(identity string, action Action) string {
	return "cd:" + strings.ToLower(identity) + ":" + string(action)
}

// CheckAndReserve grants the action and records the grant time, or returns a
// *CooldownError carrying the remaining wait. SET NX EX makes the
// check-and-reserve a single atomic step; the stored grant timestamp is only
// read back to compute the remaining wait on rejection.
func (c *Cooldown) CheckAndReserve(ctx context.Context, identity string, action Action) error {
	key := c.key(identity, action)

	// Two attempts: the key can expire between a failed SETNX and the
	// follow-up read, in which case the second SETNX settles it.
	for range 2 {
		now := time.Now()

		ok, err := c.redis.SetNX(ctx, key, now.Unix(), c.window).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
		if ok {
			return nil
		}

		granted, err := c.redis.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}

		remaining := c.window - now.Sub(time.Unix(granted, 0))
		if remaining < time.Second {
			remaining = time.Second
		}
		return &CooldownError{Remaining: remaining}
	}

	return &CooldownError{Remaining: c.window}
}
