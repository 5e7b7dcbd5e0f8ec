// Package stores tracks single-use action tokens in Redis. A reserved token
// holds the value UNUSED until consumed; consumption is atomic, so a leaked
// verification or login link can never be redeemed twice.
package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	singleUseKeyPrefix = "aot"

	// StatusUnused is the value of a reserved, not-yet-consumed token.
	StatusUnused = "UNUSED"
)

var (
	ErrTokenNotFound    = errors.New("action token not found")
	ErrTokenUsed        = errors.New("action token already used")
	ErrStoreUnavailable = errors.New("single-use store unavailable")
)

// SingleUse marks action tokens unused/used with per-key TTL.
type SingleUse struct {
	redis redis.UniversalClient

	// markerTTL bounds how long a consumed token stays flagged as used.
	// It must cover the longest action-token lifetime so replays within the
	// token's validity window report "used" rather than "not found".
	markerTTL time.Duration
}

// NewSingleUse returns a store on the given Redis client. markerTTL <= 0
// selects a default that outlives every action-token TTL.
func NewSingleUse(redisClient redis.UniversalClient, markerTTL time.Duration) *SingleUse {
	if markerTTL <= 0 {
		markerTTL = time.Hour
	}
	return &SingleUse{redis: redisClient, markerTTL: markerTTL}
}

func (s *SingleUse) key(token string) string {
	return singleUseKeyPrefix + ":" + token
}

// Reserve marks token UNUSED, auto-expiring after ttl. The ttl mirrors the
// token's own expiry so storage never outlives validity.
func (s *SingleUse) Reserve(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(token), StatusUnused, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Consume transitions a token UNUSED -> USED exactly once. The atomic GETDEL
// is the linearization point: among any number of concurrent consumers only
// one observes UNUSED; the rest see the used marker or nothing. The winner
// writes back a marker stamped with the consumer IP and time.
func (s *SingleUse) Consume(ctx context.Context, token, ip string) error {
	key := s.key(token)

	// Replays against an already-used token are rejected read-only, leaving
	// the marker's remaining TTL untouched however often they come.
	current, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if current != StatusUnused {
		return ErrTokenUsed
	}

	value, err := s.redis.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if value != StatusUnused {
		// A concurrent consumer won between the read and the delete. Its
		// marker is at most that race window old, so restoring it with the
		// full marker TTL loses nothing.
		if err := s.redis.Set(ctx, key, value, s.markerTTL).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return ErrTokenUsed
	}

	if ip == "" {
		ip = "UNKNOWN"
	}
	marker := fmt.Sprintf("USED - %s - %d", ip, time.Now().Unix())
	if err := s.redis.Set(ctx, key, marker, s.markerTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Peek reports the stored state of a token without consuming it.
func (s *SingleUse) Peek(ctx context.Context, token string) (string, error) {
	value, err := s.redis.Get(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return value, nil
}
