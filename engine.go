package authd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/devteamer/authd/internal/limiters"
	"github.com/devteamer/authd/internal/stores"
	"github.com/devteamer/authd/jwt"
	"github.com/devteamer/authd/password"
)

// MailSender delivers action links. Implementations must be safe for
// concurrent use; the engine treats delivery as fire-and-forget I/O at the
// edge of each flow.
type MailSender interface {
	SendVerification(ctx context.Context, to, link string) error
	SendLoginConfirm(ctx context.Context, to, link string) error
}

// Options wires the engine's collaborators. Config, Users, and Redis are
// required; Sender is required when Config.SendEmail is set; a nil Logger
// discards engine logs.
type Options struct {
	Config Config
	Users  UserStore
	Redis  redis.UniversalClient
	Sender MailSender
	Logger *slog.Logger
}

// Engine orchestrates the authentication state machine. One instance per
// process, constructed at startup; all methods are safe for concurrent use.
type Engine struct {
	cfg      Config
	users    UserStore
	codec    *jwt.Codec
	hasher   *password.Hasher
	tokens   *stores.SingleUse
	cooldown *limiters.Cooldown
	sender   MailSender
	metrics  *Metrics
	log      *slog.Logger
}

// NewEngine validates the options and builds the engine and its Redis-backed
// coordination stores.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Users == nil {
		return nil, errors.New("authd: user store is required")
	}
	if opts.Redis == nil {
		return nil, errors.New("authd: redis client is required")
	}
	cfg := opts.Config.withDefaults()
	if cfg.SendEmail && opts.Sender == nil {
		return nil, errors.New("authd: mail sender is required when sending is enabled")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("authd: base URL is required")
	}

	codec, err := jwt.NewCodec([]byte(cfg.SecretKey))
	if err != nil {
		return nil, err
	}
	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Used markers must outlive the longest action token, or a replay past
	// the marker's expiry would read as "not found" instead of "used".
	markerTTL := cfg.VerifyTTL
	if cfg.ConfirmTTL > markerTTL {
		markerTTL = cfg.ConfirmTTL
	}

	return &Engine{
		cfg:      cfg,
		users:    opts.Users,
		codec:    codec,
		hasher:   hasher,
		tokens:   stores.NewSingleUse(opts.Redis, 2*markerTTL),
		cooldown: limiters.NewCooldown(opts.Redis, cfg.EmailCooldown),
		sender:   opts.Sender,
		metrics:  newMetrics(),
		log:      logger.With("component", "engine"),
	}, nil
}

// Metrics exposes the engine's event counters.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// Debug reports whether the engine runs with development-mode error detail.
func (e *Engine) Debug() bool {
	return e.cfg.Debug
}

// Authenticate resolves a raw session token to its user record. Any failure
// collapses to ErrUnauthorized; the HTTP layer decides whether a cookie
// should additionally be cleared.
func (e *Engine) Authenticate(ctx context.Context, rawToken string) (*UserRecord, error) {
	if rawToken == "" {
		return nil, ErrUnauthorized
	}
	claims, err := e.codec.Parse(rawToken)
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := e.users.FindByIdentifier(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNoUser) {
			return nil, ErrUnauthorized
		}
		e.log.Error("session lookup failed", "error", err)
		return nil, ErrInternal
	}
	return user, nil
}

// UserExists reports whether a username is taken.
func (e *Engine) UserExists(ctx context.Context, username string) (bool, error) {
	_, err := e.users.FindByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNoUser) {
		return false, nil
	}
	e.log.Error("existence check failed", "error", err)
	return false, ErrInternal
}

// GetUser looks up a user by username for the read endpoints.
func (e *Engine) GetUser(ctx context.Context, username string) (*UserRecord, error) {
	user, err := e.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNoUser) {
			return nil, ErrUserNotFound
		}
		e.log.Error("user lookup failed", "error", err)
		return nil, ErrInternal
	}
	return user, nil
}

// mapCooldownErr converts limiter failures to their client-facing form.
func (e *Engine) mapCooldownErr(err error) error {
	var cooldownErr *limiters.CooldownError
	if errors.As(err, &cooldownErr) {
		e.metrics.inc(MetricCooldownHit)
		return CooldownError(int(cooldownErr.Remaining.Seconds()))
	}
	e.log.Error("cooldown check failed", "error", err)
	return ErrInternal
}

// mapTokenErr converts codec failures to their client-facing form.
func mapTokenErr(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrMalformed):
		return ErrTokenMalformed
	}
	return ErrInternal
}
