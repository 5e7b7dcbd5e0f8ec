package authd

import (
	"context"
	"errors"

	"github.com/devteamer/authd/internal/stores"
)

// VerifyEmail consumes a verification token and marks its account verified.
// Re-verifying an already-verified account succeeds without consuming
// anything, so stale links on a verified account stay harmless. Reuse of a
// consumed token on an unverified account is a conflict.
func (e *Engine) VerifyEmail(ctx context.Context, token, ip string) (string, error) {
	claims, err := e.codec.Parse(token)
	if err != nil {
		return "", mapTokenErr(err)
	}

	user, err := e.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNoUser) {
			return "", ErrUserNotFound
		}
		e.log.Error("verify lookup failed", "error", err)
		return "", ErrInternal
	}

	if user.Verified {
		return "User already verified.", nil
	}

	if err := e.tokens.Consume(ctx, token, ip); err != nil {
		switch {
		case errors.Is(err, stores.ErrTokenUsed), errors.Is(err, stores.ErrTokenNotFound):
			e.metrics.inc(MetricReplayRejected)
			return "", ErrLinkUsed
		}
		e.log.Error("verify token consume failed", "error", err)
		return "", ErrInternal
	}

	if err := e.users.MarkVerified(ctx, user.ID); err != nil {
		e.log.Error("mark verified failed", "user", MaskEmail(user.Email), "error", err)
		return "", ErrInternal
	}
	e.metrics.inc(MetricVerified)
	e.log.Info("email verified", "user", MaskEmail(user.Email))

	return "Email verified. You may now log in.", nil
}
