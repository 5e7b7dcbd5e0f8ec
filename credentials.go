package authd

import (
	"context"
	"errors"
)

// validateCredentials runs the credential ladder: lookup, password, verified.
// Each failure is terminal at its step. In production the lookup and
// password failures are indistinguishable so accounts cannot be enumerated;
// the verified check runs only after password success, which knowingly leaks
// verification state to a caller who already holds the password.
func (e *Engine) validateCredentials(ctx context.Context, identifier, pass string) (*UserRecord, error) {
	user, err := e.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNoUser) {
			e.metrics.inc(MetricAuthFailure)
			if e.cfg.Debug {
				return nil, ErrUserNotFound
			}
			return nil, ErrAuthentication
		}
		e.log.Error("credential lookup failed", "error", err)
		return nil, ErrInternal
	}

	ok, err := e.hasher.Verify(pass, user.PasswordHash)
	if err != nil {
		e.log.Error("password verification failed", "user", MaskEmail(user.Email), "error", err)
		return nil, ErrInternal
	}
	if !ok {
		e.metrics.inc(MetricAuthFailure)
		if e.cfg.Debug {
			return nil, ErrIncorrectPassword
		}
		return nil, ErrAuthentication
	}

	if !user.Verified {
		return nil, ErrUnverified
	}

	return user, nil
}
