package authd

import (
	"context"
	"errors"

	"github.com/devteamer/authd/internal/limiters"
	"github.com/devteamer/authd/internal/stores"
)

const loginChallengeMessage = "Please login using the link sent to your email address."

// Login verifies credentials and, inside the per-email cooldown, issues a
// short-lived single-use confirmation token delivered by email. The session
// is not established until the link is visited. The returned message is the
// link itself when outbound mail is disabled.
func (e *Engine) Login(ctx context.Context, identifier, pass, clientURL string) (string, error) {
	user, err := e.validateCredentials(ctx, identifier, pass)
	if err != nil {
		return "", err
	}

	// The cooldown gates the email send, and therefore everything that
	// produces one; failed credential checks above never reach it.
	if err := e.cooldown.CheckAndReserve(ctx, user.Email, limiters.ActionLogin); err != nil {
		return "", e.mapCooldownErr(err)
	}

	token, err := e.codec.Issue(user.Email, e.cfg.ConfirmTTL)
	if err != nil {
		e.log.Error("confirm token issue failed", "error", err)
		return "", ErrInternal
	}
	if err := e.tokens.Reserve(ctx, token, e.cfg.ConfirmTTL); err != nil {
		e.log.Error("confirm token reserve failed", "error", err)
		return "", ErrInternal
	}

	link := loginConfirmLink(e.cfg.BaseURL, token, clientURL)
	if !e.cfg.SendEmail {
		return link, nil
	}
	if err := e.sender.SendLoginConfirm(ctx, user.Email, link); err != nil {
		e.log.Error("login confirm email failed", "user", MaskEmail(user.Email), "error", err)
		return "", ErrInternal
	}
	e.metrics.inc(MetricLoginChallengeSent)
	e.log.Info("login confirmation sent", "user", MaskEmail(user.Email))
	return loginChallengeMessage, nil
}

// ConfirmLogin redeems a login confirmation token exactly once and returns
// the access token for the session cookie. Concurrent confirmations of the
// same token yield exactly one success.
func (e *Engine) ConfirmLogin(ctx context.Context, token, ip string) (string, *UserRecord, error) {
	claims, err := e.codec.Parse(token)
	if err != nil {
		return "", nil, mapTokenErr(err)
	}

	if err := e.tokens.Consume(ctx, token, ip); err != nil {
		switch {
		case errors.Is(err, stores.ErrTokenUsed), errors.Is(err, stores.ErrTokenNotFound):
			e.metrics.inc(MetricReplayRejected)
			e.log.Info("login confirmation replay rejected", "ip", ip)
			return "", nil, ErrLinkUsed
		}
		e.log.Error("confirm token consume failed", "error", err)
		return "", nil, ErrInternal
	}

	user, err := e.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNoUser) {
			return "", nil, ErrUserNotFound
		}
		e.log.Error("confirm lookup failed", "error", err)
		return "", nil, ErrInternal
	}

	access, err := e.codec.Issue(user.Email, e.cfg.AccessTTL)
	if err != nil {
		e.log.Error("access token issue failed", "error", err)
		return "", nil, ErrInternal
	}
	e.metrics.inc(MetricLoginConfirmed)
	e.log.Info("login confirmed", "user", MaskEmail(user.Email), "ip", ip)

	return access, user, nil
}
