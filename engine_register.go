package authd

import (
	"context"
	"errors"
	"strings"

	"github.com/devteamer/authd/internal/limiters"
)

// RegisterRequest carries the registration input after structural validation
// at the HTTP edge.
type RegisterRequest struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

const registeredMessage = "User registered successfully. " +
	"Please verify your account using the link sent to your email address."

// Register creates an unverified account, reserves a single-use verification
// token, and dispatches the verification link. The returned message is the
// link itself when outbound mail is disabled.
func (e *Engine) Register(ctx context.Context, req RegisterRequest, clientURL string) (*UserRecord, string, error) {
	username, err := ValidateUsername(req.Username)
	if err != nil {
		return nil, "", ValidationError(err.Error())
	}
	firstName, err := ValidateName(req.FirstName)
	if err != nil {
		return nil, "", ValidationError(err.Error())
	}
	lastName, err := ValidateName(req.LastName)
	if err != nil {
		return nil, "", ValidationError(err.Error())
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, "", ValidationError(err.Error())
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if err := e.checkAvailable(ctx, email, username); err != nil {
		return nil, "", err
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		e.log.Error("password hashing failed", "error", err)
		return nil, "", ErrInternal
	}

	user, err := e.users.Insert(ctx, &UserRecord{
		Email:        email,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		Verified:     false,
	})
	if err != nil {
		// The store's uniqueness constraint closes the pre-check race; a
		// follow-up lookup reports which field the rival took.
		if errors.Is(err, ErrDuplicateUser) {
			if _, probeErr := e.users.FindByEmail(ctx, email); probeErr == nil {
				return nil, "", ErrDuplicateEmail
			}
			return nil, "", ErrDuplicateUsername
		}
		e.log.Error("user insert failed", "user", MaskEmail(email), "error", err)
		return nil, "", ErrInternal
	}
	e.metrics.inc(MetricRegistered)
	e.log.Info("user registered", "user", MaskEmail(email))

	message, err := e.sendVerification(ctx, email, clientURL)
	if err != nil {
		return nil, "", err
	}
	return user, message, nil
}

// ResendVerification reissues the verification link for a known, still
// unverified account. The send is cooldown-gated per email address.
func (e *Engine) ResendVerification(ctx context.Context, username, clientURL string) (string, error) {
	user, err := e.users.FindByIdentifier(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNoUser) {
			return "", ErrUserNotFound
		}
		e.log.Error("resend lookup failed", "error", err)
		return "", ErrInternal
	}
	if user.Verified {
		return "User already verified.", nil
	}

	if err := e.cooldown.CheckAndReserve(ctx, user.Email, limiters.ActionVerify); err != nil {
		return "", e.mapCooldownErr(err)
	}

	message, err := e.sendVerification(ctx, user.Email, clientURL)
	if err != nil {
		return "", err
	}
	if e.cfg.SendEmail {
		message = "A link has been sent to " + MaskEmail(user.Email) + "."
	}
	return message, nil
}

func (e *Engine) checkAvailable(ctx context.Context, email, username string) error {
	if _, err := e.users.FindByEmail(ctx, email); err == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(err, ErrNoUser) {
		e.log.Error("email availability check failed", "error", err)
		return ErrInternal
	}
	if _, err := e.users.FindByUsername(ctx, username); err == nil {
		return ErrDuplicateUsername
	} else if !errors.Is(err, ErrNoUser) {
		e.log.Error("username availability check failed", "error", err)
		return ErrInternal
	}
	return nil
}

// sendVerification mints and reserves a fresh verification token and
// delivers the link. Returns the client-facing success message.
func (e *Engine) sendVerification(ctx context.Context, email, clientURL string) (string, error) {
	token, err := e.codec.Issue(email, e.cfg.VerifyTTL)
	if err != nil {
		e.log.Error("verify token issue failed", "error", err)
		return "", ErrInternal
	}
	if err := e.tokens.Reserve(ctx, token, e.cfg.VerifyTTL); err != nil {
		e.log.Error("verify token reserve failed", "error", err)
		return "", ErrInternal
	}

	link := verificationLink(e.cfg.BaseURL, token, clientURL)
	if !e.cfg.SendEmail {
		return link, nil
	}
	if err := e.sender.SendVerification(ctx, email, link); err != nil {
		e.log.Error("verification email failed", "user", MaskEmail(email), "error", err)
		return "", ErrInternal
	}
	e.metrics.inc(MetricVerificationSent)
	e.log.Info("verification email sent", "user", MaskEmail(email))
	return registeredMessage, nil
}
