// Package jwt is the token codec: it issues and parses the signed, expiring
// bearer tokens used both as session credentials and as short-lived action
// tokens for email links. Validity here is purely cryptographic and
// time-based; single-use enforcement is a separate concern.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed covers bad signatures, wrong algorithms, and missing
	// required claims. Parse never reports which.
	ErrMalformed = errors.New("token malformed")
	// ErrExpired reports a well-formed token past its expiry.
	ErrExpired = errors.New("token expired")
)

// Claims is the fixed payload carried by every token. All three fields are
// always present; a token missing any of them fails to parse.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec signs and verifies tokens with a single process-wide HS256 secret.
type Codec struct {
	secret []byte
}

// NewCodec validates the signing secret and returns a ready codec.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret must not be empty")
	}
	return &Codec{secret: secret}, nil
}

// Issue produces a signed token for subject expiring after ttl.
func (c *Codec) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Parse verifies the signature and expiry and returns the full payload.
// On any failure the returned Claims is zero-valued: callers never see a
// partially-filled payload.
func (c *Codec) Parse(token string) (Claims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrMalformed
	}
	if !parsed.Valid || claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return Claims{}, ErrMalformed
	}
	return Claims{
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
