package authd

import (
	"context"
	"errors"
	"strings"
)

// UserRecord is the transient copy of a persisted account. The record store
// owns the data; the engine only ever reads it and flips Verified once.
type UserRecord struct {
	ID           int64
	Email        string
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
	Verified     bool
}

// Store-level sentinels. The engine translates these to client-facing
// *Error values; implementations must not return *Error themselves.
var (
	ErrNoUser        = errors.New("user record not found")
	ErrDuplicateUser = errors.New("duplicate email or username")
)

// UserStore is the persistent record store boundary. All lookups are
// case-insensitive on email and username; uniqueness is enforced by the
// store's own constraint layer, surfacing races as ErrDuplicateUser.
type UserStore interface {
	// FindByIdentifier matches identifier against username or email,
	// whichever hits.
	FindByIdentifier(ctx context.Context, identifier string) (*UserRecord, error)
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
	// Insert persists a new record and returns it with the assigned ID.
	Insert(ctx context.Context, user *UserRecord) (*UserRecord, error)
	// MarkVerified flips the verified flag. The transition is one-way.
	MarkVerified(ctx context.Context, id int64) error
}

// MaskEmail hides the local part of an address for log output:
// example@gmail.com -> e***@gmail.com. The mask length is fixed so the
// local-part length is not revealed either.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || len(local) <= 1 {
		return email
	}
	return local[:1] + "***@" + domain
}
