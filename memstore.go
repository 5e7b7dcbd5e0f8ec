package authd

import (
	"context"
	"strings"
	"sync"
)

// MemStore is an in-memory UserStore for tests and local development. It
// mirrors the production store's semantics: case-insensitive matching and
// duplicate rejection at insert time.
type MemStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*UserRecord
}

// NewMemStore returns an empty in-memory user store.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1, users: make(map[int64]*UserRecord)}
}

var _ UserStore = (*MemStore)(nil)

func (s *MemStore) FindByIdentifier(_ context.Context, identifier string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(identifier)
	for _, u := range s.users {
		if strings.ToLower(u.Username) == needle || strings.ToLower(u.Email) == needle {
			return copyRecord(u), nil
		}
	}
	return nil, ErrNoUser
}

func (s *MemStore) FindByEmail(_ context.Context, email string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(email)
	for _, u := range s.users {
		if strings.ToLower(u.Email) == needle {
			return copyRecord(u), nil
		}
	}
	return nil, ErrNoUser
}

func (s *MemStore) FindByUsername(_ context.Context, username string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(username)
	for _, u := range s.users {
		if strings.ToLower(u.Username) == needle {
			return copyRecord(u), nil
		}
	}
	return nil, ErrNoUser
}

func (s *MemStore) Insert(_ context.Context, user *UserRecord) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) || strings.EqualFold(u.Username, user.Username) {
			return nil, ErrDuplicateUser
		}
	}
	stored := copyRecord(user)
	stored.ID = s.nextID
	s.nextID++
	s.users[stored.ID] = stored
	return copyRecord(stored), nil
}

func (s *MemStore) MarkVerified(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNoUser
	}
	u.Verified = true
	return nil
}

func copyRecord(u *UserRecord) *UserRecord {
	clone := *u
	return &clone
}
