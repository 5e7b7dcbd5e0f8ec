package authd

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// recordSender captures outbound mail for assertions.
type recordSender struct {
	mu            sync.Mutex
	verifications []sentMail
	confirmations []sentMail
}

type sentMail struct {
	to   string
	link string
}

func (s *recordSender) SendVerification(_ context.Context, to, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifications = append(s.verifications, sentMail{to: to, link: link})
	return nil
}

func (s *recordSender) SendLoginConfirm(_ context.Context, to, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmations = append(s.confirmations, sentMail{to: to, link: link})
	return nil
}

func testConfig() Config {
	return Config{
		Debug:     true,
		SecretKey: "test-secret",
		BaseURL:   "http://localhost:8080",
	}
}

// newTestEngine builds an engine on miniredis and an in-memory user store.
// Mail sending is off unless mutate enables it: flows then return the action
// link as their message, which tests mine for tokens.
func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *MemStore, *recordSender, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	users := NewMemStore()
	sender := &recordSender{}
	engine, err := NewEngine(Options{
		Config: cfg,
		Users:  users,
		Redis:  rdb,
		Sender: sender,
	})
	require.NoError(t, err)

	return engine, users, sender, mr
}

// tokenFromLink extracts the token query parameter from an action link.
func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token, "link %q carries no token", link)
	return token
}

func aliceRequest() RegisterRequest {
	return RegisterRequest{
		Email:     "alice@example.com",
		Username:  "alice",
		Password:  "Sup3r$ecret!",
		FirstName: "Alice",
		LastName:  "Liddell",
	}
}

// registerAndVerify walks an account to the Verified state and returns it.
func registerAndVerify(t *testing.T, engine *Engine) *UserRecord {
	t.Helper()
	ctx := context.Background()

	_, link, err := engine.Register(ctx, aliceRequest(), "")
	require.NoError(t, err)

	_, err = engine.VerifyEmail(ctx, tokenFromLink(t, link), "10.0.0.1")
	require.NoError(t, err)

	user, err := engine.users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, user.Verified)
	return user
}

func TestNewEngineRequiresDependencies(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	_, err = NewEngine(Options{Config: testConfig(), Redis: rdb})
	require.Error(t, err)

	_, err = NewEngine(Options{Config: testConfig(), Users: NewMemStore()})
	require.Error(t, err)

	cfg := testConfig()
	cfg.SendEmail = true
	_, err = NewEngine(Options{Config: cfg, Users: NewMemStore(), Redis: rdb})
	require.Error(t, err, "sender must be required when sending is enabled")
}

func TestAuthenticate(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, nil)
	ctx := context.Background()
	registerAndVerify(t, engine)

	token, err := engine.codec.Issue("alice@example.com", time.Hour)
	require.NoError(t, err)

	user, err := engine.Authenticate(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)

	_, err = engine.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = engine.Authenticate(ctx, "")
	require.ErrorIs(t, err, ErrUnauthorized)

	// Token for a user that no longer resolves.
	ghost, err := engine.codec.Issue("ghost@example.com", time.Hour)
	require.NoError(t, err)
	_, err = engine.Authenticate(ctx, ghost)
	require.ErrorIs(t, err, ErrUnauthorized)
}
