package authd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	user, message, err := engine.Register(ctx, aliceRequest(), "")
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, "alice", user.Username)
	require.False(t, user.Verified)
	require.NotEqual(t, "Sup3r$ecret!", user.PasswordHash)

	// Mail is disabled, so the message is the verification link itself.
	require.Contains(t, message, "/api/auth/verify-email?token=")
	require.EqualValues(t, 1, engine.Metrics().Get(MetricRegistered))
}

func TestRegisterNormalizesIdentity(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	req := aliceRequest()
	req.Email = " Alice@Example.COM "
	req.Username = "AlIcE"

	user, _, err := engine.Register(ctx, req, "")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, "alice", user.Username)
}

func TestRegisterDuplicates(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	_, _, err := engine.Register(ctx, aliceRequest(), "")
	require.NoError(t, err)

	t.Run("same email, case variant", func(t *testing.T) {
		req := aliceRequest()
		req.Email = "Alice@Example.com"
		req.Username = "someoneelse"
		_, _, err := engine.Register(ctx, req, "")
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("same username, case variant", func(t *testing.T) {
		req := aliceRequest()
		req.Email = "other@example.com"
		req.Username = "Alice"
		_, _, err := engine.Register(ctx, req, "")
		require.ErrorIs(t, err, ErrDuplicateUsername)
	})
}

// rivalStore lands a competing record between the availability checks and
// the insert, so the insert loses the store's uniqueness race.
type rivalStore struct {
	*MemStore
	rival *UserRecord
}

func (s *rivalStore) Insert(ctx context.Context, user *UserRecord) (*UserRecord, error) {
	if s.rival != nil {
		if _, err := s.MemStore.Insert(ctx, s.rival); err != nil {
			return nil, err
		}
		s.rival = nil
	}
	return s.MemStore.Insert(ctx, user)
}

func TestRegisterInsertRaceReportsCollidingField(t *testing.T) {
	cases := map[string]struct {
		rival UserRecord
		want  *Error
	}{
		"email taken":    {UserRecord{Email: "alice@example.com", Username: "rival"}, ErrDuplicateEmail},
		"username taken": {UserRecord{Email: "rival@example.com", Username: "alice"}, ErrDuplicateUsername},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			mr, err := miniredis.Run()
			require.NoError(t, err)
			t.Cleanup(mr.Close)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })

			engine, err := NewEngine(Options{
				Config: testConfig(),
				Users:  &rivalStore{MemStore: NewMemStore(), rival: &tc.rival},
				Redis:  rdb,
			})
			require.NoError(t, err)

			_, _, err = engine.Register(context.Background(), aliceRequest(), "")
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	cases := map[string]func(*RegisterRequest){
		"short username":     func(r *RegisterRequest) { r.Username = "ab" },
		"username charset":   func(r *RegisterRequest) { r.Username = "al ice!" },
		"short password":     func(r *RegisterRequest) { r.Password = "Ab1!" },
		"password no upper":  func(r *RegisterRequest) { r.Password = "sup3r$ecret!" },
		"password no digit":  func(r *RegisterRequest) { r.Password = "Super$ecret!" },
		"password no symbol": func(r *RegisterRequest) { r.Password = "Sup3rSecret1" },
		"password space":     func(r *RegisterRequest) { r.Password = "Sup3r $ecret!" },
		"password shell":     func(r *RegisterRequest) { r.Password = "Sup3r$ecret;" },
		"empty first name":   func(r *RegisterRequest) { r.FirstName = "  " },
		"name charset":       func(r *RegisterRequest) { r.LastName = "Liddell<script>" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := aliceRequest()
			mutate(&req)
			_, _, err := engine.Register(ctx, req, "")
			require.Error(t, err)
			require.Equal(t, 400, AsError(err).Status)
		})
	}

	t.Run("international name accepted", func(t *testing.T) {
		req := aliceRequest()
		req.Email = "jose@example.com"
		req.Username = "jose"
		req.FirstName = "José"
		req.LastName = "O'Brien-Núñez"
		_, _, err := engine.Register(ctx, req, "")
		require.NoError(t, err)
	})
}

func TestRegisterSendsEmailWhenEnabled(t *testing.T) {
	engine, _, sender, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Debug = false
		cfg.SendEmail = true
	})
	ctx := context.Background()

	_, message, err := engine.Register(ctx, aliceRequest(), "https://app.example.com/verify")
	require.NoError(t, err)
	require.Contains(t, message, "verify your account")
	require.NotContains(t, message, "token=", "link must not leak into the response when mail is on")

	require.Len(t, sender.verifications, 1)
	require.Equal(t, "alice@example.com", sender.verifications[0].to)
	require.True(t, strings.HasPrefix(sender.verifications[0].link, "https://app.example.com/verify?token="))
}

func TestResendVerification(t *testing.T) {
	engine, _, _, mr := newTestEngine(t, nil)
	ctx := context.Background()

	_, _, err := engine.Register(ctx, aliceRequest(), "")
	require.NoError(t, err)

	t.Run("unknown user", func(t *testing.T) {
		_, err := engine.ResendVerification(ctx, "nobody", "")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("resend then cooldown", func(t *testing.T) {
		message, err := engine.ResendVerification(ctx, "alice", "")
		require.NoError(t, err)
		require.Contains(t, message, "token=")

		_, err = engine.ResendVerification(ctx, "alice", "")
		require.Error(t, err)
		apiErr := AsError(err)
		require.Equal(t, 429, apiErr.Status)
		require.Contains(t, apiErr.Detail, "Please wait")

		mr.FastForward(DefaultEmailCooldown + time.Second)
		_, err = engine.ResendVerification(ctx, "alice", "")
		require.NoError(t, err)
	})

	t.Run("already verified", func(t *testing.T) {
		mr.FastForward(DefaultEmailCooldown + time.Second)
		message, err := engine.ResendVerification(ctx, "alice", "")
		require.NoError(t, err)
		token := tokenFromLink(t, message)
		_, err = engine.VerifyEmail(ctx, token, "10.0.0.1")
		require.NoError(t, err)

		message, err = engine.ResendVerification(ctx, "alice", "")
		require.NoError(t, err)
		require.Equal(t, "User already verified.", message)
	})
}
