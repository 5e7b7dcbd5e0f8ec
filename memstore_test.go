package authd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemStore(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	alice, err := store.Insert(ctx, &UserRecord{
		Email:    "alice@example.com",
		Username: "alice",
	})
	require.NoError(t, err)
	require.NotZero(t, alice.ID)

	_, err = store.Insert(ctx, &UserRecord{Email: "Alice@Example.com", Username: "other"})
	require.ErrorIs(t, err, ErrDuplicateUser)
	_, err = store.Insert(ctx, &UserRecord{Email: "other@example.com", Username: "ALICE"})
	require.ErrorIs(t, err, ErrDuplicateUser)

	found, err := store.FindByIdentifier(ctx, "ALICE")
	require.NoError(t, err)
	require.Equal(t, alice.ID, found.ID)
	found, err = store.FindByIdentifier(ctx, "Alice@Example.com")
	require.NoError(t, err)
	require.Equal(t, alice.ID, found.ID)

	_, err = store.FindByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, ErrNoUser)

	require.NoError(t, store.MarkVerified(ctx, alice.ID))
	found, err = store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found.Verified)

	require.ErrorIs(t, store.MarkVerified(ctx, 9999), ErrNoUser)

	// Returned records are copies; mutating one must not leak into the store.
	found.Username = "mallory"
	again, err := store.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "alice", again.Username)
}
