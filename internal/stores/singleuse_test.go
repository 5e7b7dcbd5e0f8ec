package stores

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*SingleUse, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewSingleUse(rdb, time.Hour), mr
}

func TestReserveConsume(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Reserve(ctx, "tok1", time.Minute); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	state, err := store.Peek(ctx, "tok1")
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if state != StatusUnused {
		t.Fatalf("state = %q, want %q", state, StatusUnused)
	}

	if err := store.Consume(ctx, "tok1", "10.0.0.1"); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	state, err = store.Peek(ctx, "tok1")
	if err != nil {
		t.Fatalf("Peek after consume: %v", err)
	}
	if !strings.HasPrefix(state, "USED - 10.0.0.1 - ") {
		t.Errorf("state = %q, want USED marker with consumer IP", state)
	}
}

func TestConsumeTwice(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Reserve(ctx, "tok1", time.Minute); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := store.Consume(ctx, "tok1", "10.0.0.1"); err != nil {
		t.Fatalf("first Consume: %v", err)
	}

	err := store.Consume(ctx, "tok1", "10.0.0.2")
	if !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("second Consume err = %v, want ErrTokenUsed", err)
	}

	// The used marker survives the failed replay.
	state, err := store.Peek(ctx, "tok1")
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if !strings.HasPrefix(state, "USED - 10.0.0.1 - ") {
		t.Errorf("state = %q, want original USED marker", state)
	}
}

func TestReplayKeepsMarkerTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Reserve(ctx, "tok1", time.Minute); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := store.Consume(ctx, "tok1", "10.0.0.1"); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	mr.FastForward(30 * time.Minute)
	want := mr.TTL("aot:tok1")
	if want != 30*time.Minute {
		t.Fatalf("marker TTL = %v, want 30m after fast-forward", want)
	}

	for i := 0; i < 3; i++ {
		if err := store.Consume(ctx, "tok1", "10.0.0.2"); !errors.Is(err, ErrTokenUsed) {
			t.Fatalf("replay err = %v, want ErrTokenUsed", err)
		}
	}
	if got := mr.TTL("aot:tok1"); got != want {
		t.Errorf("marker TTL after replays = %v, want unchanged %v", got, want)
	}
}

func TestConsumeUnknownToken(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.Consume(context.Background(), "never-reserved", "10.0.0.1")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("err = %v, want ErrTokenNotFound", err)
	}
}

func TestReservationExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Reserve(ctx, "tok1", time.Minute); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	err := store.Consume(ctx, "tok1", "10.0.0.1")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("err = %v, want ErrTokenNotFound after TTL", err)
	}
}

func TestConsumeExactlyOnceUnderContention(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	const consumers = 32

	if err := store.Reserve(ctx, "tok1", time.Minute); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, consumers)
	start := make(chan struct{})
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- store.Consume(ctx, "tok1", "10.0.0.1")
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrTokenUsed), errors.Is(err, ErrTokenNotFound):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("successful consumes = %d, want exactly 1", succeeded)
	}
	if rejected != consumers-1 {
		t.Errorf("rejected consumes = %d, want %d", rejected, consumers-1)
	}
}
