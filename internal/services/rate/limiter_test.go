package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/glimmerapp/backend/internal/repo/redis"
)

func TestLimiterBlocksAfterBudgetExhausted(t *testing.T) {
	store := NewMemoryStore()
	limiter := NewLimiter(store, "swipes", 2, time.Minute)

	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 2; i++ {
		retryAfter, allowed, err := limiter.Allow(ctx, userID)
		if err != nil {
			t.Fatalf("allow #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%s", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.Allow(ctx, userID)
	if err != nil {
		t.Fatalf("allow #3: %v", err)
	}
	if allowed {
		t.Fatalf("expected block on third action in window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %s", retryAfter)
	}
}

func TestLimiterIsolatesUsersAndScopes(t *testing.T) {
	store := NewMemoryStore()
	swipes := NewLimiter(store, "swipes", 1, time.Minute)
	messages := NewLimiter(store, "messages", 1, time.Minute)

	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	if _, allowed, err := swipes.Allow(ctx, alice); err != nil || !allowed {
		t.Fatalf("first swipe for alice should pass: allowed=%v err=%v", allowed, err)
	}
	if _, allowed, err := swipes.Allow(ctx, alice); err != nil || allowed {
		t.Fatalf("second swipe for alice should block: allowed=%v err=%v", allowed, err)
	}

	// Different user, same scope.
	if _, allowed, err := swipes.Allow(ctx, bob); err != nil || !allowed {
		t.Fatalf("bob should have his own budget: allowed=%v err=%v", allowed, err)
	}
	// Same user, different scope.
	if _, allowed, err := messages.Allow(ctx, alice); err != nil || !allowed {
		t.Fatalf("message scope should not share the swipe budget: allowed=%v err=%v", allowed, err)
	}
}

func TestMemoryStoreResetsAfterWindow(t *testing.T) {
	store := NewMemoryStore()
	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	limiter := NewLimiter(store, "swipes", 1, 10*time.Second)
	ctx := context.Background()
	userID := uuid.New()

	if _, allowed, _ := limiter.Allow(ctx, userID); !allowed {
		t.Fatalf("first action should pass")
	}
	if _, allowed, _ := limiter.Allow(ctx, userID); allowed {
		t.Fatalf("second action should block")
	}

	current = current.Add(11 * time.Second)

	if _, allowed, _ := limiter.Allow(ctx, userID); !allowed {
		t.Fatalf("action after window expiry should pass")
	}
}

func TestLimiterWithRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), "messages", 2, 10*time.Second)

	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 2; i++ {
		if _, allowed, err := limiter.Allow(ctx, userID); err != nil || !allowed {
			t.Fatalf("allow #%d: allowed=%v err=%v", i+1, allowed, err)
		}
	}

	retryAfter, allowed, err := limiter.Allow(ctx, userID)
	if err != nil {
		t.Fatalf("allow #3: %v", err)
	}
	if allowed || retryAfter <= 0 {
		t.Fatalf("expected redis-backed block with retry_after, got allowed=%v retry_after=%s", allowed, retryAfter)
	}

	mr.FastForward(11 * time.Second)

	if _, allowed, err := limiter.Allow(ctx, userID); err != nil || !allowed {
		t.Fatalf("expected allow after window: allowed=%v err=%v", allowed, err)
	}
}

func TestDisabledLimiterAlwaysAllows(t *testing.T) {
	limiter := NewLimiter(nil, "swipes", 0, time.Minute)

	if _, allowed, err := limiter.Allow(context.Background(), uuid.New()); err != nil || !allowed {
		t.Fatalf("disabled limiter must allow: allowed=%v err=%v", allowed, err)
	}
}
