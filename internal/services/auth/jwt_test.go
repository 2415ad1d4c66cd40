package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var userX = uuid.MustParse("11111111-1111-1111-1111-111111111111")

func TestAccessTokenRoundTrip(t *testing.T) {
	mgr := NewJWTManager("test-secret", time.Hour)

	token, expiresAt, err := mgr.GenerateAccessToken(userX)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("token already expired: %v", expiresAt)
	}

	claims, err := mgr.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != userX {
		t.Fatalf("unexpected subject: %s", claims.UserID)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := NewJWTManager("secret-a", time.Hour).GenerateAccessToken(userX)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := NewJWTManager("secret-b", time.Hour).ParseAccessToken(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	mgr := NewJWTManager("test-secret", time.Minute)
	mgr.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := mgr.GenerateAccessToken(userX)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := mgr.ParseAccessToken(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	mgr := NewJWTManager("test-secret", time.Hour)

	for _, raw := range []string{"", "   ", "not.a.token"} {
		if _, err := mgr.ParseAccessToken(raw); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for %q, got %v", raw, err)
		}
	}
}

func TestIdentityContextRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{UserID: userX})

	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.UserID != userX {
		t.Fatalf("identity lost in context: %+v ok=%v", identity, ok)
	}

	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatalf("empty context must not carry an identity")
	}
}
