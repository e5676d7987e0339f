package token

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newBlacklistTest(t *testing.T) (*Blacklist, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewBlacklist(rdb, "ac", time.Second, zerolog.Nop()), mr
}

func issueTestToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	cfg := testConfig()
	cfg.AccessTTL = ttl
	issuer, err := NewIssuer(cfg)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	tokenStr, err := issuer.IssueAccess(testParams())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tokenStr
}

func TestRevokeThenIsRevoked(t *testing.T) {
	blacklist, mr := newBlacklistTest(t)
	ctx := context.Background()

	tokenStr := issueTestToken(t, time.Hour)

	if blacklist.IsRevoked(ctx, tokenStr) {
		t.Fatal("fresh token must not be revoked")
	}
	if err := blacklist.Revoke(ctx, tokenStr); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !blacklist.IsRevoked(ctx, tokenStr) {
		t.Fatal("revoked token must report revoked")
	}

	// The entry must not outlive the credential's remaining validity.
	entryTTL := mr.TTL(blacklist.key(tokenStr))
	if entryTTL <= 0 || entryTTL > time.Hour {
		t.Fatalf("entry TTL %v must be bounded by the token lifetime", entryTTL)
	}
}

func TestRevokeExpiredTokenIsNoOp(t *testing.T) {
	blacklist, mr := newBlacklistTest(t)
	ctx := context.Background()

	tokenStr := issueTestToken(t, time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	if err := blacklist.Revoke(ctx, tokenStr); err != nil {
		t.Fatalf("revoke of expired token must not error: %v", err)
	}
	if mr.Exists(blacklist.key(tokenStr)) {
		t.Fatal("no entry should be written for an already-expired token")
	}
}

func TestRevokeMalformedToken(t *testing.T) {
	blacklist, _ := newBlacklistTest(t)

	if err := blacklist.Revoke(context.Background(), "not-a-token"); err == nil {
		t.Fatal("expected error for undecodable token")
	}
}

func TestIsRevokedFailsOpenOnStoreError(t *testing.T) {
	blacklist, mr := newBlacklistTest(t)
	ctx := context.Background()

	tokenStr := issueTestToken(t, time.Hour)
	if err := blacklist.Revoke(ctx, tokenStr); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	mr.Close()

	if blacklist.IsRevoked(ctx, tokenStr) {
		t.Fatal("store failure must fail open, not closed")
	}
}

func TestIsRevokedFailsOpenOnTimeout(t *testing.T) {
	// A client pointed at a blackhole address keeps the lookup pending
	// past the configured timeout; the timer must win the race.
	rdb := redis.NewClient(&redis.Options{
		Addr:        "192.0.2.1:6379",
		DialTimeout: 30 * time.Second,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })

	blacklist := NewBlacklist(rdb, "ac", 100*time.Millisecond, zerolog.Nop())
	tokenStr := issueTestToken(t, time.Hour)

	start := time.Now()
	revoked := blacklist.IsRevoked(context.Background(), tokenStr)
	elapsed := time.Since(start)

	if revoked {
		t.Fatal("timeout must fail open")
	}
	if elapsed > 5*time.Second {
		t.Fatalf("check took %v, the timer should have bounded it", elapsed)
	}
}
