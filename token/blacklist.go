package token

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eduportal/authcore/internal"
)

const defaultCheckTimeout = 5 * time.Second

// Blacklist records revoked credentials in Redis. An entry's TTL equals the
// credential's remaining natural lifetime: never longer, so the revocation
// set cannot grow past the live-token population, and never shorter, so a
// revoked-but-signature-valid token cannot be replayed.
type Blacklist struct {
	redis   redis.UniversalClient
	prefix  string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewBlacklist creates a revocation set under the given key prefix.
// timeout bounds every IsRevoked store round-trip (default 5s).
func NewBlacklist(client redis.UniversalClient, prefix string, timeout time.Duration, logger zerolog.Logger) *Blacklist {
	if prefix == "" {
		prefix = "ac"
	}
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	return &Blacklist{
		redis:   client,
		prefix:  prefix,
		timeout: timeout,
		logger:  logger.With().Str("component", "token-blacklist").Logger(),
	}
}

func (b *Blacklist) key(tokenStr string) string {
	return b.prefix + ":revoked:" + internal.EncodeHash(internal.HashValue(tokenStr))
}

// Revoke marks a credential invalid for the remainder of its lifetime. The
// token is decoded without signature verification: an already-compromised or
// borderline-invalid credential must still be revocable. Revoking a token
// whose expiry has passed is a no-op.
func (b *Blacklist) Revoke(ctx context.Context, tokenStr string) error {
	claims, err := DecodeUnverified(tokenStr)
	if err != nil {
		return err
	}
	if claims.ExpiresAt == nil {
		return ErrInvalidToken
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}

	if err := b.redis.Set(ctx, b.key(tokenStr), 1, remaining).Err(); err != nil {
		return fmt.Errorf("record revocation: %w", err)
	}
	return nil
}

// IsRevoked reports whether a credential is on the revocation list. The
// store lookup races a timer and the first result wins; on timeout or store
// failure it fails open and treats the token as not revoked. Availability
// over strict revocation is a deliberate tradeoff: a revoke is not
// guaranteed to take effect while the store is slow or down.
func (b *Blacklist) IsRevoked(ctx context.Context, tokenStr string) bool {
	type lookup struct {
		revoked bool
		err     error
	}

	results := make(chan lookup, 1)
	go func() {
		n, err := b.redis.Exists(ctx, b.key(tokenStr)).Result()
		results <- lookup{revoked: n > 0, err: err}
	}()

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case r := <-results:
		if r.err != nil {
			b.logger.Warn().Err(r.err).Msg("revocation check failed, failing open")
			return false
		}
		return r.revoked
	case <-timer.C:
		b.logger.Warn().Dur("timeout", b.timeout).Msg("revocation check timed out, failing open")
		return false
	case <-ctx.Done():
		return false
	}
}
