package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Maintenance operations. Both run out-of-band (scheduled job or the
// authcorectl CLI), hold no lock across the enumeration, and tolerate
// concurrent mutation: a session destroyed mid-scan by another path is
// simply skipped.

// ReconcileCounters re-derives the four device counters from the live
// session keys. Bulk destruction does not decrement counters per session, so
// they drift upward over time; this repairs them. Idempotent, and only
// eventually consistent while the scan is in flight.
func (s *Store) ReconcileCounters(ctx context.Context) error {
	counts := make(map[Category]int64, len(Categories))

	err := s.scanSessionKeys(ctx, func(keys []string) error {
		pipe := s.redis.Pipeline()
		cmds := make([]*redis.StringCmd, len(keys))
		for i, key := range keys {
			cmds[i] = pipe.Get(ctx, key)
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		for _, cmd := range cmds {
			data, cmdErr := cmd.Bytes()
			if cmdErr != nil {
				continue
			}
			sess, decErr := Decode(data)
			if decErr != nil {
				continue
			}
			counts[sess.Device]++
		}
		return nil
	})
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, category := range Categories {
			key := s.counterKey(category)
			if n := counts[category]; n > 0 {
				pipe.Set(ctx, key, n, 0)
			} else {
				pipe.Del(ctx, key)
			}
		}
		pipe.Del(ctx, s.statsKey())
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	s.logger.Info().
		Int64("desktop", counts[CategoryDesktop]).
		Int64("mobile", counts[CategoryMobile]).
		Int64("tablet", counts[CategoryTablet]).
		Int64("unknown", counts[CategoryUnknown]).
		Msg("device counters reconciled")
	return nil
}

// SweepExpired destroys sessions whose recorded expiry has passed and prunes
// membership entries whose session key was auto-evicted by Redis. It returns
// the number of sessions destroyed. Defensive: with TTL auto-eviction the
// first phase is usually a no-op, but membership sets still need the second.
func (s *Store) SweepExpired(ctx context.Context) (int, error) {
	nowMilli := time.Now().UnixMilli()
	destroyed := 0

	err := s.scanSessionKeys(ctx, func(keys []string) error {
		for _, key := range keys {
			data, getErr := s.redis.Get(ctx, key).Bytes()
			if getErr != nil {
				continue
			}
			sess, decErr := Decode(data)
			if decErr != nil || sess.ExpiresAt <= nowMilli {
				sessionID := strings.TrimPrefix(key, s.prefix+":sess:")
				ok, destroyErr := s.Destroy(ctx, sessionID)
				if destroyErr != nil {
					return destroyErr
				}
				if ok {
					destroyed++
				}
			}
		}
		return nil
	})
	if err != nil {
		return destroyed, err
	}

	if err := s.pruneMemberships(ctx); err != nil {
		return destroyed, err
	}

	return destroyed, nil
}

// pruneMemberships drops membership entries pointing at evicted sessions and
// removes users whose membership set has emptied from the active-user set.
func (s *Store) pruneMemberships(ctx context.Context) error {
	pattern := s.prefix + ":usess:*"
	var cursor uint64

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, s.config.ScanBatch).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		for _, userKey := range keys {
			userID := strings.TrimPrefix(userKey, s.prefix+":usess:")

			members, err := s.redis.SMembers(ctx, userKey).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}

			var stale []interface{}
			for _, sid := range members {
				exists, err := s.redis.Exists(ctx, s.sessionKey(sid)).Result()
				if err != nil {
					return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
				}
				if exists == 0 {
					stale = append(stale, sid)
				}
			}

			if len(stale) > 0 {
				if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
					return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
				}
			}

			remaining, err := s.redis.SCard(ctx, userKey).Result()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
			if remaining == 0 {
				_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, userKey)
					pipe.SRem(ctx, s.activeUsersKey(), userID)
					return nil
				})
				if err != nil {
					return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
				}
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// scanSessionKeys walks every session key in SCAN batches. The visited set
// is a best-effort snapshot; keys created or evicted during the walk may be
// seen zero or one times.
func (s *Store) scanSessionKeys(ctx context.Context, visit func(keys []string) error) error {
	pattern := s.prefix + ":sess:*"
	var cursor uint64

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, s.config.ScanBatch).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if len(keys) > 0 {
			if err := visit(keys); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
