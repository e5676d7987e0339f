package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eduportal/authcore/internal"
)

// ErrSessionNotFound covers both "never existed" and "expired"; callers must
// not be able to distinguish the two.
var ErrSessionNotFound = errors.New("session not found")

// ErrRefreshNotFound is returned when a refresh pointer is missing, already
// consumed, or its target session is gone.
var ErrRefreshNotFound = errors.New("refresh credential not found")

// ErrRedisUnavailable wraps every transport-level store failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Config controls session lifetimes and cache behavior.
type Config struct {
	// TTL is the short-lived session window (default 24h).
	TTL time.Duration
	// ExtendedTTL is the long-lived window used for "remember me" sessions
	// and for every refresh pointer regardless of the session window: a
	// refresh credential must outlive a short session to be useful for
	// renewal (default 30 days).
	ExtendedTTL time.Duration
	// StatsTTL bounds statistics-snapshot staleness (default 30s).
	StatsTTL time.Duration
	// ScanBatch is the SCAN page size for maintenance operations (default 512).
	ScanBatch int64
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = 24 * time.Hour
	}
	if c.ExtendedTTL < c.TTL {
		c.ExtendedTTL = 30 * 24 * time.Hour
	}
	if c.StatsTTL <= 0 {
		c.StatsTTL = 30 * time.Second
	}
	if c.ScanBatch <= 0 {
		c.ScanBatch = 512
	}
	return c
}

// destroySessionScript removes a session and repairs every derived
// structure in one round trip: user membership, the device counter (floored
// at zero), the active-user set once the membership empties, the refresh
// pointer, and the statistics cache.
const destroySessionScript = `
local existed = redis.call("EXISTS", KEYS[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
  local count = tonumber(redis.call("GET", KEYS[3]) or "0")
  if count > 1 then
    redis.call("DECR", KEYS[3])
  elseif count == 1 then
    redis.call("DEL", KEYS[3])
  end
end
redis.call("SREM", KEYS[2], ARGV[1])
if redis.call("SCARD", KEYS[2]) == 0 then
  redis.call("DEL", KEYS[2])
  redis.call("SREM", KEYS[4], ARGV[2])
end
redis.call("DEL", KEYS[5])
redis.call("DEL", KEYS[6])
return existed
`

var destroySessionLua = redis.NewScript(destroySessionScript)

// Store is the authoritative source of truth for active sessions. All state
// lives in Redis under a fixed key prefix; the store itself is stateless and
// safe for concurrent use.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	config Config
	logger zerolog.Logger
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the key namespace (default "ac").
func NewStore(client redis.UniversalClient, prefix string, cfg Config, logger zerolog.Logger) *Store {
	if prefix == "" {
		prefix = "ac"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
		config: cfg.withDefaults(),
		logger: logger.With().Str("component", "session-store").Logger(),
	}
}

func (s *Store) sessionKey(sessionID string) string {
	return s.prefix + ":sess:" + sessionID
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":usess:" + userID
}

func (s *Store) activeUsersKey() string {
	return s.prefix + ":active_users"
}

func (s *Store) refreshKey(hash [32]byte) string {
	return s.prefix + ":refresh:" + internal.EncodeHash(hash)
}

func (s *Store) counterKey(c Category) string {
	return s.prefix + ":devcnt:" + c.String()
}

func (s *Store) statsKey() string {
	return s.prefix + ":stats"
}

// Create writes a new session, its refresh pointer, the user-membership
// entry, and the device counter, then invalidates the statistics cache.
// extended selects the long-lived window; the refresh pointer always gets
// the long window.
func (s *Store) Create(ctx context.Context, user User, client ClientInfo, extended bool) (*Created, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}
	refreshValue, err := internal.NewRefreshValue()
	if err != nil {
		return nil, err
	}

	ttl := s.config.TTL
	if extended {
		ttl = s.config.ExtendedTTL
	}

	now := time.Now()
	sess := &Session{
		SessionID:     sid.String(),
		UserID:        user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Role:          user.Role,
		InstitutionID: user.InstitutionID,
		Permissions:   user.Permissions,
		Device:        Classify(client.UserAgent),
		IP:            client.IP,
		UserAgent:     client.UserAgent,
		DeviceLabel:   client.DeviceLabel,
		Location:      client.Location,
		RefreshHash:   internal.HashValue(refreshValue),
		CreatedAt:     now.UnixMilli(),
		LastSeenAt:    now.UnixMilli(),
		ExpiresAt:     now.Add(ttl).UnixMilli(),
	}

	data, err := Encode(sess)
	if err != nil {
		return nil, err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(sess.SessionID), data, ttl)
		pipe.Set(ctx, s.refreshKey(sess.RefreshHash), sess.SessionID, s.config.ExtendedTTL)
		pipe.SAdd(ctx, s.userKey(user.ID), sess.SessionID)
		pipe.Expire(ctx, s.userKey(user.ID), s.config.ExtendedTTL)
		pipe.SAdd(ctx, s.activeUsersKey(), user.ID)
		pipe.Incr(ctx, s.counterKey(sess.Device))
		pipe.Del(ctx, s.statsKey())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return &Created{
		SessionID:    sess.SessionID,
		RefreshValue: refreshValue,
		Session:      sess,
	}, nil
}

// Validate fetches a session and refreshes its activity. Expired and
// never-existed both collapse to [ErrSessionNotFound].
func (s *Store) Validate(ctx context.Context, sessionID string) (*Session, error) {
	key := s.sessionKey(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		s.logger.Warn().Str("session_id", sessionID).Msg("corrupt session blob, destroying")
		_, _ = s.Destroy(ctx, sessionID)
		return nil, ErrSessionNotFound
	}
	sess.SessionID = sessionID

	now := time.Now()
	if sess.ExpiresAt <= now.UnixMilli() {
		if _, err := s.Destroy(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotFound
	}

	if err := s.touch(ctx, key, sess, now); err != nil {
		return nil, err
	}

	return sess, nil
}

// touch rewrites the session with a fresh last-activity timestamp while
// preserving the remaining TTL. The window is absolute: activity never
// extends a session past its original expiry.
func (s *Store) touch(ctx context.Context, key string, sess *Session, now time.Time) error {
	remaining, err := s.redis.PTTL(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if remaining <= 0 {
		return ErrSessionNotFound
	}

	sess.LastSeenAt = now.UnixMilli()
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, key, data, remaining).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Destroy removes a session and all of its derived state. It is idempotent
// and reports whether a live session was actually removed.
func (s *Store) Destroy(ctx context.Context, sessionID string) (bool, error) {
	key := s.sessionKey(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, decErr := Decode(data)
	if decErr != nil {
		// Corrupt blob: drop the key, nothing else is recoverable.
		if err := s.redis.Del(ctx, key).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return true, nil
	}

	existed, err := destroySessionLua.Run(ctx, s.redis, []string{
		key,
		s.userKey(sess.UserID),
		s.counterKey(sess.Device),
		s.activeUsersKey(),
		s.statsKey(),
		s.refreshKey(sess.RefreshHash),
	}, sessionID, sess.UserID).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return existed == 1, nil
}

// DestroyAllForUser bulk-deletes every session a user owns and returns the
// number removed. Device counters are intentionally not decremented on this
// path; ReconcileCounters repairs the drift out-of-band.
//
// The enumeration is a best-effort snapshot: a session created between the
// read and delete phases survives until the next call or its natural expiry.
func (s *Store) DestroyAllForUser(ctx context.Context, userID string) (int, error) {
	userKey := s.userKey(userID)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var (
		removed     int
		sessionKeys []string
		refreshKeys []string
	)

	if len(sessionIDs) > 0 {
		pipe := s.redis.Pipeline()
		cmds := make([]*redis.StringCmd, len(sessionIDs))
		for i, sid := range sessionIDs {
			cmds[i] = pipe.Get(ctx, s.sessionKey(sid))
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		for i, cmd := range cmds {
			data, cmdErr := cmd.Bytes()
			if cmdErr != nil {
				// Vanished mid-enumeration; skip.
				continue
			}
			removed++
			sessionKeys = append(sessionKeys, s.sessionKey(sessionIDs[i]))
			if sess, decErr := Decode(data); decErr == nil {
				refreshKeys = append(refreshKeys, s.refreshKey(sess.RefreshHash))
			}
		}
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(sessionKeys) > 0 {
			pipe.Del(ctx, sessionKeys...)
		}
		if len(refreshKeys) > 0 {
			pipe.Del(ctx, refreshKeys...)
		}
		pipe.Del(ctx, userKey)
		pipe.SRem(ctx, s.activeUsersKey(), userID)
		pipe.Del(ctx, s.statsKey())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return removed, nil
}

// ListForUser enumerates a user's live sessions, most recently active first.
// The recency-first ordering is a contract; device-management UIs depend on it.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]Summary, error) {
	sessionIDs, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(sessionIDs) == 0 {
		return []Summary{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(sessionIDs))
	for i, sid := range sessionIDs {
		cmds[i] = pipe.Get(ctx, s.sessionKey(sid))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	nowMilli := time.Now().UnixMilli()
	summaries := make([]Summary, 0, len(sessionIDs))
	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			// Vanished mid-enumeration; skip.
			continue
		}
		sess, decErr := Decode(data)
		if decErr != nil {
			continue
		}
		if sess.ExpiresAt <= nowMilli {
			continue
		}
		summaries = append(summaries, Summary{
			SessionID:   sessionIDs[i],
			Device:      sess.Device,
			DeviceLabel: sess.DeviceLabel,
			IP:          sess.IP,
			UserAgent:   sess.UserAgent,
			Location:    sess.Location,
			CreatedAt:   time.UnixMilli(sess.CreatedAt),
			LastSeenAt:  time.UnixMilli(sess.LastSeenAt),
			ExpiresAt:   time.UnixMilli(sess.ExpiresAt),
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastSeenAt.After(summaries[j].LastSeenAt)
	})

	return summaries, nil
}

// RotateRefresh consumes the pointer for value and installs a replacement,
// updating the stored refresh hash in the session blob. A consumed or
// dangling pointer yields [ErrRefreshNotFound]; a second presentation of the
// same value therefore always fails.
func (s *Store) RotateRefresh(ctx context.Context, value string) (string, string, error) {
	oldKey := s.refreshKey(internal.HashValue(value))

	sessionID, err := s.redis.GetDel(ctx, oldKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", "", ErrRefreshNotFound
		}
		return "", "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessKey := s.sessionKey(sessionID)
	data, err := s.redis.Get(ctx, sessKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", "", ErrRefreshNotFound
		}
		return "", "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	sess, err := Decode(data)
	if err != nil {
		return "", "", ErrRefreshNotFound
	}
	sess.SessionID = sessionID

	remaining, err := s.redis.PTTL(ctx, sessKey).Result()
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if remaining <= 0 {
		return "", "", ErrRefreshNotFound
	}

	nextValue, err := internal.NewRefreshValue()
	if err != nil {
		return "", "", err
	}
	sess.RefreshHash = internal.HashValue(nextValue)

	encoded, err := Encode(sess)
	if err != nil {
		return "", "", err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessKey, encoded, remaining)
		pipe.Set(ctx, s.refreshKey(sess.RefreshHash), sessionID, s.config.ExtendedTTL)
		return nil
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sessionID, nextValue, nil
}
