package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Statistics returns the aggregate session snapshot. Reads hit a short-TTL
// cache first; a miss recomputes from the active-user-set cardinality and
// the four device counters (O(1) store operations, never a scan) and
// repopulates the cache.
//
// Statistics is advisory: on any underlying failure it returns a zeroed
// snapshot rather than an error.
func (s *Store) Statistics(ctx context.Context) Stats {
	cached, err := s.redis.Get(ctx, s.statsKey()).Bytes()
	if err == nil {
		var stats Stats
		if jsonErr := json.Unmarshal(cached, &stats); jsonErr == nil {
			return stats
		}
		// Fall through and recompute over a corrupt cache entry.
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Msg("statistics cache read failed")
		return zeroStats()
	}

	pipe := s.redis.Pipeline()
	activeCmd := pipe.SCard(ctx, s.activeUsersKey())
	counterCmds := make(map[Category]*redis.StringCmd, len(Categories))
	for _, category := range Categories {
		counterCmds[category] = pipe.Get(ctx, s.counterKey(category))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Msg("statistics recompute failed")
		return zeroStats()
	}

	stats := zeroStats()
	stats.ActiveUsers = int(activeCmd.Val())
	for category, cmd := range counterCmds {
		n, convErr := cmd.Int()
		if convErr != nil || n < 0 {
			n = 0
		}
		stats.ByDevice[category.String()] = n
		stats.TotalSessions += n
	}

	if encoded, jsonErr := json.Marshal(stats); jsonErr == nil {
		if err := s.redis.Set(ctx, s.statsKey(), encoded, s.config.StatsTTL).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("statistics cache write failed")
		}
	}

	return stats
}

func zeroStats() Stats {
	stats := Stats{ByDevice: make(map[string]int, len(Categories))}
	for _, category := range Categories {
		stats.ByDevice[category.String()] = 0
	}
	return stats
}
