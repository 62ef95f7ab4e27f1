// Package boardcache mirrors per-tournament leaderboards into Redis sorted
// sets. The mirror is write-only from the engine's point of view: it is fed
// from committed events and never read back by the core, so a cold or absent
// Redis only degrades external consumers.
package boardcache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"labyrinth-server/engine"
)

const writeTimeout = 2 * time.Second

// Mirror publishes leaderboard snapshots to Redis.
type Mirror struct {
	client *redis.Client
	logger *slog.Logger
}

var _ engine.Publisher = (*Mirror)(nil)

// NewMirror connects to Redis at addr. An empty addr disables the mirror
// and returns (nil, nil).
func NewMirror(addr string, logger *slog.Logger) (*Mirror, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("connected to Redis", "tag", "boardcache", "addr", addr)
	return &Mirror{client: client, logger: logger}, nil
}

// Publish implements engine.Publisher. Events that carry a leaderboard
// snapshot replace the sorted set for that tournament; the member is the
// wallet address and the score is the best completion time in milliseconds,
// so ZRANGE returns the ranking in board order.
func (m *Mirror) Publish(ev engine.Event) {
	if ev.Leaderboard == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	key := boardKey(ev.TournamentID)
	members := make([]redis.Z, 0, len(ev.Leaderboard))
	for _, entry := range ev.Leaderboard {
		members = append(members, redis.Z{
			Score:  float64(entry.BestTimeMS),
			Member: entry.Wallet.Hex(),
		})
	}

	pipe := m.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(members) > 0 {
		pipe.ZAdd(ctx, key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		m.logger.Warn("leaderboard mirror write failed", "tag", "boardcache", "tournament_id", ev.TournamentID, "error", err)
	}
}

// Close releases the Redis connection.
func (m *Mirror) Close() error {
	return m.client.Close()
}

func boardKey(tournamentID uint64) string {
	return fmt.Sprintf("leaderboard:%d", tournamentID)
}
