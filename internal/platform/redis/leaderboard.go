package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// LeaderboardEntry is one ranked learner.
type LeaderboardEntry struct {
	UserID uuid.UUID `json:"user_id"`
	Score  int64     `json:"score"`
	Rank   int64     `json:"rank"`
}

// Leaderboard keeps tech scores in one sorted set per organization. A board only
// holds every member once it has been seeded; SetScore alone builds a partial board.
type Leaderboard interface {
	SetScore(ctx context.Context, orgID *uuid.UUID, userID uuid.UUID, score int) error
	// Seed writes a full organization snapshot and marks the board complete.
	Seed(ctx context.Context, orgID *uuid.UUID, entries []LeaderboardEntry) error
	Seeded(ctx context.Context, orgID *uuid.UUID) (bool, error)
	Top(ctx context.Context, orgID *uuid.UUID, limit int) ([]LeaderboardEntry, error)
	Rank(ctx context.Context, orgID *uuid.UUID, userID uuid.UUID) (int64, error)
}

type leaderboard struct {
	rdb    *goredis.Client
	prefix string
}

func NewLeaderboard(rdb *goredis.Client, cfg Config) Leaderboard {
	return &leaderboard{rdb: rdb, prefix: cfg.KeyPrefix}
}

func LeaderboardKey(orgID *uuid.UUID) string {
	if orgID == nil {
		return "leaderboard:tech_score:global"
	}
	return "leaderboard:tech_score:" + orgID.String()
}

func (l *leaderboard) key(orgID *uuid.UUID) string {
	return prefixed(l.prefix, LeaderboardKey(orgID))
}

func (l *leaderboard) seededKey(orgID *uuid.UUID) string {
	return l.key(orgID) + ":seeded"
}

func (l *leaderboard) SetScore(ctx context.Context, orgID *uuid.UUID, userID uuid.UUID, score int) error {
	return l.rdb.ZAdd(ctx, l.key(orgID), goredis.Z{
		Score:  float64(score),
		Member: userID.String(),
	}).Err()
}

func (l *leaderboard) Seed(ctx context.Context, orgID *uuid.UUID, entries []LeaderboardEntry) error {
	members := make([]goredis.Z, 0, len(entries))
	for _, e := range entries {
		members = append(members, goredis.Z{Score: float64(e.Score), Member: e.UserID.String()})
	}
	_, err := l.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if len(members) > 0 {
			pipe.ZAdd(ctx, l.key(orgID), members...)
		}
		pipe.Set(ctx, l.seededKey(orgID), "1", 0)
		return nil
	})
	return err
}

func (l *leaderboard) Seeded(ctx context.Context, orgID *uuid.UUID) (bool, error) {
	n, err := l.rdb.Exists(ctx, l.seededKey(orgID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *leaderboard) Top(ctx context.Context, orgID *uuid.UUID, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	results, err := l.rdb.ZRevRangeWithScores(ctx, l.key(orgID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	return entriesFromZ(results)
}

// Rank is 1-based; 0 means the user is not on the board.
func (l *leaderboard) Rank(ctx context.Context, orgID *uuid.UUID, userID uuid.UUID) (int64, error) {
	rank, err := l.rdb.ZRevRank(ctx, l.key(orgID), userID.String()).Result()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rank + 1, nil
}

func entriesFromZ(results []goredis.Z) ([]LeaderboardEntry, error) {
	entries := make([]LeaderboardEntry, 0, len(results))
	for i, r := range results {
		var raw string
		switch m := r.Member.(type) {
		case string:
			raw = m
		case []byte:
			raw = string(m)
		default:
			raw = fmt.Sprint(m)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("leaderboard member %s: %w", strconv.Quote(raw), err)
		}
		entries = append(entries, LeaderboardEntry{UserID: id, Score: int64(r.Score), Rank: int64(i) + 1})
	}
	return entries, nil
}
