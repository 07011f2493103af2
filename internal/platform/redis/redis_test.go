package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

func TestKeys(t *testing.T) {
	org := uuid.MustParse("0b3c1c8e-7c1f-4a40-9a43-5b0c6f2d8a11")
	if got := prefixed("pulse:", LeaderboardKey(&org)); got != "pulse:leaderboard:tech_score:"+org.String() {
		t.Fatalf("unexpected key %s", got)
	}
	if got := prefixed("", LeaderboardKey(nil)); got != "leaderboard:tech_score:global" {
		t.Fatalf("unexpected global key %s", got)
	}
	if got := QuizKey(org, 2); got != "quiz:"+org.String()+":v2" {
		t.Fatalf("unexpected quiz key %s", got)
	}
}

func TestEntriesFromZ(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	got, err := entriesFromZ([]goredis.Z{{Score: 30, Member: a.String()}, {Score: 12, Member: b.String()}})
	if err != nil {
		t.Fatalf("entriesFromZ: %v", err)
	}
	if len(got) != 2 || got[0].UserID != a || got[0].Rank != 1 || got[1].Score != 12 || got[1].Rank != 2 {
		t.Fatalf("unexpected entries %+v", got)
	}
	if _, err := entriesFromZ([]goredis.Z{{Score: 1, Member: "not-a-uuid"}}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNewClient_DisabledWithoutAddr(t *testing.T) {
	rdb, err := NewClient(context.Background(), Config{}, logger.Nop())
	if err != nil || rdb != nil {
		t.Fatalf("expected nil client, got %v %v", rdb, err)
	}
}

// Live checks run only against a real instance.
func TestRedisIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis integration tests")
	}
	ctx := context.Background()
	cfg := Config{Addr: addr, KeyPrefix: "test:" + uuid.NewString()}
	rdb, err := NewClient(ctx, cfg, logger.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	org := uuid.New()
	lb := NewLeaderboard(rdb, cfg)
	low, high := uuid.New(), uuid.New()
	if err := lb.SetScore(ctx, &org, low, 3); err != nil {
		t.Fatalf("SetScore: %v", err)
	}
	if seeded, err := lb.Seeded(ctx, &org); err != nil || seeded {
		t.Fatalf("SetScore alone must not mark the board seeded: %v %v", seeded, err)
	}
	if err := lb.Seed(ctx, &org, []LeaderboardEntry{{UserID: low, Score: 3}, {UserID: high, Score: 40}}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if seeded, err := lb.Seeded(ctx, &org); err != nil || !seeded {
		t.Fatalf("Seeded: %v %v", seeded, err)
	}
	top, err := lb.Top(ctx, &org, 10)
	if err != nil || len(top) != 2 || top[0].UserID != high {
		t.Fatalf("Top: %+v %v", top, err)
	}
	if r, err := lb.Rank(ctx, &org, low); err != nil || r != 2 {
		t.Fatalf("Rank: %d %v", r, err)
	}
	if r, err := lb.Rank(ctx, &org, uuid.New()); err != nil || r != 0 {
		t.Fatalf("Rank (missing): %d %v", r, err)
	}

	cache := NewQuizCache(rdb, cfg)
	q := &domain.Quiz{ID: uuid.New(), ContentID: uuid.New(), Version: 1, Questions: []domain.QuizQuestion{{Question: "q", Options: []string{"a", "b", "c", "d"}}}}
	if miss, err := cache.Get(ctx, q.ContentID, 1); err != nil || miss != nil {
		t.Fatalf("Get (miss): %v %v", miss, err)
	}
	if err := cache.Put(ctx, q); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := cache.Get(ctx, q.ContentID, 1)
	if err != nil || got == nil || got.ID != q.ID || len(got.Questions) != 1 {
		t.Fatalf("Get: %+v %v", got, err)
	}
}
