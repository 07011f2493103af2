package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/data/repos"
	"github.com/yungbote/pulseloop-backend/internal/data/repos/testutil"
	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/apierr"
	"github.com/yungbote/pulseloop-backend/internal/platform/redis"
)

// fakeBoard is an in-memory sorted board for a single organization.
type fakeBoard struct {
	mu     sync.Mutex
	scores map[uuid.UUID]int64
	seeded bool
	seeds  int
	err    error
}

func (f *fakeBoard) SetScore(_ context.Context, _ *uuid.UUID, userID uuid.UUID, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scores == nil {
		f.scores = map[uuid.UUID]int64{}
	}
	f.scores[userID] = int64(score)
	return nil
}

func (f *fakeBoard) Seed(_ context.Context, _ *uuid.UUID, entries []redis.LeaderboardEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scores == nil {
		f.scores = map[uuid.UUID]int64{}
	}
	for _, e := range entries {
		f.scores[e.UserID] = e.Score
	}
	f.seeded = true
	f.seeds++
	return nil
}

func (f *fakeBoard) Seeded(context.Context, *uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seeded, f.err
}

func (f *fakeBoard) ranked() []redis.LeaderboardEntry {
	out := make([]redis.LeaderboardEntry, 0, len(f.scores))
	for id, score := range f.scores {
		out = append(out, redis.LeaderboardEntry{UserID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		out[i].Rank = int64(i + 1)
	}
	return out
}

func (f *fakeBoard) Top(_ context.Context, _ *uuid.UUID, limit int) ([]redis.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := f.ranked()
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeBoard) Rank(_ context.Context, _ *uuid.UUID, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	for _, e := range f.ranked() {
		if e.UserID == userID {
			return e.Rank, nil
		}
	}
	return 0, nil
}

func seedPass(t *testing.T, db *gorm.DB, userID uuid.UUID, ct domain.ContentType, attempt int, passed bool) {
	t.Helper()
	ctx := context.Background()
	item := testutil.SeedContent(t, ctx, db, &domain.ContentItem{Type: ct})
	qz := testutil.SeedQuiz(t, ctx, db, item.ID, 1, testutil.Questions(5))
	testutil.SeedAttempt(t, ctx, db, &domain.QuizAttempt{
		UserID: userID, ContentID: item.ID, QuizID: qz.ID, AttemptNumber: attempt, Passed: passed,
	})
}

func TestUserService_StatsAndDashboard(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, db, "stats-user", nil)
	seedPass(t, db, u.ID, domain.ContentArticle, 1, true)
	seedPass(t, db, u.ID, domain.ContentVideo, 2, true)
	seedPass(t, db, u.ID, domain.ContentVideo, 1, false)

	svc := NewUserService(log, repos.NewUserRepo(db, log), repos.NewQuizAttemptRepo(db, log), nil)

	stats, err := svc.GetStats(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalCompletions != 2 || stats.FirstTryPasses != 1 || stats.RetryPasses != 1 || stats.User.ID != u.ID {
		t.Fatalf("stats: %+v", stats)
	}

	dash, err := svc.GetDashboard(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetDashboard: %v", err)
	}
	if len(dash.RecentCompletions) != 2 {
		t.Fatalf("recent: %d", len(dash.RecentCompletions))
	}
	if dash.StatsByType["article"] != 1 || dash.StatsByType["video"] != 1 || dash.StatsByType["podcast"] != 0 {
		t.Fatalf("by type: %v", dash.StatsByType)
	}

	if _, err := svc.GetStats(ctx, uuid.New()); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestUserService_LeaderboardSeedsWholeOrganization(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	org := testutil.SeedOrganization(t, ctx, db, "lb-tenant")
	a := testutil.SeedUser(t, ctx, db, "lb-a", &org.ID)
	b := testutil.SeedUser(t, ctx, db, "lb-b", &org.ID)
	c := testutil.SeedUser(t, ctx, db, "lb-c", &org.ID)
	outsider := testutil.SeedUser(t, ctx, db, "lb-x", nil)
	db.Model(&domain.User{}).Where("id = ?", a.ID).Update("tech_score", 16)
	db.Model(&domain.User{}).Where("id = ?", b.ID).Update("tech_score", 30)
	db.Model(&domain.User{}).Where("id = ?", c.ID).Update("tech_score", 2)
	db.Model(&domain.User{}).Where("id = ?", outsider.ID).Update("tech_score", 99)

	// A submission reached redis before anyone read the board.
	board := &fakeBoard{}
	if err := board.SetScore(ctx, &org.ID, a.ID, 16); err != nil {
		t.Fatalf("SetScore: %v", err)
	}
	svc := NewUserService(log, repos.NewUserRepo(db, log), repos.NewQuizAttemptRepo(db, log), board)

	lb, err := svc.GetLeaderboard(ctx, a.ID, &org.ID, 0)
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	if len(lb.Entries) != 3 || lb.Entries[0].UserID != b.ID || lb.Entries[0].TechScore != 30 || lb.Entries[2].UserID != c.ID {
		t.Fatalf("entries: %+v", lb.Entries)
	}
	if lb.MyRank != 2 || lb.Entries[0].DisplayName != "Test lb-b" {
		t.Fatalf("leaderboard: %+v", lb)
	}
	if !board.seeded || len(board.scores) != 3 || board.seeds != 1 {
		t.Fatalf("board not seeded with the organization: seeded=%v scores=%v", board.seeded, board.scores)
	}

	// Once seeded the board is served, and a rank below the limit is still reported.
	if err := board.SetScore(ctx, &org.ID, c.ID, 50); err != nil {
		t.Fatalf("SetScore: %v", err)
	}
	lb, err = svc.GetLeaderboard(ctx, a.ID, &org.ID, 1)
	if err != nil || len(lb.Entries) != 1 || lb.Entries[0].UserID != c.ID || lb.Entries[0].TechScore != 50 {
		t.Fatalf("board leaderboard: %+v err=%v", lb, err)
	}
	if lb.MyRank != 3 || board.seeds != 1 {
		t.Fatalf("my rank=%d seeds=%d", lb.MyRank, board.seeds)
	}

	board.err = errors.New("redis down")
	lb, err = svc.GetLeaderboard(ctx, c.ID, &org.ID, 1)
	if err != nil || len(lb.Entries) != 1 || lb.Entries[0].UserID != b.ID || lb.MyRank != 3 {
		t.Fatalf("fallback leaderboard: %+v err=%v", lb, err)
	}
	if board.seeds != 1 {
		t.Fatalf("unreachable board must not be reseeded")
	}
}

func TestUserService_LeaderboardWithoutRedis(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	org := testutil.SeedOrganization(t, ctx, db, "lb-plain")
	a := testutil.SeedUser(t, ctx, db, "plain-a", &org.ID)
	b := testutil.SeedUser(t, ctx, db, "plain-b", &org.ID)
	db.Model(&domain.User{}).Where("id = ?", b.ID).Update("tech_score", 8)

	svc := NewUserService(log, repos.NewUserRepo(db, log), repos.NewQuizAttemptRepo(db, log), nil)
	lb, err := svc.GetLeaderboard(ctx, a.ID, &org.ID, 1)
	if err != nil || len(lb.Entries) != 1 || lb.Entries[0].UserID != b.ID || lb.MyRank != 2 {
		t.Fatalf("leaderboard: %+v err=%v", lb, err)
	}
}
