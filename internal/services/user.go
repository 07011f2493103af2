package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/pulseloop-backend/internal/data/repos"
	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/apierr"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
	"github.com/yungbote/pulseloop-backend/internal/platform/redis"
)

const (
	recentCompletionsLimit = 10
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

type UserStats struct {
	User             *domain.User `json:"user"`
	TotalCompletions int64        `json:"total_completions"`
	FirstTryPasses   int64        `json:"first_try_passes"`
	RetryPasses      int64        `json:"retry_passes"`
}

type Dashboard struct {
	User              *domain.User          `json:"user"`
	RecentCompletions []*domain.QuizAttempt `json:"recent_completions"`
	StatsByType       map[string]int64      `json:"stats_by_type"`
}

type LeaderboardRow struct {
	Rank        int64     `json:"rank"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	TechScore   int64     `json:"tech_score"`
}

type Leaderboard struct {
	Entries []LeaderboardRow `json:"entries"`
	// MyRank is 0 when the caller is not on the board.
	MyRank int64 `json:"my_rank"`
}

type UserService interface {
	GetStats(ctx context.Context, userID uuid.UUID) (*UserStats, error)
	GetDashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error)
	GetLeaderboard(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID, limit int) (*Leaderboard, error)
}

type userService struct {
	log         *logger.Logger
	userRepo    repos.UserRepo
	attemptRepo repos.QuizAttemptRepo
	board       redis.Leaderboard
}

// NewUserService builds the service; board may be nil, in which case the database ranks users.
func NewUserService(log *logger.Logger, userRepo repos.UserRepo, attemptRepo repos.QuizAttemptRepo, board redis.Leaderboard) UserService {
	return &userService{
		log:         log.With("service", "UserService"),
		userRepo:    userRepo,
		attemptRepo: attemptRepo,
		board:       board,
	}
}

func (us *userService) loadUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	u, err := us.userRepo.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, apierr.Internal("user_lookup_failed", err)
	}
	if u == nil {
		return nil, apierr.NotFound("user_not_found", "user %s", userID)
	}
	return u, nil
}

func (us *userService) GetStats(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	var (
		u      *domain.User
		counts repos.PassCounts
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		u, err = us.loadUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = us.attemptRepo.PassCounts(dbctx.Context{Ctx: gctx}, userID)
		if err != nil {
			return apierr.Internal("stats_failed", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &UserStats{
		User:             u,
		TotalCompletions: counts.Total,
		FirstTryPasses:   counts.FirstTry,
		RetryPasses:      counts.AfterRetry,
	}, nil
}

func (us *userService) GetDashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	out := &Dashboard{StatsByType: map[string]int64{
		string(domain.ContentArticle): 0,
		string(domain.ContentVideo):   0,
		string(domain.ContentPodcast): 0,
	}}
	var byType []repos.TypeCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := us.loadUser(gctx, userID)
		out.User = u
		return err
	})
	g.Go(func() error {
		recent, err := us.attemptRepo.ListRecentPassed(dbctx.Context{Ctx: gctx}, userID, recentCompletionsLimit)
		if err != nil {
			return apierr.Internal("dashboard_failed", fmt.Errorf("recent completions: %w", err))
		}
		out.RecentCompletions = recent
		return nil
	})
	g.Go(func() error {
		var err error
		byType, err = us.attemptRepo.CountPassedByContentType(dbctx.Context{Ctx: gctx}, userID)
		if err != nil {
			return apierr.Internal("dashboard_failed", fmt.Errorf("counts by type: %w", err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, tc := range byType {
		out.StatsByType[string(tc.Type)] = tc.Count
	}
	if out.RecentCompletions == nil {
		out.RecentCompletions = []*domain.QuizAttempt{}
	}
	return out, nil
}

// GetLeaderboard ranks the organization's learners by tech score. The redis board
// is read only once it has been seeded with the whole organization; until then, or
// when redis fails, the database ranks everyone and the snapshot seeds the board.
func (us *userService) GetLeaderboard(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID, limit int) (*Leaderboard, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}

	entries, myRank, err := us.rank(ctx, userID, orgID, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	users, err := us.userRepo.GetByIDs(dbctx.Context{Ctx: ctx}, ids)
	if err != nil {
		return nil, apierr.Internal("leaderboard_failed", err)
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName
	}

	out := &Leaderboard{Entries: make([]LeaderboardRow, 0, len(entries)), MyRank: myRank}
	for _, e := range entries {
		out.Entries = append(out.Entries, LeaderboardRow{
			Rank:        e.Rank,
			UserID:      e.UserID,
			DisplayName: names[e.UserID],
			TechScore:   e.Score,
		})
	}
	return out, nil
}

// rank returns the top limit entries and userID's rank.
func (us *userService) rank(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID, limit int) ([]redis.LeaderboardEntry, int64, error) {
	seed := false
	if us.board != nil {
		if top, mine, ok, err := us.fromBoard(ctx, userID, orgID, limit); err != nil {
			us.log.Warn("leaderboard read failed, using database", "error", err)
		} else if ok {
			return top, mine, nil
		} else {
			seed = true
		}
	}

	all, err := us.userRepo.ListRanked(dbctx.Context{Ctx: ctx}, orgID)
	if err != nil {
		return nil, 0, apierr.Internal("leaderboard_failed", err)
	}
	entries := make([]redis.LeaderboardEntry, 0, len(all))
	var mine int64
	for i, u := range all {
		e := redis.LeaderboardEntry{UserID: u.ID, Score: int64(u.TechScore), Rank: int64(i + 1)}
		if u.ID == userID {
			mine = e.Rank
		}
		entries = append(entries, e)
	}
	if seed {
		if err := us.board.Seed(ctx, orgID, entries); err != nil {
			us.log.Warn("leaderboard seed failed", "error", err)
		}
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, mine, nil
}

// fromBoard reads a seeded board. ok is false when the board has never been seeded.
func (us *userService) fromBoard(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID, limit int) (top []redis.LeaderboardEntry, mine int64, ok bool, err error) {
	seeded, err := us.board.Seeded(ctx, orgID)
	if err != nil || !seeded {
		return nil, 0, false, err
	}
	if top, err = us.board.Top(ctx, orgID, limit); err != nil {
		return nil, 0, false, err
	}
	if mine, err = us.board.Rank(ctx, orgID, userID); err != nil {
		return nil, 0, false, err
	}
	return top, mine, true, nil
}
