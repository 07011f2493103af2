package progress

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/data/repos"
	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/apierr"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Users  repos.UserRepo
	Events repos.EventRepo

	// Clock defaults to time.Now.
	Clock func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases { return Usecases{deps: deps} }

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

// StreakResult is what a passed quiz did to the learner's streak.
type StreakResult struct {
	CurrentStreak int  `json:"current_streak"`
	LongestStreak int  `json:"longest_streak"`
	Changed       bool `json:"changed"`
}

func (u Usecases) today() time.Time {
	if u.deps.Clock != nil {
		return u.deps.Clock()
	}
	return time.Now()
}

// RecordPass advances the streak for a passed quiz. Only call it for passes.
func (u Usecases) RecordPass(ctx context.Context, userID uuid.UUID) (StreakResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	usr, err := u.deps.Users.GetByID(dbc, userID)
	if err != nil {
		return StreakResult{}, apierr.Internal("user_lookup_failed", err)
	}
	if usr == nil {
		return StreakResult{}, apierr.NotFound("user_not_found", "user %s", userID)
	}

	cur := State{Current: usr.CurrentStreak, Longest: usr.LongestStreak, LastActivity: usr.LastActivityDate}
	next, changed := Advance(cur, u.today())
	if !changed {
		return StreakResult{CurrentStreak: cur.Current, LongestStreak: cur.Longest}, nil
	}

	applied, err := u.deps.Users.ApplyStreak(dbc, userID, repos.StreakUpdate{
		Current: next.Current,
		Longest: next.Longest,
		Day:     *next.LastActivity,
	})
	if err != nil {
		return StreakResult{}, apierr.New(http.StatusInternalServerError, "streak_update_failed", fmt.Errorf("apply streak: %w", err))
	}
	if !applied {
		// A concurrent pass already recorded today.
		fresh, err := u.deps.Users.GetByID(dbc, userID)
		if err != nil || fresh == nil {
			return StreakResult{CurrentStreak: cur.Current, LongestStreak: cur.Longest}, nil
		}
		return StreakResult{CurrentStreak: fresh.CurrentStreak, LongestStreak: fresh.LongestStreak}, nil
	}

	u.recordEvent(ctx, userID, next)
	return StreakResult{CurrentStreak: next.Current, LongestStreak: next.Longest, Changed: true}, nil
}

func (u Usecases) recordEvent(ctx context.Context, userID uuid.UUID, s State) {
	if u.deps.Events == nil {
		return
	}
	ev := &domain.Event{
		UserID: userID,
		Type:   domain.EventStreakUpdated,
		Metadata: datatypes.NewJSONType(map[string]any{
			"current_streak": s.Current,
			"longest_streak": s.Longest,
		}),
	}
	if err := u.deps.Events.Create(dbctx.Context{Ctx: ctx}, []*domain.Event{ev}); err != nil && u.deps.Log != nil {
		u.deps.Log.Warn("streak event write failed", "user_id", userID, "error", err)
	}
}
