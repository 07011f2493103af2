package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/pulseloop-backend/internal/data/repos/testutil"
	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewUserRepo(db, testutil.Logger(t))

	ext := "ext-" + uuid.NewString()
	created, err := repo.Create(dbc, []*domain.User{{ExternalID: ext, Email: ext + "@example.com", Role: "employee"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: expected id assigned, got %+v", created)
	}

	got, err := repo.GetByExternalID(dbc, ext)
	if err != nil || got == nil || got.ID != created[0].ID {
		t.Fatalf("GetByExternalID: got=%v err=%v", got, err)
	}
	if missing, err := repo.GetByExternalID(dbc, "nope-"+uuid.NewString()); err != nil || missing != nil {
		t.Fatalf("GetByExternalID (missing): got=%v err=%v", missing, err)
	}
	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{created[0].ID}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}

	score, err := repo.IncrementTechScore(dbc, created[0].ID, 10)
	if err != nil || score != 10 {
		t.Fatalf("IncrementTechScore: score=%d err=%v", score, err)
	}
	score, err = repo.IncrementTechScore(dbc, created[0].ID, -2)
	if err != nil || score != 8 {
		t.Fatalf("IncrementTechScore (negative): score=%d err=%v", score, err)
	}
	if _, err := repo.IncrementTechScore(dbc, uuid.New(), 1); err == nil {
		t.Fatalf("IncrementTechScore (missing): expected error")
	}
}

func TestUserRepo_ApplyStreakOncePerDay(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewUserRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, ctx, tx, "streak-"+uuid.NewString(), nil)

	day := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	ok, err := repo.ApplyStreak(dbc, u.ID, StreakUpdate{Current: 1, Longest: 1, Day: day})
	if err != nil || !ok {
		t.Fatalf("ApplyStreak first: ok=%v err=%v", ok, err)
	}
	ok, err = repo.ApplyStreak(dbc, u.ID, StreakUpdate{Current: 2, Longest: 2, Day: day})
	if err != nil || ok {
		t.Fatalf("ApplyStreak same day: ok=%v err=%v", ok, err)
	}
	ok, err = repo.ApplyStreak(dbc, u.ID, StreakUpdate{Current: 2, Longest: 2, Day: day.AddDate(0, 0, 1)})
	if err != nil || !ok {
		t.Fatalf("ApplyStreak next day: ok=%v err=%v", ok, err)
	}

	got, err := repo.GetByID(dbc, u.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got.CurrentStreak != 2 || got.LongestStreak != 2 {
		t.Fatalf("unexpected streak: current=%d longest=%d", got.CurrentStreak, got.LongestStreak)
	}
	if got.LastActivityDate == nil || !got.LastActivityDate.UTC().Equal(day.AddDate(0, 0, 1)) {
		t.Fatalf("unexpected last activity: %v", got.LastActivityDate)
	}
}

func TestUserRepo_ListTopByScoreScopesOrganization(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewUserRepo(db, testutil.Logger(t))

	org := testutil.SeedOrganization(t, ctx, tx, "tenant-"+uuid.NewString())
	other := testutil.SeedOrganization(t, ctx, tx, "tenant-"+uuid.NewString())
	low := testutil.SeedUser(t, ctx, tx, "low-"+uuid.NewString(), &org.ID)
	high := testutil.SeedUser(t, ctx, tx, "high-"+uuid.NewString(), &org.ID)
	outsider := testutil.SeedUser(t, ctx, tx, "out-"+uuid.NewString(), &other.ID)
	for id, delta := range map[uuid.UUID]int{low.ID: 3, high.ID: 20, outsider.ID: 99} {
		if _, err := repo.IncrementTechScore(dbc, id, delta); err != nil {
			t.Fatalf("IncrementTechScore: %v", err)
		}
	}

	top, err := repo.ListTopByScore(dbc, &org.ID, 10)
	if err != nil {
		t.Fatalf("ListTopByScore: %v", err)
	}
	if len(top) != 2 || top[0].ID != high.ID || top[1].ID != low.ID {
		t.Fatalf("unexpected leaderboard: %+v", top)
	}
	if one, err := repo.ListTopByScore(dbc, &org.ID, 1); err != nil || len(one) != 1 || one[0].ID != high.ID {
		t.Fatalf("ListTopByScore limit 1: %+v err=%v", one, err)
	}

	all, err := repo.ListRanked(dbc, &org.ID)
	if err != nil || len(all) != 2 || all[0].ID != high.ID || all[1].ID != low.ID || all[0].TechScore <= all[1].TechScore {
		t.Fatalf("ListRanked: %+v err=%v", all, err)
	}
}
