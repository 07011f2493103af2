package quiz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/data/repos/testutil"
	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
)

func TestQuizRepo_CanonicalAndRetryVersions(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewQuizRepo(db, testutil.Logger(t))
	item := testutil.SeedContent(t, ctx, tx, &domain.ContentItem{Title: "quizzed"})

	v1 := &domain.Quiz{ContentID: item.ID, Version: 1, Questions: testutil.Questions(5)}
	if err := repo.Create(dbc, v1); err != nil {
		t.Fatalf("Create v1: %v", err)
	}

	got, err := repo.GetCanonical(dbc, item.ID)
	if err != nil || got == nil || got.ID != v1.ID || len(got.Questions) != 5 {
		t.Fatalf("GetCanonical: got=%v err=%v", got, err)
	}
	if got.Questions[2].CorrectAnswer != 2 || len(got.Questions[0].Options) != 4 {
		t.Fatalf("questions not round-tripped: %+v", got.Questions[2])
	}
	other := testutil.SeedContent(t, ctx, tx, &domain.ContentItem{Title: "unquizzed"})
	if missing, err := repo.GetCanonical(dbc, other.ID); err != nil || missing != nil {
		t.Fatalf("GetCanonical (missing): got=%v err=%v", missing, err)
	}

	// A second version 1 must surface as a duplicate-key error so callers can re-read.
	sp := tx.SavePoint("dup")
	if sp.Error != nil {
		t.Fatalf("savepoint: %v", sp.Error)
	}
	dup := &domain.Quiz{ContentID: item.ID, Version: 1, Questions: testutil.Questions(1)}
	err = repo.Create(dbc, dup)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("Create duplicate: expected ErrDuplicatedKey, got %v", err)
	}
	tx.RollbackTo("dup")

	// Retry versions repeat freely: one per failed attempt.
	alice, bob := uuid.New(), uuid.New()
	first := &domain.Quiz{ContentID: item.ID, Version: 2, UserID: &alice}
	if err := repo.Create(dbc, first); err != nil {
		t.Fatalf("Create v2 (alice): %v", err)
	}
	tx.Model(&domain.Quiz{}).Where("id = ?", first.ID).Update("created_at", time.Now().Add(-time.Hour))
	second := &domain.Quiz{ContentID: item.ID, Version: 2, UserID: &alice, Questions: testutil.Questions(2)}
	if err := repo.Create(dbc, second); err != nil {
		t.Fatalf("Create v2 again (alice): %v", err)
	}
	forBob := &domain.Quiz{ContentID: item.ID, Version: 2, UserID: &bob}
	if err := repo.Create(dbc, forBob); err != nil {
		t.Fatalf("Create v2 (bob): %v", err)
	}

	if latest, err := repo.LatestRetry(dbc, item.ID, 2, alice); err != nil || latest == nil || latest.ID != second.ID {
		t.Fatalf("LatestRetry alice: got=%v err=%v", latest, err)
	}
	if latest, err := repo.LatestRetry(dbc, item.ID, 2, bob); err != nil || latest == nil || latest.ID != forBob.ID {
		t.Fatalf("LatestRetry bob: got=%v err=%v", latest, err)
	}
	if none, err := repo.LatestRetry(dbc, item.ID, 3, alice); err != nil || none != nil {
		t.Fatalf("LatestRetry (missing): got=%v err=%v", none, err)
	}
	if canon, _ := repo.GetCanonical(dbc, item.ID); canon == nil || canon.ID != v1.ID {
		t.Fatalf("canonical changed: %v", canon)
	}

	all, err := repo.ListByContent(dbc, item.ID)
	if err != nil || len(all) != 4 || all[0].Version != 1 || all[3].Version != 2 {
		t.Fatalf("ListByContent: err=%v rows=%+v", err, all)
	}
	if byID, err := repo.GetByID(dbc, forBob.ID); err != nil || byID == nil || len(byID.Questions) != 0 || *byID.UserID != bob {
		t.Fatalf("GetByID: got=%v err=%v", byID, err)
	}
	if none, err := repo.GetByID(dbc, uuid.New()); err != nil || none != nil {
		t.Fatalf("GetByID (missing): got=%v err=%v", none, err)
	}
}
